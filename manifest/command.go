package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// MaxOutputBytes bounds how much captured output a failure carries
const MaxOutputBytes = 4096

// Command runs a shell script as the body of a declaration
type Command struct {
	Script string
	Dir    string
	Env    []string // appended to the process environment
	Log    log.Logger
}

// Run executes the script with sh -c. A non-zero exit fails with the tail of
// the combined output.
func (c *Command) Run(ctx context.Context, t types.TB) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", c.Script)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	if c.Log != nil {
		c.Log.Debug("Command finished", "title", t.Title(), "script", c.Script,
			"duration", time.Since(start), "error", err)
	}
	if err != nil {
		return fmt.Errorf("command %q: %w\n%s", c.Script, err, tail(cleanOutput(out.String()), MaxOutputBytes))
	}
	return nil
}

func cleanOutput(s string) string {
	return strings.TrimSpace(stripansi.Strip(s))
}

// tail keeps at most the last n bytes of s, starting on a line boundary when
// possible and never inside a UTF-8 sequence
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	cut := s[start:]
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i < len(cut)-1 {
		cut = cut[i+1:]
	}
	return "..." + "\n" + cut
}
