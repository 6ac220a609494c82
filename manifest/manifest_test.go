package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

const yamlManifest = `
name: smoke
workdir: work
env:
  GREETING: hello
  TARGET: world
declarations:
  - title: setup
    type: before
    run: mkdir -p out
  - title: builds
    type: test
    serial: true
    run: echo "$GREETING $TARGET" > out/greeting
  - title: focused
    type: test
    only: true
    run: "true"
  - title: later
    type: test
    skip: true
    run: "false"
`

const tomlManifest = `
name = "smoke"

[env]
GREETING = "hello"

[[declarations]]
title = "setup"
type = "beforeEach"
run = "true"

[[declarations]]
title = "builds"
type = "test"
serial = true
run = "true"
`

type fakeTB struct {
	title string
	errs  []error
}

func (f *fakeTB) Title() string              { return f.title }
func (f *fakeTB) Fail(err error)             { f.errs = append(f.errs, err) }
func (f *fakeTB) Failed() bool               { return len(f.errs) > 0 }
func (f *fakeTB) End()                       {}
func (f *fakeTB) Log(msg string, ctx ...any) {}

func TestParse_YAML(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "smoke", m.Name)
	assert.Equal(t, "work", m.WorkDir)
	assert.Equal(t, []string{"GREETING=hello", "TARGET=world"}, m.Environ())
	require.Len(t, m.Entries, 4)
	assert.True(t, m.Entries[1].Serial)
	assert.True(t, m.Entries[2].Only)
	assert.True(t, m.Entries[3].Skip)
}

func TestParse_TOML(t *testing.T) {
	m, err := Parse([]byte(tomlManifest), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "smoke", m.Name)
	assert.Equal(t, map[string]string{"GREETING": "hello"}, m.Env)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "beforeEach", m.Entries[0].Type)
	assert.True(t, m.Entries[1].Serial)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  Format
		errMsg  string
	}{
		{
			name:    "unknown type",
			content: "declarations:\n  - title: x\n    type: beforeAll\n    run: 'true'\n",
			format:  FormatYAML,
			errMsg:  `unknown declaration type "beforeAll"`,
		},
		{
			name:    "empty run",
			content: "declarations:\n  - title: x\n    type: test\n",
			format:  FormatYAML,
			errMsg:  "run must not be empty",
		},
		{
			name:    "unknown yaml key",
			content: "declarations:\n  - title: x\n    type: test\n    run: 'true'\n    retries: 3\n",
			format:  FormatYAML,
			errMsg:  "retries",
		},
		{
			name:    "unknown toml key",
			content: "[[declarations]]\ntitle = \"x\"\ntype = \"test\"\nrun = \"true\"\ntimeout = \"1s\"\n",
			format:  FormatTOML,
			errMsg:  "unknown manifest keys",
		},
		{
			name:    "unknown format",
			content: "",
			format:  Format("json"),
			errMsg:  "unknown manifest format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), tt.format)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParse_MissingTypePassesThrough(t *testing.T) {
	m, err := Parse([]byte("declarations:\n  - title: untyped\n    run: 'true'\n"), FormatYAML)
	require.NoError(t, err)

	decls := m.Declarations(log.NewLogger(log.DiscardHandler()))
	require.Len(t, decls, 1)
	assert.Equal(t, types.Type(""), decls[0].Type)
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("suite.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatFromPath("dir/suite.TOML")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	_, err = FormatFromPath("suite.json")
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nightly.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workdir: sub\ndeclarations:\n  - type: test\n    run: 'true'\n"), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", m.Name, "name defaults to the file name")
	assert.Equal(t, filepath.Join(dir, "sub"), m.WorkDir)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestDeclarations(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), FormatYAML)
	require.NoError(t, err)
	m.WorkDir = t.TempDir()

	decls := m.Declarations(log.NewLogger(log.DiscardHandler()))
	require.Len(t, decls, 4)

	assert.Equal(t, types.TypeBefore, decls[0].Type)
	assert.Equal(t, types.Metadata{Serial: true}, decls[1].Metadata)
	assert.Equal(t, types.Metadata{Exclusive: true}, decls[2].Metadata)
	assert.Equal(t, types.Metadata{Skipped: true}, decls[3].Metadata)

	ctx := context.Background()
	require.NoError(t, decls[0].Fn(ctx, &fakeTB{title: "setup"}))
	require.NoError(t, decls[1].Fn(ctx, &fakeTB{title: "builds"}))

	content, err := os.ReadFile(filepath.Join(m.WorkDir, "out", "greeting"))
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(content))
}

func TestCommand_Failure(t *testing.T) {
	cmd := &Command{
		Script: `printf '\033[31mred alert\033[0m\n'; exit 3`,
		Dir:    t.TempDir(),
	}

	err := cmd.Run(context.Background(), &fakeTB{title: "fails"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "red alert")
	assert.NotContains(t, err.Error(), "\033[31m")
}

func TestCommand_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := &Command{Script: "sleep 5", Dir: t.TempDir()}
	require.Error(t, cmd.Run(ctx, &fakeTB{title: "cancelled"}))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))

	long := strings.Repeat("x", 20) + "\nkeep this line"
	out := tail(long, 18)
	assert.Equal(t, "...\nkeep this line", out)
}

func TestTail_MultiByteOutput(t *testing.T) {
	// 2-byte runes with no newline: a 5 byte cut lands mid-rune
	long := strings.Repeat("é", 10)
	out := tail(long, 5)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "...\néé", out)

	// every byte of the tail is a continuation byte of one 4-byte rune
	out = tail("ab😀", 3)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "...\n", out)
}
