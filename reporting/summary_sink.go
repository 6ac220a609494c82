// Package reporting writes per-run summaries of suite executions to disk.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

const summaryFileName = "summary.log"

// SummarySink collects the test events of a run and writes a text summary
// once the run completes. Runs are expected to complete one at a time.
type SummarySink struct {
	baseDir string
	suite   string

	mu     sync.Mutex
	events []types.TestEvent
}

// NewSummarySink creates a sink writing under baseDir
func NewSummarySink(baseDir, suite string) *SummarySink {
	return &SummarySink{
		baseDir: baseDir,
		suite:   suite,
	}
}

// Consume records a test event. It matches runner.Handler.
func (s *SummarySink) Consume(ev types.TestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Complete writes <baseDir>/testrun-<runID>/summary.log for result, resets the
// collected events and returns the path written
func (s *SummarySink) Complete(result *runner.RunResult) (string, error) {
	s.mu.Lock()
	events := s.events
	s.events = nil
	s.mu.Unlock()

	outputDir := filepath.Join(s.baseDir, "testrun-"+result.RunID)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	summaryFile := filepath.Join(outputDir, summaryFileName)
	if err := os.WriteFile(summaryFile, []byte(s.Format(result, events)), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return summaryFile, nil
}

// Format renders the summary of a run
func (s *SummarySink) Format(result *runner.RunResult, events []types.TestEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SUITE: %s\n", s.suite)
	fmt.Fprintf(&b, "RUN ID: %s\n", result.RunID)
	fmt.Fprintf(&b, "TIME: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "STATUS: %s\n\n", strings.ToUpper(string(result.Status)))

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Test", "Duration", "Status", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Test", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 100, WidthMaxEnforcer: text.WrapSoft},
	})
	for i, ev := range events {
		errMsg := ""
		if ev.Result.Err != nil {
			errMsg = firstLine(ev.Result.Err.Error())
		}
		t.AppendRow(table.Row{
			i + 1,
			ev.Result.Title,
			types.FormatDuration(ev.Result.Duration),
			strings.ToUpper(string(ev.Result.Status)),
			errMsg,
		})
	}
	t.AppendFooter(table.Row{"", "TOTAL", types.FormatDuration(result.Duration), strings.ToUpper(string(result.Status)), ""})
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(result.String())
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

