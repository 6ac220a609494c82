package harness

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(suite string, result *runner.RunResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults renders one row per hook and test execution, in completion order.
func (f *ConsoleResultFormatter) FormatResults(suite string, result *runner.RunResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("%s Results (%s)", suite, types.FormatDuration(result.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Passed", "Failed", "Skipped", "Status", "Error",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, outcome := range result.Outcomes {
		prefix := "├──"
		if i == len(result.Outcomes)-1 {
			prefix = "└──"
		}
		t.AppendRow(table.Row{
			getKindString(outcome.Type),
			fmt.Sprintf("%s %s", prefix, outcome.Title),
			types.FormatDuration(outcome.Duration),
			boolToInt(outcome.Status == types.TestStatusPass),
			boolToInt(outcome.Status == types.TestStatusFail),
			boolToInt(outcome.Status == types.TestStatusSkip),
			getResultString(outcome.Status),
			extractKeyErrorMessage(outcome.Err),
		})
	}

	// Update the table style setting based on result status
	switch result.Status {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Footer counts tests only; hooks are summarised below the table
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d tests", result.Tests.Total),
		types.FormatDuration(result.Duration),
		result.Tests.Passed,
		result.Tests.Failed,
		result.Tests.Skipped,
		getResultString(result.Status),
		"",
	})

	t.Render()

	_, err := fmt.Fprintln(f.out, result.String())
	return err
}
