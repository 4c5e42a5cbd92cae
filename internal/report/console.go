package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/querylens/querylens/internal/analyze"
)

type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo writes to an arbitrary writer, used by tests
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

func (r *ConsoleReporter) Report(issues []analyze.Issue) error {
	if len(issues) == 0 {
		fmt.Fprintln(r.out, color.GreenString("✔ No query issues found! Great job."))
		return nil
	}

	for _, issue := range issues {
		var sevColor *color.Color
		switch issue.Severity {
		case analyze.SeverityCritical:
			sevColor = color.New(color.FgRed, color.Bold)
		case analyze.SeverityWarning:
			sevColor = color.New(color.FgYellow, color.Bold)
		default:
			sevColor = color.New(color.FgBlue, color.Bold)
		}

		fmt.Fprintf(r.out, "[%s] %s (%s)\n", sevColor.Sprint(issue.Severity), issue.Title, issue.Type)
		if issue.Description != "" {
			fmt.Fprintf(r.out, "\t%s\n", issue.Description)
		}

		if len(issue.AffectedQueries) > 0 {
			fmt.Fprintf(r.out, "\tQuery: %s\n", color.CyanString(truncate(issue.AffectedQueries[0].SQL, 120)))
			if len(issue.AffectedQueries) > 1 {
				fmt.Fprintf(r.out, "\t       and %d more\n", len(issue.AffectedQueries)-1)
			}
		}

		if len(issue.Backtrace) > 0 {
			fmt.Fprintf(r.out, "\tAt: %s\n", issue.Backtrace[0].String())
		}

		if issue.Suggestion != nil {
			fmt.Fprintf(r.out, "\tSuggestion: %s\n", issue.Suggestion.Title)
			if issue.Suggestion.Code != "" {
				fmt.Fprintf(r.out, "\t            %s\n", color.CyanString(truncate(issue.Suggestion.Code, 120)))
			}
		}

		if len(issue.Duplicates) > 0 {
			fmt.Fprintf(r.out, "\tSuppressed %d overlapping finding(s)\n", len(issue.Duplicates))
		}
		fmt.Fprintln(r.out)
	}

	critical := 0
	for _, issue := range issues {
		if issue.Severity == analyze.SeverityCritical {
			critical++
		}
	}
	fmt.Fprintf(r.out, "\n%s found %d issue(s), %d critical.\n", color.RedString("✘"), len(issues), critical)
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
