package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/querylens/querylens/internal/analyze"
)

type JSONReporter struct {
	out io.Writer
}

func NewJSONReporter() *JSONReporter {
	return &JSONReporter{out: os.Stdout}
}

func NewJSONReporterTo(out io.Writer) *JSONReporter {
	return &JSONReporter{out: out}
}

type jsonReport struct {
	IssueCount int             `json:"issue_count"`
	Issues     []analyze.Issue `json:"issues"`
}

func (r *JSONReporter) Report(issues []analyze.Issue) error {
	if issues == nil {
		issues = []analyze.Issue{}
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{IssueCount: len(issues), Issues: issues})
}
