package analyze

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// FindAll flags unbounded SELECTs: no WHERE condition, no LIMIT, and a
// row count large enough that pagination would matter. Aggregate-only
// and EXISTS queries are exempt; they return one row no matter how many
// they scan.
type FindAll struct {
	rowThreshold int
}

func NewFindAll(cfg config.AnalysisConfig) *FindAll {
	return &FindAll{rowThreshold: cfg.FindAllRowThreshold}
}

func (a *FindAll) Name() string { return "find_all" }

func (a *FindAll) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	var issues []Issue
	for _, record := range tr.Records() {
		if !record.IsSelect() || !record.HasRowCount() {
			continue
		}
		record := record

		unbounded := false
		ok := guardQuery(ctx, a.Name(), record.SQL, func() {
			facts := ctx.Facts.Facts(record.SQL)
			ext := ctx.Facts.Extractor()
			unbounded = len(facts.WhereColumns) == 0 &&
				!facts.HasLimit &&
				!ext.HasAggregateSelect(record.SQL) &&
				!ext.HasExists(record.SQL)
		})
		if !ok {
			// structural parsing failed; fall back to a naive substring
			// check instead of losing the whole analysis
			upper := strings.ToUpper(record.SQL)
			unbounded = !strings.Contains(upper, " WHERE ") && !strings.Contains(upper, " LIMIT ")
		}

		if !unbounded || record.Rows() <= a.rowThreshold {
			continue
		}

		suggestion := Suggestion{
			Title:    "Paginate the result set",
			Severity: SeverityWarning,
			Tags:     []string{"performance", "pagination"},
			Text: fmt.Sprintf(
				"The query returned %d rows with no WHERE or LIMIT. Add a LIMIT/OFFSET (or keyset pagination) so a growing table cannot degrade this call path.",
				record.Rows()),
		}
		issues = append(issues, NewIssue(
			TypeFindAllWithoutLimit,
			fmt.Sprintf("Unbounded SELECT returned %d rows", record.Rows()),
			suggestion.Severity,
		).
			Description("Fetching an entire table is rarely intended outside of exports. Memory use and transfer time grow linearly with the table.").
			Suggest(suggestion).
			Affected(record).
			Detail("row_count", record.Rows()).
			Detail("row_threshold", a.rowThreshold).
			Build())
	}
	return issues
}
