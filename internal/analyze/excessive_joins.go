package analyze

import (
	"fmt"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// ExcessiveJoins flags queries whose join count signals over-eager
// loading: one query hydrating a whole object graph instead of the slice
// the caller needs.
type ExcessiveJoins struct {
	joinThreshold     int
	criticalThreshold int
}

func NewExcessiveJoins(cfg config.AnalysisConfig) *ExcessiveJoins {
	return &ExcessiveJoins{
		joinThreshold:     cfg.JoinThreshold,
		criticalThreshold: cfg.CriticalJoinThreshold,
	}
}

func (a *ExcessiveJoins) Name() string { return "excessive_joins" }

func (a *ExcessiveJoins) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	var issues []Issue
	for _, record := range tr.Records() {
		if !record.IsSelect() {
			continue
		}
		record := record
		guardQuery(ctx, a.Name(), record.SQL, func() {
			facts := ctx.Facts.Facts(record.SQL)
			joinCount := facts.JoinCount()
			if joinCount < a.joinThreshold {
				return
			}
			severity := SeverityWarning
			if joinCount > a.criticalThreshold {
				severity = SeverityCritical
			}
			issues = append(issues, NewIssue(
				TypeExcessiveJoins,
				fmt.Sprintf("Excessive JOINs (%d) suggest over-eager loading", joinCount),
				severity,
			).
				Description(fmt.Sprintf(
					"The query joins %d tables in one statement. Hydrating that many related tables at once usually loads far more data than the caller reads.",
					joinCount)).
				Suggest(Suggestion{
					Title:    "Split eager loading",
					Severity: severity,
					Tags:     []string{"performance", "eager-loading"},
					Text:     "Load the root entities first and fetch rarely-used relations lazily, or split the query so each statement joins only the tables its caller consumes.",
				}).
				Affected(record).
				Detail("join_count", joinCount).
				Detail("tables", facts.JoinTables()).
				Build())
		})
	}
	return issues
}
