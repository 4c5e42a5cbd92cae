package analyze

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// likeCriticalTimeMs is the execution time at which a leading-wildcard
// LIKE stops being a latent problem and becomes an active one.
const likeCriticalTimeMs = 100.0

// IneffectiveLike flags LIKE patterns with a leading wildcard, which
// defeat index use regardless of how fast the query currently runs.
// Patterns can appear as literals in the SQL or as bound parameters.
type IneffectiveLike struct {
	minExecutionTimeMs float64
}

func NewIneffectiveLike(cfg config.AnalysisConfig) *IneffectiveLike {
	return &IneffectiveLike{minExecutionTimeMs: cfg.LikeMinExecutionTimeMs}
}

func (a *IneffectiveLike) Name() string { return "ineffective_like" }

func (a *IneffectiveLike) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	var issues []Issue
	// first occurrence of a pattern wins; repeats across the trace add
	// nothing actionable
	seen := make(map[string]bool)

	for _, record := range tr.Records() {
		if !record.IsSelect() || record.ExecutionTimeMs < a.minExecutionTimeMs {
			continue
		}
		record := record
		guardQuery(ctx, a.Name(), record.SQL, func() {
			patterns := ctx.Facts.Facts(record.SQL).LikeLeadingWildcards
			patterns = append(patterns, boundWildcardParams(record)...)
			for _, pattern := range patterns {
				if seen[pattern] {
					continue
				}
				seen[pattern] = true

				// the pattern itself prevents index use, so never
				// below WARNING even when currently fast
				severity := SeverityWarning
				if record.ExecutionTimeMs >= likeCriticalTimeMs {
					severity = SeverityCritical
				}
				issues = append(issues, NewIssue(
					TypeIneffectiveLike,
					fmt.Sprintf("Leading-wildcard LIKE '%s' cannot use an index", pattern),
					severity,
				).
					Description(fmt.Sprintf(
						"LIKE patterns starting with %% force a full scan: the index is ordered by prefix and a leading wildcard discards that order. This query took %.1fms.",
						record.ExecutionTimeMs)).
					Suggest(Suggestion{
						Title:    "Replace leading-wildcard LIKE",
						Severity: severity,
						Tags:     []string{"performance", "index"},
						Text:     "Use a full-text index for substring search, or restructure the pattern to anchor on a prefix (e.g. store a reversed column for suffix lookups).",
					}).
					Affected(record).
					Detail("pattern", pattern).
					Detail("execution_time_ms", record.ExecutionTimeMs).
					Build())
			}
		})
	}
	return issues
}

// boundWildcardParams returns string parameters starting with % that are
// bound to a LIKE placeholder.
func boundWildcardParams(record trace.QueryRecord) []string {
	if !strings.Contains(strings.ToUpper(record.SQL), "LIKE") {
		return nil
	}
	var patterns []string
	for _, p := range record.Params {
		if s, ok := p.(string); ok && strings.HasPrefix(s, "%") {
			patterns = append(patterns, s)
		}
	}
	return patterns
}
