package analyze

import (
	"fmt"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// RepeatedQuery groups SELECTs by statement shape (literals and bound
// values stripped) and classifies heavy repetition. The most specific
// diagnosis wins: a single-column lookup repeated in a tight sequence is
// an N+1; repetition pinned to one code location is lazy loading in a
// loop; anything else is just a frequent query worth caching.
type RepeatedQuery struct {
	threshold int
}

func NewRepeatedQuery(cfg config.AnalysisConfig) *RepeatedQuery {
	return &RepeatedQuery{threshold: cfg.FrequentQueryThreshold}
}

func (a *RepeatedQuery) Name() string { return "repeated_query" }

func (a *RepeatedQuery) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	records := tr.Records()
	ext := ctx.Facts.Extractor()

	byShape := make(map[string][]int)
	var shapeOrder []string
	for i, r := range records {
		if !r.IsSelect() {
			continue
		}
		shape := ext.Fingerprint(r.SQL)
		if _, seen := byShape[shape]; !seen {
			shapeOrder = append(shapeOrder, shape)
		}
		byShape[shape] = append(byShape[shape], i)
	}

	var issues []Issue
	for _, shape := range shapeOrder {
		indexes := byShape[shape]
		if len(indexes) < a.threshold {
			continue
		}
		first := records[indexes[0]]

		var whereCols []string
		guardQuery(ctx, a.Name(), first.SQL, func() {
			whereCols = ctx.Facts.Facts(first.SQL).WhereColumns
		})

		samples := make([]trace.QueryRecord, 0, maxSampleQueries)
		for _, idx := range indexes {
			if len(samples) >= maxSampleQueries {
				break
			}
			samples = append(samples, records[idx])
		}

		switch {
		case len(whereCols) == 1 && isSequential(indexes):
			issues = append(issues, NewIssue(
				TypeNPlusOne,
				fmt.Sprintf("N+1 query pattern: %d single-row lookups on %s", len(indexes), whereCols[0]),
				SeverityCritical,
			).
				Description(fmt.Sprintf(
					"The same lookup shape ran %d times back to back, varying only in the bound value. One parent query followed by one child query per row is the N+1 pattern; a join or an IN (...) batch fetch replaces all of them with one round trip.",
					len(indexes))).
				Suggest(Suggestion{
					Title:    "Batch the child fetch",
					Severity: SeverityCritical,
					Tags:     []string{"performance", "n-plus-one"},
					Text:     "Collect the parent ids and fetch all children with a single WHERE ... IN (...) query, or add a fetch join to the parent query.",
				}).
				Affected(samples...).
				Detail("occurrences", len(indexes)).
				Detail("shape", shape).
				Build())

		case sharedTopFrame(records, indexes):
			frame, _ := first.TopFrame()
			issues = append(issues, NewIssue(
				TypeLazyLoadingInLoop,
				fmt.Sprintf("Lazy loading triggered %d times from %s", len(indexes), frame),
				SeverityWarning,
			).
				Description("Every repetition originates from the same code location, which means a loop is touching a lazily-loaded relation on each iteration.").
				Suggest(Suggestion{
					Title:    "Load eagerly before the loop",
					Severity: SeverityWarning,
					Tags:     []string{"performance", "lazy-loading"},
					Text:     "Fetch the relation together with the parent rows before iterating, so the loop works on data already in memory.",
				}).
				Affected(samples...).
				Detail("occurrences", len(indexes)).
				Detail("frame", frame.String()).
				Detail("shape", shape).
				Build())

		default:
			issues = append(issues, NewIssue(
				TypeFrequentQuery,
				fmt.Sprintf("Query shape executed %d times in one trace", len(indexes)),
				SeverityWarning,
			).
				Description("The same statement shape runs unusually often within a single request. Even when each execution is fast, the repetition itself is paid on every call path that triggers it.").
				Suggest(Suggestion{
					Title:    "Cache or consolidate",
					Severity: SeverityWarning,
					Tags:     []string{"performance", "caching"},
					Text:     "Memoize the result for the duration of the request, or restructure the callers to share one fetch.",
				}).
				Affected(samples...).
				Detail("occurrences", len(indexes)).
				Detail("shape", shape).
				Build())
		}
	}
	return issues
}

// sharedTopFrame reports whether every indexed record carries the same
// innermost backtrace frame.
func sharedTopFrame(records []trace.QueryRecord, indexes []int) bool {
	first, ok := records[indexes[0]].TopFrame()
	if !ok {
		return false
	}
	for _, idx := range indexes[1:] {
		frame, ok := records[idx].TopFrame()
		if !ok || frame != first {
			return false
		}
	}
	return true
}
