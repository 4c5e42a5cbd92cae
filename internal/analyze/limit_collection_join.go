package analyze

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// LimitWithCollectionJoin flags the silent-data-loss combination of a
// row LIMIT and a fetch join: the limit applies to joined rows, not to
// root entities, so the last root's collection arrives truncated. A join
// is a fetch join when the select list reads columns from at least two
// distinct table aliases. Joins guaranteed to produce a single row per
// root — a locale-pinned translation join or an ON clause constrained by
// the joined table's id — are exempt.
type LimitWithCollectionJoin struct{}

func NewLimitWithCollectionJoin(cfg config.AnalysisConfig) *LimitWithCollectionJoin {
	return &LimitWithCollectionJoin{}
}

func (a *LimitWithCollectionJoin) Name() string { return "limit_with_collection_join" }

func (a *LimitWithCollectionJoin) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	var issues []Issue
	for _, record := range tr.Records() {
		if !record.IsSelect() {
			continue
		}
		record := record
		guardQuery(ctx, a.Name(), record.SQL, func() {
			facts := ctx.Facts.Facts(record.SQL)
			if !facts.HasLimit || !facts.HasJoins() || len(facts.SelectAliases) < 2 {
				return
			}

			ext := ctx.Facts.Extractor()
			singleRow := true
			var fetchTables []string
			for _, join := range facts.Joins {
				if ext.HasLocaleConstraint(join) || ext.HasUniqueJoinConstraint(join) {
					continue
				}
				singleRow = false
				fetchTables = append(fetchTables, join.Table)
			}
			if singleRow {
				return
			}

			issues = append(issues, NewIssue(
				TypeLimitWithCollectionJoin,
				"LIMIT combined with a collection fetch join truncates collections",
				SeverityCritical,
			).
				Description(fmt.Sprintf(
					"The query limits rows while fetch-joining %s. The database cuts off joined rows, not root entities, so the final root is hydrated with a partial collection and no error is raised.",
					strings.Join(fetchTables, ", "))).
				Suggest(Suggestion{
					Title:    "Paginate roots before fetching collections",
					Severity: SeverityCritical,
					Tags:     []string{"correctness", "pagination"},
					Text:     "Select the limited root ids first, then fetch the joined collections for exactly those ids in a second query.",
				}).
				Affected(record).
				Detail("fetch_join_tables", fetchTables).
				Detail("select_aliases", facts.SelectAliases).
				Build())
		})
	}
	return issues
}
