package analyze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/metadata"
	"github.com/querylens/querylens/internal/sqlparse"
	"github.com/querylens/querylens/internal/trace"
)

// JoinOptimization inspects every joined query for four distinct
// problems: too many joins, LEFT JOINs that could be INNER because the
// FK is NOT NULL, joins whose alias is never referenced, and multiple
// collection-valued LEFT JOINs that multiply hydration work.
type JoinOptimization struct {
	maxRecommended int
	maxCritical    int
}

func NewJoinOptimization(cfg config.AnalysisConfig) *JoinOptimization {
	return &JoinOptimization{
		maxRecommended: cfg.MaxJoinsRecommended,
		maxCritical:    cfg.MaxJoinsCritical,
	}
}

func (a *JoinOptimization) Name() string { return "join_optimization" }

func (a *JoinOptimization) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	var issues []Issue
	for _, record := range tr.Records() {
		if !record.IsSelect() {
			continue
		}
		record := record
		guardQuery(ctx, a.Name(), record.SQL, func() {
			issues = append(issues, a.analyzeQuery(ctx, record)...)
		})
	}
	return issues
}

func (a *JoinOptimization) analyzeQuery(ctx *Context, record trace.QueryRecord) []Issue {
	facts := ctx.Facts.Facts(record.SQL)
	if !facts.HasJoins() {
		return nil
	}

	var issues []Issue
	// the same table must not be flagged twice for the same reason
	// within one query
	seen := make(map[string]bool)
	emit := func(key string, issue Issue) {
		if seen[key] {
			return
		}
		seen[key] = true
		issues = append(issues, issue)
	}

	if count := facts.JoinCount(); count > a.maxRecommended {
		severity := SeverityWarning
		if count > a.maxCritical {
			severity = SeverityCritical
		}
		table := ""
		if facts.MainTable != nil {
			table = facts.MainTable.Table
		}
		emit(TypeTooManyJoins+"|"+table, NewIssue(
			TypeTooManyJoins,
			fmt.Sprintf("Query joins %d tables (recommended maximum %d)", count, a.maxRecommended),
			severity,
		).
			Description("Every additional join multiplies the optimizer's plan search space and the intermediate row width. Consider splitting into several targeted queries.").
			Suggest(Suggestion{
				Title:    "Reduce join count",
				Severity: severity,
				Tags:     []string{"performance", "joins"},
				Text:     "Split the statement along its access paths, or replace branches that only feed WHERE conditions with EXISTS subqueries.",
			}).
			Affected(record).
			Detail("join_count", count).
			Detail("tables", facts.JoinTables()).
			Build())
	}

	var collectionJoins []sqlparse.Join
	for _, join := range facts.Joins {
		if join.Type == sqlparse.JoinLeft {
			isCollection, known := a.classifyCollectionJoin(ctx, facts, join)
			if known && isCollection {
				collectionJoins = append(collectionJoins, join)
			}
			if known && !isCollection {
				if assoc, ok := a.bestAssociation(ctx, facts, join); ok && !assoc.Nullable {
					emit(TypeSuboptimalLeftJoin+"|"+join.Table, NewIssue(
						TypeSuboptimalLeftJoin,
						fmt.Sprintf("Suboptimal LEFT JOIN on %s: foreign key is NOT NULL", join.Table),
						SeverityCritical,
					).
						Description(fmt.Sprintf(
							"The join columns (%s) are NOT NULL, so a matching %s row always exists. A LEFT JOIN forces the optimizer to preserve non-matching rows that cannot occur; INNER JOIN gives it strictly more freedom.",
							strings.Join(assoc.Columns, ", "), join.Table)).
						Suggest(Suggestion{
							Title:    "Use INNER JOIN",
							Severity: SeverityCritical,
							Tags:     []string{"performance", "joins"},
							Code:     fmt.Sprintf("INNER JOIN %s %s ON %s", join.Table, join.Alias, join.On),
						}).
						Affected(record).
						Detail("table", join.Table).
						Detail("join_columns", assoc.Columns).
						Build())
				}
			}
		}

		if join.Alias != "" && !ctx.Facts.Extractor().AliasUsed(record.SQL, join.Alias, join.Raw) {
			emit(TypeUnusedJoin+"|"+join.Table, NewIssue(
				TypeUnusedJoin,
				fmt.Sprintf("JOIN on %s (alias %s) is never used", join.Table, join.Alias),
				SeverityWarning,
			).
				Description("The joined table's alias is not referenced in the select list, WHERE, GROUP BY, ORDER BY or any other join. The join only costs work or, worse, duplicates rows.").
				Suggest(Suggestion{
					Title:    "Remove unused join",
					Severity: SeverityWarning,
					Tags:     []string{"performance", "joins"},
				}).
				Affected(record).
				Detail("table", join.Table).
				Detail("alias", join.Alias).
				Build())
		}
	}

	if k := len(collectionJoins); k >= 2 {
		tables := make([]string, 0, k)
		for _, j := range collectionJoins {
			tables = append(tables, j.Table)
		}
		sort.Strings(tables)
		severity := SeverityWarning
		if k >= 3 {
			severity = SeverityCritical
		}
		emit(TypeMultiStepHydration+"|"+strings.Join(tables, ","), NewIssue(
			TypeMultiStepHydration,
			fmt.Sprintf("Joining %d collections produces O(n^%d) hydration", k, k),
			severity,
		).
			Description(fmt.Sprintf(
				"LEFT JOINs on the collections %s multiply the result set: every combination of child rows is returned and deduplicated in memory. Fetch each collection in its own query instead.",
				strings.Join(tables, ", "))).
			Suggest(Suggestion{
				Title:    "Hydrate collections in separate steps",
				Severity: severity,
				Tags:     []string{"performance", "hydration"},
				Text:     "Query the root rows first, then load each collection with one IN (...) query over the collected root ids.",
			}).
			Affected(record).
			Detail("collection_tables", tables).
			Detail("collection_join_count", k).
			Build())
	}

	return issues
}

// classifyCollectionJoin decides whether a LEFT JOIN targets a collection
// (one-to-many-like) association. The primary signal is FK direction in
// the ON clause: if the main table's side is its primary key and the
// joined side is not, child rows repeat per parent and the join is a
// collection. Conflicting or absent votes fall back to the association
// metadata; with no metadata at all the answer is unknown.
func (a *JoinOptimization) classifyCollectionJoin(ctx *Context, facts *sqlparse.Facts, join sqlparse.Join) (isCollection, known bool) {
	collectionVotes, scalarVotes := 0, 0
	if facts.MainTable != nil {
		mainIDs, _ := ctx.Metadata.IdentifierColumns(facts.MainTable.Table)
		joinIDs, _ := ctx.Metadata.IdentifierColumns(join.Table)
		mainQualifier := facts.MainTable.Alias
		if mainQualifier == "" {
			mainQualifier = facts.MainTable.Table
		}
		for _, cond := range ctx.Facts.Extractor().OnConditions(join.On) {
			mainCol, joinCol, ok := resolveSides(cond, mainQualifier, join.Qualifier())
			if !ok {
				continue
			}
			mainIsPK := containsFold(mainIDs, mainCol)
			joinIsPK := containsFold(joinIDs, joinCol)
			switch {
			case mainIsPK && !joinIsPK:
				collectionVotes++
			case joinIsPK && !mainIsPK:
				scalarVotes++
			}
		}
	}
	if collectionVotes > scalarVotes {
		return true, true
	}
	if scalarVotes > collectionVotes {
		return false, true
	}
	if !ctx.Metadata.HasMetadata() {
		return false, false
	}
	return ctx.Metadata.CollectionTargets(join.Table), true
}

// bestAssociation matches the ON-clause columns against the main table's
// associations targeting the joined table. Every join column of a
// candidate must appear in the ON clause; among candidates the most
// complete match wins, which disambiguates self-referencing tables and
// multiple FKs pointing at the same table.
func (a *JoinOptimization) bestAssociation(ctx *Context, facts *sqlparse.Facts, join sqlparse.Join) (metadata.Association, bool) {
	if facts.MainTable == nil {
		return metadata.Association{}, false
	}
	onCols := make(map[string]bool)
	for _, cond := range ctx.Facts.Extractor().OnConditions(join.On) {
		for _, ref := range []string{cond.Left, cond.Right} {
			_, col := sqlparse.SplitQualified(ref)
			onCols[strings.ToLower(col)] = true
		}
	}
	if len(onCols) == 0 {
		return metadata.Association{}, false
	}

	var best metadata.Association
	bestScore := 0
	for _, assoc := range ctx.Metadata.AssociationsFor(facts.MainTable.Table) {
		if !strings.EqualFold(assoc.TargetTable, join.Table) || assoc.Cardinality.IsCollection() {
			continue
		}
		matched := 0
		for _, col := range assoc.Columns {
			if !onCols[strings.ToLower(col)] {
				matched = -1
				break
			}
			matched++
		}
		if matched > bestScore {
			bestScore = matched
			best = assoc
		}
	}
	return best, bestScore > 0
}

// resolveSides maps an ON condition's operands onto the main and joined
// tables using their qualifiers. Unqualified operands are ambiguous and
// yield no vote.
func resolveSides(cond sqlparse.Condition, mainQualifier, joinQualifier string) (mainCol, joinCol string, ok bool) {
	lq, lc := sqlparse.SplitQualified(cond.Left)
	rq, rc := sqlparse.SplitQualified(cond.Right)
	switch {
	case strings.EqualFold(lq, mainQualifier) && strings.EqualFold(rq, joinQualifier):
		return lc, rc, true
	case strings.EqualFold(lq, joinQualifier) && strings.EqualFold(rq, mainQualifier):
		return rc, lc, true
	}
	return "", "", false
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
