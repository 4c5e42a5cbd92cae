package analyze

import (
	"hash/fnv"
	"strconv"
)

// rootCauses maps issue types that can describe the same underlying
// problem to a shared cause key, with a priority ranking the most
// specific, most actionable diagnosis highest. Types outside this table
// never merge with anything.
var rootCauses = map[string]struct {
	cause    string
	priority int
}{
	TypeNPlusOne:          {cause: "repeated_query", priority: 3},
	TypeLazyLoadingInLoop: {cause: "repeated_query", priority: 2},
	TypeFrequentQuery:     {cause: "repeated_query", priority: 1},

	TypeExcessiveJoins: {cause: "join_volume", priority: 2},
	TypeTooManyJoins:   {cause: "join_volume", priority: 1},
}

// Deduplicator collapses issues that describe the same root cause over
// the same affected queries into the highest-priority representative.
// Suppressed issues are attached to the winner as Duplicates, never
// silently dropped: the report stays explainable.
type Deduplicator struct{}

func NewDeduplicator() *Deduplicator { return &Deduplicator{} }

// Deduplicate returns the surviving issues in their original order, with
// merged duplicates recorded on each winner.
func (d *Deduplicator) Deduplicate(issues []Issue) []Issue {
	type bucket struct {
		winner int // index into issues
		losers []int
	}
	buckets := make(map[string]*bucket)

	better := func(a, b Issue) bool {
		pa, pb := rootCauses[a.Type].priority, rootCauses[b.Type].priority
		if pa != pb {
			return pa > pb
		}
		return a.Severity > b.Severity
	}

	for i, issue := range issues {
		rc, ok := rootCauses[issue.Type]
		if !ok || len(issue.AffectedQueries) == 0 {
			continue
		}
		key := rc.cause + "|" + affectedKey(issue)
		b, exists := buckets[key]
		if !exists {
			buckets[key] = &bucket{winner: i}
			continue
		}
		if better(issue, issues[b.winner]) {
			b.losers = append(b.losers, b.winner)
			b.winner = i
		} else {
			b.losers = append(b.losers, i)
		}
	}

	suppressed := make(map[int]bool)
	duplicatesOf := make(map[int][]int)
	for _, b := range buckets {
		for _, loser := range b.losers {
			suppressed[loser] = true
			duplicatesOf[b.winner] = append(duplicatesOf[b.winner], loser)
		}
	}

	result := make([]Issue, 0, len(issues))
	for i, issue := range issues {
		if suppressed[i] {
			continue
		}
		for _, loser := range duplicatesOf[i] {
			dup := issues[loser]
			issue.Duplicates = append(issue.Duplicates, &dup)
		}
		result = append(result, issue)
	}
	return result
}

// affectedKey derives a structural equality key from the issue's
// affected query set: the record contents in order, not the issue text.
func affectedKey(issue Issue) string {
	h := fnv.New64a()
	for _, q := range issue.AffectedQueries {
		h.Write([]byte(q.SQL))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatFloat(q.ExecutionTimeMs, 'g', -1, 64)))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
