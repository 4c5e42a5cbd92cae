package analyze

import (
	"fmt"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// maxSampleQueries caps how many affected queries an aggregated issue
// carries; beyond that the samples stop adding information.
const maxSampleQueries = 20

// FlushInLoop detects the write-then-flush-per-iteration pattern: many
// small groups of INSERT/UPDATE/DELETE statements separated by flush
// boundaries. A boundary is a write immediately followed by a SELECT, or
// a change of the innermost backtrace frame between consecutive records,
// both of which signal a new loop iteration. The numbers are heuristic
// and tunable, not protocol.
type FlushInLoop struct {
	flushCountThreshold int
}

func NewFlushInLoop(cfg config.AnalysisConfig) *FlushInLoop {
	return &FlushInLoop{flushCountThreshold: cfg.FlushCountThreshold}
}

func (a *FlushInLoop) Name() string { return "flush_in_loop" }

func (a *FlushInLoop) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	records := tr.Records()

	var groups [][]int
	var current []int
	closeGroup := func() {
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
	}

	for i, r := range records {
		if r.IsWrite() {
			current = append(current, i)
		}
		if i+1 >= len(records) {
			continue
		}
		next := records[i+1]
		boundary := (r.IsInsert() || r.IsUpdate()) && next.IsSelect()
		if !boundary {
			if f1, ok1 := r.TopFrame(); ok1 {
				if f2, ok2 := next.TopFrame(); ok2 && f1 != f2 {
					boundary = true
				}
			}
		}
		if boundary {
			closeGroup()
		}
	}
	closeGroup()

	if len(groups) < a.flushCountThreshold {
		return nil
	}
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	avg := float64(total) / float64(len(groups))
	if avg <= 0 || avg > 10 {
		// large groups are a batch import, not a per-iteration flush
		return nil
	}

	var samples []trace.QueryRecord
	for _, g := range groups {
		for _, idx := range g {
			if len(samples) >= maxSampleQueries {
				break
			}
			samples = append(samples, records[idx])
		}
	}

	issue := NewIssue(
		TypeFlushInLoop,
		fmt.Sprintf("Flush inside a loop: %d write groups of ~%.1f statements", len(groups), avg),
		SeverityWarning,
	).
		Description("Writes are flushed in many small batches, one per loop iteration. Each flush pays a full round trip plus change-tracking overhead; a single flush after the loop does the same work once.").
		Suggest(Suggestion{
			Title:    "Flush once after the loop",
			Severity: SeverityWarning,
			Tags:     []string{"performance", "batching"},
			Text:     "Accumulate the changes inside the loop and flush a single batch afterwards, or flush in fixed-size chunks (e.g. every 100 entities).",
		}).
		Affected(samples...).
		Detail("group_count", len(groups)).
		Detail("total_writes", total).
		Detail("avg_writes_per_group", avg).
		Build()
	return []Issue{issue}
}
