package analyze

import (
	"fmt"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

// sequentialGapLimit and sequentialRatio define "sequential" for write
// bursts: at least 70% of the gaps between consecutive writes to the
// same table must be 10 capture positions or fewer. Heuristic constants,
// tunable rather than exact.
const (
	sequentialGapLimit = 10
	sequentialRatio    = 0.7
)

// BatchClear detects long sequential write runs against one table with
// nothing releasing tracked entities in between. An identity map that
// keeps every written entity grows linearly with the batch and is the
// classic slow memory leak of batch jobs.
type BatchClear struct {
	batchSizeThreshold int
}

func NewBatchClear(cfg config.AnalysisConfig) *BatchClear {
	return &BatchClear{batchSizeThreshold: cfg.BatchSizeThreshold}
}

func (a *BatchClear) Name() string { return "batch_clear" }

func (a *BatchClear) Analyze(ctx *Context, tr *trace.QueryTrace) []Issue {
	records := tr.Records()
	ext := ctx.Facts.Extractor()

	byTable := make(map[string][]int)
	var tableOrder []string
	for i, r := range records {
		if !r.IsWrite() {
			continue
		}
		table := ext.WriteTarget(r.SQL)
		if table == "" {
			continue
		}
		if _, seen := byTable[table]; !seen {
			tableOrder = append(tableOrder, table)
		}
		byTable[table] = append(byTable[table], i)
	}

	var issues []Issue
	for _, table := range tableOrder {
		indexes := byTable[table]
		if len(indexes) < a.batchSizeThreshold || !isSequential(indexes) {
			continue
		}

		samples := make([]trace.QueryRecord, 0, maxSampleQueries)
		for _, idx := range indexes {
			if len(samples) >= maxSampleQueries {
				break
			}
			samples = append(samples, records[idx])
		}

		issues = append(issues, NewIssue(
			TypeMissingBatchClear,
			fmt.Sprintf("Batch of %d writes to %s without clearing tracked entities", len(indexes), table),
			SeverityWarning,
		).
			Description("A long sequential write run keeps every written entity tracked in memory. For large batches this grows without bound and slows each flush as the change set widens.").
			Suggest(Suggestion{
				Title:    "Clear the identity map periodically",
				Severity: SeverityWarning,
				Tags:     []string{"memory", "batching"},
				Text:     "Detach processed entities every N writes (flush, then clear) so memory stays flat across the batch.",
			}).
			Affected(samples...).
			Detail("table", table).
			Detail("write_count", len(indexes)).
			Build())
	}
	return issues
}

// isSequential reports whether the index gaps mark one contiguous burst
// rather than writes scattered across the request.
func isSequential(indexes []int) bool {
	if len(indexes) < 2 {
		return false
	}
	near := 0
	for i := 1; i < len(indexes); i++ {
		if indexes[i]-indexes[i-1] <= sequentialGapLimit {
			near++
		}
	}
	return float64(near) >= sequentialRatio*float64(len(indexes)-1)
}
