package trace

// QueryTrace is an ordered, immutable sequence of captured queries.
// Insertion order is capture order; index-proximity heuristics in the
// analyzers depend on it, so derived views always return new traces and
// never reorder or mutate the source.
type QueryTrace struct {
	records []QueryRecord
}

// New builds a trace from captured records. The slice is copied so later
// changes by the caller cannot reach into the trace.
func New(records []QueryRecord) *QueryTrace {
	copied := make([]QueryRecord, len(records))
	copy(copied, records)
	return &QueryTrace{records: copied}
}

// Len returns the number of captured queries.
func (t *QueryTrace) Len() int { return len(t.records) }

// At returns the record at capture index i.
func (t *QueryTrace) At(i int) QueryRecord { return t.records[i] }

// Records returns a copy of the underlying sequence in capture order.
func (t *QueryTrace) Records() []QueryRecord {
	copied := make([]QueryRecord, len(t.records))
	copy(copied, t.records)
	return copied
}

// Filter returns a new trace holding the records matching pred, in
// capture order.
func (t *QueryTrace) Filter(pred func(QueryRecord) bool) *QueryTrace {
	var kept []QueryRecord
	for _, r := range t.records {
		if pred(r) {
			kept = append(kept, r)
		}
	}
	return &QueryTrace{records: kept}
}

// ByKind returns a new trace holding only records of the given kind.
func (t *QueryTrace) ByKind(kind StatementKind) *QueryTrace {
	return t.Filter(func(r QueryRecord) bool { return r.Kind() == kind })
}

// Selects returns the SELECT records as a new trace.
func (t *QueryTrace) Selects() *QueryTrace { return t.ByKind(KindSelect) }

// Writes returns the INSERT/UPDATE/DELETE records as a new trace.
func (t *QueryTrace) Writes() *QueryTrace {
	return t.Filter(QueryRecord.IsWrite)
}

// SlowerThan returns records whose execution time exceeds ms.
func (t *QueryTrace) SlowerThan(ms float64) *QueryTrace {
	return t.Filter(func(r QueryRecord) bool { return r.ExecutionTimeMs > ms })
}

// IndexesWhere returns the capture indexes of records matching pred.
// Unlike Filter it preserves the original positions, which the
// sequential-proximity heuristics need.
func (t *QueryTrace) IndexesWhere(pred func(QueryRecord) bool) []int {
	var idx []int
	for i, r := range t.records {
		if pred(r) {
			idx = append(idx, i)
		}
	}
	return idx
}

// GroupBySQL groups capture indexes by exact SQL text, preserving the first
// occurrence order of each distinct statement.
func (t *QueryTrace) GroupBySQL() ([]string, map[string][]int) {
	var order []string
	groups := make(map[string][]int)
	for i, r := range t.records {
		if _, seen := groups[r.SQL]; !seen {
			order = append(order, r.SQL)
		}
		groups[r.SQL] = append(groups[r.SQL], i)
	}
	return order, groups
}
