package trace

import (
	"fmt"
	"strings"
)

// StatementKind classifies a query by its leading keyword.
type StatementKind string

const (
	KindSelect StatementKind = "SELECT"
	KindInsert StatementKind = "INSERT"
	KindUpdate StatementKind = "UPDATE"
	KindDelete StatementKind = "DELETE"
	KindOther  StatementKind = "OTHER"
)

// Frame is a single backtrace entry captured with a query.
type Frame struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

func (f Frame) String() string {
	if f.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", f.File, f.Line)
}

// QueryRecord is one captured query. Records are created once by the
// capture layer and never mutated afterwards.
type QueryRecord struct {
	SQL             string  `json:"sql"`
	ExecutionTimeMs float64 `json:"time_ms"`
	Params          []any   `json:"params,omitempty"`
	RowCount        *int    `json:"row_count,omitempty"`
	Backtrace       []Frame `json:"backtrace,omitempty"`
}

// Kind derives the statement classification from the SQL text. It is
// computed on demand so it can never drift from the SQL itself.
func (r QueryRecord) Kind() StatementKind {
	sql := strings.TrimSpace(r.SQL)
	for strings.HasPrefix(sql, "(") || strings.HasPrefix(sql, "/*") {
		if strings.HasPrefix(sql, "/*") {
			end := strings.Index(sql, "*/")
			if end < 0 {
				return KindOther
			}
			sql = strings.TrimSpace(sql[end+2:])
			continue
		}
		sql = strings.TrimSpace(sql[1:])
	}
	if len(sql) < 6 {
		return KindOther
	}
	switch strings.ToUpper(sql[:6]) {
	case "SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	}
	return KindOther
}

func (r QueryRecord) IsSelect() bool { return r.Kind() == KindSelect }
func (r QueryRecord) IsInsert() bool { return r.Kind() == KindInsert }
func (r QueryRecord) IsUpdate() bool { return r.Kind() == KindUpdate }
func (r QueryRecord) IsDelete() bool { return r.Kind() == KindDelete }

// IsWrite reports whether the record is an INSERT, UPDATE or DELETE.
func (r QueryRecord) IsWrite() bool {
	switch r.Kind() {
	case KindInsert, KindUpdate, KindDelete:
		return true
	}
	return false
}

// TopFrame returns the innermost backtrace frame, if any.
func (r QueryRecord) TopFrame() (Frame, bool) {
	if len(r.Backtrace) == 0 {
		return Frame{}, false
	}
	return r.Backtrace[0], true
}

// HasRowCount reports whether a row count was captured for this record.
func (r QueryRecord) HasRowCount() bool { return r.RowCount != nil }

// Rows returns the captured row count, or 0 when none was recorded.
func (r QueryRecord) Rows() int {
	if r.RowCount == nil {
		return 0
	}
	return *r.RowCount
}
