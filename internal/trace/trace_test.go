package trace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		sql  string
		want StatementKind
	}{
		{"SELECT * FROM users", KindSelect},
		{"  select id from users", KindSelect},
		{"INSERT INTO users (name) VALUES ('x')", KindInsert},
		{"update users set name = 'x'", KindUpdate},
		{"DELETE FROM users WHERE id = 1", KindDelete},
		{"/* hint */ SELECT * FROM users", KindSelect},
		{"(SELECT 1) UNION (SELECT 2)", KindSelect},
		{"SHOW TABLES", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QueryRecord{SQL: tt.sql}.Kind(), tt.sql)
	}
}

func TestIsWrite(t *testing.T) {
	assert.True(t, QueryRecord{SQL: "INSERT INTO t VALUES (1)"}.IsWrite())
	assert.True(t, QueryRecord{SQL: "UPDATE t SET x = 1"}.IsWrite())
	assert.True(t, QueryRecord{SQL: "DELETE FROM t"}.IsWrite())
	assert.False(t, QueryRecord{SQL: "SELECT * FROM t"}.IsWrite())
}

func TestNewCopiesRecords(t *testing.T) {
	records := []QueryRecord{
		{SQL: "SELECT 1"},
		{SQL: "SELECT 2"},
	}
	tr := New(records)

	records[0].SQL = "mutated"
	assert.Equal(t, "SELECT 1", tr.At(0).SQL)

	out := tr.Records()
	out[1].SQL = "mutated too"
	assert.Equal(t, "SELECT 2", tr.At(1).SQL)
}

func TestFilterPreservesOrder(t *testing.T) {
	tr := New([]QueryRecord{
		{SQL: "SELECT 1", ExecutionTimeMs: 1},
		{SQL: "INSERT INTO t VALUES (1)", ExecutionTimeMs: 50},
		{SQL: "SELECT 2", ExecutionTimeMs: 120},
	})

	selects := tr.Selects()
	require.Equal(t, 2, selects.Len())
	assert.Equal(t, "SELECT 1", selects.At(0).SQL)
	assert.Equal(t, "SELECT 2", selects.At(1).SQL)

	writes := tr.Writes()
	require.Equal(t, 1, writes.Len())

	slow := tr.SlowerThan(100)
	require.Equal(t, 1, slow.Len())
	assert.Equal(t, "SELECT 2", slow.At(0).SQL)

	// the source trace is untouched
	assert.Equal(t, 3, tr.Len())
}

func TestIndexesWhere(t *testing.T) {
	tr := New([]QueryRecord{
		{SQL: "SELECT 1"},
		{SQL: "INSERT INTO t VALUES (1)"},
		{SQL: "SELECT 2"},
		{SQL: "INSERT INTO t VALUES (2)"},
	})

	idx := tr.IndexesWhere(QueryRecord.IsWrite)
	assert.Equal(t, []int{1, 3}, idx)
}

func TestGroupBySQL(t *testing.T) {
	tr := New([]QueryRecord{
		{SQL: "SELECT a"},
		{SQL: "SELECT b"},
		{SQL: "SELECT a"},
	})

	order, groups := tr.GroupBySQL()
	assert.Equal(t, []string{"SELECT a", "SELECT b"}, order)
	assert.Equal(t, []int{0, 2}, groups["SELECT a"])
	assert.Equal(t, []int{1}, groups["SELECT b"])
}

func TestTopFrame(t *testing.T) {
	r := QueryRecord{Backtrace: []Frame{{File: "app/service.go", Line: 42}, {File: "app/handler.go", Line: 10}}}
	frame, ok := r.TopFrame()
	require.True(t, ok)
	assert.Equal(t, "app/service.go:42", frame.String())

	_, ok = QueryRecord{}.TopFrame()
	assert.False(t, ok)
}

func TestFileRoundTrip(t *testing.T) {
	rows := 3
	tr := New([]QueryRecord{
		{SQL: "SELECT * FROM users WHERE id = ?", ExecutionTimeMs: 1.5, Params: []any{"42"}, RowCount: &rows},
		{SQL: "INSERT INTO audit (msg) VALUES (?)", ExecutionTimeMs: 0.4},
	})

	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, SaveFile(tr, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, tr.At(0).SQL, loaded.At(0).SQL)
	assert.Equal(t, 3, loaded.At(0).Rows())
	assert.Equal(t, tr.At(1).ExecutionTimeMs, loaded.At(1).ExecutionTimeMs)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
