package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

func TestInjectionBooleanBypass(t *testing.T) {
	a := NewInjection(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT * FROM users WHERE name = 'x' OR 1=1",
	}})
	issues := a.Analyze(ctx, tr)

	require.Len(t, issues, 1)
	assert.Equal(t, TypeInjectionHigh, issues[0].Type)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Contains(t, issues[0].Details["indicators"], "boolean bypass (OR 1=1)")
}

func TestInjectionCriticalIndicators(t *testing.T) {
	a := NewInjection(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tests := []string{
		"SELECT * FROM users WHERE id = 1 UNION SELECT password FROM admins",
		"SELECT * FROM users WHERE id = 1; DROP TABLE users",
		"SELECT * FROM users WHERE id = 1 AND SLEEP(5)",
	}
	for _, sql := range tests {
		tr := trace.New([]trace.QueryRecord{{SQL: sql}})
		issues := a.Analyze(ctx, tr)
		require.Len(t, issues, 1, sql)
		assert.Equal(t, TypeInjectionCritical, issues[0].Type, sql)
		assert.Equal(t, SeverityCritical, issues[0].Severity, sql)
	}
}

func TestInjectionGroupsByRiskLevel(t *testing.T) {
	a := NewInjection(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{
		{SQL: "SELECT * FROM users WHERE name = 'x' OR 1=1"},
		{SQL: "SELECT * FROM users WHERE id = 1 UNION SELECT password FROM admins"},
		{SQL: "SELECT * FROM orders WHERE status = 'new' OR 2=2"},
	})
	issues := a.Analyze(ctx, tr)

	require.Len(t, issues, 2)
	assert.Equal(t, TypeInjectionCritical, issues[0].Type)
	assert.Len(t, issues[0].AffectedQueries, 1)
	assert.Equal(t, TypeInjectionHigh, issues[1].Type)
	assert.Len(t, issues[1].AffectedQueries, 2)
}

func TestCleanQueriesRaiseNothing(t *testing.T) {
	a := NewInjection(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{
		{SQL: "SELECT * FROM users WHERE id = ?"},
		{SQL: "INSERT INTO orders (total) VALUES (?)"},
		{SQL: "UPDATE users SET last_seen = NOW() WHERE id = ?"},
	})
	assert.Empty(t, a.Analyze(ctx, tr))
}
