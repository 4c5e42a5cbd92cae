package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/trace"
)

func TestExcessiveJoinsThresholds(t *testing.T) {
	a := NewExcessiveJoins(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tests := []struct {
		joins        int
		wantIssues   int
		wantSeverity Severity
	}{
		{6, 0, 0},
		{7, 1, SeverityWarning},
		{10, 1, SeverityWarning},
		{11, 1, SeverityCritical},
	}
	for _, tt := range tests {
		tr := trace.New([]trace.QueryRecord{{SQL: sqlWithJoins(tt.joins)}})
		issues := a.Analyze(ctx, tr)
		require.Len(t, issues, tt.wantIssues, "joins=%d", tt.joins)
		if tt.wantIssues > 0 {
			assert.Equal(t, TypeExcessiveJoins, issues[0].Type)
			assert.Equal(t, tt.wantSeverity, issues[0].Severity, "joins=%d", tt.joins)
			assert.Equal(t, tt.joins, issues[0].Details["join_count"])
		}
	}
}

func TestExcessiveJoinsIgnoresWrites(t *testing.T) {
	a := NewExcessiveJoins(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{{SQL: "UPDATE t0 SET x = 1 WHERE id = 2"}})
	assert.Empty(t, a.Analyze(ctx, tr))
}
