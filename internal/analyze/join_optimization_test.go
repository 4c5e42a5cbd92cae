package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/metadata"
	"github.com/querylens/querylens/internal/trace"
)

func orderMetadata(nullable bool) *metadata.StaticProvider {
	return &metadata.StaticProvider{
		Associations: map[string][]metadata.Association{
			"orders": {
				{
					Table:       "orders",
					TargetTable: "customers",
					Columns:     []string{"customer_id"},
					Nullable:    nullable,
					Cardinality: metadata.ManyToOne,
				},
			},
		},
		Identifiers: map[string][]string{
			"orders":      {"id"},
			"customers":   {"id"},
			"order_items": {"id"},
			"payments":    {"id"},
		},
	}
}

func TestSuboptimalLeftJoinOnNotNullFK(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(orderMetadata(false), nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT o.id, c.name FROM orders o LEFT JOIN customers c ON o.customer_id = c.id",
	}})
	issues := a.Analyze(ctx, tr)

	require.Len(t, issues, 1)
	assert.Equal(t, TypeSuboptimalLeftJoin, issues[0].Type)
	assert.Equal(t, SeverityCritical, issues[0].Severity)
	require.NotNil(t, issues[0].Suggestion)
	assert.Contains(t, issues[0].Suggestion.Code, "INNER JOIN customers")
}

func TestNullableFKSuppressesSuboptimalLeftJoin(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(orderMetadata(true), nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT o.id, c.name FROM orders o LEFT JOIN customers c ON o.customer_id = c.id",
	}})
	assert.Empty(t, a.Analyze(ctx, tr))
}

func TestNoMetadataMeansNoLeftJoinVerdict(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT o.id, c.name FROM orders o LEFT JOIN customers c ON o.customer_id = c.doc_ref",
	}})
	assert.Empty(t, a.Analyze(ctx, tr))
}

func TestUnusedJoin(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT u.name FROM users u JOIN roles r ON u.role_id = r.id",
	}})
	issues := a.Analyze(ctx, tr)

	require.Len(t, issues, 1)
	assert.Equal(t, TypeUnusedJoin, issues[0].Type)
	assert.Equal(t, "roles", issues[0].Details["table"])
}

func TestUnusedJoinWithLiteralInOnClause(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT p.name FROM products p JOIN translations t ON p.id = t.product_id AND t.locale = 'en'",
	}})
	issues := a.Analyze(ctx, tr)

	require.Len(t, issues, 1)
	assert.Equal(t, TypeUnusedJoin, issues[0].Type)
	assert.Equal(t, "translations", issues[0].Details["table"])
}

func TestMultiStepHydration(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(orderMetadata(false), nil)

	tr := trace.New([]trace.QueryRecord{{
		SQL: "SELECT o.id, i.qty, p.amount FROM orders o LEFT JOIN order_items i ON i.order_id = o.id LEFT JOIN payments p ON p.order_id = o.id",
	}})
	issues := a.Analyze(ctx, tr)

	require.Len(t, issues, 1)
	assert.Equal(t, TypeMultiStepHydration, issues[0].Type)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.ElementsMatch(t, []string{"order_items", "payments"}, issues[0].Details["collection_tables"])
}

func TestTooManyJoins(t *testing.T) {
	a := NewJoinOptimization(config.DefaultAnalysis())
	ctx := NewContext(nil, nil)

	tr := trace.New([]trace.QueryRecord{{SQL: sqlWithJoins(6)}})
	issues := a.Analyze(ctx, tr)
	require.Len(t, issues, 1)
	assert.Equal(t, TypeTooManyJoins, issues[0].Type)
	assert.Equal(t, SeverityWarning, issues[0].Severity)

	tr = trace.New([]trace.QueryRecord{{SQL: sqlWithJoins(9)}})
	issues = a.Analyze(ctx, tr)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityCritical, issues[0].Severity)

	tr = trace.New([]trace.QueryRecord{{SQL: sqlWithJoins(5)}})
	assert.Empty(t, a.Analyze(ctx, tr))
}
