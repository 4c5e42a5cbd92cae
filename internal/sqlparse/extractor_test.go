package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJoins(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT * FROM a JOIN b ON a.id = b.a_id LEFT JOIN c ON b.id = c.b_id")
	require.Len(t, facts.Joins, 2)

	assert.Equal(t, JoinInner, facts.Joins[0].Type)
	assert.Equal(t, "b", facts.Joins[0].Table)
	assert.Equal(t, "a.id = b.a_id", facts.Joins[0].On)

	assert.Equal(t, JoinLeft, facts.Joins[1].Type)
	assert.Equal(t, "c", facts.Joins[1].Table)
	assert.Equal(t, "b.id = c.b_id", facts.Joins[1].On)
}

func TestExtractJoinTypes(t *testing.T) {
	ext := New()

	tests := []struct {
		sql  string
		want JoinType
	}{
		{"SELECT * FROM a JOIN b ON a.id = b.a_id", JoinInner},
		{"SELECT * FROM a INNER JOIN b ON a.id = b.a_id", JoinInner},
		{"SELECT * FROM a LEFT JOIN b ON a.id = b.a_id", JoinLeft},
		{"SELECT * FROM a LEFT OUTER JOIN b ON a.id = b.a_id", JoinLeft},
		{"SELECT * FROM a RIGHT JOIN b ON a.id = b.a_id", JoinRight},
		{"SELECT * FROM a CROSS JOIN b", JoinCross},
	}
	for _, tt := range tests {
		facts := ext.Extract(tt.sql)
		require.Len(t, facts.Joins, 1, tt.sql)
		assert.Equal(t, tt.want, facts.Joins[0].Type, tt.sql)
	}
}

func TestExtractJoinAlias(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT u.name, r.label FROM users u JOIN roles r ON u.role_id = r.id")
	require.Len(t, facts.Joins, 1)
	assert.Equal(t, "roles", facts.Joins[0].Table)
	assert.Equal(t, "r", facts.Joins[0].Alias)

	// ON directly after the table name must not be taken for an alias
	facts = ext.Extract("SELECT * FROM users JOIN roles ON users.role_id = roles.id")
	require.Len(t, facts.Joins, 1)
	assert.Equal(t, "roles", facts.Joins[0].Table)
	assert.Equal(t, "users.role_id = roles.id", facts.Joins[0].On)
}

func TestStringLiteralsAreInvisible(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT * FROM logs WHERE message = 'error JOIN help WHERE x LIMIT 5'")
	assert.Empty(t, facts.Joins)
	assert.False(t, facts.HasLimit)
	require.NotNil(t, facts.MainTable)
	assert.Equal(t, "logs", facts.MainTable.Table)
	assert.Equal(t, []string{"message"}, facts.WhereColumns)
}

func TestSubqueryKeywordsStayNested(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT * FROM orders o WHERE o.customer_id IN (SELECT id FROM customers WHERE country = 'DE') ORDER BY o.created_at")
	require.NotNil(t, facts.MainTable)
	assert.Equal(t, "orders", facts.MainTable.Table)
	assert.Empty(t, facts.Joins)
	assert.True(t, facts.HasSubquery)
	assert.Equal(t, []string{"o.created_at"}, facts.OrderByColumns)
}

func TestExtractMainTable(t *testing.T) {
	ext := New()

	tests := []struct {
		sql       string
		wantTable string
		wantAlias string
	}{
		{"SELECT * FROM users", "users", ""},
		{"SELECT * FROM users u WHERE u.id = 1", "users", "u"},
		{"SELECT * FROM users AS u WHERE u.id = 1", "users", "u"},
		{"SELECT users.name FROM users WHERE users.id = 1", "users", "users"},
		{"SELECT * FROM `users` WHERE id = 1", "users", ""},
		{"SELECT * FROM shop.users WHERE id = 1", "users", ""},
	}
	for _, tt := range tests {
		facts := ext.Extract(tt.sql)
		require.NotNil(t, facts.MainTable, tt.sql)
		assert.Equal(t, tt.wantTable, facts.MainTable.Table, tt.sql)
		assert.Equal(t, tt.wantAlias, facts.MainTable.Alias, tt.sql)
	}
}

func TestWhereColumns(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT * FROM orders o WHERE o.status = 'paid' AND o.total > 100 ORDER BY o.created_at")
	assert.Equal(t, []string{"o.status", "o.total"}, facts.WhereColumns)

	facts = ext.Extract("SELECT * FROM orders")
	assert.Empty(t, facts.WhereColumns)
}

func TestHasLimit(t *testing.T) {
	ext := New()

	assert.True(t, ext.Extract("SELECT * FROM users LIMIT 10").HasLimit)
	assert.True(t, ext.Extract("SELECT * FROM users LIMIT ?").HasLimit)
	assert.False(t, ext.Extract("SELECT * FROM users").HasLimit)
	// LIMIT inside a subquery does not bound the outer statement
	assert.False(t, ext.Extract("SELECT * FROM users WHERE id IN (SELECT user_id FROM logins LIMIT 10)").HasLimit)
}

func TestLikeLeadingWildcards(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT * FROM products WHERE name LIKE '%widget%'")
	assert.Equal(t, []string{"%widget%"}, facts.LikeLeadingWildcards)

	facts = ext.Extract("SELECT * FROM products WHERE name LIKE 'widget%'")
	assert.Empty(t, facts.LikeLeadingWildcards)
}

func TestSelectAliases(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT o.id, c.name, o.total FROM orders o JOIN customers c ON o.customer_id = c.id")
	assert.Equal(t, []string{"o", "c"}, facts.SelectAliases)
}

func TestAliasUsed(t *testing.T) {
	ext := New()

	sql := "SELECT u.name FROM users u JOIN roles r ON u.role_id = r.id"
	facts := ext.Extract(sql)
	require.Len(t, facts.Joins, 1)

	assert.False(t, ext.AliasUsed(sql, "r", facts.Joins[0].Raw))
	assert.True(t, ext.AliasUsed(sql, "u", facts.Joins[0].Raw))

	// a string literal inside the ON clause must not defeat the exclusion
	sql = "SELECT p.name FROM products p JOIN translations t ON p.id = t.product_id AND t.locale = 'en'"
	facts = ext.Extract(sql)
	require.Len(t, facts.Joins, 1)
	assert.False(t, ext.AliasUsed(sql, "t", facts.Joins[0].Raw))
}

func TestOnConditions(t *testing.T) {
	ext := New()

	conds := ext.OnConditions("a.id = b.a_id AND b.tenant_id = a.tenant_id")
	require.Len(t, conds, 2)
	assert.Equal(t, Condition{Left: "a.id", Right: "b.a_id"}, conds[0])
	assert.Equal(t, Condition{Left: "b.tenant_id", Right: "a.tenant_id"}, conds[1])

	// literal comparisons are not column pairs
	conds = ext.OnConditions("a.id = b.a_id AND b.locale = 'en'")
	require.Len(t, conds, 1)
}

func TestJoinConstraints(t *testing.T) {
	ext := New()

	facts := ext.Extract("SELECT p.name, t.label FROM products p LEFT JOIN translations t ON p.id = t.product_id AND t.locale = 'en' LIMIT 10")
	require.Len(t, facts.Joins, 1)
	assert.True(t, ext.HasLocaleConstraint(facts.Joins[0]))

	facts = ext.Extract("SELECT o.id, p.name FROM order_items o LEFT JOIN products p ON o.product_id = p.id")
	require.Len(t, facts.Joins, 1)
	assert.True(t, ext.HasUniqueJoinConstraint(facts.Joins[0]))

	facts = ext.Extract("SELECT o.id, i.qty FROM orders o LEFT JOIN order_items i ON i.order_id = o.id")
	require.Len(t, facts.Joins, 1)
	assert.False(t, ext.HasUniqueJoinConstraint(facts.Joins[0]))
}

func TestAggregateAndExists(t *testing.T) {
	ext := New()

	assert.True(t, ext.HasAggregateSelect("SELECT COUNT(*) FROM users"))
	assert.False(t, ext.HasAggregateSelect("SELECT name FROM users"))
	assert.True(t, ext.HasExists("SELECT * FROM users u WHERE EXISTS (SELECT 1 FROM logins l WHERE l.user_id = u.id)"))
}

func TestWriteTarget(t *testing.T) {
	ext := New()

	tests := []struct {
		sql  string
		want string
	}{
		{"INSERT INTO orders (total) VALUES (1)", "orders"},
		{"UPDATE users SET name = 'x' WHERE id = 1", "users"},
		{"UPDATE `users` SET name = 'x' WHERE id = 1", "users"},
		{"UPDATE IGNORE carts SET total = 0", "carts"},
		{"DELETE FROM shop.sessions WHERE expired = 1", "sessions"},
		{"SELECT * FROM orders", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ext.WriteTarget(tt.sql), tt.sql)
	}
}

func TestFingerprint(t *testing.T) {
	ext := New()

	a := ext.Fingerprint("SELECT * FROM users WHERE id = 42")
	b := ext.Fingerprint("SELECT  *  FROM users WHERE id = 7")
	assert.Equal(t, a, b)

	c := ext.Fingerprint("SELECT * FROM users WHERE email = 'a@example.com'")
	d := ext.Fingerprint("SELECT * FROM users WHERE email = 'b@example.com'")
	assert.Equal(t, c, d)
	assert.NotEqual(t, a, c)

	e := ext.Fingerprint("SELECT * FROM users WHERE id IN (?, ?, ?)")
	f := ext.Fingerprint("SELECT * FROM users WHERE id IN (?)")
	assert.Equal(t, e, f)
}

func TestMaskStrings(t *testing.T) {
	masked := maskStrings("SELECT 'a JOIN b' FROM t -- trailing JOIN")
	assert.NotContains(t, masked, "a JOIN b")
	assert.NotContains(t, masked, "trailing")
	assert.Contains(t, masked, "FROM t")
	assert.Len(t, masked, len("SELECT 'a JOIN b' FROM t -- trailing JOIN"))

	// escaped quotes stay inside the literal
	masked = maskStrings(`SELECT 'it''s a JOIN' FROM t`)
	assert.NotContains(t, masked, "JOIN")
	assert.Contains(t, masked, "FROM t")
}

func TestMaskParens(t *testing.T) {
	masked := maskParens("SELECT a FROM t WHERE id IN (SELECT x FROM u)")
	assert.NotContains(t, masked, "SELECT x")
	assert.Contains(t, masked, "FROM t")
	assert.Len(t, masked, len("SELECT a FROM t WHERE id IN (SELECT x FROM u)"))
}
