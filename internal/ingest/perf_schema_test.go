package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInternalStatement(t *testing.T) {
	internal := []string{
		"SET NAMES utf8mb4",
		"SHOW VARIABLES LIKE 'max_connections'",
		"USE shop",
		"COMMIT",
		"ROLLBACK",
		"START TRANSACTION",
		"EXPLAIN SELECT * FROM orders",
		"SELECT * FROM performance_schema.events_statements_history_long",
		"select table_name from information_schema.tables",
	}
	for _, sql := range internal {
		assert.True(t, isInternalStatement(sql), sql)
	}

	application := []string{
		"SELECT * FROM orders WHERE id = 1",
		"INSERT INTO orders (total) VALUES (10)",
		"UPDATE orders SET status = 'paid' WHERE id = 1",
		"DELETE FROM sessions WHERE expired = 1",
	}
	for _, sql := range application {
		assert.False(t, isInternalStatement(sql), sql)
	}
}
