package ingest

import (
	"fmt"
	"strings"

	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/trace"
)

// PerfSchemaIngester builds query traces from MySQL's statement history
type PerfSchemaIngester struct {
	db *database.DB
}

func NewPerfSchemaIngester(db *database.DB) *PerfSchemaIngester {
	return &PerfSchemaIngester{db: db}
}

// CanAccess checks whether performance_schema statement history is readable and enabled
func (p *PerfSchemaIngester) CanAccess() (bool, error) {
	_, err := p.db.Exec("SELECT 1 FROM performance_schema.events_statements_history_long LIMIT 1")
	if err != nil {
		if strings.Contains(err.Error(), "command denied") ||
			strings.Contains(err.Error(), "Unknown table") ||
			strings.Contains(err.Error(), "doesn't exist") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Fetch reads recorded statements for a schema, oldest first so the
// resulting trace preserves execution order.
func (p *PerfSchemaIngester) Fetch(schema string, limit int) (*trace.QueryTrace, error) {
	canAccess, err := p.CanAccess()
	if err != nil {
		return nil, fmt.Errorf("failed to check performance_schema access: %w", err)
	}
	if !canAccess {
		return nil, fmt.Errorf("performance_schema.events_statements_history_long is not accessible")
	}

	query := `
		SELECT
			SQL_TEXT,
			TIMER_WAIT / 1000000000 AS time_ms,
			ROWS_SENT + ROWS_AFFECTED AS row_count
		FROM performance_schema.events_statements_history_long
		WHERE SQL_TEXT IS NOT NULL
		  AND CURRENT_SCHEMA = ?
		ORDER BY EVENT_ID ASC
		LIMIT ?`

	rows, err := p.db.Query(query, schema, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from performance_schema: %w", err)
	}
	defer rows.Close()

	var records []trace.QueryRecord
	for rows.Next() {
		var sqlText string
		var timeMs float64
		var rowCount int

		if err := rows.Scan(&sqlText, &timeMs, &rowCount); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}

		if isInternalStatement(sqlText) {
			continue
		}

		rc := rowCount
		records = append(records, trace.QueryRecord{
			SQL:             sqlText,
			ExecutionTimeMs: timeMs,
			RowCount:        &rc,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return trace.New(records), nil
}

// isInternalStatement filters out session noise that is not application traffic
func isInternalStatement(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	for _, prefix := range []string{"SET ", "SHOW ", "USE ", "COMMIT", "ROLLBACK", "BEGIN", "START TRANSACTION", "EXPLAIN "} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return strings.Contains(upper, "PERFORMANCE_SCHEMA.") || strings.Contains(upper, "INFORMATION_SCHEMA.")
}
