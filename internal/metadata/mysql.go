package metadata

import (
	"database/sql"
	"fmt"
	"strings"
)

// MySQLProvider derives association metadata from information_schema.
// Foreign keys become MANY_TO_ONE associations on the owning table plus
// the implied ONE_TO_MANY on the referenced side.
type MySQLProvider struct {
	db     *sql.DB
	schema string
}

// NewMySQLProvider reads metadata for the given schema over db.
func NewMySQLProvider(db *sql.DB, schema string) *MySQLProvider {
	return &MySQLProvider{db: db, schema: schema}
}

type fkRow struct {
	table      string
	constraint string
	column     string
	refTable   string
	refColumn  string
	nullable   bool
}

func (p *MySQLProvider) AllAssociations() (map[string][]Association, error) {
	rows, err := p.db.Query(`
		SELECT
			kcu.TABLE_NAME,
			kcu.CONSTRAINT_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME,
			c.IS_NULLABLE = 'YES'
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.COLUMNS c
			ON c.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND c.TABLE_NAME = kcu.TABLE_NAME
			AND c.COLUMN_NAME = kcu.COLUMN_NAME
		WHERE kcu.TABLE_SCHEMA = ?
			AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		p.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.table, &r.constraint, &r.column, &r.refTable, &r.refColumn, &r.nullable); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		fks = append(fks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys: %w", err)
	}

	// group multi-column constraints together
	grouped := make(map[string]*Association)
	var order []string
	for _, r := range fks {
		key := r.table + "\x00" + r.constraint
		a, ok := grouped[key]
		if !ok {
			a = &Association{
				Table:       r.table,
				TargetTable: r.refTable,
				Cardinality: ManyToOne,
			}
			grouped[key] = a
			order = append(order, key)
		}
		a.Columns = append(a.Columns, r.column)
		a.ReferencedColumns = append(a.ReferencedColumns, r.refColumn)
		if r.nullable {
			a.Nullable = true
		}
	}

	result := make(map[string][]Association)
	for _, key := range order {
		a := grouped[key]
		result[a.Table] = append(result[a.Table], *a)
		// implied inverse collection on the referenced side
		result[a.TargetTable] = append(result[a.TargetTable], Association{
			Table:             a.TargetTable,
			TargetTable:       a.Table,
			Columns:           a.ReferencedColumns,
			ReferencedColumns: a.Columns,
			Nullable:          true,
			Cardinality:       OneToMany,
		})
	}
	return result, nil
}

func (p *MySQLProvider) IdentifierColumns(table string) ([]string, error) {
	rows, err := p.db.Query(`
		SELECT kcu.COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.TABLE_CONSTRAINTS tc
			ON tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND tc.TABLE_NAME = kcu.TABLE_NAME
			AND tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = ?
			AND kcu.TABLE_NAME = ?
			AND tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		ORDER BY kcu.ORDINAL_POSITION`,
		p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query identifier columns for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan identifier column: %w", err)
		}
		cols = append(cols, strings.ToLower(col))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identifier columns: %w", err)
	}
	return cols, nil
}
