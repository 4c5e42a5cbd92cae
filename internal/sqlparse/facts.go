package sqlparse

// JoinType is the normalized join kind. LEFT OUTER JOIN normalizes to
// LEFT, a bare JOIN to INNER.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinCross JoinType = "CROSS"
	JoinFull  JoinType = "FULL"
)

// TableRef is a table together with the alias it is referenced by. Alias
// is empty when the table has no explicit alias and is never referenced
// with a dot-qualifier.
type TableRef struct {
	Table string `json:"table"`
	Alias string `json:"alias,omitempty"`
}

// Join is one JOIN clause of a query.
type Join struct {
	Type  JoinType `json:"type"`
	Table string   `json:"table"`
	Alias string   `json:"alias,omitempty"`
	On    string   `json:"on,omitempty"`
	// Raw is the join clause text from the JOIN keyword through the end
	// of its ON condition, used to exclude the introducing clause when
	// checking whether an alias is referenced elsewhere.
	Raw string `json:"-"`
}

// Qualifier returns the name the joined table is referenced by in column
// qualifiers: the alias when present, otherwise the table name.
func (j Join) Qualifier() string {
	if j.Alias != "" {
		return j.Alias
	}
	return j.Table
}

// Condition is a single column-pair equality from an ON clause.
type Condition struct {
	Left  string
	Right string
}

// Facts is the structural view of one SQL string. Facts are a pure
// function of the text, which makes them safely cacheable by exact
// string equality.
type Facts struct {
	MainTable            *TableRef `json:"main_table,omitempty"`
	Joins                []Join    `json:"joins,omitempty"`
	WhereColumns         []string  `json:"where_columns,omitempty"`
	GroupByColumns       []string  `json:"group_by_columns,omitempty"`
	OrderByColumns       []string  `json:"order_by_columns,omitempty"`
	HasLimit             bool      `json:"has_limit"`
	HasDistinct          bool      `json:"has_distinct"`
	HasSubquery          bool      `json:"has_subquery"`
	LikeLeadingWildcards []string  `json:"like_leading_wildcards,omitempty"`
	SelectAliases        []string  `json:"select_aliases,omitempty"`
}

// HasJoins reports whether any JOIN clause was found.
func (f *Facts) HasJoins() bool { return len(f.Joins) > 0 }

// JoinCount returns the number of JOIN clauses.
func (f *Facts) JoinCount() int { return len(f.Joins) }

// LeftJoins returns the LEFT joins in clause order.
func (f *Facts) LeftJoins() []Join {
	var left []Join
	for _, j := range f.Joins {
		if j.Type == JoinLeft {
			left = append(left, j)
		}
	}
	return left
}

// JoinTables returns the joined table names in clause order.
func (f *Facts) JoinTables() []string {
	tables := make([]string, 0, len(f.Joins))
	for _, j := range f.Joins {
		tables = append(tables, j.Table)
	}
	return tables
}
