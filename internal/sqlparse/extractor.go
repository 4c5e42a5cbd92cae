package sqlparse

import (
	"regexp"
	"strings"
)

const (
	identPat = `[a-zA-Z_][a-zA-Z0-9_$]*`
	namePat  = "(?:`[^`]+`|" + identPat + ")"
	tablePat = namePat + `(?:\.` + namePat + `)?`
)

// reservedAfterTable are keywords that can directly follow a table name
// and must never be mistaken for an alias.
var reservedAfterTable = map[string]bool{
	"on": true, "where": true, "inner": true, "left": true, "right": true,
	"full": true, "cross": true, "join": true, "group": true, "order": true,
	"having": true, "limit": true, "union": true, "using": true, "set": true,
	"values": true, "as": true, "for": true, "straight_join": true,
}

// nonColumnWords are tokens the column heuristics must not report as
// column references.
var nonColumnWords = map[string]bool{
	"and": true, "or": true, "not": true, "null": true, "true": true,
	"false": true, "select": true, "exists": true, "case": true,
	"when": true, "then": true, "else": true, "end": true, "in": true,
	"like": true, "between": true, "is": true, "binary": true,
	"interval": true, "current_timestamp": true, "now": true,
}

// Extractor answers structural questions about raw SQL text using masked
// linear scans and compiled patterns instead of a full grammar. Every
// operation is a pure function of the input string; on SQL it cannot make
// sense of it returns empty answers rather than guessing.
type Extractor struct {
	joinRe           *regexp.Regexp
	mainTableRe      *regexp.Regexp
	onStartRe        *regexp.Regexp
	clauseBoundaryRe *regexp.Regexp
	selectRe         *regexp.Regexp
	fromRe           *regexp.Regexp
	whereRe          *regexp.Regexp
	groupByRe        *regexp.Regexp
	orderByRe        *regexp.Regexp
	havingRe         *regexp.Regexp
	limitRe          *regexp.Regexp
	unionRe          *regexp.Regexp
	limitValueRe     *regexp.Regexp
	distinctRe       *regexp.Regexp
	subqueryRe       *regexp.Regexp
	likeLeadingRe    *regexp.Regexp
	colCompareRe     *regexp.Regexp
	qualifierRe      *regexp.Regexp
	columnRefRe      *regexp.Regexp
	sortSuffixRe     *regexp.Regexp
	onPairRe         *regexp.Regexp
	andSplitRe       *regexp.Regexp
	aggregateRe      *regexp.Regexp
	existsRe         *regexp.Regexp
	writeTargetRe    *regexp.Regexp
	numberRe         *regexp.Regexp
	quotedRe         *regexp.Regexp
	spaceRe          *regexp.Regexp
	placeholderSetRe *regexp.Regexp
}

// New compiles the extraction patterns once; the extractor itself is
// stateless and safe for concurrent use.
func New() *Extractor {
	return &Extractor{
		joinRe:           regexp.MustCompile(`(?i)\b(?:(left|right|full|cross|inner)\s+(?:outer\s+)?)?join\s+(` + tablePat + `)(?:\s+(?:as\s+)?(` + identPat + `))?`),
		mainTableRe:      regexp.MustCompile(`(?i)\bfrom\s+(` + tablePat + `)(?:\s+(?:as\s+)?(` + identPat + `))?`),
		onStartRe:        regexp.MustCompile(`(?i)^\s*on\b`),
		clauseBoundaryRe: regexp.MustCompile(`(?i)\b(?:(?:left|right|full|cross|inner)\s+(?:outer\s+)?join|join|where|group\s+by|order\s+by|having|limit|union)\b`),
		selectRe:         regexp.MustCompile(`(?i)\bselect\b`),
		fromRe:           regexp.MustCompile(`(?i)\bfrom\b`),
		whereRe:          regexp.MustCompile(`(?i)\bwhere\b`),
		groupByRe:        regexp.MustCompile(`(?i)\bgroup\s+by\b`),
		orderByRe:        regexp.MustCompile(`(?i)\border\s+by\b`),
		havingRe:         regexp.MustCompile(`(?i)\bhaving\b`),
		limitRe:          regexp.MustCompile(`(?i)\blimit\b`),
		unionRe:          regexp.MustCompile(`(?i)\bunion\b`),
		limitValueRe:     regexp.MustCompile(`(?i)\blimit\s+(?:\d+|\?|:` + identPat + `)`),
		distinctRe:       regexp.MustCompile(`(?i)\bselect\s+distinct\b`),
		subqueryRe:       regexp.MustCompile(`(?i)\(\s*select\b`),
		likeLeadingRe:    regexp.MustCompile(`(?i)\b(?:not\s+)?like\s+(?:binary\s+)?'(%[^']*)'`),
		colCompareRe:     regexp.MustCompile(`(?i)\b([a-z_][a-z0-9_$]*(?:\.[a-z_][a-z0-9_$]*)?)\s*(?:=|!=|<>|<=|>=|<|>|\s(?:not\s+)?like\b|\s(?:not\s+)?in\b|\sis\b|\s(?:not\s+)?between\b)`),
		qualifierRe:      regexp.MustCompile(`\b(` + identPat + `)\s*\.`),
		columnRefRe:      regexp.MustCompile(`^(?i)[a-z_][a-z0-9_$]*(?:\.[a-z_][a-z0-9_$]*)?$`),
		sortSuffixRe:     regexp.MustCompile(`(?i)\s+(?:asc|desc)$`),
		onPairRe:         regexp.MustCompile(`(?i)^\(*\s*([a-z_][a-z0-9_$]*(?:\.[a-z_][a-z0-9_$]*)?)\s*=\s*([a-z_][a-z0-9_$]*(?:\.[a-z_][a-z0-9_$]*)?)\s*\)*$`),
		andSplitRe:       regexp.MustCompile(`(?i)\s+and\s+`),
		aggregateRe:      regexp.MustCompile(`(?i)\b(?:count|max|min|sum|avg|group_concat)\s*\(`),
		existsRe:         regexp.MustCompile(`(?i)\bexists\s*\(`),
		writeTargetRe:    regexp.MustCompile(`(?i)^\s*(?:insert\s+(?:ignore\s+)?into\s+|update\s+(?:ignore\s+)?|delete\s+from\s+)(` + tablePat + `)`),
		numberRe:         regexp.MustCompile(`\b\d+(?:\.\d+)?\b`),
		quotedRe:         regexp.MustCompile(`'[^']*'`),
		spaceRe:          regexp.MustCompile(`\s+`),
		placeholderSetRe: regexp.MustCompile(`\(\s*\?(?:\s*,\s*\?)*\s*\)`),
	}
}

// Extract computes the full structural view of one SQL string.
func (e *Extractor) Extract(sql string) *Facts {
	stringMasked := maskStrings(sql)
	parenMasked := maskParens(stringMasked)

	facts := &Facts{
		MainTable:            e.mainTable(stringMasked, parenMasked),
		Joins:                e.joins(sql, stringMasked, parenMasked),
		WhereColumns:         e.whereColumns(stringMasked, parenMasked),
		GroupByColumns:       e.columnList(stringMasked, parenMasked, e.groupByRe, []*regexp.Regexp{e.havingRe, e.orderByRe, e.limitRe, e.unionRe}),
		OrderByColumns:       e.columnList(stringMasked, parenMasked, e.orderByRe, []*regexp.Regexp{e.limitRe, e.unionRe}),
		HasLimit:             e.limitValueRe.MatchString(parenMasked),
		HasDistinct:          e.distinctRe.MatchString(parenMasked),
		HasSubquery:          e.subqueryRe.MatchString(stringMasked),
		LikeLeadingWildcards: e.likeLeadingWildcards(sql),
		SelectAliases:        e.selectAliases(stringMasked, parenMasked),
	}
	return facts
}

// mainTable finds the first top-level FROM target. FROM keywords inside
// string literals or parenthesized subqueries are invisible here because
// of the masking, so a derived-table query has no main table.
func (e *Extractor) mainTable(stringMasked, parenMasked string) *TableRef {
	m := e.mainTableRe.FindStringSubmatchIndex(parenMasked)
	if m == nil {
		return nil
	}
	table := cleanName(parenMasked[m[2]:m[3]])
	alias := ""
	if m[4] >= 0 {
		candidate := parenMasked[m[4]:m[5]]
		if !reservedAfterTable[strings.ToLower(candidate)] {
			alias = candidate
		}
	}
	if alias == "" && e.qualifierUsed(stringMasked, table) {
		alias = table
	}
	return &TableRef{Table: table, Alias: alias}
}

// joins extracts every top-level JOIN clause with normalized type, target
// table, alias and raw ON condition. The alias capture is validated
// against reserved words so `ON` can never be taken for an alias.
func (e *Extractor) joins(sql, stringMasked, parenMasked string) []Join {
	matches := e.joinRe.FindAllStringSubmatchIndex(parenMasked, -1)
	if len(matches) == 0 {
		return nil
	}
	joins := make([]Join, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		jtype := JoinInner
		if m[2] >= 0 {
			switch strings.ToUpper(parenMasked[m[2]:m[3]]) {
			case "LEFT":
				jtype = JoinLeft
			case "RIGHT":
				jtype = JoinRight
			case "CROSS":
				jtype = JoinCross
			case "FULL":
				jtype = JoinFull
			case "INNER":
				jtype = JoinInner
			}
		}
		table := cleanName(parenMasked[m[4]:m[5]])
		alias := ""
		if m[6] >= 0 {
			candidate := parenMasked[m[6]:m[7]]
			if reservedAfterTable[strings.ToLower(candidate)] {
				// the captured word is the next clause keyword; rewind so
				// ON detection starts before it
				end = m[6]
			} else {
				alias = candidate
			}
		}
		on, rawEnd := e.onClause(sql, parenMasked, end)
		if alias == "" && e.qualifierUsed(stringMasked, table) {
			alias = table
		}
		joins = append(joins, Join{
			Type:  jtype,
			Table: table,
			Alias: alias,
			On:    on,
			Raw:   strings.TrimSpace(sql[start:rawEnd]),
		})
	}
	return joins
}

// onClause isolates the text between a join's ON keyword and the next
// clause boundary. It returns the trimmed condition and the index where
// the join clause ends in the original string.
func (e *Extractor) onClause(sql, parenMasked string, afterJoin int) (string, int) {
	rest := parenMasked[afterJoin:]
	loc := e.onStartRe.FindStringIndex(rest)
	if loc == nil {
		return "", afterJoin
	}
	bodyStart := afterJoin + loc[1]
	bodyEnd := len(parenMasked)
	if b := e.clauseBoundaryRe.FindStringIndex(parenMasked[bodyStart:]); b != nil {
		bodyEnd = bodyStart + b[0]
	}
	return strings.TrimSpace(sql[bodyStart:bodyEnd]), bodyEnd
}

// JoinOnClause returns the ON condition of the join whose raw clause text
// matches joinRaw, or empty when the join carries no ON condition.
func (e *Extractor) JoinOnClause(sql, joinRaw string) string {
	for _, j := range e.Extract(sql).Joins {
		if j.Raw == joinRaw {
			return j.On
		}
	}
	return ""
}

// OnConditions decomposes an ON clause into column-pair equalities.
// AND-joined composite-key conditions are split; anything that is not a
// plain column = column comparison is skipped rather than guessed at.
func (e *Extractor) OnConditions(on string) []Condition {
	if on == "" {
		return nil
	}
	parts := e.andSplitRe.Split(maskStrings(on), -1)
	var conds []Condition
	for _, part := range parts {
		m := e.onPairRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		left, right := m[1], m[2]
		if nonColumnWords[strings.ToLower(left)] || nonColumnWords[strings.ToLower(right)] {
			continue
		}
		conds = append(conds, Condition{Left: left, Right: right})
	}
	return conds
}

// AliasUsed reports whether alias appears as a column qualifier anywhere
// in the query outside the join clause that introduced it.
func (e *Extractor) AliasUsed(sql, alias, excludeRaw string) bool {
	if alias == "" {
		return false
	}
	masked := maskStrings(sql)
	if excludeRaw != "" {
		// the clause text carries its literals unmasked; mask it the same
		// way so it can be located inside the masked query
		excl := maskStrings(excludeRaw)
		if idx := strings.Index(masked, excl); idx >= 0 {
			masked = masked[:idx] + strings.Repeat(" ", len(excl)) + masked[idx+len(excl):]
		}
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\s*\.`)
	return re.MatchString(masked)
}

// HasLocaleConstraint reports whether a join's ON clause pins a locale or
// language column, the single-row translation-table pattern.
func (e *Extractor) HasLocaleConstraint(j Join) bool {
	if j.On == "" {
		return false
	}
	re := regexp.MustCompile(`(?i)\b(?:` + regexp.QuoteMeta(j.Qualifier()) + `\.)?(?:locale|language|lang(?:_code)?|locale_code)\b`)
	return re.MatchString(maskStrings(j.On))
}

// HasUniqueJoinConstraint reports whether the ON clause constrains the
// joined side by its id column, guaranteeing at most one joined row.
func (e *Extractor) HasUniqueJoinConstraint(j Join) bool {
	qualifier := j.Qualifier()
	for _, c := range e.OnConditions(j.On) {
		if isIDColumn(c.Left, qualifier) || isIDColumn(c.Right, qualifier) {
			return true
		}
	}
	return false
}

func isIDColumn(ref, qualifier string) bool {
	q, col := SplitQualified(ref)
	if q != "" && !strings.EqualFold(q, qualifier) {
		return false
	}
	if q == "" {
		return false
	}
	return strings.EqualFold(col, "id") || strings.EqualFold(col, "uuid")
}

// HasAggregateSelect reports whether the select list applies an aggregate
// function, e.g. COUNT(/MAX(/SUM(.
func (e *Extractor) HasAggregateSelect(sql string) bool {
	stringMasked := maskStrings(sql)
	parenMasked := maskParens(stringMasked)
	segment, ok := e.segment(stringMasked, parenMasked, e.selectRe, []*regexp.Regexp{e.fromRe})
	if !ok {
		// no FROM clause; scan the whole statement
		segment = stringMasked
	}
	return e.aggregateRe.MatchString(segment)
}

// HasExists reports whether the statement uses EXISTS(...).
func (e *Extractor) HasExists(sql string) bool {
	return e.existsRe.MatchString(maskStrings(sql))
}

// WriteTarget returns the table an INSERT/UPDATE/DELETE statement writes
// to, or empty when it cannot be determined.
func (e *Extractor) WriteTarget(sql string) string {
	m := e.writeTargetRe.FindStringSubmatch(maskStrings(sql))
	if m == nil {
		return ""
	}
	return cleanName(m[1])
}

// Fingerprint normalizes a statement to its shape: literals and numbers
// collapse to placeholders, whitespace to single spaces, case to lower.
// Statements differing only in bound values share a fingerprint.
func (e *Extractor) Fingerprint(sql string) string {
	s := e.quotedRe.ReplaceAllString(maskStrings(sql), "?")
	s = e.numberRe.ReplaceAllString(s, "?")
	s = e.placeholderSetRe.ReplaceAllString(s, "(?)")
	s = e.spaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

func (e *Extractor) whereColumns(stringMasked, parenMasked string) []string {
	segment, ok := e.segment(stringMasked, parenMasked, e.whereRe, []*regexp.Regexp{e.groupByRe, e.orderByRe, e.havingRe, e.limitRe, e.unionRe})
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var cols []string
	for _, m := range e.colCompareRe.FindAllStringSubmatch(segment, -1) {
		ref := m[1]
		base := ref
		if i := strings.LastIndex(ref, "."); i >= 0 {
			base = ref[i+1:]
		}
		if nonColumnWords[strings.ToLower(base)] || nonColumnWords[strings.ToLower(ref)] {
			continue
		}
		key := strings.ToLower(ref)
		if !seen[key] {
			seen[key] = true
			cols = append(cols, ref)
		}
	}
	return cols
}

func (e *Extractor) columnList(stringMasked, parenMasked string, startRe *regexp.Regexp, stops []*regexp.Regexp) []string {
	segment, ok := e.segment(stringMasked, parenMasked, startRe, stops)
	if !ok {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(segment, ",") {
		ref := strings.TrimSpace(e.sortSuffixRe.ReplaceAllString(strings.TrimSpace(part), ""))
		if ref == "" || !e.columnRefRe.MatchString(ref) {
			continue
		}
		cols = append(cols, ref)
	}
	return cols
}

func (e *Extractor) selectAliases(stringMasked, parenMasked string) []string {
	segment, ok := e.segment(stringMasked, parenMasked, e.selectRe, []*regexp.Regexp{e.fromRe})
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var aliases []string
	for _, m := range e.qualifierRe.FindAllStringSubmatch(segment, -1) {
		alias := m[1]
		key := strings.ToLower(alias)
		if !seen[key] {
			seen[key] = true
			aliases = append(aliases, alias)
		}
	}
	return aliases
}

func (e *Extractor) likeLeadingWildcards(sql string) []string {
	var patterns []string
	for _, m := range e.likeLeadingRe.FindAllStringSubmatch(sql, -1) {
		patterns = append(patterns, m[1])
	}
	return patterns
}

// segment slices the masked text between a top-level clause keyword and
// the nearest following top-level stop keyword. Boundaries are located on
// the paren-blanked view so subquery clauses cannot truncate or extend
// the segment; the returned text keeps parenthesized content so column
// references inside grouping parens are still visible.
func (e *Extractor) segment(stringMasked, parenMasked string, startRe *regexp.Regexp, stops []*regexp.Regexp) (string, bool) {
	loc := startRe.FindStringIndex(parenMasked)
	if loc == nil {
		return "", false
	}
	start := loc[1]
	end := len(parenMasked)
	for _, stop := range stops {
		if b := stop.FindStringIndex(parenMasked[start:]); b != nil && start+b[0] < end {
			end = start + b[0]
		}
	}
	return stringMasked[start:end], true
}

func (e *Extractor) qualifierUsed(stringMasked, table string) bool {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(table) + `\s*\.`)
	return re.MatchString(stringMasked)
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "`", "")
	// drop a schema qualifier, keep the bare table name
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// SplitQualified splits a possibly table-qualified column reference into
// its qualifier and column name.
func SplitQualified(ref string) (qualifier, column string) {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}
