package sqlparse

// maskStrings returns a copy of sql where the contents of single-quoted
// string literals, line comments and block comments are replaced with
// spaces. Length and byte positions are preserved so indexes found on the
// masked text can be used to slice the original.
func maskStrings(sql string) string {
	out := []byte(sql)
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)
	state := stateNormal
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateString
			case c == '-' && i+1 < len(out) && out[i+1] == '-':
				out[i] = ' '
				state = stateLineComment
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i] = ' '
				state = stateBlockComment
			}
		case stateString:
			switch {
			case c == '\\' && i+1 < len(out):
				out[i] = ' '
				i++
				out[i] = ' '
			case c == '\'' && i+1 < len(out) && out[i+1] == '\'':
				// doubled quote escape
				out[i] = ' '
				i++
				out[i] = ' '
			case c == '\'':
				state = stateNormal
			default:
				out[i] = ' '
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			} else {
				out[i] = ' '
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				i++
				out[i] = ' '
				state = stateNormal
			} else {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

// maskParens blanks everything nested inside parentheses, keeping only the
// outermost paren characters themselves. Applied on top of maskStrings it
// yields a view of the top-level clause structure where subqueries cannot
// contribute FROM/JOIN/LIMIT keywords.
func maskParens(masked string) string {
	out := []byte(masked)
	depth := 0
	for i := 0; i < len(out); i++ {
		switch out[i] {
		case '(':
			if depth > 0 {
				out[i] = ' '
			}
			depth++
		case ')':
			depth--
			if depth > 0 {
				out[i] = ' '
			}
			if depth < 0 {
				depth = 0
			}
		default:
			if depth > 0 {
				out[i] = ' '
			}
		}
	}
	return string(out)
}
