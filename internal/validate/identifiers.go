package validate

import (
	"strings"

	"github.com/datasage/datasage/internal/schema"
)

// sqlKeywords are tokens never treated as table or column references.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "OUTER": true,
	"FULL": true, "CROSS": true, "ON": true, "AND": true, "OR": true,
	"NOT": true, "IN": true, "EXISTS": true, "BETWEEN": true,
	"LIKE": true, "ILIKE": true, "IS": true, "NULL": true,
	"ORDER": true, "BY": true, "GROUP": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "ASC": true, "DESC": true,
	"DISTINCT": true, "AS": true, "WITH": true, "CASE": true,
	"WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"UNION": true, "ALL": true, "EXCEPT": true, "INTERSECT": true,
	"USING": true, "TRUE": true, "FALSE": true, "CAST": true,
	"EXTRACT": true, "INTERVAL": true, "DATE": true, "TIME": true,
	"TIMESTAMP": true, "YEAR": true, "QUARTER": true, "MONTH": true,
	"WEEK": true, "DAY": true, "HOUR": true, "MINUTE": true,
	"SECOND": true, "OVER": true, "PARTITION": true, "ROWS": true,
	"RANGE": true, "PRECEDING": true, "FOLLOWING": true,
	"UNBOUNDED": true, "CURRENT": true, "ROW": true, "FILTER": true,
	"NULLS": true, "FIRST": true, "LAST": true, "FETCH": true,
	"NEXT": true, "ONLY": true, "FOR": true, "LEADING": true,
	"TRAILING": true, "BOTH": true,
}

// funcParens are keyword tokens that open function-style argument lists,
// where FROM is argument syntax (EXTRACT(unit FROM expr)) rather than a
// table clause.
var funcParens = map[string]bool{
	"EXTRACT": true, "CAST": true, "FILTER": true,
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
}

// lex splits literal-masked SQL into identifiers, numbers and symbols.
// Double-quoted identifiers lose their quotes; everything else is one rune
// per symbol token.
func lex(masked string) []token {
	var toks []token
	runes := []rune(masked)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		case r == '"':
			j := i + 1
			var b strings.Builder
			for j < len(runes) && runes[j] != '"' {
				b.WriteRune(runes[j])
				j++
			}
			toks = append(toks, token{tokIdent, b.String()})
			i = j
		case isIdentStart(r):
			j := i
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, string(runes[i:j])})
			i = j - 1
		case r >= '0' && r <= '9':
			j := i
			for j < len(runes) && (runes[j] >= '0' && runes[j] <= '9' || runes[j] == '.' || runes[j] == 'e' || runes[j] == 'E') {
				j++
			}
			toks = append(toks, token{tokNumber, string(runes[i:j])})
			i = j - 1
		default:
			toks = append(toks, token{tokSymbol, string(r)})
		}
	}
	return toks
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9') || r == '$'
}

// findUnknownIdentifier checks every referenced table and column against
// the snapshot, case-insensitively. It returns the first offender and
// clean=false, or clean=true when all references resolve. Aliases, CTE
// names and derived column names are accounted for.
func findUnknownIdentifier(masked string, snap *schema.Snapshot) (string, bool) {
	toks := lex(masked)
	inFunc := markFuncArgs(toks)

	aliasTable := map[string]string{} // alias -> table (lowercase)
	derived := map[string]bool{}      // AS aliases and CTE names
	tableRefs := []string{}           // tables named after FROM/JOIN

	// Pass 1: collect CTE names, table references and aliases.
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent {
			continue
		}
		upper := strings.ToUpper(t.text)

		if upper == "WITH" {
			// WITH name AS ( ... ) [, name2 AS ( ... )]
			j := i + 1
			for j+1 < len(toks) {
				if toks[j].kind == tokIdent && strings.ToUpper(toks[j+1].text) == "AS" {
					derived[strings.ToLower(toks[j].text)] = true
					// Skip the parenthesized body.
					j = skipParens(toks, j+2)
					if j < len(toks) && toks[j].text == "," {
						j++
						continue
					}
				}
				break
			}
		}

		if (upper == "FROM" || upper == "JOIN") && !inFunc[i] {
			j := i + 1
			for j < len(toks) {
				if j < len(toks) && toks[j].text == "(" {
					// Derived table: its inner SELECT is scanned on its own;
					// register the alias that follows the closing paren.
					j = skipParens(toks, j)
					if j < len(toks) && strings.ToUpper(toks[j].text) == "AS" {
						j++
					}
					if j < len(toks) && toks[j].kind == tokIdent && !sqlKeywords[strings.ToUpper(toks[j].text)] {
						derived[strings.ToLower(toks[j].text)] = true
					}
					break
				}
				if j >= len(toks) || toks[j].kind != tokIdent {
					break
				}
				table := strings.ToLower(toks[j].text)
				tableRefs = append(tableRefs, table)
				j++
				// Optional [AS] alias.
				if j < len(toks) && strings.ToUpper(toks[j].text) == "AS" {
					j++
				}
				if j < len(toks) && toks[j].kind == tokIdent && !sqlKeywords[strings.ToUpper(toks[j].text)] {
					aliasTable[strings.ToLower(toks[j].text)] = table
					j++
				}
				// Comma-separated FROM list continues.
				if upper == "FROM" && j < len(toks) && toks[j].text == "," {
					j++
					continue
				}
				break
			}
		}

		if upper == "AS" && i+1 < len(toks) && toks[i+1].kind == tokIdent {
			derived[strings.ToLower(toks[i+1].text)] = true
		}
	}

	knownQualifier := func(name string) (string, bool) {
		lower := strings.ToLower(name)
		if tbl, ok := aliasTable[lower]; ok {
			return tbl, true
		}
		if derived[lower] {
			return "", true
		}
		if snap.HasTable(lower) {
			return lower, true
		}
		return "", false
	}

	// Referenced tables must exist (CTE names count as known).
	for _, table := range tableRefs {
		if !snap.HasTable(table) && !derived[table] {
			return table, false
		}
	}

	// Pass 2: validate column references.
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent || sqlKeywords[strings.ToUpper(t.text)] {
			continue
		}
		lower := strings.ToLower(t.text)

		// Function call.
		if i+1 < len(toks) && toks[i+1].text == "(" {
			continue
		}
		// Qualifier of a dotted reference: checked as table/alias.
		if i+1 < len(toks) && toks[i+1].text == "." {
			if _, ok := knownQualifier(t.text); !ok {
				return t.text, false
			}
			continue
		}
		// Qualified column: table.col or alias.col.
		if i >= 2 && toks[i-1].text == "." {
			table, ok := knownQualifier(toks[i-2].text)
			if !ok {
				continue // qualifier already reported above
			}
			if table == "" {
				// CTE or derived table: column set is not statically known.
				continue
			}
			desc, found := snap.Table(table)
			if !found {
				continue
			}
			if !tableHasColumn(desc, lower) {
				return t.text, false
			}
			continue
		}
		// Alias definition site or known name classes.
		if derived[lower] || aliasTable[lower] != "" || snap.HasTable(lower) {
			continue
		}
		if i > 0 && strings.ToUpper(toks[i-1].text) == "AS" {
			continue
		}
		if !snap.HasColumn(lower) {
			return t.text, false
		}
	}

	return "", true
}

func tableHasColumn(desc schema.Description, lower string) bool {
	for _, c := range desc.Columns {
		if strings.ToLower(c.Name) == lower {
			return true
		}
	}
	return false
}

// markFuncArgs reports, per token, whether it sits directly inside a
// function-call argument list. A paren group is a function call when its
// opener follows a function name, unless the group itself is a subquery.
// Subqueries nested inside function arguments reset the context, so their
// FROM clauses are still scanned as table references.
func markFuncArgs(toks []token) []bool {
	in := make([]bool, len(toks))
	var stack []bool
	for i, t := range toks {
		if len(stack) > 0 && stack[len(stack)-1] {
			in[i] = true
		}
		switch t.text {
		case "(":
			fn := false
			if i > 0 && toks[i-1].kind == tokIdent {
				prev := strings.ToUpper(toks[i-1].text)
				fn = !sqlKeywords[prev] || funcParens[prev]
			}
			if i+1 < len(toks) {
				next := strings.ToUpper(toks[i+1].text)
				if next == "SELECT" || next == "WITH" {
					fn = false
				}
			}
			stack = append(stack, fn)
		case ")":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return in
}

// skipParens advances past a balanced parenthesized group starting at or
// after idx and returns the index of the first token following it.
func skipParens(toks []token, idx int) int {
	for idx < len(toks) && toks[idx].text != "(" {
		idx++
	}
	depth := 0
	for ; idx < len(toks); idx++ {
		switch toks[idx].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return idx + 1
			}
		}
	}
	return idx
}
