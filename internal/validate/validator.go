// Package validate is the last line of defense before generated text
// reaches a live database. Validation is a pure function of the candidate
// query, the schema snapshot and the policy; it has no side effects.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/datasage/datasage/internal/schema"
)

// Rule identifies which policy rule a rejected query violated.
type Rule string

const (
	RuleNone              Rule = ""
	RuleUnsafeStatement   Rule = "unsafe_statement"
	RuleUnknownIdentifier Rule = "unknown_identifier"
	RuleUnsafeJoin        Rule = "unsafe_join"
)

// Policy is the externally supplied safety configuration.
type Policy struct {
	RowLimitCeiling  int
	MaxSubqueryDepth int
}

// Verdict is the validation outcome. Sanitized is set only on acceptance
// and is the exact text handed to the execution engine.
type Verdict struct {
	Accepted  bool
	Rule      Rule
	Message   string
	Sanitized string
}

type Validator struct {
	policy Policy
}

func New(policy Policy) *Validator {
	return &Validator{policy: policy}
}

// forbiddenRe match data- or schema-modification and exfiltration keywords
// in literal-stripped SQL.
var forbiddenRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE|MERGE|REPLACE|GRANT|REVOKE|ATTACH|DETACH|COPY|PRAGMA|VACUUM|CALL|INSTALL|LOAD)\b`),
	regexp.MustCompile(`(?i)\b(EXEC|EXECUTE)\b`),
	regexp.MustCompile(`(?i)\bINTO\b`),
	regexp.MustCompile(`(?i)\b(LOAD_FILE|SLEEP|BENCHMARK|PG_SLEEP)\s*\(`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
}

// Validate applies the policy rules in order; the first violation wins.
//  1. single read-only statement
//  2. all identifiers known to the snapshot
//  3. row bound present and within the ceiling (injected or clamped, never
//     rejected)
//  4. subquery depth and cartesian-join risk
//
// Validating an accepted verdict's Sanitized text again yields the same
// verdict with identical text.
func (v *Validator) Validate(sql string, snap *schema.Snapshot) Verdict {
	trimmed := stripTrailingSemicolon(strings.TrimSpace(sql))
	if trimmed == "" {
		return reject(RuleUnsafeStatement, "query is empty")
	}

	// Rule 1: single read-only statement.
	masked, literals := maskLiterals(trimmed)
	upper := strings.ToUpper(strings.TrimSpace(masked))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return reject(RuleUnsafeStatement, "only SELECT statements are allowed")
	}
	if strings.Contains(masked, ";") {
		return reject(RuleUnsafeStatement, "multiple statements are not allowed")
	}
	for _, re := range forbiddenRe {
		if re.MatchString(masked) {
			return reject(RuleUnsafeStatement, "disallowed keyword or construct: "+re.String())
		}
	}
	for _, lit := range literals {
		if isSQLi, _ := libinjection.IsSQLi(lit); isSQLi {
			return reject(RuleUnsafeStatement, "injection pattern detected in string literal")
		}
	}

	// Rule 2: every referenced table and column must exist in the snapshot.
	if name, ok := findUnknownIdentifier(masked, snap); !ok {
		return reject(RuleUnknownIdentifier, fmt.Sprintf("unknown identifier %q", name))
	}

	// Rule 3: silent row bounding.
	sanitized := enforceLimit(trimmed, masked, v.policy.RowLimitCeiling)

	// Rule 4: nesting depth and cartesian-product risk.
	if depth := subqueryDepth(masked); depth > v.policy.MaxSubqueryDepth {
		return reject(RuleUnsafeJoin, fmt.Sprintf("subquery depth %d exceeds limit %d", depth, v.policy.MaxSubqueryDepth))
	}
	if hasUnconstrainedJoin(masked) {
		return reject(RuleUnsafeJoin, "multi-table join without a join condition")
	}

	return Verdict{Accepted: true, Sanitized: sanitized}
}

func reject(rule Rule, msg string) Verdict {
	return Verdict{Accepted: false, Rule: rule, Message: msg}
}

// maskLiterals replaces string literal bodies with placeholder runs so
// keyword and identifier scans cannot be fooled by quoted text, and returns
// the literal bodies for the injection screen. Doubled quotes inside
// literals are handled per the SQL escape rules. The placeholder run has
// the same byte length as the raw literal body, so every byte offset in the
// masked text maps to the same offset in the original.
func maskLiterals(sql string) (string, []string) {
	var out strings.Builder
	var literals []string
	runes := []rune(sql)

	for i := 0; i < len(runes); i++ {
		if runes[i] != '\'' {
			out.WriteRune(runes[i])
			continue
		}
		out.WriteRune('\'')
		var body strings.Builder
		start := i + 1
		i++
		for i < len(runes) {
			if runes[i] == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					body.WriteRune('\'')
					i += 2
					continue
				}
				break
			}
			body.WriteRune(runes[i])
			i++
		}
		literals = append(literals, body.String())
		out.WriteString(strings.Repeat("?", len(string(runes[start:i]))))
		if i < len(runes) {
			out.WriteRune('\'')
		}
	}
	return out.String(), literals
}

func stripTrailingSemicolon(sql string) string {
	sql = strings.TrimRight(sql, " \t\n\r")
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimRight(sql, " \t\n\r")
}

var limitRe = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)

// enforceLimit injects the ceiling when the outer query has no LIMIT, and
// clamps an existing one that exceeds it. The masked text locates the
// outermost LIMIT; the rewrite applies to the original text at the same
// offsets, which is safe because masking preserves byte offsets.
func enforceLimit(sql, masked string, ceiling int) string {
	if ceiling <= 0 {
		return sql
	}

	matches := limitRe.FindAllStringSubmatchIndex(masked, -1)
	for _, m := range matches {
		if parenDepthAt(masked, m[0]) != 0 {
			continue
		}
		n, err := strconv.Atoi(masked[m[2]:m[3]])
		if err != nil {
			continue
		}
		if n > ceiling {
			return sql[:m[2]] + strconv.Itoa(ceiling) + sql[m[3]:]
		}
		return sql
	}
	return sql + fmt.Sprintf(" LIMIT %d", ceiling)
}

func parenDepthAt(s string, idx int) int {
	depth := 0
	for i := 0; i < idx && i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}

var selectWordRe = regexp.MustCompile(`(?i)\bSELECT\b`)

// subqueryDepth returns the maximum paren depth at which a SELECT keyword
// appears. The outer statement sits at depth zero.
func subqueryDepth(masked string) int {
	max := 0
	for _, m := range selectWordRe.FindAllStringIndex(masked, -1) {
		if d := parenDepthAt(masked, m[0]); d > max {
			max = d
		}
	}
	return max
}

var (
	joinRe      = regexp.MustCompile(`(?i)\bJOIN\b`)
	crossJoinRe = regexp.MustCompile(`(?i)\bCROSS\s+JOIN\b`)
	fromListRe  = regexp.MustCompile(`(?i)\bFROM\s+[\w".]+(?:\s+(?:AS\s+)?\w+)?\s*,`)
	joinCondRe  = regexp.MustCompile(`(?i)\b(ON|USING)\b`)
	whereRe     = regexp.MustCompile(`(?i)\bWHERE\b`)
)

// hasUnconstrainedJoin flags queries that combine tables with no join
// condition anywhere: an explicit CROSS JOIN, a JOIN with neither ON nor
// USING, or a comma-separated FROM list, in each case without a WHERE
// clause to constrain the product.
func hasUnconstrainedJoin(masked string) bool {
	if whereRe.MatchString(masked) {
		return false
	}
	if crossJoinRe.MatchString(masked) {
		return true
	}
	if joinRe.MatchString(masked) && !joinCondRe.MatchString(masked) {
		return true
	}
	return fromListRe.MatchString(masked)
}
