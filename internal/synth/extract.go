package synth

import (
	"regexp"
	"strings"
)

// ExtractSQL pulls a query out of model output, trying strategies in order:
//  1. a ```sql fenced block
//  2. any fenced block whose body starts with SELECT or WITH
//  3. a multi-line SELECT/WITH statement embedded in prose
//  4. a single-line SELECT as a last resort
//
// Returns "" when nothing resembling a query is present; the caller treats
// that as a parse failure rather than degrading silently.
func ExtractSQL(text string) string {
	if sql := fromSQLFence(text); sql != "" {
		return sql
	}
	if sql := fromAnyFence(text); sql != "" {
		return sql
	}
	if sql := fromBareStatement(text); sql != "" {
		return sql
	}
	return ""
}

func fromSQLFence(text string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "```sql")
	if idx == -1 {
		return ""
	}
	body := text[idx+len("```sql"):]
	body = strings.TrimPrefix(body, "\n")
	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return normalize(body[:end])
}

func fromAnyFence(text string) string {
	parts := strings.Split(text, "```")
	// Odd indices are fence bodies.
	for i := 1; i < len(parts); i += 2 {
		body := strings.TrimSpace(parts[i])
		// Drop a language-tag first line that isn't part of the query.
		if nl := strings.Index(body, "\n"); nl != -1 {
			first := strings.ToUpper(strings.TrimSpace(body[:nl]))
			if !strings.HasPrefix(first, "SELECT") && !strings.HasPrefix(first, "WITH") {
				body = strings.TrimSpace(body[nl:])
			}
		}
		upper := strings.ToUpper(body)
		if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
			return normalize(body)
		}
	}
	return ""
}

var (
	cteRe       = regexp.MustCompile(`(?is)\bWITH\s+\w+\s+AS\s*\(.+?(?:LIMIT\s+\d+|;|\z)`)
	selectRe    = regexp.MustCompile(`(?is)\bSELECT\s+.+?\bFROM\b\s+.+?(?:LIMIT\s+\d+|;|\z)`)
	oneLinerRe  = regexp.MustCompile(`(?i)\bSELECT\s+\S.*?\bFROM\b\s+\S+[^\n]*`)
	trailingExp = regexp.MustCompile(`(?im)^--\s*explanation:.*$`)
)

func fromBareStatement(text string) string {
	if m := cteRe.FindString(text); m != "" {
		return normalize(m)
	}
	if m := selectRe.FindString(text); m != "" {
		if strings.Contains(strings.ToUpper(m), " FROM ") {
			return normalize(m)
		}
	}
	if m := oneLinerRe.FindString(text); m != "" {
		return normalize(m)
	}
	return ""
}

// normalize trims fencing leftovers, the explanation line, and the trailing
// statement terminator.
func normalize(sql string) string {
	sql = trailingExp.ReplaceAllString(sql, "")
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
