// Package prompt assembles the request payload sent to the language model.
// Composition is deterministic: identical inputs always produce identical
// payloads, so translation behavior is reproducible aside from the model
// call itself.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datasage/datasage/internal/schema"
	"github.com/datasage/datasage/internal/session"
)

// Request is the structured payload consumed by the model client.
type Request struct {
	System string
	User   string
}

const systemHeader = `You are DataSage, an expert data analyst. You translate questions about the connected dataset into SQL.

RULES:
1. Generate exactly one SELECT query (WITH ... SELECT is allowed) - never INSERT, UPDATE, DELETE, DROP, or any DDL.
2. Target SQL dialect: %s.
3. Use only the tables and columns listed below. Never invent identifiers.
4. Always include a LIMIT clause of at most %d rows.
5. Wrap your final SQL in a code block exactly like this:
` + "```sql" + `
SELECT ...
` + "```" + `
6. Immediately after the code block, add exactly one line starting with "-- explanation:" followed by a one-sentence plain-language explanation of what the query answers.`

const strictAddendum = `

STRICT OUTPUT: your previous reply could not be parsed. Respond with ONLY the ` + "```sql" + ` code block containing a single SELECT statement, followed by the one "-- explanation:" line. No other prose.`

// Composer builds model requests under a token budget.
type Composer struct {
	TokenBudget   int
	HistoryWindow int
}

func NewComposer(tokenBudget, historyWindow int) *Composer {
	return &Composer{TokenBudget: tokenBudget, HistoryWindow: historyWindow}
}

// Compose builds the request from the utterance, the schema snapshot, the
// conversation history and the target dialect plus row ceiling.
func (c *Composer) Compose(utterance string, snap *schema.Snapshot, history []session.Turn, rowCeiling int) Request {
	recent := history
	if c.HistoryWindow > 0 && len(recent) > c.HistoryWindow {
		recent = recent[len(recent)-c.HistoryWindow:]
	}

	header := fmt.Sprintf(systemHeader, snap.Dialect, rowCeiling)
	user := renderUser(utterance, recent)

	// Fixed overhead that truncation cannot reclaim.
	overhead := estimateTokens(header) + estimateTokens(user)

	tables := selectTables(snap.Tables, utterance, recent)
	schemaBlock := renderSchema(tables, true)
	if c.TokenBudget > 0 && overhead+estimateTokens(schemaBlock) > c.TokenBudget {
		// First drop sample values, then whole tables, least recently
		// referenced first.
		schemaBlock = renderSchema(tables, false)
		for len(tables) > 1 && overhead+estimateTokens(schemaBlock) > c.TokenBudget {
			tables = tables[:len(tables)-1]
			schemaBlock = renderSchema(tables, false)
		}
	}

	return Request{System: header + "\n\n" + schemaBlock, User: user}
}

// Stricter returns the single-retry reformulation of a request.
func Stricter(req Request) Request {
	return Request{System: req.System + strictAddendum, User: req.User}
}

// selectTables orders tables so that truncation drops the least recently
// referenced ones first: tables named in newer turns (or the utterance
// itself) sort ahead; declaration order breaks ties.
func selectTables(tables []schema.Description, utterance string, recent []session.Turn) []schema.Description {
	type ranked struct {
		desc    schema.Description
		lastRef int // higher = referenced more recently; -1 = never
		decl    int
	}

	refs := make([]string, 0, len(recent)+1)
	for _, t := range recent {
		refs = append(refs, strings.ToLower(t.Text+" "+t.SQL))
	}
	refs = append(refs, strings.ToLower(utterance))

	out := make([]ranked, len(tables))
	for i, t := range tables {
		last := -1
		name := strings.ToLower(t.Table)
		for j, r := range refs {
			if strings.Contains(r, name) {
				last = j
			}
		}
		out[i] = ranked{desc: t, lastRef: last, decl: i}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].lastRef != out[b].lastRef {
			return out[a].lastRef > out[b].lastRef
		}
		return out[a].decl < out[b].decl
	})

	result := make([]schema.Description, len(out))
	for i, r := range out {
		result[i] = r.desc
	}
	return result
}

func renderSchema(tables []schema.Description, withSamples bool) string {
	var sb strings.Builder
	sb.WriteString("## Available tables\n")
	for _, t := range tables {
		fmt.Fprintf(&sb, "\n### %s (~%d rows)\n", t.Table, t.ApproxRows)
		for _, col := range t.Columns {
			fmt.Fprintf(&sb, "  %s %s", col.Name, col.Type)
			if col.Nullable {
				sb.WriteString(" nullable")
			}
			if withSamples && len(col.Samples) > 0 {
				fmt.Fprintf(&sb, " e.g. [%s]", strings.Join(col.Samples, ", "))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderUser(utterance string, recent []session.Turn) string {
	var sb strings.Builder
	if len(recent) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, t := range recent {
			switch t.Role {
			case session.RoleUser:
				fmt.Fprintf(&sb, "User: %s\n", t.Text)
			case session.RoleAssistant:
				fmt.Fprintf(&sb, "Assistant: %s", t.Text)
				if t.SQL != "" {
					fmt.Fprintf(&sb, " (SQL: %s)", t.SQL)
				}
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Question: %s", utterance)
	return sb.String()
}

// estimateTokens approximates token counts at four bytes per token, which is
// close enough for budget enforcement.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
