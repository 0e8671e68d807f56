// Package synth turns a composed prompt into a candidate query by invoking
// the language model and leniently parsing its reply.
package synth

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/datasage/datasage/internal/llm"
	"github.com/datasage/datasage/internal/prompt"
)

// Intent is the declared shape of a candidate query.
type Intent string

const (
	IntentSelect    Intent = "select"
	IntentAggregate Intent = "aggregate"
	IntentFilter    Intent = "filter"
)

// CandidateQuery is produced once per request and never persisted beyond it
// unless accepted by the validator.
type CandidateQuery struct {
	SQL         string
	Dialect     string
	Intent      Intent
	Explanation string
}

// SynthesisError carries the raw model text for diagnostics when no
// parseable query block was found after the retry.
type SynthesisError struct {
	RawOutput string
	Attempts  int
	Cause     error
}

func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("query synthesis failed after %d attempt(s): %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("no parseable query in model output after %d attempt(s)", e.Attempts)
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// Synthesizer invokes the model and parses candidates.
type Synthesizer struct {
	client llm.Client
}

func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize runs the model once, and once more with a stricter
// reformulation if the first reply had no extractable query. A second parse
// failure surfaces a SynthesisError with the raw text attached.
func (s *Synthesizer) Synthesize(ctx context.Context, req prompt.Request, dialect string) (*CandidateQuery, error) {
	out, err := s.client.Complete(ctx, req.System, req.User)
	if err != nil {
		return nil, &SynthesisError{Attempts: 1, Cause: err}
	}

	if sql := ExtractSQL(out); sql != "" {
		return candidate(sql, dialect, out), nil
	}

	log.Debug().Int("raw_len", len(out)).Msg("first synthesis unparseable, retrying strict")
	strict := prompt.Stricter(req)
	out2, err := s.client.Complete(ctx, strict.System, strict.User)
	if err != nil {
		return nil, &SynthesisError{RawOutput: out, Attempts: 2, Cause: err}
	}
	if sql := ExtractSQL(out2); sql != "" {
		return candidate(sql, dialect, out2), nil
	}
	return nil, &SynthesisError{RawOutput: out2, Attempts: 2}
}

func candidate(sql, dialect, raw string) *CandidateQuery {
	return &CandidateQuery{
		SQL:         sql,
		Dialect:     dialect,
		Intent:      classifyIntent(sql),
		Explanation: extractExplanation(raw),
	}
}

var aggregateRe = regexp.MustCompile(`(?i)\bGROUP\s+BY\b|\b(?:COUNT|SUM|AVG|MIN|MAX)\s*\(`)

func classifyIntent(sql string) Intent {
	if aggregateRe.MatchString(sql) {
		return IntentAggregate
	}
	if regexp.MustCompile(`(?i)\bWHERE\b`).MatchString(sql) {
		return IntentFilter
	}
	return IntentSelect
}

// extractExplanation pulls the "-- explanation:" line the prompt contract
// asks for, falling back to the first prose line outside code fences.
func extractExplanation(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "-- explanation:") {
			return strings.TrimSpace(trimmed[len("-- explanation:"):])
		}
	}

	inFence := false
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		return trimmed
	}
	return ""
}
