// Package analyst orchestrates the translation pipeline behind the single
// Ask entry point: introspect, compose, synthesize, validate, execute,
// annotate.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/datasage/datasage/internal/chart"
	"github.com/datasage/datasage/internal/config"
	"github.com/datasage/datasage/internal/exec"
	"github.com/datasage/datasage/internal/llm"
	"github.com/datasage/datasage/internal/prompt"
	"github.com/datasage/datasage/internal/schema"
	"github.com/datasage/datasage/internal/security"
	"github.com/datasage/datasage/internal/session"
	"github.com/datasage/datasage/internal/source"
	"github.com/datasage/datasage/internal/synth"
	"github.com/datasage/datasage/internal/validate"
)

const snapshotTTL = 5 * time.Minute

// Answer is the successful Ask result handed to the caller; the analyst
// holds no reference to it afterwards.
type Answer struct {
	Explanation string                `json:"explanation"`
	SQL         string                `json:"sql"`
	Intent      synth.Intent          `json:"intent"`
	Result      *exec.ResultSet       `json:"result"`
	Chart       *chart.Recommendation `json:"chart,omitempty"`
}

// Analyst wires the pipeline components around one active data source.
type Analyst struct {
	cfg          *config.Config
	introspector *schema.Introspector
	composer     *prompt.Composer
	synthesizer  *synth.Synthesizer
	validator    *validate.Validator
	engine       *exec.Engine
	recommender  *chart.Recommender
	masker       *security.DataMasker
	audit        *security.AuditLogger

	mu  sync.RWMutex
	src source.Source

	snapMu   sync.Mutex
	snap     *schema.Snapshot
	snapTime time.Time
	sf       singleflight.Group
}

func New(cfg *config.Config, client llm.Client) *Analyst {
	return &Analyst{
		cfg:          cfg,
		introspector: schema.NewIntrospector(cfg.SampleValues, cfg.CategoricalRatio),
		composer:     prompt.NewComposer(cfg.TokenBudget, cfg.HistoryWindow),
		synthesizer:  synth.NewSynthesizer(client),
		validator: validate.New(validate.Policy{
			RowLimitCeiling:  cfg.RowLimitCeiling,
			MaxSubqueryDepth: cfg.MaxSubqueryDepth,
		}),
		engine:      exec.NewEngine(time.Duration(cfg.ExecTimeoutMs)*time.Millisecond, cfg.RowLimitCeiling),
		recommender: chart.NewRecommender(cfg.HistogramMinRows, cfg.MaxCategoricalDims),
		masker:      security.NewDataMasker(cfg.SensitiveColumns),
		audit:       security.NewAuditLogger(cfg.EnableAuditLogging),
	}
}

// SetSource activates a data source, closing the previous one and
// invalidating the schema snapshot cache.
func (a *Analyst) SetSource(src source.Source) {
	a.mu.Lock()
	old := a.src
	a.src = src
	a.mu.Unlock()

	a.snapMu.Lock()
	a.snap = nil
	a.snapMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn().Err(err).Str("source", old.Name()).Msg("closing previous source")
		}
	}
}

// Source returns the active source, or nil when none is connected.
func (a *Analyst) Source() source.Source {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.src
}

// Close releases the active source.
func (a *Analyst) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.src == nil {
		return nil
	}
	err := a.src.Close()
	a.src = nil
	return err
}

// Snapshot returns the cached schema snapshot, rebuilding it when stale.
// Concurrent rebuilds share one introspection via singleflight.
func (a *Analyst) Snapshot(ctx context.Context) (*schema.Snapshot, error) {
	src := a.Source()
	if src == nil {
		return nil, schema.ErrSourceUnavailable
	}

	a.snapMu.Lock()
	if a.snap != nil && time.Since(a.snapTime) < snapshotTTL {
		snap := a.snap
		a.snapMu.Unlock()
		return snap, nil
	}
	a.snapMu.Unlock()

	v, err, _ := a.sf.Do("schema", func() (any, error) {
		a.snapMu.Lock()
		if a.snap != nil && time.Since(a.snapTime) < snapshotTTL {
			snap := a.snap
			a.snapMu.Unlock()
			return snap, nil
		}
		a.snapMu.Unlock()

		start := time.Now()
		snap, err := a.introspector.Describe(ctx, src)
		if err != nil {
			return nil, err
		}
		a.snapMu.Lock()
		a.snap = snap
		a.snapTime = time.Now()
		a.snapMu.Unlock()
		log.Info().
			Str("source", src.Name()).
			Int("tables", len(snap.Tables)).
			Dur("took", time.Since(start)).
			Msg("schema snapshot rebuilt")
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.Snapshot), nil
}

// Ask is the single entry point: it translates the utterance, validates and
// executes the query, annotates the result, and appends the exchange to the
// session history. All failures surface as *TranslationError.
func (a *Analyst) Ask(ctx context.Context, utterance string, sess *session.Session) (*Answer, error) {
	unlock := sess.Lock()
	defer unlock()

	start := time.Now()
	answer, err := a.ask(ctx, utterance, sess)

	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		var te *TranslationError
		kind := ""
		if errors.As(err, &te) {
			kind = string(te.Kind)
		}
		a.audit.LogAsk(sess.ID, utterance, "", false, elapsed, kind)
		return nil, err
	}
	a.audit.LogAsk(sess.ID, utterance, answer.SQL, true, elapsed, "")
	return answer, nil
}

func (a *Analyst) ask(ctx context.Context, utterance string, sess *session.Session) (*Answer, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, terr(KindInvalidRequest, "question cannot be empty", nil)
	}
	if a.cfg.MaxUtteranceLen > 0 && len(utterance) > a.cfg.MaxUtteranceLen {
		return nil, terr(KindInvalidRequest,
			fmt.Sprintf("question too long: %d chars (max %d)", len(utterance), a.cfg.MaxUtteranceLen), nil)
	}

	src := a.Source()
	if src == nil {
		return nil, terr(KindSourceUnavailable, "no data source connected", nil)
	}

	snap, err := a.Snapshot(ctx)
	if err != nil {
		switch {
		case errors.Is(err, schema.ErrEmptySchema):
			return nil, terr(KindEmptySchema, "the data source has no discoverable columns", err)
		default:
			return nil, terr(KindSourceUnavailable, "the data source cannot be queried", err)
		}
	}

	req := a.composer.Compose(utterance, snap, sess.Recent(a.cfg.HistoryWindow), a.cfg.RowLimitCeiling)

	cand, err := a.synthesizer.Synthesize(ctx, req, snap.Dialect)
	if err != nil {
		var se *synth.SynthesisError
		te := terr(KindSynthesisFailure, "could not translate the question into a query", err)
		if errors.As(err, &se) {
			te.Detail = se.RawOutput
		}
		return nil, te
	}

	// Validation failures are never retried: they indicate an unsafe or
	// malformed translation and are surfaced with the violated rule.
	verdict := a.validator.Validate(cand.SQL, snap)
	if !verdict.Accepted {
		kind := KindUnsafeStatement
		switch verdict.Rule {
		case validate.RuleUnknownIdentifier:
			kind = KindUnknownIdentifier
		case validate.RuleUnsafeJoin:
			kind = KindUnsafeJoin
		}
		te := terr(kind, verdict.Message, nil)
		te.Detail = cand.SQL
		return nil, te
	}

	rs, err := a.execute(ctx, verdict.Sanitized, src)
	if err != nil {
		return nil, err
	}
	if a.cfg.EnableDataMasking {
		rs = a.masker.Mask(rs)
	}

	rec, recErr := a.recommender.Recommend(rs)
	if recErr != nil && !errors.Is(recErr, chart.ErrNoRecommendation) {
		return nil, terr(KindExecutionError, "could not annotate the result", recErr)
	}

	answer := &Answer{
		Explanation: cand.Explanation,
		SQL:         verdict.Sanitized,
		Intent:      cand.Intent,
		Result:      rs,
		Chart:       rec,
	}

	sess.Append(
		session.Turn{Role: session.RoleUser, Text: utterance},
		session.Turn{
			Role:          session.RoleAssistant,
			Text:          cand.Explanation,
			SQL:           verdict.Sanitized,
			ResultSummary: fmt.Sprintf("%d rows", rs.RowCount),
		},
	)
	return answer, nil
}

// execute runs the sanitized query, retrying exactly once on a lost
// connection after re-pinging the source. Repeated failure is terminal for
// the request.
func (a *Analyst) execute(ctx context.Context, sanitized string, src source.Source) (*exec.ResultSet, error) {
	rs, err := a.engine.Run(ctx, sanitized, src)
	if err == nil {
		return rs, nil
	}

	if errors.Is(err, exec.ErrConnectionLost) {
		if pingErr := src.Ping(ctx); pingErr == nil {
			log.Warn().Msg("connection lost, retrying validated query once")
			rs, err = a.engine.Run(ctx, sanitized, src)
			if err == nil {
				return rs, nil
			}
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		// The caller abandoned the request; nothing to report.
		return nil, err
	case errors.Is(err, exec.ErrTimeout):
		return nil, terr(KindExecutionTimeout, "the query timed out", err)
	case errors.Is(err, exec.ErrConnectionLost):
		return nil, terr(KindConnectionLost, "the database connection was lost", err)
	default:
		log.Error().Err(err).Msg("query execution failed")
		return nil, terr(KindExecutionError, "query execution failed", err)
	}
}

// RunSQL is the direct-SQL path used by the query endpoint. It goes through
// the same safety validator and execution bounds as translated queries.
func (a *Analyst) RunSQL(ctx context.Context, sql string) (*exec.ResultSet, error) {
	src := a.Source()
	if src == nil {
		return nil, terr(KindSourceUnavailable, "no data source connected", nil)
	}
	snap, err := a.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, schema.ErrEmptySchema) {
			return nil, terr(KindEmptySchema, "the data source has no discoverable columns", err)
		}
		return nil, terr(KindSourceUnavailable, "the data source cannot be queried", err)
	}

	verdict := a.validator.Validate(sql, snap)
	if !verdict.Accepted {
		kind := KindUnsafeStatement
		switch verdict.Rule {
		case validate.RuleUnknownIdentifier:
			kind = KindUnknownIdentifier
		case validate.RuleUnsafeJoin:
			kind = KindUnsafeJoin
		}
		return nil, terr(kind, verdict.Message, nil)
	}

	start := time.Now()
	rs, err := a.execute(ctx, verdict.Sanitized, src)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		a.audit.LogQuery(sql, 0, elapsed, false, err.Error())
		return nil, err
	}
	if a.cfg.EnableDataMasking {
		rs = a.masker.Mask(rs)
	}
	a.audit.LogQuery(sql, rs.RowCount, elapsed, true, "")
	return rs, nil
}
