package security

import (
	"crypto/sha256"
	"fmt"

	"github.com/rs/zerolog/log"
)

// AuditLogger records translation and execution events with hashed
// identifiers so audit trails never contain raw utterances or SQL.
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// LogAsk records one translation request outcome.
func (a *AuditLogger) LogAsk(sessionID, utterance, sql string, accepted bool, elapsedMs int64, failureKind string) {
	if !a.enabled {
		return
	}
	evt := log.Info().
		Str("event", "ask_audit").
		Str("session", sessionID).
		Str("utterance_hash", hashStr(utterance)[:16]).
		Bool("accepted", accepted).
		Int64("elapsed_ms", elapsedMs)
	if sql != "" {
		evt = evt.Str("sql_hash", hashStr(sql)[:16])
	}
	if failureKind != "" {
		evt = evt.Str("failure", failureKind)
	}
	evt.Msg("audit")
}

// LogQuery records a direct SQL execution.
func (a *AuditLogger) LogQuery(sql string, rowCount int, elapsedMs int64, success bool, errMsg string) {
	if !a.enabled {
		return
	}
	evt := log.Info().
		Str("event", "query_audit").
		Str("sql_hash", hashStr(sql)[:16]).
		Int("row_count", rowCount).
		Int64("elapsed_ms", elapsedMs).
		Bool("success", success)
	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}
