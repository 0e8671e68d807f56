package analyst

import "fmt"

// Kind classifies a translation failure. Every kind is recoverable at the
// Ask boundary; none propagate as unhandled faults.
type Kind string

const (
	KindInvalidRequest    Kind = "invalid_request"
	KindSourceUnavailable Kind = "source_unavailable"
	KindEmptySchema       Kind = "empty_schema"
	KindSynthesisFailure  Kind = "synthesis_failure"
	KindUnsafeStatement   Kind = "unsafe_statement"
	KindUnknownIdentifier Kind = "unknown_identifier"
	KindUnsafeJoin        Kind = "unsafe_join"
	KindExecutionTimeout  Kind = "execution_timeout"
	KindExecutionError    Kind = "execution_error"
	KindConnectionLost    Kind = "connection_lost"
)

// TranslationError is the typed failure returned by Ask. Message is safe
// for end users; Detail carries diagnostics such as raw model output.
type TranslationError struct {
	Kind    Kind
	Message string
	Detail  string
	cause   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TranslationError) Unwrap() error { return e.cause }

func terr(kind Kind, message string, cause error) *TranslationError {
	return &TranslationError{Kind: kind, Message: message, cause: cause}
}
