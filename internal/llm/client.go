// Package llm abstracts the language model behind a single narrow
// capability: text in, text out, with a timeout. Provider-specific payload
// construction stays in adapters so the core pipeline is testable with a
// deterministic stub.
package llm

import (
	"context"
	"errors"
)

// Client is the only model capability the core depends on.
type Client interface {
	// Complete sends a system and user prompt and returns the raw model
	// text. Implementations must honor ctx cancellation and deadlines.
	Complete(ctx context.Context, system, user string) (string, error)
}

// ClientFunc adapts a function to the Client interface, used by tests.
type ClientFunc func(ctx context.Context, system, user string) (string, error)

func (f ClientFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// ErrNotConfigured is returned when no provider credentials were supplied.
var ErrNotConfigured = errors.New("no language model configured")

// Unconfigured returns a client that fails every completion. It lets the
// rest of the service start without credentials.
func Unconfigured() Client {
	return ClientFunc(func(ctx context.Context, system, user string) (string, error) {
		return "", ErrNotConfigured
	})
}
