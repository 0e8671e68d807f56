// Package exec runs validated queries against the active source with
// resource bounds and normalizes results into the fixed scalar type set.
package exec

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/datasage/datasage/internal/source"
)

var (
	// ErrTimeout means the execution deadline elapsed before completion.
	ErrTimeout = errors.New("query execution timed out")
	// ErrConnectionLost means the backend connection dropped; the caller
	// may re-ping the source and retry the same validated query once.
	ErrConnectionLost = errors.New("database connection lost")
)

// ExecError wraps a backend failure. Message is safe to show an end user;
// the underlying driver error stays wrapped for logs only.
type ExecError struct {
	Message string
	cause   error
}

func (e *ExecError) Error() string { return e.Message }
func (e *ExecError) Unwrap() error { return e.cause }

// ResultSet is the normalized tabular result. Values are restricted to
// int64, float64, string, bool, time.Time and nil. The engine holds no
// reference after handoff.
type ResultSet struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	RowCount  int           `json:"row_count"`
	Truncated bool          `json:"truncated"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Engine executes sanitized queries with a timeout and row cap.
type Engine struct {
	Timeout time.Duration
	MaxRows int
}

func NewEngine(timeout time.Duration, maxRows int) *Engine {
	return &Engine{Timeout: timeout, MaxRows: maxRows}
}

// Run executes a sanitized query. The connection is checked out for the
// scope of this call and always released, even on timeout or failure, so a
// failed query never leaks a connection. Results beyond the row cap are
// discarded with Truncated set rather than failing.
func (e *Engine) Run(ctx context.Context, sanitized string, src source.Source) (*ResultSet, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	conn, err := src.DB().Conn(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = conn.Close() }()

	start := time.Now()
	rows, err := conn.QueryContext(ctx, sanitized)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classify(err)
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		if e.MaxRows > 0 && rs.RowCount >= e.MaxRows {
			rs.Truncated = true
			break
		}
		raw := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range raw {
			targets[i] = &raw[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, classify(err)
		}
		row := make([]any, len(columns))
		for i, v := range raw {
			row[i] = coerce(v)
		}
		rs.Rows = append(rs.Rows, row)
		rs.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	rs.Elapsed = time.Since(start)
	return rs, nil
}

// classify maps backend failures to the typed error set without exposing
// driver internals. Caller cancellation is not a backend failure and passes
// through untouched.
func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "conn closed", "connection lost", "terminating connection"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
	return &ExecError{Message: "query execution failed", cause: err}
}
