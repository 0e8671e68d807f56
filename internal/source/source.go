// Package source provides the data-source capability consumed by the
// introspection and execution layers. Backends register as database/sql
// drivers so everything above this package is backend-agnostic.
package source

import (
	"context"
	"database/sql"
	"strings"
)

// Dialect is the SQL variant accepted by a source.
type Dialect string

const (
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
)

// Source is an opaque handle over a connected backend.
type Source interface {
	// Name identifies the source for logs and the schema overview.
	Name() string
	Dialect() Dialect
	DB() *sql.DB
	// TableNames lists queryable tables and views.
	TableNames(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// QuoteIdent quotes an identifier for interpolation into introspection SQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
