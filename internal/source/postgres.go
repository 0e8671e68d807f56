package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresSource is a client/server database handle backed by pgx.
type PostgresSource struct {
	db   *sql.DB
	name string
}

// OpenPostgres connects to a PostgreSQL database and verifies the connection.
func OpenPostgres(ctx context.Context, dsn, name string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if name == "" {
		name = "postgres"
	}
	return &PostgresSource{db: db, name: name}, nil
}

func (s *PostgresSource) Name() string     { return s.name }
func (s *PostgresSource) Dialect() Dialect { return DialectPostgres }
func (s *PostgresSource) DB() *sql.DB      { return s.db }

func (s *PostgresSource) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type IN ('BASE TABLE', 'VIEW')
		 ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *PostgresSource) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *PostgresSource) Close() error                   { return s.db.Close() }
