package source

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// FileSource serves uploaded data files through an in-process DuckDB
// instance. Each file becomes a view named after its base filename, so the
// rest of the pipeline sees ordinary tables.
type FileSource struct {
	db    *sql.DB
	name  string
	views []string
}

// OpenFile loads one or more CSV/Parquet/JSON files into a fresh in-memory
// DuckDB instance. An empty name defaults to the first file's base name.
func OpenFile(name string, paths ...string) (*FileSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one file path is required")
	}
	if name == "" {
		name = filepath.Base(paths[0])
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	src := &FileSource{db: db, name: name}
	for _, path := range paths {
		table := tableNameFromPath(path)
		reader, err := readerFuncFor(path)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM %s(%s)`,
			QuoteIdent(table), reader, quoteString(path))
		if _, err := db.Exec(viewSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load %q: %w", path, err)
		}
		src.views = append(src.views, table)
	}
	return src, nil
}

func (s *FileSource) Name() string     { return s.name }
func (s *FileSource) Dialect() Dialect { return DialectDuckDB }
func (s *FileSource) DB() *sql.DB      { return s.db }

func (s *FileSource) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
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

func (s *FileSource) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *FileSource) Close() error                   { return s.db.Close() }

func readerFuncFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "read_csv_auto", nil
	case ".parquet":
		return "read_parquet", nil
	case ".json", ".ndjson":
		return "read_json_auto", nil
	default:
		return "", fmt.Errorf("unsupported file type %q (csv, parquet, json)", filepath.Ext(path))
	}
}

func tableNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return name
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
