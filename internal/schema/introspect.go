package schema

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/datasage/datasage/internal/source"
)

// sampleRows is how many rows are scanned per table for type inference.
// Sample values exposed in the snapshot are a small prefix of these.
const sampleRows = 100

// Introspector builds schema snapshots from a live source.
type Introspector struct {
	SampleValues     int
	CategoricalRatio float64
}

func NewIntrospector(sampleValues int, categoricalRatio float64) *Introspector {
	return &Introspector{SampleValues: sampleValues, CategoricalRatio: categoricalRatio}
}

// Describe produces an immutable snapshot of the source. Tables that fail
// individually are skipped with a warning; a source that cannot be queried
// at all returns ErrSourceUnavailable, and a source with zero discoverable
// columns returns ErrEmptySchema.
func (in *Introspector) Describe(ctx context.Context, src source.Source) (*Snapshot, error) {
	tables, err := src.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	snap := &Snapshot{SourceName: src.Name(), Dialect: string(src.Dialect())}
	for _, table := range tables {
		desc, err := in.describeTable(ctx, src, table)
		if err != nil {
			log.Warn().Err(err).Str("table", table).Msg("introspection skipped table")
			continue
		}
		snap.Tables = append(snap.Tables, desc)
	}

	total := 0
	for _, t := range snap.Tables {
		total += len(t.Columns)
	}
	if total == 0 {
		return nil, ErrEmptySchema
	}
	return snap, nil
}

func (in *Introspector) describeTable(ctx context.Context, src source.Source, table string) (Description, error) {
	db := src.DB()

	var rowCount int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", source.QuoteIdent(table))
	if err := db.QueryRowContext(ctx, countSQL).Scan(&rowCount); err != nil {
		return Description{}, fmt.Errorf("count rows: %w", err)
	}

	sampleSQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", source.QuoteIdent(table), sampleRows)
	rows, err := db.QueryContext(ctx, sampleSQL)
	if err != nil {
		return Description{}, fmt.Errorf("sample rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return Description{}, fmt.Errorf("columns: %w", err)
	}

	nullable := make([]bool, len(cols))
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			if ok, known := ct.Nullable(); known {
				nullable[i] = ok
			}
		}
	}

	values := make([][]string, len(cols))
	distinct := make([]map[string]struct{}, len(cols))
	for i := range distinct {
		distinct[i] = make(map[string]struct{})
	}

	for rows.Next() {
		raw := make([]any, len(cols))
		targets := make([]any, len(cols))
		for i := range raw {
			targets[i] = &raw[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return Description{}, fmt.Errorf("scan sample: %w", err)
		}
		for i, v := range raw {
			if v == nil {
				nullable[i] = true
				values[i] = append(values[i], "")
				continue
			}
			s := formatValue(v)
			values[i] = append(values[i], s)
			distinct[i][s] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return Description{}, fmt.Errorf("iterate samples: %w", err)
	}

	desc := Description{Table: table, ApproxRows: rowCount}
	for i, name := range cols {
		desc.Columns = append(desc.Columns, ColumnInfo{
			Name:     name,
			Type:     inferType(values[i], len(distinct[i]), rowCount, in.CategoricalRatio),
			Nullable: nullable[i],
			Samples:  firstSamples(values[i], in.SampleValues),
		})
	}
	return desc, nil
}

// firstSamples returns up to n distinct non-empty values in first-seen order.
func firstSamples(values []string, n int) []string {
	seen := make(map[string]struct{}, n)
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
