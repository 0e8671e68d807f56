// Package schema introspects a connected data source into a normalized,
// immutable snapshot consumed by one translation request.
package schema

import (
	"errors"
	"strings"
)

var (
	// ErrSourceUnavailable means the data-source handle cannot be queried.
	ErrSourceUnavailable = errors.New("data source unavailable")
	// ErrEmptySchema means zero columns were discoverable. Callers must
	// disable translation, not crash.
	ErrEmptySchema = errors.New("no columns discoverable in data source")
)

// ColumnType is the normalized type set every downstream component branches
// on, regardless of what the backend reports.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeDatetime    ColumnType = "datetime"
	TypeCategorical ColumnType = "categorical"
	TypeText        ColumnType = "text"
)

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`
	Samples  []string   `json:"samples"` // at most the configured sample count
}

// Description is the snapshot of one table.
type Description struct {
	Table      string       `json:"table"`
	Columns    []ColumnInfo `json:"columns"`
	ApproxRows int64        `json:"approx_rows"`
}

// Snapshot is the full schema description of the active source. It is
// rebuilt whenever the source changes and never mutated afterwards.
type Snapshot struct {
	SourceName string        `json:"source_name"`
	Dialect    string        `json:"dialect"`
	Tables     []Description `json:"tables"`
}

// HasTable reports whether the snapshot contains the table,
// case-insensitively.
func (s *Snapshot) HasTable(name string) bool {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Table, name) {
			return true
		}
	}
	return false
}

// HasColumn reports whether any table in the snapshot contains the column,
// case-insensitively.
func (s *Snapshot) HasColumn(name string) bool {
	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if strings.EqualFold(c.Name, name) {
				return true
			}
		}
	}
	return false
}

// Table returns the description for a table name, case-insensitively.
func (s *Snapshot) Table(name string) (Description, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Table, name) {
			return t, true
		}
	}
	return Description{}, false
}
