package schema

import (
	"strconv"
	"time"
)

// datetimeLayouts are the formats attempted, most specific first.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02-Jan-2006",
}

// inferType classifies a column from its sampled values: numeric parse first,
// then datetime parse, else categorical when the distinct count is small
// relative to the row count, else text. Empty strings are treated as missing
// and do not vote.
func inferType(values []string, distinct int, rowCount int64, categoricalRatio float64) ColumnType {
	nonEmpty := 0
	numeric := 0
	datetime := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		nonEmpty++
		if isNumeric(v) {
			numeric++
			continue
		}
		if isDatetime(v) {
			datetime++
		}
	}

	if nonEmpty == 0 {
		return TypeText
	}
	if numeric == nonEmpty {
		return TypeNumeric
	}
	if datetime == nonEmpty {
		return TypeDatetime
	}
	if rowCount > 0 && float64(distinct)/float64(rowCount) < categoricalRatio {
		return TypeCategorical
	}
	// A handful of distinct values is categorical even in a tiny table.
	if distinct <= 1 || (int64(distinct) < rowCount && distinct <= 10) {
		return TypeCategorical
	}
	return TypeText
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isDatetime(s string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
