// Package chart infers a recommended visualization from a result set's
// column types and cardinality. Recommendation is a pure function: the same
// result shape always yields the same recommendation.
package chart

import (
	"errors"
	"time"

	"github.com/datasage/datasage/internal/exec"
)

// ErrNoRecommendation is a valid terminal state meaning "tabular result
// only", not a failure.
var ErrNoRecommendation = errors.New("result is not plottable")

type Kind string

const (
	KindLine      Kind = "line"
	KindBar       Kind = "bar"
	KindScatter   Kind = "scatter"
	KindHistogram Kind = "histogram"
	KindHeatmap   Kind = "heatmap"
)

// Recommendation binds a chart kind to result columns.
type Recommendation struct {
	Kind      Kind     `json:"kind"`
	X         string   `json:"x,omitempty"`
	Y         []string `json:"y,omitempty"`
	Rationale string   `json:"rationale"`
}

type columnClass int

const (
	classNumeric columnClass = iota
	classDatetime
	classCategorical
	classEmpty
)

// Recommender holds the externally supplied thresholds.
type Recommender struct {
	HistogramMinRows   int
	MaxCategoricalDims int
}

func NewRecommender(histogramMinRows, maxCategoricalDims int) *Recommender {
	return &Recommender{HistogramMinRows: histogramMinRows, MaxCategoricalDims: maxCategoricalDims}
}

// Recommend applies the decision policy in order; ties are broken by column
// declaration order, so the first eligible pairing wins.
func (r *Recommender) Recommend(rs *exec.ResultSet) (*Recommendation, error) {
	if rs == nil || rs.RowCount == 0 {
		return nil, ErrNoRecommendation
	}
	// A single scalar has nothing to plot.
	if len(rs.Columns) == 1 && rs.RowCount == 1 {
		return nil, ErrNoRecommendation
	}

	var numeric, datetime, categorical []string
	for i, name := range rs.Columns {
		switch classifyColumn(rs, i) {
		case classNumeric:
			numeric = append(numeric, name)
		case classDatetime:
			datetime = append(datetime, name)
		case classCategorical:
			categorical = append(categorical, name)
		}
	}

	if r.MaxCategoricalDims > 0 && len(categorical) > r.MaxCategoricalDims {
		return nil, ErrNoRecommendation
	}

	switch {
	case len(numeric) >= 1 && len(datetime) >= 1:
		return &Recommendation{
			Kind:      KindLine,
			X:         datetime[0],
			Y:         numeric,
			Rationale: "numeric series over a datetime axis",
		}, nil
	case len(categorical) >= 1 && len(numeric) >= 1:
		return &Recommendation{
			Kind:      KindBar,
			X:         categorical[0],
			Y:         numeric[:1],
			Rationale: "numeric values per category",
		}, nil
	case len(numeric) == 2:
		return &Recommendation{
			Kind:      KindScatter,
			X:         numeric[0],
			Y:         numeric[1:2],
			Rationale: "relationship between two numeric columns",
		}, nil
	case len(numeric) == 1 && rs.RowCount >= r.HistogramMinRows:
		return &Recommendation{
			Kind:      KindHistogram,
			X:         numeric[0],
			Rationale: "distribution of a single numeric column",
		}, nil
	case len(numeric) > 2:
		return &Recommendation{
			Kind:      KindHeatmap,
			Y:         numeric,
			Rationale: "pairwise correlation of numeric columns",
		}, nil
	}
	return nil, ErrNoRecommendation
}

// classifyColumn inspects the coerced values of one column. Nulls do not
// vote; a column of only nulls is unplottable.
func classifyColumn(rs *exec.ResultSet, idx int) columnClass {
	seen := 0
	numbers := 0
	times := 0
	for _, row := range rs.Rows {
		v := row[idx]
		if v == nil {
			continue
		}
		seen++
		switch v.(type) {
		case int64, float64:
			numbers++
		case time.Time:
			times++
		}
	}
	switch {
	case seen == 0:
		return classEmpty
	case numbers == seen:
		return classNumeric
	case times == seen:
		return classDatetime
	default:
		return classCategorical
	}
}
