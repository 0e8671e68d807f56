package schema

import "testing"

func TestInferType(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		distinct int
		rowCount int64
		want     ColumnType
	}{
		{"integers", []string{"1", "2", "3"}, 3, 1000, TypeNumeric},
		{"floats", []string{"1.5", "-2.25", "3e4"}, 3, 1000, TypeNumeric},
		{"iso dates", []string{"2024-01-01", "2024-06-15"}, 2, 1000, TypeDatetime},
		{"timestamps", []string{"2024-01-01T10:00:00Z", "2024-06-15T08:30:00Z"}, 2, 1000, TypeDatetime},
		{"us dates", []string{"01/02/2024", "11/30/2024"}, 2, 1000, TypeDatetime},
		{"low cardinality strings", []string{"north", "south", "north"}, 2, 1000, TypeCategorical},
		{"high cardinality strings", []string{"a9f3", "b831", "c7d2"}, 900, 1000, TypeText},
		{"mixed types fall back", []string{"1", "north"}, 2, 1000, TypeCategorical},
		{"empty strings ignored", []string{"", "1", ""}, 1, 1000, TypeNumeric},
		{"all empty is text", []string{"", ""}, 0, 1000, TypeText},
		{"small table few distinct", []string{"yes", "no"}, 2, 12, TypeCategorical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inferType(tt.values, tt.distinct, tt.rowCount, 0.2)
			if got != tt.want {
				t.Errorf("inferType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstSamples(t *testing.T) {
	values := []string{"a", "", "b", "a", "c", "d"}
	got := firstSamples(values, 3)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("firstSamples() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("firstSamples()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
