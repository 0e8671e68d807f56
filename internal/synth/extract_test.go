package synth_test

import (
	"testing"

	"github.com/datasage/datasage/internal/synth"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "sql fence",
			text: "Here is the query:\n```sql\nSELECT region FROM orders\n```\nDone.",
			want: "SELECT region FROM orders",
		},
		{
			name: "sql fence with explanation line",
			text: "```sql\nSELECT region FROM orders\n-- explanation: regions of all orders\n```",
			want: "SELECT region FROM orders",
		},
		{
			name: "plain fence",
			text: "```\nSELECT region FROM orders\n```",
			want: "SELECT region FROM orders",
		},
		{
			name: "fence with language tag",
			text: "```duckdb\nSELECT region FROM orders\n```",
			want: "SELECT region FROM orders",
		},
		{
			name: "bare statement in prose",
			text: "The answer is computed by SELECT region, SUM(sales) FROM orders GROUP BY region LIMIT 100 which groups by region.",
			want: "SELECT region, SUM(sales) FROM orders GROUP BY region LIMIT 100",
		},
		{
			name: "cte without fence",
			text: "WITH t AS (SELECT region FROM orders) SELECT region FROM t LIMIT 50",
			want: "WITH t AS (SELECT region FROM orders) SELECT region FROM t LIMIT 50",
		},
		{
			name: "trailing semicolon stripped",
			text: "```sql\nSELECT region FROM orders;\n```",
			want: "SELECT region FROM orders",
		},
		{
			name: "no query at all",
			text: "I cannot answer that question from this data.",
			want: "",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := synth.ExtractSQL(tt.text); got != tt.want {
				t.Errorf("ExtractSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}
