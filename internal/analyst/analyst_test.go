package analyst_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/chart"
	"github.com/datasage/datasage/internal/config"
	"github.com/datasage/datasage/internal/llm"
	"github.com/datasage/datasage/internal/session"
	"github.com/datasage/datasage/internal/source"
	"github.com/datasage/datasage/internal/synth"
)

type mockSource struct {
	db *sql.DB
}

func (m *mockSource) Name() string            { return "sales.csv" }
func (m *mockSource) Dialect() source.Dialect { return source.DialectDuckDB }
func (m *mockSource) DB() *sql.DB             { return m.db }
func (m *mockSource) TableNames(ctx context.Context) ([]string, error) {
	return []string{"orders"}, nil
}
func (m *mockSource) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }
func (m *mockSource) Close() error                   { return m.db.Close() }

func testConfig() *config.Config {
	return &config.Config{
		HistoryWindow:      6,
		MaxHistory:         50,
		MaxUtteranceLen:    2000,
		RowLimitCeiling:    100,
		ExecTimeoutMs:      1000,
		MaxSubqueryDepth:   3,
		SampleValues:       5,
		CategoricalRatio:   0.2,
		HistogramMinRows:   20,
		MaxCategoricalDims: 3,
	}
}

func newAnalyst(t *testing.T, reply string) (*analyst.Analyst, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	client := llm.ClientFunc(func(ctx context.Context, system, user string) (string, error) {
		return reply, nil
	})
	a := analyst.New(testConfig(), client)
	a.SetSource(&mockSource{db: db})
	return a, mock
}

// expectIntrospection queues the schema discovery queries for the orders
// table.
func expectIntrospection(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" LIMIT 100`)).
		WillReturnRows(sqlmock.NewRows([]string{"region", "sales"}).
			AddRow("north", int64(120)).
			AddRow("south", int64(80)))
}

func TestAskHappyPath(t *testing.T) {
	reply := "```sql\nSELECT region, SUM(sales) AS total FROM orders GROUP BY region\n```\n" +
		"-- explanation: total sales for each region"
	a, mock := newAnalyst(t, reply)
	expectIntrospection(mock)

	sanitized := "SELECT region, SUM(sales) AS total FROM orders GROUP BY region LIMIT 100"
	mock.ExpectQuery(regexp.QuoteMeta(sanitized)).
		WillReturnRows(sqlmock.NewRows([]string{"region", "total"}).
			AddRow("north", int64(120)).
			AddRow("south", int64(80)))

	sess := session.New(50)
	answer, err := a.Ask(context.Background(), "show total sales by region", sess)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if answer.SQL != sanitized {
		t.Errorf("SQL = %q, want %q", answer.SQL, sanitized)
	}
	if answer.Intent != synth.IntentAggregate {
		t.Errorf("Intent = %q, want aggregate", answer.Intent)
	}
	if answer.Explanation != "total sales for each region" {
		t.Errorf("Explanation = %q", answer.Explanation)
	}
	if answer.Result.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", answer.Result.RowCount)
	}
	if answer.Chart == nil || answer.Chart.Kind != chart.KindBar {
		t.Errorf("Chart = %+v, want a bar recommendation", answer.Chart)
	}

	turns := sess.Recent(0)
	if len(turns) != 2 {
		t.Fatalf("session turns = %d, want 2", len(turns))
	}
	if turns[0].Role != session.RoleUser || turns[1].Role != session.RoleAssistant {
		t.Errorf("turn roles = %q %q", turns[0].Role, turns[1].Role)
	}
	if turns[1].ResultSummary != "2 rows" {
		t.Errorf("ResultSummary = %q", turns[1].ResultSummary)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestAskRejectsMutationBeforeExecution(t *testing.T) {
	a, mock := newAnalyst(t, "```sql\nDELETE FROM orders\n```")
	expectIntrospection(mock)

	_, err := a.Ask(context.Background(), "delete all records", session.New(50))
	if err == nil {
		t.Fatal("mutation statements must be rejected")
	}
	var te *analyst.TranslationError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *TranslationError", err)
	}
	if te.Kind != analyst.KindUnsafeStatement {
		t.Errorf("Kind = %q, want %q", te.Kind, analyst.KindUnsafeStatement)
	}
	// Only the introspection queries may have run.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("rejected statement reached the database: %v", err)
	}
}

func TestAskRejectsUnknownIdentifier(t *testing.T) {
	a, mock := newAnalyst(t, "```sql\nSELECT revenue FROM orders\n```")
	expectIntrospection(mock)

	_, err := a.Ask(context.Background(), "show revenue", session.New(50))
	var te *analyst.TranslationError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TranslationError", err)
	}
	if te.Kind != analyst.KindUnknownIdentifier {
		t.Errorf("Kind = %q, want %q", te.Kind, analyst.KindUnknownIdentifier)
	}
}

func TestAskEmptyUtterance(t *testing.T) {
	a, _ := newAnalyst(t, "")
	_, err := a.Ask(context.Background(), "   ", session.New(50))
	var te *analyst.TranslationError
	if !errors.As(err, &te) || te.Kind != analyst.KindInvalidRequest {
		t.Errorf("error = %v, want invalid_request", err)
	}
}

func TestAskWithoutSource(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, system, user string) (string, error) {
		return "", nil
	})
	a := analyst.New(testConfig(), client)

	_, err := a.Ask(context.Background(), "anything", session.New(50))
	var te *analyst.TranslationError
	if !errors.As(err, &te) || te.Kind != analyst.KindSourceUnavailable {
		t.Errorf("error = %v, want source_unavailable", err)
	}
}

func TestAskSynthesisFailureCarriesRawOutput(t *testing.T) {
	a, mock := newAnalyst(t, "I am sorry, I cannot help with that.")
	expectIntrospection(mock)

	_, err := a.Ask(context.Background(), "show sales", session.New(50))
	var te *analyst.TranslationError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TranslationError", err)
	}
	if te.Kind != analyst.KindSynthesisFailure {
		t.Errorf("Kind = %q, want %q", te.Kind, analyst.KindSynthesisFailure)
	}
	if te.Detail == "" {
		t.Error("Detail should carry the raw model output")
	}
}

func TestAskRetriesOnceOnConnectionLoss(t *testing.T) {
	reply := "```sql\nSELECT region FROM orders\n```"
	a, mock := newAnalyst(t, reply)
	expectIntrospection(mock)

	sanitized := "SELECT region FROM orders LIMIT 100"
	mock.ExpectQuery(regexp.QuoteMeta(sanitized)).
		WillReturnError(errors.New("read tcp: connection reset by peer"))
	mock.ExpectQuery(regexp.QuoteMeta(sanitized)).
		WillReturnRows(sqlmock.NewRows([]string{"region"}).AddRow("north"))

	answer, err := a.Ask(context.Background(), "list regions", session.New(50))
	if err != nil {
		t.Fatalf("Ask() should succeed after one retry, got %v", err)
	}
	if answer.Result.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", answer.Result.RowCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestRunSQLGoesThroughValidator(t *testing.T) {
	a, mock := newAnalyst(t, "")
	expectIntrospection(mock)

	_, err := a.RunSQL(context.Background(), "DROP TABLE orders")
	var te *analyst.TranslationError
	if !errors.As(err, &te) || te.Kind != analyst.KindUnsafeStatement {
		t.Errorf("error = %v, want unsafe_statement", err)
	}
}

func TestRunSQLExecutes(t *testing.T) {
	a, mock := newAnalyst(t, "")
	expectIntrospection(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT region FROM orders LIMIT 100")).
		WillReturnRows(sqlmock.NewRows([]string{"region"}).AddRow("north"))

	rs, err := a.RunSQL(context.Background(), "SELECT region FROM orders")
	if err != nil {
		t.Fatalf("RunSQL() error = %v", err)
	}
	if rs.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", rs.RowCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
