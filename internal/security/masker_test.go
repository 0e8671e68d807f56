package security_test

import (
	"strings"
	"testing"

	"github.com/datasage/datasage/internal/exec"
	"github.com/datasage/datasage/internal/security"
)

func TestMaskEmail(t *testing.T) {
	m := security.NewDataMasker([]string{"email"})
	rs := &exec.ResultSet{
		Columns:  []string{"email", "name"},
		Rows:     [][]any{{"john.doe@example.com", "John"}},
		RowCount: 1,
	}
	masked := m.Mask(rs)

	got, _ := masked.Rows[0][0].(string)
	if got == "john.doe@example.com" {
		t.Errorf("email should be masked, got %q", got)
	}
	if !strings.HasPrefix(got, "jo") || !strings.HasSuffix(got, ".com") {
		t.Errorf("masked email should keep a prefix and the extension, got %q", got)
	}
	if masked.Rows[0][1] != "John" {
		t.Error("non-sensitive column should not be masked")
	}
}

func TestMaskPhoneKeepsLastFour(t *testing.T) {
	m := security.NewDataMasker([]string{"phone"})
	rs := &exec.ResultSet{
		Columns:  []string{"phone"},
		Rows:     [][]any{{"08123456789"}},
		RowCount: 1,
	}
	got, _ := m.Mask(rs).Rows[0][0].(string)
	if !strings.HasSuffix(got, "6789") {
		t.Errorf("masked phone should keep the last four digits, got %q", got)
	}
	if strings.Contains(got, "0812345") {
		t.Errorf("masked phone leaks digits: %q", got)
	}
}

func TestMaskFullForSecrets(t *testing.T) {
	m := security.NewDataMasker(nil)
	rs := &exec.ResultSet{
		Columns:  []string{"password"},
		Rows:     [][]any{{"hunter2"}},
		RowCount: 1,
	}
	if got := m.Mask(rs).Rows[0][0]; got != "***" {
		t.Errorf("password column should be fully masked, got %v", got)
	}
}

func TestMaskPreservesNulls(t *testing.T) {
	m := security.NewDataMasker([]string{"email"})
	rs := &exec.ResultSet{
		Columns:  []string{"email"},
		Rows:     [][]any{{nil}},
		RowCount: 1,
	}
	if got := m.Mask(rs).Rows[0][0]; got != nil {
		t.Errorf("null should stay null, got %v", got)
	}
}

func TestMaskNilResultSet(t *testing.T) {
	m := security.NewDataMasker(nil)
	if got := m.Mask(nil); got != nil {
		t.Errorf("Mask(nil) = %v, want nil", got)
	}
}
