// Package security holds the result-masking and audit concerns that sit
// between execution and the caller.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/datasage/datasage/internal/exec"
)

var (
	emailRe      = regexp.MustCompile(`(?i)email`)
	phoneRe      = regexp.MustCompile(`(?i)phone`)
	ssnRe        = regexp.MustCompile(`(?i)ssn|social_security`)
	creditCardRe = regexp.MustCompile(`(?i)credit_card|card_number`)
	fullMaskRe   = regexp.MustCompile(`(?i)password|secret|token|api_key|access_key|private_key`)
)

// DataMasker masks sensitive column values in result sets before they leave
// the service.
type DataMasker struct {
	sensitiveColumns []string
}

func NewDataMasker(sensitiveColumns []string) *DataMasker {
	return &DataMasker{sensitiveColumns: sensitiveColumns}
}

// Mask rewrites sensitive columns in place and returns the result set for
// chaining. Column classification happens once per column, not per cell.
func (m *DataMasker) Mask(rs *exec.ResultSet) *exec.ResultSet {
	if rs == nil {
		return nil
	}
	for i, col := range rs.Columns {
		if !m.isSensitive(col) {
			continue
		}
		for _, row := range rs.Rows {
			if row[i] == nil {
				continue
			}
			row[i] = maskValue(col, fmt.Sprintf("%v", row[i]))
		}
	}
	return rs
}

func (m *DataMasker) isSensitive(col string) bool {
	lower := strings.ToLower(col)
	for _, s := range m.sensitiveColumns {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return emailRe.MatchString(col) || phoneRe.MatchString(col) ||
		ssnRe.MatchString(col) || creditCardRe.MatchString(col) || fullMaskRe.MatchString(col)
}

func maskValue(col, val string) string {
	lower := strings.ToLower(col)
	switch {
	case emailRe.MatchString(lower):
		return maskEmail(val)
	case phoneRe.MatchString(lower):
		return maskPhone(val)
	case ssnRe.MatchString(lower):
		return "***-**-****"
	case creditCardRe.MatchString(lower):
		return maskCreditCard(val)
	default:
		return "***"
	}
}

// maskEmail: "john.doe@example.com" -> "jo***@***.com"
func maskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***"
	}
	local, domain := parts[0], parts[1]

	visible := 2
	if len(local) < visible {
		visible = len(local)
	}
	domainParts := strings.Split(domain, ".")
	ext := domainParts[len(domainParts)-1]
	return fmt.Sprintf("%s***@***.%s", local[:visible], ext)
}

// maskPhone keeps the last four digits.
func maskPhone(phone string) string {
	digits := digitsOf(phone)
	if len(digits) < 4 {
		return "***-***-****"
	}
	return "***-***-" + digits[len(digits)-4:]
}

// maskCreditCard keeps the last four digits.
func maskCreditCard(cc string) string {
	digits := digitsOf(cc)
	if len(digits) < 4 {
		return "****-****-****-****"
	}
	return "****-****-****-" + digits[len(digits)-4:]
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
