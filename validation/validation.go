// Package validation collects per-field input violations as i18n codes.
package validation

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to the i18n code of its first problem.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has one.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// RequiredID flags a missing foreign key.
func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

func MaxLength(field, value string, max int, v Violations) {
	if len([]rune(value)) > max {
		v.Add(field, "out_of_range")
	}
}

func MinLength(field, value string, min int, v Violations) {
	if len([]rune(value)) < min {
		v.Add(field, "too_short")
	}
}

func NonNegativeInt(field string, val int, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

// Decimal parses a money string, flagging an invalid or negative amount.
func Decimal(field, value string, v Violations) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		v.Add(field, "invalid_number")
		return decimal.Zero
	}
	NonNegativeDecimal(field, d, v)
	return d
}

// Email accepts an empty value; otherwise it must be a bare address.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.Add(field, "invalid_email")
	}
}
