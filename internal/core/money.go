// Package core provides money parsing and handling utilities.
//
// This file contains the parser used for amounts typed by users. Amounts
// are kept as decimals end to end; floats never enter the ledger.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-typed amount into a positive decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When
// both appear, the last one is the decimal separator and the other is
// treated as a thousands separator (1.234,56 and 1,234.56 are both 1234.56).
// Signs are rejected: the sign of a ledger amount comes from its type.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1.234,56") -> 1234.56, nil
//	ParseAmount("-5")       -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "must not be empty")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, NewValidationError("amount", "must be a positive number")
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}

	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, NewValidationError("amount", "must be numeric")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "must be numeric")
	}
	if err := validatePositive("amount", d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
