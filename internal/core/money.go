// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and euro representations.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// maxCents bounds parsed amounts so that sums of a month stay well inside int64.
const maxCents = int64(1) << 53

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// Only plain positive decimals; decimal.NewFromString would also take signs and exponents.
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// Euros returns the euro value as a float64 for display purposes.
// Note: Use cents for calculations to avoid floating-point precision issues.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// WholeEuros rounds the amount to whole currency units with halves going
// up, like RoundHalfUp: 12.50 is 13 and -12.50 is -12.
func (m Money) WholeEuros() int64 {
	return decimal.New(m.Cents, -2).Add(decimal.New(5, -1)).Floor().IntPart()
}

// FormatCurrency renders an amount the French way with no decimals: "1 234 €".
func FormatCurrency(m Money) string {
	units := m.WholeEuros()
	neg := units < 0
	if neg {
		units = -units
	}
	digits := strconv.FormatInt(units, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteString(" €")
	return b.String()
}

// RoundHalfUp rounds to the nearest integer with halves going toward +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
