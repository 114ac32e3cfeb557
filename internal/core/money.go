// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Parsing and percentage arithmetic go
// through shopspring/decimal so that user input and REAL columns round the
// same way.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative and malformed values are rejected with a ValidationError;
// zero is accepted and left to the caller's own range checks.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("-1")     -> error
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, NewValidationError("amount", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, NewValidationError("amount", ErrInvalidAmount)
	}
	if d.IsNegative() {
		return Money{}, NewValidationError("amount", ErrNegativeAmount)
	}

	cents := d.Round(2).Shift(2)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, NewValidationError("amount", ErrAmountTooLarge)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// maxCents bounds a single amount and any total built with Add. Stored
// values up to it read back well inside int64 cents.
const maxCents = math.MaxInt64 / 100

var (
	minInt64Cents = decimal.NewFromInt(math.MinInt64)
	maxInt64Cents = decimal.NewFromInt(math.MaxInt64)
)

// MoneyFromFloat converts a stored REAL value to Money, rounding half away from zero.
// Values that do not fit in int64 cents return ErrAmountTooLarge.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, fmt.Errorf("stored amount %v: %w", f, ErrInvalidAmount)
	}
	cents := decimal.NewFromFloat(f).Round(2).Shift(2)
	if cents.GreaterThan(maxInt64Cents) || cents.LessThan(minInt64Cents) {
		return Money{}, fmt.Errorf("stored amount %v: %w", f, ErrAmountTooLarge)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float64 returns the amount for storage in REAL columns.
// Use cents for calculations.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m+o. It fails with ErrAmountTooLarge when the sum leaves the
// range ParseAmount accepts.
func (m Money) Add(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > maxCents-o.Cents) || (o.Cents < 0 && m.Cents < -maxCents-o.Cents) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// SubFloor subtracts o and clamps the result at zero.
func (m Money) SubFloor(o Money) Money {
	if o.Cents >= m.Cents {
		return Money{}
	}
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool { return m.Cents == 0 }

// Percent returns part/whole*100, or 0 when whole is zero.
func Percent(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(part.Cents).
		Div(decimal.NewFromInt(whole.Cents)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()
}

// RoundPercent rounds p half away from zero to two decimal places.
func RoundPercent(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}
