// Package core provides money parsing and handling utilities.
//
// This file converts between the decimal strings found in forms and sheet
// cells and the integer cents used for every calculation.
package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ErrAmountOutOfRange reports an amount too large to hold as int64 cents.
// It matches ErrInvalidAmount under errors.Is.
var ErrAmountOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidAmount)

var maxCents = decimal.NewFromInt(math.MaxInt64)

var hundred = decimal.NewFromInt(100)

// ParseDecimalToCents converts a form amount to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount (complimentary stays); signs, thousands separators and
// anything that is not a plain decimal are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
//	ParseDecimalToCents("0")      -> 0, nil
//	ParseDecimalToCents("-1")     -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return 0, ErrInvalidAmount
		}
	}
	if s == "." {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return toCents(d)
}

// ParseAmount reads a money cell as it may appear in a spreadsheet:
// "1000", "1000.5", "R$ 1.234,56", "1,234.56", "R$ 1.500". A lone separator
// followed by exactly three digits groups thousands. Negative values are
// returned as such; callers decide whether they are acceptable.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	if strings.Count(s, ".")+strings.Count(s, ",") == 1 {
		i := strings.IndexAny(s, ".,")
		if len(s)-i-1 == 3 && isGroupHead(s[:i]) {
			s = s[:i] + s[i+1:]
		}
	}

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, ErrAmountOutOfRange
	}
	return Money{Cents: cents.IntPart()}, nil
}

// isGroupHead reports whether s can lead a thousands-grouped number:
// an optional minus sign and one to three digits not starting with zero.
func isGroupHead(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if len(s) == 0 || len(s) > 3 || s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func toCents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	// Guard against overflow when the value is converted to int64 cents.
	if d.GreaterThan(decimal.NewFromInt((1<<63 - 1) / 100)) {
		return 0, ErrAmountOutOfRange
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// Decimal returns the amount in reais as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Reais returns the value as a float64 for display and for writing numeric
// sheet cells. Use cents for calculations.
func (m Money) Reais() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount the Brazilian way, e.g. "R$ 1.234,56".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	if neg {
		return "-R$ " + b.String() + "," + frac
	}
	return "R$ " + b.String() + "," + frac
}
