// Package core holds the domain model shared by the import pipeline,
// the HTTP layer and the storage backends.
//
// Money is kept in integer cents so that aggregation never goes through
// floating point. Parsing of vendor amounts accepts the German locale
// conventions (comma decimals, dot thousands separators).
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in euro cents.
type Money struct {
	Cents int64
}

var centsFactor = decimal.NewFromInt(100)

// ParseAmountToCents converts a vendor amount string to cents.
//
// Accepted forms: "240", "240,00", "240.00", "1.234,56", "1 234,56".
// A single dot followed by exactly three digits is read as a thousands
// separator ("1.234" -> 123400 cents), matching the vendor's exports.
// Third decimal digits round half-up. Negative amounts are rejected.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		// German form: dots group thousands, comma separates decimals.
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			return 0, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case hasComma:
		if strings.Count(s, ",") > 1 {
			return 0, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case hasDot:
		if strings.Count(s, ".") == 1 {
			if frac := s[strings.Index(s, ".")+1:]; len(frac) == 3 {
				s = strings.ReplaceAll(s, ".", "")
			}
		} else {
			// Multiple dots can only be thousands separators.
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return d.Mul(centsFactor).Round(0).IntPart(), nil
}

// MultiplyCents returns count * unit price without leaving integer math.
func MultiplyCents(price Money, count int) Money {
	return Money{Cents: price.Cents * int64(count)}
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// MarshalJSON renders the amount as a plain integer number of cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	cents, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Cents = cents
	return nil
}

// Euros returns the amount as float64 for display only. Calculations
// stay in cents.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount in the German display form, e.g. "1.234,56 €".
func (m Money) Format() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	euros := c / 100
	rem := c % 100
	intPart := strconv.FormatInt(euros, 10)
	// Insert dot separators every three digits from the right.
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	s := fmt.Sprintf("%s,%02d €", intPart, rem)
	if neg {
		return "-" + s
	}
	return s
}
