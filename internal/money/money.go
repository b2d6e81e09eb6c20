// Package money represents wallet amounts as integer kobo.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a quantity of Nigerian naira expressed in kobo (1/100 naira).
type Amount int64

// KoboPerNaira is the number of minor units in one naira.
const KoboPerNaira = 100

var (
	// ErrInvalid is returned when the input is not a decimal number.
	ErrInvalid = errors.New("money: not a number")
	// ErrNotPositive is returned for zero or negative amounts.
	ErrNotPositive = errors.New("money: amount must be positive")
	// ErrPrecision is returned when the input has more than two fractional digits.
	ErrPrecision = errors.New("money: more than two decimal places")
	// ErrTooLarge is returned when the amount does not fit in kobo as int64.
	ErrTooLarge = errors.New("money: amount too large")
)

var (
	hundred = decimal.NewFromInt(KoboPerNaira)
	maxKobo = decimal.NewFromInt(math.MaxInt64)
)

// Naira builds an Amount from whole naira.
func Naira(n int64) Amount { return Amount(n * KoboPerNaira) }

// ParseNaira parses user input such as "500", "1,000" or "₦250.50" into an Amount.
func ParseNaira(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "₦")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalid
	}
	return FromDecimal(d)
}

// FromDecimal converts a naira decimal into kobo.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	kobo := d.Mul(hundred)
	if !kobo.Equal(kobo.Truncate(0)) {
		return 0, ErrPrecision
	}
	if !kobo.IsPositive() {
		return 0, ErrNotPositive
	}
	if kobo.GreaterThan(maxKobo) {
		return 0, ErrTooLarge
	}
	return Amount(kobo.IntPart()), nil
}

// Decimal returns the amount in naira.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// Kobo returns the raw minor-unit value.
func (a Amount) Kobo() int64 { return int64(a) }

// NairaString renders the naira value without a currency symbol, dropping
// fractional zeros ("500", "250.5").
func (a Amount) NairaString() string {
	return a.Decimal().String()
}

// String renders the amount as "₦1,234.50".
func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	whole := groupThousands(fmt.Sprintf("%d", v/KoboPerNaira))
	out := fmt.Sprintf("₦%s.%02d", whole, v%KoboPerNaira)
	if neg {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
