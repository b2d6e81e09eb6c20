package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNaira(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
		err  error
	}{
		{in: "500", want: 50000},
		{in: " 1,000 ", want: 100000},
		{in: "₦250.5", want: 25050},
		{in: "0.01", want: 1},
		{in: "12.345", err: ErrPrecision},
		{in: "0", err: ErrNotPositive},
		{in: "-20", err: ErrNotPositive},
		{in: "abc", err: ErrInvalid},
		{in: "", err: ErrInvalid},
		{in: "92233720368547758.07", want: Amount(math.MaxInt64)},
		{in: "92233720368547758.08", err: ErrTooLarge},
		{in: "4611686018427388004", err: ErrTooLarge},
		{in: "100000000000000000000", err: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNaira(tt.in)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountFormatting(t *testing.T) {
	assert.Equal(t, "₦0.50", Amount(50).String())
	assert.Equal(t, "₦1,234,567.89", Amount(123456789).String())
	assert.Equal(t, "-₦10.00", Amount(-1000).String())
	assert.Equal(t, "500", Naira(500).NairaString())
	assert.Equal(t, "250.5", Amount(25050).NairaString())
}

func TestFromDecimalRoundTrip(t *testing.T) {
	a, err := FromDecimal(decimal.RequireFromString("99.99"))
	require.NoError(t, err)
	assert.Equal(t, int64(9999), a.Kobo())
	assert.True(t, a.Decimal().Equal(decimal.RequireFromString("99.99")))
}
