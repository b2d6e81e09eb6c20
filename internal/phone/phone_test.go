package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "08031234567", Normalize("+234 803 123 4567"))
	assert.Equal(t, "08031234567", Normalize("0803-123-4567"))
	assert.Equal(t, "", Normalize("call me"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		number string
		want   Operator
	}{
		{"08031234567", MTN},
		{"09161234567", MTN},
		{"08021234567", Airtel},
		{"08051234567", Glo},
		{"08091234567", NineMobile},
		{"0803123456", None},
		{"080312345678", None},
		{"01234567890", None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.number), tt.number)
	}
}

func TestPrefixSetsAreDisjointAndComplete(t *testing.T) {
	counts := map[Operator]int{}
	for p, op := range prefixes {
		assert.Len(t, p, 4)
		counts[op]++
	}
	assert.Equal(t, 12, counts[MTN])
	assert.Equal(t, 9, counts[Airtel])
	assert.Equal(t, 7, counts[Glo])
	assert.Equal(t, 5, counts[NineMobile])
}

func TestParseOperator(t *testing.T) {
	assert.Equal(t, NineMobile, ParseOperator("9Mobile"))
	assert.Equal(t, MTN, ParseOperator(" mtn "))
	assert.Equal(t, None, ParseOperator("etisalat"))
	for _, op := range Operators() {
		assert.Equal(t, op, ParseOperator(op.Label()))
	}
	assert.Equal(t, "none", None.String())
}
