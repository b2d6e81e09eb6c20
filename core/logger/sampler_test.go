package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatioSamplerLetsNumeratorThrough(t *testing.T) {
	s := newRatioSampler(2, 5)
	var passed int
	for i := 0; i < 20; i++ {
		if s.Allow() {
			passed++
		}
	}
	assert.Equal(t, 8, passed)

	s.Set(0, 0)
	assert.True(t, s.Allow())
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		" 50 ": {1, 50},
		"":     {0, 0},
		"0":    {0, 0},
		"a/b":  {0, 0},
	}
	for ratio, want := range cases {
		num, den := parseRatio(ratio)
		assert.Equal(t, want, [2]int{num, den}, ratio)
	}
}
