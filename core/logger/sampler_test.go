package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	var passed []bool
	for i := 0; i < 10; i++ {
		passed = append(passed, s.Allow())
	}
	assert.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, passed)

	s.Set(0, 0)
	for i := 0; i < 3; i++ {
		assert.True(t, s.Allow())
	}

	s.Set(9, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, s.Allow(), "keep is capped at every")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"":      {0, 0},
		"50":    {1, 50},
		"1/10":  {1, 10},
		" 3/4 ": {3, 4},
		"-2":    {0, 0},
		"x/2":   {0, 0},
		"junk":  {0, 0},
	}
	for spec, want := range cases {
		k, n := parseRatioSpec(spec)
		assert.Equal(t, want, [2]int{k, n}, spec)
	}
}
