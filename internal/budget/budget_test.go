package budget

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateIsFloorOfQuarterLength(t *testing.T) {
	e := New(0)
	for n := 0; n < 64; n++ {
		text := strings.Repeat("x", n)
		require.Equal(t, n/4, e.Estimate(text), "length %d", n)
	}
}

func TestEstimateMonotonic(t *testing.T) {
	e := New(4)
	prev := 0
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("é")
		got := e.Estimate(b.String())
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
	require.Equal(t, 50, prev, "code points, not bytes")
}

func TestEstimateValueStringifies(t *testing.T) {
	e := New(4)
	require.Equal(t, 0, e.EstimateValue(nil))
	require.Equal(t, 2, e.EstimateValue(12345678))
	require.Equal(t, 1, e.EstimateValue([]byte("abcd")))
	require.Equal(t, e.Estimate("map[a:1]"), e.EstimateValue(map[string]int{"a": 1}))
}

func TestCharCeilingUsesSameRatio(t *testing.T) {
	e := New(4)
	require.Equal(t, 880_000, e.CharCeiling(220_000))
	require.Equal(t, 0, e.CharCeiling(0))
	require.Equal(t, 30, New(3).CharCeiling(10))
}

func TestCheck(t *testing.T) {
	e := New(4)
	tokens, err := e.Check(strings.Repeat("a", 40), 10)
	require.NoError(t, err)
	require.Equal(t, 10, tokens)

	tokens, err = e.Check(strings.Repeat("a", 44), 10)
	require.True(t, errors.Is(err, ErrBudgetExceeded))
	require.Equal(t, 11, tokens)
}

func TestTruncateSuffixKeepsTail(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5000; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	log := b.String()

	got, cut := TruncateSuffix(log, 1000)
	require.True(t, cut)
	require.Equal(t, log[len(log)-1000:], got)

	same, cut := TruncateSuffix(log, 5000)
	require.False(t, cut)
	require.Equal(t, log, same)

	same, cut = TruncateSuffix(log, 0)
	require.False(t, cut)
	require.Equal(t, log, same)
}

func TestTruncateSuffixRespectsRuneBoundaries(t *testing.T) {
	got, cut := TruncateSuffix("ααββγγ", 2)
	require.True(t, cut)
	require.Equal(t, "γγ", got)

	got, cut = TruncateSuffix("ab", 4)
	require.False(t, cut)
	require.Equal(t, "ab", got)
}
