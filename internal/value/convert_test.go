package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridpred/internal/queryerr"
)

func TestConvertSameDomain(t *testing.T) {
	ref, bound, err := Convert(Int(5), Int(7))
	require.NoError(t, err)
	assert.Equal(t, Int(5), ref)
	assert.Equal(t, Int(7), bound)
}

func TestConvertNumericWidening(t *testing.T) {
	ref, bound, err := Convert(Int(5), Float(5.5))
	require.NoError(t, err)
	c, err := Compare(ref, bound)
	require.NoError(t, err)
	assert.Negative(t, c)

	ref, bound, err = Convert(Float(2.0), Int(2))
	require.NoError(t, err)
	c, err = Compare(ref, bound)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestConvertParsesStringBounds(t *testing.T) {
	tests := []struct {
		name  string
		ref   Value
		bound Value
		want  Value
	}{
		{"int from string", Int(1), String("18"), Int(18)},
		{"float from string", Float(1), String(" 1.5 "), Float(1.5)},
		{"bool from string", Bool(false), String("TRUE"), Bool(true)},
		{"time from string", NewTime(time.Now()), String("2024-01-01T00:00:00Z"),
			NewTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))},
		{"time from millis", NewTime(time.Now()), Int(1000), NewTime(time.UnixMilli(1000))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, bound, err := Convert(tc.ref, tc.bound)
			require.NoError(t, err)
			assert.Equal(t, tc.want, bound)
		})
	}
}

func TestConvertTypeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		ref   Value
		bound Value
	}{
		{"int vs bool", Int(1), Bool(true)},
		{"string vs int", String("18"), Int(18)},
		{"int vs unparsable string", Int(1), String("abc")},
		{"bool vs garbage", Bool(true), String("maybe")},
		{"time vs bad string", NewTime(time.Now()), String("tomorrow")},
		{"enum vs int", Enum{Name: "RED"}, Int(1)},
		{"null reference", Null{}, Int(1)},
		{"nil reference", nil, Int(1)},
		{"null bound", Int(1), Null{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Convert(tc.ref, tc.bound)
			require.Error(t, err)
			assert.True(t, queryerr.IsTypeMismatch(err), "got %v", err)
		})
	}
}

func TestEnumNormalization(t *testing.T) {
	// Same symbolic meaning, different declared representation.
	ref, bound, err := Convert(Enum{Type: "Color", Name: "RED"}, String("RED"))
	require.NoError(t, err)
	c, err := Compare(ref, bound)
	require.NoError(t, err)
	assert.Zero(t, c)

	ref, bound, err = Convert(String("RED"), Enum{Type: "Other", Name: "RED"})
	require.NoError(t, err)
	c, err = Compare(ref, bound)
	require.NoError(t, err)
	assert.Zero(t, c)

	assert.Equal(t, String("GREEN"), Canonical(Enum{Type: "Color", Name: "GREEN"}))
}

func TestStringNFCNormalization(t *testing.T) {
	composed := String("caf\u00e9")
	decomposed := String("cafe\u0301")

	c, err := Compare(composed, decomposed)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestCompareSignedOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", Int(1), Int(2), -1},
		{"int equal", Int(2), Int(2), 0},
		{"int greater", Int(3), Int(2), 1},
		{"float", Float(1.5), Float(1.25), 1},
		{"string", String("a"), String("b"), -1},
		{"bool", Bool(false), Bool(true), -1},
		{"bool equal", Bool(true), Bool(true), 0},
		{"time", NewTime(time.Unix(10, 0)), NewTime(time.Unix(5, 0)), 1},
		{"int vs fractional float", Int(64), Float(64.5), -1},
		{"float vs int", Float(64.5), Int(64), 1},
		{"negative fraction", Int(-3), Float(-3.5), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, sign(got))
		})
	}
}

func TestCompareBool(t *testing.T) {
	tests := []struct {
		a, b Bool
		want int
	}{
		{false, true, -1},
		{true, false, 1},
		{true, true, 0},
		{false, false, 0},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v vs %v", tt.a, tt.b)
	}
}

func TestCompareIntFloatExactness(t *testing.T) {
	// 2^53 + 1 is not representable as float64; widening would say equal.
	big := Int(1<<53 + 1)
	c, err := Compare(big, Float(1<<53))
	require.NoError(t, err)
	assert.Equal(t, 1, sign(c))

	c, err = Compare(Int(math.MaxInt64), Float(twoTo63))
	require.NoError(t, err)
	assert.Equal(t, -1, sign(c))

	c, err = Compare(Int(math.MinInt64), Float(-twoTo63))
	require.NoError(t, err)
	assert.Zero(t, c)

	c, err = Compare(Int(math.MinInt64), Float(math.Inf(-1)))
	require.NoError(t, err)
	assert.Equal(t, 1, sign(c))
}

func TestCompareNaN(t *testing.T) {
	nan := Float(math.NaN())

	c, err := Compare(nan, Float(-1e300))
	require.NoError(t, err)
	assert.Equal(t, -1, sign(c))

	c, err = Compare(Int(math.MinInt64), nan)
	require.NoError(t, err)
	assert.Equal(t, 1, sign(c))

	c, err = Compare(nan, nan)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestCompareTypeMismatch(t *testing.T) {
	_, err := Compare(Int(1), String("1"))
	assert.True(t, queryerr.IsTypeMismatch(err))

	_, err = Compare(Null{}, Null{})
	assert.True(t, queryerr.IsTypeMismatch(err))
}

func TestOrderIsTotal(t *testing.T) {
	values := []Value{
		String("b"), Int(2), Null{}, Bool(true), Float(1.5),
		NewTime(time.Unix(0, 0)), Enum{Name: "a"},
	}
	for _, a := range values {
		assert.Zero(t, Order(a, a))
		for _, b := range values {
			assert.Equal(t, -sign(Order(b, a)), sign(Order(a, b)), "%s vs %s", Format(a), Format(b))
		}
	}
	assert.Negative(t, Order(Null{}, Bool(false)))
	assert.Negative(t, Order(Float(1.5), Int(2)))
	assert.Negative(t, Order(Enum{Name: "a"}, String("b")))
}

func TestComparable(t *testing.T) {
	assert.True(t, Comparable(Int(1), Float(2)))
	assert.True(t, Comparable(Enum{Name: "A"}, String("A")))
	assert.False(t, Comparable(Int(1), String("1")))
	assert.False(t, Comparable(nil, Int(1)))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
