package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"bool", Bool(true), "true"},
		{"int", Int(-42), "-42"},
		{"integral float", Float(42), "42"},
		{"fractional float", Float(0.5), "0.5"},
		{"nan", Float(math.NaN()), `{"float":"NaN"}`},
		{"inf", Float(math.Inf(1)), `{"float":"+Inf"}`},
		{"string no html escape", String("<a&b>"), `"<a&b>"`},
		{"enum as name", Enum{Type: "Color", Name: "RED"}, `"RED"`},
		{"time", NewTime(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), `{"time":"2024-01-02T03:04:05Z"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonicalNFC(t *testing.T) {
	a, err := MarshalCanonical(String("caf\u00e9"))
	require.NoError(t, err)
	b, err := MarshalCanonical(String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprintMatchesCompareEquality(t *testing.T) {
	equalPairs := [][2]Value{
		{Int(7), Float(7)},
		{Enum{Type: "Color", Name: "RED"}, String("RED")},
		{String("caf\u00e9"), String("cafe\u0301")},
	}
	for _, p := range equalPairs {
		fa, err := Fingerprint(p[0])
		require.NoError(t, err)
		fb, err := Fingerprint(p[1])
		require.NoError(t, err)
		assert.Equal(t, fa, fb, "%s vs %s", Format(p[0]), Format(p[1]))
	}

	// Same canonical text, different domains.
	fi, err := Fingerprint(Int(1))
	require.NoError(t, err)
	fb, err := Fingerprint(Bool(true))
	require.NoError(t, err)
	fs, err := Fingerprint(String("1"))
	require.NoError(t, err)
	assert.NotEqual(t, fi, fs)
	assert.NotEqual(t, fi, fb)
	assert.Len(t, fi, 64)
}
