package value

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/gridpred/internal/queryerr"
)

// family groups kinds that share an ordering domain.
type family uint8

const (
	familyNone family = iota
	familyBool
	familyNumeric
	familyText
	familyTime
)

func familyOf(k Kind) family {
	switch k {
	case KindBool:
		return familyBool
	case KindInt, KindFloat:
		return familyNumeric
	case KindString, KindEnum:
		return familyText
	case KindTime:
		return familyTime
	default:
		return familyNone
	}
}

// Canonical normalizes symbolic values to their comparable representation:
// Enum becomes the String of its name, and strings are NFC normalized.
// Other variants are returned unchanged.
func Canonical(v Value) Value {
	switch val := v.(type) {
	case Enum:
		return String(norm.NFC.String(val.Name))
	case String:
		return String(norm.NFC.String(string(val)))
	case nil:
		return Null{}
	default:
		return v
	}
}

// Convert brings a reference value (the attribute value under test) and a
// bound value into a common comparable domain. Both results are canonical.
//
// The bound is converted into the reference's domain: a String bound is
// parsed when the reference is numeric, boolean or temporal, and an Int
// bound is read as unix milliseconds against a Time reference. Int and Float
// share the numeric domain and are compared exactly by Compare.
//
// Returns a TYPE_MISMATCH error when no common domain exists, including when
// either side is Null.
func Convert(ref, bound Value) (Value, Value, error) {
	if IsNull(ref) {
		return nil, nil, queryerr.TypeMismatch(KindNull.String(), KindOf(bound).String(), "reference is null")
	}
	b, err := ConvertBound(ref.Kind(), bound)
	if err != nil {
		return nil, nil, err
	}
	return Canonical(ref), b, nil
}

// ConvertBound converts bound into the domain of a reference of kind ref.
// Ordered indexes use it to normalize query bounds against their declared
// kind.
func ConvertBound(ref Kind, bound Value) (Value, error) {
	if IsNull(bound) {
		return nil, queryerr.TypeMismatch(ref.String(), KindNull.String(), "bound is null")
	}
	bound = Canonical(bound)

	switch familyOf(ref) {
	case familyNumeric:
		switch b := bound.(type) {
		case Int, Float:
			return b, nil
		case String:
			return parseNumber(ref, string(b))
		}

	case familyText:
		if b, ok := bound.(String); ok {
			return b, nil
		}

	case familyBool:
		switch b := bound.(type) {
		case Bool:
			return b, nil
		case String:
			parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(string(b))))
			if err != nil {
				return nil, queryerr.TypeMismatch(ref.String(), KindString.String(),
					strconv.Quote(string(b))+" is not a boolean")
			}
			return Bool(parsed), nil
		}

	case familyTime:
		switch b := bound.(type) {
		case Time:
			return b, nil
		case Int:
			return NewTime(time.UnixMilli(int64(b))), nil
		case String:
			t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(b)))
			if err != nil {
				return nil, queryerr.TypeMismatch(ref.String(), KindString.String(),
					strconv.Quote(string(b))+" is not an RFC 3339 time")
			}
			return NewTime(t), nil
		}
	}

	return nil, queryerr.TypeMismatch(ref.String(), bound.Kind().String(), "")
}

func parseNumber(ref Kind, s string) (Value, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), nil
	}
	return nil, queryerr.TypeMismatch(ref.String(), KindString.String(),
		strconv.Quote(s)+" is not a number")
}

// Compare returns a negative number when a orders before b, zero when they
// are equal and a positive number otherwise. Inputs are canonicalized first.
//
// Int and Float compare exactly; NaN orders before every other number, as
// with cmp.Compare. Values from different domains yield TYPE_MISMATCH.
func Compare(a, b Value) (int, error) {
	a, b = Canonical(a), Canonical(b)
	if familyOf(a.Kind()) != familyOf(b.Kind()) || familyOf(a.Kind()) == familyNone {
		return 0, queryerr.TypeMismatch(a.Kind().String(), b.Kind().String(), "")
	}
	return compareSameFamily(a, b), nil
}

// Order is a total order over all values: values of one domain are ordered
// by Compare, domains are ordered Null < Bool < numeric < text < Time.
func Order(a, b Value) int {
	a, b = Canonical(a), Canonical(b)
	fa, fb := familyOf(a.Kind()), familyOf(b.Kind())
	if fa != fb {
		return cmp.Compare(fa, fb)
	}
	if fa == familyNone {
		return 0
	}
	return compareSameFamily(a, b)
}

// Comparable reports whether a and b share an ordering domain.
func Comparable(a, b Value) bool {
	fa := familyOf(KindOf(a))
	return fa != familyNone && fa == familyOf(KindOf(b))
}

// compareSameFamily compares canonical values known to share a family.
func compareSameFamily(a, b Value) int {
	switch x := a.(type) {
	case Bool:
		y := b.(Bool)
		switch {
		case x == y:
			return 0
		case !bool(x):
			return -1
		default:
			return 1
		}
	case Int:
		switch y := b.(type) {
		case Int:
			return cmp.Compare(x, y)
		case Float:
			return compareIntFloat(int64(x), float64(y))
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return cmp.Compare(x, y)
		case Int:
			return -compareIntFloat(int64(y), float64(x))
		}
	case String:
		return strings.Compare(string(x), string(b.(String)))
	case Time:
		return x.t.Compare(b.(Time).t)
	}
	return 0
}

// twoTo63 is 2^63, the first float64 above math.MaxInt64.
const twoTo63 = float64(1 << 63)

// compareIntFloat compares an int64 with a float64 without rounding the
// integer.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= twoTo63:
		return -1
	case f < -twoTo63:
		return 1
	}
	t := math.Trunc(f)
	ti := int64(t)
	switch {
	case i < ti:
		return -1
	case i > ti:
		return 1
	case f > t:
		return -1
	case f < t:
		return 1
	default:
		return 0
	}
}
