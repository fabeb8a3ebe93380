package value

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindEnum
	KindTime
)

var kindNames = map[Kind]string{
	KindNull:   "NULL",
	KindBool:   "BOOL",
	KindInt:    "INT",
	KindFloat:  "FLOAT",
	KindString: "STRING",
	KindEnum:   "ENUM",
	KindTime:   "TIME",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind parses a kind name as produced by Kind.String (case-insensitive).
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// Value is a sealed interface over the comparable variants.
// Only Null, Bool, Int, Float, String, Enum and Time implement it.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// Null represents an absent (SQL NULL) value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value() {}

// Bool is a boolean value. false orders before true.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value() {}

// Int is a 64-bit signed integer value.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value() {}

// Float is a 64-bit floating point value.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value() {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value() {}

// Enum is a symbolic value declared by an enumerated type.
// Two enums with the same Name compare equal regardless of Type.
type Enum struct {
	Type string
	Name string
}

func (Enum) Kind() Kind { return KindEnum }
func (Enum) value() {}

// Time is an instant, stored in UTC without a monotonic reading.
type Time struct {
	t time.Time
}

// NewTime creates a Time value.
func NewTime(t time.Time) Time {
	return Time{t: t.Round(0).UTC()}
}

// Std returns the instant as a time.Time.
func (t Time) Std() time.Time { return t.t }

func (Time) Kind() Kind { return KindTime }
func (Time) value() {}

// IsNull reports whether v is absent: nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// KindOf returns the kind of v, treating nil as KindNull.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// Zero returns the zero value of a kind.
func Zero(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindString:
		return String("")
	case KindEnum:
		return Enum{}
	case KindTime:
		return NewTime(time.Unix(0, 0))
	default:
		return Null{}
	}
}

// Object maps attribute names to values.
type Object map[string]Value

// SortedKeys returns the attribute names in ascending order.
func (o Object) SortedKeys() []string {
	return slices.Sorted(maps.Keys(o))
}

// Format renders v for display: strings are quoted, enums print as
// Type.Name, times as RFC 3339.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case String:
		return strconv.Quote(string(val))
	case Enum:
		if val.Type == "" {
			return val.Name
		}
		return val.Type + "." + val.Name
	case Time:
		return val.t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FromAny converts a decoded Go value (YAML, JSON or literal) to a Value.
//
// Maps with a single "enum" key ("Type.Name" or "Name") become Enum, maps with
// a single "time" key (RFC 3339) become Time. Integers that overflow int64
// are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case time.Time:
		return NewTime(val), nil
	case map[string]any:
		return fromTaggedMap(val)
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

func fromTaggedMap(m map[string]any) (Value, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("tagged value must have exactly one key, got %d", len(m))
	}
	if raw, ok := m["enum"]; ok {
		s, ok := raw.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("enum must be a non-empty string, got %T", raw)
		}
		if i := strings.LastIndexByte(s, '.'); i >= 0 {
			return Enum{Type: s[:i], Name: s[i+1:]}, nil
		}
		return Enum{Name: s}, nil
	}
	if raw, ok := m["time"]; ok {
		switch tv := raw.(type) {
		case time.Time:
			return NewTime(tv), nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, tv)
			if err != nil {
				return nil, fmt.Errorf("parse time: %w", err)
			}
			return NewTime(t), nil
		default:
			return nil, fmt.Errorf("time must be an RFC 3339 string, got %T", raw)
		}
	}
	for k := range m {
		return nil, fmt.Errorf("unknown value tag %q", k)
	}
	return nil, fmt.Errorf("empty tagged value")
}

// ToAny converts v to a plain Go value suitable for JSON or YAML output.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Enum:
		return map[string]any{"enum": Format(val)}
	case Time:
		return map[string]any{"time": val.t.Format(time.RFC3339Nano)}
	default:
		return nil
	}
}
