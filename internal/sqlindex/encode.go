package sqlindex

import (
	"fmt"
	"math"

	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

// timeLayout is fixed-width, so TEXT order matches time order for years
// 0000 through 9999.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// sortParam maps a canonical value to the SQLite value stored in
// sort_value. ok is false for values SQLite cannot order: NULL and NaN.
func sortParam(v value.Value) (param any, ok bool) {
	switch val := value.Canonical(v).(type) {
	case value.Bool:
		if val {
			return int64(1), true
		}
		return int64(0), true
	case value.Int:
		return int64(val), true
	case value.Float:
		if math.IsNaN(float64(val)) {
			return nil, false
		}
		return float64(val), true
	case value.String:
		return string(val), true
	case value.Time:
		return val.Std().Format(timeLayout), true
	default:
		return nil, false
	}
}

func isNaN(v value.Value) bool {
	f, ok := v.(value.Float)
	return ok && math.IsNaN(float64(f))
}

// encodeAttributes writes attrs in name order using the wire value format.
func encodeAttributes(attrs value.Object) ([]byte, error) {
	out := wire.NewOutput()
	names := attrs.SortedKeys()
	out.WriteUvarint(uint64(len(names)))
	for _, name := range names {
		out.WriteString(name)
		if err := out.WriteValue(attrs[name]); err != nil {
			return nil, fmt.Errorf("encode attribute %s: %w", name, err)
		}
	}
	return out.Bytes(), nil
}

// decodeAttributes reads attributes written by encodeAttributes.
func decodeAttributes(data []byte) (value.Object, error) {
	in := wire.NewInput(data, nil)
	n, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("decode attribute count: %w", err)
	}
	if n > uint64(in.Remaining()) {
		return nil, fmt.Errorf("decode attributes: count %d exceeds payload", n)
	}

	attrs := make(value.Object, n)
	for range n {
		name, err := in.ReadString()
		if err != nil {
			return nil, fmt.Errorf("decode attribute name: %w", err)
		}
		v, err := in.ReadValue()
		if err != nil {
			return nil, fmt.Errorf("decode attribute %s: %w", name, err)
		}
		attrs[name] = v
	}
	if in.Remaining() != 0 {
		return nil, fmt.Errorf("decode attributes: %d trailing bytes", in.Remaining())
	}
	return attrs, nil
}
