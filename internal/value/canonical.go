package value

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// DomainValue prefixes value fingerprints. The version suffix enables future
// encoding migration.
const DomainValue = "gridpred/value/v1"

// MarshalCanonical produces a canonical JSON encoding of v.
//
// Values that Compare as equal encode identically:
//   - Enum encodes as its name (same as the equivalent String)
//   - Strings are NFC normalized and not HTML escaped
//   - Integral Floats within int64 range encode as integers
//   - Times encode as RFC 3339 in UTC
//
// NaN and infinities are encoded as the tagged strings {"float":"NaN"} etc.
// so they cannot collide with a String.
func MarshalCanonical(v Value) ([]byte, error) {
	v = Canonical(v)
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case Bool:
		return []byte(strconv.FormatBool(bool(val))), nil
	case Int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Float:
		return marshalCanonicalFloat(float64(val))
	case String:
		return marshalCanonicalString(string(val))
	case Time:
		s, err := marshalCanonicalString(val.t.Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		return append(append([]byte(`{"time":`), s...), '}'), nil
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

func marshalCanonicalFloat(f float64) ([]byte, error) {
	switch {
	case math.IsNaN(f):
		return []byte(`{"float":"NaN"}`), nil
	case math.IsInf(f, 1):
		return []byte(`{"float":"+Inf"}`), nil
	case math.IsInf(f, -1):
		return []byte(`{"float":"-Inf"}`), nil
	}
	if t := math.Trunc(f); t == f && f >= -twoTo63 && f < twoTo63 {
		return []byte(strconv.FormatInt(int64(t), 10)), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

// marshalCanonicalString encodes s as a JSON string without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	// Encoder.Encode appends a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Fingerprint returns a stable identity for v such that values which compare
// equal share a fingerprint. Hash indexes bucket entries by it.
//
// Format: hex(SHA256(domain + 0x00 + family + 0x00 + canonical))
func Fingerprint(v Value) (string, error) {
	v = Canonical(v)
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainValue))
	h.Write([]byte{0x00})
	h.Write([]byte{byte(familyOf(v.Kind()))})
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
