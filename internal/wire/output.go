package wire

import (
	"encoding/binary"
	"math"

	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
)

// Value tags. Append only: tags are part of the wire format.
const (
	tagNull byte = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagEnum
	tagTime
)

// Output accumulates an encoded object graph.
type Output struct {
	buf   []byte
	depth int
}

// NewOutput creates an empty output.
func NewOutput() *Output {
	return &Output{buf: make([]byte, 0, 64)}
}

// Bytes returns the encoded data. The slice aliases the output's buffer.
func (o *Output) Bytes() []byte { return o.buf }

// Len returns the number of bytes written.
func (o *Output) Len() int { return len(o.buf) }

// WriteUvarint writes an unsigned varint.
func (o *Output) WriteUvarint(x uint64) {
	o.buf = binary.AppendUvarint(o.buf, x)
}

// WriteVarint writes a zigzag-encoded signed varint.
func (o *Output) WriteVarint(x int64) {
	o.buf = binary.AppendVarint(o.buf, x)
}

// WriteBool writes a single byte, 1 for true.
func (o *Output) WriteBool(b bool) {
	if b {
		o.buf = append(o.buf, 1)
		return
	}
	o.buf = append(o.buf, 0)
}

// WriteString writes a length-prefixed UTF-8 string.
func (o *Output) WriteString(s string) {
	o.WriteUvarint(uint64(len(s)))
	o.buf = append(o.buf, s...)
}

// WriteValue writes a tagged value. A nil value is written as Null.
func (o *Output) WriteValue(v value.Value) error {
	switch val := v.(type) {
	case nil, value.Null:
		o.buf = append(o.buf, tagNull)
	case value.Bool:
		o.buf = append(o.buf, tagBool)
		o.WriteBool(bool(val))
	case value.Int:
		o.buf = append(o.buf, tagInt)
		o.WriteVarint(int64(val))
	case value.Float:
		o.buf = append(o.buf, tagFloat)
		o.buf = binary.LittleEndian.AppendUint64(o.buf, math.Float64bits(float64(val)))
	case value.String:
		o.buf = append(o.buf, tagString)
		o.WriteString(string(val))
	case value.Enum:
		o.buf = append(o.buf, tagEnum)
		o.WriteString(val.Type)
		o.WriteString(val.Name)
	case value.Time:
		t := val.Std()
		o.buf = append(o.buf, tagTime)
		o.WriteVarint(t.Unix())
		o.WriteUvarint(uint64(t.Nanosecond()))
	default:
		return queryerr.InvalidArgument("", "cannot encode value of type %T", v)
	}
	return nil
}

// WriteObject writes obj framed by its class ID. A nil obj is written as
// class 0.
//
// Returns CONTRACT_VIOLATION, without calling obj.WriteData, when obj is
// not transferable.
func (o *Output) WriteObject(obj DataSerializable) error {
	if obj == nil {
		o.WriteUvarint(0)
		return nil
	}
	if !obj.Transferable() {
		return queryerr.ContractViolation("%s (%T) is local-only and must not be serialized", obj.ClassID(), obj)
	}
	if o.depth >= MaxDepth {
		return queryerr.InvalidArgument("", "object nesting exceeds %d levels", MaxDepth)
	}
	o.WriteUvarint(uint64(obj.ClassID()))
	o.depth++
	defer func() { o.depth-- }()
	return obj.WriteData(o)
}
