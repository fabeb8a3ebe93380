package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"github.com/dennwc/varint"

	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
)

// Input decodes an object graph written by Output.
type Input struct {
	data    []byte
	pos     int
	depth   int
	factory Factory
}

// NewInput creates an input over data. factory resolves class IDs for
// ReadObject; it may be nil when only primitives are read.
func NewInput(data []byte, factory Factory) *Input {
	return &Input{data: data, factory: factory}
}

// Remaining returns the number of unread bytes.
func (in *Input) Remaining() int { return len(in.data) - in.pos }

// ReadUvarint reads an unsigned varint.
func (in *Input) ReadUvarint() (uint64, error) {
	x, n := varint.Uvarint(in.data[in.pos:])
	switch {
	case n == 0:
		return 0, fmt.Errorf("read uvarint at %d: %w", in.pos, io.ErrUnexpectedEOF)
	case n < 0:
		return 0, fmt.Errorf("read uvarint at %d: value overflows 64 bits", in.pos)
	}
	in.pos += n
	return x, nil
}

// ReadVarint reads a zigzag-encoded signed varint.
func (in *Input) ReadVarint() (int64, error) {
	ux, err := in.ReadUvarint()
	if err != nil {
		return 0, err
	}
	x := int64(ux >> 1)
	if ux&1 != 0 {
		x = ^x
	}
	return x, nil
}

// ReadBool reads a boolean byte. Bytes other than 0 and 1 are rejected.
func (in *Input) ReadBool() (bool, error) {
	b, err := in.readByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("read bool at %d: invalid byte 0x%02x", in.pos-1, b)
	}
}

// ReadString reads a length-prefixed UTF-8 string.
func (in *Input) ReadString() (string, error) {
	n, err := in.ReadUvarint()
	if err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	if n > uint64(in.Remaining()) {
		return "", fmt.Errorf("read string of length %d at %d: %w", n, in.pos, io.ErrUnexpectedEOF)
	}
	s := string(in.data[in.pos : in.pos+int(n)])
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("read string at %d: invalid UTF-8", in.pos)
	}
	in.pos += int(n)
	return s, nil
}

// ReadValue reads a tagged value.
func (in *Input) ReadValue() (value.Value, error) {
	tag, err := in.readByte()
	if err != nil {
		return nil, fmt.Errorf("read value tag: %w", err)
	}
	switch tag {
	case tagNull:
		return value.Null{}, nil
	case tagBool:
		b, err := in.ReadBool()
		return value.Bool(b), err
	case tagInt:
		i, err := in.ReadVarint()
		return value.Int(i), err
	case tagFloat:
		if in.Remaining() < 8 {
			return nil, fmt.Errorf("read float at %d: %w", in.pos, io.ErrUnexpectedEOF)
		}
		bits := binary.LittleEndian.Uint64(in.data[in.pos:])
		in.pos += 8
		return value.Float(math.Float64frombits(bits)), nil
	case tagString:
		s, err := in.ReadString()
		return value.String(s), err
	case tagEnum:
		typ, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		name, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		return value.Enum{Type: typ, Name: name}, nil
	case tagTime:
		sec, err := in.ReadVarint()
		if err != nil {
			return nil, err
		}
		nsec, err := in.ReadUvarint()
		if err != nil {
			return nil, err
		}
		if nsec >= 1e9 {
			return nil, fmt.Errorf("read time: nanoseconds %d out of range", nsec)
		}
		return timeFromWire(sec, nsec), nil
	default:
		return nil, fmt.Errorf("read value at %d: unknown tag %d", in.pos-1, tag)
	}
}

// ReadObject reads an object framed by WriteObject. Class 0 yields nil.
//
// Returns CONTRACT_VIOLATION, without calling ReadData, when the class
// resolves to a type that is not transferable, and INVALID_ARGUMENT when
// objects nest deeper than MaxDepth.
func (in *Input) ReadObject() (DataSerializable, error) {
	id, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("read class id: %w", err)
	}
	if id == 0 {
		return nil, nil
	}
	if in.depth >= MaxDepth {
		return nil, queryerr.InvalidArgument("", "object nesting exceeds %d levels at %d", MaxDepth, in.pos)
	}
	if id > math.MaxUint32 {
		return nil, fmt.Errorf("read class id: %d out of range", id)
	}
	if in.factory == nil {
		return nil, fmt.Errorf("read %s: no factory configured", ClassID(id))
	}
	obj, ok := in.factory(ClassID(id))
	if !ok {
		return nil, fmt.Errorf("read object: unknown %s", ClassID(id))
	}
	if !obj.Transferable() {
		return nil, queryerr.ContractViolation("%s (%T) is local-only and must not be deserialized", ClassID(id), obj)
	}
	in.depth++
	err = obj.ReadData(in)
	in.depth--
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ClassID(id), err)
	}
	return obj, nil
}

func (in *Input) readByte() (byte, error) {
	if in.pos >= len(in.data) {
		return 0, fmt.Errorf("read byte at %d: %w", in.pos, io.ErrUnexpectedEOF)
	}
	b := in.data[in.pos]
	in.pos++
	return b, nil
}

// timeFromWire rebuilds a Time value from its encoded parts.
func timeFromWire(sec int64, nsec uint64) value.Time {
	return value.NewTime(time.Unix(sec, int64(nsec)))
}
