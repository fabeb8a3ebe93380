package predicate

import (
	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

// codec resolves the predicate class IDs.
var codec = wire.NewCodec(New)

// New returns an empty predicate for id, ready for ReadData. It is the
// wire.Factory for this package.
func New(id wire.ClassID) (wire.DataSerializable, bool) {
	switch id {
	case ClassEqual:
		return &Equal{}, true
	case ClassGreater:
		return &Greater{}, true
	case ClassLess:
		return &Less{}, true
	case ClassBetween:
		return &Between{}, true
	case ClassIsNull:
		return &IsNull{}, true
	case ClassIsNotNull:
		return &IsNotNull{}, true
	case ClassNot:
		return &Not{}, true
	case ClassAnd:
		return &And{}, true
	case ClassOr:
		return &Or{}, true
	case ClassRange:
		return &Range{}, true
	default:
		return nil, false
	}
}

// Marshal encodes p for transfer to another member. A tree containing a
// local-only predicate fails with CONTRACT_VIOLATION.
func Marshal(p Predicate) ([]byte, error) {
	return codec.Marshal(p)
}

// Unmarshal decodes a predicate encoded by Marshal.
func Unmarshal(data []byte) (Predicate, error) {
	obj, err := codec.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	p, ok := obj.(Predicate)
	if !ok {
		return nil, queryerr.InvalidArgument("", "payload does not hold a predicate: %T", obj)
	}
	return p, nil
}

// reader reads a sequence of fields, keeping the first error.
type reader struct {
	in  *wire.Input
	err error
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	var s string
	s, r.err = r.in.ReadString()
	return s
}

func (r *reader) val() value.Value {
	if r.err != nil {
		return nil
	}
	var v value.Value
	v, r.err = r.in.ReadValue()
	return v
}

func (r *reader) flag() bool {
	if r.err != nil {
		return false
	}
	var b bool
	b, r.err = r.in.ReadBool()
	return b
}

func (r *reader) pred() Predicate {
	if r.err != nil {
		return nil
	}
	var p Predicate
	p, r.err = readPredicate(r.in)
	return p
}

func (r *reader) count() int {
	if r.err != nil {
		return 0
	}
	n, err := r.in.ReadUvarint()
	if err != nil {
		r.err = err
		return 0
	}
	// Each element takes at least one byte.
	if n > uint64(r.in.Remaining()) {
		r.err = queryerr.InvalidArgument("", "element count %d exceeds payload", n)
		return 0
	}
	return int(n)
}
