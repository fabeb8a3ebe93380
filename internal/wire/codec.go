package wire

import (
	"bytes"
	"fmt"
)

// magic prefixes every encoded payload; the last byte is the format version.
var magic = []byte{'g', 'p', 1}

// Codec frames whole object graphs. It is safe for concurrent use.
type Codec struct {
	factory Factory
}

// NewCodec creates a codec resolving class IDs with factory.
func NewCodec(factory Factory) *Codec {
	return &Codec{factory: factory}
}

// Marshal encodes obj. Transferability is checked for every object before
// its data is written.
func (c *Codec) Marshal(obj DataSerializable) ([]byte, error) {
	out := NewOutput()
	out.buf = append(out.buf, magic...)
	if err := out.WriteObject(obj); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal decodes a payload produced by Marshal. Trailing bytes are an
// error.
func (c *Codec) Unmarshal(data []byte) (DataSerializable, error) {
	if !bytes.HasPrefix(data, magic[:2]) || len(data) < len(magic) {
		return nil, fmt.Errorf("unmarshal: missing header")
	}
	if data[2] != magic[2] {
		return nil, fmt.Errorf("unmarshal: unsupported format version %d", data[2])
	}
	in := NewInput(data[len(magic):], c.factory)
	obj, err := in.ReadObject()
	if err != nil {
		return nil, err
	}
	if in.Remaining() != 0 {
		return nil, fmt.Errorf("unmarshal: %d trailing bytes", in.Remaining())
	}
	return obj, nil
}
