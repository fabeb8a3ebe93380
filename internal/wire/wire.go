// Package wire is the binary transfer format for predicates exchanged between
// cluster members.
//
// An object on the wire is its class ID followed by the data its WriteData
// method emits. Lengths and counts are unsigned varints, signed integers are
// zigzag varints. Objects decide the order of their own fields; the codec
// only frames them.
//
// Some objects are intentionally local-only: they report Transferable() ==
// false and the codec refuses to write or read them with CONTRACT_VIOLATION
// before their WriteData or ReadData is ever invoked.
package wire

import "fmt"

// ClassID is the stable numeric identifier of a serializable type.
// Zero is reserved for the nil object.
type ClassID uint32

// String implements fmt.Stringer.
func (id ClassID) String() string {
	return fmt.Sprintf("class#%d", uint32(id))
}

// DataSerializable is implemented by types that can be framed by the codec.
type DataSerializable interface {
	// ClassID returns the stable identifier used to reconstruct the type.
	ClassID() ClassID

	// Transferable reports whether the value may leave the process.
	Transferable() bool

	// WriteData writes the object's fields in a fixed order.
	WriteData(out *Output) error

	// ReadData reads the fields in the order WriteData wrote them.
	ReadData(in *Input) error
}

// MaxDepth bounds how deeply objects may nest on the wire. Payloads come
// from other members, so decoding must not recurse without limit.
const MaxDepth = 128

// Factory returns an empty instance for a class ID, ready for ReadData.
type Factory func(id ClassID) (DataSerializable, bool)
