package predicate

import (
	"context"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/ternary"
	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

// Range is a predicate bounded on both sides, each bound with its own
// inclusivity flag.
//
// A NULL attribute never matches: Eval reports FALSE, not UNKNOWN.
//
// Instances are never transferred between members. Optimize creates them
// locally from a Greater and a Less on the same attribute, so Transferable
// reports false and the codec refuses them.
type Range struct {
	attribute     string
	from          value.Value
	fromInclusive bool
	to            value.Value
	toInclusive   bool

	populated populated
}

// NewRange creates a bounded range predicate over attribute. Both bounds
// are required; a null bound fails with INVALID_ARGUMENT.
func NewRange(attribute string, from value.Value, fromInclusive bool, to value.Value, toInclusive bool) (*Range, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "lower", from); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "upper", to); err != nil {
		return nil, err
	}
	return &Range{
		attribute:     attribute,
		from:          from,
		fromInclusive: fromInclusive,
		to:            to,
		toInclusive:   toInclusive,
		populated:     true,
	}, nil
}

func (*Range) predicateNode() {}

// Attribute returns the attribute the range acts on.
func (r *Range) Attribute() string { return r.attribute }

// From returns the lower bound.
func (r *Range) From() value.Value { return r.from }

// FromInclusive reports whether the range is left-closed.
func (r *Range) FromInclusive() bool { return r.fromInclusive }

// To returns the upper bound.
func (r *Range) To() value.Value { return r.to }

// ToInclusive reports whether the range is right-closed.
func (r *Range) ToInclusive() bool { return r.toInclusive }

// Filter answers the range from an ordered index. The index alone decides
// bound inclusion; no comparison happens here.
func (r *Range) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	idx, ok := qc.MatchOrderedIndex(r.attribute)
	if !ok {
		return nil, false, nil
	}
	set, err := idx.RangeRetrieve(ctx, r.from, r.fromInclusive, r.to, r.toInclusive)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Test reports whether v lies within the range. A NULL v never matches.
//
// v is converted against each bound independently, since the bounds may be
// of different representations.
func (r *Range) Test(v value.Value) (bool, error) {
	if value.IsNull(v) {
		return false, nil
	}

	c, err := compare(r.attribute, v, r.from)
	if err != nil {
		return false, err
	}
	if c < 0 || (!r.fromInclusive && c == 0) {
		return false, nil
	}

	c, err = compare(r.attribute, v, r.to)
	if err != nil {
		return false, err
	}
	return c < 0 || (r.toInclusive && c == 0), nil
}

// Eval implements Predicate. The result is never UNKNOWN.
func (r *Range) Eval(e index.Entry) (ternary.Value, error) {
	ok, err := r.Test(e.Attribute(r.attribute))
	if err != nil {
		return ternary.False, err
	}
	return ternary.Of(ok), nil
}

// Apply implements Predicate.
func (r *Range) Apply(e index.Entry) (bool, error) {
	return r.Test(e.Attribute(r.attribute))
}

// ClassID implements wire.DataSerializable.
func (*Range) ClassID() wire.ClassID { return ClassRange }

// Transferable reports false: ranges are local-only.
func (*Range) Transferable() bool { return false }

// WriteData writes attribute, from, fromInclusive, to, toInclusive.
func (r *Range) WriteData(out *wire.Output) error {
	out.WriteString(r.attribute)
	if err := out.WriteValue(r.from); err != nil {
		return err
	}
	out.WriteBool(r.fromInclusive)
	if err := out.WriteValue(r.to); err != nil {
		return err
	}
	out.WriteBool(r.toInclusive)
	return nil
}

// ReadData populates an empty instance in WriteData order. It fails with
// CONTRACT_VIOLATION when the instance is already populated.
func (r *Range) ReadData(in *wire.Input) error {
	if err := r.populated.check(ClassRange); err != nil {
		return err
	}
	var (
		rd  = reader{in: in}
		tmp Range
	)
	tmp.attribute = rd.str()
	tmp.from = rd.val()
	tmp.fromInclusive = rd.flag()
	tmp.to = rd.val()
	tmp.toInclusive = rd.flag()
	if rd.err != nil {
		return rd.err
	}
	if _, err := NewRange(tmp.attribute, tmp.from, tmp.fromInclusive, tmp.to, tmp.toInclusive); err != nil {
		return err
	}
	r.attribute, r.from, r.fromInclusive, r.to, r.toInclusive =
		tmp.attribute, tmp.from, tmp.fromInclusive, tmp.to, tmp.toInclusive
	r.populated = true
	return nil
}

// String renders the range as "from <= attr < to".
func (r *Range) String() string {
	lower, upper := " < ", " < "
	if r.fromInclusive {
		lower = " <= "
	}
	if r.toInclusive {
		upper = " <= "
	}
	return value.Format(r.from) + lower + r.attribute + upper + value.Format(r.to)
}
