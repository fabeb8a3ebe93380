package predicate

import (
	"context"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/ternary"
	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

// Equal is attr = v. A NULL attribute yields UNKNOWN.
type Equal struct {
	attribute string
	value     value.Value

	populated populated
}

// NewEqual creates an equality predicate. Comparing to NULL is rejected
// with INVALID_ARGUMENT; use IsNull instead.
func NewEqual(attribute string, v value.Value) (*Equal, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "comparison", v); err != nil {
		return nil, err
	}
	return &Equal{attribute: attribute, value: v, populated: true}, nil
}

func (*Equal) predicateNode() {}

// Attribute returns the attribute the predicate acts on.
func (p *Equal) Attribute() string { return p.attribute }

// Value returns the comparison value.
func (p *Equal) Value() value.Value { return p.value }

// Filter answers the predicate with a point lookup, preferring a hash index.
func (p *Equal) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	idx, ok := qc.MatchIndex(p.attribute, index.HintPreferUnordered)
	if !ok {
		return nil, false, nil
	}
	set, err := idx.Lookup(ctx, p.value)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Eval implements Predicate.
func (p *Equal) Eval(e index.Entry) (ternary.Value, error) {
	v := e.Attribute(p.attribute)
	if value.IsNull(v) {
		return ternary.Unknown, nil
	}
	c, err := compare(p.attribute, v, p.value)
	if err != nil {
		return ternary.Unknown, err
	}
	return ternary.Of(c == 0), nil
}

// Apply implements Predicate.
func (p *Equal) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*Equal) ClassID() wire.ClassID { return ClassEqual }

// Transferable implements wire.DataSerializable.
func (*Equal) Transferable() bool { return true }

// WriteData writes attribute, value.
func (p *Equal) WriteData(out *wire.Output) error {
	out.WriteString(p.attribute)
	return out.WriteValue(p.value)
}

// ReadData implements wire.DataSerializable.
func (p *Equal) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassEqual); err != nil {
		return err
	}
	rd := reader{in: in}
	attribute, v := rd.str(), rd.val()
	if rd.err != nil {
		return rd.err
	}
	if _, err := NewEqual(attribute, v); err != nil {
		return err
	}
	p.attribute, p.value = attribute, v
	p.populated = true
	return nil
}

func (p *Equal) String() string {
	return p.attribute + " = " + value.Format(p.value)
}

// Greater is attr > v, or attr >= v when inclusive. A NULL attribute
// yields UNKNOWN.
type Greater struct {
	attribute string
	value     value.Value
	inclusive bool

	populated populated
}

// NewGreater creates a lower-bounded predicate.
func NewGreater(attribute string, v value.Value, inclusive bool) (*Greater, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "lower", v); err != nil {
		return nil, err
	}
	return &Greater{attribute: attribute, value: v, inclusive: inclusive, populated: true}, nil
}

func (*Greater) predicateNode() {}

// Attribute returns the attribute the predicate acts on.
func (p *Greater) Attribute() string { return p.attribute }

// Value returns the lower bound.
func (p *Greater) Value() value.Value { return p.value }

// Inclusive reports whether the bound itself matches.
func (p *Greater) Inclusive() bool { return p.inclusive }

// Filter answers the predicate from an ordered index.
func (p *Greater) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	idx, ok := qc.MatchOrderedIndex(p.attribute)
	if !ok {
		return nil, false, nil
	}
	set, err := idx.RangeRetrieve(ctx, p.value, p.inclusive, nil, false)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Eval implements Predicate.
func (p *Greater) Eval(e index.Entry) (ternary.Value, error) {
	v := e.Attribute(p.attribute)
	if value.IsNull(v) {
		return ternary.Unknown, nil
	}
	c, err := compare(p.attribute, v, p.value)
	if err != nil {
		return ternary.Unknown, err
	}
	return ternary.Of(c > 0 || (p.inclusive && c == 0)), nil
}

// Apply implements Predicate.
func (p *Greater) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*Greater) ClassID() wire.ClassID { return ClassGreater }

// Transferable implements wire.DataSerializable.
func (*Greater) Transferable() bool { return true }

// WriteData writes attribute, value, inclusive.
func (p *Greater) WriteData(out *wire.Output) error {
	return writeBound(out, p.attribute, p.value, p.inclusive)
}

// ReadData implements wire.DataSerializable.
func (p *Greater) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassGreater); err != nil {
		return err
	}
	attribute, v, inclusive, err := readBound(in)
	if err != nil {
		return err
	}
	if _, err := NewGreater(attribute, v, inclusive); err != nil {
		return err
	}
	p.attribute, p.value, p.inclusive = attribute, v, inclusive
	p.populated = true
	return nil
}

func (p *Greater) String() string {
	op := " > "
	if p.inclusive {
		op = " >= "
	}
	return p.attribute + op + value.Format(p.value)
}

// Less is attr < v, or attr <= v when inclusive. A NULL attribute yields
// UNKNOWN.
type Less struct {
	attribute string
	value     value.Value
	inclusive bool

	populated populated
}

// NewLess creates an upper-bounded predicate.
func NewLess(attribute string, v value.Value, inclusive bool) (*Less, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "upper", v); err != nil {
		return nil, err
	}
	return &Less{attribute: attribute, value: v, inclusive: inclusive, populated: true}, nil
}

func (*Less) predicateNode() {}

// Attribute returns the attribute the predicate acts on.
func (p *Less) Attribute() string { return p.attribute }

// Value returns the upper bound.
func (p *Less) Value() value.Value { return p.value }

// Inclusive reports whether the bound itself matches.
func (p *Less) Inclusive() bool { return p.inclusive }

// Filter answers the predicate from an ordered index.
func (p *Less) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	idx, ok := qc.MatchOrderedIndex(p.attribute)
	if !ok {
		return nil, false, nil
	}
	set, err := idx.RangeRetrieve(ctx, nil, false, p.value, p.inclusive)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Eval implements Predicate.
func (p *Less) Eval(e index.Entry) (ternary.Value, error) {
	v := e.Attribute(p.attribute)
	if value.IsNull(v) {
		return ternary.Unknown, nil
	}
	c, err := compare(p.attribute, v, p.value)
	if err != nil {
		return ternary.Unknown, err
	}
	return ternary.Of(c < 0 || (p.inclusive && c == 0)), nil
}

// Apply implements Predicate.
func (p *Less) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*Less) ClassID() wire.ClassID { return ClassLess }

// Transferable implements wire.DataSerializable.
func (*Less) Transferable() bool { return true }

// WriteData writes attribute, value, inclusive.
func (p *Less) WriteData(out *wire.Output) error {
	return writeBound(out, p.attribute, p.value, p.inclusive)
}

// ReadData implements wire.DataSerializable.
func (p *Less) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassLess); err != nil {
		return err
	}
	attribute, v, inclusive, err := readBound(in)
	if err != nil {
		return err
	}
	if _, err := NewLess(attribute, v, inclusive); err != nil {
		return err
	}
	p.attribute, p.value, p.inclusive = attribute, v, inclusive
	p.populated = true
	return nil
}

func (p *Less) String() string {
	op := " < "
	if p.inclusive {
		op = " <= "
	}
	return p.attribute + op + value.Format(p.value)
}

// Between is from <= attr <= to, the transferable form of a closed range.
// A NULL attribute yields UNKNOWN.
type Between struct {
	attribute string
	from      value.Value
	to        value.Value

	populated populated
}

// NewBetween creates a closed range predicate. Both bounds are required.
func NewBetween(attribute string, from, to value.Value) (*Between, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "lower", from); err != nil {
		return nil, err
	}
	if err := requireBound(attribute, "upper", to); err != nil {
		return nil, err
	}
	return &Between{attribute: attribute, from: from, to: to, populated: true}, nil
}

func (*Between) predicateNode() {}

// Attribute returns the attribute the predicate acts on.
func (p *Between) Attribute() string { return p.attribute }

// From returns the lower bound.
func (p *Between) From() value.Value { return p.from }

// To returns the upper bound.
func (p *Between) To() value.Value { return p.to }

// Filter answers the predicate from an ordered index.
func (p *Between) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	idx, ok := qc.MatchOrderedIndex(p.attribute)
	if !ok {
		return nil, false, nil
	}
	set, err := idx.RangeRetrieve(ctx, p.from, true, p.to, true)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// Eval implements Predicate.
func (p *Between) Eval(e index.Entry) (ternary.Value, error) {
	v := e.Attribute(p.attribute)
	if value.IsNull(v) {
		return ternary.Unknown, nil
	}
	c, err := compare(p.attribute, v, p.from)
	if err != nil {
		return ternary.Unknown, err
	}
	if c < 0 {
		return ternary.False, nil
	}
	c, err = compare(p.attribute, v, p.to)
	if err != nil {
		return ternary.Unknown, err
	}
	return ternary.Of(c <= 0), nil
}

// Apply implements Predicate.
func (p *Between) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*Between) ClassID() wire.ClassID { return ClassBetween }

// Transferable implements wire.DataSerializable.
func (*Between) Transferable() bool { return true }

// WriteData writes attribute, from, to.
func (p *Between) WriteData(out *wire.Output) error {
	out.WriteString(p.attribute)
	if err := out.WriteValue(p.from); err != nil {
		return err
	}
	return out.WriteValue(p.to)
}

// ReadData implements wire.DataSerializable.
func (p *Between) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassBetween); err != nil {
		return err
	}
	rd := reader{in: in}
	attribute, from, to := rd.str(), rd.val(), rd.val()
	if rd.err != nil {
		return rd.err
	}
	if _, err := NewBetween(attribute, from, to); err != nil {
		return err
	}
	p.attribute, p.from, p.to = attribute, from, to
	p.populated = true
	return nil
}

func (p *Between) String() string {
	return p.attribute + " BETWEEN " + value.Format(p.from) + " AND " + value.Format(p.to)
}

func writeBound(out *wire.Output, attribute string, v value.Value, inclusive bool) error {
	out.WriteString(attribute)
	if err := out.WriteValue(v); err != nil {
		return err
	}
	out.WriteBool(inclusive)
	return nil
}

func readBound(in *wire.Input) (string, value.Value, bool, error) {
	rd := reader{in: in}
	attribute, v, inclusive := rd.str(), rd.val(), rd.flag()
	return attribute, v, inclusive, rd.err
}
