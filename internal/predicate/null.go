package predicate

import (
	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/ternary"
	"github.com/roach88/gridpred/internal/value"
	"github.com/roach88/gridpred/internal/wire"
)

// IsNull is attr IS NULL. Always crisp.
type IsNull struct {
	attribute string
	populated populated
}

// NewIsNull creates an IS NULL predicate.
func NewIsNull(attribute string) (*IsNull, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	return &IsNull{attribute: attribute, populated: true}, nil
}

func (*IsNull) predicateNode() {}

// Attribute returns the attribute the predicate acts on.
func (p *IsNull) Attribute() string { return p.attribute }

// Eval implements Predicate.
func (p *IsNull) Eval(e index.Entry) (ternary.Value, error) {
	return ternary.IsNull(!value.IsNull(e.Attribute(p.attribute))), nil
}

// Apply implements Predicate.
func (p *IsNull) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*IsNull) ClassID() wire.ClassID { return ClassIsNull }

// Transferable implements wire.DataSerializable.
func (*IsNull) Transferable() bool { return true }

// WriteData writes attribute.
func (p *IsNull) WriteData(out *wire.Output) error {
	out.WriteString(p.attribute)
	return nil
}

// ReadData implements wire.DataSerializable.
func (p *IsNull) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassIsNull); err != nil {
		return err
	}
	attribute, err := in.ReadString()
	if err != nil {
		return err
	}
	if err := requireAttribute(attribute); err != nil {
		return err
	}
	p.attribute = attribute
	p.populated = true
	return nil
}

func (p *IsNull) String() string { return p.attribute + " IS NULL" }

// IsNotNull is attr IS NOT NULL. Always crisp: presence is decidable even
// when the value is not.
type IsNotNull struct {
	attribute string
	populated populated
}

// NewIsNotNull creates an IS NOT NULL predicate.
func NewIsNotNull(attribute string) (*IsNotNull, error) {
	if err := requireAttribute(attribute); err != nil {
		return nil, err
	}
	return &IsNotNull{attribute: attribute, populated: true}, nil
}

func (*IsNotNull) predicateNode() {}

// Attribute returns the attribute the predicate acts on.
func (p *IsNotNull) Attribute() string { return p.attribute }

// Eval implements Predicate.
func (p *IsNotNull) Eval(e index.Entry) (ternary.Value, error) {
	return ternary.IsNotNull(!value.IsNull(e.Attribute(p.attribute))), nil
}

// Apply implements Predicate.
func (p *IsNotNull) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*IsNotNull) ClassID() wire.ClassID { return ClassIsNotNull }

// Transferable implements wire.DataSerializable.
func (*IsNotNull) Transferable() bool { return true }

// WriteData writes attribute.
func (p *IsNotNull) WriteData(out *wire.Output) error {
	out.WriteString(p.attribute)
	return nil
}

// ReadData implements wire.DataSerializable.
func (p *IsNotNull) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassIsNotNull); err != nil {
		return err
	}
	attribute, err := in.ReadString()
	if err != nil {
		return err
	}
	if err := requireAttribute(attribute); err != nil {
		return err
	}
	p.attribute = attribute
	p.populated = true
	return nil
}

func (p *IsNotNull) String() string { return p.attribute + " IS NOT NULL" }
