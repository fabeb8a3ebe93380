package predicate

import (
	"context"
	"strings"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/queryerr"
	"github.com/roach88/gridpred/internal/ternary"
	"github.com/roach88/gridpred/internal/wire"
)

// Not negates its operand with three-valued logic: NOT UNKNOWN is UNKNOWN.
type Not struct {
	operand   Predicate
	populated populated
}

// NewNot creates a negation.
func NewNot(operand Predicate) (*Not, error) {
	if operand == nil {
		return nil, queryerr.InvalidArgument("", "NOT requires an operand")
	}
	return &Not{operand: operand, populated: true}, nil
}

func (*Not) predicateNode() {}

// Operand returns the negated predicate.
func (p *Not) Operand() Predicate { return p.operand }

// Eval implements Predicate.
func (p *Not) Eval(e index.Entry) (ternary.Value, error) {
	t, err := p.operand.Eval(e)
	if err != nil {
		return ternary.Unknown, err
	}
	return ternary.Not(t), nil
}

// Apply implements Predicate.
func (p *Not) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// ClassID implements wire.DataSerializable.
func (*Not) ClassID() wire.ClassID { return ClassNot }

// Transferable reports whether the operand is transferable.
func (p *Not) Transferable() bool {
	return p.operand == nil || p.operand.Transferable()
}

// WriteData writes the operand.
func (p *Not) WriteData(out *wire.Output) error {
	return out.WriteObject(p.operand)
}

// ReadData implements wire.DataSerializable.
func (p *Not) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassNot); err != nil {
		return err
	}
	operand, err := readPredicate(in)
	if err != nil {
		return err
	}
	p.operand = operand
	p.populated = true
	return nil
}

func (p *Not) String() string {
	s := p.operand.String()
	if strings.HasPrefix(s, "(") {
		return "NOT " + s
	}
	return "NOT (" + s + ")"
}

// And is the conjunction of its operands. The empty conjunction is TRUE.
//
// Evaluation stops at the first FALSE operand. An error from an evaluated
// operand is returned even when a later operand would be FALSE.
type And struct {
	operands  []Predicate
	populated populated
}

// NewAnd creates a conjunction.
func NewAnd(operands ...Predicate) (*And, error) {
	if err := checkOperands("AND", operands); err != nil {
		return nil, err
	}
	return &And{operands: operands, populated: true}, nil
}

func (*And) predicateNode() {}

// Operands returns the conjuncts.
func (p *And) Operands() []Predicate { return p.operands }

// Eval implements Predicate.
func (p *And) Eval(e index.Entry) (ternary.Value, error) {
	result := ternary.True
	for _, op := range p.operands {
		t, err := op.Eval(e)
		if err != nil {
			return ternary.Unknown, err
		}
		result = ternary.And(result, t)
		if result == ternary.False {
			return ternary.False, nil
		}
	}
	return result, nil
}

// Apply implements Predicate.
func (p *And) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// Filter answers the conjunction from the first operand an index can
// answer, then checks the remaining operands on each candidate. ok is false
// when no operand is indexed.
func (p *And) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	for i, op := range p.operands {
		aware, ok := op.(IndexAware)
		if !ok {
			continue
		}
		candidates, ok, err := aware.Filter(ctx, qc)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		matched := make([]index.Entry, 0, len(candidates))
		for _, e := range candidates {
			keep, err := p.applyExcept(i, e)
			if err != nil {
				return nil, false, err
			}
			if keep {
				matched = append(matched, e)
			}
		}
		return index.NewEntrySet(matched...), true, nil
	}
	return nil, false, nil
}

// applyExcept applies every operand but the one at skip.
func (p *And) applyExcept(skip int, e index.Entry) (bool, error) {
	for i, op := range p.operands {
		if i == skip {
			continue
		}
		ok, err := op.Apply(e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// ClassID implements wire.DataSerializable.
func (*And) ClassID() wire.ClassID { return ClassAnd }

// Transferable reports whether every operand is transferable.
func (p *And) Transferable() bool { return allTransferable(p.operands) }

// WriteData writes the operand count followed by the operands.
func (p *And) WriteData(out *wire.Output) error { return writeOperands(out, p.operands) }

// ReadData implements wire.DataSerializable.
func (p *And) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassAnd); err != nil {
		return err
	}
	operands, err := readOperands(in)
	if err != nil {
		return err
	}
	p.operands = operands
	p.populated = true
	return nil
}

func (p *And) String() string { return joinOperands(p.operands, " AND ", "TRUE") }

// Or is the disjunction of its operands. The empty disjunction is FALSE.
//
// Evaluation stops at the first TRUE operand.
type Or struct {
	operands  []Predicate
	populated populated
}

// NewOr creates a disjunction.
func NewOr(operands ...Predicate) (*Or, error) {
	if err := checkOperands("OR", operands); err != nil {
		return nil, err
	}
	return &Or{operands: operands, populated: true}, nil
}

func (*Or) predicateNode() {}

// Operands returns the disjuncts.
func (p *Or) Operands() []Predicate { return p.operands }

// Eval implements Predicate.
func (p *Or) Eval(e index.Entry) (ternary.Value, error) {
	result := ternary.False
	for _, op := range p.operands {
		t, err := op.Eval(e)
		if err != nil {
			return ternary.Unknown, err
		}
		result = ternary.Or(result, t)
		if result == ternary.True {
			return ternary.True, nil
		}
	}
	return result, nil
}

// Apply implements Predicate.
func (p *Or) Apply(e index.Entry) (bool, error) { return apply(p, e) }

// Filter answers the disjunction as the union of its operands' index
// results. ok is false unless every operand is answered by an index.
func (p *Or) Filter(ctx context.Context, qc *index.QueryContext) (index.EntrySet, bool, error) {
	sets := make([]index.EntrySet, 0, len(p.operands))
	for _, op := range p.operands {
		aware, ok := op.(IndexAware)
		if !ok {
			return nil, false, nil
		}
		set, ok, err := aware.Filter(ctx, qc)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		sets = append(sets, set)
	}
	union := index.EntrySet{}
	for _, set := range sets {
		union = union.Union(set)
	}
	return union, true, nil
}

// ClassID implements wire.DataSerializable.
func (*Or) ClassID() wire.ClassID { return ClassOr }

// Transferable reports whether every operand is transferable.
func (p *Or) Transferable() bool { return allTransferable(p.operands) }

// WriteData writes the operand count followed by the operands.
func (p *Or) WriteData(out *wire.Output) error { return writeOperands(out, p.operands) }

// ReadData implements wire.DataSerializable.
func (p *Or) ReadData(in *wire.Input) error {
	if err := p.populated.check(ClassOr); err != nil {
		return err
	}
	operands, err := readOperands(in)
	if err != nil {
		return err
	}
	p.operands = operands
	p.populated = true
	return nil
}

func (p *Or) String() string { return joinOperands(p.operands, " OR ", "FALSE") }

func checkOperands(op string, operands []Predicate) error {
	for i, o := range operands {
		if o == nil {
			return queryerr.InvalidArgument("", "%s operand %d is nil", op, i)
		}
	}
	return nil
}

func allTransferable(operands []Predicate) bool {
	for _, op := range operands {
		if !op.Transferable() {
			return false
		}
	}
	return true
}

func writeOperands(out *wire.Output, operands []Predicate) error {
	out.WriteUvarint(uint64(len(operands)))
	for _, op := range operands {
		if err := out.WriteObject(op); err != nil {
			return err
		}
	}
	return nil
}

func readOperands(in *wire.Input) ([]Predicate, error) {
	rd := reader{in: in}
	n := rd.count()
	operands := make([]Predicate, 0, n)
	for range n {
		operands = append(operands, rd.pred())
	}
	if rd.err != nil {
		return nil, rd.err
	}
	return operands, nil
}

func joinOperands(operands []Predicate, sep, empty string) string {
	if len(operands) == 0 {
		return empty
	}
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
