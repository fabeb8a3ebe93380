package predicate

// Optimize rewrites p into an equivalent predicate that indexes can answer
// with fewer lookups.
//
// Inside a conjunction, a single Greater and a single Less on the same
// attribute are merged into one Range at the position of the first of the
// two. Conjunctions with one operand collapse to that operand.
//
// Apply results are preserved. Eval results may differ only where a NULL
// attribute turned UNKNOWN into FALSE, which is why operands of Not are
// left untouched: negation is the one place that distinction is observable
// at the result boundary. Because the merged Range evaluates earlier, an
// And may also stop before an operand that would have failed.
//
// The result shares unmodified subtrees with p.
func Optimize(p Predicate) Predicate {
	switch n := p.(type) {
	case *And:
		ops := make([]Predicate, len(n.operands))
		for i, op := range n.operands {
			ops[i] = Optimize(op)
		}
		ops = mergeRanges(ops)
		if len(ops) == 1 {
			return ops[0]
		}
		return &And{operands: ops, populated: true}
	case *Or:
		ops := make([]Predicate, len(n.operands))
		for i, op := range n.operands {
			ops[i] = Optimize(op)
		}
		return &Or{operands: ops, populated: true}
	default:
		return p
	}
}

type bounds struct {
	lower []int // positions of Greater operands
	upper []int // positions of Less operands
}

func mergeRanges(ops []Predicate) []Predicate {
	byAttr := make(map[string]*bounds)
	var order []string
	track := func(attr string) *bounds {
		b, ok := byAttr[attr]
		if !ok {
			b = &bounds{}
			byAttr[attr] = b
			order = append(order, attr)
		}
		return b
	}
	for i, op := range ops {
		switch n := op.(type) {
		case *Greater:
			b := track(n.attribute)
			b.lower = append(b.lower, i)
		case *Less:
			b := track(n.attribute)
			b.upper = append(b.upper, i)
		}
	}

	replace := make(map[int]Predicate)
	drop := make(map[int]bool)
	for _, attr := range order {
		b := byAttr[attr]
		if len(b.lower) != 1 || len(b.upper) != 1 {
			continue
		}
		g, l := ops[b.lower[0]].(*Greater), ops[b.upper[0]].(*Less)
		r := &Range{
			attribute:     attr,
			from:          g.value,
			fromInclusive: g.inclusive,
			to:            l.value,
			toInclusive:   l.inclusive,
			populated:     true,
		}
		first, second := b.lower[0], b.upper[0]
		if second < first {
			first, second = second, first
		}
		replace[first] = r
		drop[second] = true
	}
	if len(replace) == 0 {
		return ops
	}

	out := make([]Predicate, 0, len(ops)-len(drop))
	for i, op := range ops {
		if drop[i] {
			continue
		}
		if r, ok := replace[i]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, op)
	}
	return out
}
