package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/literal"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridpred/internal/value"
)

// Parse parses a filter expression written in CUE expression syntax.
//
// Supported forms:
//
//	attr == v, attr != v            Equal, NOT Equal
//	attr < v, <=, >, >=             Less, Greater (either operand order)
//	attr == null, attr != null      IsNull, IsNotNull
//	between(attr, from, to)         Between
//	range(attr, from, to, "[)")     Range; brackets select inclusivity
//	a && b, a || b, !a, (a)         And, Or, Not
//
// Literals are numbers, strings, true, false, enum("Type.Name") and
// time("2024-01-02T15:04:05Z"). Attribute names may be dotted paths.
func Parse(expr string) (Predicate, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("parse filter: empty expression")
	}
	node, err := parser.ParseExpr("filter", expr)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", expr, err)
	}
	p, err := convertExpr(node)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", expr, err)
	}
	return p, nil
}

// MustParse is like Parse but panics on error. For tests and fixed
// expressions only.
func MustParse(expr string) Predicate {
	p, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func convertExpr(node ast.Expr) (Predicate, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return convertExpr(n.X)

	case *ast.UnaryExpr:
		if n.Op != token.NOT {
			return nil, fmt.Errorf("unsupported unary operator %s", n.Op)
		}
		operand, err := convertExpr(n.X)
		if err != nil {
			return nil, err
		}
		return NewNot(operand)

	case *ast.BinaryExpr:
		switch n.Op {
		case token.LAND, token.LOR:
			return convertLogical(n)
		case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
			return convertComparison(n)
		default:
			return nil, fmt.Errorf("unsupported operator %s", n.Op)
		}

	case *ast.CallExpr:
		return convertCall(n)

	default:
		return nil, fmt.Errorf("unsupported expression %s", ast.Name(node))
	}
}

// convertLogical flattens chains of the same operator into one And or Or.
func convertLogical(n *ast.BinaryExpr) (Predicate, error) {
	var operands []Predicate
	var collect func(e ast.Expr) error
	collect = func(e ast.Expr) error {
		if b, ok := e.(*ast.BinaryExpr); ok && b.Op == n.Op {
			if err := collect(b.X); err != nil {
				return err
			}
			return collect(b.Y)
		}
		p, err := convertExpr(e)
		if err != nil {
			return err
		}
		operands = append(operands, p)
		return nil
	}
	if err := collect(n); err != nil {
		return nil, err
	}
	if n.Op == token.LAND {
		return NewAnd(operands...)
	}
	return NewOr(operands...)
}

func convertComparison(n *ast.BinaryExpr) (Predicate, error) {
	op := n.Op
	attrExpr, litExpr := n.X, n.Y
	attr, ok := attributeName(attrExpr)
	if !ok {
		// Literal on the left: 18 <= age is age >= 18.
		attrExpr, litExpr = n.Y, n.X
		if attr, ok = attributeName(attrExpr); !ok {
			return nil, fmt.Errorf("comparison needs an attribute operand")
		}
		op = mirror(op)
	}

	if isNullLit(litExpr) {
		switch op {
		case token.EQL:
			return NewIsNull(attr)
		case token.NEQ:
			return NewIsNotNull(attr)
		default:
			return nil, fmt.Errorf("%s %s null is always unknown; use == or !=", attr, op)
		}
	}

	v, err := literalValue(litExpr)
	if err != nil {
		return nil, err
	}
	switch op {
	case token.EQL:
		return NewEqual(attr, v)
	case token.NEQ:
		eq, err := NewEqual(attr, v)
		if err != nil {
			return nil, err
		}
		return NewNot(eq)
	case token.LSS:
		return NewLess(attr, v, false)
	case token.LEQ:
		return NewLess(attr, v, true)
	case token.GTR:
		return NewGreater(attr, v, false)
	default: // token.GEQ
		return NewGreater(attr, v, true)
	}
}

func mirror(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.LEQ:
		return token.GEQ
	case token.GTR:
		return token.LSS
	case token.GEQ:
		return token.LEQ
	default:
		return op
	}
}

func convertCall(n *ast.CallExpr) (Predicate, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("unsupported call")
	}
	switch fn.Name {
	case "between":
		if len(n.Args) != 3 {
			return nil, fmt.Errorf("between(attr, from, to) takes 3 arguments, got %d", len(n.Args))
		}
		attr, from, to, err := rangeArgs(n.Args)
		if err != nil {
			return nil, err
		}
		return NewBetween(attr, from, to)

	case "range":
		if len(n.Args) != 3 && len(n.Args) != 4 {
			return nil, fmt.Errorf("range(attr, from, to[, brackets]) takes 3 or 4 arguments, got %d", len(n.Args))
		}
		attr, from, to, err := rangeArgs(n.Args)
		if err != nil {
			return nil, err
		}
		fromInclusive, toInclusive := true, false
		if len(n.Args) == 4 {
			if fromInclusive, toInclusive, err = brackets(n.Args[3]); err != nil {
				return nil, err
			}
		}
		return NewRange(attr, from, fromInclusive, to, toInclusive)

	default:
		return nil, fmt.Errorf("unknown function %s", fn.Name)
	}
}

func rangeArgs(args []ast.Expr) (string, value.Value, value.Value, error) {
	attr, ok := attributeName(args[0])
	if !ok {
		return "", nil, nil, fmt.Errorf("first argument must be an attribute")
	}
	from, err := literalValue(args[1])
	if err != nil {
		return "", nil, nil, err
	}
	to, err := literalValue(args[2])
	if err != nil {
		return "", nil, nil, err
	}
	return attr, from, to, nil
}

func brackets(e ast.Expr) (fromInclusive, toInclusive bool, err error) {
	s, err := stringLit(e)
	if err != nil {
		return false, false, err
	}
	if len(s) != 2 || !strings.ContainsRune("[(", rune(s[0])) || !strings.ContainsRune("])", rune(s[1])) {
		return false, false, fmt.Errorf("brackets must be one of \"[]\", \"[)\", \"(]\", \"()\", got %q", s)
	}
	return s[0] == '[', s[1] == ']', nil
}

// attributeName returns the dotted path named by an identifier or selector.
func attributeName(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.Ident:
		return n.Name, true
	case *ast.SelectorExpr:
		prefix, ok := attributeName(n.X)
		if !ok {
			return "", false
		}
		name, _, err := ast.LabelName(n.Sel)
		if err != nil {
			return "", false
		}
		return prefix + "." + name, true
	default:
		return "", false
	}
}

func isNullLit(e ast.Expr) bool {
	lit, ok := e.(*ast.BasicLit)
	return ok && lit.Kind == token.NULL
}

func literalValue(e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT:
			return parseNumber(n.Value, false)
		case token.STRING:
			s, err := literal.Unquote(n.Value)
			if err != nil {
				return nil, err
			}
			return value.String(s), nil
		case token.TRUE:
			return value.Bool(true), nil
		case token.FALSE:
			return value.Bool(false), nil
		case token.NULL:
			return nil, fmt.Errorf("null is not a comparison operand")
		}
	case *ast.UnaryExpr:
		if lit, ok := n.X.(*ast.BasicLit); ok && n.Op == token.SUB &&
			(lit.Kind == token.INT || lit.Kind == token.FLOAT) {
			return parseNumber(lit.Value, true)
		}
	case *ast.CallExpr:
		return taggedLiteral(n)
	}
	return nil, fmt.Errorf("unsupported literal %s", ast.Name(e))
}

func parseNumber(src string, negate bool) (value.Value, error) {
	var info literal.NumInfo
	if err := literal.ParseNum(src, &info); err != nil {
		return nil, err
	}
	s := info.String()
	if negate {
		s = "-" + s
	}
	if info.IsInt() {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer %s: %w", s, err)
		}
		return value.Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("number %s: %w", s, err)
	}
	return value.Float(f), nil
}

func taggedLiteral(n *ast.CallExpr) (value.Value, error) {
	fn, ok := n.Fun.(*ast.Ident)
	if !ok || len(n.Args) != 1 {
		return nil, fmt.Errorf("unsupported literal call")
	}
	s, err := stringLit(n.Args[0])
	if err != nil {
		return nil, err
	}
	switch fn.Name {
	case "enum":
		if i := strings.LastIndexByte(s, '.'); i >= 0 {
			return value.Enum{Type: s[:i], Name: s[i+1:]}, nil
		}
		return value.Enum{Name: s}, nil
	case "time":
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return value.NewTime(t), nil
	default:
		return nil, fmt.Errorf("unknown literal %s(...)", fn.Name)
	}
}

func stringLit(e ast.Expr) (string, error) {
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", fmt.Errorf("expected a string literal")
	}
	return literal.Unquote(lit.Value)
}
