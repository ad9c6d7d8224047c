package mathexpr

import (
	"fmt"
	"math/big"
	"strings"
)

// variable is the symbol derivatives and integrals are taken with respect to.
const variable = "x"

type expr interface {
	exprNode()
}

type numExpr struct{ v *big.Rat }
type symExpr struct{ name string }
type addExpr struct{ terms []expr }
type mulExpr struct{ factors []expr }
type powExpr struct{ base, exp expr }
type fnExpr struct {
	name string
	arg  expr
}

func (*numExpr) exprNode() {}
func (*symExpr) exprNode() {}
func (*addExpr) exprNode() {}
func (*mulExpr) exprNode() {}
func (*powExpr) exprNode() {}
func (*fnExpr) exprNode()  {}

var knownFuncs = map[string]bool{
	"sin": true, "cos": true, "tan": true, "exp": true, "log": true, "sqrt": true,
}

func ratNum(r *big.Rat) expr      { return &numExpr{v: r} }
func intNum(i int64) expr         { return &numExpr{v: big.NewRat(i, 1)} }
func fracNum(a, b int64) expr     { return &numExpr{v: big.NewRat(a, b)} }
func sym(name string) expr        { return &symExpr{name: name} }
func fn(name string, a expr) expr { return &fnExpr{name: name, arg: a} }

func asNum(e expr) (*big.Rat, bool) {
	if n, ok := e.(*numExpr); ok {
		return n.v, true
	}
	return nil, false
}

func isNumValue(e expr, v int64) bool {
	r, ok := asNum(e)
	return ok && r.Cmp(big.NewRat(v, 1)) == 0
}

// dependsOn reports whether e mentions the symbol name.
func dependsOn(e expr, name string) bool {
	switch n := e.(type) {
	case *symExpr:
		return n.name == name
	case *addExpr:
		for _, t := range n.terms {
			if dependsOn(t, name) {
				return true
			}
		}
	case *mulExpr:
		for _, f := range n.factors {
			if dependsOn(f, name) {
				return true
			}
		}
	case *powExpr:
		return dependsOn(n.base, name) || dependsOn(n.exp, name)
	case *fnExpr:
		return dependsOn(n.arg, name)
	}
	return false
}

// symbolic grammar: the arithmetic grammar plus identifiers, function calls
// and "^" as a synonym for "**". Division a/b is stored as a*b**-1.
type symParser struct {
	tokenStream
}

func parseSymbolic(input string) (expr, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &symParser{tokenStream{tokens: tokens}}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %s at %d", t.kind, t.pos)
	}
	return e, nil
}

func (p *symParser) expr() (expr, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []expr{first}
	for {
		switch {
		case p.accept(tokPlus):
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		case p.accept(tokMinus):
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			terms = append(terms, &mulExpr{factors: []expr{intNum(-1), t}})
		default:
			if len(terms) == 1 {
				return first, nil
			}
			return &addExpr{terms: terms}, nil
		}
	}
}

func (p *symParser) term() (expr, error) {
	first, err := p.unary()
	if err != nil {
		return nil, err
	}
	factors := []expr{first}
	for {
		switch {
		case p.accept(tokStar):
			f, err := p.unary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, f)
		case p.accept(tokSlash):
			f, err := p.unary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, &powExpr{base: f, exp: intNum(-1)})
		case p.peek().kind == tokFloorDiv:
			return nil, fmt.Errorf("floor division is not supported in symbolic expressions")
		default:
			if len(factors) == 1 {
				return first, nil
			}
			return &mulExpr{factors: factors}, nil
		}
	}
}

func (p *symParser) unary() (expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch {
	case p.accept(tokPlus):
		return p.unary()
	case p.accept(tokMinus):
		e, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &mulExpr{factors: []expr{intNum(-1), e}}, nil
	}
	return p.power()
}

func (p *symParser) power() (expr, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if p.accept(tokPow) || p.accept(tokCaret) {
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &powExpr{base: base, exp: exp}, nil
	}
	return base, nil
}

func (p *symParser) atom() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		text := t.text
		if strings.HasPrefix(text, ".") {
			text = "0" + text
		}
		if strings.HasSuffix(text, ".") {
			text += "0"
		}
		r, ok := new(big.Rat).SetString(text)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return ratNum(r), nil

	case tokIdent:
		if p.peek().kind != tokLParen {
			return sym(t.text), nil
		}
		if !knownFuncs[t.text] {
			return nil, fmt.Errorf("unknown function %q", t.text)
		}
		p.next()
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		if t.text == "sqrt" {
			return &powExpr{base: arg, exp: fracNum(1, 2)}, nil
		}
		return fn(t.text, arg), nil

	case tokLParen:
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("unexpected %s at %d", t.kind, t.pos)
}

// format renders e in conventional CAS notation: "x**3/3 + 2*x - 1", "1/x",
// "sqrt(x)", "-sin(x)".
func format(e expr) string {
	switch n := e.(type) {
	case *numExpr:
		return n.v.RatString()
	case *symExpr:
		return n.name
	case *fnExpr:
		return n.name + "(" + format(n.arg) + ")"
	case *powExpr:
		return formatPow(n)
	case *mulExpr:
		return formatMul(n)
	case *addExpr:
		var sb strings.Builder
		for i, t := range n.terms {
			switch {
			case i == 0:
				sb.WriteString(format(t))
			case isNegative(t):
				sb.WriteString(" - ")
				sb.WriteString(format(negate(t)))
			default:
				sb.WriteString(" + ")
				sb.WriteString(format(t))
			}
		}
		return sb.String()
	}
	return "?"
}

func formatPow(n *powExpr) string {
	if r, ok := asNum(n.exp); ok {
		switch {
		case r.Cmp(big.NewRat(1, 2)) == 0:
			return "sqrt(" + format(n.base) + ")"
		case r.Cmp(big.NewRat(-1, 2)) == 0:
			return "1/sqrt(" + format(n.base) + ")"
		case r.Cmp(big.NewRat(-1, 1)) == 0:
			return "1/" + formatOperand(n.base)
		}
	}
	exp := format(n.exp)
	switch e := n.exp.(type) {
	case *symExpr, *fnExpr:
	case *numExpr:
		if !e.v.IsInt() || e.v.Sign() < 0 {
			exp = "(" + exp + ")"
		}
	default:
		exp = "(" + exp + ")"
	}
	return formatOperand(n.base) + "**" + exp
}

// formatOperand parenthesizes anything that is not atomic when used as a power base or divisor.
func formatOperand(e expr) string {
	switch n := e.(type) {
	case *symExpr, *fnExpr:
		return format(e)
	case *numExpr:
		if n.v.IsInt() && n.v.Sign() >= 0 {
			return format(e)
		}
	}
	return "(" + format(e) + ")"
}

func formatMul(n *mulExpr) string {
	coef := big.NewRat(1, 1)
	var numer, denom []string

	for _, f := range n.factors {
		if r, ok := asNum(f); ok {
			coef.Mul(coef, r)
			continue
		}
		if pw, ok := f.(*powExpr); ok {
			if r, ok := asNum(pw.exp); ok && r.Sign() < 0 {
				pos := new(big.Rat).Neg(r)
				if pos.Cmp(big.NewRat(1, 1)) == 0 {
					denom = append(denom, formatFactor(pw.base))
				} else {
					denom = append(denom, format(&powExpr{base: pw.base, exp: ratNum(pos)}))
				}
				continue
			}
		}
		numer = append(numer, formatFactor(f))
	}

	sign := ""
	if coef.Sign() < 0 {
		sign = "-"
		coef.Neg(coef)
	}
	p := new(big.Int).Set(coef.Num())
	q := new(big.Int).Set(coef.Denom())

	if p.Cmp(big.NewInt(1)) != 0 || len(numer) == 0 {
		numer = append([]string{p.String()}, numer...)
	}
	if q.Cmp(big.NewInt(1)) != 0 {
		denom = append([]string{q.String()}, denom...)
	}

	out := sign + strings.Join(numer, "*")
	switch len(denom) {
	case 0:
	case 1:
		out += "/" + denom[0]
	default:
		out += "/(" + strings.Join(denom, "*") + ")"
	}
	return out
}

func formatFactor(e expr) string {
	if _, ok := e.(*addExpr); ok {
		return "(" + format(e) + ")"
	}
	return format(e)
}

func isNegative(e expr) bool {
	switch n := e.(type) {
	case *numExpr:
		return n.v.Sign() < 0
	case *mulExpr:
		coef, _ := splitCoef(n)
		return coef.Sign() < 0
	}
	return false
}

// negate flips the sign of a numeric term or a product's coefficient.
func negate(e expr) expr {
	switch n := e.(type) {
	case *numExpr:
		return ratNum(new(big.Rat).Neg(n.v))
	case *mulExpr:
		coef, rest := splitCoef(n)
		return withCoef(new(big.Rat).Neg(coef), rest)
	}
	return &mulExpr{factors: []expr{intNum(-1), e}}
}
