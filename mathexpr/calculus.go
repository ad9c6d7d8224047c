package mathexpr

import (
	"errors"
	"math/big"
)

var errNoAntiderivative = errors.New("no closed-form antiderivative found")

func neg(e expr) expr { return &mulExpr{factors: []expr{intNum(-1), e}} }

func recip(e expr) expr { return &powExpr{base: e, exp: intNum(-1)} }

// derivative differentiates e with respect to the variable and simplifies.
func derivative(e expr) expr {
	return simplify(diff(e))
}

func diff(e expr) expr {
	switch n := e.(type) {
	case *numExpr:
		return intNum(0)

	case *symExpr:
		if n.name == variable {
			return intNum(1)
		}
		return intNum(0)

	case *addExpr:
		terms := make([]expr, len(n.terms))
		for i, t := range n.terms {
			terms[i] = diff(t)
		}
		return &addExpr{terms: terms}

	case *mulExpr:
		terms := make([]expr, 0, len(n.factors))
		for i := range n.factors {
			if !dependsOn(n.factors[i], variable) {
				continue
			}
			factors := make([]expr, len(n.factors))
			copy(factors, n.factors)
			factors[i] = diff(n.factors[i])
			terms = append(terms, &mulExpr{factors: factors})
		}
		if len(terms) == 0 {
			return intNum(0)
		}
		return &addExpr{terms: terms}

	case *powExpr:
		baseDep := dependsOn(n.base, variable)
		expDep := dependsOn(n.exp, variable)
		switch {
		case !baseDep && !expDep:
			return intNum(0)
		case !expDep:
			// d(u^k) = k u^(k-1) u'
			lowered := &powExpr{base: n.base, exp: &addExpr{terms: []expr{n.exp, intNum(-1)}}}
			return &mulExpr{factors: []expr{n.exp, lowered, diff(n.base)}}
		case !baseDep:
			// d(a^v) = a^v log(a) v'
			return &mulExpr{factors: []expr{n, fn("log", n.base), diff(n.exp)}}
		}
		// d(u^v) = u^v (v' log(u) + v u'/u)
		inner := &addExpr{terms: []expr{
			&mulExpr{factors: []expr{diff(n.exp), fn("log", n.base)}},
			&mulExpr{factors: []expr{n.exp, diff(n.base), recip(n.base)}},
		}}
		return &mulExpr{factors: []expr{n, inner}}

	case *fnExpr:
		du := diff(n.arg)
		var outer expr
		switch n.name {
		case "sin":
			outer = fn("cos", n.arg)
		case "cos":
			outer = neg(fn("sin", n.arg))
		case "tan":
			outer = &addExpr{terms: []expr{intNum(1), &powExpr{base: fn("tan", n.arg), exp: intNum(2)}}}
		case "exp":
			outer = fn("exp", n.arg)
		case "log":
			outer = recip(n.arg)
		default:
			return intNum(0)
		}
		return &mulExpr{factors: []expr{outer, du}}
	}
	return intNum(0)
}

// antiderivative integrates e with respect to the variable, omitting the
// constant of integration. It covers polynomials (including 1/x), constant
// multiples, sums, sin/cos/exp of a linear argument and powers of a linear
// base.
func antiderivative(e expr) (expr, error) {
	r, err := integrate(simplify(e))
	if err != nil {
		return nil, err
	}
	return simplify(r), nil
}

func integrate(e expr) (expr, error) {
	if !dependsOn(e, variable) {
		return &mulExpr{factors: []expr{e, sym(variable)}}, nil
	}
	if p, ok := toPoly(e); ok {
		return integratePoly(p), nil
	}

	switch n := e.(type) {
	case *addExpr:
		terms := make([]expr, len(n.terms))
		for i, t := range n.terms {
			it, err := integrate(t)
			if err != nil {
				return nil, err
			}
			terms[i] = it
		}
		return &addExpr{terms: terms}, nil

	case *mulExpr:
		var consts, deps []expr
		for _, f := range n.factors {
			if dependsOn(f, variable) {
				deps = append(deps, f)
			} else {
				consts = append(consts, f)
			}
		}
		if len(deps) != 1 {
			return nil, errNoAntiderivative
		}
		inner, err := integrate(deps[0])
		if err != nil {
			return nil, err
		}
		return &mulExpr{factors: append(consts, inner)}, nil

	case *fnExpr:
		a, _, ok := linear(n.arg)
		if !ok {
			return nil, errNoAntiderivative
		}
		scale := ratNum(new(big.Rat).Inv(a))
		switch n.name {
		case "sin":
			return &mulExpr{factors: []expr{intNum(-1), scale, fn("cos", n.arg)}}, nil
		case "cos":
			return &mulExpr{factors: []expr{scale, fn("sin", n.arg)}}, nil
		case "exp":
			return &mulExpr{factors: []expr{scale, n}}, nil
		}

	case *powExpr:
		if k, ok := asNum(n.exp); ok {
			a, _, ok := linear(n.base)
			if !ok {
				return nil, errNoAntiderivative
			}
			if k.Cmp(big.NewRat(-1, 1)) == 0 {
				return &mulExpr{factors: []expr{ratNum(new(big.Rat).Inv(a)), fn("log", n.base)}}, nil
			}
			k1 := new(big.Rat).Add(k, big.NewRat(1, 1))
			scale := new(big.Rat).Inv(new(big.Rat).Mul(a, k1))
			return &mulExpr{factors: []expr{ratNum(scale), &powExpr{base: n.base, exp: ratNum(k1)}}}, nil
		}
		if !dependsOn(n.base, variable) {
			a, _, ok := linear(n.exp)
			if !ok {
				return nil, errNoAntiderivative
			}
			// a^(cx+d) / (c log(a))
			return &mulExpr{factors: []expr{n, recip(&mulExpr{factors: []expr{ratNum(a), fn("log", n.base)}})}}, nil
		}
	}
	return nil, errNoAntiderivative
}

func integratePoly(p poly) expr {
	terms := make([]expr, 0, len(p))
	for d, c := range p {
		if d == -1 {
			terms = append(terms, &mulExpr{factors: []expr{ratNum(c), fn("log", sym(variable))}})
			continue
		}
		coef := new(big.Rat).Quo(c, big.NewRat(int64(d+1), 1))
		terms = append(terms, monomial(d+1, coef))
	}
	if len(terms) == 0 {
		return intNum(0)
	}
	return &addExpr{terms: terms}
}

// linear reports e as a*x + b with a non-zero.
func linear(e expr) (a, b *big.Rat, ok bool) {
	p, isPoly := toPoly(e)
	if !isPoly {
		return nil, nil, false
	}
	a, b = new(big.Rat), new(big.Rat)
	for d, c := range p {
		switch d {
		case 0:
			b.Set(c)
		case 1:
			a.Set(c)
		default:
			return nil, nil, false
		}
	}
	if a.Sign() == 0 {
		return nil, nil, false
	}
	return a, b, true
}
