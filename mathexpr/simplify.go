package mathexpr

import (
	"math/big"
	"sort"
)

// maxExpand bounds the integer power a polynomial base is expanded to.
const maxExpand = 64

// poly maps a degree of the variable to its coefficient. Negative degrees are
// allowed so that terms like 3/x stay polynomial-shaped. Zero coefficients are
// never stored.
type poly map[int]*big.Rat

func (p poly) addTerm(deg int, c *big.Rat) {
	if c.Sign() == 0 {
		return
	}
	if cur, ok := p[deg]; ok {
		sum := new(big.Rat).Add(cur, c)
		if sum.Sign() == 0 {
			delete(p, deg)
			return
		}
		p[deg] = sum
		return
	}
	p[deg] = new(big.Rat).Set(c)
}

func (p poly) mul(q poly) poly {
	out := poly{}
	for d1, c1 := range p {
		for d2, c2 := range q {
			out.addTerm(d1+d2, new(big.Rat).Mul(c1, c2))
		}
	}
	return out
}

func constPoly(c *big.Rat) poly {
	p := poly{}
	p.addTerm(0, c)
	return p
}

// toPoly succeeds when e is a sum of rational multiples of integer powers of the variable.
func toPoly(e expr) (poly, bool) {
	switch n := e.(type) {
	case *numExpr:
		return constPoly(n.v), true
	case *symExpr:
		if n.name != variable {
			return nil, false
		}
		return poly{1: big.NewRat(1, 1)}, true
	case *addExpr:
		out := poly{}
		for _, t := range n.terms {
			tp, ok := toPoly(t)
			if !ok {
				return nil, false
			}
			for d, c := range tp {
				out.addTerm(d, c)
			}
		}
		return out, true
	case *mulExpr:
		out := constPoly(big.NewRat(1, 1))
		for _, f := range n.factors {
			fp, ok := toPoly(f)
			if !ok {
				return nil, false
			}
			out = out.mul(fp)
		}
		return out, true
	case *powExpr:
		r, ok := asNum(n.exp)
		if !ok || !r.IsInt() || !r.Num().IsInt64() {
			return nil, false
		}
		k := r.Num().Int64()
		base, ok := toPoly(n.base)
		if !ok {
			return nil, false
		}
		if k >= 0 {
			if k > maxExpand {
				return nil, false
			}
			out := constPoly(big.NewRat(1, 1))
			for i := int64(0); i < k; i++ {
				out = out.mul(base)
			}
			return out, true
		}
		// only a single term can be inverted
		if len(base) != 1 || -k > maxExpand {
			return nil, false
		}
		for d, c := range base {
			inv := new(big.Rat).Inv(c)
			coef := big.NewRat(1, 1)
			for i := int64(0); i < -k; i++ {
				coef.Mul(coef, inv)
			}
			return poly{d * int(k): coef}, true
		}
	}
	return nil, false
}

func monomial(deg int, c *big.Rat) expr {
	if deg == 0 {
		return ratNum(c)
	}
	var base expr = sym(variable)
	if deg != 1 {
		base = &powExpr{base: base, exp: intNum(int64(deg))}
	}
	return withCoef(c, base)
}

// fromPoly builds terms in descending degree order.
func fromPoly(p poly) expr {
	degs := make([]int, 0, len(p))
	for d := range p {
		degs = append(degs, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(degs)))

	terms := make([]expr, 0, len(degs))
	for _, d := range degs {
		terms = append(terms, monomial(d, p[d]))
	}
	switch len(terms) {
	case 0:
		return intNum(0)
	case 1:
		return terms[0]
	}
	return &addExpr{terms: terms}
}

// splitCoef separates the rational coefficient of a term from the rest of it.
// rest is nil for a pure number.
func splitCoef(e expr) (*big.Rat, expr) {
	switch n := e.(type) {
	case *numExpr:
		return n.v, nil
	case *mulExpr:
		coef := big.NewRat(1, 1)
		var rest []expr
		for _, f := range n.factors {
			if r, ok := asNum(f); ok {
				coef.Mul(coef, r)
				continue
			}
			rest = append(rest, f)
		}
		switch len(rest) {
		case 0:
			return coef, nil
		case 1:
			return coef, rest[0]
		}
		return coef, &mulExpr{factors: rest}
	}
	return big.NewRat(1, 1), e
}

func withCoef(coef *big.Rat, rest expr) expr {
	switch {
	case rest == nil:
		return ratNum(coef)
	case coef.Sign() == 0:
		return intNum(0)
	case coef.Cmp(big.NewRat(1, 1)) == 0:
		return rest
	}
	if m, ok := rest.(*mulExpr); ok {
		return &mulExpr{factors: append([]expr{ratNum(coef)}, m.factors...)}
	}
	return &mulExpr{factors: []expr{ratNum(coef), rest}}
}

// simplify rewrites e bottom-up into a canonical form. Polynomials in the
// variable are expanded and ordered by descending degree; everything else
// gets constant folding, like-term and like-factor merging.
func simplify(e expr) expr {
	var out expr
	switch n := e.(type) {
	case *numExpr, *symExpr:
		return e
	case *fnExpr:
		out = makeFn(n.name, simplify(n.arg))
	case *powExpr:
		out = makePow(simplify(n.base), simplify(n.exp))
	case *addExpr:
		terms := make([]expr, len(n.terms))
		for i, t := range n.terms {
			terms[i] = simplify(t)
		}
		out = makeAdd(terms)
	case *mulExpr:
		factors := make([]expr, len(n.factors))
		for i, f := range n.factors {
			factors[i] = simplify(f)
		}
		out = makeMul(factors)
	default:
		return e
	}
	if p, ok := toPoly(out); ok {
		return fromPoly(p)
	}
	return out
}

func makeFn(name string, arg expr) expr {
	switch name {
	case "sin", "tan":
		if isNumValue(arg, 0) {
			return intNum(0)
		}
	case "cos":
		if isNumValue(arg, 0) {
			return intNum(1)
		}
	case "exp":
		if isNumValue(arg, 0) {
			return intNum(1)
		}
		if inner, ok := arg.(*fnExpr); ok && inner.name == "log" {
			return inner.arg
		}
	case "log":
		if isNumValue(arg, 1) {
			return intNum(0)
		}
		if inner, ok := arg.(*fnExpr); ok && inner.name == "exp" {
			return inner.arg
		}
	}
	return fn(name, arg)
}

func makePow(base, exp expr) expr {
	if isNumValue(exp, 0) {
		return intNum(1)
	}
	if isNumValue(exp, 1) {
		return base
	}
	r, expIsNum := asNum(exp)
	expIsInt := expIsNum && r.IsInt() && r.Num().IsInt64()

	if b, ok := asNum(base); ok {
		switch {
		case b.Sign() == 0 && expIsNum && r.Sign() > 0:
			return intNum(0)
		case b.Cmp(big.NewRat(1, 1)) == 0:
			return intNum(1)
		case b.Sign() != 0 && expIsInt:
			k := r.Num().Int64()
			if k < -maxExpand || k > maxExpand {
				break
			}
			f := new(big.Rat).Set(b)
			if k < 0 {
				f.Inv(f)
				k = -k
			}
			v := big.NewRat(1, 1)
			for i := int64(0); i < k; i++ {
				v.Mul(v, f)
			}
			return ratNum(v)
		}
	}

	switch b := base.(type) {
	case *powExpr:
		if inner, ok := asNum(b.exp); ok && expIsInt {
			return makePow(b.base, ratNum(new(big.Rat).Mul(inner, r)))
		}
	case *mulExpr:
		if expIsInt {
			factors := make([]expr, len(b.factors))
			for i, f := range b.factors {
				factors[i] = makePow(f, exp)
			}
			return makeMul(factors)
		}
	}
	return &powExpr{base: base, exp: exp}
}

func makeAdd(terms []expr) expr {
	var flat []expr
	for _, t := range terms {
		if a, ok := t.(*addExpr); ok {
			flat = append(flat, a.terms...)
			continue
		}
		flat = append(flat, t)
	}

	constant := new(big.Rat)
	var keys []string
	coefs := map[string]*big.Rat{}
	rests := map[string]expr{}
	for _, t := range flat {
		coef, rest := splitCoef(t)
		if rest == nil {
			constant.Add(constant, coef)
			continue
		}
		key := format(rest)
		if cur, ok := coefs[key]; ok {
			cur.Add(cur, coef)
			continue
		}
		keys = append(keys, key)
		coefs[key] = new(big.Rat).Set(coef)
		rests[key] = rest
	}

	var polyTerms, others []expr
	for _, k := range keys {
		if coefs[k].Sign() == 0 {
			continue
		}
		term := withCoef(coefs[k], rests[k])
		if _, ok := toPoly(term); ok {
			polyTerms = append(polyTerms, term)
		} else {
			others = append(others, term)
		}
	}
	sort.SliceStable(polyTerms, func(i, j int) bool {
		return leadingDegree(polyTerms[i]) > leadingDegree(polyTerms[j])
	})

	out := append(polyTerms, others...)
	if constant.Sign() != 0 {
		out = append(out, ratNum(constant))
	}
	switch len(out) {
	case 0:
		return intNum(0)
	case 1:
		return out[0]
	}
	return &addExpr{terms: out}
}

func leadingDegree(e expr) int {
	p, _ := toPoly(e)
	best := 0
	first := true
	for d := range p {
		if first || d > best {
			best, first = d, false
		}
	}
	return best
}

func makeMul(factors []expr) expr {
	var flat []expr
	for _, f := range factors {
		if m, ok := f.(*mulExpr); ok {
			flat = append(flat, m.factors...)
			continue
		}
		flat = append(flat, f)
	}

	coef := big.NewRat(1, 1)
	var keys []string
	bases := map[string]expr{}
	exps := map[string]*big.Rat{}
	var opaque []expr
	for _, f := range flat {
		if r, ok := asNum(f); ok {
			coef.Mul(coef, r)
			continue
		}
		base, exp := f, big.NewRat(1, 1)
		if pw, ok := f.(*powExpr); ok {
			r, ok := asNum(pw.exp)
			if !ok {
				opaque = append(opaque, f)
				continue
			}
			base, exp = pw.base, r
		}
		key := format(base)
		if cur, ok := exps[key]; ok {
			cur.Add(cur, exp)
			continue
		}
		keys = append(keys, key)
		bases[key] = base
		exps[key] = new(big.Rat).Set(exp)
	}
	if coef.Sign() == 0 {
		return intNum(0)
	}

	var syms, rest []expr
	for _, k := range keys {
		if exps[k].Sign() == 0 {
			continue
		}
		f := makePow(bases[k], ratNum(exps[k]))
		if r, ok := asNum(f); ok {
			coef.Mul(coef, r)
			continue
		}
		if _, ok := bases[k].(*symExpr); ok {
			syms = append(syms, f)
		} else {
			rest = append(rest, f)
		}
	}
	sort.SliceStable(syms, func(i, j int) bool {
		return symbolName(syms[i]) < symbolName(syms[j])
	})

	out := append(append(syms, rest...), opaque...)
	if len(out) == 0 {
		return ratNum(coef)
	}
	var body expr = &mulExpr{factors: out}
	if len(out) == 1 {
		body = out[0]
	}
	return withCoef(coef, body)
}

func symbolName(e expr) string {
	switch n := e.(type) {
	case *symExpr:
		return n.name
	case *powExpr:
		return symbolName(n.base)
	}
	return ""
}
