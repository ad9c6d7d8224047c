package mathexpr

import (
	"fmt"
)

// arithmetic grammar, tightest binding last:
//
//	expr  := term (('+' | '-') term)*
//	term  := unary (('*' | '/' | '//') unary)*
//	unary := ('+' | '-') unary | power
//	power := atom ['**' unary]
//	atom  := NUMBER | '(' expr ')'
//
// "-2**2" is -4 and "2**-1" is 0.5; "**" is right-associative.
type arithParser struct {
	tokenStream
}

func evalArithmetic(input string) (number, error) {
	tokens, err := lex(input)
	if err != nil {
		return number{}, err
	}
	p := &arithParser{tokenStream{tokens: tokens}}
	v, err := p.expr()
	if err != nil {
		return number{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return number{}, fmt.Errorf("unexpected %s at %d", t.kind, t.pos)
	}
	return v, nil
}

func (p *arithParser) expr() (number, error) {
	left, err := p.term()
	if err != nil {
		return number{}, err
	}
	for {
		switch {
		case p.accept(tokPlus):
			right, err := p.term()
			if err != nil {
				return number{}, err
			}
			if left, err = add(left, right); err != nil {
				return number{}, err
			}
		case p.accept(tokMinus):
			right, err := p.term()
			if err != nil {
				return number{}, err
			}
			if left, err = sub(left, right); err != nil {
				return number{}, err
			}
		default:
			return left, nil
		}
	}
}

func (p *arithParser) term() (number, error) {
	left, err := p.unary()
	if err != nil {
		return number{}, err
	}
	for {
		var op func(a, b number) (number, error)
		switch {
		case p.accept(tokStar):
			op = mul
		case p.accept(tokSlash):
			op = div
		case p.accept(tokFloorDiv):
			op = floorDiv
		default:
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return number{}, err
		}
		if left, err = op(left, right); err != nil {
			return number{}, err
		}
	}
}

func (p *arithParser) unary() (number, error) {
	if err := p.enter(); err != nil {
		return number{}, err
	}
	defer p.leave()

	switch {
	case p.accept(tokPlus):
		return p.unary()
	case p.accept(tokMinus):
		v, err := p.unary()
		if err != nil {
			return number{}, err
		}
		return v.neg(), nil
	}
	return p.power()
}

func (p *arithParser) power() (number, error) {
	base, err := p.atom()
	if err != nil {
		return number{}, err
	}
	if !p.accept(tokPow) {
		return base, nil
	}
	exp, err := p.unary()
	if err != nil {
		return number{}, err
	}
	return power(base, exp)
}

func (p *arithParser) atom() (number, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return parseNumber(t.text)
	case tokLParen:
		v, err := p.expr()
		if err != nil {
			return number{}, err
		}
		if err := p.expect(tokRParen); err != nil {
			return number{}, err
		}
		return v, nil
	}
	return number{}, fmt.Errorf("unexpected %s at %d", t.kind, t.pos)
}
