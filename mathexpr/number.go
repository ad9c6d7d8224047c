package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	// maxIntDigits bounds integer results rendered as text.
	maxIntDigits = 4300
	// maxPowBits bounds the estimated size of an integer power before computing it.
	maxPowBits = 20000
)

var (
	errDivisionByZero = errors.New("division by zero")
	errOverflow       = errors.New("numerical result out of range")
	errComplex        = errors.New("result is a complex number")
)

// number is an exact integer or a float64, mirroring how arithmetic promotes
// integers to floats only for true division, negative powers or float operands.
type number struct {
	isInt bool
	i     *big.Int
	f     float64
}

func intNumber(i *big.Int) number  { return number{isInt: true, i: i} }
func floatNumber(f float64) number { return number{f: f} }

func parseNumber(text string) (number, error) {
	if !strings.Contains(text, ".") {
		i, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return number{}, fmt.Errorf("invalid integer %q", text)
		}
		return intNumber(i), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return number{}, fmt.Errorf("invalid number %q", text)
	}
	return floatNumber(f), nil
}

func (n number) float() (float64, error) {
	if !n.isInt {
		return n.f, nil
	}
	f, _ := new(big.Float).SetInt(n.i).Float64()
	if math.IsInf(f, 0) {
		return 0, errOverflow
	}
	return f, nil
}

func (n number) isZero() bool {
	if n.isInt {
		return n.i.Sign() == 0
	}
	return n.f == 0
}

func (n number) neg() number {
	if n.isInt {
		return intNumber(new(big.Int).Neg(n.i))
	}
	return floatNumber(-n.f)
}

// floatPair converts both operands when either one is a float.
func floatPair(a, b number) (float64, float64, error) {
	x, err := a.float()
	if err != nil {
		return 0, 0, err
	}
	y, err := b.float()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func add(a, b number) (number, error) {
	if a.isInt && b.isInt {
		return intNumber(new(big.Int).Add(a.i, b.i)), nil
	}
	x, y, err := floatPair(a, b)
	if err != nil {
		return number{}, err
	}
	return floatNumber(x + y), nil
}

func sub(a, b number) (number, error) {
	return add(a, b.neg())
}

func mul(a, b number) (number, error) {
	if a.isInt && b.isInt {
		return intNumber(new(big.Int).Mul(a.i, b.i)), nil
	}
	x, y, err := floatPair(a, b)
	if err != nil {
		return number{}, err
	}
	return floatNumber(x * y), nil
}

// div is true division; the result is always a float.
func div(a, b number) (number, error) {
	if b.isZero() {
		return number{}, errDivisionByZero
	}
	if a.isInt && b.isInt {
		f, _ := new(big.Rat).SetFrac(a.i, b.i).Float64()
		if math.IsInf(f, 0) {
			return number{}, errOverflow
		}
		return floatNumber(f), nil
	}
	x, y, err := floatPair(a, b)
	if err != nil {
		return number{}, err
	}
	return floatNumber(x / y), nil
}

// floorDiv rounds the quotient towards negative infinity.
func floorDiv(a, b number) (number, error) {
	if b.isZero() {
		return number{}, errDivisionByZero
	}
	if a.isInt && b.isInt {
		q, r := new(big.Int).QuoRem(a.i, b.i, new(big.Int))
		if r.Sign() != 0 && (r.Sign() < 0) != (b.i.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		return intNumber(q), nil
	}
	x, y, err := floatPair(a, b)
	if err != nil {
		return number{}, err
	}
	return floatNumber(math.Floor(x / y)), nil
}

func power(a, b number) (number, error) {
	if a.isInt && b.isInt && b.i.Sign() >= 0 {
		if !b.i.IsInt64() {
			return number{}, errOverflow
		}
		exp := b.i.Int64()
		if a.i.BitLen() > 1 && int64(a.i.BitLen()-1)*exp > maxPowBits {
			return number{}, errOverflow
		}
		return intNumber(new(big.Int).Exp(a.i, b.i, nil)), nil
	}

	x, y, err := floatPair(a, b)
	if err != nil {
		return number{}, err
	}
	if x == 0 && y < 0 {
		return number{}, errDivisionByZero
	}
	if x < 0 && y != math.Trunc(y) {
		return number{}, errComplex
	}
	r := math.Pow(x, y)
	if math.IsInf(r, 0) {
		return number{}, errOverflow
	}
	return floatNumber(r), nil
}

// String renders integers exactly and floats as the shortest round-trip
// decimal, keeping a ".0" suffix on integral values ("6.0") and switching to
// exponent form below 1e-4 or from 1e16 upwards.
func (n number) String() (string, error) {
	if n.isInt {
		s := n.i.String()
		if len(strings.TrimPrefix(s, "-")) > maxIntDigits {
			return "", errOverflow
		}
		return s, nil
	}
	return formatFloat(n.f), nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
