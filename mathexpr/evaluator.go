// Package mathexpr evaluates the arithmetic and calculus questions users type
// into the chat: plain arithmetic ("2+2", "(3*4)/2") and derivative or
// integral requests over the variable x ("turunan dari fungsi x^2",
// "integral x**2").
package mathexpr

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "tanyabot/errors"
)

var (
	derivativeMarker = regexp.MustCompile(`fungsi (.+)`)
	integralMarker   = regexp.MustCompile(`integral (.+)`)
	nonArithmetic    = regexp.MustCompile(`[^\d+\-*/().]`)
	arithmeticOnly   = regexp.MustCompile(`^[\d\s+\-*/().]+$`)
)

// LooksEvaluable reports whether text should be routed to Evaluate: pure
// arithmetic, or a request starting with "turun" or "integral".
func LooksEvaluable(text string) bool {
	t := strings.TrimSpace(strings.ToLower(text))
	if t == "" {
		return false
	}
	return arithmeticOnly.MatchString(t) ||
		strings.HasPrefix(t, "turun") ||
		strings.HasPrefix(t, "integral")
}

// Evaluate answers a math question. Every failure wraps apperrors.ErrValidation.
func Evaluate(text string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(t, "turun"):
		m := derivativeMarker.FindStringSubmatch(t)
		if m == nil {
			return "", apperrors.WrapError(apperrors.ErrValidation, "derivative request has no 'fungsi' marker")
		}
		f, err := parseSymbolic(m[1])
		if err != nil {
			return "", apperrors.WrapErrorf(apperrors.ErrValidation, "parsing %q: %v", m[1], err)
		}
		return fmt.Sprintf("Turunan dari %s adalah %s", format(simplify(f)), format(derivative(f))), nil

	case strings.Contains(t, "integral"):
		m := integralMarker.FindStringSubmatch(t)
		if m == nil {
			return "", apperrors.WrapError(apperrors.ErrValidation, "integral request has no expression")
		}
		f, err := parseSymbolic(m[1])
		if err != nil {
			return "", apperrors.WrapErrorf(apperrors.ErrValidation, "parsing %q: %v", m[1], err)
		}
		anti, err := antiderivative(f)
		if err != nil {
			return "", apperrors.WrapErrorf(apperrors.ErrValidation, "integrating %q: %v", m[1], err)
		}
		return fmt.Sprintf("Integral dari %s adalah %s", format(simplify(f)), format(anti)), nil
	}

	stripped := nonArithmetic.ReplaceAllString(t, "")
	if stripped == "" {
		return "", apperrors.WrapError(apperrors.ErrValidation, "no arithmetic expression found")
	}
	v, err := evalArithmetic(stripped)
	if err != nil {
		return "", apperrors.WrapErrorf(apperrors.ErrValidation, "evaluating %q: %v", stripped, err)
	}
	s, err := v.String()
	if err != nil {
		return "", apperrors.WrapErrorf(apperrors.ErrValidation, "rendering %q: %v", stripped, err)
	}
	return s, nil
}
