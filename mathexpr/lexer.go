package mathexpr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokFloorDiv
	tokPow
	tokCaret
	tokLParen
	tokRParen
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokStar:
		return "'*'"
	case tokSlash:
		return "'/'"
	case tokFloorDiv:
		return "'//'"
	case tokPow:
		return "'**'"
	case tokCaret:
		return "'^'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	}
	return "unknown"
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex splits input into tokens. Number literals follow the usual decimal rules:
// "1", "1.5", "1.", ".5"; an integer literal may not have leading zeros ("012").
func lex(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			isFloat := false
			if i < len(runes) && runes[i] == '.' {
				isFloat = true
				i++
				for i < len(runes) && unicode.IsDigit(runes[i]) {
					i++
				}
			}
			text := string(runes[start:i])
			if !isFloat && len(text) > 1 && text[0] == '0' && strings.Trim(text, "0") != "" {
				return nil, fmt.Errorf("leading zeros are not permitted in %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, pos: start})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})

		default:
			kind, width := tokEOF, 1
			switch r {
			case '+':
				kind = tokPlus
			case '-':
				kind = tokMinus
			case '*':
				kind = tokStar
				if i+1 < len(runes) && runes[i+1] == '*' {
					kind, width = tokPow, 2
				}
			case '/':
				kind = tokSlash
				if i+1 < len(runes) && runes[i+1] == '/' {
					kind, width = tokFloorDiv, 2
				}
			case '^':
				kind = tokCaret
			case '(':
				kind = tokLParen
			case ')':
				kind = tokRParen
			default:
				return nil, fmt.Errorf("unexpected character %q at %d", r, i)
			}
			tokens = append(tokens, token{kind: kind, text: string(runes[i : i+width]), pos: i})
			i += width
		}
	}

	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

// tokenStream is a cursor shared by the arithmetic and symbolic parsers.
type tokenStream struct {
	tokens []token
	pos    int
	depth  int
}

// maxNesting bounds parser recursion so hostile input fails instead of
// exhausting the goroutine stack.
const maxNesting = 200

func (s *tokenStream) enter() error {
	s.depth++
	if s.depth > maxNesting {
		return fmt.Errorf("expression nested deeper than %d levels", maxNesting)
	}
	return nil
}

func (s *tokenStream) leave() {
	s.depth--
}

func (s *tokenStream) peek() token {
	return s.tokens[s.pos]
}

func (s *tokenStream) next() token {
	t := s.tokens[s.pos]
	if t.kind != tokEOF {
		s.pos++
	}
	return t
}

func (s *tokenStream) accept(kind tokenKind) bool {
	if s.peek().kind == kind {
		s.next()
		return true
	}
	return false
}

func (s *tokenStream) expect(kind tokenKind) error {
	if t := s.next(); t.kind != kind {
		return fmt.Errorf("expected %s, found %s at %d", kind, t.kind, t.pos)
	}
	return nil
}
