package token

import (
	"kooix/internal/source"
)

// Token represents a single source token with its location.
// Text carries the identifier spelling, the decoded string value, or the
// raw digits of a number; it is empty for punctuation.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwFn && t.Kind <= KwFalse
}

// IsLiteral reports whether the token is an integer, boolean, or string literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, StringLit, KwTrue, KwFalse:
		return true
	default:
		return false
	}
}

// IsComparison reports whether the token is one of the predicate-only
// comparison operators.
func (t Token) IsComparison() bool {
	switch t.Kind {
	case Lt, Gt, LtEq, GtEq:
		return true
	default:
		return false
	}
}
