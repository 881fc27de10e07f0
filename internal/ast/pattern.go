package ast

import (
	"kooix/internal/source"
)

// PatternKind discriminates Pattern.
type PatternKind uint8

const (
	// PatternWildcard is `_`.
	PatternWildcard PatternKind = iota
	// PatternVariant is a bare, namespaced, or binding variant pattern:
	// `Some`, `Some(x)`, `Option::Some(x)`, `Alias::Option::Some(x)`.
	PatternVariant
	// PatternLiteral is an integer, boolean, or string literal pattern.
	PatternLiteral
)

// Pattern is a match-arm pattern.
type Pattern struct {
	Kind PatternKind
	Path []string // variant path segments for PatternVariant
	Bind string   // payload binder; "" when absent
	Lit  Expr     // literal expression for PatternLiteral
	Loc  source.Span
}

// Span returns the pattern's source range.
func (p Pattern) Span() source.Span { return p.Loc }

// VariantName returns the last path segment for variant patterns.
func (p Pattern) VariantName() string {
	if p.Kind != PatternVariant || len(p.Path) == 0 {
		return ""
	}
	return p.Path[len(p.Path)-1]
}
