package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parsePattern parses a match-arm pattern: wildcard `_`, a literal, or a
// variant path with an optional single binder.
func (p *Parser) parsePattern() (ast.Pattern, bool) {
	switch p.cur().Kind {
	case token.Underscore:
		tok := p.advance()
		return ast.Pattern{Kind: ast.PatternWildcard, Loc: tok.Span}, true

	case token.IntLit:
		tok := p.advance()
		lit := &ast.IntLitExpr{Value: tok.Text}
		lit.Loc = tok.Span
		return ast.Pattern{Kind: ast.PatternLiteral, Lit: lit, Loc: tok.Span}, true

	case token.StringLit:
		tok := p.advance()
		lit := &ast.TextLitExpr{Value: tok.Text}
		lit.Loc = tok.Span
		return ast.Pattern{Kind: ast.PatternLiteral, Lit: lit, Loc: tok.Span}, true

	case token.KwTrue, token.KwFalse:
		tok := p.advance()
		lit := &ast.BoolLitExpr{Value: tok.Kind == token.KwTrue}
		lit.Loc = tok.Span
		return ast.Pattern{Kind: ast.PatternLiteral, Lit: lit, Loc: tok.Span}, true

	case token.Ident:
		start := p.cur().Span
		segments := []string{p.advance().Text}
		for {
			if p.at(token.ColonColon) && p.peekAt(1).Kind == token.Ident {
				p.advance()
				segments = append(segments, p.advance().Text)
				continue
			}
			if p.at(token.Dot) && p.peekAt(1).Kind == token.Ident {
				p.advance()
				segments = append(segments, p.advance().Text)
				continue
			}
			break
		}

		pattern := ast.Pattern{Kind: ast.PatternVariant, Path: segments}
		if p.accept(token.LParen) {
			bind, _, ok := p.expectIdent()
			if !ok {
				return ast.Pattern{}, false
			}
			pattern.Bind = bind
			if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close pattern binder"); !ok {
				return ast.Pattern{}, false
			}
		}
		pattern.Loc = p.spanFrom(start)
		return pattern, true

	default:
		p.err(diag.SynExpectPattern, "expected match pattern, found "+p.cur().Kind.String())
		return ast.Pattern{}, false
	}
}
