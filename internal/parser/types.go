package parser

import (
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parseTypeRef parses `Name` or `Alias::Name` followed by an optional
// angle-bracket argument list. Qualified heads keep the `::` in the name;
// the analyzer resolves them against import aliases.
func (p *Parser) parseTypeRef() (ast.TypeRef, bool) {
	name, span, ok := p.expectIdent()
	if !ok {
		return ast.TypeRef{}, false
	}

	segments := []string{name}
	for p.at(token.ColonColon) && p.peekAt(1).Kind == token.Ident {
		p.advance()
		seg, _, ok := p.expectIdent()
		if !ok {
			return ast.TypeRef{}, false
		}
		segments = append(segments, seg)
	}

	ref := ast.TypeRef{Name: strings.Join(segments, "::"), Loc: span}

	if p.at(token.Lt) {
		p.advance()
		if !p.at(token.Gt) {
			for {
				arg, ok := p.parseTypeArg()
				if !ok {
					return ast.TypeRef{}, false
				}
				ref.Args = append(ref.Args, arg)
				if p.accept(token.Comma) {
					continue
				}
				break
			}
		}
		if _, ok := p.expect(token.Gt, diag.SynUnclosedDelimiter, "expected '>' to close type arguments"); !ok {
			return ast.TypeRef{}, false
		}
	}

	ref.Loc = p.spanFrom(span)
	return ref, true
}

// parseTypeArg parses a type argument: a string, an integer, or a type.
func (p *Parser) parseTypeArg() (ast.TypeArg, bool) {
	switch p.cur().Kind {
	case token.StringLit:
		tok := p.advance()
		return ast.TypeArg{Kind: ast.TypeArgString, Value: tok.Text}, true
	case token.IntLit:
		tok := p.advance()
		return ast.TypeArg{Kind: ast.TypeArgNumber, Value: tok.Text}, true
	case token.Ident:
		ty, ok := p.parseTypeRef()
		if !ok {
			return ast.TypeArg{}, false
		}
		return ast.TypeArg{Kind: ast.TypeArgType, Type: &ty}, true
	default:
		p.err(diag.SynExpectType, "expected type argument")
		return ast.TypeArg{}, false
	}
}

// parseGenericParams parses `<T, U: Bound + Bound2>`; the caller has
// checked for a leading '<'.
func (p *Parser) parseGenericParams() ([]ast.GenericParam, bool) {
	p.advance() // '<'

	var params []ast.GenericParam
	if !p.at(token.Gt) {
		for {
			name, span, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			param := ast.GenericParam{Name: name, Loc: span}
			if p.accept(token.Colon) {
				for {
					bound, ok := p.parseTypeRef()
					if !ok {
						return nil, false
					}
					param.Bounds = append(param.Bounds, bound)
					if p.accept(token.Plus) {
						continue
					}
					break
				}
			}
			params = append(params, param)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.Gt, diag.SynUnclosedDelimiter, "expected '>' to close generic parameters"); !ok {
		return nil, false
	}
	return params, true
}

// parseWhereClause parses `where [T: Bound, ...]` and merges the bounds
// into the matching generic parameters.
func (p *Parser) parseWhereClause(params []ast.GenericParam) bool {
	p.advance() // 'where'
	if _, ok := p.expect(token.LBracket, diag.SynUnexpectedToken, "expected '[' after 'where'"); !ok {
		return false
	}

	if !p.at(token.RBracket) {
		for {
			name, span, ok := p.expectIdent()
			if !ok {
				return false
			}
			if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' in where bound"); !ok {
				return false
			}
			bound, ok := p.parseTypeRef()
			if !ok {
				return false
			}

			found := false
			for i := range params {
				if params[i].Name == name {
					params[i].Bounds = append(params[i].Bounds, bound)
					found = true
					break
				}
			}
			if !found {
				p.report(diag.SynWhereUnknownParam, diag.SevError, span,
					"where clause bounds unknown generic parameter '"+name+"'")
			}

			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	_, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close where clause")
	return ok
}

// parseParamList parses `(name: Type, ...)` including the parentheses.
func (p *Parser) parseParamList() ([]ast.Param, bool) {
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('"); !ok {
		return nil, false
	}

	var params []ast.Param
	if !p.at(token.RParen) {
		for {
			name, span, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after parameter name"); !ok {
				return nil, false
			}
			ty, ok := p.parseTypeRef()
			if !ok {
				return nil, false
			}
			params = append(params, ast.Param{Name: name, Type: ty, Loc: p.spanFrom(span)})
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close parameter list"); !ok {
		return nil, false
	}
	return params, true
}
