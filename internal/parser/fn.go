package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parseFunction parses
//
//	fn name[<T: Bound, ...>](params) [-> Type] <contract-blocks> [body] ;
//
// where contract blocks (intent, effect set, requires, ensures, failure,
// evidence) may appear in any order, each at most once. The trailing
// semicolon is required for body-less declarations and optional after a
// body block.
func (p *Parser) parseFunction() (ast.Item, bool) {
	start := p.advance().Span // 'fn'

	name, _, ok := p.expectIdent()
	if !ok {
		return nil, false
	}

	var generics []ast.GenericParam
	if p.at(token.Lt) {
		if generics, ok = p.parseGenericParams(); !ok {
			return nil, false
		}
	}
	if p.at(token.KwWhere) {
		if !p.parseWhereClause(generics) {
			return nil, false
		}
	}

	params, ok := p.parseParamList()
	if !ok {
		return nil, false
	}

	returnType := ast.TypeRef{Name: "Unit"}
	if p.accept(token.Arrow) {
		if returnType, ok = p.parseTypeRef(); !ok {
			return nil, false
		}
	}
	// Trailing where clauses are accepted after the signature too.
	if p.at(token.KwWhere) {
		if !p.parseWhereClause(generics) {
			return nil, false
		}
	}

	decl := &ast.FunctionDecl{
		Name:       name,
		Generics:   generics,
		Params:     params,
		ReturnType: returnType,
	}

	if !p.parseContractBlocks(decl) {
		return nil, false
	}

	if p.at(token.LBrace) {
		body, ok := p.parseBlock()
		if !ok {
			return nil, false
		}
		decl.Body = body
		p.accept(token.Semicolon)
	} else {
		if _, ok := p.expectSemicolon(); !ok {
			return nil, false
		}
	}

	decl.Loc = p.spanFrom(start)
	return decl, true
}

// parseContractBlocks consumes intent/effects/requires/ensures/failure/
// evidence in any order, rejecting duplicates.
func (p *Parser) parseContractBlocks(decl *ast.FunctionDecl) bool {
	for {
		switch p.cur().Kind {
		case token.KwIntent:
			if decl.Intent != nil {
				p.err(diag.SynDuplicateContractBlock, "duplicate 'intent' block")
				return false
			}
			intent, ok := p.parseIntent()
			if !ok {
				return false
			}
			decl.Intent = intent
		case token.BangBrace:
			if decl.Effects != nil {
				p.err(diag.SynDuplicateContractBlock, "duplicate effect set")
				return false
			}
			effects, ok := p.parseEffects()
			if !ok {
				return false
			}
			decl.Effects = effects
		case token.KwRequires:
			if decl.Requires != nil {
				p.err(diag.SynDuplicateContractBlock, "duplicate 'requires' list")
				return false
			}
			requires, ok := p.parseRequires()
			if !ok {
				return false
			}
			decl.Requires = requires
		case token.KwEnsures:
			if decl.Ensures != nil {
				p.err(diag.SynDuplicateContractBlock, "duplicate 'ensures' list")
				return false
			}
			ensures, ok := p.parseEnsures()
			if !ok {
				return false
			}
			decl.Ensures = ensures
		case token.KwFailure:
			if decl.Failure != nil {
				p.err(diag.SynDuplicateContractBlock, "duplicate 'failure' block")
				return false
			}
			failure, ok := p.parseFailure()
			if !ok {
				return false
			}
			decl.Failure = failure
		case token.KwEvidence:
			if decl.Evidence != nil {
				p.err(diag.SynDuplicateContractBlock, "duplicate 'evidence' block")
				return false
			}
			evidence, ok := p.parseEvidence()
			if !ok {
				return false
			}
			decl.Evidence = evidence
		default:
			return true
		}
	}
}

// parseIntent parses `intent "..."`.
func (p *Parser) parseIntent() (*string, bool) {
	p.advance() // 'intent'
	if !p.at(token.StringLit) {
		p.err(diag.SynExpectStringLit, "expected string literal after 'intent'")
		return nil, false
	}
	text := p.advance().Text
	return &text, true
}

// parseEffects parses `!{name[(arg)], ...}`; the caller has seen `!{`.
func (p *Parser) parseEffects() ([]ast.EffectSpec, bool) {
	p.advance() // '!{'

	effects := make([]ast.EffectSpec, 0, 2)
	if !p.at(token.RBrace) {
		for {
			name, span, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			effect := ast.EffectSpec{Name: name, Loc: span}
			if p.accept(token.LParen) {
				switch p.cur().Kind {
				case token.Ident, token.StringLit, token.IntLit:
					effect.Argument = p.advance().Text
					effect.HasArg = true
				default:
					p.err(diag.SynUnexpectedToken, "expected effect argument")
					return nil, false
				}
				if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close effect argument"); !ok {
					return nil, false
				}
			}
			effect.Loc = p.spanFrom(span)
			effects = append(effects, effect)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close effect set"); !ok {
		return nil, false
	}
	return effects, true
}

// parseRequires parses `requires [Cap<...>, ...]`.
func (p *Parser) parseRequires() ([]ast.TypeRef, bool) {
	p.advance() // 'requires'
	if _, ok := p.expect(token.LBracket, diag.SynUnexpectedToken, "expected '[' after 'requires'"); !ok {
		return nil, false
	}

	required := make([]ast.TypeRef, 0, 2)
	if !p.at(token.RBracket) {
		for {
			capability, ok := p.parseTypeRef()
			if !ok {
				return nil, false
			}
			required = append(required, capability)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close requires list"); !ok {
		return nil, false
	}
	return required, true
}
