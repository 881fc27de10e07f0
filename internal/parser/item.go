package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parseCapability parses `cap Type<args>;`.
func (p *Parser) parseCapability() (ast.Item, bool) {
	start := p.advance().Span // 'cap'

	capability, ok := p.parseTypeRef()
	if !ok {
		return nil, false
	}
	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}

	decl := &ast.CapabilityDecl{Capability: capability}
	decl.Loc = p.spanFrom(start)
	return decl, true
}

// parseImport parses `import "path";` and `import "path" as Alias;`.
func (p *Parser) parseImport() (ast.Item, bool) {
	start := p.advance().Span // 'import'

	if !p.at(token.StringLit) {
		p.err(diag.SynImportBadPath, "import expects a string literal path")
		return nil, false
	}
	path := p.advance().Text

	alias := ""
	if p.accept(token.KwAs) {
		if !p.at(token.Ident) {
			p.err(diag.SynImportBadAlias, "import expects an identifier after 'as'")
			return nil, false
		}
		alias = p.advance().Text
	}

	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}

	decl := &ast.ImportDecl{Path: path, Alias: alias}
	decl.Loc = p.spanFrom(start)
	return decl, true
}

// parseRecord parses
// `record Name[<T: Bound, ...>] [where [T: Bound, ...]] { field: Type; ... };`.
func (p *Parser) parseRecord() (ast.Item, bool) {
	start := p.advance().Span // 'record'

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

	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' to open record body"); !ok {
		return nil, false
	}

	var fields []ast.RecordField
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fieldName, _, ok := p.expectIdent()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after field name"); !ok {
			return nil, false
		}
		fieldType, ok := p.parseTypeRef()
		if !ok {
			return nil, false
		}
		if _, ok := p.expectSemicolon(); !ok {
			return nil, false
		}
		fields = append(fields, ast.RecordField{Name: fieldName, Type: fieldType})
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close record body"); !ok {
		return nil, false
	}
	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}

	decl := &ast.RecordDecl{Name: name, Generics: generics, Fields: fields}
	decl.Loc = p.spanFrom(start)
	return decl, true
}

// parseEnum parses `enum Name[<T, ...>] { Variant[(Type)], ... };`.
func (p *Parser) parseEnum() (ast.Item, bool) {
	start := p.advance().Span // 'enum'

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

	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' to open enum body"); !ok {
		return nil, false
	}

	var variants []ast.EnumVariant
	if !p.at(token.RBrace) {
		for {
			variantName, _, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			variant := ast.EnumVariant{Name: variantName}
			if p.accept(token.LParen) {
				payload, ok := p.parseTypeRef()
				if !ok {
					return nil, false
				}
				variant.Payload = &payload
				if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close variant payload"); !ok {
					return nil, false
				}
			}
			variants = append(variants, variant)
			if p.accept(token.Comma) {
				if p.at(token.RBrace) {
					break // trailing comma
				}
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close enum body"); !ok {
		return nil, false
	}
	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}

	decl := &ast.EnumDecl{Name: name, Generics: generics, Variants: variants}
	decl.Loc = p.spanFrom(start)
	return decl, true
}
