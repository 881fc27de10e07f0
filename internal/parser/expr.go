package parser

import (
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/source"
	"kooix/internal/token"
)

// parseBlock parses `{ stmts; [tail-expr] }`.
func (p *Parser) parseBlock() (*ast.Block, bool) {
	open, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	if !ok {
		return nil, false
	}

	block := &ast.Block{}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch {
		case p.at(token.KwLet):
			stmt, ok := p.parseLet()
			if !ok {
				return nil, false
			}
			block.Stmts = append(block.Stmts, stmt)

		case p.at(token.KwReturn):
			stmt, ok := p.parseReturn()
			if !ok {
				return nil, false
			}
			block.Stmts = append(block.Stmts, stmt)

		case p.at(token.Ident) && p.peekAt(1).Kind == token.Eq:
			start := p.cur().Span
			name := p.advance().Text
			p.advance() // '='
			value, ok := p.parseExpr(true)
			if !ok {
				return nil, false
			}
			if _, ok := p.expectSemicolon(); !ok {
				return nil, false
			}
			stmt := &ast.AssignStmt{Name: name, Value: value}
			stmt.Loc = p.spanFrom(start)
			block.Stmts = append(block.Stmts, stmt)

		default:
			start := p.cur().Span
			expr, ok := p.parseExpr(true)
			if !ok {
				return nil, false
			}
			switch {
			case p.accept(token.Semicolon):
				stmt := &ast.ExprStmt{X: expr}
				stmt.Loc = p.spanFrom(start)
				block.Stmts = append(block.Stmts, stmt)
			case p.at(token.RBrace):
				block.Tail = expr
			case endsWithBlock(expr):
				// if/while/match used as a statement; the semicolon is optional.
				stmt := &ast.ExprStmt{X: expr}
				stmt.Loc = p.spanFrom(start)
				block.Stmts = append(block.Stmts, stmt)
			default:
				p.err(diag.SynExpectSemicolon, "expected ';' after expression")
				return nil, false
			}
		}
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close block"); !ok {
		return nil, false
	}
	block.Loc = p.spanFrom(open.Span)
	return block, true
}

func endsWithBlock(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.IfExpr, *ast.WhileExpr, *ast.MatchExpr:
		return true
	default:
		return false
	}
}

func (p *Parser) parseLet() (ast.Stmt, bool) {
	start := p.advance().Span // 'let'

	name, _, ok := p.expectIdent()
	if !ok {
		return nil, false
	}

	var ty *ast.TypeRef
	if p.accept(token.Colon) {
		parsed, ok := p.parseTypeRef()
		if !ok {
			return nil, false
		}
		ty = &parsed
	}

	if _, ok := p.expect(token.Eq, diag.SynUnexpectedToken, "expected '=' in let binding"); !ok {
		return nil, false
	}
	value, ok := p.parseExpr(true)
	if !ok {
		return nil, false
	}
	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}

	stmt := &ast.LetStmt{Name: name, Type: ty, Value: value}
	stmt.Loc = p.spanFrom(start)
	return stmt, true
}

func (p *Parser) parseReturn() (ast.Stmt, bool) {
	start := p.advance().Span // 'return'

	stmt := &ast.ReturnStmt{}
	if !p.at(token.Semicolon) {
		value, ok := p.parseExpr(true)
		if !ok {
			return nil, false
		}
		stmt.Value = value
	}
	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}
	stmt.Loc = p.spanFrom(start)
	return stmt, true
}

// parseExpr parses a function-body expression. allowStructLit gates
// record literals: in `if`/`while`/`match` head position `Ident {` opens
// the construct's block, so a record literal there must be parenthesized.
func (p *Parser) parseExpr(allowStructLit bool) (ast.Expr, bool) {
	return p.parseEquality(allowStructLit)
}

func (p *Parser) parseEquality(allowStructLit bool) (ast.Expr, bool) {
	left, ok := p.parseAdditive(allowStructLit)
	if !ok {
		return nil, false
	}

	for {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case token.EqEq:
			op = ast.BinEq
		case token.NotEq:
			op = ast.BinNotEq
		case token.Lt, token.Gt, token.LtEq, token.GtEq:
			p.err(diag.SynComparisonOutsidePredicate,
				"comparison operators are only available in predicate contexts (ensures, stop when)")
			return nil, false
		case token.AndAnd, token.OrOr:
			p.err(diag.SynLogicalOutsidePredicate,
				"logical operators '&&' and '||' are not supported")
			return nil, false
		default:
			return left, true
		}
		start := left.Span()
		p.advance()
		right, ok := p.parseAdditive(allowStructLit)
		if !ok {
			return nil, false
		}
		bin := &ast.BinaryExpr{Op: op, Left: left, Right: right}
		bin.Loc = start.Cover(p.lastSpan)
		left = bin
	}
}

func (p *Parser) parseAdditive(allowStructLit bool) (ast.Expr, bool) {
	left, ok := p.parsePrimary(allowStructLit)
	if !ok {
		return nil, false
	}

	for p.at(token.Plus) {
		start := left.Span()
		p.advance()
		right, ok := p.parsePrimary(allowStructLit)
		if !ok {
			return nil, false
		}
		bin := &ast.BinaryExpr{Op: ast.BinAdd, Left: left, Right: right}
		bin.Loc = start.Cover(p.lastSpan)
		left = bin
	}
	return left, true
}

func (p *Parser) parsePrimary(allowStructLit bool) (ast.Expr, bool) {
	switch p.cur().Kind {
	case token.IntLit:
		tok := p.advance()
		e := &ast.IntLitExpr{Value: tok.Text}
		e.Loc = tok.Span
		return e, true

	case token.StringLit:
		tok := p.advance()
		e := &ast.TextLitExpr{Value: tok.Text}
		e.Loc = tok.Span
		return e, true

	case token.KwTrue, token.KwFalse:
		tok := p.advance()
		e := &ast.BoolLitExpr{Value: tok.Kind == token.KwTrue}
		e.Loc = tok.Span
		return e, true

	case token.LParen:
		p.advance()
		expr, ok := p.parseExpr(true)
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close expression"); !ok {
			return nil, false
		}
		return expr, true

	case token.KwIf:
		return p.parseIf()

	case token.KwWhile:
		return p.parseWhile()

	case token.KwMatch:
		return p.parseMatch()

	case token.Ident:
		return p.parsePathLike(allowStructLit)

	default:
		p.err(diag.SynExpectExpression, "expected expression, found "+p.cur().Kind.String())
		return nil, false
	}
}

func (p *Parser) parseIf() (ast.Expr, bool) {
	start := p.advance().Span // 'if'

	cond, ok := p.parseExpr(false)
	if !ok {
		return nil, false
	}
	thenBlock, ok := p.parseBlock()
	if !ok {
		return nil, false
	}

	expr := &ast.IfExpr{Cond: cond, Then: thenBlock}
	if p.accept(token.KwElse) {
		if p.at(token.KwIf) {
			// else-if chains: desugar into an else block whose value is
			// the nested if.
			nested, ok := p.parseIf()
			if !ok {
				return nil, false
			}
			elseBlock := &ast.Block{Tail: nested}
			elseBlock.Loc = nested.Span()
			expr.Else = elseBlock
		} else {
			elseBlock, ok := p.parseBlock()
			if !ok {
				return nil, false
			}
			expr.Else = elseBlock
		}
	}

	expr.Loc = p.spanFrom(start)
	return expr, true
}

func (p *Parser) parseWhile() (ast.Expr, bool) {
	start := p.advance().Span // 'while'

	cond, ok := p.parseExpr(false)
	if !ok {
		return nil, false
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil, false
	}

	expr := &ast.WhileExpr{Cond: cond, Body: body}
	expr.Loc = p.spanFrom(start)
	return expr, true
}

func (p *Parser) parseMatch() (ast.Expr, bool) {
	start := p.advance().Span // 'match'

	value, ok := p.parseExpr(false)
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' to open match arms"); !ok {
		return nil, false
	}

	expr := &ast.MatchExpr{Value: value}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		pattern, ok := p.parsePattern()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.FatArrow, diag.SynUnexpectedToken, "expected '=>' after match pattern"); !ok {
			return nil, false
		}

		arm := ast.MatchArm{Pattern: pattern}
		if p.at(token.LBrace) {
			block, ok := p.parseBlock()
			if !ok {
				return nil, false
			}
			arm.Block = block
		} else {
			armExpr, ok := p.parseExpr(true)
			if !ok {
				return nil, false
			}
			arm.Expr = armExpr
		}
		expr.Arms = append(expr.Arms, arm)

		if p.accept(token.Comma) {
			continue
		}
		break
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close match arms"); !ok {
		return nil, false
	}
	expr.Loc = p.spanFrom(start)
	return expr, true
}

// parsePathLike parses everything that starts with an identifier: a
// variable/member path, a call (optionally with explicit type arguments),
// or a record literal.
func (p *Parser) parsePathLike(allowStructLit bool) (ast.Expr, bool) {
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

	// Explicit type arguments: `target<T, ...>(args)` or a generic record
	// literal `Type<T> { ... }`. The '<' is ambiguous with comparison, so
	// this is the parser's one bounded backtracking point.
	var typeArgs []ast.TypeRef
	if p.at(token.Lt) {
		save := p.pos
		saveErrs := p.errs
		saveLast := p.lastSpan
		args, ok := p.tryTypeArgList()
		if ok && (p.at(token.LParen) || (p.at(token.LBrace) && allowStructLit)) {
			typeArgs = args
		} else {
			p.pos = save
			p.errs = saveErrs
			p.lastSpan = saveLast
			p.err(diag.SynComparisonOutsidePredicate,
				"comparison operators are only available in predicate contexts (ensures, stop when)")
			return nil, false
		}
	}

	switch {
	case p.at(token.LParen):
		p.advance()
		call := &ast.CallExpr{Target: segments, TypeArgs: typeArgs}
		if !p.at(token.RParen) {
			for {
				arg, ok := p.parseExpr(true)
				if !ok {
					return nil, false
				}
				call.Args = append(call.Args, arg)
				if p.accept(token.Comma) {
					continue
				}
				break
			}
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close call arguments"); !ok {
			return nil, false
		}
		call.Loc = p.spanFrom(start)
		return call, true

	case p.at(token.LBrace) && allowStructLit:
		return p.parseRecordLit(start, segments, typeArgs)

	default:
		if typeArgs != nil {
			p.err(diag.SynUnexpectedToken, "expected '(' after explicit type arguments")
			return nil, false
		}
		path := &ast.PathExpr{Segments: segments}
		path.Loc = p.spanFrom(start)
		return path, true
	}
}

// tryTypeArgList parses `<Type, ...>` without reporting; used by the
// backtracking point in parsePathLike. The caller restores position on
// failure.
func (p *Parser) tryTypeArgList() ([]ast.TypeRef, bool) {
	p.advance() // '<'
	args := make([]ast.TypeRef, 0, 2)
	if p.at(token.Gt) {
		p.advance()
		return args, true
	}
	for {
		if !p.at(token.Ident) {
			return nil, false
		}
		saved := p.opts.Reporter
		p.opts.Reporter = nil
		ty, ok := p.parseTypeRef()
		p.opts.Reporter = saved
		if !ok {
			return nil, false
		}
		args = append(args, ty)
		if p.accept(token.Comma) {
			continue
		}
		break
	}
	if !p.at(token.Gt) {
		return nil, false
	}
	p.advance()
	return args, true
}

func (p *Parser) parseRecordLit(start source.Span, segments []string, typeArgs []ast.TypeRef) (ast.Expr, bool) {
	ty := ast.TypeRef{Name: strings.Join(segments, "::"), Loc: start}
	for i := range typeArgs {
		ty.Args = append(ty.Args, ast.TypeArg{Kind: ast.TypeArgType, Type: &typeArgs[i]})
	}

	p.advance() // '{'
	lit := &ast.RecordLitExpr{Type: ty}
	if !p.at(token.RBrace) {
		for {
			name, _, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after record field name"); !ok {
				return nil, false
			}
			value, ok := p.parseExpr(true)
			if !ok {
				return nil, false
			}
			lit.Fields = append(lit.Fields, ast.RecordLitField{Name: name, Value: value})
			if p.accept(token.Comma) {
				if p.at(token.RBrace) {
					break // trailing comma
				}
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close record literal"); !ok {
		return nil, false
	}
	lit.Loc = p.spanFrom(start)
	return lit, true
}
