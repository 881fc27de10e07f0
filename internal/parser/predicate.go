package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parseEnsures parses `ensures [pred, ...]`.
func (p *Parser) parseEnsures() ([]ast.EnsureClause, bool) {
	p.advance() // 'ensures'
	if _, ok := p.expect(token.LBracket, diag.SynUnexpectedToken, "expected '[' after 'ensures'"); !ok {
		return nil, false
	}

	ensures := make([]ast.EnsureClause, 0, 2)
	if !p.at(token.RBracket) {
		for {
			clause, ok := p.parseEnsureClause()
			if !ok {
				return nil, false
			}
			ensures = append(ensures, clause)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close ensures list"); !ok {
		return nil, false
	}
	return ensures, true
}

// parseEnsureClause parses a single `left op right` predicate. This is the
// only context where the full comparison operator set (and `in`) is legal.
func (p *Parser) parseEnsureClause() (ast.EnsureClause, bool) {
	start := p.diagSpan()

	left, ok := p.parsePredicateValue()
	if !ok {
		return ast.EnsureClause{}, false
	}
	op, ok := p.parsePredicateOp()
	if !ok {
		return ast.EnsureClause{}, false
	}
	right, ok := p.parsePredicateValue()
	if !ok {
		return ast.EnsureClause{}, false
	}

	return ast.EnsureClause{Left: left, Op: op, Right: right, Loc: p.spanFrom(start)}, true
}

// parsePredicateValue parses a string, a number, or a dotted symbol path.
// The `output` and `state` keywords are legal path roots.
func (p *Parser) parsePredicateValue() (ast.PredicateValue, bool) {
	switch p.cur().Kind {
	case token.StringLit:
		return ast.PredicateValue{Kind: ast.PredValueString, Value: p.advance().Text}, true
	case token.IntLit:
		return ast.PredicateValue{Kind: ast.PredValueNumber, Value: p.advance().Text}, true
	case token.Ident, token.KwOutput, token.KwState:
		var segments []string
		switch p.cur().Kind {
		case token.KwOutput:
			p.advance()
			segments = append(segments, "output")
		case token.KwState:
			p.advance()
			segments = append(segments, "state")
		default:
			segments = append(segments, p.advance().Text)
		}
		for p.accept(token.Dot) {
			seg, _, ok := p.expectIdent()
			if !ok {
				return ast.PredicateValue{}, false
			}
			segments = append(segments, seg)
		}
		return ast.PredicateValue{Kind: ast.PredValuePath, Segments: segments}, true
	default:
		p.err(diag.SynExpectPredicate, "expected predicate value")
		return ast.PredicateValue{}, false
	}
}

func (p *Parser) parsePredicateOp() (ast.PredicateOp, bool) {
	var op ast.PredicateOp
	switch p.cur().Kind {
	case token.EqEq:
		op = ast.PredEq
	case token.NotEq:
		op = ast.PredNotEq
	case token.Lt:
		op = ast.PredLt
	case token.LtEq:
		op = ast.PredLtEq
	case token.Gt:
		op = ast.PredGt
	case token.GtEq:
		op = ast.PredGtEq
	case token.KwIn:
		op = ast.PredIn
	default:
		p.err(diag.SynExpectPredicate, "expected predicate operator")
		return 0, false
	}
	p.advance()
	return op, true
}

// parseFailure parses `failure { condition -> action(args); ... }`.
func (p *Parser) parseFailure() (*ast.FailurePolicy, bool) {
	start := p.advance().Span // 'failure'
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'failure'"); !ok {
		return nil, false
	}

	policy := &ast.FailurePolicy{Loc: start}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		condition, _, ok := p.expectIdent()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.Arrow, diag.SynUnexpectedToken, "expected '->' after failure condition"); !ok {
			return nil, false
		}
		action, ok := p.parseFailureAction()
		if !ok {
			return nil, false
		}
		if _, ok := p.expectSemicolon(); !ok {
			return nil, false
		}
		policy.Rules = append(policy.Rules, ast.FailureRule{Condition: condition, Action: action})
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close failure block"); !ok {
		return nil, false
	}
	policy.Loc = p.spanFrom(start)
	return policy, true
}

// parseFailureAction parses `name(arg, key=value, ...)`.
func (p *Parser) parseFailureAction() (ast.FailureAction, bool) {
	name, span, ok := p.expectIdent()
	if !ok {
		return ast.FailureAction{}, false
	}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after failure action name"); !ok {
		return ast.FailureAction{}, false
	}

	action := ast.FailureAction{Name: name, Loc: span}
	if !p.at(token.RParen) {
		for {
			arg, ok := p.parseFailureActionArg()
			if !ok {
				return ast.FailureAction{}, false
			}
			action.Args = append(action.Args, arg)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close failure action"); !ok {
		return ast.FailureAction{}, false
	}
	action.Loc = p.spanFrom(span)
	return action, true
}

func (p *Parser) parseFailureActionArg() (ast.FailureActionArg, bool) {
	if p.at(token.Ident) && p.peekAt(1).Kind == token.Eq {
		key := p.advance().Text
		p.advance() // '='
		value, ok := p.parseFailureValue()
		if !ok {
			return ast.FailureActionArg{}, false
		}
		return ast.FailureActionArg{Key: key, Value: value}, true
	}

	value, ok := p.parseFailureValue()
	if !ok {
		return ast.FailureActionArg{}, false
	}
	return ast.FailureActionArg{Value: value}, true
}

func (p *Parser) parseFailureValue() (ast.FailureValue, bool) {
	switch p.cur().Kind {
	case token.Ident:
		return ast.FailureValue{Kind: ast.FailureValueIdent, Value: p.advance().Text}, true
	case token.StringLit:
		return ast.FailureValue{Kind: ast.FailureValueString, Value: p.advance().Text}, true
	case token.IntLit:
		return ast.FailureValue{Kind: ast.FailureValueNumber, Value: p.advance().Text}, true
	default:
		p.err(diag.SynUnexpectedToken, "expected failure action argument")
		return ast.FailureValue{}, false
	}
}

// parseEvidence parses `evidence { trace "..."; metrics [a, b]; }`.
func (p *Parser) parseEvidence() (*ast.EvidenceSpec, bool) {
	start := p.advance().Span // 'evidence'
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'evidence'"); !ok {
		return nil, false
	}

	spec := &ast.EvidenceSpec{Loc: start}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.KwTrace:
			p.advance()
			if !p.at(token.StringLit) {
				p.err(diag.SynExpectStringLit, "expected string literal after 'trace'")
				return nil, false
			}
			trace := p.advance().Text
			spec.Trace = &trace
			if _, ok := p.expectSemicolon(); !ok {
				return nil, false
			}
		case token.KwMetrics:
			p.advance()
			if _, ok := p.expect(token.LBracket, diag.SynUnexpectedToken, "expected '[' after 'metrics'"); !ok {
				return nil, false
			}
			if !p.at(token.RBracket) {
				for {
					metric, _, ok := p.expectIdent()
					if !ok {
						return nil, false
					}
					spec.Metrics = append(spec.Metrics, metric)
					if p.accept(token.Comma) {
						continue
					}
					break
				}
			}
			if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close metrics list"); !ok {
				return nil, false
			}
			if _, ok := p.expectSemicolon(); !ok {
				return nil, false
			}
		default:
			p.err(diag.SynUnexpectedToken,
				"expected 'trace' or 'metrics' in evidence block, found "+p.cur().Kind.String())
			return nil, false
		}
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close evidence block"); !ok {
		return nil, false
	}
	spec.Loc = p.spanFrom(start)
	return spec, true
}
