package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parseAgent parses
//
//	agent name(params) -> Type [intent]
//	    state { from -> to1, to2; ...; any -> X; }
//	    policy { allow_tools [...]; deny_tools [...];
//	             max_iterations = N; human_in_loop when <pred>; }
//	    [requires]
//	    loop { a -> b -> c; stop when <pred>; }
//	    [ensures] [evidence] ;
func (p *Parser) parseAgent() (ast.Item, bool) {
	start := p.advance().Span // 'agent'

	name, _, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	params, ok := p.parseParamList()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.Arrow, diag.SynUnexpectedToken, "expected '->' after agent parameters"); !ok {
		return nil, false
	}
	returnType, ok := p.parseTypeRef()
	if !ok {
		return nil, false
	}

	decl := &ast.AgentDecl{Name: name, Params: params, ReturnType: returnType}

	if p.at(token.KwIntent) {
		if decl.Intent, ok = p.parseIntent(); !ok {
			return nil, false
		}
	}

	if decl.StateRules, ok = p.parseStateBlock(); !ok {
		return nil, false
	}
	if decl.Policy, ok = p.parsePolicyBlock(); !ok {
		return nil, false
	}

	if p.at(token.KwRequires) {
		if decl.Requires, ok = p.parseRequires(); !ok {
			return nil, false
		}
	}

	if decl.Loop, ok = p.parseLoopBlock(); !ok {
		return nil, false
	}

	if p.at(token.KwEnsures) {
		if decl.Ensures, ok = p.parseEnsures(); !ok {
			return nil, false
		}
	}
	if p.at(token.KwEvidence) {
		if decl.Evidence, ok = p.parseEvidence(); !ok {
			return nil, false
		}
	}

	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}

	decl.Loc = p.spanFrom(start)
	return decl, true
}

func (p *Parser) parseStateBlock() ([]ast.StateRule, bool) {
	if _, ok := p.expect(token.KwState, diag.SynUnexpectedToken, "expected 'state' block"); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'state'"); !ok {
		return nil, false
	}

	var rules []ast.StateRule
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		var from string
		if p.accept(token.KwAny) {
			from = "any"
		} else {
			name, _, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			from = name
		}

		if _, ok := p.expect(token.Arrow, diag.SynUnexpectedToken, "expected '->' in state rule"); !ok {
			return nil, false
		}

		var to []string
		for {
			target, _, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			to = append(to, target)
			if p.accept(token.Comma) {
				continue
			}
			break
		}

		if _, ok := p.expectSemicolon(); !ok {
			return nil, false
		}
		rules = append(rules, ast.StateRule{From: from, To: to})
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close state block"); !ok {
		return nil, false
	}
	return rules, true
}

func (p *Parser) parsePolicyBlock() (ast.AgentPolicy, bool) {
	if _, ok := p.expect(token.KwPolicy, diag.SynUnexpectedToken, "expected 'policy' block"); !ok {
		return ast.AgentPolicy{}, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'policy'"); !ok {
		return ast.AgentPolicy{}, false
	}

	var policy ast.AgentPolicy
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.KwAllowTools:
			p.advance()
			tools, ok := p.parseToolList()
			if !ok {
				return ast.AgentPolicy{}, false
			}
			policy.AllowTools = tools
		case token.KwDenyTools:
			p.advance()
			tools, ok := p.parseToolList()
			if !ok {
				return ast.AgentPolicy{}, false
			}
			policy.DenyTools = tools
		case token.KwMaxIterations:
			p.advance()
			if _, ok := p.expect(token.Eq, diag.SynUnexpectedToken, "expected '=' after 'max_iterations'"); !ok {
				return ast.AgentPolicy{}, false
			}
			if !p.at(token.IntLit) {
				p.err(diag.SynExpectNumberLit, "expected number after 'max_iterations ='")
				return ast.AgentPolicy{}, false
			}
			policy.MaxIterations = p.advance().Text
			if _, ok := p.expectSemicolon(); !ok {
				return ast.AgentPolicy{}, false
			}
		case token.KwHumanInLoop:
			p.advance()
			if _, ok := p.expect(token.KwWhen, diag.SynUnexpectedToken, "expected 'when' after 'human_in_loop'"); !ok {
				return ast.AgentPolicy{}, false
			}
			clause, ok := p.parseEnsureClause()
			if !ok {
				return ast.AgentPolicy{}, false
			}
			policy.HumanInLoopWhen = &clause
			if _, ok := p.expectSemicolon(); !ok {
				return ast.AgentPolicy{}, false
			}
		default:
			p.err(diag.SynUnexpectedToken,
				"expected policy clause, found "+p.cur().Kind.String())
			return ast.AgentPolicy{}, false
		}
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close policy block"); !ok {
		return ast.AgentPolicy{}, false
	}
	return policy, true
}

// parseToolList parses `["name", ...] ;` after allow_tools / deny_tools.
func (p *Parser) parseToolList() ([]string, bool) {
	if _, ok := p.expect(token.LBracket, diag.SynUnexpectedToken, "expected '[' after tool policy keyword"); !ok {
		return nil, false
	}

	var tools []string
	if !p.at(token.RBracket) {
		for {
			if !p.at(token.StringLit) {
				p.err(diag.SynExpectStringLit, "expected string literal tool name")
				return nil, false
			}
			tools = append(tools, p.advance().Text)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']' to close tool list"); !ok {
		return nil, false
	}
	if _, ok := p.expectSemicolon(); !ok {
		return nil, false
	}
	return tools, true
}

func (p *Parser) parseLoopBlock() (ast.LoopSpec, bool) {
	if _, ok := p.expect(token.KwLoop, diag.SynUnexpectedToken, "expected 'loop' block"); !ok {
		return ast.LoopSpec{}, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'loop'"); !ok {
		return ast.LoopSpec{}, false
	}

	var spec ast.LoopSpec
	first, _, ok := p.expectIdent()
	if !ok {
		return ast.LoopSpec{}, false
	}
	spec.Stages = append(spec.Stages, first)
	for p.accept(token.Arrow) {
		stage, _, ok := p.expectIdent()
		if !ok {
			return ast.LoopSpec{}, false
		}
		spec.Stages = append(spec.Stages, stage)
	}
	if _, ok := p.expectSemicolon(); !ok {
		return ast.LoopSpec{}, false
	}

	if _, ok := p.expect(token.KwStop, diag.SynUnexpectedToken, "expected 'stop' in loop block"); !ok {
		return ast.LoopSpec{}, false
	}
	if _, ok := p.expect(token.KwWhen, diag.SynUnexpectedToken, "expected 'when' after 'stop'"); !ok {
		return ast.LoopSpec{}, false
	}
	if spec.StopWhen, ok = p.parseEnsureClause(); !ok {
		return ast.LoopSpec{}, false
	}
	if _, ok := p.expectSemicolon(); !ok {
		return ast.LoopSpec{}, false
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close loop block"); !ok {
		return ast.LoopSpec{}, false
	}
	return spec, true
}
