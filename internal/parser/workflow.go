package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/token"
)

// parseWorkflow parses
//
//	workflow name(params) -> Type [intent] [requires]
//	    steps { id: target(args) [ensures] [on_fail -> action]; ... }
//	    [output { name: Type [= symbol.path]; ... }]
//	    [evidence { ... }] ;
func (p *Parser) parseWorkflow() (ast.Item, bool) {
	start := p.advance().Span // 'workflow'

	name, _, ok := p.expectIdent()
	if !ok {
		return nil, false
	}
	params, ok := p.parseParamList()
	if !ok {
		return nil, false
	}
	if _, ok := p.expect(token.Arrow, diag.SynUnexpectedToken, "expected '->' after workflow parameters"); !ok {
		return nil, false
	}
	returnType, ok := p.parseTypeRef()
	if !ok {
		return nil, false
	}

	decl := &ast.WorkflowDecl{Name: name, Params: params, ReturnType: returnType}

	if p.at(token.KwIntent) {
		if decl.Intent, ok = p.parseIntent(); !ok {
			return nil, false
		}
	}
	if p.at(token.KwRequires) {
		if decl.Requires, ok = p.parseRequires(); !ok {
			return nil, false
		}
	}

	if decl.Steps, ok = p.parseStepsBlock(); !ok {
		return nil, false
	}

	if p.at(token.KwOutput) {
		if decl.Output, ok = p.parseOutputBlock(); !ok {
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

func (p *Parser) parseStepsBlock() ([]ast.WorkflowStep, bool) {
	if _, ok := p.expect(token.KwSteps, diag.SynUnexpectedToken, "expected 'steps' block"); !ok {
		return nil, false
	}
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'steps'"); !ok {
		return nil, false
	}

	var steps []ast.WorkflowStep
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		step, ok := p.parseWorkflowStep()
		if !ok {
			return nil, false
		}
		steps = append(steps, step)
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close steps block"); !ok {
		return nil, false
	}
	return steps, true
}

func (p *Parser) parseWorkflowStep() (ast.WorkflowStep, bool) {
	id, _, ok := p.expectIdent()
	if !ok {
		return ast.WorkflowStep{}, false
	}
	if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after step id"); !ok {
		return ast.WorkflowStep{}, false
	}

	call, ok := p.parseWorkflowCall()
	if !ok {
		return ast.WorkflowStep{}, false
	}

	step := ast.WorkflowStep{ID: id, Call: call}

	if p.at(token.KwEnsures) {
		if step.Ensures, ok = p.parseEnsures(); !ok {
			return ast.WorkflowStep{}, false
		}
	}

	if p.accept(token.KwOnFail) {
		if _, ok := p.expect(token.Arrow, diag.SynUnexpectedToken, "expected '->' after 'on_fail'"); !ok {
			return ast.WorkflowStep{}, false
		}
		action, ok := p.parseFailureAction()
		if !ok {
			return ast.WorkflowStep{}, false
		}
		step.OnFail = &action
	}

	if _, ok := p.expectSemicolon(); !ok {
		return ast.WorkflowStep{}, false
	}
	return step, true
}

func (p *Parser) parseWorkflowCall() (ast.WorkflowCall, bool) {
	target, _, ok := p.expectIdent()
	if !ok {
		return ast.WorkflowCall{}, false
	}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after step call target"); !ok {
		return ast.WorkflowCall{}, false
	}

	call := ast.WorkflowCall{Target: target}
	if !p.at(token.RParen) {
		for {
			arg, ok := p.parseWorkflowCallArg()
			if !ok {
				return ast.WorkflowCall{}, false
			}
			call.Args = append(call.Args, arg)
			if p.accept(token.Comma) {
				continue
			}
			break
		}
	}

	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')' to close step call"); !ok {
		return ast.WorkflowCall{}, false
	}
	return call, true
}

func (p *Parser) parseWorkflowCallArg() (ast.WorkflowCallArg, bool) {
	switch p.cur().Kind {
	case token.StringLit:
		return ast.WorkflowCallArg{Kind: ast.WorkflowArgString, Value: p.advance().Text}, true
	case token.IntLit:
		return ast.WorkflowCallArg{Kind: ast.WorkflowArgNumber, Value: p.advance().Text}, true
	case token.Ident:
		segments := []string{p.advance().Text}
		for p.accept(token.Dot) {
			seg, _, ok := p.expectIdent()
			if !ok {
				return ast.WorkflowCallArg{}, false
			}
			segments = append(segments, seg)
		}
		return ast.WorkflowCallArg{Kind: ast.WorkflowArgPath, Segments: segments}, true
	default:
		p.err(diag.SynUnexpectedToken, "expected workflow step argument")
		return ast.WorkflowCallArg{}, false
	}
}

func (p *Parser) parseOutputBlock() ([]ast.OutputField, bool) {
	p.advance() // 'output'
	if _, ok := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' after 'output'"); !ok {
		return nil, false
	}

	var fields []ast.OutputField
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		name, _, ok := p.expectIdent()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after output field name"); !ok {
			return nil, false
		}
		ty, ok := p.parseTypeRef()
		if !ok {
			return nil, false
		}

		field := ast.OutputField{Name: name, Type: ty}
		if p.accept(token.Eq) {
			head, _, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			field.Source = []string{head}
			for p.accept(token.Dot) {
				seg, _, ok := p.expectIdent()
				if !ok {
					return nil, false
				}
				field.Source = append(field.Source, seg)
			}
		}
		if _, ok := p.expectSemicolon(); !ok {
			return nil, false
		}
		fields = append(fields, field)
	}

	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}' to close output block"); !ok {
		return nil, false
	}
	return fields, true
}
