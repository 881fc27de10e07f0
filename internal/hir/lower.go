package hir

import (
	"kooix/internal/ast"
)

// Lower flattens a parsed program into the HIR declaration set, grouping
// items by kind while preserving declaration order within each group.
// Imports are consumed by the loader and do not survive into HIR.
func Lower(program *ast.Program) *Program {
	out := &Program{}

	for _, item := range program.Items {
		switch decl := item.(type) {
		case *ast.CapabilityDecl:
			out.Capabilities = append(out.Capabilities, Capability{
				Type: decl.Capability,
				Span: decl.Span(),
			})

		case *ast.RecordDecl:
			out.Records = append(out.Records, Record{
				Name:     decl.Name,
				Generics: decl.Generics,
				Fields:   decl.Fields,
				Span:     decl.Span(),
			})

		case *ast.EnumDecl:
			variants := make([]EnumVariant, 0, len(decl.Variants))
			for _, v := range decl.Variants {
				variants = append(variants, EnumVariant{Name: v.Name, Payload: v.Payload})
			}
			out.Enums = append(out.Enums, Enum{
				Name:     decl.Name,
				Generics: decl.Generics,
				Variants: variants,
				Span:     decl.Span(),
			})

		case *ast.FunctionDecl:
			out.Functions = append(out.Functions, Function{
				Name:       decl.Name,
				Generics:   decl.Generics,
				Params:     lowerParams(decl.Params),
				ReturnType: decl.ReturnType,
				Intent:     decl.Intent,
				Effects:    lowerEffects(decl.Effects),
				Requires:   decl.Requires,
				Ensures:    decl.Ensures,
				Failure:    decl.Failure,
				Evidence:   decl.Evidence,
				Body:       decl.Body,
				Span:       decl.Span(),
			})

		case *ast.WorkflowDecl:
			steps := make([]WorkflowStep, 0, len(decl.Steps))
			for _, s := range decl.Steps {
				steps = append(steps, WorkflowStep{
					ID:      s.ID,
					Call:    s.Call,
					Ensures: s.Ensures,
					OnFail:  s.OnFail,
				})
			}
			out.Workflows = append(out.Workflows, Workflow{
				Name:       decl.Name,
				Params:     lowerParams(decl.Params),
				ReturnType: decl.ReturnType,
				Intent:     decl.Intent,
				Requires:   decl.Requires,
				Steps:      steps,
				Output:     decl.Output,
				Evidence:   decl.Evidence,
				Span:       decl.Span(),
			})

		case *ast.AgentDecl:
			out.Agents = append(out.Agents, Agent{
				Name:       decl.Name,
				Params:     lowerParams(decl.Params),
				ReturnType: decl.ReturnType,
				Intent:     decl.Intent,
				StateRules: decl.StateRules,
				Policy:     decl.Policy,
				Requires:   decl.Requires,
				Loop:       decl.Loop,
				Ensures:    decl.Ensures,
				Evidence:   decl.Evidence,
				Span:       decl.Span(),
			})

		case *ast.ImportDecl:
			// resolved by the loader before analysis
		}
	}

	out.buildIndex()
	return out
}

func lowerParams(params []ast.Param) []Param {
	out := make([]Param, 0, len(params))
	for _, p := range params {
		out = append(out, Param{Name: p.Name, Type: p.Type})
	}
	return out
}

func lowerEffects(effects []ast.EffectSpec) []Effect {
	out := make([]Effect, 0, len(effects))
	for _, e := range effects {
		out = append(out, Effect{Name: e.Name, Argument: e.Argument, HasArg: e.HasArg})
	}
	return out
}
