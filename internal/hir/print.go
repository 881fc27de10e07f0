package hir

import (
	"fmt"
	"strings"

	"kooix/internal/ast"
)

// Print renders a compact, deterministic textual form of the HIR for the
// `hir` subcommand. Only headers and annotations are shown; bodies print
// as statement counts.
func Print(p *Program) string {
	var sb strings.Builder

	for _, capability := range p.Capabilities {
		fmt.Fprintf(&sb, "cap %s\n", capability.Type.String())
	}
	for i := range p.Records {
		record := &p.Records[i]
		fmt.Fprintf(&sb, "record %s%s {\n", record.Name, formatGenerics(record.Generics))
		for _, field := range record.Fields {
			fmt.Fprintf(&sb, "  %s: %s\n", field.Name, field.Type.String())
		}
		sb.WriteString("}\n")
	}
	for i := range p.Enums {
		enum := &p.Enums[i]
		fmt.Fprintf(&sb, "enum %s%s {\n", enum.Name, formatGenerics(enum.Generics))
		for _, variant := range enum.Variants {
			if variant.Payload != nil {
				fmt.Fprintf(&sb, "  %s(%s)\n", variant.Name, variant.Payload.String())
			} else {
				fmt.Fprintf(&sb, "  %s\n", variant.Name)
			}
		}
		sb.WriteString("}\n")
	}
	for i := range p.Functions {
		fn := &p.Functions[i]
		fmt.Fprintf(&sb, "fn %s%s(%s) -> %s", fn.Name, formatGenerics(fn.Generics),
			formatParams(fn.Params), fn.ReturnType.String())
		if len(fn.Effects) > 0 {
			effects := make([]string, 0, len(fn.Effects))
			for _, effect := range fn.Effects {
				effects = append(effects, effect.String())
			}
			fmt.Fprintf(&sb, " !{%s}", strings.Join(effects, ", "))
		}
		for _, required := range fn.Requires {
			fmt.Fprintf(&sb, " requires %s", required.String())
		}
		if fn.Body != nil {
			fmt.Fprintf(&sb, " { %d stmts }", len(fn.Body.Stmts))
		}
		sb.WriteString("\n")
	}
	for i := range p.Workflows {
		workflow := &p.Workflows[i]
		fmt.Fprintf(&sb, "workflow %s(%s) -> %s {\n", workflow.Name,
			formatParams(workflow.Params), workflow.ReturnType.String())
		for _, step := range workflow.Steps {
			fmt.Fprintf(&sb, "  step %s: %s/%d\n", step.ID, step.Call.Target, len(step.Call.Args))
		}
		for _, field := range workflow.Output {
			if field.Source != nil {
				fmt.Fprintf(&sb, "  output %s: %s = %s\n", field.Name, field.Type.String(),
					strings.Join(field.Source, "."))
			} else {
				fmt.Fprintf(&sb, "  output %s: %s\n", field.Name, field.Type.String())
			}
		}
		sb.WriteString("}\n")
	}
	for i := range p.Agents {
		agent := &p.Agents[i]
		fmt.Fprintf(&sb, "agent %s(%s) -> %s {\n", agent.Name,
			formatParams(agent.Params), agent.ReturnType.String())
		for _, rule := range agent.StateRules {
			fmt.Fprintf(&sb, "  state %s -> %s\n", rule.From, strings.Join(rule.To, ", "))
		}
		fmt.Fprintf(&sb, "  loop %s\n", strings.Join(agent.Loop.Stages, " -> "))
		sb.WriteString("}\n")
	}

	return sb.String()
}

func formatGenerics(generics []ast.GenericParam) string {
	if len(generics) == 0 {
		return ""
	}
	parts := make([]string, 0, len(generics))
	for _, param := range generics {
		if len(param.Bounds) == 0 {
			parts = append(parts, param.Name)
			continue
		}
		bounds := make([]string, 0, len(param.Bounds))
		for _, bound := range param.Bounds {
			bounds = append(bounds, bound.String())
		}
		parts = append(parts, param.Name+": "+strings.Join(bounds, " + "))
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func formatParams(params []Param) string {
	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, param.Name+": "+param.Type.String())
	}
	return strings.Join(parts, ", ")
}
