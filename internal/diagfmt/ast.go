package diagfmt

import (
	"fmt"
	"strings"

	"kooix/internal/ast"
)

// PrintAST renders a parsed program as an indented outline for the `ast`
// subcommand.
func PrintAST(program *ast.Program) string {
	var sb strings.Builder
	for _, item := range program.Items {
		printItem(&sb, item)
	}
	return sb.String()
}

func printItem(sb *strings.Builder, item ast.Item) {
	switch decl := item.(type) {
	case *ast.ImportDecl:
		if decl.Alias != "" {
			fmt.Fprintf(sb, "Import %q as %s\n", decl.Path, decl.Alias)
		} else {
			fmt.Fprintf(sb, "Import %q\n", decl.Path)
		}
	case *ast.CapabilityDecl:
		fmt.Fprintf(sb, "Capability %s\n", decl.Capability.String())
	case *ast.RecordDecl:
		fmt.Fprintf(sb, "Record %s%s\n", decl.Name, formatGenerics(decl.Generics))
		for _, field := range decl.Fields {
			fmt.Fprintf(sb, "  Field %s: %s\n", field.Name, field.Type.String())
		}
	case *ast.EnumDecl:
		fmt.Fprintf(sb, "Enum %s%s\n", decl.Name, formatGenerics(decl.Generics))
		for _, variant := range decl.Variants {
			if variant.Payload != nil {
				fmt.Fprintf(sb, "  Variant %s(%s)\n", variant.Name, variant.Payload.String())
			} else {
				fmt.Fprintf(sb, "  Variant %s\n", variant.Name)
			}
		}
	case *ast.FunctionDecl:
		fmt.Fprintf(sb, "Function %s%s(%s) -> %s\n",
			decl.Name, formatGenerics(decl.Generics), formatParams(decl.Params), decl.ReturnType.String())
		if decl.Intent != nil {
			fmt.Fprintf(sb, "  Intent %q\n", *decl.Intent)
		}
		for _, effect := range decl.Effects {
			if effect.HasArg {
				fmt.Fprintf(sb, "  Effect %s(%s)\n", effect.Name, effect.Argument)
			} else {
				fmt.Fprintf(sb, "  Effect %s\n", effect.Name)
			}
		}
		for _, required := range decl.Requires {
			fmt.Fprintf(sb, "  Requires %s\n", required.String())
		}
		if decl.Body != nil {
			printBlock(sb, decl.Body, "  ")
		}
	case *ast.WorkflowDecl:
		fmt.Fprintf(sb, "Workflow %s(%s) -> %s\n",
			decl.Name, formatParams(decl.Params), decl.ReturnType.String())
		for _, step := range decl.Steps {
			args := make([]string, 0, len(step.Call.Args))
			for _, arg := range step.Call.Args {
				args = append(args, formatWorkflowArg(arg))
			}
			fmt.Fprintf(sb, "  Step %s: %s(%s)\n", step.ID, step.Call.Target, strings.Join(args, ", "))
		}
		for _, field := range decl.Output {
			if field.Source != nil {
				fmt.Fprintf(sb, "  Output %s: %s = %s\n", field.Name, field.Type.String(), strings.Join(field.Source, "."))
			} else {
				fmt.Fprintf(sb, "  Output %s: %s\n", field.Name, field.Type.String())
			}
		}
	case *ast.AgentDecl:
		fmt.Fprintf(sb, "Agent %s(%s) -> %s\n",
			decl.Name, formatParams(decl.Params), decl.ReturnType.String())
		for _, rule := range decl.StateRules {
			fmt.Fprintf(sb, "  State %s -> %s\n", rule.From, strings.Join(rule.To, ", "))
		}
		fmt.Fprintf(sb, "  Loop %s\n", strings.Join(decl.Loop.Stages, " -> "))
	}
}

func printBlock(sb *strings.Builder, block *ast.Block, indent string) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			fmt.Fprintf(sb, "%sLet %s = %s\n", indent, s.Name, formatExpr(s.Value))
		case *ast.AssignStmt:
			fmt.Fprintf(sb, "%sAssign %s = %s\n", indent, s.Name, formatExpr(s.Value))
		case *ast.ReturnStmt:
			if s.Value != nil {
				fmt.Fprintf(sb, "%sReturn %s\n", indent, formatExpr(s.Value))
			} else {
				fmt.Fprintf(sb, "%sReturn\n", indent)
			}
		case *ast.ExprStmt:
			fmt.Fprintf(sb, "%sExpr %s\n", indent, formatExpr(s.X))
		}
	}
	if block.Tail != nil {
		fmt.Fprintf(sb, "%sTail %s\n", indent, formatExpr(block.Tail))
	}
}

func formatExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.IntLitExpr:
		return e.Value
	case *ast.TextLitExpr:
		return fmt.Sprintf("%q", e.Value)
	case *ast.BoolLitExpr:
		return fmt.Sprintf("%t", e.Value)
	case *ast.PathExpr:
		return strings.Join(e.Segments, ".")
	case *ast.CallExpr:
		args := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			args = append(args, formatExpr(arg))
		}
		return fmt.Sprintf("%s(%s)", strings.Join(e.Target, "::"), strings.Join(args, ", "))
	case *ast.RecordLitExpr:
		fields := make([]string, 0, len(e.Fields))
		for _, field := range e.Fields {
			fields = append(fields, field.Name+": "+formatExpr(field.Value))
		}
		return fmt.Sprintf("%s { %s }", e.Type.String(), strings.Join(fields, ", "))
	case *ast.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", formatExpr(e.Left), e.Op.String(), formatExpr(e.Right))
	case *ast.IfExpr:
		return "if " + formatExpr(e.Cond) + " { ... }"
	case *ast.WhileExpr:
		return "while " + formatExpr(e.Cond) + " { ... }"
	case *ast.MatchExpr:
		return fmt.Sprintf("match %s { %d arms }", formatExpr(e.Value), len(e.Arms))
	}
	return "?"
}

func formatWorkflowArg(arg ast.WorkflowCallArg) string {
	switch arg.Kind {
	case ast.WorkflowArgString:
		return fmt.Sprintf("%q", arg.Value)
	case ast.WorkflowArgNumber:
		return arg.Value
	default:
		return strings.Join(arg.Segments, ".")
	}
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

func formatParams(params []ast.Param) string {
	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, param.Name+": "+param.Type.String())
	}
	return strings.Join(parts, ", ")
}
