// Package modcheck implements the qualified-name scheme shared by the two
// resolver modes. In include mode, alias prefixes are stripped in place
// because every imported declaration lives in the same concatenated
// namespace. In module-aware mode, qualified references are rewritten to
// collision-free internal names (alias__symbol) and signature stubs are
// injected so each module checks in isolation.
package modcheck

import (
	"strings"

	"kooix/internal/ast"
)

// CollectAliases returns the alias set bound by a program's imports.
func CollectAliases(program *ast.Program) map[string]bool {
	aliases := make(map[string]bool)
	for _, imp := range program.Imports() {
		if imp.Alias != "" {
			aliases[imp.Alias] = true
		}
	}
	return aliases
}

// Normalize strips import-alias prefixes from every qualified reference,
// in place. Include mode runs it on each parsed program before the
// combined-namespace check; references like Foo::Option::Some become
// Option::Some.
func Normalize(program *ast.Program) {
	aliases := CollectAliases(program)
	if len(aliases) == 0 {
		return
	}

	for _, item := range program.Items {
		switch decl := item.(type) {
		case *ast.FunctionDecl:
			normalizeFunction(decl, aliases)
		case *ast.WorkflowDecl:
			normalizeWorkflow(decl, aliases)
		case *ast.AgentDecl:
			normalizeAgent(decl, aliases)
		case *ast.RecordDecl:
			for i := range decl.Fields {
				normalizeTypeRef(&decl.Fields[i].Type, aliases)
			}
		case *ast.EnumDecl:
			for i := range decl.Variants {
				if decl.Variants[i].Payload != nil {
					normalizeTypeRef(decl.Variants[i].Payload, aliases)
				}
			}
		case *ast.CapabilityDecl, *ast.ImportDecl:
		}
	}
}

func normalizeFunction(fn *ast.FunctionDecl, aliases map[string]bool) {
	normalizeTypeRef(&fn.ReturnType, aliases)
	for i := range fn.Params {
		normalizeTypeRef(&fn.Params[i].Type, aliases)
	}
	for i := range fn.Requires {
		normalizeTypeRef(&fn.Requires[i], aliases)
	}
	for i := range fn.Ensures {
		normalizeEnsure(&fn.Ensures[i], aliases)
	}
	if fn.Body != nil {
		normalizeBlock(fn.Body, aliases)
	}
}

func normalizeWorkflow(w *ast.WorkflowDecl, aliases map[string]bool) {
	normalizeTypeRef(&w.ReturnType, aliases)
	for i := range w.Params {
		normalizeTypeRef(&w.Params[i].Type, aliases)
	}
	for i := range w.Requires {
		normalizeTypeRef(&w.Requires[i], aliases)
	}
	for i := range w.Steps {
		step := &w.Steps[i]
		for j := range step.Call.Args {
			normalizeSegments(&step.Call.Args[j].Segments, aliases)
		}
		for j := range step.Ensures {
			normalizeEnsure(&step.Ensures[j], aliases)
		}
	}
	for i := range w.Output {
		normalizeTypeRef(&w.Output[i].Type, aliases)
		normalizeSegments(&w.Output[i].Source, aliases)
	}
}

func normalizeAgent(a *ast.AgentDecl, aliases map[string]bool) {
	normalizeTypeRef(&a.ReturnType, aliases)
	for i := range a.Params {
		normalizeTypeRef(&a.Params[i].Type, aliases)
	}
	for i := range a.Requires {
		normalizeTypeRef(&a.Requires[i], aliases)
	}
	normalizeEnsure(&a.Loop.StopWhen, aliases)
	if a.Policy.HumanInLoopWhen != nil {
		normalizeEnsure(a.Policy.HumanInLoopWhen, aliases)
	}
	for i := range a.Ensures {
		normalizeEnsure(&a.Ensures[i], aliases)
	}
}

func normalizeBlock(block *ast.Block, aliases map[string]bool) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			if s.Type != nil {
				normalizeTypeRef(s.Type, aliases)
			}
			normalizeExpr(s.Value, aliases)
		case *ast.AssignStmt:
			normalizeExpr(s.Value, aliases)
		case *ast.ReturnStmt:
			if s.Value != nil {
				normalizeExpr(s.Value, aliases)
			}
		case *ast.ExprStmt:
			normalizeExpr(s.X, aliases)
		}
	}
	if block.Tail != nil {
		normalizeExpr(block.Tail, aliases)
	}
}

func normalizeExpr(expr ast.Expr, aliases map[string]bool) {
	switch e := expr.(type) {
	case *ast.PathExpr:
		normalizeSegments(&e.Segments, aliases)
	case *ast.CallExpr:
		normalizeSegments(&e.Target, aliases)
		for i := range e.TypeArgs {
			normalizeTypeRef(&e.TypeArgs[i], aliases)
		}
		for _, arg := range e.Args {
			normalizeExpr(arg, aliases)
		}
	case *ast.RecordLitExpr:
		normalizeTypeRef(&e.Type, aliases)
		for _, field := range e.Fields {
			normalizeExpr(field.Value, aliases)
		}
	case *ast.BinaryExpr:
		normalizeExpr(e.Left, aliases)
		normalizeExpr(e.Right, aliases)
	case *ast.IfExpr:
		normalizeExpr(e.Cond, aliases)
		normalizeBlock(e.Then, aliases)
		if e.Else != nil {
			normalizeBlock(e.Else, aliases)
		}
	case *ast.WhileExpr:
		normalizeExpr(e.Cond, aliases)
		normalizeBlock(e.Body, aliases)
	case *ast.MatchExpr:
		normalizeExpr(e.Value, aliases)
		for i := range e.Arms {
			arm := &e.Arms[i]
			if arm.Pattern.Kind == ast.PatternVariant {
				normalizeSegments(&arm.Pattern.Path, aliases)
			}
			if arm.Expr != nil {
				normalizeExpr(arm.Expr, aliases)
			}
			if arm.Block != nil {
				normalizeBlock(arm.Block, aliases)
			}
		}
	case *ast.IntLitExpr, *ast.TextLitExpr, *ast.BoolLitExpr:
	}
}

func normalizeEnsure(clause *ast.EnsureClause, aliases map[string]bool) {
	normalizePredicate(&clause.Left, aliases)
	normalizePredicate(&clause.Right, aliases)
}

func normalizePredicate(value *ast.PredicateValue, aliases map[string]bool) {
	if value.Kind == ast.PredValuePath {
		normalizeSegments(&value.Segments, aliases)
	}
}

func normalizeSegments(segments *[]string, aliases map[string]bool) {
	if len(*segments) >= 2 && aliases[(*segments)[0]] {
		*segments = (*segments)[1:]
	}
}

func normalizeTypeRef(ty *ast.TypeRef, aliases map[string]bool) {
	if head, rest, found := strings.Cut(ty.Name, "::"); found && aliases[head] {
		ty.Name = rest
	}
	for i := range ty.Args {
		if ty.Args[i].Kind == ast.TypeArgType {
			normalizeTypeRef(ty.Args[i].Type, aliases)
		}
	}
}
