package sema

import (
	"sort"
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/hir"
	"kooix/internal/types"
)

func (c *Checker) checkWorkflows() {
	declared := make(map[string]bool)
	for i := range c.program.Workflows {
		w := &c.program.Workflows[i]
		if declared[w.Name] {
			c.error(diag.SemaDuplicateDecl, w.Span,
				"duplicate workflow declaration '"+w.Name+"'")
		}
		declared[w.Name] = true
		c.checkWorkflow(w)
	}
}

func (c *Checker) checkWorkflow(w *hir.Workflow) {
	c.checkIntent("workflow", w.Name, w.Intent, w.Span)
	c.checkRequiresList(w.Requires, "workflow", w.Name, w.Span)

	if len(w.Steps) == 0 {
		c.warn(diag.FlowInfo, w.Span, "workflow '"+w.Name+"' declares no steps")
	}

	// Workflow-scope symbols: parameters first, then each step id as its
	// call target's return type.
	available := make(map[string]ast.TypeRef, len(w.Params)+len(w.Steps))
	for _, param := range w.Params {
		available[param.Name] = param.Type
	}

	seenSteps := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		step := &w.Steps[i]
		if seenSteps[step.ID] {
			c.error(diag.FlowDuplicateStepID, w.Span,
				"workflow '"+w.Name+"' repeats step id '"+step.ID+"'")
		}
		seenSteps[step.ID] = true

		if c.checkStepTarget(w, step) {
			if sig, ok := c.signatures[step.Call.Target]; ok {
				c.checkStepCallSignature(w, step, sig, available)
				available[step.ID] = sig.Return
			}
		}

		for j := range step.Ensures {
			c.checkStepEnsure(w, step, &step.Ensures[j], available)
		}
		if step.OnFail != nil {
			c.checkFailureAction(w.Name, "workflow", step.OnFail, w.Span)
		}
	}

	c.checkOutputContract(w, available)
	c.checkEvidence("workflow", w.Name, w.Evidence, w.Span)
}

// checkStepTarget warns when a step call target is not declared at top
// level; returns whether the target resolved.
func (c *Checker) checkStepTarget(w *hir.Workflow, step *hir.WorkflowStep) bool {
	if c.invocableTargets[step.Call.Target] {
		return true
	}
	c.warn(diag.FlowStepTargetUndeclared, w.Span,
		"workflow '"+w.Name+"' step '"+step.ID+"' calls '"+step.Call.Target+
			"' which is not declared at top level")
	return false
}

// checkStepCallSignature checks a step's argument list against the callee
// signature, resolving path arguments from workflow scope with member
// projection.
func (c *Checker) checkStepCallSignature(w *hir.Workflow, step *hir.WorkflowStep, sig signature, available map[string]ast.TypeRef) {
	if len(step.Call.Args) != len(sig.Params) {
		c.error(diag.FlowStepArgType, w.Span,
			"workflow '"+w.Name+"' step '"+step.ID+"' calls '"+step.Call.Target+
				"' with "+itoa(len(step.Call.Args))+" arguments but it expects "+itoa(len(sig.Params)))
		return
	}

	for i, arg := range step.Call.Args {
		expected := sig.Params[i]
		actual, known := c.inferStepArgType(w, step, arg, available)
		if !known {
			continue
		}
		if !types.Compatible(expected, actual) && !isBareGeneric(sig.Generics, expected) {
			c.error(diag.FlowStepArgType, w.Span,
				"workflow '"+w.Name+"' step '"+step.ID+"' argument "+itoa(i)+
					" has type '"+actual.String()+"' but '"+step.Call.Target+
					"' expects '"+expected.String()+"'")
		}
	}
}

func isBareGeneric(generics []ast.GenericParam, ty ast.TypeRef) bool {
	return len(ty.Args) == 0 && isGenericOf(generics, ty.Head())
}

// inferStepArgType resolves a step argument to a type: literals directly,
// paths through workflow scope plus member projection.
func (c *Checker) inferStepArgType(w *hir.Workflow, step *hir.WorkflowStep, arg ast.WorkflowCallArg, available map[string]ast.TypeRef) (ast.TypeRef, bool) {
	switch arg.Kind {
	case ast.WorkflowArgString:
		return types.Text, true
	case ast.WorkflowArgNumber:
		return types.Int, true
	default:
		root := arg.Segments[0]
		rootType, ok := available[root]
		if !ok {
			c.error(diag.FlowStepArgType, w.Span,
				"workflow '"+w.Name+"' step '"+step.ID+"' argument '"+
					strings.Join(arg.Segments, ".")+
					"' is not available in workflow scope (params + previous step ids)")
			return ast.TypeRef{}, false
		}
		result, failure := types.ProjectPath(rootType, arg.Segments[1:], c.records)
		if failure != nil {
			c.warn(diag.FlowStepArgType, w.Span,
				"workflow '"+w.Name+"' step '"+step.ID+"' cannot infer member '"+
					failure.Member+"' on type '"+failure.BaseType.String()+"'")
			return ast.TypeRef{}, false
		}
		return result, true
	}
}

// checkStepEnsure validates predicate roots against workflow scope plus
// `output`.
func (c *Checker) checkStepEnsure(w *hir.Workflow, step *hir.WorkflowStep, clause *ast.EnsureClause, available map[string]ast.TypeRef) {
	allowed := map[string]bool{"output": true}
	for name := range available {
		allowed[name] = true
	}
	c.checkPredicateRoot(&clause.Left, allowed, "workflow", w.Name,
		"step '"+step.ID+"' ensures", w.Span)
	c.checkPredicateRoot(&clause.Right, allowed, "workflow", w.Name,
		"step '"+step.ID+"' ensures", w.Span)
}

// checkOutputContract validates the output block: duplicate fields error;
// explicit bindings must resolve in scope with a compatible type; unbound
// fields bind by name when a same-typed symbol exists, otherwise by type
// with ambiguity warnings.
func (c *Checker) checkOutputContract(w *hir.Workflow, available map[string]ast.TypeRef) {
	if len(w.Output) == 0 {
		return
	}

	seen := make(map[string]bool, len(w.Output))
	for _, field := range w.Output {
		if seen[field.Name] {
			c.error(diag.FlowOutputDuplicateField, w.Span,
				"workflow '"+w.Name+"' output block repeats field '"+field.Name+"'")
		}
		seen[field.Name] = true

		if field.Source != nil {
			c.checkBoundOutputField(w, field, available)
			continue
		}
		c.checkUnboundOutputField(w, field, available)
	}

	exposesReturn := false
	for _, field := range w.Output {
		if types.Compatible(w.ReturnType, field.Type) {
			exposesReturn = true
			break
		}
	}
	if !exposesReturn {
		c.warn(diag.FlowOutputMissesReturnType, w.Span,
			"workflow '"+w.Name+"' output contract does not expose return type '"+
				w.ReturnType.String()+"'")
	}
}

func (c *Checker) checkBoundOutputField(w *hir.Workflow, field ast.OutputField, available map[string]ast.TypeRef) {
	root := field.Source[0]
	rootType, ok := available[root]
	if !ok {
		c.error(diag.FlowOutputUnboundField, w.Span,
			"workflow '"+w.Name+"' output field '"+field.Name+"' binds to '"+
				strings.Join(field.Source, ".")+
				"' but symbol is not available in workflow scope (params + previous step ids)")
		return
	}

	resolved, failure := types.ProjectPath(rootType, field.Source[1:], c.records)
	if failure != nil {
		c.warn(diag.FlowOutputBindType, w.Span,
			"workflow '"+w.Name+"' output field '"+field.Name+"' binds '"+
				strings.Join(field.Source, ".")+"' but cannot infer member '"+
				failure.Member+"' on type '"+failure.BaseType.String()+"'")
		return
	}

	if !types.Compatible(field.Type, resolved) {
		c.error(diag.FlowOutputBindType, w.Span,
			"workflow '"+w.Name+"' output field '"+field.Name+"' binds '"+
				strings.Join(field.Source, ".")+"' as '"+resolved.String()+
				"' but declared type is '"+field.Type.String()+"'")
	}
}

func (c *Checker) checkUnboundOutputField(w *hir.Workflow, field ast.OutputField, available map[string]ast.TypeRef) {
	// Prefer implicit name-based binding before type-only matching.
	if namedType, ok := available[field.Name]; ok {
		if types.Compatible(field.Type, namedType) {
			return
		}
		c.warn(diag.FlowOutputAmbiguousBinding, w.Span,
			"workflow '"+w.Name+"' output field '"+field.Name+"' matches symbol '"+
				field.Name+"' by name but type is '"+namedType.String()+"', expected '"+
				field.Type.String()+"'; use explicit '= symbol' binding")
	}

	var matching []string
	for name, symbolType := range available {
		if types.Compatible(field.Type, symbolType) {
			matching = append(matching, name)
		}
	}
	sort.Strings(matching)

	switch {
	case len(matching) == 0:
		c.warn(diag.FlowOutputUnboundField, w.Span,
			"workflow '"+w.Name+"' output field '"+field.Name+"' has type '"+
				field.Type.String()+"' but no matching source symbol exists in workflow scope")
	case len(matching) > 1:
		c.warn(diag.FlowOutputAmbiguousBinding, w.Span,
			"workflow '"+w.Name+"' output field '"+field.Name+
				"' implicitly matches multiple source symbols: "+strings.Join(matching, ", ")+
				"; use explicit '= symbol' binding")
	}
}
