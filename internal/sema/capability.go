package sema

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/hir"
	"kooix/internal/source"
)

// capabilityArgKind is the expected shape of one capability argument.
type capabilityArgKind uint8

const (
	argString capabilityArgKind = iota
	argNumber
)

func (k capabilityArgKind) String() string {
	if k == argNumber {
		return "number"
	}
	return "string"
}

// capabilityShapes maps capability heads to their declared argument
// shapes. Model carries provider, name, and an integer budget.
var capabilityShapes = map[string][]capabilityArgKind{
	"Model": {argString, argString, argNumber},
	"Net":   {argString},
	"Tool":  {argString, argString},
	"Io":    {},
}

// effectCapability maps effect keywords to the capability kind they
// require.
var effectCapability = map[string]string{
	"model": "Model",
	"net":   "Net",
	"tool":  "Tool",
	"io":    "Io",
}

// checkCapabilities validates the top-level cap declarations and records
// their heads and rendered instances for requires-matching.
func (c *Checker) checkCapabilities() {
	for i := range c.program.Capabilities {
		capability := &c.program.Capabilities[i]
		rendered := capability.Type.String()
		if c.capabilityInstances[rendered] {
			c.error(diag.SemaDuplicateDecl, capability.Span,
				"duplicate capability declaration '"+rendered+"'")
		}
		c.capabilityInstances[rendered] = true
		c.capabilityHeads[capability.Type.Head()] = true
		c.checkCapabilityShape(&capability.Type, "top-level capability", capability.Span)
	}
}

// checkCapabilityShape validates arity and per-argument kinds of a
// capability reference against the fixed schema table.
func (c *Checker) checkCapabilityShape(capability *ast.TypeRef, context string, span source.Span) {
	shape, known := capabilityShapes[capability.Head()]
	if !known {
		c.warn(diag.SemaEffectUnknown, span,
			context+" uses unknown capability '"+capability.Head()+"'; no schema rule applied")
		return
	}

	if len(capability.Args) != len(shape) {
		c.error(diag.SemaCapabilityShape, span,
			context+" capability '"+capability.Head()+"' expects "+itoa(len(shape))+
				" type arguments, found "+itoa(len(capability.Args)))
	}

	for i, kind := range shape {
		if i >= len(capability.Args) {
			break
		}
		arg := capability.Args[i]
		valid := (kind == argString && arg.Kind == ast.TypeArgString) ||
			(kind == argNumber && arg.Kind == ast.TypeArgNumber)
		if !valid {
			c.error(diag.SemaCapabilityShape, span,
				context+" capability '"+capability.Head()+"' argument "+itoa(i)+
					" expects "+kind.String()+", found "+argKindName(arg))
		}
	}
}

func argKindName(arg ast.TypeArg) string {
	switch arg.Kind {
	case ast.TypeArgString:
		return "string"
	case ast.TypeArgNumber:
		return "number"
	default:
		return "type"
	}
}

// checkRequired validates one requires-list entry: its shape, and that a
// matching top-level declaration exists both by head and by exact
// instance.
func (c *Checker) checkRequired(required *ast.TypeRef, kind, name string, span source.Span) {
	c.checkCapabilityShape(required, kind+" '"+name+"' requires", span)

	if !c.capabilityHeads[required.Head()] {
		c.error(diag.SemaCapabilityMissing, span,
			kind+" '"+name+"' requires capability '"+required.Head()+
				"' but it is not declared at top level")
	}

	rendered := required.String()
	if !c.capabilityInstances[rendered] {
		c.error(diag.SemaCapabilityMissing, span,
			kind+" '"+name+"' requires capability instance '"+rendered+
				"' but it is not declared at top level")
	}
}

// checkRequiresList reports repeated entries and validates each one.
func (c *Checker) checkRequiresList(requires []ast.TypeRef, kind, name string, span source.Span) {
	seen := make(map[string]bool, len(requires))
	for i := range requires {
		rendered := requires[i].String()
		if seen[rendered] {
			c.warn(diag.SemaRequiresRepeated, span,
				kind+" '"+name+"' repeats required capability '"+rendered+"'")
		}
		seen[rendered] = true
		c.checkRequired(&requires[i], kind, name, span)
	}
}

// checkFunctionContract enforces the effect/capability pairing rules: an
// effect set without requires is an error, each effect keyword maps to
// exactly one capability kind, and argument-carrying effects must match a
// required instance's first string argument.
func (c *Checker) checkFunctionContract(fn *hir.Function) {
	if len(fn.Effects) > 0 && len(fn.Requires) == 0 {
		c.error(diag.SemaEffectContract, fn.Span,
			"function '"+fn.Name+"' declares effects but no required capabilities")
	}

	c.checkRequiresList(fn.Requires, "function", fn.Name, fn.Span)

	seenEffects := make(map[string]bool, len(fn.Effects))
	for _, effect := range fn.Effects {
		key := effect.String()
		if seenEffects[key] {
			c.warn(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' repeats effect '"+key+"'")
		}
		seenEffects[key] = true
		c.checkEffectContract(fn, effect)
	}

	if len(fn.Effects) == 0 && len(fn.Requires) > 0 {
		c.warn(diag.SemaRequiresWithoutEffects, fn.Span,
			"function '"+fn.Name+"' declares capabilities but has no effects")
	}
}

func (c *Checker) checkEffectContract(fn *hir.Function, effect hir.Effect) {
	requiredHead, known := effectCapability[effect.Name]
	if !known {
		c.warn(diag.SemaEffectUnknown, fn.Span,
			"function '"+fn.Name+"' uses unknown effect '"+effect.Name+"'; no capability rule applied")
		return
	}

	if !c.requiresHead(fn.Requires, requiredHead) {
		c.error(diag.SemaEffectContract, fn.Span,
			"function '"+fn.Name+"' uses effect '"+effect.Name+
				"' but does not require '"+requiredHead+"' capability")
		return
	}

	switch effect.Name {
	case "model":
		if !effect.HasArg {
			c.error(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' uses effect 'model' without provider argument")
			return
		}
		if !c.requiresInstanceWithArg(fn.Requires, "Model", effect.Argument) {
			c.error(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' uses effect 'model("+effect.Argument+
					")' but no matching Model capability is required")
		}
	case "tool":
		if !effect.HasArg {
			c.error(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' uses effect 'tool' without tool name argument")
			return
		}
		if !c.requiresInstanceWithArg(fn.Requires, "Tool", effect.Argument) {
			c.error(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' uses effect 'tool("+effect.Argument+
					")' but no matching Tool capability is required")
		}
	case "net":
		if effect.HasArg && !c.requiresInstanceWithArg(fn.Requires, "Net", effect.Argument) {
			c.error(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' uses effect 'net("+effect.Argument+
					")' but no matching Net capability is required")
		}
	case "io":
		if effect.HasArg {
			c.warn(diag.SemaEffectContract, fn.Span,
				"function '"+fn.Name+"' uses effect 'io' with an argument; argument is ignored")
		}
	}
}

func (c *Checker) requiresHead(requires []ast.TypeRef, head string) bool {
	for i := range requires {
		if requires[i].Head() == head {
			return true
		}
	}
	return false
}

func (c *Checker) requiresInstanceWithArg(requires []ast.TypeRef, head, firstArg string) bool {
	for i := range requires {
		required := &requires[i]
		if required.Head() != head {
			continue
		}
		if len(required.Args) > 0 && required.Args[0].Kind == ast.TypeArgString &&
			required.Args[0].Value == firstArg {
			return true
		}
	}
	return false
}
