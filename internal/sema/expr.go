package sema

import (
	"sort"
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/types"
)

// inferExpr infers an expression's type under an optional expected-type
// hint. The hint drives enum generic inference (Some(1) against
// Option<Int>) and never weakens checking: a successful inference is
// still compared against the hint by the caller where required.
func (b *bodyChecker) inferExpr(expr ast.Expr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	switch e := expr.(type) {
	case *ast.IntLitExpr:
		return types.Int, true
	case *ast.TextLitExpr:
		return types.Text, true
	case *ast.BoolLitExpr:
		return types.Bool, true
	case *ast.RecordLitExpr:
		return b.inferRecordLit(e, expected)
	case *ast.PathExpr:
		return b.inferPath(e, expected)
	case *ast.CallExpr:
		return b.inferCall(e, expected)
	case *ast.BinaryExpr:
		return b.inferBinary(e)
	case *ast.IfExpr:
		return b.inferIf(e, expected)
	case *ast.WhileExpr:
		return b.inferWhile(e)
	case *ast.MatchExpr:
		return b.inferMatch(e, expected)
	default:
		return ast.TypeRef{}, false
	}
}

func (b *bodyChecker) inferRecordLit(e *ast.RecordLitExpr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	schema, ok := b.c.records[e.Type.Head()]
	if !ok {
		b.c.error(diag.SemaUnknownType, e.Span(),
			"function '"+b.fn.Name+"' constructs unknown record type '"+e.Type.Head()+"'")
		return ast.TypeRef{}, false
	}

	result := e.Type
	switch {
	case len(result.Args) == len(schema.Generics):
		// fully explicit (or non-generic)
	case len(result.Args) == 0 && expected != nil && expected.Head() == schema.Name &&
		len(expected.Args) == len(schema.Generics):
		result = *expected
	case len(result.Args) == 0 && len(schema.Generics) > 0:
		b.c.error(diag.SemaTypeMismatch, e.Span(),
			"function '"+b.fn.Name+"' cannot infer type arguments for record literal '"+
				schema.Name+"'; spell them explicitly")
		return ast.TypeRef{}, false
	default:
		b.c.arityError("function '"+b.fn.Name+"' record literal", &result, len(schema.Generics), e.Span())
		return ast.TypeRef{}, false
	}

	b.c.checkBounds(&result, schema.Generics, b.generics, "function '"+b.fn.Name+"' record literal", e.Span())

	seen := make(map[string]bool, len(e.Fields))
	for _, field := range e.Fields {
		if seen[field.Name] {
			b.c.error(diag.SemaRecordFieldDuplicate, e.Span(),
				"function '"+b.fn.Name+"' record literal '"+schema.Name+
					"' initializes field '"+field.Name+"' more than once")
			continue
		}
		seen[field.Name] = true

		declared, ok := schema.Fields[field.Name]
		if !ok {
			b.c.error(diag.SemaRecordFieldExtra, e.Span(),
				"function '"+b.fn.Name+"' record literal '"+schema.Name+
					"' initializes unknown field '"+field.Name+"'")
			continue
		}

		fieldType := types.Substitute(declared, schema.Generics, result.Args)
		got, ok := b.inferExpr(field.Value, &fieldType)
		if ok && !types.Compatible(fieldType, got) {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"function '"+b.fn.Name+"' record literal field '"+field.Name+
					"' has type '"+got.String()+"' but '"+schema.Name+
					"' declares '"+fieldType.String()+"'")
		}
	}

	for _, fieldName := range schema.FieldOrder {
		if !seen[fieldName] {
			b.c.error(diag.SemaRecordFieldMissing, e.Span(),
				"function '"+b.fn.Name+"' record literal '"+schema.Name+
					"' misses field '"+fieldName+"'")
		}
	}

	return result, true
}

func (b *bodyChecker) inferPath(e *ast.PathExpr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	root := e.Segments[0]

	if rootType, ok := b.lookup(root); ok {
		result, failure := types.ProjectPath(rootType, e.Segments[1:], b.c.records)
		if failure != nil {
			b.c.error(diag.SemaMemberNotFound, e.Span(),
				"function '"+b.fn.Name+"' cannot access member '"+failure.Member+
					"' on type '"+failure.BaseType.String()+"'")
			return ast.TypeRef{}, false
		}
		return result, true
	}

	if len(e.Segments) == 1 {
		return b.inferUnqualifiedVariant(root, false, nil, e, expected)
	}

	if schema, ok := b.c.enums[root]; ok && len(e.Segments) == 2 {
		return b.inferQualifiedVariant(root, schema, e.Segments[1], false, nil, e, expected)
	}

	b.c.error(diag.SemaUnknownSymbol, e.Span(),
		"function '"+b.fn.Name+"' references unknown variable '"+root+"'")
	return ast.TypeRef{}, false
}

// variantMatch records one enum that declares a given variant name.
type variantMatch struct {
	enumName string
	schema   types.EnumSchema
	payload  *ast.TypeRef
}

func (b *bodyChecker) resolveUnqualifiedVariant(variant string) []variantMatch {
	var matches []variantMatch
	for enumName, schema := range b.c.enums {
		if payload, ok := schema.Variants[variant]; ok {
			matches = append(matches, variantMatch{enumName: enumName, schema: schema, payload: payload})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].enumName < matches[j].enumName })
	return matches
}

// inferUnqualifiedVariant handles a bare variant reference or
// construction. isCall distinguishes `Some(x)` from value position `None`.
func (b *bodyChecker) inferUnqualifiedVariant(variant string, isCall bool, payloadArgs []ast.Expr, at ast.Node, expected *ast.TypeRef) (ast.TypeRef, bool) {
	matches := b.resolveUnqualifiedVariant(variant)
	switch len(matches) {
	case 0:
		if !isCall {
			b.c.error(diag.SemaUnknownSymbol, at.Span(),
				"function '"+b.fn.Name+"' references unknown variable '"+variant+"'")
		} else {
			b.c.error(diag.SemaUnknownCallTarget, at.Span(),
				"function '"+b.fn.Name+"' calls unknown target '"+variant+"'")
		}
		return ast.TypeRef{}, false
	case 1:
		m := matches[0]
		return b.inferQualifiedVariant(m.enumName, m.schema, variant, isCall, payloadArgs, at, expected)
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.enumName)
		}
		b.c.error(diag.SemaAmbiguousVariant, at.Span(),
			"function '"+b.fn.Name+"' uses variant '"+variant+
				"' which is declared by multiple enums ("+strings.Join(names, ", ")+
				"); qualify it as Enum::"+variant)
		return ast.TypeRef{}, false
	}
}

// inferQualifiedVariant checks one resolved variant use, handling payload
// arity and enum generic inference through the expected type or the
// payload value.
func (b *bodyChecker) inferQualifiedVariant(enumName string, schema types.EnumSchema, variant string, isCall bool, payloadArgs []ast.Expr, at ast.Node, expected *ast.TypeRef) (ast.TypeRef, bool) {
	payloadTemplate, ok := schema.Variants[variant]
	if !ok {
		b.c.error(diag.SemaUnknownVariant, at.Span(),
			"function '"+b.fn.Name+"' references unknown variant '"+enumName+"::"+variant+"'")
		return ast.TypeRef{}, false
	}

	if payloadTemplate != nil && !isCall {
		b.c.error(diag.SemaCallArity, at.Span(),
			"enum variant '"+variant+"' requires a payload (use '"+variant+"(...)')")
		return ast.TypeRef{}, false
	}
	if payloadTemplate == nil && len(payloadArgs) > 0 {
		b.c.error(diag.SemaCallArity, at.Span(),
			"enum variant '"+variant+"' expects 0 arguments but got "+itoa(len(payloadArgs)))
		return ast.TypeRef{}, false
	}
	if payloadTemplate != nil && len(payloadArgs) != 1 {
		b.c.error(diag.SemaCallArity, at.Span(),
			"enum variant '"+variant+"' expects 1 payload argument but got "+itoa(len(payloadArgs)))
		return ast.TypeRef{}, false
	}

	// Resolve the concrete enum instantiation.
	result := ast.TypeRef{Name: enumName}
	switch {
	case len(schema.Generics) == 0:
		// nothing to infer
	case expected != nil && expected.Head() == enumName && len(expected.Args) == len(schema.Generics):
		result = *expected
	case payloadTemplate != nil && len(schema.Generics) == 1 && payloadTemplate.Head() == schema.Generics[0].Name && len(payloadTemplate.Args) == 0:
		// Some(x): the payload value pins the single type parameter.
		payloadType, ok := b.inferExpr(payloadArgs[0], nil)
		if !ok {
			return ast.TypeRef{}, false
		}
		result.Args = []ast.TypeArg{{Kind: ast.TypeArgType, Type: &payloadType}}
		return result, true
	default:
		b.c.error(diag.SemaTypeMismatch, at.Span(),
			"function '"+b.fn.Name+"' cannot infer type arguments for enum '"+enumName+
				"'; annotate the expected type")
		return ast.TypeRef{}, false
	}

	if payloadTemplate != nil {
		payloadType := types.Substitute(*payloadTemplate, schema.Generics, result.Args)
		got, ok := b.inferExpr(payloadArgs[0], &payloadType)
		if ok && !types.Compatible(payloadType, got) {
			b.c.error(diag.SemaTypeMismatch, at.Span(),
				"enum variant '"+variant+"' payload has type '"+got.String()+
					"' but '"+enumName+"' declares '"+payloadType.String()+"'")
		}
	}
	return result, true
}

func (b *bodyChecker) inferCall(e *ast.CallExpr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	switch len(e.Target) {
	case 1:
		name := e.Target[0]
		if sig, ok := b.c.signatures[name]; ok {
			return b.inferInvocation(name, sig, e, expected)
		}
		return b.inferUnqualifiedVariant(name, true, e.Args, e, expected)
	case 2:
		if schema, ok := b.c.enums[e.Target[0]]; ok {
			return b.inferQualifiedVariant(e.Target[0], schema, e.Target[1], true, e.Args, e, expected)
		}
	}

	b.c.error(diag.SemaUnknownCallTarget, e.Span(),
		"function '"+b.fn.Name+"' calls unknown target '"+strings.Join(e.Target, "::")+"'")
	return ast.TypeRef{}, false
}

// inferInvocation checks a call to a declared function/workflow/agent:
// explicit or inferred generic arguments, bound satisfaction, arity, and
// per-argument types with the parameter type as expected hint.
func (b *bodyChecker) inferInvocation(name string, sig signature, e *ast.CallExpr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	var substArgs []ast.TypeArg

	switch {
	case len(e.TypeArgs) > 0:
		if len(e.TypeArgs) != len(sig.Generics) {
			b.c.error(diag.SemaArityMismatch, e.Span(),
				"function '"+b.fn.Name+"' calls '"+name+"' with "+itoa(len(e.TypeArgs))+
					" type arguments but it declares "+itoa(len(sig.Generics)))
			return ast.TypeRef{}, false
		}
		for i := range e.TypeArgs {
			b.c.checkTypeRefUsage(&e.TypeArgs[i], b.generics,
				"function '"+b.fn.Name+"' call to '"+name+"'", e.Span())
			substArgs = append(substArgs, ast.TypeArg{Kind: ast.TypeArgType, Type: &e.TypeArgs[i]})
		}

	case len(sig.Generics) > 0:
		inferred, ok := b.inferCallTypeArgs(name, sig, e, expected)
		if !ok {
			return ast.TypeRef{}, false
		}
		substArgs = inferred
	}

	// Bounds on the instantiation, aggregated per argument.
	if len(substArgs) > 0 {
		instance := ast.TypeRef{Name: name, Args: substArgs, Loc: e.Span()}
		b.c.checkBounds(&instance, sig.Generics, b.generics,
			"function '"+b.fn.Name+"' call to '"+name+"'", e.Span())
	}

	if len(e.Args) != len(sig.Params) {
		b.c.error(diag.SemaCallArity, e.Span(),
			"function '"+b.fn.Name+"' calls '"+name+"' with "+itoa(len(e.Args))+
				" arguments but it expects "+itoa(len(sig.Params)))
		return ast.TypeRef{}, false
	}

	for i, arg := range e.Args {
		paramType := types.Substitute(sig.Params[i], sig.Generics, substArgs)
		got, ok := b.inferExpr(arg, &paramType)
		if ok && !types.Compatible(paramType, got) {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"function '"+b.fn.Name+"' calls '"+name+"' with argument "+itoa(i)+
					" of type '"+got.String()+"' but parameter expects '"+paramType.String()+"'")
		}
	}

	return types.Substitute(sig.Return, sig.Generics, substArgs), true
}

// inferCallTypeArgs binds a generic callee's parameters from argument
// types (first binding wins) or, failing that, from the expected return
// type.
func (b *bodyChecker) inferCallTypeArgs(name string, sig signature, e *ast.CallExpr, expected *ast.TypeRef) ([]ast.TypeArg, bool) {
	bindings := make(map[string]ast.TypeRef, len(sig.Generics))

	for i, param := range sig.Params {
		if i >= len(e.Args) {
			break
		}
		generic := param.Head()
		if len(param.Args) != 0 || !isGenericOf(sig.Generics, generic) {
			continue
		}
		if _, bound := bindings[generic]; bound {
			continue
		}
		argType, ok := b.inferExpr(e.Args[i], nil)
		if !ok {
			return nil, false
		}
		bindings[generic] = argType
	}

	if expected != nil && len(sig.Return.Args) == 0 && isGenericOf(sig.Generics, sig.Return.Head()) {
		if _, bound := bindings[sig.Return.Head()]; !bound {
			bindings[sig.Return.Head()] = *expected
		}
	}

	out := make([]ast.TypeArg, 0, len(sig.Generics))
	for _, generic := range sig.Generics {
		bound, ok := bindings[generic.Name]
		if !ok {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"function '"+b.fn.Name+"' cannot infer type argument '"+generic.Name+
					"' for call to '"+name+"'; spell it explicitly")
			return nil, false
		}
		boundCopy := bound
		out = append(out, ast.TypeArg{Kind: ast.TypeArgType, Type: &boundCopy})
	}
	return out, true
}

func isGenericOf(generics []ast.GenericParam, name string) bool {
	for _, g := range generics {
		if g.Name == name {
			return true
		}
	}
	return false
}

func (b *bodyChecker) inferBinary(e *ast.BinaryExpr) (ast.TypeRef, bool) {
	left, lok := b.inferExpr(e.Left, nil)
	if !lok {
		return ast.TypeRef{}, false
	}

	switch e.Op {
	case ast.BinAdd:
		right, rok := b.inferExpr(e.Right, &types.Int)
		if !rok {
			return ast.TypeRef{}, false
		}
		if left.Head() != "Int" || right.Head() != "Int" {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"cannot apply '+' to '"+left.String()+"' and '"+right.String()+"'")
			return ast.TypeRef{}, false
		}
		return types.Int, true

	default: // == and !=
		right, rok := b.inferExpr(e.Right, &left)
		if !rok {
			return ast.TypeRef{}, false
		}
		if !types.Compatible(left, right) {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"cannot compare '"+left.String()+"' with '"+right.String()+"'")
			return ast.TypeRef{}, false
		}
		return types.Bool, true
	}
}

func (b *bodyChecker) inferIf(e *ast.IfExpr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	cond, ok := b.inferExpr(e.Cond, &types.Bool)
	if ok && cond.Head() != "Bool" {
		b.c.error(diag.SemaTypeMismatch, e.Span(),
			"if condition has type '"+cond.String()+"' but expected 'Bool'")
	}

	thenType, thenOK := b.inferBlock(e.Then, expected)
	if e.Else == nil {
		return types.Unit, true
	}

	elseType, elseOK := b.inferBlock(e.Else, expected)
	if !thenOK || !elseOK {
		return ast.TypeRef{}, false
	}
	if !types.Compatible(thenType, elseType) {
		b.c.error(diag.SemaTypeMismatch, e.Span(),
			"if branches have mismatched types '"+thenType.String()+
				"' and '"+elseType.String()+"'")
		return ast.TypeRef{}, false
	}
	if types.IsNever(thenType) {
		return elseType, true
	}
	return thenType, true
}

func (b *bodyChecker) inferWhile(e *ast.WhileExpr) (ast.TypeRef, bool) {
	cond, ok := b.inferExpr(e.Cond, &types.Bool)
	if ok && cond.Head() != "Bool" {
		b.c.error(diag.SemaTypeMismatch, e.Span(),
			"while condition has type '"+cond.String()+"' but expected 'Bool'")
	}
	b.inferBlock(e.Body, nil)
	return types.Unit, true
}

func (b *bodyChecker) inferMatch(e *ast.MatchExpr, expected *ast.TypeRef) (ast.TypeRef, bool) {
	scrutinee, ok := b.inferExpr(e.Value, nil)
	if !ok {
		return ast.TypeRef{}, false
	}

	if schema, isEnum := b.c.enums[scrutinee.Head()]; isEnum {
		return b.inferEnumMatch(e, scrutinee, schema, expected)
	}
	if types.IsPrimitive(scrutinee.Head()) {
		return b.inferLiteralMatch(e, scrutinee, expected)
	}

	b.c.error(diag.SemaTypeMismatch, e.Span(),
		"match scrutinee has type '"+scrutinee.String()+"' but an enum or primitive is required")
	return ast.TypeRef{}, false
}

func (b *bodyChecker) inferEnumMatch(e *ast.MatchExpr, scrutinee ast.TypeRef, schema types.EnumSchema, expected *ast.TypeRef) (ast.TypeRef, bool) {
	covered := make(map[string]bool, len(schema.VariantOrder))
	wildcard := false

	var resultType ast.TypeRef
	haveResult := false

	for _, arm := range e.Arms {
		var binder string
		var binderType ast.TypeRef

		switch arm.Pattern.Kind {
		case ast.PatternWildcard:
			wildcard = true

		case ast.PatternLiteral:
			b.c.error(diag.SemaMatchBadPattern, arm.Pattern.Span(),
				"literal pattern cannot match enum '"+schema.Name+"'")
			continue

		case ast.PatternVariant:
			variant := arm.Pattern.VariantName()
			if len(arm.Pattern.Path) >= 2 {
				enumSeg := arm.Pattern.Path[len(arm.Pattern.Path)-2]
				if enumSeg != schema.Name {
					b.c.error(diag.SemaMatchBadPattern, arm.Pattern.Span(),
						"pattern names enum '"+enumSeg+"' but scrutinee is '"+schema.Name+"'")
					continue
				}
			}

			payload, known := schema.Variants[variant]
			if !known {
				b.c.error(diag.SemaMatchBadPattern, arm.Pattern.Span(),
					"variant '"+variant+"' is not part of enum '"+schema.Name+"'")
				continue
			}
			covered[variant] = true

			if arm.Pattern.Bind != "" {
				if payload == nil {
					b.c.error(diag.SemaMatchBadPattern, arm.Pattern.Span(),
						"match arm '"+variant+"' binds '"+arm.Pattern.Bind+
							"' but the variant has no payload")
					continue
				}
				binder = arm.Pattern.Bind
				binderType = types.Substitute(*payload, schema.Generics, scrutinee.Args)
			}
		}

		b.pushScope()
		if binder != "" {
			b.declare(binder, binderType)
		}
		var armType ast.TypeRef
		var armOK bool
		if arm.Block != nil {
			armType, armOK = b.inferBlock(arm.Block, expected)
		} else {
			armType, armOK = b.inferExpr(arm.Expr, expected)
		}
		b.popScope()

		if !armOK {
			continue
		}
		if !haveResult || (types.IsNever(resultType) && !types.IsNever(armType)) {
			// First arm, or a concrete type refining earlier diverging arms.
			resultType = armType
			haveResult = true
		} else if !types.Compatible(resultType, armType) {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"match arms have mismatched types '"+resultType.String()+
					"' and '"+armType.String()+"'")
		}
	}

	if !wildcard {
		var missing []string
		for _, variant := range schema.VariantOrder {
			if !covered[variant] {
				missing = append(missing, variant)
			}
		}
		if len(missing) > 0 {
			b.c.error(diag.SemaMatchNotExhaustive, e.Span(),
				"match on enum '"+schema.Name+"' is not exhaustive; missing "+
					joinQuoted(missing))
		}
	}

	if !haveResult {
		return types.Unit, true
	}
	return resultType, true
}

// inferLiteralMatch handles matches over Int/Bool/Text scrutinees, where
// exhaustiveness requires a wildcard arm.
func (b *bodyChecker) inferLiteralMatch(e *ast.MatchExpr, scrutinee ast.TypeRef, expected *ast.TypeRef) (ast.TypeRef, bool) {
	wildcard := false
	var resultType ast.TypeRef
	haveResult := false

	for _, arm := range e.Arms {
		switch arm.Pattern.Kind {
		case ast.PatternWildcard:
			wildcard = true
		case ast.PatternLiteral:
			litType, ok := b.inferExpr(arm.Pattern.Lit, &scrutinee)
			if ok && !types.Compatible(scrutinee, litType) {
				b.c.error(diag.SemaMatchBadPattern, arm.Pattern.Span(),
					"literal pattern has type '"+litType.String()+
						"' but scrutinee is '"+scrutinee.String()+"'")
			}
		case ast.PatternVariant:
			b.c.error(diag.SemaMatchBadPattern, arm.Pattern.Span(),
				"variant pattern cannot match '"+scrutinee.String()+"'")
			continue
		}

		var armType ast.TypeRef
		var armOK bool
		if arm.Block != nil {
			armType, armOK = b.inferBlock(arm.Block, expected)
		} else {
			armType, armOK = b.inferExpr(arm.Expr, expected)
		}
		if !armOK {
			continue
		}
		if !haveResult {
			resultType = armType
			haveResult = true
		} else if !types.Compatible(resultType, armType) {
			b.c.error(diag.SemaTypeMismatch, e.Span(),
				"match arms have mismatched types '"+resultType.String()+
					"' and '"+armType.String()+"'")
		}
	}

	if !wildcard {
		b.c.error(diag.SemaMatchNotExhaustive, e.Span(),
			"match on '"+scrutinee.String()+"' requires a wildcard arm")
	}

	if !haveResult {
		return types.Unit, true
	}
	return resultType, true
}
