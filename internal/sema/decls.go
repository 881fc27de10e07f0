package sema

import (
	"strconv"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/source"
	"kooix/internal/types"
)

// checkRecordDecls validates record declarations and builds their schemas.
func (c *Checker) checkRecordDecls() {
	for i := range c.program.Records {
		record := &c.program.Records[i]
		if _, exists := c.records[record.Name]; exists {
			c.error(diag.SemaDuplicateDecl, record.Span,
				"duplicate record declaration '"+record.Name+"'")
			continue
		}

		schema := types.RecordSchema{
			Name:     record.Name,
			Generics: record.Generics,
			Fields:   make(map[string]ast.TypeRef, len(record.Fields)),
		}
		seen := make(map[string]bool, len(record.Fields))
		for _, field := range record.Fields {
			if seen[field.Name] {
				c.error(diag.SemaRecordFieldDuplicate, record.Span,
					"record '"+record.Name+"' declares field '"+field.Name+"' more than once")
				continue
			}
			seen[field.Name] = true
			schema.Fields[field.Name] = field.Type
			schema.FieldOrder = append(schema.FieldOrder, field.Name)
		}
		c.records[record.Name] = schema
	}

	// Field types can reference records declared later; validate them
	// once every schema is known.
	for i := range c.program.Records {
		record := &c.program.Records[i]
		generics := genericNames(record.Generics)
		for _, field := range record.Fields {
			c.checkTypeRefUsage(&field.Type, generics,
				"record '"+record.Name+"' field '"+field.Name+"'", record.Span)
		}
	}
}

// checkEnumDecls validates enum declarations and builds their schemas.
// Cross-enum variant name collisions are allowed; later unqualified uses
// that hit more than one enum are ambiguity errors at the use site.
func (c *Checker) checkEnumDecls() {
	for i := range c.program.Enums {
		enum := &c.program.Enums[i]
		if _, exists := c.enums[enum.Name]; exists {
			c.error(diag.SemaDuplicateDecl, enum.Span,
				"duplicate enum declaration '"+enum.Name+"'")
			continue
		}
		if c.invocableTargets[enum.Name] {
			c.error(diag.SemaDuplicateDecl, enum.Span,
				"enum '"+enum.Name+"' collides with a function, workflow, or agent of the same name")
		}

		schema := types.EnumSchema{
			Name:     enum.Name,
			Generics: enum.Generics,
			Variants: make(map[string]*ast.TypeRef, len(enum.Variants)),
		}
		seen := make(map[string]bool, len(enum.Variants))
		for _, variant := range enum.Variants {
			if seen[variant.Name] {
				c.error(diag.SemaDuplicateDecl, enum.Span,
					"enum '"+enum.Name+"' declares variant '"+variant.Name+"' more than once")
				continue
			}
			seen[variant.Name] = true
			schema.Variants[variant.Name] = variant.Payload
			schema.VariantOrder = append(schema.VariantOrder, variant.Name)
		}
		c.enums[enum.Name] = schema
	}

	for i := range c.program.Enums {
		enum := &c.program.Enums[i]
		generics := genericNames(enum.Generics)
		for _, variant := range enum.Variants {
			if variant.Payload != nil {
				c.checkTypeRefUsage(variant.Payload, generics,
					"enum '"+enum.Name+"' variant '"+variant.Name+"'", enum.Span)
			}
		}
	}
}

// checkDeclaredTypeArity walks every type reference in declaration
// signatures and validates generic arity and bounds against the declared
// record/enum schemas.
func (c *Checker) checkDeclaredTypeArity() {
	for i := range c.program.Functions {
		fn := &c.program.Functions[i]
		generics := genericNames(fn.Generics)
		for _, param := range fn.Params {
			c.checkTypeRefUsage(&param.Type, generics,
				"function '"+fn.Name+"' parameter '"+param.Name+"'", fn.Span)
		}
		c.checkTypeRefUsage(&fn.ReturnType, generics,
			"function '"+fn.Name+"' return type", fn.Span)
	}
	for i := range c.program.Workflows {
		w := &c.program.Workflows[i]
		for _, param := range w.Params {
			c.checkTypeRefUsage(&param.Type, nil,
				"workflow '"+w.Name+"' parameter '"+param.Name+"'", w.Span)
		}
		c.checkTypeRefUsage(&w.ReturnType, nil, "workflow '"+w.Name+"' return type", w.Span)
		for _, field := range w.Output {
			c.checkTypeRefUsage(&field.Type, nil,
				"workflow '"+w.Name+"' output field '"+field.Name+"'", w.Span)
		}
	}
	for i := range c.program.Agents {
		a := &c.program.Agents[i]
		for _, param := range a.Params {
			c.checkTypeRefUsage(&param.Type, nil,
				"agent '"+a.Name+"' parameter '"+param.Name+"'", a.Span)
		}
		c.checkTypeRefUsage(&a.ReturnType, nil, "agent '"+a.Name+"' return type", a.Span)
	}
}

// checkTypeRefUsage validates one type reference against declared arities
// and bounds. Generic parameters in scope are opaque; bound failures are
// aggregated across all failing predicates, deduplicated.
func (c *Checker) checkTypeRefUsage(ty *ast.TypeRef, genericsInScope map[string]bool, context string, span source.Span) {
	if genericsInScope[ty.Head()] && len(ty.Args) == 0 {
		return
	}

	if schema, ok := c.records[ty.Head()]; ok {
		if len(schema.Generics) != len(ty.Args) {
			c.arityError(context, ty, len(schema.Generics), span)
			return
		}
		c.checkBounds(ty, schema.Generics, genericsInScope, context, span)
	} else if schema, ok := c.enums[ty.Head()]; ok {
		if len(schema.Generics) != len(ty.Args) {
			c.arityError(context, ty, len(schema.Generics), span)
			return
		}
		c.checkBounds(ty, schema.Generics, genericsInScope, context, span)
	}

	for _, arg := range ty.Args {
		if arg.Kind == ast.TypeArgType {
			c.checkTypeRefUsage(arg.Type, genericsInScope, context, span)
		}
	}
}

func (c *Checker) arityError(context string, ty *ast.TypeRef, want int, span source.Span) {
	c.error(diag.SemaArityMismatch, span,
		context+" uses '"+ty.String()+"' with "+itoa(len(ty.Args))+
			" type arguments but '"+ty.Head()+"' declares "+itoa(want))
}

// checkBounds validates concrete type arguments against the declared
// bounds, collecting every failing predicate before reporting one
// aggregated diagnostic per argument.
func (c *Checker) checkBounds(ty *ast.TypeRef, generics []ast.GenericParam, genericsInScope map[string]bool, context string, span source.Span) {
	for i, param := range generics {
		if len(param.Bounds) == 0 || i >= len(ty.Args) {
			continue
		}
		arg := ty.Args[i]
		if arg.Kind != ast.TypeArgType {
			c.error(diag.SemaBoundNotSatisfied, span,
				context+": argument "+itoa(i)+" of '"+ty.String()+
					"' must be a type to satisfy bounds of '"+param.Name+"'")
			continue
		}
		// An opaque generic in scope cannot be checked against bounds here;
		// the instantiation site will.
		if genericsInScope[arg.Type.Head()] && len(arg.Type.Args) == 0 {
			continue
		}

		var failing []string
		seen := make(map[string]bool)
		for _, bound := range param.Bounds {
			if !types.SatisfiesBound(*arg.Type, bound, c.records) {
				rendered := bound.String()
				if !seen[rendered] {
					seen[rendered] = true
					failing = append(failing, rendered)
				}
			}
		}
		if len(failing) > 0 {
			c.error(diag.SemaBoundNotSatisfied, span,
				context+": type argument '"+arg.Type.String()+"' does not satisfy "+
					joinQuoted(failing)+" required by '"+param.Name+"' of '"+ty.Head()+"'")
		}
	}
}

func genericNames(generics []ast.GenericParam) map[string]bool {
	if len(generics) == 0 {
		return nil
	}
	out := make(map[string]bool, len(generics))
	for _, g := range generics {
		out[g.Name] = true
	}
	return out
}

func joinQuoted(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += "'" + item + "'"
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
