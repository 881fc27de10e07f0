package sema

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/hir"
	"kooix/internal/types"
)

// bodyChecker type-checks one function body under a scope stack of locals
// plus the function's generic parameters (treated as opaque types).
type bodyChecker struct {
	c        *Checker
	fn       *hir.Function
	generics map[string]bool
	scopes   []map[string]ast.TypeRef
}

func (c *Checker) checkFunctionBody(fn *hir.Function) {
	if fn.Body == nil {
		return
	}

	b := &bodyChecker{
		c:        c,
		fn:       fn,
		generics: genericNames(fn.Generics),
		scopes:   []map[string]ast.TypeRef{make(map[string]ast.TypeRef, len(fn.Params))},
	}
	for _, param := range fn.Params {
		b.scopes[0][param.Name] = param.Type
	}

	endsWithReturn := false
	for _, stmt := range fn.Body.Stmts {
		endsWithReturn = false
		if _, isReturn := stmt.(*ast.ReturnStmt); isReturn {
			endsWithReturn = true
		}
		b.checkStmt(stmt)
	}

	expected := fn.ReturnType
	if expected.Head() == "Unit" {
		if fn.Body.Tail != nil {
			b.inferExpr(fn.Body.Tail, nil)
		}
		return
	}
	if endsWithReturn {
		return
	}

	if fn.Body.Tail == nil {
		b.c.error(diag.SemaReturnTypeMismatch, fn.Span,
			"function '"+fn.Name+"' body does not return a value of type '"+expected.String()+"'")
		return
	}

	tailType, ok := b.inferExpr(fn.Body.Tail, &expected)
	if ok && !types.Compatible(expected, tailType) {
		b.c.error(diag.SemaReturnTypeMismatch, fn.Span,
			"function '"+fn.Name+"' body evaluates to '"+tailType.String()+
				"' but expected '"+expected.String()+"'")
	}
}

func (b *bodyChecker) pushScope() {
	b.scopes = append(b.scopes, make(map[string]ast.TypeRef))
}

func (b *bodyChecker) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *bodyChecker) lookup(name string) (ast.TypeRef, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if ty, ok := b.scopes[i][name]; ok {
			return ty, true
		}
	}
	return ast.TypeRef{}, false
}

func (b *bodyChecker) declare(name string, ty ast.TypeRef) {
	b.scopes[len(b.scopes)-1][name] = ty
}

func (b *bodyChecker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if _, exists := b.lookup(s.Name); exists {
			b.c.error(diag.SemaRedefinedVariable, s.Span(),
				"function '"+b.fn.Name+"' redefines variable '"+s.Name+"'")
			return
		}

		if s.Type != nil {
			b.c.checkTypeRefUsage(s.Type, b.generics,
				"function '"+b.fn.Name+"' let '"+s.Name+"'", s.Span())
			valueType, ok := b.inferExpr(s.Value, s.Type)
			if !ok {
				return
			}
			if !types.Compatible(*s.Type, valueType) {
				b.c.error(diag.SemaTypeMismatch, s.Span(),
					"function '"+b.fn.Name+"' let '"+s.Name+"' declares type '"+
						s.Type.String()+"' but value is '"+valueType.String()+"'")
				return
			}
			b.declare(s.Name, *s.Type)
		} else {
			valueType, ok := b.inferExpr(s.Value, nil)
			if !ok {
				return
			}
			b.declare(s.Name, valueType)
		}

	case *ast.AssignStmt:
		existing, ok := b.lookup(s.Name)
		if !ok {
			b.c.error(diag.SemaAssignUnknownVariable, s.Span(),
				"function '"+b.fn.Name+"' assigns to unknown variable '"+s.Name+"'")
			return
		}
		actual, ok := b.inferExpr(s.Value, &existing)
		if !ok {
			return
		}
		if !types.Compatible(existing, actual) {
			b.c.error(diag.SemaTypeMismatch, s.Span(),
				"function '"+b.fn.Name+"' assigns '"+s.Name+"' as '"+actual.String()+
					"' but variable is '"+existing.String()+"'")
		}

	case *ast.ReturnStmt:
		expected := b.fn.ReturnType
		if s.Value == nil {
			if expected.Head() != "Unit" {
				b.c.error(diag.SemaReturnTypeMismatch, s.Span(),
					"function '"+b.fn.Name+"' returns nothing but expected '"+expected.String()+"'")
			}
			return
		}
		actual, ok := b.inferExpr(s.Value, &expected)
		if ok && !types.Compatible(expected, actual) {
			b.c.error(diag.SemaReturnTypeMismatch, s.Span(),
				"function '"+b.fn.Name+"' returns '"+actual.String()+
					"' but expected '"+expected.String()+"'")
		}

	case *ast.ExprStmt:
		b.inferExpr(s.X, nil)
	}
}

// inferBlock type-checks a nested block and returns its value type: the
// tail expression's type, Unit for statement-only blocks, or Never when
// the block diverges through a trailing return.
func (b *bodyChecker) inferBlock(block *ast.Block, expected *ast.TypeRef) (ast.TypeRef, bool) {
	b.pushScope()
	defer b.popScope()

	for _, stmt := range block.Stmts {
		b.checkStmt(stmt)
	}
	if block.Tail != nil {
		return b.inferExpr(block.Tail, expected)
	}
	if n := len(block.Stmts); n > 0 {
		if _, diverges := block.Stmts[n-1].(*ast.ReturnStmt); diverges {
			return types.Never, true
		}
	}
	return types.Unit, true
}
