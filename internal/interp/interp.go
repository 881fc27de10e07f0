package interp

import (
	"fmt"
	"strconv"

	"kooix/internal/ast"
	"kooix/internal/hir"
)

// Options bound interpreter execution.
type Options struct {
	// MaxLoopIters guards while loops against non-termination; 0 uses the
	// default.
	MaxLoopIters int
	// MaxCallDepth guards recursion; 0 uses the default.
	MaxCallDepth int
}

const (
	defaultMaxLoopIters = 1_000_000
	defaultMaxCallDepth = 1024
)

// Interp evaluates HIR function bodies.
type Interp struct {
	program *hir.Program
	opts    Options

	// variant name -> owning enum, for bare-variant construction; sema
	// has already rejected ambiguous uses.
	variants map[string]variantInfo
}

type variantInfo struct {
	enumName   string
	hasPayload bool
}

// New prepares an interpreter over a checked program.
func New(program *hir.Program, opts Options) *Interp {
	if opts.MaxLoopIters == 0 {
		opts.MaxLoopIters = defaultMaxLoopIters
	}
	if opts.MaxCallDepth == 0 {
		opts.MaxCallDepth = defaultMaxCallDepth
	}

	in := &Interp{
		program:  program,
		opts:     opts,
		variants: make(map[string]variantInfo),
	}
	for i := range program.Enums {
		enum := &program.Enums[i]
		for _, variant := range enum.Variants {
			if _, exists := in.variants[variant.Name]; !exists {
				in.variants[variant.Name] = variantInfo{
					enumName:   enum.Name,
					hasPayload: variant.Payload != nil,
				}
			}
		}
	}
	return in
}

// RunMain executes the program's main function, which must exist and take
// no parameters.
func (in *Interp) RunMain() (Value, error) {
	main, ok := in.program.FuncByName("main")
	if !ok {
		return Value{}, fmt.Errorf("missing function 'main'")
	}
	if len(main.Params) != 0 {
		return Value{}, fmt.Errorf(
			"function 'main' expects %d parameters but the interpreter only supports main()",
			len(main.Params))
	}
	return in.callFunction(main, nil, 0)
}

// callFunction enforces the no-effects contract and the call-depth guard,
// then evaluates the body under a fresh environment.
func (in *Interp) callFunction(fn *hir.Function, args []Value, depth int) (Value, error) {
	if depth > in.opts.MaxCallDepth {
		return Value{}, fmt.Errorf("call stack overflow while executing function '%s'", fn.Name)
	}
	if len(fn.Effects) > 0 {
		return Value{}, fmt.Errorf(
			"function '%s' declares effects and cannot be executed by the interpreter", fn.Name)
	}
	if len(fn.Params) != len(args) {
		return Value{}, fmt.Errorf("function '%s' called with %d arguments but expects %d",
			fn.Name, len(args), len(fn.Params))
	}
	if fn.Body == nil {
		return Value{}, fmt.Errorf("function '%s' has no body to execute", fn.Name)
	}

	e := newEnv()
	for i, param := range fn.Params {
		e.declare(param.Name, args[i])
	}

	frame := &frame{in: in, fn: fn, env: e, depth: depth}
	value, returned, err := frame.evalStmts(fn.Body)
	if err != nil {
		if r, ok := err.(errReturn); ok {
			value, returned, err = r.value, true, nil
		} else {
			return Value{}, err
		}
	}
	if !returned && fn.Body.Tail != nil {
		value, err = frame.evalExpr(fn.Body.Tail)
		if r, ok := err.(errReturn); ok {
			value, err = r.value, nil
		}
		if err != nil {
			return Value{}, err
		}
	}

	if fn.ReturnType.Head() == "Unit" {
		return UnitValue(), nil
	}
	return value, nil
}

// frame is the evaluation state of one function activation.
type frame struct {
	in    *Interp
	fn    *hir.Function
	env   *env
	depth int
}

// evalStmts runs the statements of a block; returned reports whether a
// return statement fired (the value then carries the return value).
func (f *frame) evalStmts(block *ast.Block) (Value, bool, error) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			if _, exists := f.env.get(s.Name); exists {
				return Value{}, false, fmt.Errorf(
					"function '%s' redefines variable '%s'", f.fn.Name, s.Name)
			}
			value, err := f.evalExpr(s.Value)
			if err != nil {
				if r, ok := err.(errReturn); ok {
					return r.value, true, nil
				}
				return Value{}, false, err
			}
			f.env.declare(s.Name, value)

		case *ast.AssignStmt:
			value, err := f.evalExpr(s.Value)
			if err != nil {
				if r, ok := err.(errReturn); ok {
					return r.value, true, nil
				}
				return Value{}, false, err
			}
			if !f.env.assign(s.Name, value) {
				return Value{}, false, fmt.Errorf(
					"function '%s' assigns to unknown variable '%s'", f.fn.Name, s.Name)
			}

		case *ast.ReturnStmt:
			if s.Value == nil {
				return UnitValue(), true, nil
			}
			value, err := f.evalExpr(s.Value)
			if err != nil {
				if r, ok := err.(errReturn); ok {
					return r.value, true, nil
				}
				return Value{}, false, err
			}
			return value, true, nil

		case *ast.ExprStmt:
			value, returned, err := f.evalExprFlow(s.X)
			if err != nil {
				if r, ok := err.(errReturn); ok {
					return r.value, true, nil
				}
				return Value{}, false, err
			}
			if returned {
				return value, true, nil
			}
		}
	}
	return UnitValue(), false, nil
}

// evalBlock evaluates a nested block expression under its own scope.
// Return statements propagate outward through the returned flag.
func (f *frame) evalBlock(block *ast.Block) (Value, bool, error) {
	f.env.push()
	defer f.env.pop()

	value, returned, err := f.evalStmts(block)
	if err != nil || returned {
		return value, returned, err
	}
	if block.Tail != nil {
		value, err = f.evalExpr(block.Tail)
		if r, ok := err.(errReturn); ok {
			return r.value, true, nil
		}
		return value, false, err
	}
	return UnitValue(), false, nil
}

func (f *frame) evalExpr(expr ast.Expr) (Value, error) {
	value, returned, err := f.evalExprFlow(expr)
	if err != nil {
		return Value{}, err
	}
	if returned {
		// A return inside an expression position unwinds to the caller
		// via evalExprFlow users; plain contexts treat it as the value.
		return value, errReturn{value}
	}
	return value, nil
}

// errReturn threads an early return out of nested expression evaluation.
type errReturn struct {
	value Value
}

func (errReturn) Error() string { return "return" }

func (f *frame) evalExprFlow(expr ast.Expr) (Value, bool, error) {
	switch e := expr.(type) {
	case *ast.IntLitExpr:
		parsed, err := strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			return Value{}, false, fmt.Errorf("invalid integer literal '%s'", e.Value)
		}
		return IntValue(parsed), false, nil

	case *ast.TextLitExpr:
		return TextValue(e.Value), false, nil

	case *ast.BoolLitExpr:
		return BoolValue(e.Value), false, nil

	case *ast.PathExpr:
		value, err := f.evalPath(e)
		return value, false, err

	case *ast.CallExpr:
		value, err := f.evalCall(e)
		return value, false, err

	case *ast.RecordLitExpr:
		fields := make(map[string]Value, len(e.Fields))
		for _, field := range e.Fields {
			value, err := f.evalExpr(field.Value)
			if err != nil {
				return Value{}, false, err
			}
			fields[field.Name] = value
		}
		return Value{Kind: ValueRecord, Name: e.Type.Head(), Fields: fields}, false, nil

	case *ast.BinaryExpr:
		return f.evalBinary(e)

	case *ast.IfExpr:
		cond, err := f.evalExpr(e.Cond)
		if err != nil {
			return Value{}, false, err
		}
		if cond.Kind != ValueBool {
			return Value{}, false, fmt.Errorf(
				"if condition evaluated to '%s' but expected 'Bool'", cond.TypeName())
		}
		if cond.Bool {
			return f.evalBlock(e.Then)
		}
		if e.Else != nil {
			return f.evalBlock(e.Else)
		}
		return UnitValue(), false, nil

	case *ast.WhileExpr:
		iterations := 0
		for {
			cond, err := f.evalExpr(e.Cond)
			if err != nil {
				return Value{}, false, err
			}
			if cond.Kind != ValueBool {
				return Value{}, false, fmt.Errorf(
					"while condition evaluated to '%s' but expected 'Bool'", cond.TypeName())
			}
			if !cond.Bool {
				return UnitValue(), false, nil
			}

			iterations++
			if iterations > f.in.opts.MaxLoopIters {
				return Value{}, false, fmt.Errorf(
					"while loop exceeded %d iterations in function '%s' (possible non-termination)",
					f.in.opts.MaxLoopIters, f.fn.Name)
			}

			value, returned, err := f.evalBlock(e.Body)
			if err != nil {
				return Value{}, false, err
			}
			if returned {
				return value, true, nil
			}
		}

	case *ast.MatchExpr:
		return f.evalMatch(e)
	}
	return UnitValue(), false, nil
}

func (f *frame) evalPath(e *ast.PathExpr) (Value, error) {
	root := e.Segments[0]

	value, ok := f.env.get(root)
	if !ok {
		// Bare or Enum::Variant unit-variant reference.
		variant := e.Segments[len(e.Segments)-1]
		if info, known := f.in.variants[variant]; known {
			if info.hasPayload {
				return Value{}, fmt.Errorf(
					"enum variant '%s' requires a payload (use '%s(...)')", variant, variant)
			}
			return Value{Kind: ValueEnum, Name: info.enumName, Variant: variant}, nil
		}
		return Value{}, fmt.Errorf("unknown variable '%s'", root)
	}

	for _, member := range e.Segments[1:] {
		switch value.Kind {
		case ValueRecord:
			field, ok := value.Fields[member]
			if !ok {
				return Value{}, fmt.Errorf("unknown member '%s' on record value", member)
			}
			value = field
		case ValueEnum:
			if value.Payload != nil && (member == "value" || member == "some" || member == "ok") {
				value = *value.Payload
				continue
			}
			return Value{}, fmt.Errorf(
				"cannot access member '%s' on value of type '%s'", member, value.TypeName())
		default:
			return Value{}, fmt.Errorf(
				"cannot access member '%s' on value of type '%s'", member, value.TypeName())
		}
	}
	return value, nil
}

func (f *frame) evalCall(e *ast.CallExpr) (Value, error) {
	// Single-segment targets may be functions; anything else is a variant
	// constructor.
	if len(e.Target) == 1 {
		if callee, ok := f.in.program.FuncByName(e.Target[0]); ok {
			args := make([]Value, 0, len(e.Args))
			for _, arg := range e.Args {
				value, err := f.evalExpr(arg)
				if err != nil {
					return Value{}, err
				}
				args = append(args, value)
			}
			return f.in.callFunction(callee, args, f.depth+1)
		}
	}

	variant := e.Target[len(e.Target)-1]
	info, known := f.in.variants[variant]
	if !known {
		return Value{}, fmt.Errorf(
			"function '%s' calls unknown target '%s'", f.fn.Name, variant)
	}
	if len(e.Target) >= 2 {
		info.enumName = e.Target[len(e.Target)-2]
	}

	if info.hasPayload {
		if len(e.Args) != 1 {
			return Value{}, fmt.Errorf(
				"enum variant '%s' expects 1 payload argument but got %d", variant, len(e.Args))
		}
		payload, err := f.evalExpr(e.Args[0])
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueEnum, Name: info.enumName, Variant: variant, Payload: &payload}, nil
	}

	if len(e.Args) != 0 {
		return Value{}, fmt.Errorf(
			"enum variant '%s' expects 0 arguments but got %d", variant, len(e.Args))
	}
	return Value{Kind: ValueEnum, Name: info.enumName, Variant: variant}, nil
}

func (f *frame) evalBinary(e *ast.BinaryExpr) (Value, bool, error) {
	left, err := f.evalExpr(e.Left)
	if err != nil {
		return Value{}, false, err
	}
	right, err := f.evalExpr(e.Right)
	if err != nil {
		return Value{}, false, err
	}

	switch e.Op {
	case ast.BinAdd:
		if left.Kind != ValueInt || right.Kind != ValueInt {
			return Value{}, false, fmt.Errorf(
				"cannot apply '+' to '%s' and '%s'", left.TypeName(), right.TypeName())
		}
		sum := left.Int + right.Int
		if (left.Int > 0 && right.Int > 0 && sum < 0) || (left.Int < 0 && right.Int < 0 && sum > 0) {
			return Value{}, false, fmt.Errorf(
				"integer overflow while executing '+' in function '%s'", f.fn.Name)
		}
		return IntValue(sum), false, nil
	case ast.BinEq:
		return BoolValue(left.Equal(right)), false, nil
	default:
		return BoolValue(!left.Equal(right)), false, nil
	}
}

func (f *frame) evalMatch(e *ast.MatchExpr) (Value, bool, error) {
	scrutinee, err := f.evalExpr(e.Value)
	if err != nil {
		return Value{}, false, err
	}

	for i := range e.Arms {
		arm := &e.Arms[i]
		matched, err := f.patternMatches(&arm.Pattern, scrutinee)
		if err != nil {
			return Value{}, false, err
		}
		if !matched {
			continue
		}

		f.env.push()
		if arm.Pattern.Kind == ast.PatternVariant && arm.Pattern.Bind != "" {
			if scrutinee.Payload == nil {
				f.env.pop()
				return Value{}, false, fmt.Errorf(
					"match arm '%s' binds '%s' but variant has no payload",
					arm.Pattern.VariantName(), arm.Pattern.Bind)
			}
			f.env.declare(arm.Pattern.Bind, *scrutinee.Payload)
		}

		var value Value
		var returned bool
		if arm.Block != nil {
			value, returned, err = f.evalBlock(arm.Block)
		} else {
			value, err = f.evalExpr(arm.Expr)
		}
		f.env.pop()
		if err != nil {
			return Value{}, false, err
		}
		return value, returned, nil
	}

	return Value{}, false, fmt.Errorf("non-exhaustive match expression")
}

func (f *frame) patternMatches(pattern *ast.Pattern, scrutinee Value) (bool, error) {
	switch pattern.Kind {
	case ast.PatternWildcard:
		return true, nil
	case ast.PatternLiteral:
		lit, err := f.evalExpr(pattern.Lit)
		if err != nil {
			return false, err
		}
		return scrutinee.Equal(lit), nil
	default:
		if scrutinee.Kind != ValueEnum {
			return false, fmt.Errorf(
				"match scrutinee evaluated to '%s' but expected an enum value", scrutinee.TypeName())
		}
		return scrutinee.Variant == pattern.VariantName(), nil
	}
}
