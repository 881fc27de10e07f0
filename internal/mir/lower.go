package mir

import (
	"strconv"

	"kooix/internal/ast"
	"kooix/internal/hir"
	"kooix/internal/types"
)

// Lower converts checked HIR into MIR. It assumes semantic analysis has
// already accepted the program: exhaustiveness, name resolution, and
// typing are established facts here, so lowering never reports
// diagnostics.
func Lower(program *hir.Program) *Program {
	ctx := &lowerCtx{
		program: program,
		records: make(map[string]*hir.Record),
		enums:   make(map[string]*hir.Enum),
		returns: make(map[string]ast.TypeRef),
	}

	out := &Program{}
	for i := range program.Records {
		record := &program.Records[i]
		ctx.records[record.Name] = record
		layout := RecordLayout{Name: record.Name}
		for _, field := range record.Fields {
			layout.Fields = append(layout.Fields, field.Name)
		}
		out.Records = append(out.Records, layout)
	}
	for i := range program.Enums {
		enum := &program.Enums[i]
		ctx.enums[enum.Name] = enum
		layout := EnumLayout{Name: enum.Name}
		for _, variant := range enum.Variants {
			layout.Variants = append(layout.Variants, VariantLayout{
				Name:       variant.Name,
				HasPayload: variant.Payload != nil,
			})
		}
		out.Enums = append(out.Enums, layout)
	}
	for i := range program.Functions {
		fn := &program.Functions[i]
		if _, exists := ctx.returns[fn.Name]; !exists {
			ctx.returns[fn.Name] = fn.ReturnType
		}
	}
	// Workflows and agents are analyzable, not code-generated, but their
	// names still resolve as call targets for typing purposes.
	for i := range program.Workflows {
		w := &program.Workflows[i]
		if _, exists := ctx.returns[w.Name]; !exists {
			ctx.returns[w.Name] = w.ReturnType
		}
	}
	for i := range program.Agents {
		a := &program.Agents[i]
		if _, exists := ctx.returns[a.Name]; !exists {
			ctx.returns[a.Name] = a.ReturnType
		}
	}

	for i := range program.Functions {
		out.Functions = append(out.Functions, ctx.lowerFunction(&program.Functions[i]))
	}
	return out
}

type lowerCtx struct {
	program *hir.Program
	records map[string]*hir.Record
	enums   map[string]*hir.Enum
	returns map[string]ast.TypeRef
}

func (ctx *lowerCtx) lowerFunction(fn *hir.Function) Func {
	out := Func{
		Name:       fn.Name,
		ReturnType: fn.ReturnType,
	}
	for _, effect := range fn.Effects {
		out.Effects = append(out.Effects, effect.String())
	}

	l := &funcLowerer{ctx: ctx, fn: &out}
	for _, param := range fn.Params {
		local := l.newLocal(param.Name, param.Type)
		out.Params = append(out.Params, Param{Name: param.Name, Type: param.Type, Local: local})
	}

	if fn.Body == nil {
		return out
	}

	l.pushScope()
	for _, param := range out.Params {
		l.bind(param.Name, param.Local)
	}

	entry := l.newBlock("entry")
	l.cur = entry

	value, valueType := l.lowerBlockInline(fn.Body)
	if !l.terminated() {
		if fn.ReturnType.Head() == "Unit" || valueType.Head() == "" {
			l.setTerm(Terminator{Kind: TermReturn})
		} else {
			v := value
			l.setTerm(Terminator{Kind: TermReturn, Value: &v})
		}
	}
	l.popScope()
	return out
}

type funcLowerer struct {
	ctx    *lowerCtx
	fn     *Func
	scopes []map[string]LocalID
	cur    BlockID
	labels map[string]int
}

func (l *funcLowerer) pushScope() {
	l.scopes = append(l.scopes, make(map[string]LocalID))
}

func (l *funcLowerer) popScope() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

func (l *funcLowerer) bind(name string, local LocalID) {
	l.scopes[len(l.scopes)-1][name] = local
}

func (l *funcLowerer) lookup(name string) (LocalID, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if local, ok := l.scopes[i][name]; ok {
			return local, true
		}
	}
	return 0, false
}

func (l *funcLowerer) newLocal(name string, ty ast.TypeRef) LocalID {
	id := LocalID(len(l.fn.Locals)) // #nosec G115 -- bounded by function size
	l.fn.Locals = append(l.fn.Locals, Local{Name: name, Type: ty})
	return id
}

func (l *funcLowerer) newTemp(ty ast.TypeRef) LocalID {
	return l.newLocal("t"+strconv.Itoa(len(l.fn.Locals)), ty)
}

func (l *funcLowerer) newBlock(hint string) BlockID {
	if l.labels == nil {
		l.labels = make(map[string]int)
	}
	label := hint
	if n := l.labels[hint]; n > 0 {
		label = hint + strconv.Itoa(n)
	}
	l.labels[hint]++

	id := BlockID(len(l.fn.Blocks)) // #nosec G115
	l.fn.Blocks = append(l.fn.Blocks, Block{Label: label})
	return id
}

func (l *funcLowerer) emit(instr Instr) {
	block := &l.fn.Blocks[l.cur]
	if block.Term.Kind != TermNone {
		return // unreachable code after an explicit return
	}
	block.Instrs = append(block.Instrs, instr)
}

func (l *funcLowerer) setTerm(term Terminator) {
	block := &l.fn.Blocks[l.cur]
	if block.Term.Kind != TermNone {
		return
	}
	block.Term = term
}

func (l *funcLowerer) terminated() bool {
	return l.fn.Blocks[l.cur].Term.Kind != TermNone
}

// assign evaluates an rvalue into a fresh temporary.
func (l *funcLowerer) assignTemp(rv Rvalue, ty ast.TypeRef) Operand {
	temp := l.newTemp(ty)
	l.emit(Instr{Kind: InstrAssign, Dst: temp, Rvalue: rv})
	return UseLocal(temp)
}

// lowerBlockInline lowers a block's statements into the current block
// without opening a new lexical MIR region; the value of the trailing
// expression (if any) is returned.
func (l *funcLowerer) lowerBlockInline(block *ast.Block) (Operand, ast.TypeRef) {
	for _, stmt := range block.Stmts {
		l.lowerStmt(stmt)
		if l.terminated() {
			return ConstUnit(), types.Unit
		}
	}
	if block.Tail != nil {
		return l.lowerExpr(block.Tail)
	}
	return ConstUnit(), types.Unit
}

// lowerBlockScoped wraps lowerBlockInline in a fresh variable scope.
func (l *funcLowerer) lowerBlockScoped(block *ast.Block) (Operand, ast.TypeRef) {
	l.pushScope()
	defer l.popScope()
	return l.lowerBlockInline(block)
}

func (l *funcLowerer) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		value, valueType := l.lowerExpr(s.Value)
		declared := valueType
		if s.Type != nil {
			declared = *s.Type
		}
		local := l.newLocal(s.Name, declared)
		l.emit(Instr{Kind: InstrAssign, Dst: local, Rvalue: Rvalue{Kind: RvUse, Operand: value}})
		l.bind(s.Name, local)

	case *ast.AssignStmt:
		value, _ := l.lowerExpr(s.Value)
		if local, ok := l.lookup(s.Name); ok {
			l.emit(Instr{Kind: InstrAssign, Dst: local, Rvalue: Rvalue{Kind: RvUse, Operand: value}})
		}

	case *ast.ReturnStmt:
		if s.Value == nil {
			l.setTerm(Terminator{Kind: TermReturn})
			return
		}
		value, _ := l.lowerExpr(s.Value)
		l.setTerm(Terminator{Kind: TermReturn, Value: &value})

	case *ast.ExprStmt:
		operand, _ := l.lowerExpr(s.X)
		_ = operand
	}
}

func (l *funcLowerer) lowerExpr(expr ast.Expr) (Operand, ast.TypeRef) {
	switch e := expr.(type) {
	case *ast.IntLitExpr:
		value, _ := strconv.ParseInt(e.Value, 10, 64)
		return ConstInt(value), types.Int

	case *ast.TextLitExpr:
		return ConstText(e.Value), types.Text

	case *ast.BoolLitExpr:
		return ConstBool(e.Value), types.Bool

	case *ast.PathExpr:
		return l.lowerPath(e)

	case *ast.CallExpr:
		return l.lowerCall(e)

	case *ast.RecordLitExpr:
		return l.lowerRecordLit(e)

	case *ast.BinaryExpr:
		left, _ := l.lowerExpr(e.Left)
		right, _ := l.lowerExpr(e.Right)
		resultType := types.Int
		if e.Op != ast.BinAdd {
			resultType = types.Bool
		}
		rv := Rvalue{Kind: RvBinary, Op: e.Op, Left: left, Right: right}
		return l.assignTemp(rv, resultType), resultType

	case *ast.IfExpr:
		return l.lowerIf(e)

	case *ast.WhileExpr:
		return l.lowerWhile(e)

	case *ast.MatchExpr:
		return l.lowerMatch(e)
	}
	return ConstUnit(), types.Unit
}

func (l *funcLowerer) lowerPath(e *ast.PathExpr) (Operand, ast.TypeRef) {
	root := e.Segments[0]
	if local, ok := l.lookup(root); ok {
		operand := UseLocal(local)
		currentType := l.fn.Locals[local].Type
		for _, member := range e.Segments[1:] {
			operand, currentType = l.lowerProjection(operand, currentType, member)
		}
		return operand, currentType
	}

	// Bare or qualified unit variant.
	variant := e.Segments[len(e.Segments)-1]
	enumName := ""
	if len(e.Segments) >= 2 {
		enumName = e.Segments[len(e.Segments)-2]
	} else {
		enumName = l.enumOfVariant(variant)
	}
	if enum, ok := l.ctx.enums[enumName]; ok {
		tag := variantTag(enum, variant)
		rv := Rvalue{Kind: RvEnumNew, EnumName: enumName, Variant: variant, Tag: tag}
		resultType := ast.TypeRef{Name: enumName}
		return l.assignTemp(rv, resultType), resultType
	}
	return ConstUnit(), types.Unit
}

// lowerProjection loads one member: a record field by layout index, or a
// container payload word.
func (l *funcLowerer) lowerProjection(base Operand, baseType ast.TypeRef, member string) (Operand, ast.TypeRef) {
	if record, ok := l.ctx.records[baseType.Head()]; ok {
		for index, field := range record.Fields {
			if field.Name == member {
				fieldType := types.Substitute(field.Type, record.Generics, baseType.Args)
				rv := Rvalue{Kind: RvFieldLoad, Operand: base, FieldIndex: index}
				return l.assignTemp(rv, fieldType), fieldType
			}
		}
	}

	// Container projections reduce to the payload word.
	if payloadType, ok := types.ProjectMember(baseType, member, nil); ok {
		rv := Rvalue{Kind: RvEnumPayload, Operand: base, PayloadType: payloadType}
		return l.assignTemp(rv, payloadType), payloadType
	}
	return base, baseType
}

func (l *funcLowerer) enumOfVariant(variant string) string {
	// Deterministic scan in declaration order; sema guarantees the name
	// is unambiguous by now.
	for i := range l.ctx.program.Enums {
		enum := &l.ctx.program.Enums[i]
		for _, v := range enum.Variants {
			if v.Name == variant {
				return enum.Name
			}
		}
	}
	return ""
}

func variantTag(enum *hir.Enum, variant string) int64 {
	for i, v := range enum.Variants {
		if v.Name == variant {
			return int64(i)
		}
	}
	return 0
}

func (l *funcLowerer) lowerCall(e *ast.CallExpr) (Operand, ast.TypeRef) {
	// Enum constructors: Variant(x), Enum::Variant(x).
	variant := e.Target[len(e.Target)-1]
	enumName := ""
	if len(e.Target) >= 2 {
		enumName = e.Target[len(e.Target)-2]
	}
	if enumName == "" {
		if _, isFn := l.ctx.returns[e.Target[0]]; !isFn && len(e.Target) == 1 {
			enumName = l.enumOfVariant(variant)
		}
	}
	if enum, ok := l.ctx.enums[enumName]; ok {
		rv := Rvalue{
			Kind:     RvEnumNew,
			EnumName: enumName,
			Variant:  variant,
			Tag:      variantTag(enum, variant),
		}
		if len(e.Args) == 1 {
			payload, _ := l.lowerExpr(e.Args[0])
			rv.Payload = &payload
		}
		resultType := ast.TypeRef{Name: enumName}
		return l.assignTemp(rv, resultType), resultType
	}

	callee := e.Target[0]
	args := make([]Operand, 0, len(e.Args))
	for _, arg := range e.Args {
		operand, _ := l.lowerExpr(arg)
		args = append(args, operand)
	}

	returnType := types.Unit
	if declared, ok := l.ctx.returns[callee]; ok {
		returnType = declared
	}

	rv := Rvalue{Kind: RvCall, Callee: callee, Args: args}
	if returnType.Head() == "Unit" {
		l.emit(Instr{Kind: InstrEval, Rvalue: rv})
		return ConstUnit(), types.Unit
	}
	return l.assignTemp(rv, returnType), returnType
}

func (l *funcLowerer) lowerRecordLit(e *ast.RecordLitExpr) (Operand, ast.TypeRef) {
	record, ok := l.ctx.records[e.Type.Head()]
	if !ok {
		return ConstUnit(), types.Unit
	}

	// Evaluate initializers in written order, then arrange by layout.
	written := make(map[string]Operand, len(e.Fields))
	for _, field := range e.Fields {
		operand, _ := l.lowerExpr(field.Value)
		written[field.Name] = operand
	}

	fields := make([]Operand, 0, len(record.Fields))
	for _, field := range record.Fields {
		fields = append(fields, written[field.Name])
	}

	rv := Rvalue{Kind: RvRecordNew, TypeName: record.Name, Fields: fields}
	resultType := e.Type
	return l.assignTemp(rv, resultType), resultType
}

func (l *funcLowerer) lowerIf(e *ast.IfExpr) (Operand, ast.TypeRef) {
	cond, _ := l.lowerExpr(e.Cond)

	thenB := l.newBlock("then")
	joinB := l.newBlock("join")
	elseB := joinB
	if e.Else != nil {
		elseB = l.newBlock("else")
	}
	l.setTerm(Terminator{Kind: TermIf, Cond: cond, Then: thenB, Else: elseB})

	var result LocalID
	var resultType ast.TypeRef
	haveResult := false
	valueWorthy := func(ty ast.TypeRef) bool {
		head := ty.Head()
		return head != "" && head != "Unit" && head != "Never"
	}

	l.cur = thenB
	thenValue, thenType := l.lowerBlockScoped(e.Then)
	if !l.terminated() {
		if e.Else != nil && valueWorthy(thenType) {
			result = l.newTemp(thenType)
			resultType = thenType
			haveResult = true
			l.emit(Instr{Kind: InstrAssign, Dst: result, Rvalue: Rvalue{Kind: RvUse, Operand: thenValue}})
		}
		l.setTerm(Terminator{Kind: TermGoto, Target: joinB})
	}

	if e.Else != nil {
		l.cur = elseB
		elseValue, elseType := l.lowerBlockScoped(e.Else)
		if !l.terminated() {
			if !haveResult && valueWorthy(elseType) {
				// The then branch diverged; the join's value comes from here.
				result = l.newTemp(elseType)
				resultType = elseType
				haveResult = true
			}
			if haveResult {
				l.emit(Instr{Kind: InstrAssign, Dst: result, Rvalue: Rvalue{Kind: RvUse, Operand: elseValue}})
			}
			l.setTerm(Terminator{Kind: TermGoto, Target: joinB})
		}
	}

	l.cur = joinB
	if haveResult {
		return UseLocal(result), resultType
	}
	return ConstUnit(), types.Unit
}

func (l *funcLowerer) lowerWhile(e *ast.WhileExpr) (Operand, ast.TypeRef) {
	condB := l.newBlock("cond")
	bodyB := l.newBlock("body")
	exitB := l.newBlock("exit")

	l.setTerm(Terminator{Kind: TermGoto, Target: condB})

	l.cur = condB
	cond, _ := l.lowerExpr(e.Cond)
	l.setTerm(Terminator{Kind: TermIf, Cond: cond, Then: bodyB, Else: exitB})

	l.cur = bodyB
	l.lowerBlockScoped(e.Body)
	if !l.terminated() {
		l.setTerm(Terminator{Kind: TermGoto, Target: condB})
	}

	l.cur = exitB
	return ConstUnit(), types.Unit
}

// lowerMatch lowers a match into a linear chain of tag compares, one per
// variant arm, with the wildcard (or a default return) last.
func (l *funcLowerer) lowerMatch(e *ast.MatchExpr) (Operand, ast.TypeRef) {
	scrutinee, scrutineeType := l.lowerExpr(e.Value)
	scrutLocal := l.newTemp(scrutineeType)
	l.emit(Instr{Kind: InstrAssign, Dst: scrutLocal, Rvalue: Rvalue{Kind: RvUse, Operand: scrutinee}})
	scrut := UseLocal(scrutLocal)

	enum := l.ctx.enums[scrutineeType.Head()]
	joinB := l.newBlock("matchjoin")

	var result LocalID
	var resultType ast.TypeRef
	haveResult := false

	for _, arm := range e.Arms {
		armB := l.newBlock("arm")
		nextB := l.newBlock("matchnext")

		switch arm.Pattern.Kind {
		case ast.PatternWildcard:
			l.setTerm(Terminator{Kind: TermGoto, Target: armB})
		case ast.PatternLiteral:
			lit, _ := l.lowerExpr(arm.Pattern.Lit)
			cmp := l.assignTemp(Rvalue{Kind: RvBinary, Op: ast.BinEq, Left: scrut, Right: lit}, types.Bool)
			l.setTerm(Terminator{Kind: TermIf, Cond: cmp, Then: armB, Else: nextB})
		case ast.PatternVariant:
			tag := int64(0)
			if enum != nil {
				tag = variantTag(enum, arm.Pattern.VariantName())
			}
			tagOp := l.assignTemp(Rvalue{Kind: RvEnumTag, Operand: scrut}, types.Int)
			cmp := l.assignTemp(Rvalue{Kind: RvBinary, Op: ast.BinEq, Left: tagOp, Right: ConstInt(tag)}, types.Bool)
			l.setTerm(Terminator{Kind: TermIf, Cond: cmp, Then: armB, Else: nextB})
		}

		l.cur = armB
		l.pushScope()
		if arm.Pattern.Kind == ast.PatternVariant && arm.Pattern.Bind != "" && enum != nil {
			payloadType := l.variantPayloadType(enum, arm.Pattern.VariantName(), scrutineeType)
			binder := l.newLocal(arm.Pattern.Bind, payloadType)
			l.emit(Instr{
				Kind: InstrAssign,
				Dst:  binder,
				Rvalue: Rvalue{Kind: RvEnumPayload, Operand: scrut, PayloadType: payloadType},
			})
			l.bind(arm.Pattern.Bind, binder)
		}

		var armValue Operand
		var armType ast.TypeRef
		if arm.Block != nil {
			armValue, armType = l.lowerBlockInline(arm.Block)
		} else {
			armValue, armType = l.lowerExpr(arm.Expr)
		}
		l.popScope()

		if !haveResult && armType.Head() != "Unit" && armType.Head() != "" && armType.Head() != "Never" {
			resultType = armType
			result = l.newTemp(resultType)
			haveResult = true
		}
		if !l.terminated() {
			if haveResult {
				l.emit(Instr{Kind: InstrAssign, Dst: result, Rvalue: Rvalue{Kind: RvUse, Operand: armValue}})
			}
			l.setTerm(Terminator{Kind: TermGoto, Target: joinB})
		}

		l.cur = nextB
	}

	// Exhaustiveness was proved by the analyzer; the fall-through block is
	// unreachable and returns the default value.
	l.setTerm(Terminator{Kind: TermReturn})

	l.cur = joinB
	if haveResult {
		return UseLocal(result), resultType
	}
	return ConstUnit(), types.Unit
}

func (l *funcLowerer) variantPayloadType(enum *hir.Enum, variant string, scrutineeType ast.TypeRef) ast.TypeRef {
	for _, v := range enum.Variants {
		if v.Name == variant && v.Payload != nil {
			return types.Substitute(*v.Payload, enum.Generics, scrutineeType.Args)
		}
	}
	return types.Int
}
