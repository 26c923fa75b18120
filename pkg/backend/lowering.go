package backend

import (
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/container"
	"scull-lang/sculc/pkg/scullvm"
)

// loopLabels is the pair of jump targets a nested break/continue resolves
// against: continueLabel leads to the loop's next condition check (for a
// for loop, through the iterator increment first; for an unconditional
// loop, straight back to the top of the body), breakLabel exits past it
// entirely.
type loopLabels struct {
	continueLabel string
	breakLabel    string
}

// lowerer walks a checked ast.Program and produces its scullvm.Program
// lowering, dispatching on node kind the way the teacher's own vm
// CodeGenerator dispatches on Statement kind. globals and locals are the
// same symbol tables the semantic analyzer's declareVariables pass
// populated with resolved stack offsets; lowering consults them by name
// instead of re-deriving offsets from the tree.
type lowerer struct {
	instrs  []scullvm.Instruction
	labelN  int
	loops   container.Stack[loopLabels]
	globals *ast.FunctionScope
	locals  *ast.FunctionScope
}

// resolve looks up name the same way sema.lookup does: locals first, then
// globals, returning the Variable sema assigned a stack offset to and the
// memory segment that offset lives in.
func (l *lowerer) resolve(name string) (ast.Variable, scullvm.SegmentType) {
	if l.locals != nil {
		if v, ok := l.locals.Variables.Search(name); ok {
			return *v, scullvm.Local
		}
	}
	if l.globals != nil {
		if v, ok := l.globals.Variables.Search(name); ok {
			return *v, scullvm.Global
		}
	}
	return ast.Variable{}, scullvm.Local
}

func (l *lowerer) emit(i scullvm.Instruction) {
	l.instrs = append(l.instrs, i)
}

func (l *lowerer) freshLabel(prefix string) string {
	l.labelN++
	return prefix + "$" + itoa(l.labelN)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (l *lowerer) lowerProgram(prog *ast.Program) scullvm.Program {
	out := scullvm.Program{}

	initLowerer := &lowerer{globals: prog.Globals}
	for _, instr := range prog.Instrs {
		if fn, ok := instr.(ast.FnInstr); ok {
			if fn.Kind == ast.FnDefined {
				out.Functions = append(out.Functions, lowerFunction(fn, prog.Globals))
			}
			continue
		}
		initLowerer.lowerInstr(instr)
	}
	out.Init = scullvm.Function{Name: "$init", Instrs: initLowerer.instrs}

	return out
}

func lowerFunction(fn ast.FnInstr, globals *ast.FunctionScope) scullvm.Function {
	l := &lowerer{globals: globals, locals: fn.Variables}
	for _, instr := range fn.Instrs {
		l.lowerInstr(instr)
	}
	locals := len(fn.Parameters)
	if fn.Variables != nil {
		fn.Variables.Variables.Iterator()(func(_ string, v *ast.Variable) bool {
			end := v.StackOffset + 1
			if v.IsArray && len(v.DimensionSizes) > 0 {
				end = v.StackOffset + v.DimensionSizes[0]
			}
			if end > locals {
				locals = end
			}
			return true
		})
	}
	return scullvm.Function{Name: fn.Name, Locals: locals, Instrs: l.instrs}
}

func (l *lowerer) lowerInstr(instr ast.Instr) {
	switch in := instr.(type) {
	case ast.DeclareInstr:
		// No code generated: the stack slot is reserved by the symbol
		// table, not initialized.

	case ast.InitializeInstr:
		l.lowerExpr(in.Expr)
		v, seg := l.resolve(in.Var.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Pop, Segment: seg, Offset: uint32(v.StackOffset)})

	case ast.DeclareArrayInstr:
		// As above: space is reserved, no code emitted.

	case ast.InitializeArrayInstr:
		v, seg := l.resolve(in.Var.Name)
		for i, elem := range in.Literal.Elements {
			l.lowerExpr(elem)
			l.emit(scullvm.MemoryOp{Operation: scullvm.Pop, Segment: seg, Offset: uint32(v.StackOffset + i)})
		}

	case ast.AssignInstr:
		l.lowerExpr(in.Expr)
		v, seg := l.resolve(in.Var.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Pop, Segment: seg, Offset: uint32(v.StackOffset)})

	case ast.AssignToArraySubscriptInstr:
		l.lowerExpr(in.Expr)
		v, seg := l.resolve(in.Var.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Pop, Segment: seg, Offset: uint32(v.StackOffset)})

	case ast.IfInstr:
		l.lowerRel(in.Rel)
		end := l.freshLabel("if_end")
		notTaken := l.freshLabel("if_skip")
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Constant, Offset: 0})
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Eq})
		l.emit(scullvm.IfGotoOp{Target: notTaken})
		if in.Instr != nil {
			l.lowerInstr(in.Instr)
		}
		for _, nested := range in.Instrs {
			l.lowerInstr(nested)
		}
		l.emit(scullvm.GotoOp{Target: end})
		l.emit(scullvm.LabelOp{Name: notTaken})
		l.emit(scullvm.LabelOp{Name: end})

	case ast.LoopInstr:
		l.lowerLoop(in)

	case ast.MatchInstr:
		l.lowerMatch(in)

	case ast.LoopBreakInstr:
		if top, ok := l.loops.Top(); ok {
			l.emit(scullvm.GotoOp{Target: top.breakLabel})
		}

	case ast.LoopContinueInstr:
		if top, ok := l.loops.Top(); ok {
			l.emit(scullvm.GotoOp{Target: top.continueLabel})
		}

	case ast.GotoInstr:
		l.emit(scullvm.GotoOp{Target: in.Label})

	case ast.LabelInstr:
		l.emit(scullvm.LabelOp{Name: in.Label})

	case ast.ReturnInstr:
		for _, v := range in.Values {
			l.lowerExpr(v)
		}
		l.emit(scullvm.ReturnOp{NumValues: len(in.Values)})

	case ast.FnCallInstr:
		for _, p := range in.Params {
			l.lowerExpr(p)
		}
		l.emit(scullvm.CallOp{Name: in.Name, NumArgs: len(in.Params)})

	case ast.FnInstr:
		// Nested fn nodes only occur at top level; handled by lowerProgram.
	}
}

func (l *lowerer) lowerLoop(in ast.LoopInstr) {
	top := l.freshLabel("loop_top")
	bottom := l.freshLabel("loop_bottom")

	switch in.Kind {
	case ast.LoopWhile:
		l.loops.Push(loopLabels{continueLabel: top, breakLabel: bottom})
		l.emit(scullvm.LabelOp{Name: top})
		l.lowerRel(in.BreakCondition)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Constant, Offset: 0})
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Eq})
		l.emit(scullvm.IfGotoOp{Target: bottom})
		for _, nested := range in.Instrs {
			l.lowerInstr(nested)
		}
		l.emit(scullvm.GotoOp{Target: top})
		l.emit(scullvm.LabelOp{Name: bottom})
		l.loops.Pop()

	case ast.LoopDoWhile:
		// continue re-runs the condition test, which lives at the bottom of
		// the body right before the back edge.
		cont := l.freshLabel("loop_cont")
		l.loops.Push(loopLabels{continueLabel: cont, breakLabel: bottom})
		l.emit(scullvm.LabelOp{Name: top})
		for _, nested := range in.Instrs {
			l.lowerInstr(nested)
		}
		l.emit(scullvm.LabelOp{Name: cont})
		l.lowerRel(in.BreakCondition)
		l.emit(scullvm.IfGotoOp{Target: top})
		l.emit(scullvm.LabelOp{Name: bottom})
		l.loops.Pop()

	case ast.LoopFor:
		v, seg := l.resolve(in.Iterator.Name)
		l.lowerExpr(in.RangeStart)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Pop, Segment: seg, Offset: uint32(v.StackOffset)})

		cont := l.freshLabel("loop_cont")
		l.loops.Push(loopLabels{continueLabel: cont, breakLabel: bottom})
		l.emit(scullvm.LabelOp{Name: top})
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: seg, Offset: uint32(v.StackOffset)})
		l.lowerExpr(in.RangeEnd)
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Gt})
		l.emit(scullvm.IfGotoOp{Target: bottom})
		for _, nested := range in.Instrs {
			l.lowerInstr(nested)
		}
		l.emit(scullvm.LabelOp{Name: cont})
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: seg, Offset: uint32(v.StackOffset)})
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Constant, Offset: 1})
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Add})
		l.emit(scullvm.MemoryOp{Operation: scullvm.Pop, Segment: seg, Offset: uint32(v.StackOffset)})
		l.emit(scullvm.GotoOp{Target: top})
		l.emit(scullvm.LabelOp{Name: bottom})
		l.loops.Pop()

	default: // LoopUnconditional, exited only via break
		l.loops.Push(loopLabels{continueLabel: top, breakLabel: bottom})
		l.emit(scullvm.LabelOp{Name: top})
		for _, nested := range in.Instrs {
			l.lowerInstr(nested)
		}
		l.emit(scullvm.GotoOp{Target: top})
		l.emit(scullvm.LabelOp{Name: bottom})
		l.loops.Pop()
	}
}

// lowerMatch lowers each case in order as a guarded comparison falling
// through to the next case's guard on mismatch, and the default case (if
// any) after every other case has been tried.
func (l *lowerer) lowerMatch(in ast.MatchInstr) {
	end := l.freshLabel("match_end")
	var defaultCase *ast.MatchCase

	for i := range in.Cases {
		c := in.Cases[i]
		if c.Kind == ast.MatchCaseDefault {
			defaultCase = &in.Cases[i]
			continue
		}

		next := l.freshLabel("match_next")
		switch c.Kind {
		case ast.MatchCaseValues:
			matched := l.freshLabel("match_case")
			for _, val := range c.Values {
				l.lowerExpr(in.Expr)
				l.lowerExpr(val)
				l.emit(scullvm.ArithmeticOp{Operation: scullvm.Eq})
				l.emit(scullvm.IfGotoOp{Target: matched})
			}
			l.emit(scullvm.GotoOp{Target: next})
			l.emit(scullvm.LabelOp{Name: matched})

		case ast.MatchCaseRange:
			l.lowerExpr(in.Expr)
			l.lowerExpr(c.RangeStart)
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Lt})
			l.emit(scullvm.IfGotoOp{Target: next})
			l.lowerExpr(in.Expr)
			l.lowerExpr(c.RangeEnd)
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Gt})
			l.emit(scullvm.IfGotoOp{Target: next})
		}

		l.lowerMatchCaseBody(c)
		l.emit(scullvm.GotoOp{Target: end})
		l.emit(scullvm.LabelOp{Name: next})
	}

	if defaultCase != nil {
		l.lowerMatchCaseBody(*defaultCase)
	}
	l.emit(scullvm.LabelOp{Name: end})
}

func (l *lowerer) lowerMatchCaseBody(c ast.MatchCase) {
	if c.Instr != nil {
		l.lowerInstr(c.Instr)
	}
	for _, nested := range c.Instrs {
		l.lowerInstr(nested)
	}
}

func (l *lowerer) lowerRel(rel ast.Rel) {
	l.lowerTerm(rel.Lhs)
	l.lowerTerm(rel.Rhs)
	switch rel.Kind {
	case ast.RelIsEqual:
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Eq})
	case ast.RelNotEqual:
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Ne})
	case ast.RelLessThan:
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Lt})
	case ast.RelLessThanOrEqual:
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Le})
	case ast.RelGreaterThan:
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Gt})
	case ast.RelGreaterThanOrEqual:
		l.emit(scullvm.ArithmeticOp{Operation: scullvm.Ge})
	}
}

func (l *lowerer) lowerExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case ast.TermExpr:
		l.lowerTerm(e.Term)
	case ast.BinaryExpr:
		l.lowerExpr(e.Left)
		l.lowerExpr(e.Right)
		switch e.Op {
		case ast.OpAdd:
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Add})
		case ast.OpSubtract:
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Sub})
		case ast.OpMultiply:
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Mul})
		case ast.OpDivide:
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Div})
		case ast.OpModulo:
			l.emit(scullvm.ArithmeticOp{Operation: scullvm.Mod})
		}
	}
}

func (l *lowerer) lowerTerm(term ast.Term) {
	switch t := term.(type) {
	case ast.IntTerm:
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Constant, Offset: uint32(t.Value)})
	case ast.CharTerm:
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Constant, Offset: uint32(t.Value)})
	case ast.IdentifierTerm:
		v, seg := l.resolve(t.Var.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: seg, Offset: uint32(v.StackOffset)})
	case ast.PointerTerm:
		v, _ := l.resolve(t.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Pointer, Offset: uint32(v.StackOffset)})
	case ast.AddrOfTerm:
		v, _ := l.resolve(t.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Pointer, Offset: uint32(v.StackOffset)})
	case ast.DerefTerm:
		l.lowerTerm(t.Operand)
	case ast.ArrayAccessTerm:
		l.lowerExpr(t.Index)
		v, seg := l.resolve(t.Array.Name)
		l.emit(scullvm.MemoryOp{Operation: scullvm.Push, Segment: seg, Offset: uint32(v.StackOffset)})
	case ast.ArrayLiteralTerm:
		for _, e := range t.Elements {
			l.lowerExpr(e)
		}
	case ast.FnCallTerm:
		for _, p := range t.Params {
			l.lowerExpr(p)
		}
		l.emit(scullvm.CallOp{Name: t.Name, NumArgs: len(t.Params)})
	}
}
