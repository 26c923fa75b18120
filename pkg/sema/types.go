package sema

import (
	"scull-lang/sculc/pkg/ast"
)

// checkTypes is pass 3: every variable reference is resolved and every
// assignment, relation, and call is checked for type compatibility. A
// TypePointer variable accepts a value of any type on either side of an
// assignment or comparison, mirroring the original analyzer's escape hatch
// for untyped pointer arithmetic.
func (a *Analyzer) checkTypes() {
	a.checkInstrs(a.prog.Instrs, nil)

	it := a.prog.Functions.Iterator()
	it(func(_ string, fn *ast.FnInstr) bool {
		if fn.Kind == ast.FnDefined {
			a.checkInstrs(fn.Instrs, fn.Variables)
		}
		return true
	})
}

func (a *Analyzer) checkInstrs(instrs []ast.Instr, local *ast.FunctionScope) {
	for _, instr := range instrs {
		a.checkInstr(instr, local)
	}
}

func (a *Analyzer) checkInstr(instr ast.Instr, local *ast.FunctionScope) {
	switch in := instr.(type) {
	case ast.InitializeInstr:
		exprType := a.checkExpr(in.Expr, local)
		a.checkAssignable(in.Var.Type, exprType, in.Line())

	case ast.InitializeArrayInstr:
		for _, elem := range in.Literal.Elements {
			t := a.checkExpr(elem, local)
			a.checkAssignable(in.Var.Type, t, in.Line())
		}

	case ast.AssignInstr:
		v, ok := lookup(in.Var.Name, local, a.prog.Globals)
		if !ok {
			a.diags.Errorf(in.Line(), "assignment to undeclared variable %q", in.Var.Name)
			return
		}
		exprType := a.checkExpr(in.Expr, local)
		a.checkAssignable(v.Type, exprType, in.Line())

	case ast.AssignToArraySubscriptInstr:
		v, ok := lookup(in.Var.Name, local, a.prog.Globals)
		if !ok {
			a.diags.Errorf(in.Line(), "assignment to undeclared array %q", in.Var.Name)
			return
		}
		if !v.IsArray {
			a.diags.Errorf(in.Line(), "%q is not an array", in.Var.Name)
		}
		a.checkExpr(in.IndexExpr, local)
		exprType := a.checkExpr(in.Expr, local)
		a.checkAssignable(v.Type, exprType, in.Line())

	case ast.IfInstr:
		a.checkRel(in.Rel, local)
		if in.Instr != nil {
			a.checkInstr(in.Instr, local)
		}
		a.checkInstrs(in.Instrs, local)

	case ast.LoopInstr:
		switch in.Kind {
		case ast.LoopUnconditional:
		case ast.LoopFor:
			a.checkExpr(in.RangeStart, local)
			a.checkExpr(in.RangeEnd, local)
		default:
			a.checkRel(in.BreakCondition, local)
		}
		a.checkInstrs(in.Instrs, local)

	case ast.MatchInstr:
		exprType := a.checkExpr(in.Expr, local)
		for _, c := range in.Cases {
			switch c.Kind {
			case ast.MatchCaseValues:
				for _, v := range c.Values {
					valType := a.checkExpr(v, local)
					if exprType != ast.TypePointer && valType != ast.TypePointer && valType != exprType {
						a.diags.Errorf(in.Line(), "match case value of type %s does not match matched expression of type %s", valType, exprType)
					}
				}
			case ast.MatchCaseRange:
				for _, bound := range []ast.Expr{c.RangeStart, c.RangeEnd} {
					boundType := a.checkExpr(bound, local)
					if exprType != ast.TypePointer && boundType != ast.TypePointer && boundType != exprType {
						a.diags.Errorf(in.Line(), "match case range bound of type %s does not match matched expression of type %s", boundType, exprType)
					}
				}
			}
			if c.Instr != nil {
				a.checkInstr(c.Instr, local)
			}
			a.checkInstrs(c.Instrs, local)
		}

	case ast.FnCallInstr:
		a.checkCall(in.Name, in.Params, in.Line(), local)

	case ast.ReturnInstr:
		for _, v := range in.Values {
			a.checkExpr(v, local)
		}
	}
}

// checkAssignable reports a type mismatch unless either side is a pointer
// (the untyped-pointer escape hatch).
func (a *Analyzer) checkAssignable(target, value ast.Type, line uint) {
	if target == ast.TypePointer || value == ast.TypePointer {
		return
	}
	if target != value {
		a.diags.Errorf(line, "cannot assign value of type %s to variable of type %s", value, target)
	}
}

func (a *Analyzer) checkRel(rel ast.Rel, local *ast.FunctionScope) {
	lhs := a.checkTerm(rel.Lhs, rel.Line, local)
	rhs := a.checkTerm(rel.Rhs, rel.Line, local)
	if lhs != ast.TypePointer && rhs != ast.TypePointer && lhs != rhs {
		a.diags.Errorf(rel.Line, "cannot compare value of type %s with value of type %s", lhs, rhs)
	}
}

func (a *Analyzer) checkExpr(expr ast.Expr, local *ast.FunctionScope) ast.Type {
	switch e := expr.(type) {
	case ast.TermExpr:
		return a.checkTerm(e.Term, e.Line(), local)
	case ast.BinaryExpr:
		left := a.checkExpr(e.Left, local)
		right := a.checkExpr(e.Right, local)
		if left != ast.TypePointer && right != ast.TypePointer && left != right {
			a.diags.Errorf(e.Line(), "mismatched operand types %s and %s in expression", left, right)
		}
		return left
	default:
		return ast.TypeVoid
	}
}

func (a *Analyzer) checkTerm(term ast.Term, line uint, local *ast.FunctionScope) ast.Type {
	switch t := term.(type) {
	case ast.IntTerm:
		return ast.TypeInt
	case ast.CharTerm:
		return ast.TypeChar
	case ast.IdentifierTerm:
		v, ok := lookup(t.Var.Name, local, a.prog.Globals)
		if !ok {
			a.diags.Errorf(line, "use of undeclared variable %q", t.Var.Name)
			return ast.TypeVoid
		}
		return v.Type
	case ast.PointerTerm:
		if _, ok := lookup(t.Name, local, a.prog.Globals); !ok {
			a.diags.Errorf(line, "use of undeclared variable %q", t.Name)
		}
		return ast.TypePointer
	case ast.AddrOfTerm:
		if _, ok := lookup(t.Name, local, a.prog.Globals); !ok {
			a.diags.Errorf(line, "use of undeclared variable %q", t.Name)
		}
		return ast.TypePointer
	case ast.DerefTerm:
		a.checkTerm(t.Operand, line, local)
		return ast.TypePointer
	case ast.ArrayAccessTerm:
		v, ok := lookup(t.Array.Name, local, a.prog.Globals)
		if !ok {
			a.diags.Errorf(line, "use of undeclared array %q", t.Array.Name)
			return ast.TypeVoid
		}
		if !v.IsArray {
			a.diags.Errorf(line, "%q is not an array", t.Array.Name)
		}
		a.checkExpr(t.Index, local)
		return v.Type
	case ast.ArrayLiteralTerm:
		for _, elem := range t.Elements {
			a.checkExpr(elem, local)
		}
		return ast.TypeVoid
	case ast.FnCallTerm:
		return a.checkCall(t.Name, t.Params, line, local)
	default:
		return ast.TypeVoid
	}
}

func (a *Analyzer) checkCall(name string, params []ast.Expr, line uint, local *ast.FunctionScope) ast.Type {
	fn, ok := a.prog.Functions.Search(name)
	if !ok {
		a.diags.Errorf(line, "call to undeclared function %q", name)
		for _, p := range params {
			a.checkExpr(p, local)
		}
		return ast.TypeVoid
	}

	if !fn.Variadic && len(params) != len(fn.Parameters) {
		a.diags.Errorf(line, "function %q expects %d argument(s), got %d", name, len(fn.Parameters), len(params))
	}

	for i, p := range params {
		argType := a.checkExpr(p, local)
		if i < len(fn.Parameters) {
			a.checkAssignable(fn.Parameters[i].Type, argType, line)
		}
	}

	if len(fn.ReturnTypes) > 0 {
		return fn.ReturnTypes[0]
	}
	return ast.TypeVoid
}
