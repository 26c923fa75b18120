// Package sema implements SCULL's semantic analyzer: function
// registration, variable/array declaration with stack-offset assignment,
// term/expression/relation type-checking, and label/goto validation, run as
// four ordered passes over a parsed ast.Program.
package sema

import (
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/diag"
)

// Analyzer runs the four semantic passes over one program.
type Analyzer struct {
	prog  *ast.Program
	diags *diag.Bag
}

// New returns an analyzer for prog, reporting diagnostics to diags.
func New(prog *ast.Program, diags *diag.Bag) *Analyzer {
	return &Analyzer{prog: prog, diags: diags}
}

// Check runs all four passes in order, returning once any pass leaves
// errors in diags so later passes don't cascade against a broken symbol
// table.
func (a *Analyzer) Check() error {
	a.registerFunctions()
	if err := a.diags.CheckErrors(); err != nil {
		return err
	}

	a.declareVariables()
	if err := a.diags.CheckErrors(); err != nil {
		return err
	}

	a.checkTypes()
	if err := a.diags.CheckErrors(); err != nil {
		return err
	}

	a.checkLabelsAndGotos()
	return a.diags.CheckErrors()
}

// registerFunctions is pass 1: every top-level fn declaration/definition is
// registered by name. A declaration may be repeated verbatim (idempotent),
// a declaration may later be completed by a matching definition, but two
// definitions of the same name, or a redeclaration with a mismatched
// signature, are errors.
func (a *Analyzer) registerFunctions() {
	for i := range a.prog.Instrs {
		fn, ok := a.prog.Instrs[i].(ast.FnInstr)
		if !ok {
			continue
		}

		existing, found := a.prog.Functions.Search(fn.Name)
		if !found {
			fnCopy := fn
			a.prog.Functions.Insert(fn.Name, &fnCopy)
			continue
		}

		if !signaturesMatch(*existing, fn) {
			a.diags.Errorf(fn.Line(), "function %q redeclared with a different signature", fn.Name)
			continue
		}

		switch {
		case existing.Kind == ast.FnDeclared && fn.Kind == ast.FnDefined:
			fnCopy := fn
			a.prog.Functions.Insert(fn.Name, &fnCopy)
		case existing.Kind == ast.FnDeclared && fn.Kind == ast.FnDeclared:
			// Idempotent redeclaration, nothing to do.
		case existing.Kind == ast.FnDefined && fn.Kind == ast.FnDefined:
			a.diags.Errorf(fn.Line(), "function %q already defined", fn.Name)
		}
	}
}

func signaturesMatch(a, b ast.FnInstr) bool {
	if a.Variadic != b.Variadic || len(a.Parameters) != len(b.Parameters) || len(a.ReturnTypes) != len(b.ReturnTypes) {
		return false
	}
	for i := range a.Parameters {
		if a.Parameters[i].Type != b.Parameters[i].Type {
			return false
		}
	}
	for i := range a.ReturnTypes {
		if a.ReturnTypes[i] != b.ReturnTypes[i] {
			return false
		}
	}
	return true
}

// declareVariables is pass 2: global declarations get sequential stack
// offsets starting at 0, and each function body's locals get offsets
// starting just past its parameter list, in source-declaration order.
// Array sizes are constant-folded here; the folded size is stored in
// DimensionSizes on the symbol-table Variable, while the AST node keeps
// only its SizeExpr.
func (a *Analyzer) declareVariables() {
	offset := 0
	for i := range a.prog.Instrs {
		offset = a.declareInstr(a.prog.Instrs[i], a.prog.Globals, offset)
	}

	fnIter := a.prog.Functions.Iterator()
	fnIter(func(_ string, fn *ast.FnInstr) bool {
		if fn.Kind != ast.FnDefined {
			return true
		}
		fnOffset := len(fn.Parameters)
		for idx, param := range fn.Parameters {
			fn.Parameters[idx].StackOffset = idx
			fn.Variables.Variables.Insert(param.Name, &fn.Parameters[idx])
		}
		for _, instr := range fn.Instrs {
			fnOffset = a.declareInstr(instr, fn.Variables, fnOffset)
		}
		return true
	})
}

func (a *Analyzer) declareInstr(instr ast.Instr, scope *ast.FunctionScope, offset int) int {
	switch in := instr.(type) {
	case ast.DeclareInstr:
		return a.declareScalar(in.Var, in.Line(), scope, offset)
	case ast.InitializeInstr:
		return a.declareScalar(in.Var, in.Line(), scope, offset)
	case ast.DeclareArrayInstr:
		return a.declareArray(in.Var, in.SizeExpr, in.Line(), scope, offset)
	case ast.InitializeArrayInstr:
		return a.declareArray(in.Var, in.SizeExpr, in.Line(), scope, offset)
	case ast.IfInstr:
		next := offset
		if in.Instr != nil {
			next = a.declareInstr(in.Instr, scope, next)
		}
		for _, nested := range in.Instrs {
			next = a.declareInstr(nested, scope, next)
		}
		return next
	case ast.LoopInstr:
		next := offset
		if in.Kind == ast.LoopFor {
			next = a.declareScalar(in.Iterator, in.Line(), scope, next)
		}
		for _, nested := range in.Instrs {
			next = a.declareInstr(nested, scope, next)
		}
		return next
	case ast.MatchInstr:
		next := offset
		for _, c := range in.Cases {
			if c.Instr != nil {
				next = a.declareInstr(c.Instr, scope, next)
			}
			for _, nested := range c.Instrs {
				next = a.declareInstr(nested, scope, next)
			}
		}
		return next
	default:
		return offset
	}
}

func (a *Analyzer) declareScalar(v ast.Variable, line uint, scope *ast.FunctionScope, offset int) int {
	if _, found := scope.Variables.Search(v.Name); found {
		return offset // first-declaration-wins: later redeclarations are ignored, not errors
	}
	v.Line = line
	v.StackOffset = offset
	scope.Variables.Insert(v.Name, &v)
	return offset + v.Type.Size()
}

func (a *Analyzer) declareArray(v ast.Variable, sizeExpr ast.Expr, line uint, scope *ast.FunctionScope, offset int) int {
	if _, found := scope.Variables.Search(v.Name); found {
		return offset
	}
	size, ok := foldConstExpr(sizeExpr, a.diags)
	if !ok {
		return offset
	}
	v.Line = line
	v.StackOffset = offset
	v.IsArray = true
	v.DimensionSizes = []int{size}
	scope.Variables.Insert(v.Name, &v)
	return offset + size*v.Type.Size()
}

// lookup finds a variable by name, preferring the local scope over global.
func lookup(name string, local, global *ast.FunctionScope) (*ast.Variable, bool) {
	if local != nil {
		if v, ok := local.Variables.Search(name); ok {
			return v, true
		}
	}
	return global.Variables.Search(name)
}
