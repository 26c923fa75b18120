package sema

import (
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/diag"
)

// foldConstExpr evaluates an array-size expression at compile time. Only
// integer literals combined with the four arithmetic operators and modulo
// are legal; any identifier, call, or other non-literal term is an error,
// as is division or modulo by zero.
func foldConstExpr(expr ast.Expr, diags *diag.Bag) (int, bool) {
	switch e := expr.(type) {
	case ast.TermExpr:
		lit, ok := e.Term.(ast.IntTerm)
		if !ok {
			diags.Errorf(e.Line(), "array size must be a constant integer expression")
			return 0, false
		}
		return lit.Value, true

	case ast.BinaryExpr:
		left, ok1 := foldConstExpr(e.Left, diags)
		right, ok2 := foldConstExpr(e.Right, diags)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch e.Op {
		case ast.OpAdd:
			return left + right, true
		case ast.OpSubtract:
			return left - right, true
		case ast.OpMultiply:
			return left * right, true
		case ast.OpDivide:
			if right == 0 {
				diags.Errorf(e.Line(), "division by zero in constant array-size expression")
				return 0, false
			}
			return left / right, true
		case ast.OpModulo:
			if right == 0 {
				diags.Errorf(e.Line(), "modulo by zero in constant array-size expression")
				return 0, false
			}
			return left % right, true
		}
	}

	diags.Errorf(expr.Line(), "array size must be a constant integer expression")
	return 0, false
}
