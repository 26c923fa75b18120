package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scull-lang/sculc/pkg/arena"
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/diag"
	"scull-lang/sculc/pkg/lexer"
)

func parseSource(t *testing.T, src string) (*ast.Program, *diag.Bag) {
	t.Helper()
	diags := diag.NewBag(&bytes.Buffer{})
	toks, err := lexer.New(src, nil, diags).Lex()
	require.NoError(t, err)
	prog := New(toks, diags, arena.New(1<<16)).Parse()
	return prog, diags
}

func TestParseScalarDeclareAndInitialize(t *testing.T) {
	prog, diags := parseSource(t, "int x\nint y = 5")
	assert.Equal(t, uint(0), diags.ErrorCount())
	require.Len(t, prog.Instrs, 2)

	decl, ok := prog.Instrs[0].(ast.DeclareInstr)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Var.Name)

	init, ok := prog.Instrs[1].(ast.InitializeInstr)
	require.True(t, ok)
	assert.Equal(t, "y", init.Var.Name)
}

func TestParseCharPointerPromotesToString(t *testing.T) {
	prog, diags := parseSource(t, "char *s")
	assert.Equal(t, uint(0), diags.ErrorCount())
	require.Len(t, prog.Instrs, 1)
	decl := prog.Instrs[0].(ast.DeclareInstr)
	assert.Equal(t, ast.TypeString, decl.Var.Type)
}

func TestParseIntPointerStaysPointer(t *testing.T) {
	prog, diags := parseSource(t, "int *p")
	assert.Equal(t, uint(0), diags.ErrorCount())
	decl := prog.Instrs[0].(ast.DeclareInstr)
	assert.Equal(t, ast.TypePointer, decl.Var.Type)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	prog, diags := parseSource(t, "int x = 1 + 2 * 3")
	assert.Equal(t, uint(0), diags.ErrorCount())
	init := prog.Instrs[0].(ast.InitializeInstr)
	top, ok := init.Expr.(ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, top.Op)
	_, rightIsMul := top.Right.(ast.BinaryExpr)
	assert.True(t, rightIsMul)
}

func TestParseBareFunctionCallStatement(t *testing.T) {
	prog, diags := parseSource(t, "foo(1, 2)")
	assert.Equal(t, uint(0), diags.ErrorCount())
	call, ok := prog.Instrs[0].(ast.FnCallInstr)
	require.True(t, ok)
	assert.Equal(t, "foo", call.Name)
	assert.Len(t, call.Params, 2)
}

func TestParseIfSingleInstr(t *testing.T) {
	prog, diags := parseSource(t, "if x == 1 then y = 2")
	assert.Equal(t, uint(0), diags.ErrorCount())
	ifInstr, ok := prog.Instrs[0].(ast.IfInstr)
	require.True(t, ok)
	assert.Equal(t, ast.RelIsEqual, ifInstr.Rel.Kind)
	assert.NotNil(t, ifInstr.Instr)
	assert.Nil(t, ifInstr.Instrs)
}

func TestParseIfMultiInstr(t *testing.T) {
	prog, diags := parseSource(t, "if x == 1 then { y = 2\nz = 3 }")
	assert.Equal(t, uint(0), diags.ErrorCount())
	ifInstr := prog.Instrs[0].(ast.IfInstr)
	assert.Len(t, ifInstr.Instrs, 2)
}

func TestParseWhileLoop(t *testing.T) {
	prog, diags := parseSource(t, "while x < 10 { x = x + 1 }")
	assert.Equal(t, uint(0), diags.ErrorCount())
	loop, ok := prog.Instrs[0].(ast.LoopInstr)
	require.True(t, ok)
	assert.Equal(t, ast.LoopWhile, loop.Kind)
	assert.Equal(t, 0, loop.LoopID)
}

func TestParseForLoopOverRange(t *testing.T) {
	prog, diags := parseSource(t, "for i in 0...9 { x = i }")
	assert.Equal(t, uint(0), diags.ErrorCount())
	loop, ok := prog.Instrs[0].(ast.LoopInstr)
	require.True(t, ok)
	assert.Equal(t, ast.LoopFor, loop.Kind)
	assert.Equal(t, "i", loop.Iterator.Name)
	require.Len(t, loop.Instrs, 1)
}

func TestParseMatchWithValuesRangeAndDefault(t *testing.T) {
	src := "match x {\n1, 2: y = 1\n3...5: y = 2\n_: y = 3\n}"
	prog, diags := parseSource(t, src)
	assert.Equal(t, uint(0), diags.ErrorCount())
	m, ok := prog.Instrs[0].(ast.MatchInstr)
	require.True(t, ok)
	require.Len(t, m.Cases, 3)

	assert.Equal(t, ast.MatchCaseValues, m.Cases[0].Kind)
	assert.Len(t, m.Cases[0].Values, 2)

	assert.Equal(t, ast.MatchCaseRange, m.Cases[1].Kind)
	assert.NotNil(t, m.Cases[1].RangeStart)
	assert.NotNil(t, m.Cases[1].RangeEnd)

	assert.Equal(t, ast.MatchCaseDefault, m.Cases[2].Kind)
	assert.NotNil(t, m.Cases[2].Instr)
}

func TestParseGotoAndLabel(t *testing.T) {
	prog, diags := parseSource(t, ":top\ngoto top")
	assert.Equal(t, uint(0), diags.ErrorCount())
	label, ok := prog.Instrs[0].(ast.LabelInstr)
	require.True(t, ok)
	assert.Equal(t, "top", label.Label)

	gt, ok := prog.Instrs[1].(ast.GotoInstr)
	require.True(t, ok)
	assert.Equal(t, "top", gt.Label)
}

func TestParseFunctionDefinitionWithReturnTypes(t *testing.T) {
	prog, diags := parseSource(t, "fn add(int a, int b): int {\nreturn a + b\n}")
	assert.Equal(t, uint(0), diags.ErrorCount())
	fn, ok := prog.Instrs[0].(ast.FnInstr)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, ast.FnDefined, fn.Kind)
	assert.Len(t, fn.Parameters, 2)
	assert.Equal(t, []ast.Type{ast.TypeInt}, fn.ReturnTypes)
	assert.Len(t, fn.Instrs, 1)
}

func TestParseFunctionDeclarationOnly(t *testing.T) {
	prog, diags := parseSource(t, "fn add(int a, int b): int")
	assert.Equal(t, uint(0), diags.ErrorCount())
	fn := prog.Instrs[0].(ast.FnInstr)
	assert.Equal(t, ast.FnDeclared, fn.Kind)
}

func TestParseVariadicFunction(t *testing.T) {
	prog, diags := parseSource(t, "fn printf(int fmt, ...)")
	assert.Equal(t, uint(0), diags.ErrorCount())
	fn := prog.Instrs[0].(ast.FnInstr)
	assert.True(t, fn.Variadic)
}

func TestParseSyntaxErrorRecoversToNextInstr(t *testing.T) {
	prog, diags := parseSource(t, ")\nint x")
	assert.Greater(t, diags.ErrorCount(), uint(0))
	require.Len(t, prog.Instrs, 1)
	decl := prog.Instrs[0].(ast.DeclareInstr)
	assert.Equal(t, "x", decl.Var.Name)
}
