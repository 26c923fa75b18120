package sema

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scull-lang/sculc/pkg/arena"
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/diag"
	"scull-lang/sculc/pkg/lexer"
	"scull-lang/sculc/pkg/parser"
)

func check(t *testing.T, src string) (*ast.Program, *diag.Bag) {
	t.Helper()
	diags := diag.NewBag(&bytes.Buffer{})
	toks, err := lexer.New(src, nil, diags).Lex()
	require.NoError(t, err)
	prog := parser.New(toks, diags, arena.New(1<<16)).Parse()
	New(prog, diags).Check()
	return prog, diags
}

func TestDeclareVariablesAssignsSequentialOffsets(t *testing.T) {
	prog, diags := check(t, "int x\nint y")
	assert.Equal(t, uint(0), diags.ErrorCount())

	xv, ok := prog.Globals.Variables.Search("x")
	require.True(t, ok)
	yv, ok := prog.Globals.Variables.Search("y")
	require.True(t, ok)
	assert.Equal(t, 0, xv.StackOffset)
	assert.Equal(t, 4, yv.StackOffset)
}

func TestFirstDeclarationWinsOnRedeclare(t *testing.T) {
	prog, diags := check(t, "int x\nchar x")
	assert.Equal(t, uint(0), diags.ErrorCount())
	xv, ok := prog.Globals.Variables.Search("x")
	require.True(t, ok)
	assert.Equal(t, ast.TypeInt, xv.Type)
}

func TestAssignTypeMismatchReportsError(t *testing.T) {
	_, diags := check(t, "int x\nchar c\nx = c")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestAssignToUndeclaredVariableReportsError(t *testing.T) {
	_, diags := check(t, "x = 5")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestPointerAcceptsAnyType(t *testing.T) {
	_, diags := check(t, "int *p\nchar c\np = c")
	assert.Equal(t, uint(0), diags.ErrorCount())
}

func TestArraySizeConstantFolding(t *testing.T) {
	prog, diags := check(t, "int arr[2 + 3]")
	assert.Equal(t, uint(0), diags.ErrorCount())
	v, ok := prog.Globals.Variables.Search("arr")
	require.True(t, ok)
	require.Equal(t, []int{5}, v.DimensionSizes)
}

func TestArraySizeDivisionByZeroIsError(t *testing.T) {
	_, diags := check(t, "int arr[5 / 0]")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestArraySizeNonLiteralIsError(t *testing.T) {
	_, diags := check(t, "int n\nint arr[n]")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestGotoUndeclaredLabelIsError(t *testing.T) {
	_, diags := check(t, "goto nowhere")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestGotoDeclaredLabelIsValid(t *testing.T) {
	_, diags := check(t, ":top\ngoto top")
	assert.Equal(t, uint(0), diags.ErrorCount())
}

func TestLabelNestedInIfSingleInstrIsVisibleToFunctionScope(t *testing.T) {
	src := "fn f() {\nif 1 == 1 then :top\ngoto top\n}"
	_, diags := check(t, src)
	assert.Equal(t, uint(0), diags.ErrorCount())
}

func TestDuplicateLabelIsError(t *testing.T) {
	_, diags := check(t, ":top\n:top")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestFunctionRedefinitionIsError(t *testing.T) {
	src := "fn f(): int {\nreturn 1\n}\nfn f(): int {\nreturn 2\n}"
	_, diags := check(t, src)
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestFunctionDeclareThenDefineIsValid(t *testing.T) {
	src := "fn f(): int\nfn f(): int {\nreturn 1\n}"
	_, diags := check(t, src)
	assert.Equal(t, uint(0), diags.ErrorCount())
}

func TestForLoopDeclaresIteratorInEnclosingScope(t *testing.T) {
	prog, diags := check(t, "for i in 0...9 { }")
	assert.Equal(t, uint(0), diags.ErrorCount())
	_, ok := prog.Globals.Variables.Search("i")
	require.True(t, ok)
}

func TestMatchCaseValueTypeMismatchIsError(t *testing.T) {
	_, diags := check(t, "int x\nchar c\nmatch x {\nc: x = 1\n}")
	assert.Greater(t, diags.ErrorCount(), uint(0))
}

func TestMatchWithDefaultCaseIsValid(t *testing.T) {
	_, diags := check(t, "int x\nmatch x {\n1, 2: x = 1\n_: x = 2\n}")
	assert.Equal(t, uint(0), diags.ErrorCount())
}

func TestCallWrongArgCountIsError(t *testing.T) {
	src := "fn f(int a): int {\nreturn a\n}\nf(1, 2)"
	_, diags := check(t, src)
	assert.Greater(t, diags.ErrorCount(), uint(0))
}
