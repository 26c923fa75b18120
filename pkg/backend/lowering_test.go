package backend

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scull-lang/sculc/pkg/arena"
	"scull-lang/sculc/pkg/diag"
	"scull-lang/sculc/pkg/lexer"
	"scull-lang/sculc/pkg/parser"
	"scull-lang/sculc/pkg/scullvm"
	"scull-lang/sculc/pkg/sema"
)

func lowerSource(t *testing.T, src string) scullvm.Program {
	t.Helper()
	diags := diag.NewBag(&bytes.Buffer{})
	toks, err := lexer.New(src, nil, diags).Lex()
	require.NoError(t, err)
	prog := parser.New(toks, diags, arena.New(1<<16)).Parse()
	require.NoError(t, sema.New(prog, diags).Check())

	l := &lowerer{}
	return l.lowerProgram(prog)
}

func TestLowerProgramSplitsFunctionsFromInit(t *testing.T) {
	out := lowerSource(t, "int x = 1\nfn f(): int {\nreturn 1\n}")
	require.Len(t, out.Functions, 1)
	assert.Equal(t, "f", out.Functions[0].Name)
	assert.Equal(t, "$init", out.Init.Name)
	assert.NotEmpty(t, out.Init.Instrs)
}

func TestLowerReturnEmitsReturnOp(t *testing.T) {
	out := lowerSource(t, "fn f(): int {\nreturn 1\n}")
	last := out.Functions[0].Instrs[len(out.Functions[0].Instrs)-1]
	ret, ok := last.(scullvm.ReturnOp)
	require.True(t, ok)
	assert.Equal(t, 1, ret.NumValues)
}

func TestLowerIfEmitsGuardAndLabels(t *testing.T) {
	out := lowerSource(t, "int x\nif 1 == 1 then x = 2")
	foundIfGoto, foundLabel := false, false
	for _, instr := range out.Init.Instrs {
		switch instr.(type) {
		case scullvm.IfGotoOp:
			foundIfGoto = true
		case scullvm.LabelOp:
			foundLabel = true
		}
	}
	assert.True(t, foundIfGoto)
	assert.True(t, foundLabel)
}

func TestLowerWhileLoopEmitsBackEdge(t *testing.T) {
	out := lowerSource(t, "int x\nfn f() {\nwhile 1 == 1 {\nx = 1\n}\n}")
	foundGotoTop := false
	for _, instr := range out.Functions[0].Instrs {
		if g, ok := instr.(scullvm.GotoOp); ok && g.Target != "" {
			foundGotoTop = true
		}
	}
	assert.True(t, foundGotoTop)
}

func TestLowerBreakTargetsEnclosingLoopOnly(t *testing.T) {
	out := lowerSource(t, "fn f() {\nloop {\nloop {\nbreak\n}\nbreak\n}\n}")
	var breakTargets []string
	for _, instr := range out.Functions[0].Instrs {
		if g, ok := instr.(scullvm.GotoOp); ok {
			for _, l := range out.Functions[0].Instrs {
				if lbl, ok := l.(scullvm.LabelOp); ok && lbl.Name == g.Target {
					breakTargets = append(breakTargets, g.Target)
				}
			}
		}
	}
	assert.NotEmpty(t, breakTargets)
	for _, target := range breakTargets {
		found := false
		for _, instr := range out.Functions[0].Instrs {
			if lbl, ok := instr.(scullvm.LabelOp); ok && lbl.Name == target {
				found = true
			}
		}
		assert.True(t, found, "goto target %q must resolve to an emitted label", target)
	}

	// Gotos in order: inner break, inner back edge, outer break, outer back
	// edge. The inner break must leave only the inner loop, whose exit label
	// precedes the outer break; the outer break targets the function's last
	// label, the outer loop's exit.
	instrs := out.Functions[0].Instrs
	var gotos []string
	labelAt := map[string]int{}
	for i, instr := range instrs {
		switch in := instr.(type) {
		case scullvm.GotoOp:
			gotos = append(gotos, in.Target)
		case scullvm.LabelOp:
			labelAt[in.Name] = i
		}
	}
	require.Len(t, gotos, 4)
	innerBreak, outerBreak := gotos[0], gotos[2]
	assert.NotEqual(t, innerBreak, outerBreak)
	assert.Less(t, labelAt[innerBreak], labelAt[outerBreak])
	assert.Equal(t, len(instrs)-1, labelAt[outerBreak])
}

func TestLowerForLoopEmitsRangeGuardAndIncrement(t *testing.T) {
	out := lowerSource(t, "int x\nfn f() {\nfor i in 0...9 {\nx = i\n}\n}")
	var foundGt, foundAdd bool
	for _, instr := range out.Functions[0].Instrs {
		if a, ok := instr.(scullvm.ArithmeticOp); ok {
			switch a.Operation {
			case scullvm.Gt:
				foundGt = true
			case scullvm.Add:
				foundAdd = true
			}
		}
	}
	assert.True(t, foundGt, "for loop must emit a range-end comparison")
	assert.True(t, foundAdd, "for loop must emit an iterator increment")
}

func TestLowerMatchFallsThroughToDefault(t *testing.T) {
	out := lowerSource(t, "int x\nint y\nfn f() {\nmatch x {\n1, 2: y = 1\n_: y = 2\n}\n}")
	var gotoCount, labelCount int
	for _, instr := range out.Functions[0].Instrs {
		switch instr.(type) {
		case scullvm.GotoOp:
			gotoCount++
		case scullvm.LabelOp:
			labelCount++
		}
	}
	assert.Greater(t, gotoCount, 0)
	assert.Greater(t, labelCount, 0)

	// The values case jumps on mismatch to the label that opens the default
	// body (push constant 2, pop y), which runs last, right before the
	// match's end label.
	instrs := out.Functions[0].Instrs
	n := len(instrs)
	require.GreaterOrEqual(t, n, 4)
	next, ok := instrs[n-4].(scullvm.LabelOp)
	require.True(t, ok)
	assert.Contains(t, instrs, scullvm.GotoOp{Target: next.Name})
	assert.Equal(t, scullvm.MemoryOp{Operation: scullvm.Push, Segment: scullvm.Constant, Offset: 2}, instrs[n-3])
	_, endIsLabel := instrs[n-1].(scullvm.LabelOp)
	assert.True(t, endIsLabel)
}

func TestLowerFunctionCallEmitsCallOp(t *testing.T) {
	out := lowerSource(t, "fn f(int a): int {\nreturn a\n}\nf(5)")
	found := false
	for _, instr := range out.Init.Instrs {
		if c, ok := instr.(scullvm.CallOp); ok {
			assert.Equal(t, "f", c.Name)
			assert.Equal(t, 1, c.NumArgs)
			found = true
		}
	}
	assert.True(t, found)
}
