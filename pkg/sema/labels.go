package sema

import "scull-lang/sculc/pkg/ast"

// checkLabelsAndGotos is pass 4: every goto must target a label declared
// somewhere in the same function (or, for top-level gotos, the same
// top-level unit), and no function may declare the same label twice. A
// label nested inside a single-instruction if-then branch is still visible
// at the function's label scope, matching the original analyzer's
// three-pass label/goto/if-nested validation.
func (a *Analyzer) checkLabelsAndGotos() {
	a.checkLabelScope(a.prog.Instrs)

	it := a.prog.Functions.Iterator()
	it(func(_ string, fn *ast.FnInstr) bool {
		if fn.Kind == ast.FnDefined {
			a.checkLabelScope(fn.Instrs)
		}
		return true
	})
}

func (a *Analyzer) checkLabelScope(instrs []ast.Instr) {
	labels := map[string]bool{}
	var gotos []ast.GotoInstr

	var collect func([]ast.Instr)
	collect = func(body []ast.Instr) {
		for _, instr := range body {
			switch in := instr.(type) {
			case ast.LabelInstr:
				if labels[in.Label] {
					a.diags.Errorf(in.Line(), "label %q declared more than once", in.Label)
				}
				labels[in.Label] = true
			case ast.GotoInstr:
				gotos = append(gotos, in)
			case ast.IfInstr:
				if in.Instr != nil {
					collect([]ast.Instr{in.Instr})
				}
				collect(in.Instrs)
			case ast.LoopInstr:
				collect(in.Instrs)
			case ast.MatchInstr:
				for _, c := range in.Cases {
					if c.Instr != nil {
						collect([]ast.Instr{c.Instr})
					}
					collect(c.Instrs)
				}
			}
		}
	}
	collect(instrs)

	for _, g := range gotos {
		if !labels[g.Label] {
			a.diags.Errorf(g.Line(), "goto targets undeclared label %q", g.Label)
		}
	}
}
