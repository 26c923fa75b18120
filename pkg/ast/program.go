package ast

import "scull-lang/sculc/pkg/container"

// FunctionScope holds the local variables declared within one function
// body, keyed by name. The global scope is represented the same way at
// Program.Globals.
type FunctionScope struct {
	Variables *container.HashMap[*Variable]
}

// NewFunctionScope returns an empty scope.
func NewFunctionScope() *FunctionScope {
	return &FunctionScope{Variables: container.NewHashMap[*Variable]()}
}

// Program is the parsed (and, after semantic analysis, checked) top-level
// unit for one source file: a flat instruction list plus the running loop
// counter the parser assigns loop_ids from.
type Program struct {
	LoopCounter int
	Instrs      []Instr

	Globals   *FunctionScope
	Functions *container.HashMap[*FnInstr]
}

// NewProgram returns an empty program ready to receive parsed instructions.
func NewProgram() *Program {
	return &Program{
		Globals:   NewFunctionScope(),
		Functions: container.NewHashMap[*FnInstr](),
	}
}
