package ast

// Instr is any top-level or function-body statement.
type Instr interface {
	isInstr()
	Line() uint
}

type instrBase struct{ line uint }

func (instrBase) isInstr()     {}
func (i instrBase) Line() uint { return i.line }

// DeclareInstr declares a scalar variable without an initializer.
type DeclareInstr struct {
	instrBase
	Var Variable
}

// InitializeInstr declares and initializes a scalar variable in one step.
type InitializeInstr struct {
	instrBase
	Var  Variable
	Expr Expr
}

// DeclareArrayInstr declares an array variable; the semantic analyzer folds
// SizeExpr to a constant and records it in DimensionSizes on the variable's
// symbol-table entry, not on this node's Var.
type DeclareArrayInstr struct {
	instrBase
	Var      Variable
	SizeExpr Expr
}

// InitializeArrayInstr declares and initializes an array with a literal.
type InitializeArrayInstr struct {
	instrBase
	Var      Variable
	SizeExpr Expr
	Literal  ArrayLiteralTerm
}

// AssignInstr assigns a new value to an existing scalar variable. Var
// carries only the name at parse time, resolved against the symbol table
// by later passes the same way AssignToArraySubscriptInstr's Var is.
type AssignInstr struct {
	instrBase
	Var  Variable
	Expr Expr
}

// AssignToArraySubscriptInstr assigns a new value to one array element.
type AssignToArraySubscriptInstr struct {
	instrBase
	Var       Variable
	IndexExpr Expr
	Expr      Expr
}

// IfInstr is a conditional with either one nested instruction (then-single)
// or a block of instructions (then-multi). It has no else branch, and the
// parser does not accept an else clause: an `else` token after an if is
// reported as an unexpected token at the start of an instruction.
type IfInstr struct {
	instrBase
	Rel   Rel
	Instr Instr   // set when len(Instrs) == 0
	Instrs []Instr // set for brace-delimited bodies
}

// MatchCaseKind distinguishes a value-list case, a range case, and the
// wildcard default case.
type MatchCaseKind int

const (
	MatchCaseValues MatchCaseKind = iota
	MatchCaseRange
	MatchCaseDefault
)

// MatchCase is one arm of a MatchInstr: a pattern (a list of values, a
// start...end range, or the `_` wildcard) and a body, which follows the same
// single-instr-or-braced-block shape as an IfInstr branch.
type MatchCase struct {
	Kind       MatchCaseKind
	Values     []Expr // set for MatchCaseValues
	RangeStart Expr   // set for MatchCaseRange
	RangeEnd   Expr   // set for MatchCaseRange
	Instr      Instr  // set when len(Instrs) == 0
	Instrs     []Instr
	line       uint
}

func (c MatchCase) WithLine(line uint) MatchCase { c.line = line; return c }
func (c MatchCase) Line() uint                   { return c.line }

// MatchInstr dispatches on Expr's value against each case in order, running
// the first matching case's body; the default case, if any, runs when no
// other case matches.
type MatchInstr struct {
	instrBase
	Expr  Expr
	Cases []MatchCase
}

func (i MatchInstr) WithLine(line uint) MatchInstr { i.line = line; return i }

// GotoInstr transfers control to a label within the same function.
type GotoInstr struct {
	instrBase
	Label string
}

// LabelInstr declares a jump target within the current function.
type LabelInstr struct {
	instrBase
	Label string
}

// LoopKind distinguishes the four loop forms SCULL supports; all four
// share one loop_id counter and break/continue target.
type LoopKind int

const (
	LoopUnconditional LoopKind = iota
	LoopWhile
	LoopDoWhile
	LoopFor
)

// LoopInstr is an unconditional, while, do-while, or for-in-range loop.
// Iterator, RangeStart, and RangeEnd are only populated when Kind == LoopFor.
type LoopInstr struct {
	instrBase
	Kind           LoopKind
	LoopID         int
	BreakCondition Rel
	Iterator       Variable
	RangeStart     Expr
	RangeEnd       Expr
	Instrs         []Instr
}

// LoopBreakInstr exits the innermost enclosing loop.
type LoopBreakInstr struct{ instrBase }

// LoopContinueInstr jumps to the innermost enclosing loop's condition check.
type LoopContinueInstr struct{ instrBase }

// FnKind distinguishes a full definition from a forward declaration.
type FnKind int

const (
	FnDefined FnKind = iota
	FnDeclared
)

// FnInstr declares or defines a function. Variadic is set when the
// parameter list ends in `...`. For FnDefined, Variables and Instrs hold the
// function body; for FnDeclared both are nil.
type FnInstr struct {
	instrBase
	Name        string
	Kind        FnKind
	ReturnTypes []Type
	Parameters  []Variable
	Variadic    bool

	Variables *FunctionScope
	Instrs    []Instr
}

// ReturnInstr returns zero or more values from the enclosing function.
type ReturnInstr struct {
	instrBase
	Values []Expr
}

// FnCallInstr is a function call used as a bare statement (its return
// values, if any, are discarded).
type FnCallInstr struct {
	instrBase
	Name   string
	Params []Expr
}

func NewGotoInstr(line uint, label string) GotoInstr   { return GotoInstr{instrBase{line}, label} }
func NewLabelInstr(line uint, label string) LabelInstr { return LabelInstr{instrBase{line}, label} }

// WithLine returns a copy of the receiver stamped with line, used by the
// parser once it has assembled a node's fields and knows its starting line.
func (i DeclareInstr) WithLine(line uint) DeclareInstr { i.line = line; return i }

func (i InitializeInstr) WithLine(line uint) InitializeInstr { i.line = line; return i }

func (i DeclareArrayInstr) WithLine(line uint) DeclareArrayInstr { i.line = line; return i }

func (i InitializeArrayInstr) WithLine(line uint) InitializeArrayInstr { i.line = line; return i }

func (i AssignInstr) WithLine(line uint) AssignInstr { i.line = line; return i }

func (i AssignToArraySubscriptInstr) WithLine(line uint) AssignToArraySubscriptInstr {
	i.line = line
	return i
}

func (i IfInstr) WithLine(line uint) IfInstr { i.line = line; return i }

func (i LoopInstr) WithLine(line uint) LoopInstr { i.line = line; return i }

func (i LoopBreakInstr) WithLine(line uint) LoopBreakInstr { i.line = line; return i }

func (i LoopContinueInstr) WithLine(line uint) LoopContinueInstr { i.line = line; return i }

func (i FnInstr) WithLine(line uint) FnInstr { i.line = line; return i }

func (i ReturnInstr) WithLine(line uint) ReturnInstr { i.line = line; return i }

func (i FnCallInstr) WithLine(line uint) FnCallInstr { i.line = line; return i }
