// Package scullvm is the reference stack-machine intermediate
// representation the built-in backend lowers a SCULL ast.Program into. It
// mirrors the shape of the teacher compiler's own VM language: a flat
// per-function instruction list built out of a handful of typed operation
// kinds, plus a textual encoder for the .svm form. There is no decoder.
package scullvm

import "fmt"

// Program is a full lowered unit: one Function per SCULL function, plus a
// top-level Init function holding global initializers and bare top-level
// statements.
type Program struct {
	Init      Function
	Functions []Function
}

// Function is a flat instruction list for one lowered SCULL function.
type Function struct {
	Name   string
	Locals int // stack slots reserved for locals, including parameters
	Instrs []Instruction
}

// Instruction is any single lowered VM operation.
type Instruction interface{ isInstruction() }

type instrBase struct{}

func (instrBase) isInstruction() {}

// OperationType distinguishes a memory push from a memory pop.
type OperationType string

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

// SegmentType names the memory segment a MemoryOp addresses.
type SegmentType string

const (
	Constant SegmentType = "constant" // virtual segment for literal values
	Local    SegmentType = "local"    // function-local variable slots
	Global   SegmentType = "global"   // global variable slots
	Pointer  SegmentType = "pointer"  // address-of / dereference target
)

// MemoryOp pushes a value from, or pops the stack top into, one memory
// segment slot.
type MemoryOp struct {
	instrBase
	Operation OperationType
	Segment   SegmentType
	Offset    uint32
}

// ArithOpType enumerates the stack-machine's arithmetic, comparison, and
// bitwise-adjacent operators.
type ArithOpType string

const (
	Add ArithOpType = "add"
	Sub ArithOpType = "sub"
	Mul ArithOpType = "mul"
	Div ArithOpType = "div"
	Mod ArithOpType = "mod"

	Eq ArithOpType = "eq"
	Ne ArithOpType = "ne"
	Lt ArithOpType = "lt"
	Le ArithOpType = "le"
	Gt ArithOpType = "gt"
	Ge ArithOpType = "ge"
)

// ArithmeticOp pops its operand(s) off the stack top and pushes the result.
type ArithmeticOp struct {
	instrBase
	Operation ArithOpType
}

// LabelOp declares a jump target within the enclosing function.
type LabelOp struct {
	instrBase
	Name string
}

// GotoOp unconditionally transfers control to Target.
type GotoOp struct {
	instrBase
	Target string
}

// IfGotoOp pops the stack top and transfers control to Target if it is
// nonzero.
type IfGotoOp struct {
	instrBase
	Target string
}

// CallOp invokes a function by name with NumArgs arguments already pushed.
type CallOp struct {
	instrBase
	Name    string
	NumArgs int
}

// ReturnOp pops NumValues return values and transfers control back to the
// caller.
type ReturnOp struct {
	instrBase
	NumValues int
}

// encodeInstr renders one instruction in the textual .svm encoding.
func encodeInstr(instr Instruction) string {
	switch i := instr.(type) {
	case MemoryOp:
		return fmt.Sprintf("%s %s %d", i.Operation, i.Segment, i.Offset)
	case ArithmeticOp:
		return string(i.Operation)
	case LabelOp:
		return fmt.Sprintf("label %s", i.Name)
	case GotoOp:
		return fmt.Sprintf("goto %s", i.Target)
	case IfGotoOp:
		return fmt.Sprintf("if-goto %s", i.Target)
	case CallOp:
		return fmt.Sprintf("call %s %d", i.Name, i.NumArgs)
	case ReturnOp:
		return fmt.Sprintf("return %d", i.NumValues)
	default:
		return "; <unknown instruction>"
	}
}

// Encode renders the whole program in the textual .svm form: one function
// per `function <name> <locals>` block, one instruction per line.
func Encode(p Program) string {
	out := ""
	for _, fn := range append([]Function{p.Init}, p.Functions...) {
		out += fmt.Sprintf("function %s %d\n", fn.Name, fn.Locals)
		for _, instr := range fn.Instrs {
			out += "  " + encodeInstr(instr) + "\n"
		}
	}
	return out
}
