package ast

// Term is any leaf-level value-producing node: a literal, a variable
// reference, a dereference, an array access, an array literal, or a
// function call used in value position.
type Term interface {
	isTerm()
	Line() uint
}

type termBase struct{ line uint }

func (termBase) isTerm()     {}
func (t termBase) Line() uint { return t.line }

// IntTerm is an integer literal, including negative literals: the lexer
// folds a leading '-' into the literal rather than emitting a unary minus.
type IntTerm struct {
	termBase
	Value int
}

// CharTerm is a single-quoted character literal.
type CharTerm struct {
	termBase
	Value byte
}

// IdentifierTerm references a previously declared scalar variable. Var
// carries only the name at parse time; the semantic analyzer's symbol
// table is the authority the backend consults for the resolved offset.
type IdentifierTerm struct {
	termBase
	Var Variable
}

// PointerTerm references a variable by its pointer-name token form (`*name`
// used as a value, i.e. a pointer dereferenced to read the pointee).
type PointerTerm struct {
	termBase
	Name string
}

// DerefTerm dereferences a pointer term.
type DerefTerm struct {
	termBase
	Operand Term
}

// AddrOfTerm takes the address of a variable.
type AddrOfTerm struct {
	termBase
	Name string
}

// ArrayAccessTerm reads one element out of an array variable.
type ArrayAccessTerm struct {
	termBase
	Array Variable
	Index Expr
}

// ArrayLiteralTerm is a `{ ... }` array literal used in an initializer.
type ArrayLiteralTerm struct {
	termBase
	Elements []Expr
}

// FnCallTerm is a function call used in value position.
type FnCallTerm struct {
	termBase
	Name   string
	Params []Expr
}

func NewIntTerm(line uint, v int) IntTerm   { return IntTerm{termBase{line}, v} }
func NewCharTerm(line uint, v byte) CharTerm { return CharTerm{termBase{line}, v} }
func NewIdentifierTerm(line uint, n string) IdentifierTerm {
	return IdentifierTerm{termBase{line}, Variable{Name: n, Line: line}}
}
func NewPointerTerm(line uint, n string) PointerTerm { return PointerTerm{termBase{line}, n} }
func NewAddrOfTerm(line uint, n string) AddrOfTerm   { return AddrOfTerm{termBase{line}, n} }

// WithLine returns a copy of t stamped with line, used by the parser once
// it has assembled a node's fields and knows its starting line.
func (t DerefTerm) WithLine(line uint) DerefTerm { t.line = line; return t }

func (t ArrayAccessTerm) WithLine(line uint) ArrayAccessTerm { t.line = line; return t }

func (t ArrayLiteralTerm) WithLine(line uint) ArrayLiteralTerm { t.line = line; return t }

func (t FnCallTerm) WithLine(line uint) FnCallTerm { t.line = line; return t }
