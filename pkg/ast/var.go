// Package ast defines the SCULL abstract syntax tree: tagged-variant nodes
// for terms, expressions, relations, and instructions, modeled as Go
// interfaces with one concrete type per node kind.
package ast

// Type is a SCULL data type.
type Type int

const (
	TypeInt Type = iota
	TypeChar
	TypeString
	TypePointer
	TypeVoid
)

// Size returns the size in bytes a value of type t occupies on the stack.
func (t Type) Size() int {
	switch t {
	case TypeChar:
		return 1
	case TypeInt, TypeString, TypePointer:
		return 4
	case TypeVoid:
		return 0
	default:
		return 4
	}
}

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeChar:
		return "char"
	case TypeString:
		return "string"
	case TypePointer:
		return "pointer"
	case TypeVoid:
		return "void"
	default:
		return "unknown"
	}
}

// Variable represents one declared variable or array, global or local.
type Variable struct {
	Type         Type
	Name         string
	Line         uint
	StackOffset  int
	IsArray      bool
	DimensionSizes []int
}
