// Package backend defines the pluggable code-generation contract every
// SCULL target implements, and ships one reference implementation that
// lowers the checked AST into the scullvm stack-machine IR.
package backend

import "scull-lang/sculc/pkg/ast"

// Artifact is one backend's lowered output for a single source file, ready
// to be written out by Emit and later fed to Link.
type Artifact struct {
	Name string
	Data []byte
	Hash uint64
}

// BinarySetup carries the once-per-binary configuration a concrete backend
// needs before compiling its first file: the selected target, the eventual
// link output path, and the word/pointer sizes loaded from a target
// description file, if any.
type BinarySetup struct {
	Target      string
	OutputPath  string
	WordSize    int
	PointerSize int
}

// Backend is the pluggable code-generation contract. Setup runs once per
// binary, before any file is compiled; Compile/Optimize/Emit/Cleanup run
// once per source file in that order; Link runs once for the whole binary
// after every file's artifact has been produced. This generalizes the
// original single init/compile/emit_output/cleanup backend struct with a
// binary-level Setup plus separate Optimize and Link stages, per the
// pipeline's richer contract.
type Backend interface {
	// Setup prepares any binary-level state (target, module layout) the
	// backend needs before the first file's Compile. It runs exactly once
	// per invocation, regardless of how many files are compiled.
	Setup(setup BinarySetup) error
	// Compile lowers prog into the backend's internal representation.
	Compile(file string, prog *ast.Program) error
	// Optimize runs target-specific passes over the compiled representation.
	Optimize(file string) error
	// Emit serializes the compiled (and optimized) representation into an
	// Artifact ready to be written to disk.
	Emit(file string) (Artifact, error)
	// Cleanup releases any per-file state retained since Setup.
	Cleanup(file string) error
	// Link combines every emitted Artifact into the final binary at
	// outputPath. Actual process invocation of an external linker is out
	// of scope; Link only prepares and validates the link manifest.
	Link(artifacts []Artifact, outputPath string) error
}
