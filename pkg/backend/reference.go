package backend

import (
	"fmt"

	"github.com/minio/highwayhash"

	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/scullvm"
)

// highwayKey is a fixed key for the content hash recorded in the link
// manifest; it only needs to be stable across a single toolchain version,
// not secret, since it is used for staleness detection rather than
// authentication.
var highwayKey = []byte("scull-link-manifest-checksum-key")[:32]

func contentHash(data []byte) uint64 {
	h, err := highwayhash.New64(highwayKey)
	if err != nil {
		// Only fails for a malformed key, which is a programmer error.
		panic(fmt.Sprintf("backend: invalid highwayhash key: %v", err))
	}
	h.Write(data)
	return h.Sum64()
}

// Reference is the built-in Backend: it lowers the checked AST directly
// into scullvm IR and serializes it as text, standing in for a real target
// backend (machine code generation is explicitly out of scope).
type Reference struct {
	setup    BinarySetup
	compiled map[string]scullvm.Program
}

// NewReference returns a ready-to-use reference backend.
func NewReference() *Reference {
	return &Reference{compiled: map[string]scullvm.Program{}}
}

// Setup records the binary-level configuration. The reference backend has
// no target-specific module to initialize, but it keeps the word/pointer
// sizes around since a real target backend would size its memory segments
// off them.
func (r *Reference) Setup(setup BinarySetup) error {
	r.setup = setup
	return nil
}

func (r *Reference) Compile(file string, prog *ast.Program) error {
	l := &lowerer{}
	r.compiled[file] = l.lowerProgram(prog)
	return nil
}

// Optimize runs a trivial peephole pass: consecutive push/pop pairs that
// cancel out (a push from a segment slot immediately popped back to that
// same segment and offset) are removed. This is the one optimization named generically enough by the
// pipeline contract to implement without a real target ISA to optimize for.
func (r *Reference) Optimize(file string) error {
	prog, ok := r.compiled[file]
	if !ok {
		return fmt.Errorf("backend: Optimize called before Compile for %q", file)
	}
	for i := range prog.Functions {
		prog.Functions[i].Instrs = peephole(prog.Functions[i].Instrs)
	}
	prog.Init.Instrs = peephole(prog.Init.Instrs)
	r.compiled[file] = prog
	return nil
}

func peephole(instrs []scullvm.Instruction) []scullvm.Instruction {
	out := instrs[:0:0]
	for i := 0; i < len(instrs); i++ {
		if i+1 < len(instrs) {
			push, okPush := instrs[i].(scullvm.MemoryOp)
			pop, okPop := instrs[i+1].(scullvm.MemoryOp)
			if okPush && okPop && push.Operation == scullvm.Push && pop.Operation == scullvm.Pop &&
				push.Segment == pop.Segment && push.Offset == pop.Offset {
				i++
				continue
			}
		}
		out = append(out, instrs[i])
	}
	return out
}

func (r *Reference) Emit(file string) (Artifact, error) {
	prog, ok := r.compiled[file]
	if !ok {
		return Artifact{}, fmt.Errorf("backend: Emit called before Compile for %q", file)
	}
	data := []byte(scullvm.Encode(prog))
	return Artifact{Name: file, Data: data, Hash: contentHash(data)}, nil
}

func (r *Reference) Cleanup(file string) error {
	delete(r.compiled, file)
	return nil
}

// Link validates that every artifact's recorded hash still matches its
// data and returns an error for the first mismatch. It writes no output
// and invokes no external linker.
func (r *Reference) Link(artifacts []Artifact, outputPath string) error {
	for _, a := range artifacts {
		if got := contentHash(a.Data); got != a.Hash {
			return fmt.Errorf("backend: artifact %q hash mismatch, refusing to link", a.Name)
		}
	}
	return nil
}
