// Package compiler orchestrates one invocation of the toolchain: shared
// CompilerState plus one FileState per input file, driven through the
// lexer -> parser -> CheckErrors -> sema -> CheckErrors -> backend ->
// CheckErrors pipeline.
package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"scull-lang/sculc/pkg/arena"
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/backend"
	"scull-lang/sculc/pkg/diag"
	"scull-lang/sculc/pkg/lexer"
	"scull-lang/sculc/pkg/parser"
	"scull-lang/sculc/pkg/sema"
)

// TargetDescription is the optional YAML payload pointed to by
// --target-file, describing a backend target's word/pointer size.
type TargetDescription struct {
	Name         string `yaml:"name"`
	WordSize     int    `yaml:"word_size"`
	PointerSize  int    `yaml:"pointer_size"`
}

// CompilerState is shared across every file compiled in one invocation.
type CompilerState struct {
	FS          afero.Fs
	Target      string
	OutputPath  string
	IncludeDirs []string
	Verbose     bool
	EmitLLVM    bool
	EmitAsm     bool
	CompileOnly bool
	TargetDesc  *TargetDescription

	Log *logrus.Logger
	Backend backend.Backend
}

// NewCompilerState returns a CompilerState with sane defaults: the real
// disk filesystem, "." as the sole include directory, and the reference
// backend.
func NewCompilerState() *CompilerState {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return &CompilerState{
		FS:          afero.NewOsFs(),
		IncludeDirs: []string{"."},
		Log:         log,
		Backend:     backend.NewReference(),
	}
}

// LoadTargetFile parses a YAML target description and records it on cs.
func (cs *CompilerState) LoadTargetFile(path string) error {
	data, err := afero.ReadFile(cs.FS, path)
	if err != nil {
		return fmt.Errorf("reading target file %q: %w", path, err)
	}
	var desc TargetDescription
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return fmt.Errorf("parsing target file %q: %w", path, err)
	}
	cs.TargetDesc = &desc
	return nil
}

// includeResolver implements lexer.Resolver against the CompilerState's
// filesystem and include-directory search path.
type includeResolver struct {
	cs *CompilerState
}

func (r *includeResolver) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		data, err := afero.ReadFile(r.cs.FS, path)
		return string(data), err
	}
	for _, dir := range r.cs.IncludeDirs {
		candidate := filepath.Join(dir, path)
		if exists, _ := afero.Exists(r.cs.FS, candidate); exists {
			data, err := afero.ReadFile(r.cs.FS, candidate)
			return string(data), err
		}
	}
	return "", fmt.Errorf("include %q not found in any of %v", path, r.cs.IncludeDirs)
}

// FileState holds the per-file pipeline state for one input source file.
type FileState struct {
	Path    string
	Diags   *diag.Bag
	Arena   *arena.Arena
	Program *ast.Program
}

// NewFileState allocates a fresh arena-backed FileState for path.
func NewFileState(path string, diags *diag.Bag) *FileState {
	return &FileState{
		Path:  path,
		Diags: diags,
		Arena: arena.New(1 << 20),
	}
}

// Pipeline runs the full lex -> parse -> check -> backend pipeline across
// every input file sharing one CompilerState.
type Pipeline struct {
	CS *CompilerState
}

// NewPipeline returns a pipeline bound to cs.
func NewPipeline(cs *CompilerState) *Pipeline {
	return &Pipeline{CS: cs}
}

// Run compiles every input file in order and, unless CompileOnly is set,
// passes the emitted artifacts to the backend's Link. It returns the
// artifacts, or the first stage-blocking error encountered.
func (p *Pipeline) Run(inputs []string) ([]backend.Artifact, error) {
	if p.CS.OutputPath == "" && len(inputs) > 0 {
		base := filepath.Base(inputs[0])
		p.CS.OutputPath = strings.TrimSuffix(base, filepath.Ext(base))
	}

	setup := backend.BinarySetup{
		Target:     p.CS.Target,
		OutputPath: p.CS.OutputPath,
	}
	if p.CS.TargetDesc != nil {
		setup.WordSize = p.CS.TargetDesc.WordSize
		setup.PointerSize = p.CS.TargetDesc.PointerSize
	}
	if err := p.CS.Backend.Setup(setup); err != nil {
		return nil, fmt.Errorf("backend setup failed: %w", err)
	}

	var artifacts []backend.Artifact
	for _, path := range inputs {
		artifact, err := p.runFile(path)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	if p.CS.CompileOnly {
		return artifacts, nil
	}
	if err := p.CS.Backend.Link(artifacts, p.CS.OutputPath); err != nil {
		return nil, fmt.Errorf("link failed: %w", err)
	}
	return artifacts, nil
}

func (p *Pipeline) runFile(path string) (backend.Artifact, error) {
	p.CS.Log.WithField("file", path).Info("compiling")

	diags := diag.NewBag(logWriter{p.CS.Log})
	fs := NewFileState(path, diags)

	src, err := afero.ReadFile(p.CS.FS, path)
	if err != nil {
		return backend.Artifact{}, fmt.Errorf("reading %q: %w", path, err)
	}

	p.CS.Log.WithField("stage", "lex").Debug(path)
	lx := lexer.New(string(src), &includeResolver{p.CS}, diags)
	tokens, err := lx.Lex()
	if err != nil {
		return backend.Artifact{}, fmt.Errorf("lexing %q: %w", path, err)
	}
	if err := diags.CheckErrors(); err != nil {
		return backend.Artifact{}, err
	}

	p.CS.Log.WithField("stage", "parse").Debug(path)
	ps := parser.New(tokens, diags, fs.Arena)
	fs.Program = ps.Parse()
	if err := diags.CheckErrors(); err != nil {
		return backend.Artifact{}, err
	}

	p.CS.Log.WithField("stage", "sema").Debug(path)
	if err := sema.New(fs.Program, diags).Check(); err != nil {
		return backend.Artifact{}, err
	}

	p.CS.Log.WithField("stage", "backend").Debug(path)
	defer p.CS.Backend.Cleanup(path)

	if err := p.CS.Backend.Compile(path, fs.Program); err != nil {
		return backend.Artifact{}, err
	}
	if err := p.CS.Backend.Optimize(path); err != nil {
		return backend.Artifact{}, err
	}
	artifact, err := p.CS.Backend.Emit(path)
	if err != nil {
		return backend.Artifact{}, err
	}
	if err := diags.CheckErrors(); err != nil {
		return backend.Artifact{}, err
	}

	return artifact, nil
}

// logWriter adapts a logrus.Logger into an io.Writer for diag.Bag, so
// diagnostics flow through the same structured logger as progress traces.
type logWriter struct{ log *logrus.Logger }

func (w logWriter) Write(p []byte) (int, error) {
	w.log.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
