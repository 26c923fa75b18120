package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/teris-io/cli"

	"scull-lang/sculc/pkg/compiler"
)

var Description = strings.ReplaceAll(`
sculc compiles SCULL source files ahead-of-time: each input is lexed,
parsed, semantically checked, and lowered through a pluggable backend,
whose link step then validates the emitted artifacts. No output file is
written.
`, "\n", " ")

var validTargets = map[string]bool{
	"reference": true,
}

var Sculc = cli.New(Description).
	WithArg(cli.NewArg("inputs", "The SCULL source files to compile").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("target", "Target backend to compile for (default: reference)").WithType(cli.TypeString)).
	WithOption(cli.NewOption("target-file", "YAML file describing a backend target's word/pointer size")).
	WithOption(cli.NewOption("output", "Path of the produced output binary").WithType(cli.TypeString)).
	WithOption(cli.NewOption("include_dir", "Directory searched first for -include directives").WithType(cli.TypeString)).
	WithOption(cli.NewOption("verbose", "Print per-stage compilation progress").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("emit-llvm", "Recorded but not acted on: the reference backend's output is unchanged").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("emit-asm", "Recorded but not acted on: the reference backend's output is unchanged").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("c", "Compile and assemble only, do not link").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Println(Description)
		fmt.Println("Use --help to see the full option list.")
		return 1
	}

	cs := compiler.NewCompilerState()

	cs.Target = "reference"
	if t, ok := options["target"]; ok {
		if !validTargets[t] {
			fmt.Printf("ERROR: unknown target %q\n", t)
			return 1
		}
		cs.Target = t
	}

	if path, ok := options["target-file"]; ok {
		if err := cs.LoadTargetFile(path); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			return 1
		}
	}

	if out, ok := options["output"]; ok {
		cs.OutputPath = out
	}

	if dir, ok := options["include_dir"]; ok {
		cs.IncludeDirs = append([]string{dir}, cs.IncludeDirs...)
	}

	if _, ok := options["verbose"]; ok {
		cs.Verbose = true
		cs.Log.SetLevel(logrus.DebugLevel)
	}

	_, cs.EmitLLVM = options["emit-llvm"]
	_, cs.EmitAsm = options["emit-asm"]
	_, cs.CompileOnly = options["c"]

	pipeline := compiler.NewPipeline(cs)
	if _, err := pipeline.Run(args); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return 1
	}

	return 0
}

func main() { os.Exit(Sculc.Run(os.Args, os.Stdout)) }
