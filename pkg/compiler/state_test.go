package compiler

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemState(t *testing.T, files map[string]string) *CompilerState {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	cs := NewCompilerState()
	cs.FS = fs
	return cs
}

func TestPipelineRunCompilesAndLinksSingleFile(t *testing.T) {
	cs := newMemState(t, map[string]string{"main.scl": "int x = 1 + 2"})
	artifacts, err := NewPipeline(cs).Run([]string{"main.scl"})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Contains(t, string(artifacts[0].Data), "function $init")
	assert.Equal(t, "main", cs.OutputPath)
}

func TestPipelineRunResolvesIncludeFromIncludeDirs(t *testing.T) {
	cs := newMemState(t, map[string]string{
		"main.scl":    "-include \"helper.scl\"\nint x",
		"helper.scl":  "int y",
	})
	artifacts, err := NewPipeline(cs).Run([]string{"main.scl"})
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
}

func TestPipelineRunReportsLexErrors(t *testing.T) {
	cs := newMemState(t, map[string]string{"main.scl": "@"})
	_, err := NewPipeline(cs).Run([]string{"main.scl"})
	assert.Error(t, err)
}

func TestPipelineRunReportsSemaErrors(t *testing.T) {
	cs := newMemState(t, map[string]string{"main.scl": "x = 1"})
	_, err := NewPipeline(cs).Run([]string{"main.scl"})
	assert.Error(t, err)
}

func TestLoadTargetFileParsesYAML(t *testing.T) {
	cs := newMemState(t, map[string]string{
		"target.yaml": "name: reference\nword_size: 4\npointer_size: 8\n",
	})
	require.NoError(t, cs.LoadTargetFile("target.yaml"))
	require.NotNil(t, cs.TargetDesc)
	assert.Equal(t, "reference", cs.TargetDesc.Name)
	assert.Equal(t, 4, cs.TargetDesc.WordSize)
	assert.Equal(t, 8, cs.TargetDesc.PointerSize)
}

func TestIncludeResolverMissingFileIsError(t *testing.T) {
	cs := newMemState(t, map[string]string{"main.scl": "-include \"missing.scl\"\nint x"})
	_, err := NewPipeline(cs).Run([]string{"main.scl"})
	assert.Error(t, err)
}
