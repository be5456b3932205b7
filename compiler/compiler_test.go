package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.jsl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompileEmit(t *testing.T) {
	path := writeSource(t, `
@init
{
	int x = 1;
}
@block
{
	int y = x;
}
`)
	c := &Compiler{}
	out, err := c.Emit(path)
	require.NoError(t, err)
	assert.Contains(t, out, "@init")
	assert.Contains(t, out, "@block")
}

func TestCompileSyntaxError(t *testing.T) {
	path := writeSource(t, `@init { int x = ; }`)
	c := &Compiler{}
	_, err := c.Emit(path)
	assert.Error(t, err)
}

func TestCompileBuildWritesFile(t *testing.T) {
	path := writeSource(t, `
@init
{
	int x = 1;
}
@block
{
	int y = x;
}
`)
	dir := t.TempDir()
	out := filepath.Join(dir, "result.jsfx")

	c := &Compiler{}
	require.NoError(t, c.Build(path, out))

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "@init")
}

func TestCompileBuildDefaultOutput(t *testing.T) {
	path := writeSource(t, `
@init
{
	int x = 1;
}
@block
{
	int y = x;
}
`)
	wd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	defer os.Chdir(wd)

	c := &Compiler{}
	require.NoError(t, c.Build(path, ""))

	_, err = os.Stat(filepath.Join(tmp, "out.jsfx"))
	assert.NoError(t, err)
}
