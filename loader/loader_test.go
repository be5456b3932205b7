package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadSingleModulePrependsBuiltins(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.jsl", `
@init {
}
`)

	prog, err := Load(root)
	require.NoError(t, err)

	// 12 built-ins plus the root module.
	require.Len(t, prog.Modules, 13)
	assert.True(t, len(prog.Modules) >= 13)

	last := prog.Modules[len(prog.Modules)-1]
	assert.Equal(t, "main", last.Name)

	var imports int
	for _, s := range last.Stmts {
		if imp, ok := s.(*ast.ImportStmt); ok && imp.BuiltIn {
			imports++
		}
	}
	assert.Equal(t, 12, imports)
}

func TestLoadDiamondDependencyReusesModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "leaf.jsl", `
modifier public;
float leafValue;
`)
	writeFile(t, dir, "left.jsl", `
import "leaf.jsl";
`)
	writeFile(t, dir, "right.jsl", `
import "leaf.jsl";
`)
	root := writeFile(t, dir, "main.jsl", `
import "left.jsl";
import "right.jsl";
`)

	prog, err := Load(root)
	require.NoError(t, err)

	leafCount := 0
	for _, m := range prog.Modules {
		if m.Name == "leaf" {
			leafCount++
		}
	}
	assert.Equal(t, 1, leafCount, "leaf.jsl must be parsed exactly once despite two importers")
}

func TestLoadCircularDependencyFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsl", `import "b.jsl";`)
	writeFile(t, dir, "b.jsl", `import "a.jsl";`)

	_, err := Load(filepath.Join(dir, "a.jsl"))
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok, "expected *compileerr.Error, got %T", err)
	assert.Equal(t, compileerr.CircularDependency, cerr.Kind)
}

func TestLoadModuleNameConflictFails(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, dir, "util.jsl", `modifier public; float x;`)
	writeFile(t, sub, "util.jsl", `modifier public; float y;`)
	root := writeFile(t, dir, "main.jsl", `
import "util.jsl";
import "sub/util.jsl";
`)

	_, err := Load(root)
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	assert.Equal(t, compileerr.ModuleNameConflict, cerr.Kind)
}

func TestLoadEmptyImportPathFails(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.jsl", `import "";`)

	_, err := Load(root)
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	assert.Equal(t, compileerr.EmptyImportPath, cerr.Kind)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/path/to/file.jsl")
	require.Error(t, err)
	cerr, ok := err.(*compileerr.Error)
	require.True(t, ok)
	assert.Equal(t, compileerr.FileUnreadable, cerr.Kind)
}
