package errtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.jslt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCasesSingleAnnotation(t *testing.T) {
	path := writeFixture(t, "@init\n{\n\t// <!>undefined identifier<!>missing = 1;\n}\n")
	cases, err := loadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "undefined identifier", cases[0].message)
	assert.Contains(t, cases[0].sourceText, "missing = 1;")
	assert.NotContains(t, cases[0].sourceText, "<!>")
}

func TestRunCaseReportsMismatch(t *testing.T) {
	path := writeFixture(t, "@init\n{\n\t// <!>some unrelated message<!>int x = 1;\n}\n@block\n{\n\tint y = x;\n}\n")
	cases, err := loadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)

	ok, _ := runCase(cases[0])
	assert.False(t, ok)
}

func TestCollectFixturesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jslt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))

	files, err := collectFixtures(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "a.jslt"), files[0])
}
