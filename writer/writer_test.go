package writer

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/loader"
	"github.com/reaper-jsfx/jsfxc/passes"
	"github.com/reaper-jsfx/jsfxc/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compile runs the full pipeline (loader -> resolver -> every pass
// through unique-name) and returns the writer's rendered output, in the
// same stage order compiler.Compile uses.
func compile(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.jsl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	prog, err := loader.Load(path)
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(prog))

	pipeline := ast.Pipeline{
		passes.ControlFlow(),
		passes.TypeConversion(),
		passes.Lowering(),
		passes.UseAnalysis(),
		passes.UniqueName(),
	}
	require.NoError(t, pipeline.Run(prog))

	return Print(Build(prog))
}

func TestWriterStructRoundTrip(t *testing.T) {
	out := compile(t, `
modifier public;
struct V { float x; float y; }
@init {
	V v;
	v.x = 1.0;
	v.y = 2.0;
}
@block {
	float s = v.x + v.y;
}
`)
	assert.NotContains(t, out, "struct")
	assert.Regexp(t, regexp.MustCompile(`v_x\d+ = 1\.00000000000000;`), out)
	assert.Regexp(t, regexp.MustCompile(`v_y\d+ = 2\.00000000000000;`), out)
}

func TestWriterArrayOfInts(t *testing.T) {
	out := compile(t, `
int[] a;
@init {
	a.length = 3;
}
@block {
	int n = a.length;
}
`)
	assert.Regexp(t, regexp.MustCompile(`a_length\d+ = 3;`), out)
}

func TestWriterDeadStoreElimination(t *testing.T) {
	out := compile(t, `
@init
{
	int a = 5;
	a = 7;
	a = 9;
}
@block
{
	int b = a + 1;
}
`)
	assert.NotContains(t, out, "= 5;")
	assert.NotContains(t, out, "= 7;")
	assert.Regexp(t, regexp.MustCompile(`a\d+ = 9;`), out)
}

func TestWriterFunctionCallAndReturn(t *testing.T) {
	out := compile(t, `
int add(int a, int b) {
	return a + b;
}
int x;
@init
{
	x = add(1, 2);
}
@block
{
	int y = x;
}
`)
	assert.Regexp(t, regexp.MustCompile(`function add\d+\(a, b\) \(`), out)
	assert.Regexp(t, regexp.MustCompile(`add\d+\(1, 2\)`), out)
	assert.NotRegexp(t, regexp.MustCompile(`\breturn\b`), out)
}

func TestWriterForToWhileWithContinue(t *testing.T) {
	out := compile(t, `
@init
{
	int total = 0;
	int i;
	for (i = 0; i < 10; i++) {
		if (i == 5) { continue; }
		total = total + i;
	}
}
@block
{
	int y = total;
}
`)
	assert.Contains(t, out, "while (")
	assert.Equal(t, 1, strings.Count(out, "while ("))
}

func TestWriterExternalFunctionAndVariable(t *testing.T) {
	out := compile(t, `
modifier external;
any srate;
modifier external;
any myExt(float x) {}
modifier public;
void useIt() {
	myExt(srate);
}
`)
	assert.Contains(t, out, "myExt(srate)")
	assert.NotContains(t, out, "function myExt")
	assert.NotContains(t, out, "srate0")
	assert.NotRegexp(t, regexp.MustCompile(`srate\d+`), out)
}

func TestWriterNegativeLiteralFold(t *testing.T) {
	out := compile(t, `
@init
{
	int x = -5;
}
@block
{
	int y = x;
}
`)
	assert.Regexp(t, regexp.MustCompile(`x\d+ = -5;`), out)
}
