package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/loader"
	"github.com/reaper-jsfx/jsfxc/passes"
	"github.com/reaper-jsfx/jsfxc/resolver"
)

// synthesizedSource builds a program with n small functions and a block
// section that calls all of them, big enough to give Build/Print a
// non-trivial tree without depending on any fixture file.
func synthesizedSource(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "int f%d(int a, int b) { return a + b * %d; }\n", i, i)
	}
	b.WriteString("@init\n{\n\tint total = 0;\n}\n@block\n{\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\ttotal = total + f%d(total, %d);\n", i, i)
	}
	b.WriteString("}\n")
	return b.String()
}

// preparedProgram parses, resolves and passes a synthesized program once,
// outside the timed loop, mirroring the teacher's BenchmarkCodegen
// pattern of isolating the stage under benchmark from the stages before
// it.
func preparedProgram(b *testing.B, n int) *ast.AST {
	b.Helper()
	dir := b.TempDir()
	path := filepath.Join(dir, "main.jsl")
	if err := os.WriteFile(path, []byte(synthesizedSource(n)), 0o644); err != nil {
		b.Fatal(err)
	}

	prog, err := loader.Load(path)
	if err != nil {
		b.Fatal(err)
	}
	if err := resolver.Resolve(prog); err != nil {
		b.Fatal(err)
	}
	pipeline := ast.Pipeline{
		passes.ControlFlow(),
		passes.TypeConversion(),
		passes.Lowering(),
		passes.UseAnalysis(),
		passes.UniqueName(),
	}
	if err := pipeline.Run(prog); err != nil {
		b.Fatal(err)
	}
	return prog
}

func BenchmarkBuildAndPrintSmall(b *testing.B) {
	prog := preparedProgram(b, 10)
	b.ResetTimer()
	for b.Loop() {
		Print(Build(prog))
	}
}

func BenchmarkBuildAndPrintLarge(b *testing.B) {
	prog := preparedProgram(b, 500)
	b.ResetTimer()
	for b.Loop() {
		Print(Build(prog))
	}
}
