package writer

import (
	"fmt"
	"strings"

	"github.com/reaper-jsfx/jsfxc/ast"
)

// Print renders f as a complete JSFX text stream (§4.8).
func Print(f *File) string {
	var b strings.Builder
	for _, m := range f.Modules {
		printModule(&b, m)
	}
	for _, sc := range f.Sections {
		printSection(&b, sc)
	}
	return b.String()
}

func printModule(b *strings.Builder, m ModuleChunk) {
	fmt.Fprintf(b, "// module: %s\n", m.Path)
	for _, fn := range m.Funcs {
		printFunc(b, fn)
	}
	b.WriteByte('\n')
}

func printFunc(b *strings.Builder, fn *ast.FuncDeclStmt) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = emittedVarName(p)
	}
	body := "0"
	if fn.Block != nil {
		body = renderBlockValue(fn.Block)
	}
	fmt.Fprintf(b, "function %s(%s) (\n  %s\n);\n", emittedFuncName(fn), strings.Join(params, ", "), body)
}

func printSection(b *strings.Builder, sc *SectionChunk) {
	header := sc.Kind.String()
	if sc.Kind == ast.SectionGFX && (sc.Width != 0 || sc.Height != 0) {
		header = fmt.Sprintf("%s %d %d", header, sc.Width, sc.Height)
	}
	fmt.Fprintf(b, "%s\n", header)
	for _, v := range sc.Prelude {
		fmt.Fprintf(b, "%s = %s;\n", emittedVarName(v), renderExpr(v.Init))
	}
	for _, s := range sc.Stmts {
		if text, ok := renderStmt(s); ok {
			fmt.Fprintf(b, "%s;\n", text)
		}
	}
	b.WriteByte('\n')
}
