// Package writer implements the §4.8 writer pass: it turns a fully
// lowered *ast.AST (every pass through the unique-name pass has run) into
// JSFX text. The shape mirrors the teacher's goast.go/goprint.go split —
// a small output-level model built by Build, rendered to text by Print —
// adapted to JSFX's flat, single-namespace, section-based target instead
// of Go source.
package writer

import "github.com/reaper-jsfx/jsfxc/ast"

// File is the writer's output-level view of a compiled program: the
// function declarations contributed by every module, in topological
// order, followed by the program's merged sections. JSFX allows exactly
// one header of each kind in the final script, so every SectionStmt of a
// given kind — regardless of which module declared it — collapses into
// the one SectionChunk of that kind here.
type File struct {
	Modules  []ModuleChunk
	Sections []*SectionChunk
}

// ModuleChunk is one source module's banner comment and the (non-external)
// functions it declares at top level, in source order. A module that
// contributes no function declarations gets no chunk at all, so its
// banner never appears (§4.8: "only when the module has statements").
type ModuleChunk struct {
	Path  string
	Funcs []*ast.FuncDeclStmt
}

// SectionChunk is the merged body of every SectionStmt of a given kind
// across the whole program. Init additionally carries the prelude: every
// global VariableDeclaration's initializer, emitted ahead of any
// user-written @init statement (§4.8's "VariableDeclaration at global
// scope ... in the @init section prelude").
type SectionChunk struct {
	Kind   ast.SectionKind
	Width  int // @gfx only
	Height int // @gfx only

	Prelude []*ast.VarDeclStmt
	Stmts   []ast.Stmt
}
