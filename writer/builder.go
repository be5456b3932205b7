package writer

import "github.com/reaper-jsfx/jsfxc/ast"

// sectionOrder fixes the output order of the merged sections, independent
// of whichever order modules happened to declare them in.
var sectionOrder = []ast.SectionKind{
	ast.SectionInit,
	ast.SectionSlider,
	ast.SectionBlock,
	ast.SectionSample,
	ast.SectionSerialize,
	ast.SectionGFX,
}

// Build walks prog — expected to have already gone through ControlFlow,
// TypeConversion, Lowering, UseAnalysis and UniqueName, in that order —
// into the writer's output model.
func Build(prog *ast.AST) *File {
	f := &File{}
	byKind := make(map[ast.SectionKind]*SectionChunk, len(sectionOrder))
	for _, k := range sectionOrder {
		byKind[k] = &SectionChunk{Kind: k}
	}
	// A section kind some module declares gets its header even when its
	// merged body ends up empty.
	declared := make(map[ast.SectionKind]bool, len(sectionOrder))

	for _, m := range prog.Modules {
		chunk := ModuleChunk{Path: m.Path}
		for _, s := range m.Stmts {
			switch stmt := s.(type) {
			case *ast.FuncDeclStmt:
				if stmt.Mod.External {
					continue // §4.8: external functions emit only as a no-op
				}
				chunk.Funcs = append(chunk.Funcs, stmt)

			case *ast.VarDeclStmt:
				if stmt.Init != nil {
					init := byKind[ast.SectionInit]
					init.Prelude = append(init.Prelude, stmt)
				}

			case *ast.SectionStmt:
				sc := byKind[stmt.Kind]
				declared[stmt.Kind] = true
				if stmt.Kind == ast.SectionGFX {
					if stmt.Width != 0 {
						sc.Width = stmt.Width
					}
					if stmt.Height != 0 {
						sc.Height = stmt.Height
					}
				}
				if stmt.Block != nil {
					sc.Stmts = append(sc.Stmts, stmt.Block.Stmts...)
				}
			}
			// Import, Desc, Input, StructDecl, Modifier: no direct output.
		}
		if len(chunk.Funcs) > 0 {
			f.Modules = append(f.Modules, chunk)
		}
	}

	for _, k := range sectionOrder {
		sc := byKind[k]
		if declared[k] || len(sc.Prelude) > 0 || len(sc.Stmts) > 0 || sc.Width != 0 || sc.Height != 0 {
			f.Sections = append(f.Sections, sc)
		}
	}
	return f
}
