// Package loader walks the import graph rooted at an input file and
// returns a topologically ordered *ast.AST (§4.1). It is the first stage
// after the parser collaborator and the only stage that touches the
// filesystem.
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/builtins"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
	"github.com/reaper-jsfx/jsfxc/parser"
)

type loader struct {
	byPath   map[string]*ast.ModuleNode // absolute path -> loaded module
	byName   map[string]string          // base name -> absolute path, for conflict detection
	builtins map[string]*ast.ModuleNode
	visiting map[string]bool
	order    []*ast.ModuleNode // DFS post-order, leaves first
}

// Load assembles the import DAG rooted at rootPath into a topologically
// ordered *ast.AST, with the fixed list of built-in modules (builtins.Names)
// parsed once and prepended as leading imports to every user module.
func Load(rootPath string) (*ast.AST, error) {
	l := &loader{
		byPath:   make(map[string]*ast.ModuleNode),
		byName:   make(map[string]string),
		builtins: make(map[string]*ast.ModuleNode),
		visiting: make(map[string]bool),
	}
	if err := l.loadBuiltins(); err != nil {
		return nil, err
	}
	if _, err := l.load(rootPath); err != nil {
		return nil, err
	}
	return &ast.AST{Modules: l.order}, nil
}

func (l *loader) loadBuiltins() error {
	for _, name := range builtins.Names {
		src, _ := builtins.Source(name)
		stmts, err := parser.Parse(name, []byte(src))
		if err != nil {
			return err
		}
		m := &ast.ModuleNode{Path: "builtin:" + name, Name: name, Stmts: stmts}
		l.builtins[name] = m
		l.byPath[m.Path] = m
		l.order = append(l.order, m)
	}
	return nil
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// builtinPrelude returns one ImportStmt per built-in module, in the fixed
// order builtins.Names defines, to prepend to a freshly parsed module.
func builtinPrelude() []ast.Stmt {
	prelude := make([]ast.Stmt, 0, len(builtins.Names))
	for _, name := range builtins.Names {
		prelude = append(prelude, &ast.ImportStmt{ModuleName: name, BuiltIn: true})
	}
	return prelude
}

// load parses and recursively resolves the module at path, returning the
// cached module if that file identity has already been loaded.
func (l *loader) load(path string) (*ast.ModuleNode, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, compileerr.New(compileerr.FileUnreadable, "cannot resolve path %q: %v", path, err)
	}
	abs = filepath.Clean(abs)

	if l.visiting[abs] {
		return nil, compileerr.New(compileerr.CircularDependency, "circular import involving %q", abs)
	}
	if m, ok := l.byPath[abs]; ok {
		return m, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, compileerr.New(compileerr.FileUnreadable, "cannot read %q: %v", abs, err)
	}

	name := moduleName(abs)
	if existing, ok := l.byName[name]; ok && existing != abs {
		return nil, compileerr.New(compileerr.ModuleNameConflict,
			"module name %q used by both %q and %q", name, existing, abs)
	}
	l.byName[name] = abs

	stmts, err := parser.Parse(abs, data)
	if err != nil {
		return nil, err
	}
	stmts = append(builtinPrelude(), stmts...)

	module := &ast.ModuleNode{Path: abs, Name: name, Stmts: stmts}
	l.byPath[abs] = module
	l.visiting[abs] = true

	if err := l.resolveImports(module); err != nil {
		delete(l.visiting, abs)
		return nil, err
	}

	delete(l.visiting, abs)
	l.order = append(l.order, module)
	return module, nil
}

// resolveImports scans the leading run of Modifier/Import statements (§4.1:
// "imports must precede all other declarations"), recursing into each
// non-builtin import and stamping it with the most recently seen Modifier.
func (l *loader) resolveImports(module *ast.ModuleNode) error {
	curMod := ast.Modifier{}
	dir := filepath.Dir(module.Path)

	for _, s := range module.Stmts {
		switch stmt := s.(type) {
		case *ast.ModifierStmt:
			curMod = ast.Modifier{Public: stmt.Public, External: stmt.External}
		case *ast.ImportStmt:
			stmt.Mod = curMod
			if stmt.BuiltIn {
				continue
			}
			if strings.TrimSpace(stmt.RawPath) == "" {
				return compileerr.At(compileerr.EmptyImportPath, stmt.Ln, "import path is empty")
			}
			dep, err := l.load(filepath.Join(dir, stmt.RawPath))
			if err != nil {
				return err
			}
			stmt.ModuleName = dep.Name
		default:
			// First non-Modifier, non-Import statement ends the leading run.
			return nil
		}
	}
	return nil
}
