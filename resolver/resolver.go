// Package resolver binds every identifier, attaches types, enforces
// visibility, synthesizes array structs, and expands property-list
// syntax (§4.2). It is the core's second stage, consuming the
// topologically ordered *ast.AST the loader produces.
package resolver

import (
	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// primitives are the type names that need no struct lookup.
var primitives = map[string]bool{"int": true, "float": true, "any": true, "void": true, "bool": true}

// scope is one level of the scope stack: a name maps to a sequence of
// declarations because function overloads share a name (§4.2's
// Scoping).
type scope struct {
	names map[string][]ast.Decl
}

func newScope() *scope { return &scope{names: make(map[string][]ast.Decl)} }

func (s *scope) add(name string, d ast.Decl) {
	s.names[name] = append(s.names[name], d)
}

// Resolver carries the state threaded through one compilation's worth of
// resolveModule calls. Built-in modules resolve first (they are leaves
// in the loader's DFS order) so user modules can import them exactly
// like any other module.
type Resolver struct {
	scopes       []*scope
	modules      map[string]*scope          // published per-module scope, keyed by module name
	arrayStructs map[string]*ast.StructDeclStmt

	curModule *ast.ModuleNode
	curFunc   *ast.FuncDeclStmt
	loopDepth int
	nextTemp  int
	sawDesc   bool
}

// Resolve runs the resolver over every module in prog, in the order the
// loader produced (dependencies before dependents).
func Resolve(prog *ast.AST) error {
	r := &Resolver{
		modules:      make(map[string]*scope),
		arrayStructs: make(map[string]*ast.StructDeclStmt),
	}
	for _, m := range prog.Modules {
		if err := r.resolveModule(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) pushScope() { r.scopes = append(r.scopes, newScope()) }
func (r *Resolver) popScope()  { r.scopes = r.scopes[:len(r.scopes)-1] }

func (r *Resolver) declare(name string, d ast.Decl) error {
	top := r.scopes[len(r.scopes)-1]
	if existing, ok := top.names[name]; ok {
		if !(isFunc(d) && allFuncs(existing)) {
			return compileerr.At(compileerr.RedeclarationOfName, d.Line(), "%q is already declared in this scope", name)
		}
	}
	top.add(name, d)
	return nil
}

func isFunc(d ast.Decl) bool { _, ok := d.(*ast.FuncDeclStmt); return ok }

func allFuncs(ds []ast.Decl) bool {
	for _, d := range ds {
		if !isFunc(d) {
			return false
		}
	}
	return true
}

// lookup searches the scope stack innermost-first.
func (r *Resolver) lookup(name string) []ast.Decl {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if ds, ok := r.scopes[i].names[name]; ok {
			return ds
		}
	}
	return nil
}

func declName(d ast.Decl) string {
	switch v := d.(type) {
	case *ast.VarDeclStmt:
		return v.Name
	case *ast.FuncDeclStmt:
		return v.Name
	case *ast.StructDeclStmt:
		return v.Name
	case *ast.ImportStmt:
		return v.ModuleName
	case *ast.InputStmt:
		return v.Name
	}
	return ""
}

func declMod(d ast.Decl) ast.Modifier {
	switch v := d.(type) {
	case *ast.VarDeclStmt:
		return v.Mod
	case *ast.FuncDeclStmt:
		return v.Mod
	case *ast.StructDeclStmt:
		return v.Mod
	case *ast.ImportStmt:
		return v.Mod
	}
	return ast.Modifier{}
}

// resolveModule registers every top-level declaration (applying the
// Modifier state in source order), then resolves types and bodies.
// Top-level statements may grow during the resolve pass (array-struct
// synthesis, §4.2's Types section), so it walks by index.
func (r *Resolver) resolveModule(m *ast.ModuleNode) error {
	r.curModule = m
	r.scopes = []*scope{newScope()}
	r.sawDesc = false

	if err := r.registerTopLevel(m); err != nil {
		return err
	}
	for i := 0; i < len(m.Stmts); i++ {
		if err := r.resolveTopLevelStmt(m.Stmts[i]); err != nil {
			return err
		}
	}

	r.modules[m.Name] = r.scopes[0]
	r.scopes = nil
	return nil
}

func (r *Resolver) registerTopLevel(m *ast.ModuleNode) error {
	cur := ast.Modifier{}
	nextSlider := 0
	for _, s := range m.Stmts {
		switch stmt := s.(type) {
		case *ast.ModifierStmt:
			cur = ast.Modifier{Public: stmt.Public, External: stmt.External}
		case *ast.ImportStmt:
			if err := r.declare(stmt.ModuleName, stmt); err != nil {
				return err
			}
		case *ast.VarDeclStmt:
			stmt.Mod = cur
			if cur.External && stmt.ExternalName == "" {
				stmt.ExternalName = stmt.Name
			}
			if err := r.declare(stmt.Name, stmt); err != nil {
				return err
			}
		case *ast.FuncDeclStmt:
			stmt.Mod = cur
			if cur.External && stmt.ExternalName == "" {
				stmt.ExternalName = stmt.Name
			}
			if err := r.declare(stmt.Name, stmt); err != nil {
				return err
			}
		case *ast.StructDeclStmt:
			stmt.Mod = cur
			if len(stmt.Members) == 0 {
				return compileerr.At(compileerr.EmptyStruct, stmt.Ln, "struct %q has no members", stmt.Name)
			}
			if err := r.declare(stmt.Name, stmt); err != nil {
				return err
			}
		case *ast.InputStmt:
			if err := r.registerInput(stmt, cur, &nextSlider); err != nil {
				return err
			}
			if err := r.declare(stmt.Name, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveTopLevelStmt resolves the types/bodies of one already-registered
// top-level statement.
func (r *Resolver) resolveTopLevelStmt(s ast.Stmt) error {
	switch stmt := s.(type) {
	case *ast.StructDeclStmt:
		for _, mem := range stmt.Members {
			if err := r.resolveType(&mem.Ty, stmt.Ln); err != nil {
				return err
			}
		}
		return nil
	case *ast.VarDeclStmt:
		if err := r.resolveType(&stmt.Ty, stmt.Ln); err != nil {
			return err
		}
		if err := r.checkVisibility(stmt.Mod, stmt.Ty, stmt.Ln); err != nil {
			return err
		}
		if err := r.expandStruct(stmt); err != nil {
			return err
		}
		if stmt.Init != nil {
			x, err := r.resolveExpr(stmt.Init)
			if err != nil {
				return err
			}
			stmt.Init = x
		}
		return nil
	case *ast.FuncDeclStmt:
		return r.resolveFunc(stmt)
	case *ast.InputStmt:
		return r.resolveType(&stmt.Var.Ty, stmt.Ln)
	case *ast.SectionStmt:
		return r.resolveSection(stmt)
	case *ast.DescStmt:
		return r.resolveDesc(stmt)
	}
	return nil
}

func (r *Resolver) resolveFunc(fn *ast.FuncDeclStmt) error {
	if err := r.resolveType(&fn.ReturnTy, fn.Ln); err != nil {
		return err
	}
	if err := r.checkVisibility(fn.Mod, fn.ReturnTy, fn.Ln); err != nil {
		return err
	}
	r.pushScope()
	defer r.popScope()
	for _, p := range fn.Params {
		if err := r.resolveType(&p.Ty, p.Ln); err != nil {
			return err
		}
		if err := r.expandStruct(p); err != nil {
			return err
		}
		p.OwningFunc = fn
		p.DoNotOptimize = true
		if err := r.declare(p.Name, p); err != nil {
			return err
		}
	}
	prevFunc := r.curFunc
	r.curFunc = fn
	defer func() { r.curFunc = prevFunc }()
	return r.resolveBlock(fn.Block)
}

// resolveSection resolves a section body. @init's top-level declarations
// go into the module scope so every later section can read them; every
// other section gets a scope of its own.
func (r *Resolver) resolveSection(sec *ast.SectionStmt) error {
	if sec.Kind != ast.SectionInit {
		r.pushScope()
		defer r.popScope()
	}
	return r.resolveBlockStmts(sec.Block, sec)
}
