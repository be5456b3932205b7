package passes

import "github.com/reaper-jsfx/jsfxc/ast"

// UseAnalysis returns the §4.6 pass group: variable-deps, copy-
// propagation, mark-unused, remove-unused, and function-inlining, run
// as one consolidated walk followed by the two cleanup sweeps. The
// five stages share the same traversal shape (walk each section in
// execution order, recursing into called functions, visiting a while
// body twice to approximate a fixed point), so they're implemented as
// one pass object rather than five separate re-traversals of the tree.
func UseAnalysis() ast.Pass {
	return ast.PassFunc{N: "use-analysis", F: func(prog *ast.AST) error {
		ua := &useAnalysis{}
		return ua.run(prog)
	}}
}

func assignmentVar(s ast.Stmt) *ast.VarDeclStmt {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		return x
	case *ast.ExprStmt:
		if bin, ok := x.X.(*ast.BinaryExpr); ok && bin.Op == ast.OpAssign {
			if ma, ok := bin.Left.(*ast.MemberAccessExpr); ok && ma.Base == nil && ma.VarRef != nil {
				return ma.VarRef
			}
		}
	}
	return nil
}

func assignmentRHS(s ast.Stmt) ast.Expr {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		return x.Init
	case *ast.ExprStmt:
		if bin, ok := x.X.(*ast.BinaryExpr); ok && bin.Op == ast.OpAssign {
			return bin.Right
		}
	}
	return nil
}

func bumpUseCount(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		x.UseCount++
	case *ast.ExprStmt:
		x.UseCount++
	}
}

func useCountOf(s ast.Stmt) int {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		return x.UseCount
	case *ast.ExprStmt:
		return x.UseCount
	}
	return 0
}

func setUnused(s ast.Stmt, keepRight bool) {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		x.Unused, x.KeepRight = true, keepRight
	case *ast.ExprStmt:
		x.Unused, x.KeepRight = true, keepRight
	}
}

func isUnused(s ast.Stmt) (unused, keepRight, doNotOptimize bool) {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		return x.Unused, x.KeepRight, x.DoNotOptimize
	case *ast.ExprStmt:
		return x.Unused, x.KeepRight, x.DoNotOptimize
	}
	return false, false, false
}

func setDoNotOptimize(s ast.Stmt) {
	switch x := s.(type) {
	case *ast.VarDeclStmt:
		x.DoNotOptimize = true
	case *ast.ExprStmt:
		x.DoNotOptimize = true
	}
}

type env struct {
	defs map[*ast.VarDeclStmt][]ast.Stmt
	copy map[*ast.VarDeclStmt]ast.Expr
}

func newEnv() *env {
	return &env{defs: map[*ast.VarDeclStmt][]ast.Stmt{}, copy: map[*ast.VarDeclStmt]ast.Expr{}}
}

func (e *env) clone() *env {
	cp := newEnv()
	for k, v := range e.defs {
		cp.defs[k] = append([]ast.Stmt(nil), v...)
	}
	for k, v := range e.copy {
		cp.copy[k] = v
	}
	return cp
}

// mergeWith merges other into e (union of defs, intersection-by-equality
// of copy candidates), modeling the join point after an if/else.
func (e *env) mergeWith(other *env) {
	for v, stmts := range other.defs {
		existing := e.defs[v]
		seen := map[ast.Stmt]bool{}
		for _, s := range existing {
			seen[s] = true
		}
		for _, s := range stmts {
			if !seen[s] {
				existing = append(existing, s)
			}
		}
		e.defs[v] = existing
	}
	for v, expr := range e.copy {
		if other.copy[v] != expr {
			delete(e.copy, v)
		}
	}
	for v := range other.copy {
		if _, ok := e.copy[v]; !ok {
			delete(e.copy, v)
		}
	}
}

func isSimpleExpr(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		return true
	case *ast.MemberAccessExpr:
		return x.Base == nil && x.VarRef != nil
	}
	return false
}

func exprHasSideEffects(e ast.Expr) bool {
	switch x := e.(type) {
	case nil:
		return false
	case *ast.FuncCallExpr:
		return true
	case *ast.BinaryExpr:
		if x.Op == ast.OpAssign {
			return true
		}
		return exprHasSideEffects(x.Left) || exprHasSideEffects(x.Right)
	case *ast.UnaryExpr:
		return exprHasSideEffects(x.X)
	case *ast.SubscriptExpr:
		return exprHasSideEffects(x.Base) || exprHasSideEffects(x.Index)
	case *ast.MemberAccessExpr:
		return exprHasSideEffects(x.Base)
	case *ast.BlockExpr:
		for _, s := range x.Block.Stmts {
			if es, ok := s.(*ast.ExprStmt); ok && exprHasSideEffects(es.X) {
				return true
			}
		}
	}
	return false
}

type useAnalysis struct {
	active map[*ast.FuncDeclStmt]bool
}

// sectionOrder gives sections a fixed execution order within a module,
// approximating the host's real calling sequence (@init once, then the
// other sections repeatedly) well enough that a value written in @init
// and read in, say, @sample is correctly seen as used across sections.
var sectionOrder = map[ast.SectionKind]int{
	ast.SectionInit:      0,
	ast.SectionSlider:    1,
	ast.SectionBlock:     2,
	ast.SectionSample:    3,
	ast.SectionSerialize: 4,
	ast.SectionGFX:       5,
}

func (ua *useAnalysis) run(prog *ast.AST) error {
	ua.active = map[*ast.FuncDeclStmt]bool{}
	for _, m := range prog.Modules {
		var sections []*ast.SectionStmt
		for _, s := range m.Stmts {
			if sec, ok := s.(*ast.SectionStmt); ok && sec.Block != nil {
				sections = append(sections, sec)
			}
		}
		for i := 1; i < len(sections); i++ {
			for j := i; j > 0 && sectionOrder[sections[j-1].Kind] > sectionOrder[sections[j].Kind]; j-- {
				sections[j-1], sections[j] = sections[j], sections[j-1]
			}
		}
		e := newEnv()
		for _, sec := range sections {
			ua.walkBlock(sec.Block, e, sec, nil)
		}
	}

	for _, m := range prog.Modules {
		ua.markUnused(m)
	}
	for _, m := range prog.Modules {
		removeUnused(m)
	}
	inlineBlockExpressionFuncs(prog)
	return nil
}

func (ua *useAnalysis) walkBlock(b *ast.BlockStmt, e *env, sec *ast.SectionStmt, fn *ast.FuncDeclStmt) {
	for _, s := range b.Stmts {
		ua.walkStmt(s, e, sec, fn)
	}
}

func (ua *useAnalysis) walkStmt(s ast.Stmt, e *env, sec *ast.SectionStmt, fn *ast.FuncDeclStmt) {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		if stmt.Init != nil {
			ua.walkExpr(stmt.Init, e, sec, fn)
		}
		if stmt.OwningFunc != nil || stmt.InputStmt != nil || stmt.ExternalName != "" {
			setDoNotOptimize(stmt)
		}
		e.defs[stmt] = []ast.Stmt{stmt}
		if stmt.Init != nil && isSimpleExpr(stmt.Init) {
			e.copy[stmt] = stmt.Init
		} else {
			delete(e.copy, stmt)
		}

	case *ast.ExprStmt:
		if v := assignmentVar(stmt); v != nil {
			rhs := assignmentRHS(stmt)
			ua.walkExpr(rhs, e, sec, fn)
			if v.ExternalName != "" {
				setDoNotOptimize(stmt)
			}
			e.defs[v] = []ast.Stmt{stmt}
			if isSimpleExpr(rhs) {
				e.copy[v] = rhs
			} else {
				delete(e.copy, v)
			}
		} else {
			ua.walkExpr(stmt.X, e, sec, fn)
		}

	case *ast.BlockStmt:
		ua.walkBlock(stmt, e, sec, fn)

	case *ast.IfStmt:
		ua.walkExpr(stmt.Cond, e, sec, fn)
		thenEnv := e.clone()
		ua.walkBlock(stmt.Then, thenEnv, sec, fn)
		elseEnv := e.clone()
		if stmt.Else != nil {
			ua.walkBlock(stmt.Else, elseEnv, sec, fn)
		}
		merged := thenEnv
		merged.mergeWith(elseEnv)
		*e = *merged

	case *ast.WhileStmt:
		ua.walkExpr(stmt.Cond, e, sec, fn)
		ua.walkBlock(stmt.Body, e, sec, fn)
		ua.walkExpr(stmt.Cond, e, sec, fn)
		ua.walkBlock(stmt.Body, e, sec, fn)

	case *ast.ForStmt:
		if stmt.Init != nil {
			ua.walkStmt(stmt.Init, e, sec, fn)
		}
		if stmt.Cond != nil {
			ua.walkExpr(stmt.Cond, e, sec, fn)
		}
		ua.walkBlock(stmt.Body, e, sec, fn)
		if stmt.Incr != nil {
			ua.walkStmt(stmt.Incr, e, sec, fn)
		}
		if stmt.Cond != nil {
			ua.walkExpr(stmt.Cond, e, sec, fn)
		}
		ua.walkBlock(stmt.Body, e, sec, fn)
	}
}

func (ua *useAnalysis) walkExpr(x ast.Expr, e *env, sec *ast.SectionStmt, fn *ast.FuncDeclStmt) ast.Expr {
	switch expr := x.(type) {
	case *ast.MemberAccessExpr:
		if expr.Base == nil && expr.VarRef != nil {
			v := expr.VarRef
			for _, d := range e.defs[v] {
				bumpUseCount(d)
			}
			if val, ok := e.copy[v]; ok {
				if v.OwningFunc == nil || v.OwningFunc == fn {
					return val
				}
			}
			return expr
		}
		if expr.Base != nil {
			expr.Base = ua.walkExpr(expr.Base, e, sec, fn)
		}
		return expr

	case *ast.BinaryExpr:
		if expr.Op == ast.OpAssign {
			expr.Right = ua.walkExpr(expr.Right, e, sec, fn)
			return expr
		}
		expr.Left = ua.walkExpr(expr.Left, e, sec, fn)
		expr.Right = ua.walkExpr(expr.Right, e, sec, fn)
		return expr

	case *ast.UnaryExpr:
		expr.X = ua.walkExpr(expr.X, e, sec, fn)
		return expr

	case *ast.SubscriptExpr:
		expr.Base = ua.walkExpr(expr.Base, e, sec, fn)
		expr.Index = ua.walkExpr(expr.Index, e, sec, fn)
		return expr

	case *ast.FuncCallExpr:
		expr.Base = ua.walkExpr(expr.Base, e, sec, fn)
		for i, a := range expr.Args {
			expr.Args[i] = ua.walkExpr(a, e, sec, fn)
		}
		if ma, ok := expr.Base.(*ast.MemberAccessExpr); ok && ma.FuncRef != nil {
			callee := ma.FuncRef
			callee.UseCount++
			if !callee.Mod.External && !ua.active[callee] && callee.Block != nil {
				ua.active[callee] = true
				ua.walkBlock(callee.Block, e, sec, callee)
				ua.active[callee] = false
			}
		}
		return expr

	case *ast.BlockExpr:
		ua.walkBlock(expr.Block, e, sec, fn)
		return expr
	}
	return x
}

// markUnused implements the mark-unused pass: zero-use, no-effect
// assignments are dropped; zero-use assignments with side effects keep
// their rhs as a bare expression statement.
func (ua *useAnalysis) markUnused(m *ast.ModuleNode) {
	for _, s := range m.Stmts {
		switch stmt := s.(type) {
		case *ast.FuncDeclStmt:
			if stmt.Block != nil {
				markUnusedBlock(stmt.Block)
			}
		case *ast.SectionStmt:
			if stmt.Block != nil {
				markUnusedBlock(stmt.Block)
			}
		}
	}
}

func markUnusedBlock(b *ast.BlockStmt) {
	for _, s := range b.Stmts {
		markUnusedStmt(s)
	}
}

func markUnusedStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt, *ast.ExprStmt:
		if assignmentVar(s) == nil {
			return
		}
		_, _, doNotOptimize := isUnused(s)
		if doNotOptimize {
			return
		}
		if useCountOf(s) == 0 {
			rhs := assignmentRHS(s)
			setUnused(s, exprHasSideEffects(rhs))
		}
	case *ast.BlockStmt:
		markUnusedBlock(stmt)
	case *ast.IfStmt:
		markUnusedBlock(stmt.Then)
		if stmt.Else != nil {
			markUnusedBlock(stmt.Else)
		}
	case *ast.WhileStmt:
		markUnusedBlock(stmt.Body)
	case *ast.ForStmt:
		markUnusedBlock(stmt.Body)
	}
}

// removeUnused implements the remove-unused pass over every function
// and section body in m, plus dead top-level function removal.
func removeUnused(m *ast.ModuleNode) {
	for _, s := range m.Stmts {
		switch stmt := s.(type) {
		case *ast.FuncDeclStmt:
			if stmt.Block != nil {
				removeUnusedBlock(stmt.Block)
			}
		case *ast.SectionStmt:
			if stmt.Block != nil {
				removeUnusedBlock(stmt.Block)
			}
		}
	}

	m.Stmts = ast.FilterStmts(m.Stmts, func(s ast.Stmt) bool {
		fn, ok := s.(*ast.FuncDeclStmt)
		if !ok {
			return true
		}
		if fn.Mod.External || fn.Name == "" {
			return true
		}
		if fn.IsBlockExpression {
			return fn.UseCount != 0
		}
		return fn.UseCount != 0 || isEntryPoint(fn)
	})
}

// isEntryPoint reports whether fn is reachable other than by a direct
// call the use-analysis walk would have counted — currently only
// exported/public functions, which an importing module may call
// without this module's sections ever doing so.
func isEntryPoint(fn *ast.FuncDeclStmt) bool {
	return fn.Mod.Public
}

func removeUnusedBlock(b *ast.BlockStmt) {
	out := make([]ast.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		ns := removeUnusedStmt(s)
		out = append(out, ns...)
	}
	b.Stmts = out
}

func removeUnusedStmt(s ast.Stmt) []ast.Stmt {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt, *ast.ExprStmt:
		if assignmentVar(s) != nil {
			unused, keepRight, _ := isUnused(s)
			if unused {
				if !keepRight {
					return nil
				}
				rhs := assignmentRHS(s)
				return []ast.Stmt{&ast.ExprStmt{X: rhs, Ln: s.Line()}}
			}
		}
		return []ast.Stmt{s}
	case *ast.BlockStmt:
		removeUnusedBlock(stmt)
		return []ast.Stmt{stmt}
	case *ast.IfStmt:
		removeUnusedBlock(stmt.Then)
		if stmt.Else != nil {
			removeUnusedBlock(stmt.Else)
		}
		return []ast.Stmt{stmt}
	case *ast.WhileStmt:
		removeUnusedBlock(stmt.Body)
		return []ast.Stmt{stmt}
	case *ast.ForStmt:
		removeUnusedBlock(stmt.Body)
		return []ast.Stmt{stmt}
	}
	return []ast.Stmt{s}
}

// inlineBlockExpressionFuncs implements the function-inlining pass:
// every isBlockExpression function called exactly once is inlined at
// its call site and the declaration dropped.
func inlineBlockExpressionFuncs(prog *ast.AST) {
	for _, m := range prog.Modules {
		for _, s := range m.Stmts {
			var block *ast.BlockStmt
			switch stmt := s.(type) {
			case *ast.FuncDeclStmt:
				block = stmt.Block
			case *ast.SectionStmt:
				block = stmt.Block
			default:
				continue
			}
			if block != nil {
				inlineInBlock(block)
			}
		}
		m.Stmts = ast.FilterStmts(m.Stmts, func(s ast.Stmt) bool {
			fn, ok := s.(*ast.FuncDeclStmt)
			return !ok || !(fn.IsBlockExpression && fn.UseCount == 1)
		})
	}
}

func inlineInBlock(b *ast.BlockStmt) {
	for i, s := range b.Stmts {
		b.Stmts[i] = inlineInStmt(s)
	}
}

func inlineInStmt(s ast.Stmt) ast.Stmt {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		if stmt.Init != nil {
			stmt.Init = inlineInExpr(stmt.Init)
		}
	case *ast.ExprStmt:
		stmt.X = inlineInExpr(stmt.X)
	case *ast.BlockStmt:
		inlineInBlock(stmt)
	case *ast.IfStmt:
		stmt.Cond = inlineInExpr(stmt.Cond)
		inlineInBlock(stmt.Then)
		if stmt.Else != nil {
			inlineInBlock(stmt.Else)
		}
	case *ast.WhileStmt:
		stmt.Cond = inlineInExpr(stmt.Cond)
		inlineInBlock(stmt.Body)
	case *ast.ForStmt:
		inlineInBlock(stmt.Body)
	}
	return s
}

func inlineInExpr(x ast.Expr) ast.Expr {
	switch expr := x.(type) {
	case *ast.FuncCallExpr:
		expr.Base = inlineInExpr(expr.Base)
		for i, a := range expr.Args {
			expr.Args[i] = inlineInExpr(a)
		}
		if ma, ok := expr.Base.(*ast.MemberAccessExpr); ok && ma.FuncRef != nil {
			fn := ma.FuncRef
			if fn.IsBlockExpression && fn.UseCount == 1 {
				inlineInBlock(fn.Block)
				return &ast.BlockExpr{ResultType: fn.ReturnTy, Block: fn.Block, Ln: expr.Ln}
			}
		}
		return expr
	case *ast.BinaryExpr:
		expr.Left = inlineInExpr(expr.Left)
		expr.Right = inlineInExpr(expr.Right)
		return expr
	case *ast.UnaryExpr:
		expr.X = inlineInExpr(expr.X)
		return expr
	case *ast.SubscriptExpr:
		expr.Base = inlineInExpr(expr.Base)
		expr.Index = inlineInExpr(expr.Index)
		return expr
	case *ast.MemberAccessExpr:
		if expr.Base != nil {
			expr.Base = inlineInExpr(expr.Base)
		}
		return expr
	case *ast.BlockExpr:
		inlineInBlock(expr.Block)
		return expr
	}
	return x
}
