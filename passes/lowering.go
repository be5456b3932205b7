package passes

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
)

// Lowering returns the §4.5 pass: lowers for-loops to while-loops,
// lifts chained assignments into block expressions, hoists a function
// call or block expression used as a MemberAccess base into a named
// temporary, and finally outlines every remaining BlockExpr into a
// synthetic zero-argument function.
func Lowering() ast.Pass {
	return ast.PassFunc{N: "lowering", F: func(prog *ast.AST) error {
		lw := &lowering{f: ast.NewFactory()}
		return lw.run(prog)
	}}
}

type lowering struct {
	f        *ast.Factory
	nextID   int
	curMod   *ast.ModuleNode
	outlined []*ast.FuncDeclStmt
}

func (lw *lowering) fresh(prefix string) string {
	lw.nextID++
	return fmt.Sprintf("%s_%d", prefix, lw.nextID)
}

func (lw *lowering) run(prog *ast.AST) error {
	for _, m := range prog.Modules {
		lw.curMod = m
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
			if block == nil {
				continue
			}
			lw.outlined = nil
			if err := lw.lowerForLoops(block); err != nil {
				return err
			}
			if err := lw.lowerExprs(block); err != nil {
				return err
			}
			if len(lw.outlined) > 0 {
				prefix := make([]ast.Stmt, len(lw.outlined))
				for i, fn := range lw.outlined {
					prefix[i] = fn
				}
				m.Stmts = append(prefix, m.Stmts...)
			}
		}
	}
	return nil
}

// --- For → while ---

func (lw *lowering) lowerForLoops(b *ast.BlockStmt) error {
	out := make([]ast.Stmt, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		ns, err := lw.lowerForLoopStmt(s)
		if err != nil {
			return err
		}
		out = append(out, ns...)
	}
	b.Stmts = out
	return nil
}

func (lw *lowering) lowerForLoopStmt(s ast.Stmt) ([]ast.Stmt, error) {
	switch stmt := s.(type) {
	case *ast.ForStmt:
		return lw.lowerFor(stmt)
	case *ast.IfStmt:
		if err := lw.lowerForLoops(stmt.Then); err != nil {
			return nil, err
		}
		if stmt.Else != nil {
			if err := lw.lowerForLoops(stmt.Else); err != nil {
				return nil, err
			}
		}
		return []ast.Stmt{stmt}, nil
	case *ast.WhileStmt:
		if err := lw.lowerForLoops(stmt.Body); err != nil {
			return nil, err
		}
		return []ast.Stmt{stmt}, nil
	case *ast.BlockStmt:
		if err := lw.lowerForLoops(stmt); err != nil {
			return nil, err
		}
		return []ast.Stmt{stmt}, nil
	}
	return []ast.Stmt{s}, nil
}

func (lw *lowering) lowerFor(fs *ast.ForStmt) ([]ast.Stmt, error) {
	ln := fs.Ln

	var incr ast.Stmt
	if fs.Incr != nil {
		incr = fs.Incr
	}
	if incr != nil {
		injectIncrBeforeContinue(fs.Body, incr)
	}
	if err := lw.lowerForLoops(fs.Body); err != nil {
		return nil, err
	}

	if incr != nil {
		fs.Body.Stmts = append(fs.Body.Stmts, incr)
	}

	cond := fs.Cond
	if cond == nil {
		cond = &ast.LiteralExpr{Kind: ast.LitBool, Payload: "true", Ln: ln}
	}
	w := &ast.WhileStmt{Cond: cond, Body: fs.Body, Ln: ln}

	var result []ast.Stmt
	if fs.Init != nil {
		result = append(result, fs.Init)
	}
	result = append(result, w)
	return result, nil
}

// injectIncrBeforeContinue rewrites every `continue` reachable from b
// without crossing into a nested loop into `{ incr; continue; }`, so the
// increment still fires on every iteration path once the for-loop's own
// trailing increment is hoisted out of line.
func injectIncrBeforeContinue(b *ast.BlockStmt, incr ast.Stmt) {
	for i, s := range b.Stmts {
		switch stmt := s.(type) {
		case *ast.LoopControlStmt:
			if stmt.Kind == ast.LoopContinue {
				b.Stmts[i] = &ast.BlockStmt{Stmts: []ast.Stmt{cloneStmt(incr), stmt}, Ln: stmt.Ln}
			}
		case *ast.IfStmt:
			injectIncrBeforeContinue(stmt.Then, incr)
			if stmt.Else != nil {
				injectIncrBeforeContinue(stmt.Else, incr)
			}
		case *ast.BlockStmt:
			injectIncrBeforeContinue(stmt, incr)
		}
	}
}

// --- Chained assignment / function-call member access / block-expr ---

func (lw *lowering) lowerExprs(b *ast.BlockStmt) error {
	for i, s := range b.Stmts {
		ns, err := lw.lowerExprStmt(s)
		if err != nil {
			return err
		}
		b.Stmts[i] = ns
	}
	return nil
}

func (lw *lowering) lowerExprStmt(s ast.Stmt) (ast.Stmt, error) {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		if stmt.Init != nil {
			x, err := lw.lowerExpr(stmt.Init)
			if err != nil {
				return nil, err
			}
			stmt.Init = x
		}
		return stmt, nil
	case *ast.ExprStmt:
		x, err := lw.lowerExpr(stmt.X)
		if err != nil {
			return nil, err
		}
		stmt.X = x
		return stmt, nil
	case *ast.BlockStmt:
		if err := lw.lowerExprs(stmt); err != nil {
			return nil, err
		}
		return stmt, nil
	case *ast.IfStmt:
		cond, err := lw.lowerExpr(stmt.Cond)
		if err != nil {
			return nil, err
		}
		stmt.Cond = cond
		if err := lw.lowerExprs(stmt.Then); err != nil {
			return nil, err
		}
		if stmt.Else != nil {
			if err := lw.lowerExprs(stmt.Else); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	case *ast.WhileStmt:
		cond, err := lw.lowerExpr(stmt.Cond)
		if err != nil {
			return nil, err
		}
		stmt.Cond = cond
		if err := lw.lowerExprs(stmt.Body); err != nil {
			return nil, err
		}
		return stmt, nil
	}
	return s, nil
}

// lowerExpr rewrites e bottom-up: children are lowered first, then e
// itself is checked for a chained assignment, a function-call/block-expr
// member-access base, or (last) outlining if it is itself a BlockExpr.
func (lw *lowering) lowerExpr(e ast.Expr) (ast.Expr, error) {
	switch x := e.(type) {
	case *ast.UnaryExpr:
		inner, err := lw.lowerExpr(x.X)
		if err != nil {
			return nil, err
		}
		x.X = inner
		return x, nil

	case *ast.BinaryExpr:
		left, err := lw.lowerExpr(x.Left)
		if err != nil {
			return nil, err
		}
		x.Left = left
		right, err := lw.lowerExpr(x.Right)
		if err != nil {
			return nil, err
		}
		x.Right = right
		if x.Op == ast.OpAssign {
			if inner, ok := x.Right.(*ast.BinaryExpr); ok && inner.Op == ast.OpAssign {
				lifted := &ast.BlockExpr{
					ResultType: targetType(inner.Left),
					Block: &ast.BlockStmt{Stmts: []ast.Stmt{
						&ast.ExprStmt{X: inner, Ln: inner.Ln},
						&ast.ExprStmt{X: cloneLValue(inner.Left), Ln: inner.Ln},
					}, Ln: inner.Ln},
					Ln: inner.Ln,
				}
				outlined, err := lw.outlineBlockExpr(lifted)
				if err != nil {
					return nil, err
				}
				x.Right = outlined
			}
		}
		return x, nil

	case *ast.SubscriptExpr:
		base, err := lw.lowerExpr(x.Base)
		if err != nil {
			return nil, err
		}
		x.Base = base
		idx, err := lw.lowerExpr(x.Index)
		if err != nil {
			return nil, err
		}
		x.Index = idx
		return x, nil

	case *ast.FuncCallExpr:
		base, err := lw.lowerExpr(x.Base)
		if err != nil {
			return nil, err
		}
		x.Base = base
		for i, a := range x.Args {
			ca, err := lw.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			x.Args[i] = ca
		}
		return x, nil

	case *ast.MemberAccessExpr:
		if x.Base == nil {
			return x, nil
		}
		base, err := lw.lowerExpr(x.Base)
		if err != nil {
			return nil, err
		}
		x.Base = base
		switch base.(type) {
		case *ast.FuncCallExpr, *ast.BlockExpr:
			return lw.hoistMemberBase(x)
		}
		return x, nil

	case *ast.BlockExpr:
		if err := lw.lowerExprs(x.Block); err != nil {
			return nil, err
		}
		return lw.outlineBlockExpr(x)
	}
	return e, nil
}

func (lw *lowering) hoistMemberBase(ma *ast.MemberAccessExpr) (ast.Expr, error) {
	ln := ma.Ln
	tmp := &ast.VarDeclStmt{
		Ty:         anyType(),
		Name:       lw.fresh("member_base"),
		Init:       ma.Base,
		UniqueName: -1,
		Ln:         ln,
	}
	ma.Base = lw.f.Ident(tmp, ln)
	lifted := &ast.BlockExpr{
		ResultType: anyType(),
		Block: &ast.BlockStmt{Stmts: []ast.Stmt{
			tmp,
			&ast.ExprStmt{X: ma, Ln: ln},
		}, Ln: ln},
		Ln: ln,
	}
	return lw.outlineBlockExpr(lifted)
}

func (lw *lowering) outlineBlockExpr(be *ast.BlockExpr) (ast.Expr, error) {
	ln := be.Ln
	fn := &ast.FuncDeclStmt{
		ReturnTy:          be.ResultType,
		Name:              lw.fresh("block_expression"),
		Block:             be.Block,
		IsBlockExpression: true,
		UniqueName:        -1,
		Ln:                ln,
	}
	lw.outlined = append(lw.outlined, fn)
	return &ast.FuncCallExpr{Base: lw.f.IdentFunc(fn, ln), Ln: ln}, nil
}

func targetType(target ast.Expr) ast.Type {
	switch t := target.(type) {
	case *ast.MemberAccessExpr:
		if t.VarRef != nil {
			return t.VarRef.Ty
		}
	}
	return anyType()
}

func anyType() ast.Type {
	return ast.Type{Expr: &ast.MemberAccessExpr{Idents: []string{"any"}}}
}

// cloneStmt shallow-copies a statement so the same increment can be
// spliced into more than one continue site without two parents owning
// the same node (§3.2's back-reference discipline).
func cloneStmt(s ast.Stmt) ast.Stmt {
	switch x := s.(type) {
	case *ast.ExprStmt:
		cp := *x
		return &cp
	case *ast.VarDeclStmt:
		cp := *x
		return &cp
	case *ast.BlockStmt:
		cp := *x
		return &cp
	}
	return s
}
