package resolver

import (
	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// resolveBlock resolves a function body within the scope resolveFunc has
// already pushed for its parameters (no section: a function isn't tied to
// the one section that happens to call it).
func (r *Resolver) resolveBlock(b *ast.BlockStmt) error {
	r.pushScope()
	defer r.popScope()
	return r.resolveBlockStmts(b, nil)
}

func (r *Resolver) resolveBlockStmts(b *ast.BlockStmt, sec *ast.SectionStmt) error {
	for _, s := range b.Stmts {
		if err := r.resolveStmt(s, sec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveStmt(s ast.Stmt, sec *ast.SectionStmt) error {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		if err := r.resolveType(&stmt.Ty, stmt.Ln); err != nil {
			return err
		}
		stmt.Section = sec
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
		return r.declare(stmt.Name, stmt)

	case *ast.ExprStmt:
		x, err := r.resolveExpr(stmt.X)
		if err != nil {
			return err
		}
		stmt.X = x
		stmt.Section = sec
		return nil

	case *ast.BlockStmt:
		r.pushScope()
		defer r.popScope()
		return r.resolveBlockStmts(stmt, sec)

	case *ast.IfStmt:
		cond, err := r.resolveExpr(stmt.Cond)
		if err != nil {
			return err
		}
		stmt.Cond = cond
		if err := r.resolveNested(stmt.Then, sec); err != nil {
			return err
		}
		if stmt.Else != nil {
			if err := r.resolveNested(stmt.Else, sec); err != nil {
				return err
			}
		}
		return nil

	case *ast.WhileStmt:
		cond, err := r.resolveExpr(stmt.Cond)
		if err != nil {
			return err
		}
		stmt.Cond = cond
		r.loopDepth++
		err = r.resolveNested(stmt.Body, sec)
		r.loopDepth--
		return err

	case *ast.ForStmt:
		r.pushScope()
		defer r.popScope()
		if stmt.Init != nil {
			if err := r.resolveStmt(stmt.Init, sec); err != nil {
				return err
			}
		}
		if stmt.Cond != nil {
			cond, err := r.resolveExpr(stmt.Cond)
			if err != nil {
				return err
			}
			stmt.Cond = cond
		}
		if stmt.Incr != nil {
			if err := r.resolveStmt(stmt.Incr, sec); err != nil {
				return err
			}
		}
		r.loopDepth++
		err := r.resolveBlockStmts(stmt.Body, sec)
		r.loopDepth--
		return err

	case *ast.LoopControlStmt:
		if r.loopDepth == 0 {
			kind := compileerr.BreakOutsideLoop
			word := "break"
			if stmt.Kind == ast.LoopContinue {
				kind, word = compileerr.ContinueOutsideLoop, "continue"
			}
			return compileerr.At(kind, stmt.Ln, "%s outside of a loop", word)
		}
		return nil

	case *ast.ReturnStmt:
		if r.curFunc == nil {
			return compileerr.At(compileerr.ReturnOutsideFunction, stmt.Ln, "return outside of a function")
		}
		stmt.EnclosingFunc = r.curFunc
		void := isVoidType(r.curFunc.ReturnTy)
		if stmt.Value != nil {
			if void {
				return compileerr.At(compileerr.VoidReturnWithValue, stmt.Ln, "function %q is void and cannot return a value", r.curFunc.Name)
			}
			x, err := r.resolveExpr(stmt.Value)
			if err != nil {
				return err
			}
			stmt.Value = x
			return nil
		}
		if !void {
			return compileerr.At(compileerr.NonVoidReturnWithoutValue, stmt.Ln, "function %q must return a value", r.curFunc.Name)
		}
		return nil

	case *ast.ModifierStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "modifier statement outside of module scope")
	case *ast.DescStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "desc block outside of module scope")
	case *ast.InputStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "input declaration outside of module scope")
	case *ast.StructDeclStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "struct declaration outside of module scope")
	case *ast.FuncDeclStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "function declaration outside of module scope")
	case *ast.ImportStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "import outside of module scope")
	case *ast.SectionStmt:
		return compileerr.At(compileerr.ModifierInNonGlobalScope, stmt.Ln, "section declaration outside of module scope")
	}
	return nil
}

// resolveNested resolves a sub-block (if/while/for body) in its own
// pushed scope, restoring the scope stack even on error.
func (r *Resolver) resolveNested(b *ast.BlockStmt, sec *ast.SectionStmt) error {
	r.pushScope()
	defer r.popScope()
	return r.resolveBlockStmts(b, sec)
}

func isVoidType(ty ast.Type) bool {
	ma, ok := ty.Expr.(*ast.MemberAccessExpr)
	return ok && len(ma.Idents) == 1 && ma.Idents[0] == "void"
}
