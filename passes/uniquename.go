package passes

import "github.com/reaper-jsfx/jsfxc/ast"

// UniqueName returns the §4.7 pass: assigns a strictly monotonic integer,
// starting at 1, to every VarDeclStmt and FuncDeclStmt in source order
// across the whole program. The writer appends this integer to each
// declaration's source name to keep the flattened, single-namespace
// JSFX output collision-free.
func UniqueName() ast.Pass {
	return ast.PassFunc{N: "unique-name", F: func(prog *ast.AST) error {
		un := &uniqueName{next: 1}
		for _, m := range prog.Modules {
			for _, s := range m.Stmts {
				un.visitStmt(s)
			}
		}
		return nil
	}}
}

type uniqueName struct{ next int }

func (un *uniqueName) take() int {
	n := un.next
	un.next++
	return n
}

func (un *uniqueName) visitStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		un.visitVarDecl(stmt)
		if stmt.Init != nil {
			un.visitExpr(stmt.Init)
		}
	case *ast.FuncDeclStmt:
		stmt.UniqueName = un.take()
		for _, p := range stmt.Params {
			un.visitVarDecl(p)
		}
		if stmt.Block != nil {
			un.visitBlock(stmt.Block)
		}
	case *ast.StructDeclStmt:
		for _, member := range stmt.Members {
			member.UniqueName = un.take()
		}
	case *ast.InputStmt:
		if stmt.Var != nil {
			stmt.Var.UniqueName = un.take()
		}
	case *ast.SectionStmt:
		if stmt.Block != nil {
			un.visitBlock(stmt.Block)
		}
	case *ast.ExprStmt:
		un.visitExpr(stmt.X)
	case *ast.BlockStmt:
		un.visitBlock(stmt)
	case *ast.IfStmt:
		un.visitExpr(stmt.Cond)
		un.visitBlock(stmt.Then)
		if stmt.Else != nil {
			un.visitBlock(stmt.Else)
		}
	case *ast.WhileStmt:
		un.visitExpr(stmt.Cond)
		un.visitBlock(stmt.Body)
	case *ast.ForStmt:
		if stmt.Init != nil {
			un.visitStmt(stmt.Init)
		}
		if stmt.Cond != nil {
			un.visitExpr(stmt.Cond)
		}
		un.visitBlock(stmt.Body)
		if stmt.Incr != nil {
			un.visitStmt(stmt.Incr)
		}
	}
}

// visitVarDecl assigns a declaration its uniqueName and recurses into
// any per-instance struct members expandStruct synthesized for it
// (resolver/types.go), so a struct-typed parameter or nested member
// gets the same collision-free numbering as an ordinary local.
func (un *uniqueName) visitVarDecl(v *ast.VarDeclStmt) {
	v.UniqueName = un.take()
	for _, member := range v.StructMembers {
		un.visitVarDecl(member)
	}
}

func (un *uniqueName) visitBlock(b *ast.BlockStmt) {
	for _, s := range b.Stmts {
		un.visitStmt(s)
	}
}

func (un *uniqueName) visitExpr(x ast.Expr) {
	switch expr := x.(type) {
	case *ast.BinaryExpr:
		un.visitExpr(expr.Left)
		un.visitExpr(expr.Right)
	case *ast.UnaryExpr:
		un.visitExpr(expr.X)
	case *ast.SubscriptExpr:
		un.visitExpr(expr.Base)
		un.visitExpr(expr.Index)
	case *ast.FuncCallExpr:
		un.visitExpr(expr.Base)
		for _, a := range expr.Args {
			un.visitExpr(a)
		}
	case *ast.MemberAccessExpr:
		// A declaration that remove-unused dropped (or a struct member of
		// one) can still be referenced; it is numbered where first seen.
		if expr.VarRef != nil && expr.VarRef.UniqueName < 0 {
			un.visitVarDecl(expr.VarRef)
		}
		if expr.Base != nil {
			un.visitExpr(expr.Base)
		}
	case *ast.BlockExpr:
		un.visitBlock(expr.Block)
	}
}
