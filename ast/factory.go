package ast

// Factory builds synthesized nodes with the bookkeeping every pass needs
// to get right: a fresh UniqueName sentinel, the originating line number
// carried forward, and sensible zero-value flags. The control-flow pass
// builds its flag variables through a Factory. The lowering and
// type-conversion passes use it for identifier references but build their
// synthesized declarations (outlined functions, temporaries) as node
// literals, setting the UniqueName sentinel by hand.
type Factory struct{}

// NewFactory returns a Factory. It carries no state; it exists so call
// sites read `f.BoolVar(...)` instead of a bare package function, matching
// the rest of the pipeline's style of small per-pass helper structs.
func NewFactory() *Factory { return &Factory{} }

func boolLiteral(v bool, ln int) Expr {
	payload := "false"
	if v {
		payload = "true"
	}
	return &LiteralExpr{Kind: LitBool, Payload: payload, Ln: ln}
}

// BoolVar synthesizes `name: bool = init` at the given line.
func (f *Factory) BoolVar(name string, init bool, ln int) *VarDeclStmt {
	return &VarDeclStmt{
		Ty:         Type{Expr: &LiteralExpr{Kind: LitPrimitiveType, Payload: "bool", Ln: ln}},
		Name:       name,
		Init:       boolLiteral(init, ln),
		UniqueName: -1,
		Ln:         ln,
	}
}

// UninitVar synthesizes `name: ty` with no initializer.
func (f *Factory) UninitVar(name string, ty Type, ln int) *VarDeclStmt {
	return &VarDeclStmt{Ty: ty, Name: name, UniqueName: -1, Ln: ln}
}

// Ident builds a bare, scope-rooted identifier reference to decl.
func (f *Factory) Ident(decl *VarDeclStmt, ln int) *MemberAccessExpr {
	return &MemberAccessExpr{Idents: []string{decl.Name}, VarRef: decl, Ln: ln}
}

// IdentFunc builds a bare reference to a function declaration (used as the
// base of a synthesized FuncCallExpr).
func (f *Factory) IdentFunc(decl *FuncDeclStmt, ln int) *MemberAccessExpr {
	return &MemberAccessExpr{Idents: []string{decl.Name}, FuncRef: decl, Ln: ln}
}

// Assign builds `target = value` as an ExprStmt.
func (f *Factory) Assign(target Expr, value Expr, ln int) *ExprStmt {
	return &ExprStmt{X: &BinaryExpr{Op: OpAssign, Left: target, Right: value, Ln: ln}, Ln: ln}
}

// AssignVar is shorthand for Assign(Ident(decl), value, ln).
func (f *Factory) AssignVar(decl *VarDeclStmt, value Expr, ln int) *ExprStmt {
	return f.Assign(f.Ident(decl, ln), value, ln)
}

// Block wraps stmts in a BlockStmt.
func (f *Factory) Block(ln int, stmts ...Stmt) *BlockStmt {
	return &BlockStmt{Stmts: stmts, Ln: ln}
}

// If builds an IfStmt with no else branch.
func (f *Factory) If(cond Expr, then *BlockStmt, ln int) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Ln: ln}
}

// Not builds `!x`.
func (f *Factory) Not(x Expr, ln int) *UnaryExpr {
	return &UnaryExpr{Op: OpNot, X: x, Ln: ln}
}

// ModuleNames returns the Name of every module in order. No compiler
// stage calls it.
func ModuleNames(prog *AST) []string {
	names := make([]string, len(prog.Modules))
	for i, m := range prog.Modules {
		names[i] = m.Name
	}
	return names
}
