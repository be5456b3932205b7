package resolver

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// resolveExpr resolves e and returns the (possibly rewritten) expression
// that should replace it in its parent. Rewrites happen for postfix
// increment/decrement, dereference sugar, and Input member access (§4.2's
// "Desugaring performed here").
func (r *Resolver) resolveExpr(e ast.Expr) (ast.Expr, error) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		return x, nil
	case *ast.Null:
		return x, nil
	case *ast.BinaryExpr:
		left, err := r.resolveExpr(x.Left)
		if err != nil {
			return nil, err
		}
		x.Left = left
		right, err := r.resolveExpr(x.Right)
		if err != nil {
			return nil, err
		}
		x.Right = right
		return x, nil
	case *ast.UnaryExpr:
		return r.resolveUnary(x)
	case *ast.MemberAccessExpr:
		return r.resolveMemberAccess(x)
	case *ast.SubscriptExpr:
		base, err := r.resolveExpr(x.Base)
		if err != nil {
			return nil, err
		}
		x.Base = base
		idx, err := r.resolveExpr(x.Index)
		if err != nil {
			return nil, err
		}
		x.Index = idx
		return x, nil
	case *ast.FuncCallExpr:
		return r.resolveFuncCall(x)
	case *ast.BlockExpr:
		if err := r.resolveType(&x.ResultType, x.Ln); err != nil {
			return nil, err
		}
		r.pushScope()
		defer r.popScope()
		if err := r.resolveBlockStmts(x.Block, nil); err != nil {
			return nil, err
		}
		return x, nil
	case *ast.SizeOfExpr:
		return r.resolveSizeOf(x)
	}
	return e, nil
}

func (r *Resolver) resolveUnary(x *ast.UnaryExpr) (ast.Expr, error) {
	inner, err := r.resolveExpr(x.X)
	if err != nil {
		return nil, err
	}
	x.X = inner

	if x.Op == ast.OpDeref {
		// `*p` -> `p[0]` (§4.2).
		return &ast.SubscriptExpr{
			Base:  x.X,
			Index: &ast.LiteralExpr{Kind: ast.LitNumber, Payload: "0", Ln: x.Ln},
			Ln:    x.Ln,
		}, nil
	}

	if x.Postfix && (x.Op == ast.OpPreIncr || x.Op == ast.OpPreDecr) {
		return r.desugarPostfix(x)
	}
	return x, nil
}

// desugarPostfix turns `v++`/`v--` into a block expression that stashes
// the old value in a temporary, performs the prefix mutation on the
// original lvalue, and yields the temporary (§4.2).
func (r *Resolver) desugarPostfix(x *ast.UnaryExpr) (ast.Expr, error) {
	ln := x.Ln
	elemTy := r.typeOf(x.X)
	if elemTy == nil {
		elemTy = &ast.Type{Expr: primitiveExpr("any")}
	}

	r.nextTemp++
	tmpName := fmt.Sprintf("postfix_tmp_%d", r.nextTemp)
	tmp := &ast.VarDeclStmt{Ty: *elemTy, Name: tmpName, Init: x.X, UniqueName: -1, Ln: ln}

	mutate := &ast.UnaryExpr{Op: x.Op, X: cloneLValue(x.X), Ln: ln}
	mutateStmt := &ast.ExprStmt{X: mutate, Ln: ln}

	readTmp := &ast.ExprStmt{X: &ast.MemberAccessExpr{Idents: []string{tmpName}, VarRef: tmp, Ln: ln}, Ln: ln}

	return &ast.BlockExpr{
		ResultType: *elemTy,
		Block:      &ast.BlockStmt{Stmts: []ast.Stmt{tmp, mutateStmt, readTmp}, Ln: ln},
		Ln:         ln,
	}, nil
}

// cloneLValue makes a fresh node pointing at the same resolved back-
// references, so a resolved lvalue can be read twice (once as a value,
// once as a mutation target) without two parents owning the same node.
func cloneLValue(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case *ast.MemberAccessExpr:
		cp := *x
		return &cp
	case *ast.SubscriptExpr:
		cp := *x
		return &cp
	}
	return e
}

// typeOf best-effort infers the declared Type of an already-resolved
// expression, for the cases the resolver itself needs to synthesize a
// temporary (postfix desugaring). It does not attempt full inference —
// anything it can't place returns nil and the caller falls back to `any`.
func (r *Resolver) typeOf(e ast.Expr) *ast.Type {
	switch x := e.(type) {
	case *ast.MemberAccessExpr:
		if x.VarRef != nil {
			return &x.VarRef.Ty
		}
		if x.FuncRef != nil {
			return &x.FuncRef.ReturnTy
		}
	case *ast.SubscriptExpr:
		base := r.typeOf(x.Base)
		if base == nil {
			return nil
		}
		if base.Modifier == ast.ModPointer {
			elem := *base
			elem.Modifier = ast.ModNone
			return &elem
		}
		if ma, ok := base.Expr.(*ast.MemberAccessExpr); ok && ma.TypeRef != nil && ma.TypeRef.IsArrayType {
			for _, mem := range ma.TypeRef.Members {
				if mem.Name == "ptr" {
					elem := mem.Ty
					elem.Modifier = ast.ModNone
					return &elem
				}
			}
		}
	case *ast.BlockExpr:
		return &x.ResultType
	case *ast.LiteralExpr:
		switch x.Kind {
		case ast.LitBool:
			return &ast.Type{Expr: primitiveExpr("bool")}
		case ast.LitString, ast.LitChar:
			return &ast.Type{Expr: primitiveExpr("int")}
		}
		return &ast.Type{Expr: primitiveExpr("float")}
	}
	return nil
}

func (r *Resolver) resolveSizeOf(x *ast.SizeOfExpr) (ast.Expr, error) {
	if ma, ok := x.X.(*ast.MemberAccessExpr); ok && ma.Base == nil && len(ma.Idents) == 1 {
		name := ma.Idents[0]
		if primitives[name] {
			ty := ast.Type{Expr: primitiveExpr(name)}
			x.Ty, x.X = &ty, nil
			return x, nil
		}
		if ds := r.lookup(name); len(ds) == 1 {
			if sd, ok := ds[0].(*ast.StructDeclStmt); ok {
				ty := ast.Type{Expr: &ast.MemberAccessExpr{Idents: []string{name}, TypeRef: sd}}
				x.Ty, x.X = &ty, nil
				return x, nil
			}
		}
	}
	resolved, err := r.resolveExpr(x.X)
	if err != nil {
		return nil, err
	}
	x.X = resolved
	return x, nil
}

func (r *Resolver) resolveFuncCall(x *ast.FuncCallExpr) (ast.Expr, error) {
	base, err := r.resolveExpr(x.Base)
	if err != nil {
		return nil, err
	}
	x.Base = base
	for i, a := range x.Args {
		ra, err := r.resolveExpr(a)
		if err != nil {
			return nil, err
		}
		x.Args[i] = ra
	}

	ma, ok := base.(*ast.MemberAccessExpr)
	if !ok || ma.FuncRef == nil {
		return x, nil
	}
	selected, err := r.selectOverload(ma, len(x.Args))
	if err != nil {
		return nil, err
	}
	ma.FuncRef = selected
	return x, nil
}

// selectOverload picks the function whose arity matches argCount (or
// whichever is variadic), among the overload set originally resolved for
// ma's final identifier. ma.FuncRef already holds one candidate; lookup
// re-derives the full set through the same scope/import path.
func (r *Resolver) selectOverload(ma *ast.MemberAccessExpr, argCount int) (*ast.FuncDeclStmt, error) {
	candidates := r.funcOverloads(ma)
	if len(candidates) == 0 {
		return ma.FuncRef, nil
	}
	var match *ast.FuncDeclStmt
	var variadicMatch *ast.FuncDeclStmt
	ambiguous := false
	for _, f := range candidates {
		if f.Variadic && argCount >= len(f.Params)-1 {
			if variadicMatch != nil {
				ambiguous = true
			}
			variadicMatch = f
		}
		if !f.Variadic && len(f.Params) == argCount {
			if match != nil {
				ambiguous = true
			}
			match = f
		}
	}
	if ambiguous {
		return nil, compileerr.At(compileerr.AmbiguousOverload, ma.Ln, "call to %q is ambiguous for %d argument(s)", ma.Idents[len(ma.Idents)-1], argCount)
	}
	if match != nil {
		return match, nil
	}
	if variadicMatch != nil {
		return variadicMatch, nil
	}
	return nil, compileerr.At(compileerr.NoMatchingOverload, ma.Ln, "no overload of %q accepts %d argument(s)", ma.Idents[len(ma.Idents)-1], argCount)
}

func (r *Resolver) funcOverloads(ma *ast.MemberAccessExpr) []*ast.FuncDeclStmt {
	name := ma.Idents[len(ma.Idents)-1]
	var ds []ast.Decl
	if len(ma.Idents) == 1 && ma.Base == nil {
		ds = r.lookup(name)
	} else if len(ma.ParentRefs) > 0 {
		parent := ma.ParentRefs[len(ma.ParentRefs)-1]
		if sd := structOf(&parent.Ty); sd != nil {
			for _, mem := range sd.Members {
				if mem.Name == name {
					ds = append(ds, mem)
				}
			}
		}
	} else if mod, ok := r.moduleOf(ma); ok {
		ds = mod.names[name]
	}
	var out []*ast.FuncDeclStmt
	for _, d := range ds {
		if f, ok := d.(*ast.FuncDeclStmt); ok {
			out = append(out, f)
		}
	}
	return out
}

func (r *Resolver) moduleOf(ma *ast.MemberAccessExpr) (*scope, bool) {
	if ma.Base == nil || len(ma.Idents) < 2 {
		return nil, false
	}
	baseMA, ok := ma.Base.(*ast.MemberAccessExpr)
	if !ok {
		return nil, false
	}
	impName := baseMA.Idents[len(baseMA.Idents)-1]
	for _, ds := range r.scopes[0].names {
		for _, d := range ds {
			if imp, ok := d.(*ast.ImportStmt); ok && imp.ModuleName == impName {
				mod, ok := r.modules[imp.ModuleName]
				return mod, ok
			}
		}
	}
	return nil, false
}

func structOf(ty *ast.Type) *ast.StructDeclStmt {
	if ma, ok := ty.Expr.(*ast.MemberAccessExpr); ok {
		return ma.TypeRef
	}
	return nil
}
