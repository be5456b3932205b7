package resolver

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// resolveMemberAccess implements §4.2's identifier-resolution algorithm.
// ma.Base is nil for a plain dotted chain (`a.b.c`), in which case Idents
// holds the whole chain and resolution starts from the scope stack; it is
// non-nil only when the chain starts on something that isn't a bare
// identifier (a function call, a parenthesized expression, a block
// expression), in which case Idents holds only the trailing member names
// appended after that base.
func (r *Resolver) resolveMemberAccess(ma *ast.MemberAccessExpr) (ast.Expr, error) {
	if ma.Base != nil {
		resolvedBase, err := r.resolveExpr(ma.Base)
		if err != nil {
			return nil, err
		}
		ma.Base = resolvedBase
		return r.walkFromBase(ma, resolvedBase)
	}

	name := ma.Idents[0]
	ds := r.lookup(name)
	if len(ds) == 0 {
		return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "undefined identifier %q", name)
	}
	return r.walk(ma, ds[0], 1)
}

func (r *Resolver) walkFromBase(ma *ast.MemberAccessExpr, base ast.Expr) (ast.Expr, error) {
	ty := r.typeOf(base)
	if ty == nil {
		return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "cannot determine the member of this expression")
	}
	sd := structOf(ty)
	if sd == nil {
		return nil, compileerr.At(compileerr.ExpressionIsNotAType, ma.Ln, "expression is not struct-typed")
	}
	member := ma.Idents[0]
	nd := memberDecl(sd, member)
	if nd == nil {
		return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "struct %q has no member %q", sd.Name, member)
	}
	return r.walk(ma, nd, 1)
}

func memberDecl(sd *ast.StructDeclStmt, name string) ast.Decl {
	for _, m := range sd.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// memberIndex returns the position of name in sd.Members, or -1. Used to
// look up the matching per-instance member when a VarDeclStmt has been
// expanded by expandStruct (see types.go), since instance members are
// stored in the same order as the struct declaration's template.
func memberIndex(sd *ast.StructDeclStmt, name string) int {
	for i, m := range sd.Members {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// walk consumes ma.Idents[idx:] starting from the already-resolved
// current entity d (the thing ma.Idents[idx-1] named).
func (r *Resolver) walk(ma *ast.MemberAccessExpr, d ast.Decl, idx int) (ast.Expr, error) {
	var parentRefs []*ast.VarDeclStmt

	for {
		switch cur := d.(type) {
		case *ast.VarDeclStmt:
			if idx == len(ma.Idents) {
				ma.VarRef, ma.FuncRef, ma.TypeRef = cur, nil, nil
				ma.ParentRefs = parentRefs
				return ma, nil
			}
			parentRefs = append(parentRefs, cur)
			sd := structOf(&cur.Ty)
			if sd == nil {
				return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "%q is not struct-typed", cur.Name)
			}
			member := ma.Idents[idx]
			mi := memberIndex(sd, member)
			if mi < 0 {
				return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "struct %q has no member %q", sd.Name, member)
			}
			var nd ast.Decl
			if cur.StructMembers != nil {
				nd = cur.StructMembers[mi]
			} else {
				nd = sd.Members[mi]
			}
			d, idx = nd, idx+1

		case *ast.FuncDeclStmt:
			if idx != len(ma.Idents) {
				return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "cannot access a member of function %q", cur.Name)
			}
			ma.FuncRef, ma.VarRef, ma.TypeRef = cur, nil, nil
			ma.ParentRefs = parentRefs
			return ma, nil

		case *ast.StructDeclStmt:
			return nil, compileerr.At(compileerr.ExpressionIsNotAType, ma.Ln, "%q names a type, not a value", cur.Name)

		case *ast.ImportStmt:
			if idx >= len(ma.Idents) {
				return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "module %q used as a value", cur.ModuleName)
			}
			modScope, ok := r.modules[cur.ModuleName]
			if !ok {
				return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "module %q is not loaded", cur.ModuleName)
			}
			member := ma.Idents[idx]
			nds := modScope.names[member]
			if len(nds) == 0 {
				return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "module %q has no member %q", cur.ModuleName, member)
			}
			if !declMod(nds[0]).Public {
				return nil, compileerr.At(compileerr.PrivateAccess, ma.Ln, "%q is not public in module %q", member, cur.ModuleName)
			}
			d, idx = nds[0], idx+1

		case *ast.InputStmt:
			if idx >= len(ma.Idents) {
				ma.VarRef, ma.FuncRef, ma.TypeRef = cur.Var, nil, nil
				ma.ParentRefs = parentRefs
				return ma, nil
			}
			member := ma.Idents[idx]
			switch member {
			case "value":
				ma.VarRef, ma.FuncRef, ma.TypeRef = cur.Var, nil, nil
				ma.ParentRefs = parentRefs
				return ma, nil
			case "name":
				return &ast.LiteralExpr{Kind: ast.LitString, Payload: cur.Name, Ln: ma.Ln}, nil
			case "sliderNumber":
				return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: fmt.Sprintf("%d", cur.SliderNumber), Ln: ma.Ln}, nil
			case "default":
				return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: orZero(cur.Default), Ln: ma.Ln}, nil
			case "min":
				return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: orZero(cur.Min), Ln: ma.Ln}, nil
			case "max":
				return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: orZero(cur.Max), Ln: ma.Ln}, nil
			case "inc":
				return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: orZero(cur.Inc), Ln: ma.Ln}, nil
			}
			return nil, compileerr.At(compileerr.InputMemberInvalid, ma.Ln, "input %q has no member %q", cur.Name, member)

		default:
			return nil, compileerr.At(compileerr.UnknownIdentifier, ma.Ln, "cannot resolve identifier chain")
		}
	}
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
