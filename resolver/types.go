package resolver

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// resolveType resolves ty in place (§4.2's Types): a primitive literal is
// left as is, a MemberAccess must end at a struct type, and an Array
// modifier synthesizes (or reuses) a two-member `{ptr, length}` struct
// and rewrites ty to reference it with ModNone.
func (r *Resolver) resolveType(ty *ast.Type, ln int) error {
	ma, ok := ty.Expr.(*ast.MemberAccessExpr)
	if !ok {
		return nil
	}
	if len(ma.Idents) == 1 && primitives[ma.Idents[0]] {
		// Primitive: nothing further to resolve.
	} else if ma.TypeRef == nil {
		// A bare struct name binds straight to its declaration, since walk
		// rejects a struct reached as a value. A module-qualified name
		// (`mod.T`) still goes through walk and is rejected there.
		if len(ma.Idents) == 1 && ma.Base == nil {
			if ds := r.lookup(ma.Idents[0]); len(ds) == 1 {
				if sd, ok := ds[0].(*ast.StructDeclStmt); ok {
					ma.TypeRef = sd
				}
			}
		}
		if ma.TypeRef == nil {
			resolved, err := r.resolveExpr(ma)
			if err != nil {
				return err
			}
			rma, ok := resolved.(*ast.MemberAccessExpr)
			if !ok || rma.TypeRef == nil {
				return compileerr.At(compileerr.ExpressionIsNotAType, ln, "expression used as a type does not name a struct")
			}
			ty.Expr = rma
		}
	}

	if ty.Modifier != ast.ModArray {
		return nil
	}

	elemKey := typeKey(*ty)
	structDecl, ok := r.arrayStructs[elemKey]
	if !ok {
		elemTy := ast.Type{Expr: ty.Expr, Modifier: ast.ModPointer}
		structDecl = &ast.StructDeclStmt{
			Name: "array_" + sanitize(elemKey),
			Members: []*ast.VarDeclStmt{
				{Ty: elemTy, Name: "ptr", UniqueName: -1, Ln: ln},
				{Ty: ast.Type{Expr: primitiveExpr("int")}, Name: "length", UniqueName: -1, Ln: ln},
			},
			IsArrayType: true,
			Ln:          ln,
		}
		r.curModule.Stmts = append(r.curModule.Stmts, structDecl)
		r.arrayStructs[elemKey] = structDecl
		if err := r.declare(structDecl.Name, structDecl); err != nil {
			return err
		}
	}
	ty.Expr = &ast.MemberAccessExpr{Idents: []string{structDecl.Name}, TypeRef: structDecl, Ln: ln}
	ty.Modifier = ast.ModNone
	return nil
}

// expandStruct synthesizes a fresh per-instance VarDeclStmt for every
// member of the struct stmt's (already-resolved) type names, recursing
// into any member that is itself struct-typed, and records the result
// on stmt.StructMembers. Member access resolves against these instance
// copies (see member.go's walk) rather than the struct declaration's
// template members, so that two variables of the same struct type get
// independent storage instead of aliasing the template's members.
func (r *Resolver) expandStruct(stmt *ast.VarDeclStmt) error {
	if stmt.Ty.Modifier != ast.ModNone {
		return nil
	}
	ma, ok := stmt.Ty.Expr.(*ast.MemberAccessExpr)
	if !ok || ma.TypeRef == nil {
		return nil
	}
	sd := ma.TypeRef
	members := make([]*ast.VarDeclStmt, len(sd.Members))
	for i, m := range sd.Members {
		inst := &ast.VarDeclStmt{
			Ty:         m.Ty,
			Name:       stmt.Name + "_" + m.Name,
			UniqueName: -1,
			Mod:        stmt.Mod,
			Section:    stmt.Section,
			Ln:         stmt.Ln,
		}
		if err := r.expandStruct(inst); err != nil {
			return err
		}
		members[i] = inst
	}
	stmt.StructMembers = members
	return nil
}

func primitiveExpr(name string) ast.Expr {
	return &ast.MemberAccessExpr{Idents: []string{name}}
}

func typeKey(ty ast.Type) string {
	if ma, ok := ty.Expr.(*ast.MemberAccessExpr); ok {
		base := ""
		if ma.TypeRef != nil {
			base = ma.TypeRef.Name
		} else if len(ma.Idents) > 0 {
			base = ma.Idents[len(ma.Idents)-1]
		}
		return fmt.Sprintf("%s:%d", base, ty.Modifier)
	}
	return fmt.Sprintf("?:%d", ty.Modifier)
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' || c == '?' {
			out = append(out, '_')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// checkVisibility enforces §4.2's rule that a public declaration may only
// reference types that are themselves public or primitive, and that an
// external declaration's type must be `any` (or `void` for a function
// return type — callers pass that through already as a primitive).
func (r *Resolver) checkVisibility(mod ast.Modifier, ty ast.Type, ln int) error {
	if mod.External {
		if ma, ok := ty.Expr.(*ast.MemberAccessExpr); ok && len(ma.Idents) == 1 {
			if ma.Idents[0] == "any" || ma.Idents[0] == "void" {
				return nil
			}
		}
		return compileerr.At(compileerr.ExpressionIsNotAType, ln, "external declarations must be of type any")
	}
	if !mod.Public {
		return nil
	}
	ma, ok := ty.Expr.(*ast.MemberAccessExpr)
	if !ok {
		return nil
	}
	if len(ma.Idents) == 1 && primitives[ma.Idents[0]] {
		return nil
	}
	if ma.TypeRef != nil && ma.TypeRef.Mod.Public {
		return nil
	}
	return compileerr.At(compileerr.PrivateAccess, ln, "public declaration references a non-public type")
}
