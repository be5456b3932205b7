package passes

import (
	"fmt"
	"strings"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// TypeConversion returns the §4.4 pass: normalizes every operator's
// operands and result to the effective type its runtime behavior needs,
// rewrites compound assignment and prefix ++/-- into plain assignment,
// and collapses boolean literals to their 0/1 integer form.
func TypeConversion() ast.Pass {
	return ast.PassFunc{N: "type-conversion", F: func(prog *ast.AST) error {
		tc := &typeConv{f: ast.NewFactory()}
		return tc.run(prog)
	}}
}

// ekind is an expression's effective runtime type (§4.4's "Effective vs
// pointer types"): what an operator actually sees once pointers collapse
// to int and arrays have already become struct-typed pointers upstream.
type ekind int

const (
	ekAny ekind = iota
	ekInt
	ekFloat
	ekBool
	ekStruct
	ekVoid
)

type typeConv struct {
	f      *ast.Factory
	nextID int
}

func (tc *typeConv) fresh(prefix string) string {
	tc.nextID++
	return fmt.Sprintf("%s_%d", prefix, tc.nextID)
}

func (tc *typeConv) run(prog *ast.AST) error {
	for _, m := range prog.Modules {
		for _, s := range m.Stmts {
			switch stmt := s.(type) {
			case *ast.FuncDeclStmt:
				if err := tc.convertBlock(stmt.Block); err != nil {
					return err
				}
			case *ast.SectionStmt:
				if err := tc.convertBlock(stmt.Block); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func effType(ty ast.Type) ekind {
	if ty.Modifier == ast.ModPointer {
		return ekInt
	}
	ma, ok := ty.Expr.(*ast.MemberAccessExpr)
	if !ok {
		return ekAny
	}
	if len(ma.Idents) == 1 {
		switch ma.Idents[0] {
		case "int":
			return ekInt
		case "float":
			return ekFloat
		case "bool":
			return ekBool
		case "void":
			return ekVoid
		case "any":
			return ekAny
		}
	}
	if ma.TypeRef != nil {
		return ekStruct
	}
	return ekAny
}

func (tc *typeConv) convertBlock(b *ast.BlockStmt) error {
	for i, s := range b.Stmts {
		ns, err := tc.convertStmt(s)
		if err != nil {
			return err
		}
		b.Stmts[i] = ns
	}
	return nil
}

func (tc *typeConv) convertStmt(s ast.Stmt) (ast.Stmt, error) {
	switch stmt := s.(type) {
	case *ast.VarDeclStmt:
		if stmt.Init != nil {
			lit, isLit := stmt.Init.(*ast.LiteralExpr)
			fromBoolLit := isLit && lit.Kind == ast.LitBool
			x, k, err := tc.convertExpr(stmt.Init)
			if err != nil {
				return nil, err
			}
			// A bool-typed declaration gets the same coercion as a bool-typed
			// assignment target; a bool literal is already a canonical 0/1.
			if effType(stmt.Ty) == ekBool && !fromBoolLit {
				x = coerceToBool(x, k)
			}
			stmt.Init = x
		}
		return stmt, nil
	case *ast.ExprStmt:
		x, _, err := tc.convertExpr(stmt.X)
		if err != nil {
			return nil, err
		}
		stmt.X = x
		return stmt, nil
	case *ast.BlockStmt:
		if err := tc.convertBlock(stmt); err != nil {
			return nil, err
		}
		return stmt, nil
	case *ast.IfStmt:
		cond, k, err := tc.convertExpr(stmt.Cond)
		if err != nil {
			return nil, err
		}
		stmt.Cond = coerceToBool(cond, k)
		if err := tc.convertBlock(stmt.Then); err != nil {
			return nil, err
		}
		if stmt.Else != nil {
			if err := tc.convertBlock(stmt.Else); err != nil {
				return nil, err
			}
		}
		return stmt, nil
	case *ast.WhileStmt:
		cond, k, err := tc.convertExpr(stmt.Cond)
		if err != nil {
			return nil, err
		}
		stmt.Cond = coerceToBool(cond, k)
		if err := tc.convertBlock(stmt.Body); err != nil {
			return nil, err
		}
		return stmt, nil
	case *ast.ForStmt:
		if stmt.Init != nil {
			ns, err := tc.convertStmt(stmt.Init)
			if err != nil {
				return nil, err
			}
			stmt.Init = ns
		}
		if stmt.Cond != nil {
			cond, k, err := tc.convertExpr(stmt.Cond)
			if err != nil {
				return nil, err
			}
			stmt.Cond = coerceToBool(cond, k)
		}
		if stmt.Incr != nil {
			ns, err := tc.convertStmt(stmt.Incr)
			if err != nil {
				return nil, err
			}
			stmt.Incr = ns
		}
		if err := tc.convertBlock(stmt.Body); err != nil {
			return nil, err
		}
		return stmt, nil
	}
	return s, nil
}

func intLit(v int, ln int) *ast.LiteralExpr {
	payload := "0"
	if v != 0 {
		payload = "1"
	}
	return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: payload, Ln: ln}
}

func wrapTruncate(e ast.Expr, ln int) ast.Expr {
	return &ast.BinaryExpr{Op: ast.OpBitOr, Left: e, Right: &ast.LiteralExpr{Kind: ast.LitNumber, Payload: "0", Ln: ln}, Ln: ln}
}

// coerceToBool normalizes e to canonical 0/1 bool form via double logical
// negation (the §4.4 "!!" mechanism), unless it's already bool-kinded or
// of unknown (any) kind — an any-typed value bypasses conversion entirely,
// same as the rest of this pass's coercions.
func coerceToBool(e ast.Expr, k ekind) ast.Expr {
	if k == ekBool || k == ekAny {
		return e
	}
	ln := e.Line()
	return &ast.UnaryExpr{Op: ast.OpNot, Ln: ln, X: &ast.UnaryExpr{Op: ast.OpNot, Ln: ln, X: e}}
}

func (tc *typeConv) convertExpr(e ast.Expr) (ast.Expr, ekind, error) {
	switch x := e.(type) {
	case *ast.LiteralExpr:
		if x.Kind == ast.LitBool {
			v := 0
			if x.Payload == "true" {
				v = 1
			}
			return intLit(v, x.Ln), ekInt, nil
		}
		if x.Kind == ast.LitString || x.Kind == ast.LitChar {
			return x, ekInt, nil
		}
		if x.Kind == ast.LitNumber && !strings.Contains(x.Payload, ".") {
			return x, ekInt, nil
		}
		return x, ekFloat, nil

	case *ast.Null:
		return x, ekAny, nil

	case *ast.MemberAccessExpr:
		if x.VarRef != nil {
			k := effType(x.VarRef.Ty)
			if x.VarRef.StructMembers != nil {
				k = ekStruct
			}
			return x, k, nil
		}
		if x.FuncRef != nil {
			return x, effType(x.FuncRef.ReturnTy), nil
		}
		return x, ekAny, nil

	case *ast.SubscriptExpr:
		base, _, err := tc.convertExpr(x.Base)
		if err != nil {
			return nil, 0, err
		}
		x.Base = base
		idx, _, err := tc.convertExpr(x.Index)
		if err != nil {
			return nil, 0, err
		}
		x.Index = idx
		if x.TypeBeforeCollapse != nil {
			return x, effType(*x.TypeBeforeCollapse), nil
		}
		return x, ekAny, nil

	case *ast.FuncCallExpr:
		base, k, err := tc.convertExpr(x.Base)
		if err != nil {
			return nil, 0, err
		}
		x.Base = base

		var params []*ast.VarDeclStmt
		if ma, ok := base.(*ast.MemberAccessExpr); ok && ma.FuncRef != nil {
			params = ma.FuncRef.Params
		}

		for i, a := range x.Args {
			ca, ak, err := tc.convertExpr(a)
			if err != nil {
				return nil, 0, err
			}
			if i < len(params) {
				pk := effType(params[i].Ty)
				if pk != ekAny && ak != ekAny && pk == ekStruct != (ak == ekStruct) {
					return nil, 0, compileerr.At(compileerr.CannotConvert, x.Ln, "cannot convert argument %d to its parameter's type", i+1)
				}
				if pk == ekBool {
					ca = coerceToBool(ca, ak)
				}
			}
			x.Args[i] = ca
		}
		return x, k, nil

	case *ast.BlockExpr:
		if err := tc.convertBlock(x.Block); err != nil {
			return nil, 0, err
		}
		return x, effType(x.ResultType), nil

	case *ast.SizeOfExpr:
		return x, ekInt, nil

	case *ast.UnaryExpr:
		return tc.convertUnary(x)

	case *ast.BinaryExpr:
		return tc.convertBinary(x)
	}
	return e, ekAny, nil
}

func (tc *typeConv) convertUnary(x *ast.UnaryExpr) (ast.Expr, ekind, error) {
	// Fold a unary minus directly on a numeric literal into a negative
	// literal before anything else sees it, so `-5` types as a single int
	// literal rather than UnaryExpr{-, Literal{5}} (matters for whether |0
	// wrapping applies downstream).
	if x.Op == ast.OpNeg {
		if lit, ok := x.X.(*ast.LiteralExpr); ok && lit.Kind == ast.LitNumber {
			folded := &ast.LiteralExpr{Kind: ast.LitNumber, Payload: "-" + lit.Payload, Ln: x.Ln}
			return tc.convertExpr(folded)
		}
	}

	if x.Op == ast.OpPreIncr || x.Op == ast.OpPreDecr {
		op := ast.OpAdd
		if x.Op == ast.OpPreDecr {
			op = ast.OpSub
		}
		if x.Postfix {
			return tc.convertExpr(tc.postfixBlock(x, op))
		}
		assign := &ast.BinaryExpr{
			Op:   ast.OpAssign,
			Left: x.X,
			Right: &ast.BinaryExpr{
				Op: op, Left: cloneLValue(x.X), Right: &ast.LiteralExpr{Kind: ast.LitNumber, Payload: "1", Ln: x.Ln}, Ln: x.Ln,
			},
			Ln: x.Ln,
		}
		return tc.convertExpr(assign)
	}

	inner, k, err := tc.convertExpr(x.X)
	if err != nil {
		return nil, 0, err
	}
	x.X = inner

	switch x.Op {
	case ast.OpNot:
		x.X = coerceToBool(inner, k)
		return x, ekBool, nil
	case ast.OpPos, ast.OpNeg:
		return x, k, nil
	}
	return x, k, nil
}

// postfixBlock rewrites `x++`/`x--` into a block expression that saves
// x's value before the mutation, so the expression yields the
// pre-increment value (§8's boundary behavior) while still leaving x
// incremented as a side effect:
//
//	(tmp = x; x = x op 1; tmp)
func (tc *typeConv) postfixBlock(x *ast.UnaryExpr, op ast.BinaryOp) ast.Expr {
	ln := x.Ln
	tmp := &ast.VarDeclStmt{
		Ty:         anyType(),
		Name:       tc.fresh("postfix"),
		Init:       cloneLValue(x.X),
		UniqueName: -1,
		Ln:         ln,
	}
	mutate := &ast.ExprStmt{
		X: &ast.BinaryExpr{
			Op:   ast.OpAssign,
			Left: cloneLValue(x.X),
			Right: &ast.BinaryExpr{
				Op: op, Left: cloneLValue(x.X), Right: &ast.LiteralExpr{Kind: ast.LitNumber, Payload: "1", Ln: ln}, Ln: ln,
			},
			Ln: ln,
		},
		Ln: ln,
	}
	result := &ast.ExprStmt{X: tc.f.Ident(tmp, ln), Ln: ln}
	return &ast.BlockExpr{
		ResultType: anyType(),
		Block:      &ast.BlockStmt{Stmts: []ast.Stmt{tmp, mutate, result}, Ln: ln},
		Ln:         ln,
	}
}

func (tc *typeConv) convertBinary(x *ast.BinaryExpr) (ast.Expr, ekind, error) {
	if x.Op.IsCompoundAssignment() {
		rewritten := &ast.BinaryExpr{
			Op:   ast.OpAssign,
			Left: x.Left,
			Right: &ast.BinaryExpr{
				Op: x.Op.BaseOp(), Left: cloneLValue(x.Left), Right: x.Right, Ln: x.Ln,
			},
			Ln: x.Ln,
		}
		return tc.convertExpr(rewritten)
	}

	if x.Op == ast.OpAssign {
		if !isLValue(x.Left) {
			return nil, 0, compileerr.At(compileerr.AssignToRValue, x.Ln, "left side of assignment is not assignable")
		}
		left, lk, err := tc.convertExpr(x.Left)
		if err != nil {
			return nil, 0, err
		}
		x.Left = left
		right, rk, err := tc.convertExpr(x.Right)
		if err != nil {
			return nil, 0, err
		}
		x.Right = right
		if lk != ekAny && rk != ekAny && lk == ekStruct != (rk == ekStruct) {
			return nil, 0, compileerr.At(compileerr.CannotConvert, x.Ln, "cannot convert assigned value to the target's type")
		}
		if lk == ekBool {
			x.Right = coerceToBool(x.Right, rk)
		}
		return x, lk, nil
	}

	left, lk, err := tc.convertExpr(x.Left)
	if err != nil {
		return nil, 0, err
	}
	x.Left = left
	right, rk, err := tc.convertExpr(x.Right)
	if err != nil {
		return nil, 0, err
	}
	x.Right = right

	switch x.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpPow:
		if lk == ekStruct || rk == ekStruct {
			return nil, 0, compileerr.At(compileerr.OperatorTypeMismatch, x.Ln, "operator %q cannot apply to a struct value", x.Op)
		}
		if lk == ekInt && rk == ekInt {
			if x.Op == ast.OpDiv || x.Op == ast.OpPow {
				return wrapTruncate(x, x.Ln), ekInt, nil
			}
			return x, ekInt, nil
		}
		return x, ekFloat, nil

	case ast.OpMod, ast.OpShl, ast.OpShr, ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor:
		return wrapTruncate(x, x.Ln), ekInt, nil

	case ast.OpEq, ast.OpNeq:
		if (lk == ekStruct) != (rk == ekStruct) {
			return nil, 0, compileerr.At(compileerr.OperatorTypeMismatch, x.Ln, "cannot compare a struct value with a non-struct value")
		}
		return x, ekBool, nil

	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		if lk == ekStruct || rk == ekStruct {
			return nil, 0, compileerr.At(compileerr.OperatorTypeMismatch, x.Ln, "operator %q cannot apply to a struct value", x.Op)
		}
		return x, ekBool, nil

	case ast.OpLogicalAnd, ast.OpLogicalOr:
		x.Left = coerceToBool(x.Left, lk)
		x.Right = coerceToBool(x.Right, rk)
		return x, ekBool, nil
	}
	return x, ekAny, nil
}

func isLValue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.MemberAccessExpr, *ast.SubscriptExpr, *ast.FuncCallExpr:
		return true
	}
	return false
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
