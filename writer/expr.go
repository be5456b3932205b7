package writer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reaper-jsfx/jsfxc/ast"
)

// emittedVarName composes the identifier a VarDeclStmt is written under in
// JSFX text: the external symbol verbatim when one is bound, the bare
// source name for a function parameter (JSFX function arguments are
// genuinely local, unlike every other JSFX variable), otherwise the
// source name with its unique-name suffix appended.
func emittedVarName(v *ast.VarDeclStmt) string {
	if v.Mod.External && v.ExternalName != "" {
		return v.ExternalName
	}
	if v.OwningFunc != nil {
		return v.Name
	}
	return fmt.Sprintf("%s%d", v.Name, v.UniqueName)
}

func emittedFuncName(fn *ast.FuncDeclStmt) string {
	if fn.Mod.External && fn.ExternalName != "" {
		return fn.ExternalName
	}
	return fmt.Sprintf("%s%d", fn.Name, fn.UniqueName)
}

// renderExpr renders x as a JSFX expression. Binary operations always get
// an explicit parenthesized wrapper; callers that need the bare,
// unwrapped form of a top-level assignment use renderStmtExpr instead.
func renderExpr(x ast.Expr) string {
	switch e := x.(type) {
	case *ast.LiteralExpr:
		return renderLiteral(e)

	case *ast.MemberAccessExpr:
		switch {
		case e.VarRef != nil:
			return emittedVarName(e.VarRef)
		case e.FuncRef != nil:
			return emittedFuncName(e.FuncRef)
		default:
			return e.Idents[len(e.Idents)-1]
		}

	case *ast.SubscriptExpr:
		return renderExpr(e.Base) + "[" + renderExpr(e.Index) + "]"

	case *ast.FuncCallExpr:
		return renderCall(e)

	case *ast.BinaryExpr:
		return "(" + renderExpr(e.Left) + " " + string(e.Op) + " " + renderExpr(e.Right) + ")"

	case *ast.UnaryExpr:
		return renderUnary(e)

	case *ast.SizeOfExpr:
		return strconv.Itoa(sizeofValue(e))

	case *ast.BlockExpr:
		// The lowering pass outlines every BlockExpr into a zero-arg
		// function; the use-analysis pass then inlines single-use ones
		// back as BlockExprs, which render here as a value sequence.
		return "(" + renderBlockValue(e.Block) + ")"

	case *ast.Null:
		return "0"
	}
	return "0"
}

// renderStmtExpr renders the expression of a top-level ExprStmt. A plain
// assignment renders bare (`a = b`, no enclosing parens) since it already
// is the whole statement; anything else goes through renderExpr.
func renderStmtExpr(x ast.Expr) string {
	if bin, ok := x.(*ast.BinaryExpr); ok && bin.Op == ast.OpAssign {
		return renderExpr(bin.Left) + " = " + renderExpr(bin.Right)
	}
	return renderExpr(x)
}

func renderUnary(e *ast.UnaryExpr) string {
	switch e.Op {
	case ast.OpNot:
		return "(!" + renderExpr(e.X) + ")"
	case ast.OpNeg:
		return "(-" + renderExpr(e.X) + ")"
	case ast.OpPos:
		return renderExpr(e.X)
	case ast.OpDeref:
		// The resolver desugars `*p` into `p[0]` (§4.2); this is a
		// defensive fallback, not an expected path.
		return renderExpr(e.X) + "[0]"
	}
	return renderExpr(e.X)
}

func renderCall(e *ast.FuncCallExpr) string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = renderExpr(a)
	}
	joined := strings.Join(args, ", ")
	if ma, ok := e.Base.(*ast.MemberAccessExpr); ok && ma.FuncRef != nil {
		return emittedFuncName(ma.FuncRef) + "(" + joined + ")"
	}
	return renderExpr(e.Base) + "(" + joined + ")"
}

func renderLiteral(e *ast.LiteralExpr) string {
	switch e.Kind {
	case ast.LitNumber:
		return formatNumber(e.Payload)
	case ast.LitString:
		return strconv.Quote(e.Payload)
	case ast.LitChar:
		return "'" + e.Payload + "'"
	case ast.LitBool:
		if e.Payload == "true" {
			return "1"
		}
		return "0"
	default:
		return e.Payload
	}
}

// formatNumber applies §4.8's "Numbers" rule: integer literals render as
// decimal digits unchanged; float literals (any payload with a `.`)
// render with 14 digits of fractional precision.
func formatNumber(payload string) string {
	if !strings.Contains(payload, ".") {
		return payload
	}
	v, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return payload
	}
	return strconv.FormatFloat(v, 'f', 14, 64)
}

// typeSize computes sizeof's compile-time constant: one slot for every
// primitive or pointer, the sum of member sizes for a struct (recursing
// through nested structs), grounded on the same member-list expandStruct
// walks in the resolver.
func typeSize(ty ast.Type) int {
	if ty.Modifier == ast.ModPointer {
		return 1
	}
	ma, ok := ty.Expr.(*ast.MemberAccessExpr)
	if !ok || ma.TypeRef == nil {
		return 1
	}
	total := 0
	for _, m := range ma.TypeRef.Members {
		total += typeSize(m.Ty)
	}
	if total == 0 {
		return 1
	}
	return total
}

func sizeofValue(x *ast.SizeOfExpr) int {
	if x.Ty != nil {
		return typeSize(*x.Ty)
	}
	if ma, ok := x.X.(*ast.MemberAccessExpr); ok && ma.VarRef != nil {
		return typeSize(ma.VarRef.Ty)
	}
	return 1
}
