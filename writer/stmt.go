package writer

import (
	"strings"

	"github.com/reaper-jsfx/jsfxc/ast"
)

// renderStmt renders one statement's expression form (no trailing
// semicolon — callers decide whether and where to add it) and reports
// whether it contributes any text at all. An uninitialized local
// declaration contributes nothing: JSFX has no declarations, only
// assignments, so a VarDeclStmt with no Init is pure bookkeeping that the
// resolver/passes needed and the writer silently drops.
func renderStmt(s ast.Stmt) (string, bool) {
	switch stmt := s.(type) {
	case *ast.ExprStmt:
		return renderStmtExpr(stmt.X), true

	case *ast.VarDeclStmt:
		if stmt.Init == nil {
			return "", false
		}
		return emittedVarName(stmt) + " = " + renderExpr(stmt.Init), true

	case *ast.IfStmt:
		return renderIf(stmt), true

	case *ast.WhileStmt:
		return renderWhile(stmt), true

	case *ast.BlockStmt:
		return "(" + renderBlockVoid(stmt) + ")", true
	}
	return "", false
}

// renderIf renders an IfStmt as JSFX's ternary form (§8's return-
// flattening scenario): `(cond ? (then) : (else))`. Every IfStmt gets the
// same fully-parenthesized shape, including the synthesized "gate the
// rest" ifs the control-flow pass inserts.
func renderIf(s *ast.IfStmt) string {
	cond := renderExpr(s.Cond)
	then := renderBlockVoid(s.Then)
	elseText := "0"
	if s.Else != nil {
		elseText = renderBlockVoid(s.Else)
	}
	return "(" + cond + " ? (" + then + ") : (" + elseText + "))"
}

func renderWhile(s *ast.WhileStmt) string {
	return "while (" + renderExpr(s.Cond) + ") (" + renderBlockVoid(s.Body) + ")"
}

// renderBlockVoid renders b as a void-context comma sequence: every
// statement, including the last, is semicolon-terminated (§4.8's section
// body rule, also used for if/while bodies since their value is never
// read). An empty block renders as `(0)`'s inner content, the bare `0`.
func renderBlockVoid(b *ast.BlockStmt) string {
	parts := collectStmtTexts(b)
	if len(parts) == 0 {
		return "0"
	}
	for i := range parts {
		parts[i] += ";"
	}
	return strings.Join(parts, " ")
}

// renderBlockValue renders b as a value-context comma sequence (a
// function body, or an outlined block expression): every statement is
// semicolon-terminated except the last, whose value is the sequence's
// value.
func renderBlockValue(b *ast.BlockStmt) string {
	parts := collectStmtTexts(b)
	if len(parts) == 0 {
		return "0"
	}
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += ";"
	}
	return strings.Join(parts, " ")
}

func collectStmtTexts(b *ast.BlockStmt) []string {
	var parts []string
	for _, s := range b.Stmts {
		if text, ok := renderStmt(s); ok {
			parts = append(parts, text)
		}
	}
	return parts
}
