// Package passes holds the AST-to-AST transform stages that run between
// the resolver and the writer (§4.3-§4.7): eliminating nonlocal control
// transfer, normalizing operand types, lowering for-loops and chained
// assignments and block expressions, and the use-analysis/dead-code/
// unique-naming passes that follow. Every pass implements ast.Pass and
// mutates its *ast.AST in place, per the ownership rule documented in
// ast/transform.go.
package passes

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/internal/compileerr"
)

// ControlFlow returns the §4.3 pass: every Return/Break/Continue is
// replaced by flag assignments, and the statement lists that follow a
// potential control transfer are gated behind `if (!returned) { ... }` /
// `if (!looping's continue flag) { ... }`.
func ControlFlow() ast.Pass {
	return ast.PassFunc{N: "control-flow", F: func(prog *ast.AST) error {
		cf := &controlFlow{f: ast.NewFactory()}
		return cf.run(prog)
	}}
}

type loopFrame struct {
	breakFlag    *ast.VarDeclStmt
	continueFlag *ast.VarDeclStmt
}

type funcFrame struct {
	returnFlag  *ast.VarDeclStmt
	returnValue *ast.VarDeclStmt // nil for void functions
	void        bool
}

type controlFlow struct {
	f      *ast.Factory
	nextID int
	fn     *funcFrame
	loops  []*loopFrame
}

func boolLit(v bool, ln int) *ast.LiteralExpr {
	payload := "false"
	if v {
		payload = "true"
	}
	return &ast.LiteralExpr{Kind: ast.LitBool, Payload: payload, Ln: ln}
}

func (cf *controlFlow) fresh(prefix string) string {
	cf.nextID++
	return fmt.Sprintf("%s_%d", prefix, cf.nextID)
}

func (cf *controlFlow) run(prog *ast.AST) error {
	for _, m := range prog.Modules {
		for _, s := range m.Stmts {
			switch stmt := s.(type) {
			case *ast.FuncDeclStmt:
				// External functions bind to host symbols and their `{}`
				// bodies are never emitted, so there is nothing to rewrite.
				if stmt.Mod.External {
					continue
				}
				if err := cf.rewriteFunc(stmt); err != nil {
					return err
				}
			case *ast.SectionStmt:
				if err := cf.rewriteSection(stmt); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (cf *controlFlow) rewriteFunc(fn *ast.FuncDeclStmt) error {
	void := isVoidType(fn.ReturnTy)
	if !void && !statementReturns(fn.Block) {
		return compileerr.At(compileerr.NotAllPathsReturn, fn.Ln, "function %q does not return on every path", fn.Name)
	}

	frame := &funcFrame{void: void}
	frame.returnFlag = cf.f.BoolVar(cf.fresh("returned"), false, fn.Ln)
	if !void {
		frame.returnValue = cf.f.UninitVar(cf.fresh("returnValue"), fn.ReturnTy, fn.Ln)
	}

	prevFn, prevLoops := cf.fn, cf.loops
	cf.fn, cf.loops = frame, nil
	inner, err := cf.rewriteStmts(fn.Block.Stmts)
	cf.fn, cf.loops = prevFn, prevLoops
	if err != nil {
		return err
	}

	stmts := []ast.Stmt{frame.returnFlag}
	if frame.returnValue != nil {
		stmts = append(stmts, frame.returnValue)
	}
	stmts = append(stmts, &ast.BlockStmt{Stmts: inner, Ln: fn.Ln})
	if frame.returnValue != nil {
		stmts = append(stmts, &ast.ExprStmt{X: cf.f.Ident(frame.returnValue, fn.Ln), Ln: fn.Ln})
	}
	fn.Block = &ast.BlockStmt{Stmts: stmts, Ln: fn.Ln}
	return nil
}

func (cf *controlFlow) rewriteSection(sec *ast.SectionStmt) error {
	frame := &funcFrame{void: true}
	frame.returnFlag = cf.f.BoolVar(cf.fresh("returned"), false, sec.Ln)

	prevFn, prevLoops := cf.fn, cf.loops
	cf.fn, cf.loops = frame, nil
	inner, err := cf.rewriteStmts(sec.Block.Stmts)
	cf.fn, cf.loops = prevFn, prevLoops
	if err != nil {
		return err
	}
	sec.Block = &ast.BlockStmt{Stmts: append([]ast.Stmt{frame.returnFlag}, inner...), Ln: sec.Ln}
	return nil
}

// rewriteStmts rewrites a statement list and applies the forward-gating
// rule: once a statement can transfer control away, every following
// statement is nested inside a single gating `if`.
func (cf *controlFlow) rewriteStmts(stmts []ast.Stmt) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for i := 0; i < len(stmts); i++ {
		pre := stmts[i]
		mightReturn := statementMayTransfer(pre, true)
		mightLoopControl := len(cf.loops) > 0 && statementMayTransfer(pre, false)

		rewritten, err := cf.rewriteStmt(pre)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten...)

		if i+1 < len(stmts) {
			rest, err := cf.rewriteStmts(stmts[i+1:])
			if err != nil {
				return nil, err
			}
			// Inside a loop, a trailing return's gate is the CURRENT loop's
			// own continueFlag, not the function's returnFlag — matching
			// the original, which only ever threads Return through the
			// innermost loop frame's flags (rewriteReturn below). A return
			// two-or-more loops deep never touches an outer frame's
			// continueFlag, so statements following the nested loop still
			// run; that's the original's behavior, not a bug introduced
			// here.
			if len(cf.loops) > 0 && (mightLoopControl || mightReturn) {
				top := cf.loops[len(cf.loops)-1]
				guard := cf.f.Not(cf.f.Ident(top.continueFlag, pre.Line()), pre.Line())
				out = append(out, cf.f.If(guard, &ast.BlockStmt{Stmts: rest, Ln: pre.Line()}, pre.Line()))
				return out, nil
			}
			if mightReturn {
				guard := cf.f.Not(cf.f.Ident(cf.fn.returnFlag, pre.Line()), pre.Line())
				out = append(out, cf.f.If(guard, &ast.BlockStmt{Stmts: rest, Ln: pre.Line()}, pre.Line()))
				return out, nil
			}
			out = append(out, rest...)
			return out, nil
		}
	}
	return out, nil
}

// rewriteStmt rewrites one statement, expanding Return/Break/Continue
// into their flag-setting block form and recursing into nested blocks.
func (cf *controlFlow) rewriteStmt(s ast.Stmt) ([]ast.Stmt, error) {
	switch stmt := s.(type) {
	case *ast.ReturnStmt:
		return cf.rewriteReturn(stmt), nil

	case *ast.LoopControlStmt:
		return cf.rewriteLoopControl(stmt), nil

	case *ast.IfStmt:
		then, err := cf.rewriteStmts(stmt.Then.Stmts)
		if err != nil {
			return nil, err
		}
		stmt.Then = &ast.BlockStmt{Stmts: then, Ln: stmt.Then.Ln}
		if stmt.Else != nil {
			els, err := cf.rewriteStmts(stmt.Else.Stmts)
			if err != nil {
				return nil, err
			}
			stmt.Else = &ast.BlockStmt{Stmts: els, Ln: stmt.Else.Ln}
		}
		return []ast.Stmt{stmt}, nil

	case *ast.WhileStmt:
		return cf.rewriteWhile(stmt)

	case *ast.ForStmt:
		return cf.rewriteFor(stmt)

	case *ast.BlockStmt:
		inner, err := cf.rewriteStmts(stmt.Stmts)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{&ast.BlockStmt{Stmts: inner, Ln: stmt.Ln}}, nil
	}
	return []ast.Stmt{s}, nil
}

func (cf *controlFlow) rewriteReturn(stmt *ast.ReturnStmt) []ast.Stmt {
	ln := stmt.Ln
	var out []ast.Stmt
	out = append(out, cf.f.AssignVar(cf.fn.returnFlag, boolLit(true, ln), ln))
	if cf.fn.returnValue != nil && stmt.Value != nil {
		out = append(out, cf.f.AssignVar(cf.fn.returnValue, stmt.Value, ln))
	}
	if len(cf.loops) > 0 {
		top := cf.loops[len(cf.loops)-1]
		out = append(out, cf.f.AssignVar(top.continueFlag, boolLit(true, ln), ln))
		out = append(out, cf.f.AssignVar(top.breakFlag, boolLit(true, ln), ln))
	}
	return out
}

func (cf *controlFlow) rewriteLoopControl(stmt *ast.LoopControlStmt) []ast.Stmt {
	ln := stmt.Ln
	top := cf.loops[len(cf.loops)-1]
	out := []ast.Stmt{cf.f.AssignVar(top.continueFlag, boolLit(true, ln), ln)}
	if stmt.Kind == ast.LoopBreak {
		out = append(out, cf.f.AssignVar(top.breakFlag, boolLit(true, ln), ln))
	}
	return out
}

// rewriteWhile wraps w in an outer break flag, prepends a continue-flag
// reset to the body, and rewrites the condition to `!break && cond`. It
// returns the loop's declarations alongside the rewritten loop, since
// both must be spliced into the enclosing statement list together.
func (cf *controlFlow) rewriteWhile(w *ast.WhileStmt) ([]ast.Stmt, error) {
	ln := w.Ln
	breakFlag := cf.f.BoolVar(cf.fresh("break"), false, ln)
	continueFlag := cf.f.BoolVar(cf.fresh("continue"), false, ln)

	cf.loops = append(cf.loops, &loopFrame{breakFlag: breakFlag, continueFlag: continueFlag})
	body, err := cf.rewriteStmts(w.Body.Stmts)
	cf.loops = cf.loops[:len(cf.loops)-1]
	if err != nil {
		return nil, err
	}

	resetContinue := cf.f.AssignVar(continueFlag, boolLit(false, ln), ln)
	w.Cond = &ast.BinaryExpr{Op: ast.OpLogicalAnd, Left: cf.f.Not(cf.f.Ident(breakFlag, ln), ln), Right: w.Cond, Ln: ln}
	w.Body = &ast.BlockStmt{Stmts: append([]ast.Stmt{resetContinue}, body...), Ln: w.Body.Ln}

	return []ast.Stmt{breakFlag, continueFlag, w}, nil
}

func (cf *controlFlow) rewriteFor(fs *ast.ForStmt) ([]ast.Stmt, error) {
	ln := fs.Ln
	breakFlag := cf.f.BoolVar(cf.fresh("break"), false, ln)
	continueFlag := cf.f.BoolVar(cf.fresh("continue"), false, ln)

	cf.loops = append(cf.loops, &loopFrame{breakFlag: breakFlag, continueFlag: continueFlag})
	body, err := cf.rewriteStmts(fs.Body.Stmts)
	cf.loops = cf.loops[:len(cf.loops)-1]
	if err != nil {
		return nil, err
	}

	resetContinue := cf.f.AssignVar(continueFlag, boolLit(false, ln), ln)
	fs.Body = &ast.BlockStmt{Stmts: append([]ast.Stmt{resetContinue}, body...), Ln: fs.Body.Ln}

	notBreak := cf.f.Not(cf.f.Ident(breakFlag, ln), ln)
	if fs.Cond != nil {
		fs.Cond = &ast.BinaryExpr{Op: ast.OpLogicalAnd, Left: notBreak, Right: fs.Cond, Ln: ln}
	} else {
		fs.Cond = notBreak
	}
	return []ast.Stmt{breakFlag, continueFlag, fs}, nil
}

func isVoidType(ty ast.Type) bool {
	ma, ok := ty.Expr.(*ast.MemberAccessExpr)
	return ok && len(ma.Idents) == 1 && ma.Idents[0] == "void"
}

// statementReturns implements the syntactic StatementReturns(all)
// predicate (§4.3's Validation): true when every control path through s
// is guaranteed to hit a Return.
func statementReturns(b *ast.BlockStmt) bool {
	for _, s := range b.Stmts {
		if oneStatementReturns(s) {
			return true
		}
	}
	return false
}

func oneStatementReturns(s ast.Stmt) bool {
	switch stmt := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.IfStmt:
		return stmt.Else != nil && statementReturns(stmt.Then) && statementReturns(stmt.Else)
	case *ast.BlockStmt:
		return statementReturns(stmt)
	}
	return false
}

// statementMayTransfer reports whether s could, on some path, perform a
// control transfer: wantReturn selects Return specifically, otherwise
// Break/Continue/Return (a return also exits the innermost loop).
func statementMayTransfer(s ast.Stmt, wantReturn bool) bool {
	switch stmt := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.LoopControlStmt:
		return !wantReturn
	case *ast.IfStmt:
		if statementsMayTransfer(stmt.Then.Stmts, wantReturn) {
			return true
		}
		return stmt.Else != nil && statementsMayTransfer(stmt.Else.Stmts, wantReturn)
	case *ast.BlockStmt:
		return statementsMayTransfer(stmt.Stmts, wantReturn)
	case *ast.WhileStmt:
		// A nested loop's own break/continue never escapes it; only a
		// Return inside it is visible to this level.
		return wantReturn && statementsMayTransfer(stmt.Body.Stmts, true)
	case *ast.ForStmt:
		return wantReturn && statementsMayTransfer(stmt.Body.Stmts, true)
	}
	return false
}

func statementsMayTransfer(stmts []ast.Stmt, wantReturn bool) bool {
	for _, s := range stmts {
		if statementMayTransfer(s, wantReturn) {
			return true
		}
	}
	return false
}
