package passes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/loader"
	"github.com/reaper-jsfx/jsfxc/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadResolved(t *testing.T, src string) *ast.AST {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.jsl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	prog, err := loader.Load(path)
	require.NoError(t, err)
	require.NoError(t, resolver.Resolve(prog))
	return prog
}

func mainFunc(prog *ast.AST, name string) *ast.FuncDeclStmt {
	m := prog.Modules[len(prog.Modules)-1]
	for _, s := range m.Stmts {
		if fn, ok := s.(*ast.FuncDeclStmt); ok && fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestControlFlowWrapsFunctionReturn(t *testing.T) {
	prog := loadResolved(t, `
any pick(bool c) {
	if (c) {
		return 1;
	}
	return 2;
}
`)
	require.NoError(t, ControlFlow().Run(prog))

	fn := mainFunc(prog, "pick")
	require.NotNil(t, fn)
	// returned flag, returnValue, then the wrapped body, then the result
	// expression.
	require.Len(t, fn.Block.Stmts, 4)
	_, ok := fn.Block.Stmts[0].(*ast.VarDeclStmt)
	assert.True(t, ok)
	_, ok = fn.Block.Stmts[2].(*ast.BlockStmt)
	assert.True(t, ok)
	_, ok = fn.Block.Stmts[3].(*ast.ExprStmt)
	assert.True(t, ok)
}

func TestControlFlowRejectsMissingReturn(t *testing.T) {
	prog := loadResolved(t, `
any pick(bool c) {
	if (c) {
		return 1;
	}
}
`)
	err := ControlFlow().Run(prog)
	assert.Error(t, err)
}

func TestControlFlowWrapsWhileBreak(t *testing.T) {
	prog := loadResolved(t, `
void run() {
	float i = 0;
	while (i < 10) {
		if (i == 5) {
			break;
		}
		i = i + 1;
	}
}
`)
	require.NoError(t, ControlFlow().Run(prog))

	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var w *ast.WhileStmt
	for _, s := range body.Stmts {
		if ws, ok := s.(*ast.WhileStmt); ok {
			w = ws
		}
	}
	require.NotNil(t, w)
	bin, ok := w.Cond.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpLogicalAnd, bin.Op)
}

// A return two loops deep only ever sets the innermost loop's own flags
// (rewriteReturn), so a statement trailing the inner loop but still inside
// the outer loop's body must be gated on the OUTER loop's own continueFlag
// (always false here), not the function's returnFlag (true after the deep
// return fires) — gating on the latter would wrongly skip it.
func TestControlFlowNestedLoopReturnGatesOnOwnLoopFlag(t *testing.T) {
	prog := loadResolved(t, `
void run() {
	float total = 0;
	while (total < 10) {
		while (total < 5) {
			return;
		}
		total = total + 1;
	}
}
`)
	require.NoError(t, ControlFlow().Run(prog))

	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)

	var outerContinueFlag *ast.VarDeclStmt
	var outer *ast.WhileStmt
	for i, s := range body.Stmts {
		if ws, ok := s.(*ast.WhileStmt); ok {
			outer = ws
			outerContinueFlag = body.Stmts[i-1].(*ast.VarDeclStmt)
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, outerContinueFlag)

	var gate *ast.IfStmt
	for _, s := range outer.Body.Stmts {
		if is, ok := s.(*ast.IfStmt); ok {
			gate = is
		}
	}
	require.NotNil(t, gate, "expected the trailing assignment to be wrapped in a gating if")

	notCond, ok := gate.Cond.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNot, notCond.Op)
	ref, ok := notCond.X.(*ast.MemberAccessExpr)
	require.True(t, ok)
	assert.Same(t, outerContinueFlag, ref.VarRef, "trailing statement must gate on the outer loop's own continueFlag, not the function's returnFlag")
}
