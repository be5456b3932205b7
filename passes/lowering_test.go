package passes

import (
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLowering(t *testing.T, src string) *ast.AST {
	t.Helper()
	prog := loadResolved(t, src)
	require.NoError(t, ControlFlow().Run(prog))
	require.NoError(t, TypeConversion().Run(prog))
	require.NoError(t, Lowering().Run(prog))
	return prog
}

func TestLoweringRewritesForAsWhile(t *testing.T) {
	prog := runLowering(t, `
void run() {
	int i;
	for (i = 0; i < 10; i += 1) {
		i = i;
	}
}
`)
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
	last := w.Body.Stmts[len(w.Body.Stmts)-1]
	es, ok := last.(*ast.ExprStmt)
	require.True(t, ok)
	assign, ok := es.X.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAssign, assign.Op)
}

func TestLoweringOutlinesBlockExpressionFromChainedAssignment(t *testing.T) {
	prog := runLowering(t, `
void run() {
	float x;
	float y;
	x = y = 3;
}
`)
	m := prog.Modules[len(prog.Modules)-1]
	var synth *ast.FuncDeclStmt
	for _, s := range m.Stmts {
		if fn, ok := s.(*ast.FuncDeclStmt); ok && fn.IsBlockExpression {
			synth = fn
		}
	}
	require.NotNil(t, synth)
	assert.True(t, synth.IsBlockExpression)
}
