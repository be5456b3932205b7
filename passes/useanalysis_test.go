package passes

import (
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runUseAnalysis(t *testing.T, src string) *ast.AST {
	t.Helper()
	prog := loadResolved(t, src)
	require.NoError(t, ControlFlow().Run(prog))
	require.NoError(t, TypeConversion().Run(prog))
	require.NoError(t, Lowering().Run(prog))
	require.NoError(t, UseAnalysis().Run(prog))
	return prog
}

func findSection(prog *ast.AST, kind ast.SectionKind) *ast.SectionStmt {
	m := prog.Modules[len(prog.Modules)-1]
	for _, s := range m.Stmts {
		if sec, ok := s.(*ast.SectionStmt); ok && sec.Kind == kind {
			return sec
		}
	}
	return nil
}

func TestUseAnalysisDropsUnreadLocal(t *testing.T) {
	prog := runUseAnalysis(t, `
@init
{
	float dead = 3;
	float kept = 4;
}

@sample
{
	float x = kept;
}
`)
	init := findSection(prog, ast.SectionInit)
	require.NotNil(t, init)
	var sawDead, sawKept bool
	for _, s := range init.Block.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok {
			switch vd.Name {
			case "dead":
				sawDead = true
			case "kept":
				sawKept = true
				assert.False(t, vd.Unused)
			}
		}
	}
	assert.False(t, sawDead, "dead should have been dropped by remove-unused")
	assert.True(t, sawKept)
}

func TestUseAnalysisKeepsSideEffectingDeadAssignment(t *testing.T) {
	prog := runUseAnalysis(t, `
any noise() { return 1; }

@init
{
	float unused_call = noise();
}
`)
	init := findSection(prog, ast.SectionInit)
	require.NotNil(t, init)
	// The declaration has zero uses but its initializer calls a function,
	// so remove-unused demotes it to a bare expression statement instead
	// of dropping it outright.
	var foundCall bool
	for _, s := range init.Block.Stmts {
		es, ok := s.(*ast.ExprStmt)
		if !ok {
			continue
		}
		if _, ok := es.X.(*ast.FuncCallExpr); ok {
			foundCall = true
		}
	}
	assert.True(t, foundCall)
}
