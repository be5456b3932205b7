package passes

import (
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueNameIsMonotonicAcrossDecls(t *testing.T) {
	prog := loadResolved(t, `
any add(any a, any b) {
	return a + b;
}

@init
{
	float x = 1;
	float y = 2;
}
`)
	require.NoError(t, ControlFlow().Run(prog))
	require.NoError(t, TypeConversion().Run(prog))
	require.NoError(t, Lowering().Run(prog))
	require.NoError(t, UseAnalysis().Run(prog))
	require.NoError(t, UniqueName().Run(prog))

	seen := map[int]bool{}
	m := prog.Modules[len(prog.Modules)-1]
	for _, s := range m.Stmts {
		switch stmt := s.(type) {
		case *ast.FuncDeclStmt:
			assert.Greater(t, stmt.UniqueName, 0)
			assert.False(t, seen[stmt.UniqueName])
			seen[stmt.UniqueName] = true
		case *ast.SectionStmt:
			for _, bs := range stmt.Block.Stmts {
				if vd, ok := bs.(*ast.VarDeclStmt); ok {
					assert.Greater(t, vd.UniqueName, 0)
					assert.False(t, seen[vd.UniqueName])
					seen[vd.UniqueName] = true
				}
			}
		}
	}
}
