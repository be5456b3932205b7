package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func loadAndResolve(t *testing.T, src string) (*ast.AST, error) {
	t.Helper()
	dir := t.TempDir()
	root := writeFile(t, dir, "main.jsl", src)
	prog, err := loader.Load(root)
	require.NoError(t, err)
	return prog, Resolve(prog)
}

func mainModule(prog *ast.AST) *ast.ModuleNode {
	return prog.Modules[len(prog.Modules)-1]
}

func TestResolveBindsGlobalVariable(t *testing.T) {
	prog, err := loadAndResolve(t, `
float x = 1;
any useIt() {
	x = x + 1;
}
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var fn *ast.FuncDeclStmt
	var xDecl *ast.VarDeclStmt
	for _, s := range main.Stmts {
		switch d := s.(type) {
		case *ast.FuncDeclStmt:
			if d.Name == "useIt" {
				fn = d
			}
		case *ast.VarDeclStmt:
			if d.Name == "x" {
				xDecl = d
			}
		}
	}
	require.NotNil(t, fn)
	require.NotNil(t, xDecl)

	exprStmt := fn.Block.Stmts[0].(*ast.ExprStmt)
	bin := exprStmt.X.(*ast.BinaryExpr)
	lhs := bin.Left.(*ast.MemberAccessExpr)
	assert.Same(t, xDecl, lhs.VarRef)
}

func TestResolveStructMemberAccess(t *testing.T) {
	prog, err := loadAndResolve(t, `
struct Point {
	float x;
	float y;
}
Point p;
any useIt() {
	p.x = 1;
}
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var fn *ast.FuncDeclStmt
	var pDecl *ast.VarDeclStmt
	for _, s := range main.Stmts {
		switch d := s.(type) {
		case *ast.FuncDeclStmt:
			fn = d
		case *ast.VarDeclStmt:
			if d.Name == "p" {
				pDecl = d
			}
		}
	}
	require.NotNil(t, fn)
	require.NotNil(t, pDecl)

	exprStmt := fn.Block.Stmts[0].(*ast.ExprStmt)
	bin := exprStmt.X.(*ast.BinaryExpr)
	lhs := bin.Left.(*ast.MemberAccessExpr)
	require.Len(t, lhs.ParentRefs, 1)
	assert.Same(t, pDecl, lhs.ParentRefs[0])
	assert.Equal(t, "p_x", lhs.VarRef.Name)
	require.Len(t, pDecl.StructMembers, 2)
	assert.Same(t, pDecl.StructMembers[0], lhs.VarRef)
}

func TestResolveStructInstancesHaveIndependentMembers(t *testing.T) {
	prog, err := loadAndResolve(t, `
struct Point {
	float x;
	float y;
}
Point a;
Point b;
any useIt() {
	a.x = 1;
	b.x = 2;
}
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var fn *ast.FuncDeclStmt
	for _, s := range main.Stmts {
		if d, ok := s.(*ast.FuncDeclStmt); ok {
			fn = d
		}
	}
	require.NotNil(t, fn)

	lhsA := fn.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.BinaryExpr).Left.(*ast.MemberAccessExpr)
	lhsB := fn.Block.Stmts[1].(*ast.ExprStmt).X.(*ast.BinaryExpr).Left.(*ast.MemberAccessExpr)
	assert.NotSame(t, lhsA.VarRef, lhsB.VarRef)
	assert.Equal(t, "a_x", lhsA.VarRef.Name)
	assert.Equal(t, "b_x", lhsB.VarRef.Name)
}

func TestResolveUnknownIdentifierFails(t *testing.T) {
	_, err := loadAndResolve(t, `
any useIt() {
	doesNotExist = 1;
}
`)
	require.Error(t, err)
}

func TestResolvePostfixDesugarsToBlockExpr(t *testing.T) {
	prog, err := loadAndResolve(t, `
float x = 0;
any useIt() {
	x++;
}
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var fn *ast.FuncDeclStmt
	for _, s := range main.Stmts {
		if d, ok := s.(*ast.FuncDeclStmt); ok {
			fn = d
		}
	}
	require.NotNil(t, fn)
	exprStmt := fn.Block.Stmts[0].(*ast.ExprStmt)
	_, ok := exprStmt.X.(*ast.BlockExpr)
	assert.True(t, ok, "postfix increment should desugar into a block expression")
}

func TestResolveDerefRewritesToSubscript(t *testing.T) {
	prog, err := loadAndResolve(t, `
*float p;
any useIt() {
	float v = *p;
}
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var fn *ast.FuncDeclStmt
	for _, s := range main.Stmts {
		if d, ok := s.(*ast.FuncDeclStmt); ok {
			fn = d
		}
	}
	require.NotNil(t, fn)
	decl := fn.Block.Stmts[0].(*ast.VarDeclStmt)
	_, ok := decl.Init.(*ast.SubscriptExpr)
	assert.True(t, ok, "*p should be rewritten into p[0]")
}

func TestResolveBreakOutsideLoopFails(t *testing.T) {
	_, err := loadAndResolve(t, `
any useIt() {
	break;
}
`)
	require.Error(t, err)
}

func TestResolveVoidFunctionReturningValueFails(t *testing.T) {
	_, err := loadAndResolve(t, `
void useIt() {
	return 1;
}
`)
	require.Error(t, err)
}

func TestResolveInputSynthesizesBackingVar(t *testing.T) {
	prog, err := loadAndResolve(t, `
input gain {
	default_value: 1,
	min: 0,
	max: 2,
};
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var in *ast.InputStmt
	for _, s := range main.Stmts {
		if d, ok := s.(*ast.InputStmt); ok {
			in = d
		}
	}
	require.NotNil(t, in)
	require.NotNil(t, in.Var)
	assert.Equal(t, "gain", in.Var.Name)
	assert.True(t, in.Var.Mod.External)
	assert.Equal(t, 0, in.SliderNumber)
}

func TestResolveArrayTypeSynthesizesStruct(t *testing.T) {
	prog, err := loadAndResolve(t, `
float[] samples;
`)
	require.NoError(t, err)

	main := mainModule(prog)
	var v *ast.VarDeclStmt
	for _, s := range main.Stmts {
		if d, ok := s.(*ast.VarDeclStmt); ok && d.Name == "samples" {
			v = d
		}
	}
	require.NotNil(t, v)
	ma, ok := v.Ty.Expr.(*ast.MemberAccessExpr)
	require.True(t, ok)
	require.NotNil(t, ma.TypeRef)
	assert.True(t, ma.TypeRef.IsArrayType)
	assert.Equal(t, ast.ModNone, v.Ty.Modifier)
}

func TestResolveSecondDescFails(t *testing.T) {
	_, err := loadAndResolve(t, `
desc {
	description: "a",
};
desc {
	description: "b",
};
`)
	require.Error(t, err)
}
