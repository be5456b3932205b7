package passes

import (
	"testing"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTypeConv(t *testing.T, src string) *ast.AST {
	t.Helper()
	prog := loadResolved(t, src)
	require.NoError(t, ControlFlow().Run(prog))
	require.NoError(t, TypeConversion().Run(prog))
	return prog
}

func firstExprStmt(b *ast.BlockStmt) *ast.ExprStmt {
	for _, s := range b.Stmts {
		if es, ok := s.(*ast.ExprStmt); ok {
			return es
		}
	}
	return nil
}

func TestTypeConversionCollapsesBoolLiteral(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	bool b = true;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "b" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	lit, ok := decl.Init.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, ast.LitNumber, lit.Kind)
	assert.Equal(t, "1", lit.Payload)
}

func TestTypeConversionRewritesCompoundAssignment(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	float x = 1;
	x += 2;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	es := firstExprStmt(body)
	require.NotNil(t, es)
	assign, ok := es.X.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAssign, assign.Op)
	rhs, ok := assign.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, rhs.Op)
}

func TestTypeConversionWrapsIntegerDivision(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int a = 7;
	int b = 2;
	int c = a / b;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "c" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	wrap, ok := decl.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpBitOr, wrap.Op)
	_, ok = wrap.Left.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestTypeConversionRejectsAssignToRValue(t *testing.T) {
	prog := loadResolved(t, `
void run() {
	1 = 2;
}
`)
	require.NoError(t, ControlFlow().Run(prog))
	err := TypeConversion().Run(prog)
	assert.Error(t, err)
}

func TestTypeConversionFoldsNegativeLiteral(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int x = -5;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "x" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	lit, ok := decl.Init.(*ast.LiteralExpr)
	require.True(t, ok, "expected -5 to fold into a single literal, got %T", decl.Init)
	assert.Equal(t, ast.LitNumber, lit.Kind)
	assert.Equal(t, "-5", lit.Payload)
}

func TestTypeConversionCoercesLogicalOperandsToBool(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int a = 3;
	int b = 0;
	bool c = a && b;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "c" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	and, ok := decl.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpLogicalAnd, and.Op)
	assertDoubleNegated(t, and.Left)
	assertDoubleNegated(t, and.Right)
}

func TestTypeConversionCoercesNotOperandToBool(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int a = 3;
	bool c = !a;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "c" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	not, ok := decl.Init.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpNot, not.Op)
	assertDoubleNegated(t, not.X)
}

func TestTypeConversionCoercesIfConditionToBool(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int a = 3;
	if (a) {
		a = 1;
	}
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var ifs *ast.IfStmt
	for _, s := range body.Stmts {
		if is, ok := s.(*ast.IfStmt); ok {
			ifs = is
		}
	}
	require.NotNil(t, ifs)
	assertDoubleNegated(t, ifs.Cond)
}

func TestTypeConversionCoercesBoolAssignmentTarget(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int a = 3;
	bool b = a;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "b" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	assertDoubleNegated(t, decl.Init)
}

func TestTypeConversionCoercesBoolCallArgument(t *testing.T) {
	prog := runTypeConv(t, `
void take(bool flag) {
}
void run() {
	int a = 3;
	take(a);
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	es := firstExprStmt(body)
	require.NotNil(t, es)
	call, ok := es.X.(*ast.FuncCallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
	assertDoubleNegated(t, call.Args[0])
}

func TestTypeConversionRejectsStructArgumentMismatch(t *testing.T) {
	prog := loadResolved(t, `
struct Point {
	int x;
}
Point p;
void take(int n) {
}
void run() {
	take(p);
}
`)
	require.NoError(t, ControlFlow().Run(prog))
	err := TypeConversion().Run(prog)
	assert.Error(t, err)
}

// assertDoubleNegated checks that e is the canonical !(!(x)) bool-coercion
// wrapper typeconv.go's coerceToBool synthesizes.
func assertDoubleNegated(t *testing.T, e ast.Expr) {
	t.Helper()
	outer, ok := e.(*ast.UnaryExpr)
	require.True(t, ok, "expected a bool-coercion wrapper, got %T", e)
	assert.Equal(t, ast.OpNot, outer.Op)
	inner, ok := outer.X.(*ast.UnaryExpr)
	require.True(t, ok, "expected a double negation, got %T", outer.X)
	assert.Equal(t, ast.OpNot, inner.Op)
}

func TestTypeConversionDistinguishesIntAndFloatLiterals(t *testing.T) {
	prog := runTypeConv(t, `
void run() {
	int a = 3;
	float b = 3 / 2;
}
`)
	fn := mainFunc(prog, "run")
	require.NotNil(t, fn)
	body := fn.Block.Stmts[1].(*ast.BlockStmt)
	var decl *ast.VarDeclStmt
	for _, s := range body.Stmts {
		if vd, ok := s.(*ast.VarDeclStmt); ok && vd.Name == "b" {
			decl = vd
		}
	}
	require.NotNil(t, decl)
	// Both operands of 3 / 2 are int literals, so this is integer
	// division and must come out |0-wrapped, not a plain float divide.
	wrap, ok := decl.Init.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpBitOr, wrap.Op)
}
