package parser

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/lexer"
)

// Precedence climbing, lowest to highest: assignment, ||, &&, ==/!=,
// relational, |, ~ (xor), &, shift, additive, multiplicative, power.
// Unary and postfix are handled outside the table.

var assignOps = map[lexer.Kind]ast.BinaryOp{
	lexer.Assign:        ast.OpAssign,
	lexer.PlusAssign:    ast.OpAddAssign,
	lexer.MinusAssign:   ast.OpSubAssign,
	lexer.StarAssign:    ast.OpMulAssign,
	lexer.SlashAssign:   ast.OpDivAssign,
	lexer.PercentAssign: ast.OpModAssign,
	lexer.CaretAssign:   ast.OpPowAssign,
	lexer.AmpAssign:     ast.OpAndAssign,
	lexer.PipeAssign:    ast.OpOrAssign,
	lexer.TildeAssign:   ast.OpXorAssign,
}

type binLevel struct {
	ops map[lexer.Kind]ast.BinaryOp
}

var binLevels = []binLevel{
	{map[lexer.Kind]ast.BinaryOp{lexer.OrOr: ast.OpLogicalOr}},
	{map[lexer.Kind]ast.BinaryOp{lexer.AndAnd: ast.OpLogicalAnd}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Eq: ast.OpEq, lexer.Neq: ast.OpNeq}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Gt: ast.OpGt, lexer.Gte: ast.OpGte, lexer.Lt: ast.OpLt, lexer.Lte: ast.OpLte}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Pipe: ast.OpBitOr}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Tilde: ast.OpBitXor}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Amp: ast.OpBitAnd}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Shl: ast.OpShl, lexer.Shr: ast.OpShr}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Plus: ast.OpAdd, lexer.Minus: ast.OpSub}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Star: ast.OpMul, lexer.Slash: ast.OpDiv, lexer.Percent: ast.OpMod}},
	{map[lexer.Kind]ast.BinaryOp{lexer.Caret: ast.OpPow}},
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssign()
}

// parseAssign is right-associative and sits above every other binary
// level; this is also where the chained-assignment pass later finds
// `x = (y = expr)` shapes, since the parser itself does not lift them
// (that's §4.5's job, not the parser's).
func (p *Parser) parseAssign() (ast.Expr, error) {
	left, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[p.peekKind()]; ok {
		ln := p.advance().Line
		right, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: op, Left: left, Right: right, Ln: ln}, nil
	}
	return left, nil
}

func (p *Parser) parseBinary(level int) (ast.Expr, error) {
	if level >= len(binLevels) {
		return p.parseUnary()
	}
	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binLevels[level].ops[p.peekKind()]
		if !ok {
			return left, nil
		}
		ln := p.advance().Line
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Ln: ln}
	}
}

var unaryOps = map[lexer.Kind]ast.UnaryOp{
	lexer.Plus:       ast.OpPos,
	lexer.Minus:      ast.OpNeg,
	lexer.Bang:       ast.OpNot,
	lexer.PlusPlus:   ast.OpPreIncr,
	lexer.MinusMinus: ast.OpPreDecr,
	lexer.Star:       ast.OpDeref,
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if op, ok := unaryOps[p.peekKind()]; ok {
		ln := p.advance().Line
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, X: x, Ln: ln}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peekKind() {
		case lexer.PlusPlus, lexer.MinusMinus:
			op := ast.OpPreIncr
			if p.peekKind() == lexer.MinusMinus {
				op = ast.OpPreDecr
			}
			ln := p.advance().Line
			x = &ast.UnaryExpr{Op: op, X: x, Postfix: true, Ln: ln}
		case lexer.Dot:
			ln := p.advance().Line
			id, err := p.expect(lexer.Ident, "identifier")
			if err != nil {
				return nil, err
			}
			x = appendMember(x, id.Text, ln)
		case lexer.Arrow:
			// `a->` is sugar for `a[0]` (§6.1), resolved at parse time
			// as a SubscriptExpr so later passes never special-case it.
			ln := p.advance().Line
			x = &ast.SubscriptExpr{Base: x, Index: &ast.LiteralExpr{Kind: ast.LitNumber, Payload: "0", Ln: ln}, Ln: ln}
		case lexer.LBracket:
			ln := p.advance().Line
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
				return nil, err
			}
			x = &ast.SubscriptExpr{Base: x, Index: idx, Ln: ln}
		case lexer.LParen:
			ln := p.advance().Line
			var args []ast.Expr
			for !p.check(lexer.RParen) {
				if len(args) > 0 {
					if _, err := p.expect(lexer.Comma, "','"); err != nil {
						return nil, err
					}
				}
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
			}
			if _, err := p.expect(lexer.RParen, "')'"); err != nil {
				return nil, err
			}
			x = &ast.FuncCallExpr{Base: x, Args: args, Ln: ln}
		default:
			return x, nil
		}
	}
}

// appendMember folds a `.ident` suffix onto an existing bare
// MemberAccessExpr chain (e.g. `a.b.c`), or starts a new chain based on x
// when x is not itself one (e.g. `f().member` or `(expr).member`).
func appendMember(x ast.Expr, ident string, ln int) ast.Expr {
	if ma, ok := x.(*ast.MemberAccessExpr); ok && ma.Base == nil {
		ma.Idents = append(ma.Idents, ident)
		return ma
	}
	return &ast.MemberAccessExpr{Base: x, Idents: []string{ident}, Ln: ln}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Number:
		p.advance()
		return &ast.LiteralExpr{Kind: ast.LitNumber, Payload: tok.Text, Ln: tok.Line}, nil
	case lexer.String:
		p.advance()
		return &ast.LiteralExpr{Kind: ast.LitString, Payload: tok.Text, Ln: tok.Line}, nil
	case lexer.Char:
		p.advance()
		return &ast.LiteralExpr{Kind: ast.LitChar, Payload: tok.Text, Ln: tok.Line}, nil
	case lexer.KwTrue:
		p.advance()
		return &ast.LiteralExpr{Kind: ast.LitBool, Payload: "true", Ln: tok.Line}, nil
	case lexer.KwFalse:
		p.advance()
		return &ast.LiteralExpr{Kind: ast.LitBool, Payload: "false", Ln: tok.Line}, nil
	case lexer.KwSizeof:
		return p.parseSizeof()
	case lexer.KwDo:
		return p.parseBlockExpr()
	case lexer.LParen:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	case lexer.Ident:
		p.advance()
		return &ast.MemberAccessExpr{Idents: []string{tok.Text}, Ln: tok.Line}, nil
	}
	return nil, fmt.Errorf("unexpected token in expression (line %d)", tok.Line)
}

// parseSizeof handles both `sizeof(expr)` and `sizeof(Type)`: the
// resolver, not the parser, decides which (§4.2: "a bare identifier is
// interpreted as a type if resolution as a type succeeds").
func (p *Parser) parseSizeof() (ast.Expr, error) {
	ln := p.advance().Line
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.SizeOfExpr{X: x, Ln: ln}, nil
}

// parseBlockExpr parses `do Type { stmts... }`.
func (p *Parser) parseBlockExpr() (ast.Expr, error) {
	ln := p.advance().Line
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.BlockExpr{ResultType: ty, Block: block, Ln: ln}, nil
}
