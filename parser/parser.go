// Package parser turns source-language text into an ast.Module's
// statement list. It is a collaborator (§1): deliberately a plain
// recursive-descent implementation with no error-recovery cleverness —
// the core (resolver onward) only ever sees the ast.Stmt tree this
// package hands back, never a token.
package parser

import (
	"fmt"

	"github.com/reaper-jsfx/jsfxc/ast"
	"github.com/reaper-jsfx/jsfxc/lexer"
	"modernc.org/scanner"
)

// Parser parses one source file at a time. It holds no state between
// calls to Parse.
type Parser struct {
	toks []lexer.Token
	pos  int
	file string
}

// Parse is the package-level entry point used by callers (the loader,
// tests) that have no reason to keep a Parser value around.
func Parse(name string, src []byte) ([]ast.Stmt, error) {
	return new(Parser).Parse(name, src)
}

// Parse lexes and parses src (the contents of a single file named name)
// into an ordered statement list. Parsing stops at the first lexical or
// syntax error, which is returned wrapped in a one-element
// scanner.ErrList.
func (p *Parser) Parse(name string, src []byte) ([]ast.Stmt, error) {
	p.file = name
	lx := lexer.New(string(src))
	var toks []lexer.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, scanner.ErrList{fmt.Errorf("%s: %w", name, err)}
		}
		toks = append(toks, tok)
		if tok.Kind == lexer.EOF {
			break
		}
	}
	p.toks = toks
	p.pos = 0

	stmts, err := p.parseStmts(lexer.EOF)
	if err != nil {
		return nil, scanner.ErrList{fmt.Errorf("%s: %w", name, err)}
	}
	return stmts, nil
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekKind() lexer.Kind { return p.toks[p.pos].Kind }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k lexer.Kind) bool { return p.peekKind() == k }

func (p *Parser) match(k lexer.Kind) (lexer.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if t, ok := p.match(k); ok {
		return t, nil
	}
	return lexer.Token{}, fmt.Errorf("expected %s (line %d)", what, p.cur().Line)
}

// parseStmts parses statements until the `until` token kind is seen
// (without consuming it) or EOF.
func (p *Parser) parseStmts(until lexer.Kind) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for !p.check(until) && !p.check(lexer.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *Parser) parseBlock() (*ast.BlockStmt, error) {
	open, err := p.expect(lexer.LBrace, "'{'")
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStmts(lexer.RBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ast.BlockStmt{Stmts: stmts, Ln: open.Line}, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.peekKind() {
	case lexer.KwImport:
		return p.parseImport()
	case lexer.KwModifier:
		return p.parseModifier()
	case lexer.KwStruct:
		return p.parseStruct()
	case lexer.KwInput:
		return p.parseInput()
	case lexer.KwDesc:
		return p.parseDesc()
	case lexer.At:
		return p.parseSection()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwReturn:
		return p.parseReturn()
	case lexer.KwBreak:
		ln := p.advance().Line
		_, err := p.expect(lexer.Semi, "';'")
		return &ast.LoopControlStmt{Kind: ast.LoopBreak, Ln: ln}, err
	case lexer.KwContinue:
		ln := p.advance().Line
		_, err := p.expect(lexer.Semi, "';'")
		return &ast.LoopControlStmt{Kind: ast.LoopContinue, Ln: ln}, err
	case lexer.LBrace:
		return p.parseBlock()
	}

	if p.looksLikeTypeDecl() {
		return p.parseVarOrFuncDecl()
	}

	ln := p.cur().Line
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{X: x, Ln: ln}, nil
}

// looksLikeTypeDecl peeks ahead to tell a variable declaration
// (`Type name ...;`) apart from a bare expression statement starting
// with an identifier, without backtracking: `ident ident` or
// `ident [ ] ident` or `* ident ident` can only start a declaration.
func (p *Parser) looksLikeTypeDecl() bool {
	start := p.pos
	defer func() { p.pos = start }()

	if p.check(lexer.Star) {
		p.advance()
	}
	if !p.check(lexer.Ident) {
		return false
	}
	p.advance()
	for p.check(lexer.Dot) {
		p.advance()
		if !p.check(lexer.Ident) {
			return false
		}
		p.advance()
	}
	if p.check(lexer.LBracket) {
		p.advance()
		if !p.check(lexer.RBracket) {
			return false
		}
		p.advance()
	}
	return p.check(lexer.Ident)
}

func (p *Parser) parseType() (ast.Type, error) {
	mod := ast.ModNone
	if _, ok := p.match(lexer.Star); ok {
		mod = ast.ModPointer
	}
	first, err := p.expect(lexer.Ident, "type name")
	if err != nil {
		return ast.Type{}, err
	}
	idents := []string{first.Text}
	for {
		if _, ok := p.match(lexer.Dot); !ok {
			break
		}
		id, err := p.expect(lexer.Ident, "identifier")
		if err != nil {
			return ast.Type{}, err
		}
		idents = append(idents, id.Text)
	}
	expr := ast.Expr(&ast.MemberAccessExpr{Idents: idents, Ln: first.Line})
	if mod == ast.ModNone {
		if _, ok := p.match(lexer.LBracket); ok {
			if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
				return ast.Type{}, err
			}
			mod = ast.ModArray
		}
	}
	return ast.Type{Expr: expr, Modifier: mod}, nil
}

// parseVarOrFuncDecl parses the shared `Type name` prefix of both a
// variable declaration and a function declaration, then dispatches on
// whether a '(' follows the name.
func (p *Parser) parseVarOrFuncDecl() (ast.Stmt, error) {
	ln := p.cur().Line
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return nil, err
	}
	if p.check(lexer.LParen) {
		return p.parseFuncDeclTail(ln, ty, name.Text)
	}

	var init ast.Expr
	if _, ok := p.match(lexer.Assign); ok {
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.VarDeclStmt{Ty: ty, Name: name.Text, Init: init, UniqueName: -1, Ln: ln}, nil
}

func (p *Parser) parseImport() (ast.Stmt, error) {
	ln := p.advance().Line
	path, err := p.expect(lexer.String, "import path")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.ImportStmt{RawPath: path.Text, Ln: ln}, nil
}

func (p *Parser) parseModifier() (ast.Stmt, error) {
	ln := p.advance().Line
	m := ast.ModifierStmt{Ln: ln}
	for {
		switch p.peekKind() {
		case lexer.KwPublic:
			p.advance()
			m.Public = true
		case lexer.KwPrivate:
			p.advance()
			m.Public = false
		case lexer.KwExternal:
			p.advance()
			m.External = true
		case lexer.KwInternal:
			p.advance()
			m.External = false
		default:
			if _, err := p.expect(lexer.Semi, "';'"); err != nil {
				return nil, err
			}
			return &m, nil
		}
	}
}

func (p *Parser) parseStruct() (ast.Stmt, error) {
	ln := p.advance().Line
	name, err := p.expect(lexer.Ident, "struct name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	var members []*ast.VarDeclStmt
	for !p.check(lexer.RBrace) && !p.check(lexer.EOF) {
		mln := p.cur().Line
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		mname, err := p.expect(lexer.Ident, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Semi, "';'"); err != nil {
			return nil, err
		}
		members = append(members, &ast.VarDeclStmt{Ty: ty, Name: mname.Text, UniqueName: -1, Ln: mln})
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ast.StructDeclStmt{Name: name.Text, Members: members, Ln: ln}, nil
}

// parseFuncDeclTail parses the parameter list and body of a function
// declaration whose return type and name have already been consumed by
// parseVarOrFuncDecl.
func (p *Parser) parseFuncDeclTail(ln int, retTy ast.Type, name string) (ast.Stmt, error) {
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var params []*ast.VarDeclStmt
	variadic := false
	for !p.check(lexer.RParen) {
		if len(params) > 0 {
			if _, err := p.expect(lexer.Comma, "','"); err != nil {
				return nil, err
			}
		}
		pln := p.cur().Line
		if _, ok := p.match(lexer.KwVariadic); ok {
			variadic = true
		}
		pty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		pname, err := p.expect(lexer.Ident, "parameter name")
		if err != nil {
			return nil, err
		}
		var def ast.Expr
		if _, ok := p.match(lexer.Assign); ok {
			def, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		params = append(params, &ast.VarDeclStmt{Ty: pty, Name: pname.Text, Init: def, UniqueName: -1, Ln: pln})
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDeclStmt{ReturnTy: retTy, Name: name, Params: params, Block: block, Variadic: variadic, UniqueName: -1, Ln: ln}, nil
}

func (p *Parser) parseSection() (ast.Stmt, error) {
	ln := p.advance().Line
	name, err := p.expect(lexer.Ident, "section name")
	if err != nil {
		return nil, err
	}
	kind, ok := sectionKind(name.Text)
	if !ok {
		return nil, fmt.Errorf("unknown section @%s (line %d)", name.Text, name.Line)
	}
	var props *ast.PropertyList
	if p.check(lexer.LBrace) && p.isPropertyListAhead() {
		props, err = p.parsePropertyList()
		if err != nil {
			return nil, err
		}
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.SectionStmt{Kind: kind, Block: block, Props: props, Ln: ln}, nil
}

// isPropertyListAhead disambiguates a `{ key: value }` property list from
// an ordinary statement block: a property list's first token after `{`
// is always `ident :`.
func (p *Parser) isPropertyListAhead() bool {
	return p.toks[p.pos+1].Kind == lexer.Ident && p.toks[p.pos+2].Kind == lexer.Colon
}

func sectionKind(name string) (ast.SectionKind, bool) {
	switch name {
	case "init":
		return ast.SectionInit, true
	case "slider":
		return ast.SectionSlider, true
	case "block":
		return ast.SectionBlock, true
	case "sample":
		return ast.SectionSample, true
	case "serialize":
		return ast.SectionSerialize, true
	case "gfx":
		return ast.SectionGFX, true
	}
	return 0, false
}

func (p *Parser) parsePropertyList() (*ast.PropertyList, error) {
	open, err := p.expect(lexer.LBrace, "'{'")
	if err != nil {
		return nil, err
	}
	var props []*ast.Property
	for !p.check(lexer.RBrace) {
		if len(props) > 0 {
			if _, err := p.expect(lexer.Comma, "','"); err != nil {
				return nil, err
			}
			if p.check(lexer.RBrace) {
				break
			}
		}
		prop, err := p.parseProperty()
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ast.PropertyList{Props: props, Ln: open.Line}, nil
}

func (p *Parser) parseProperty() (*ast.Property, error) {
	key, err := p.expect(lexer.Ident, "property name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Colon, "':'"); err != nil {
		return nil, err
	}
	if p.isPropertyListAhead() {
		nested, err := p.parsePropertyList()
		if err != nil {
			return nil, err
		}
		return &ast.Property{Key: key.Text, Nested: nested, Ln: key.Line}, nil
	}
	if _, ok := p.match(lexer.LBracket); ok {
		var list []ast.Expr
		for !p.check(lexer.RBracket) {
			if len(list) > 0 {
				if _, err := p.expect(lexer.Comma, "','"); err != nil {
					return nil, err
				}
			}
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list = append(list, x)
		}
		if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
			return nil, err
		}
		return &ast.Property{Key: key.Text, List: list, Ln: key.Line}, nil
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Property{Key: key.Text, Value: val, Ln: key.Line}, nil
}

func (p *Parser) parseInput() (ast.Stmt, error) {
	ln := p.advance().Line
	name, err := p.expect(lexer.Ident, "input name")
	if err != nil {
		return nil, err
	}
	props, err := p.parsePropertyList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.InputStmt{Name: name.Text, Props: props, Ln: ln}, nil
}

func (p *Parser) parseDesc() (ast.Stmt, error) {
	ln := p.advance().Line
	props, err := p.parsePropertyList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}

	d := &ast.DescStmt{Ln: ln, Description: firstStringProp(props, "description"), Props: props}
	if tags, ok := stringListProp(props, "tags"); ok {
		d.Tags = tags
	}
	if pins, ok := stringListProp(props, "in_pins"); ok {
		d.InPins = pins
		d.NoInPins = len(pins) == 0
	}
	if pins, ok := stringListProp(props, "out_pins"); ok {
		d.OutPins = pins
		d.NoOutPins = len(pins) == 0
	}
	for _, prop := range props.Props {
		if prop.Key != "options" || prop.Nested == nil {
			continue
		}
		d.Options.AllKeyboard = boolProp(prop.Nested, "all_keyboard")
		d.Options.MaxMemory = boolProp(prop.Nested, "max_memory")
		d.Options.NoMeter = boolProp(prop.Nested, "no_meter")
		for _, opt := range prop.Nested.Props {
			if opt.Key != "gfx" || opt.Nested == nil {
				continue
			}
			d.Options.GFX.HZ = firstStringProp(opt.Nested, "HZ")
			d.Options.GFX.IdleMode = firstStringProp(opt.Nested, "idle_mode")
		}
	}
	return d, nil
}

func firstStringProp(pl *ast.PropertyList, key string) string {
	for _, p := range pl.Props {
		if p.Key == key {
			if lit, ok := p.Value.(*ast.LiteralExpr); ok {
				return lit.Payload
			}
		}
	}
	return ""
}

func stringListProp(pl *ast.PropertyList, key string) ([]string, bool) {
	for _, p := range pl.Props {
		if p.Key != key {
			continue
		}
		out := make([]string, 0, len(p.List))
		for _, x := range p.List {
			if lit, ok := x.(*ast.LiteralExpr); ok {
				out = append(out, lit.Payload)
			}
		}
		return out, true
	}
	return nil, false
}

func boolProp(pl *ast.PropertyList, key string) bool {
	for _, p := range pl.Props {
		if p.Key == key {
			if lit, ok := p.Value.(*ast.LiteralExpr); ok {
				return lit.Payload == "true"
			}
		}
	}
	return false
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	ln := p.advance().Line
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then, Ln: ln}
	if _, ok := p.match(lexer.KwElse); ok {
		if p.check(lexer.KwIf) {
			elsif, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = &ast.BlockStmt{Stmts: []ast.Stmt{elsif}, Ln: elsif.Line()}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseBlock
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	ln := p.advance().Line
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Ln: ln}, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	ln := p.advance().Line
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var initStmt ast.Stmt
	if !p.check(lexer.Semi) {
		if p.looksLikeTypeDecl() {
			s, err := p.parseVarOrFuncDecl()
			if err != nil {
				return nil, err
			}
			initStmt = s
		} else {
			iln := p.cur().Line
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.Semi, "';'"); err != nil {
				return nil, err
			}
			initStmt = &ast.ExprStmt{X: x, Ln: iln}
		}
	} else {
		p.advance()
	}
	var cond ast.Expr
	if !p.check(lexer.Semi) {
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	var incr ast.Stmt
	if !p.check(lexer.RParen) {
		iln := p.cur().Line
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		incr = &ast.ExprStmt{X: x, Ln: iln}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Init: initStmt, Cond: cond, Incr: incr, Body: body, Ln: ln}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	ln := p.advance().Line
	if _, ok := p.match(lexer.Semi); ok {
		return &ast.ReturnStmt{Ln: ln}, nil
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Value: x, Ln: ln}, nil
}
