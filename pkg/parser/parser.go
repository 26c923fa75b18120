// Package parser implements SCULL's hand-written recursive-descent parser:
// token stream in, ast.Program out. AST nodes are ordinary Go values; none
// is allocated from the arena passed to New.
package parser

import (
	"scull-lang/sculc/pkg/arena"
	"scull-lang/sculc/pkg/ast"
	"scull-lang/sculc/pkg/diag"
	"scull-lang/sculc/pkg/token"
)

// Parser consumes a flat token stream and produces an ast.Program.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  *diag.Bag
	arena  *arena.Arena
	loopCounter int
}

// New returns a parser over tokens, reporting syntax errors to diags. The
// parser keeps a but allocates nothing from it; the AST nodes are ordinary
// Go values owned by the returned ast.Program.
func New(tokens []token.Token, diags *diag.Bag, a *arena.Arena) *Parser {
	return &Parser{tokens: tokens, diags: diags, arena: a}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.END}
	}
	return p.tokens[p.pos]
}

func (p *Parser) at(kind token.Kind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.at(kind) {
		return p.advance(), true
	}
	t := p.cur()
	p.diags.Errorf(t.Line, "expected %s, got %s", kind, t.Kind)
	return t, false
}

// Parse runs the parser to completion, returning the resulting program. It
// keeps reporting syntax errors: when an instruction fails to parse, parsing
// resumes at the token where it stopped, skipping one token if the failed
// instruction consumed none, so a single malformed instruction doesn't
// prevent the rest of the file from being parsed and checked.
func (p *Parser) Parse() *ast.Program {
	prog := ast.NewProgram()

	for !p.at(token.END) {
		mark := p.pos
		instr := p.parseInstr()
		if instr == nil {
			if p.pos == mark {
				p.advance()
			}
			continue
		}
		prog.Instrs = append(prog.Instrs, instr)
	}

	prog.LoopCounter = p.loopCounter
	return prog
}

func (p *Parser) parseInstr() ast.Instr {
	switch p.cur().Kind {
	case token.FN:
		return p.parseFn()
	case token.IF:
		return p.parseIf()
	case token.GOTO:
		return p.parseGoto()
	case token.LABEL:
		return p.parseLabel()
	case token.LOOP, token.WHILE, token.DO_WHILE, token.FOR:
		return p.parseLoop()
	case token.MATCH:
		return p.parseMatch()
	case token.BREAK:
		line := p.advance().Line
		return ast.LoopBreakInstr{}.WithLine(line)
	case token.CONTINUE:
		line := p.advance().Line
		return ast.LoopContinueInstr{}.WithLine(line)
	case token.RETURN:
		return p.parseReturn()
	case token.TYPE_INT, token.TYPE_CHAR:
		return p.parseDeclareOrInitialize()
	case token.IDENTIFIER:
		return p.parseAssignOrCall()
	default:
		t := p.cur()
		p.diags.Errorf(t.Line, "unexpected token %s at start of instruction", t.Kind)
		return nil
	}
}

func (p *Parser) parseType() (ast.Type, bool) {
	switch p.cur().Kind {
	case token.TYPE_INT:
		p.advance()
		return ast.TypeInt, true
	case token.TYPE_CHAR:
		p.advance()
		return ast.TypeChar, true
	default:
		t := p.cur()
		p.diags.Errorf(t.Line, "expected a type, got %s", t.Kind)
		return ast.TypeVoid, false
	}
}

// parseDeclareOrInitialize handles `<type> name`, `<type> name = expr`,
// `<type> *name` (pointer/string promotion) and the array forms
// `<type> name[size]` / `<type> name[size] = { ... }`.
func (p *Parser) parseDeclareOrInitialize() ast.Instr {
	line := p.cur().Line
	baseType, ok := p.parseType()
	if !ok {
		return nil
	}

	varType := baseType
	var name string
	switch p.cur().Kind {
	case token.POINTER:
		name = p.advance().StrValue
		if baseType == ast.TypeChar {
			varType = ast.TypeString
		} else {
			varType = ast.TypePointer
		}
	case token.IDENTIFIER:
		name = p.advance().StrValue
	default:
		t := p.cur()
		p.diags.Errorf(t.Line, "expected a variable name, got %s", t.Kind)
		return nil
	}

	v := ast.Variable{Type: varType, Name: name, Line: line}

	if p.at(token.LSQBR) {
		p.advance()
		sizeExpr := p.parseExpr()
		if _, ok := p.expect(token.RSQBR); !ok {
			return nil
		}
		v.IsArray = true

		if p.at(token.ASSIGN) {
			p.advance()
			lit := p.parseArrayLiteral()
			return ast.InitializeArrayInstr{Var: v, SizeExpr: sizeExpr, Literal: lit}.WithLine(line)
		}

		return ast.DeclareArrayInstr{Var: v, SizeExpr: sizeExpr}.WithLine(line)
	}

	if p.at(token.ASSIGN) {
		p.advance()
		expr := p.parseExpr()
		return ast.InitializeInstr{Var: v, Expr: expr}.WithLine(line)
	}

	return ast.DeclareInstr{Var: v}.WithLine(line)
}

func (p *Parser) parseArrayLiteral() ast.ArrayLiteralTerm {
	line := p.cur().Line
	p.expect(token.LBRACE)
	var elems []ast.Expr
	for !p.at(token.RBRACE) && !p.at(token.END) {
		elems = append(elems, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RBRACE)
	return ast.ArrayLiteralTerm{Elements: elems}.WithLine(line)
}

// parseAssignOrCall handles `name = expr`, `name[idx] = expr`, and a bare
// function call used as a statement, disambiguated by rewinding to the
// start of the identifier if a '(' follows instead of '=' or '['.
func (p *Parser) parseAssignOrCall() ast.Instr {
	mark := p.pos
	line := p.cur().Line
	name := p.advance().StrValue

	if p.at(token.LPAREN) {
		p.pos = mark
		call := p.parseFnCallTerm()
		return ast.FnCallInstr{Name: call.Name, Params: call.Params}.WithLine(line)
	}

	if p.at(token.LSQBR) {
		p.advance()
		idx := p.parseExpr()
		p.expect(token.RSQBR)
		p.expect(token.ASSIGN)
		expr := p.parseExpr()
		return ast.AssignToArraySubscriptInstr{
			Var:       ast.Variable{Name: name, Line: line},
			IndexExpr: idx,
			Expr:      expr,
		}.WithLine(line)
	}

	if _, ok := p.expect(token.ASSIGN); !ok {
		return nil
	}
	expr := p.parseExpr()
	return ast.AssignInstr{Var: ast.Variable{Name: name, Line: line}, Expr: expr}.WithLine(line)
}

func (p *Parser) parseFnCallTerm() ast.FnCallTerm {
	line := p.cur().Line
	name := ""
	if p.at(token.IDENTIFIER) {
		name = p.advance().StrValue
	}
	p.expect(token.LPAREN)
	var params []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.END) {
		params = append(params, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	return ast.FnCallTerm{Name: name, Params: params}.WithLine(line)
}

func (p *Parser) parseGoto() ast.Instr {
	line := p.advance().Line // 'goto'
	if p.at(token.IDENTIFIER) || p.at(token.LABEL) {
		name := p.advance().StrValue
		return ast.NewGotoInstr(line, name)
	}
	t := p.cur()
	p.diags.Errorf(t.Line, "expected a label name after goto, got %s", t.Kind)
	return nil
}

func (p *Parser) parseLabel() ast.Instr {
	t := p.advance()
	return ast.NewLabelInstr(t.Line, t.StrValue)
}

func (p *Parser) parseRel() ast.Rel {
	line := p.cur().Line
	lhs := p.parseTerm()
	var kind ast.RelKind
	switch p.cur().Kind {
	case token.IS_EQUAL:
		kind = ast.RelIsEqual
	case token.NOT_EQUAL:
		kind = ast.RelNotEqual
	case token.LESS_THAN:
		kind = ast.RelLessThan
	case token.LESS_THAN_OR_EQUAL:
		kind = ast.RelLessThanOrEqual
	case token.GREATER_THAN:
		kind = ast.RelGreaterThan
	case token.GREATER_THAN_OR_EQUAL:
		kind = ast.RelGreaterThanOrEqual
	default:
		t := p.cur()
		p.diags.Errorf(t.Line, "expected a relational operator, got %s", t.Kind)
		return ast.Rel{Line: line, Lhs: lhs}
	}
	p.advance()
	rhs := p.parseTerm()
	return ast.Rel{Kind: kind, Line: line, Lhs: lhs, Rhs: rhs}
}

func (p *Parser) parseIf() ast.Instr {
	line := p.advance().Line // 'if'
	rel := p.parseRel()
	p.expect(token.THEN)

	if p.at(token.LBRACE) {
		p.advance()
		var instrs []ast.Instr
		for !p.at(token.RBRACE) && !p.at(token.END) {
			if instr := p.parseInstr(); instr != nil {
				instrs = append(instrs, instr)
			}
		}
		p.expect(token.RBRACE)
		return ast.IfInstr{Rel: rel, Instrs: instrs}.WithLine(line)
	}

	inner := p.parseInstr()
	return ast.IfInstr{Rel: rel, Instr: inner}.WithLine(line)
}

func (p *Parser) parseLoop() ast.Instr {
	line := p.cur().Line
	kind := ast.LoopUnconditional
	var cond ast.Rel
	var iterator ast.Variable
	var rangeStart, rangeEnd ast.Expr

	switch p.advance().Kind {
	case token.WHILE:
		kind = ast.LoopWhile
		cond = p.parseRel()
	case token.DO_WHILE:
		kind = ast.LoopDoWhile
		cond = p.parseRel()
	case token.FOR:
		kind = ast.LoopFor
		name := ""
		if p.at(token.IDENTIFIER) {
			name = p.advance().StrValue
		} else {
			t := p.cur()
			p.diags.Errorf(t.Line, "expected an iterator name after for, got %s", t.Kind)
		}
		iterator = ast.Variable{Type: ast.TypeInt, Name: name, Line: line}
		p.expect(token.IN)
		rangeStart = p.parseExpr()
		p.expect(token.ELLIPSIS)
		rangeEnd = p.parseExpr()
	}

	id := p.loopCounter
	p.loopCounter++

	p.expect(token.LBRACE)
	var instrs []ast.Instr
	for !p.at(token.RBRACE) && !p.at(token.END) {
		if instr := p.parseInstr(); instr != nil {
			instrs = append(instrs, instr)
		}
	}
	p.expect(token.RBRACE)

	return ast.LoopInstr{
		Kind: kind, LoopID: id, BreakCondition: cond,
		Iterator: iterator, RangeStart: rangeStart, RangeEnd: rangeEnd,
		Instrs: instrs,
	}.WithLine(line)
}

// parseMatch parses `match expr { case... }`, where each case is a
// comma-separated value list, a `start...end` range, or the `_` wildcard,
// followed by `:` and a body in the same single-instr-or-braced-block shape
// as an if branch.
func (p *Parser) parseMatch() ast.Instr {
	line := p.advance().Line // 'match'
	expr := p.parseExpr()
	p.expect(token.LBRACE)

	var cases []ast.MatchCase
	for !p.at(token.RBRACE) && !p.at(token.END) {
		cases = append(cases, p.parseMatchCase())
	}
	p.expect(token.RBRACE)

	return ast.MatchInstr{Expr: expr, Cases: cases}.WithLine(line)
}

func (p *Parser) parseMatchCase() ast.MatchCase {
	line := p.cur().Line

	if p.at(token.UNDERSCORE) {
		p.advance()
		p.expect(token.COLON)
		instr, instrs := p.parseMatchBody()
		return ast.MatchCase{Kind: ast.MatchCaseDefault, Instr: instr, Instrs: instrs}.WithLine(line)
	}

	first := p.parseExpr()
	if p.at(token.ELLIPSIS) {
		p.advance()
		end := p.parseExpr()
		p.expect(token.COLON)
		instr, instrs := p.parseMatchBody()
		return ast.MatchCase{Kind: ast.MatchCaseRange, RangeStart: first, RangeEnd: end, Instr: instr, Instrs: instrs}.WithLine(line)
	}

	values := []ast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		values = append(values, p.parseExpr())
	}
	p.expect(token.COLON)
	instr, instrs := p.parseMatchBody()
	return ast.MatchCase{Kind: ast.MatchCaseValues, Values: values, Instr: instr, Instrs: instrs}.WithLine(line)
}

func (p *Parser) parseMatchBody() (ast.Instr, []ast.Instr) {
	if p.at(token.LBRACE) {
		p.advance()
		var instrs []ast.Instr
		for !p.at(token.RBRACE) && !p.at(token.END) {
			if instr := p.parseInstr(); instr != nil {
				instrs = append(instrs, instr)
			}
		}
		p.expect(token.RBRACE)
		return nil, instrs
	}
	return p.parseInstr(), nil
}

func (p *Parser) parseReturn() ast.Instr {
	line := p.advance().Line // 'return'
	var vals []ast.Expr
	if !p.at(token.END) {
		for {
			vals = append(vals, p.parseExpr())
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	return ast.ReturnInstr{Values: vals}.WithLine(line)
}

func (p *Parser) parseFn() ast.Instr {
	line := p.advance().Line // 'fn'
	name := ""
	if p.at(token.IDENTIFIER) {
		name = p.advance().StrValue
	}

	p.expect(token.LPAREN)
	var params []ast.Variable
	variadic := false
	for !p.at(token.RPAREN) && !p.at(token.END) {
		if p.at(token.ELLIPSIS) {
			p.advance()
			variadic = true
			break
		}
		t, ok := p.parseType()
		if !ok {
			break
		}
		pname := ""
		if p.at(token.IDENTIFIER) {
			pname = p.advance().StrValue
		}
		params = append(params, ast.Variable{Type: t, Name: pname, Line: line})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)

	var returns []ast.Type
	if p.at(token.COLON) {
		p.advance()
		for {
			t, ok := p.parseType()
			if !ok {
				break
			}
			returns = append(returns, t)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}

	fn := ast.FnInstr{Name: name, ReturnTypes: returns, Parameters: params, Variadic: variadic}

	// Declare→define promotion: a trailing '{' makes this a full
	// definition instead of a forward declaration.
	if p.at(token.LBRACE) {
		p.advance()
		fn.Kind = ast.FnDefined
		fn.Variables = ast.NewFunctionScope()
		for !p.at(token.RBRACE) && !p.at(token.END) {
			if instr := p.parseInstr(); instr != nil {
				fn.Instrs = append(fn.Instrs, instr)
			}
		}
		p.expect(token.RBRACE)
	} else {
		fn.Kind = ast.FnDeclared
	}

	return fn.WithLine(line)
}

func (p *Parser) parseExpr() ast.Expr {
	line := p.cur().Line
	left := p.parseFactor()
	for p.at(token.ADD) || p.at(token.SUBTRACT) {
		op := ast.OpAdd
		if p.cur().Kind == token.SUBTRACT {
			op = ast.OpSubtract
		}
		p.advance()
		right := p.parseFactor()
		left = ast.NewBinaryExpr(line, op, left, right)
	}
	return left
}

func (p *Parser) parseFactor() ast.Expr {
	line := p.cur().Line
	left := p.parseTermExpr()
	for p.at(token.MULTIPLY) || p.at(token.DIVIDE) || p.at(token.MODULO) {
		var op ast.BinaryOp
		switch p.advance().Kind {
		case token.MULTIPLY:
			op = ast.OpMultiply
		case token.DIVIDE:
			op = ast.OpDivide
		case token.MODULO:
			op = ast.OpModulo
		}
		right := p.parseTermExpr()
		left = ast.NewBinaryExpr(line, op, left, right)
	}
	return left
}

func (p *Parser) parseTermExpr() ast.Expr {
	line := p.cur().Line
	return ast.NewTermExpr(line, p.parseTerm())
}

func (p *Parser) parseTerm() ast.Term {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		return ast.NewIntTerm(t.Line, t.IntValue)
	case token.CHAR:
		p.advance()
		return ast.NewCharTerm(t.Line, t.CharValue)
	case token.POINTER:
		p.advance()
		return ast.NewPointerTerm(t.Line, t.StrValue)
	case token.ADDRESS_OF:
		p.advance()
		return ast.NewAddrOfTerm(t.Line, t.StrValue)
	case token.MULTIPLY:
		p.advance()
		return ast.DerefTerm{Operand: p.parseTerm()}.WithLine(t.Line)
	case token.LBRACE:
		return p.parseArrayLiteral()
	case token.IDENTIFIER:
		mark := p.pos
		name := p.advance().StrValue
		if p.at(token.LPAREN) {
			p.pos = mark
			return p.parseFnCallTerm()
		}
		if p.at(token.LSQBR) {
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RSQBR)
			return ast.ArrayAccessTerm{Array: ast.Variable{Name: name, Line: t.Line}, Index: idx}.WithLine(t.Line)
		}
		return ast.NewIdentifierTerm(t.Line, name)
	default:
		p.diags.Errorf(t.Line, "unexpected token %s in expression", t.Kind)
		p.advance()
		return ast.NewIntTerm(t.Line, 0)
	}
}
