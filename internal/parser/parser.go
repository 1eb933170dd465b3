// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

// Package parser implements a hand-written recursive-descent parser that
// turns a [lex.Scanner]'s token stream into an [*ast.Block].
package parser

import (
	"fmt"
	"strconv"

	"minilua.dev/interp/internal/ast"
	"minilua.dev/interp/internal/lex"
)

// SyntaxError reports a grammar violation: an expected-vs-got mismatch
// between what the grammar required and the token actually found.
type SyntaxError struct {
	Position lex.Position
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %s", e.Position, e.Message)
}

// Parser performs a recursive-descent parse over a [lex.Scanner],
// pulling exactly one token of lookahead at a time.
type Parser struct {
	s       *lex.Scanner
	current lex.Token
}

// New returns a [Parser] reading tokens from s, having already pulled the
// first token.
func New(s *lex.Scanner) (*Parser, error) {
	p := &Parser{s: s}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.s.Scan()
	if err != nil {
		return err
	}
	p.current = tok
	return nil
}

func (p *Parser) syntaxErrorf(format string, args ...any) error {
	return &SyntaxError{Position: p.current.Position, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(kind lex.Kind) (lex.Token, error) {
	if p.current.Kind != kind {
		return lex.Token{}, p.syntaxErrorf("expected %v, got %v", kind, p.current.Kind)
	}
	tok := p.current
	if err := p.advance(); err != nil {
		return lex.Token{}, err
	}
	return tok, nil
}

// atLineEnd reports whether the current token is a valid LINE_END
// (NEWLINE or EOF) without consuming it.
func (p *Parser) atLineEnd() bool {
	return p.current.Kind == lex.NewlineKind || p.current.Kind == lex.EOFKind
}

// lineEnd consumes a LINE_END: a NEWLINE token, or does nothing at EOF
// (EOF is itself the terminator and stays put so the caller can detect
// it).
func (p *Parser) lineEnd() error {
	if p.current.Kind == lex.EOFKind {
		return nil
	}
	if p.current.Kind != lex.NewlineKind {
		return p.syntaxErrorf("expected newline, got %v", p.current.Kind)
	}
	return p.advance()
}

// ParseProgram parses Program := Block, consuming every token through
// EOF.
func (p *Parser) ParseProgram() (*ast.Block, error) {
	return p.parseBlock(nil)
}

// parseBlock parses Block := { Statement }, stopping when the current
// token is EOF or is a member of stop (used for the ELSE/END tokens that
// close `if`/`while`/`function` bodies).
func (p *Parser) parseBlock(stop map[lex.Kind]bool) (*ast.Block, error) {
	pos := p.current.Position
	var stmts []ast.Stmt
	for p.current.Kind != lex.EOFKind && !stop[p.current.Kind] {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if _, isNoOp := stmt.(*ast.NoOp); isNoOp {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return ast.NewBlock(pos, stmts), nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.current.Kind {
	case lex.NewlineKind:
		pos := p.current.Position
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.NewNoOp(pos), nil

	case lex.LocalKind:
		return p.parseLocalDecl()

	case lex.IdentKind:
		return p.parseIdentStatement()

	case lex.PrintKind:
		return p.parsePrint()

	case lex.IfKind:
		return p.parseIf()

	case lex.WhileKind:
		return p.parseWhile()

	case lex.FunctionKind:
		return p.parseFuncDec()

	case lex.ReturnKind:
		return p.parseReturn()

	default:
		return nil, p.syntaxErrorf("expected statement, got %v", p.current.Kind)
	}
}

func (p *Parser) parseLocalDecl() (ast.Stmt, error) {
	pos := p.current.Position
	if err := p.advance(); err != nil { // consume 'local'
		return nil, err
	}
	nameTok, err := p.expect(lex.IdentKind)
	if err != nil {
		return nil, err
	}

	var init ast.Expr = ast.NewNoOp(p.current.Position)
	if p.current.Kind == lex.AssignKind {
		if err := p.advance(); err != nil {
			return nil, err
		}
		init, err = p.parseBoolExpr()
		if err != nil {
			return nil, err
		}
	}
	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return ast.NewVarDec(pos, nameTok.Value, init), nil
}

// parseIdentStatement resolves the statement-leading IDENT ambiguity with
// one token of lookahead: '(' means a call statement, '=' means an
// assignment.
func (p *Parser) parseIdentStatement() (ast.Stmt, error) {
	pos := p.current.Position
	name := p.current.Value
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.current.Kind {
	case lex.LParenKind:
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if err := p.lineEnd(); err != nil {
			return nil, err
		}
		return ast.NewFuncCall(pos, name, args), nil

	case lex.AssignKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseBoolExpr()
		if err != nil {
			return nil, err
		}
		if err := p.lineEnd(); err != nil {
			return nil, err
		}
		return ast.NewAssignment(pos, name, expr), nil

	default:
		return nil, p.syntaxErrorf("expected '=' or '(', got %v", p.current.Kind)
	}
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	pos := p.current.Position
	if err := p.advance(); err != nil { // consume 'print'
		return nil, err
	}
	if _, err := p.expect(lex.LParenKind); err != nil {
		return nil, err
	}
	expr, err := p.parseBoolExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.RParenKind); err != nil {
		return nil, err
	}
	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return ast.NewPrint(pos, expr), nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.current.Position
	if err := p.advance(); err != nil { // consume 'if'
		return nil, err
	}
	cond, err := p.parseBoolExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.ThenKind); err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.NewlineKind); err != nil {
		return nil, err
	}
	then, err := p.parseBlock(map[lex.Kind]bool{lex.ElseKind: true, lex.EndKind: true})
	if err != nil {
		return nil, err
	}

	var els *ast.Block
	switch p.current.Kind {
	case lex.ElseKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.NewlineKind); err != nil {
			return nil, err
		}
		els, err = p.parseBlock(map[lex.Kind]bool{lex.EndKind: true})
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.EndKind); err != nil {
			return nil, err
		}
	case lex.EndKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		return nil, p.syntaxErrorf("expected 'else' or 'end', got %v", p.current.Kind)
	}

	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return ast.NewIf(pos, cond, then, els), nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.current.Position
	if err := p.advance(); err != nil { // consume 'while'
		return nil, err
	}
	cond, err := p.parseBoolExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.DoKind); err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.NewlineKind); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(map[lex.Kind]bool{lex.EndKind: true})
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.EndKind); err != nil {
		return nil, err
	}
	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return ast.NewWhile(pos, cond, body), nil
}

func (p *Parser) parseFuncDec() (ast.Stmt, error) {
	pos := p.current.Position
	if err := p.advance(); err != nil { // consume 'function'
		return nil, err
	}
	nameTok, err := p.expect(lex.IdentKind)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.LParenKind); err != nil {
		return nil, err
	}
	var params []string
	if p.current.Kind != lex.RParenKind {
		for {
			paramTok, err := p.expect(lex.IdentKind)
			if err != nil {
				return nil, err
			}
			params = append(params, paramTok.Value)
			if p.current.Kind != lex.CommaKind {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(lex.RParenKind); err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.NewlineKind); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(map[lex.Kind]bool{lex.EndKind: true})
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lex.EndKind); err != nil {
		return nil, err
	}
	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return ast.NewFuncDec(pos, nameTok.Value, params, body), nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.current.Position
	if err := p.advance(); err != nil { // consume 'return'
		return nil, err
	}
	expr, err := p.parseBoolExpr()
	if err != nil {
		return nil, err
	}
	if err := p.lineEnd(); err != nil {
		return nil, err
	}
	return ast.NewReturn(pos, expr), nil
}

func (p *Parser) parseArgList() ([]ast.Expr, error) {
	if _, err := p.expect(lex.LParenKind); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if p.current.Kind != lex.RParenKind {
		for {
			arg, err := p.parseBoolExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current.Kind != lex.CommaKind {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(lex.RParenKind); err != nil {
		return nil, err
	}
	return args, nil
}

// parseBoolExpr handles BoolExpr := BoolTerm { 'or' BoolTerm }, the
// lowest-precedence level.
func (p *Parser) parseBoolExpr() (ast.Expr, error) {
	left, err := p.parseBoolTerm()
	if err != nil {
		return nil, err
	}
	for p.current.Kind == lex.OrKind {
		pos := p.current.Position
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBoolTerm()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(pos, ast.Or, left, right)
	}
	return left, nil
}

// parseBoolTerm handles BoolTerm := RelExpr { 'and' RelExpr }.
func (p *Parser) parseBoolTerm() (ast.Expr, error) {
	left, err := p.parseRelExpr()
	if err != nil {
		return nil, err
	}
	for p.current.Kind == lex.AndKind {
		pos := p.current.Position
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelExpr()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(pos, ast.And, left, right)
	}
	return left, nil
}

// parseRelExpr handles RelExpr := AddExpr [ ('>'|'<'|'==') AddExpr ],
// which is non-associative: at most one relational operator.
func (p *Parser) parseRelExpr() (ast.Expr, error) {
	left, err := p.parseAddExpr()
	if err != nil {
		return nil, err
	}
	var op ast.BinaryOp
	switch p.current.Kind {
	case lex.GTKind:
		op = ast.Gt
	case lex.LTKind:
		op = ast.Lt
	case lex.EQKind:
		op = ast.Eq
	default:
		return left, nil
	}
	pos := p.current.Position
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseAddExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewBinOp(pos, op, left, right), nil
}

// parseAddExpr handles AddExpr := Term { ('+'|'-'|'..') Term }.
func (p *Parser) parseAddExpr() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.current.Kind {
		case lex.PlusKind:
			op = ast.Add
		case lex.MinusKind:
			op = ast.Sub
		case lex.ConcatKind:
			op = ast.Concat
		default:
			return left, nil
		}
		pos := p.current.Position
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(pos, op, left, right)
	}
}

// parseTerm handles Term := Factor { ('*'|'/') Factor }.
func (p *Parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.current.Kind {
		case lex.MultKind:
			op = ast.Mul
		case lex.DivKind:
			op = ast.Div
		default:
			return left, nil
		}
		pos := p.current.Position
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinOp(pos, op, left, right)
	}
}

// parseFactor handles the primary level of the grammar: literals,
// identifiers (bare or called), unary operators, parenthesized
// expressions, and `read()`.
func (p *Parser) parseFactor() (ast.Expr, error) {
	pos := p.current.Position
	switch p.current.Kind {
	case lex.IntKind:
		text := p.current.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &SyntaxError{Position: pos, Message: fmt.Sprintf("invalid integer literal %q", text)}
		}
		return ast.NewIntLit(pos, n), nil

	case lex.StringKind:
		text := p.current.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.NewStringLit(pos, text), nil

	case lex.IdentKind:
		name := p.current.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.current.Kind == lex.LParenKind {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			return ast.NewFuncCall(pos, name, args), nil
		}
		return ast.NewIdent(pos, name), nil

	case lex.PlusKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return ast.NewUnOp(pos, ast.Pos, operand), nil

	case lex.MinusKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return ast.NewUnOp(pos, ast.Neg, operand), nil

	case lex.NotKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return ast.NewUnOp(pos, ast.Not, operand), nil

	case lex.LParenKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseBoolExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RParenKind); err != nil {
			return nil, err
		}
		return expr, nil

	case lex.ReadKind:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.LParenKind); err != nil {
			return nil, err
		}
		if _, err := p.expect(lex.RParenKind); err != nil {
			return nil, err
		}
		return ast.NewRead(pos), nil

	default:
		return nil, p.syntaxErrorf("expected number, string, identifier, or '(', got %v", p.current.Kind)
	}
}
