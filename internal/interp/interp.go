// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package interp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"minilua.dev/interp/internal/ast"
	"minilua.dev/interp/internal/lex"
)

// Interp walks an AST, consulting a [SymbolTable] and [FunctionTable] and
// performing the program's `print`/`read` side effects. The zero value is
// not usable; construct one with [New].
type Interp struct {
	stdout io.Writer
	stdin  *bufio.Reader
}

// New returns an [Interp] that writes `print` output to stdout and reads
// `read()` lines from stdin.
func New(stdout io.Writer, stdin io.Reader) *Interp {
	return &Interp{stdout: stdout, stdin: bufio.NewReader(stdin)}
}

// ReadLine reads one newline-terminated line from the same stdin cursor
// `read()` consumes from, with the trailing newline stripped. It returns
// io.EOF once stdin is exhausted. A front end that needs to read
// statement source a line at a time (the REPL) must go through ReadLine
// rather than opening a second reader over stdin, so the two never race
// over the same bytes.
func (in *Interp) ReadLine() (string, error) {
	line, err := in.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\n"), nil
}

// Run evaluates block as a whole program: a fresh, empty symbol table and
// function table, exactly as the driver constructs for a top-level file.
// A [*ast.Return] reaching the top level is not an error: it simply ends
// the program (there is no caller to return a value to).
func (in *Interp) Run(block *ast.Block) error {
	_, err := in.RunWith(block, NewSymbolTable(), NewFunctionTable())
	return err
}

// RunWith evaluates block against the given symbol and function tables,
// so a caller (the REPL) can reuse them across many top-level blocks.
// It returns the value of an explicit top-level `return`, or [Null] if
// the block ran to its end without one.
func (in *Interp) RunWith(block *ast.Block, st *SymbolTable, ft *FunctionTable) (Value, error) {
	f, err := in.execBlock(block, st, ft)
	if err != nil {
		return Value{}, err
	}
	if f.returned {
		return f.value, nil
	}
	return Null, nil
}

// flow is the non-local control signal threaded up from a [*ast.Return],
// regardless of how deeply it is nested inside `if`/`while` bodies.
type flow struct {
	returned bool
	value    Value
}

func (in *Interp) execBlock(b *ast.Block, st *SymbolTable, ft *FunctionTable) (flow, error) {
	for _, stmt := range b.Stmts {
		f, err := in.execStmt(stmt, st, ft)
		if err != nil {
			return flow{}, err
		}
		if f.returned {
			return f, nil
		}
	}
	return flow{}, nil
}

func (in *Interp) execStmt(s ast.Stmt, st *SymbolTable, ft *FunctionTable) (flow, error) {
	switch s := s.(type) {
	case *ast.NoOp:
		return flow{}, nil

	case *ast.VarDec:
		v, err := in.evalExpr(s.Init, st, ft)
		if err != nil {
			return flow{}, err
		}
		if err := st.Declare(s.Position(), s.Name, v); err != nil {
			return flow{}, err
		}
		return flow{}, nil

	case *ast.Assignment:
		v, err := in.evalExpr(s.Expr, st, ft)
		if err != nil {
			return flow{}, err
		}
		if err := st.Set(s.Position(), s.Name, v); err != nil {
			return flow{}, err
		}
		return flow{}, nil

	case *ast.Print:
		v, err := in.evalExpr(s.Expr, st, ft)
		if err != nil {
			return flow{}, err
		}
		fmt.Fprintln(in.stdout, v.Stringify())
		return flow{}, nil

	case *ast.If:
		cond, err := in.evalExpr(s.Cond, st, ft)
		if err != nil {
			return flow{}, err
		}
		if err := requireInt(s.Cond.Position(), cond, "if condition"); err != nil {
			return flow{}, err
		}
		if cond.Truthy() {
			return in.execBlock(s.Then, st, ft)
		}
		if s.Else != nil {
			return in.execBlock(s.Else, st, ft)
		}
		return flow{}, nil

	case *ast.While:
		for {
			cond, err := in.evalExpr(s.Cond, st, ft)
			if err != nil {
				return flow{}, err
			}
			if err := requireInt(s.Cond.Position(), cond, "while condition"); err != nil {
				return flow{}, err
			}
			if !cond.Truthy() {
				return flow{}, nil
			}
			f, err := in.execBlock(s.Body, st, ft)
			if err != nil {
				return flow{}, err
			}
			if f.returned {
				return f, nil
			}
		}

	case *ast.FuncDec:
		if err := ft.Declare(s); err != nil {
			return flow{}, err
		}
		return flow{}, nil

	case *ast.FuncCall:
		_, err := in.call(s, st, ft)
		return flow{}, err

	case *ast.Return:
		v, err := in.evalExpr(s.Expr, st, ft)
		if err != nil {
			return flow{}, err
		}
		return flow{returned: true, value: v}, nil

	case *ast.Block:
		return in.execBlock(s, st, ft)

	default:
		return flow{}, errorf(s.Position(), "unhandled statement %T", s)
	}
}

func (in *Interp) evalExpr(e ast.Expr, st *SymbolTable, ft *FunctionTable) (Value, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return Int(e.Value), nil

	case *ast.StringLit:
		return Str(e.Value), nil

	case *ast.NoOp:
		return Null, nil

	case *ast.Ident:
		return st.Get(e.Position(), e.Name)

	case *ast.Read:
		line, err := in.stdin.ReadString('\n')
		if err != nil && line == "" {
			return Value{}, errorf(e.Position(), "read(): %v", err)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			return Value{}, errorf(e.Position(), "read(): %v", err)
		}
		return Int(n), nil

	case *ast.UnOp:
		v, err := in.evalExpr(e.Operand, st, ft)
		if err != nil {
			return Value{}, err
		}
		if err := requireInt(e.Position(), v, "unary "+e.Op.String()); err != nil {
			return Value{}, err
		}
		switch e.Op {
		case ast.Pos:
			return v, nil
		case ast.Neg:
			return Int(-v.Int()), nil
		case ast.Not:
			if v.Truthy() {
				return Int(0), nil
			}
			return Int(1), nil
		default:
			return Value{}, errorf(e.Position(), "unhandled unary operator %v", e.Op)
		}

	case *ast.BinOp:
		return in.evalBinOp(e, st, ft)

	case *ast.FuncCall:
		return in.call(e, st, ft)

	default:
		return Value{}, errorf(e.Position(), "unhandled expression %T", e)
	}
}

func (in *Interp) evalBinOp(e *ast.BinOp, st *SymbolTable, ft *FunctionTable) (Value, error) {
	left, err := in.evalExpr(e.Left, st, ft)
	if err != nil {
		return Value{}, err
	}
	// Non-short-circuit: the right operand is always evaluated, even for
	// `and`/`or`, and its side effects (including `read()`) always occur.
	right, err := in.evalExpr(e.Right, st, ft)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case ast.Concat:
		return Str(left.Stringify() + right.Stringify()), nil

	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.And, ast.Or:
		if err := requireInt(e.Position(), left, e.Op.String()); err != nil {
			return Value{}, err
		}
		if err := requireInt(e.Position(), right, e.Op.String()); err != nil {
			return Value{}, err
		}
		l, r := left.Int(), right.Int()
		switch e.Op {
		case ast.Add:
			return Int(l + r), nil
		case ast.Sub:
			return Int(l - r), nil
		case ast.Mul:
			return Int(l * r), nil
		case ast.Div:
			if r == 0 {
				return Value{}, errorf(e.Position(), "division by zero")
			}
			return Int(floorDiv(l, r)), nil
		case ast.And:
			return boolInt(l != 0 && r != 0), nil
		case ast.Or:
			return boolInt(l != 0 || r != 0), nil
		}
		panic("unreachable")

	case ast.Eq, ast.Gt, ast.Lt:
		if left.Type() != right.Type() {
			return Value{}, errorf(e.Position(), "comparison requires matching types, got %s and %s", left.Type(), right.Type())
		}
		switch e.Op {
		case ast.Eq:
			return boolInt(valuesEqual(left, right)), nil
		case ast.Gt:
			return boolInt(valuesLess(right, left)), nil
		case ast.Lt:
			return boolInt(valuesLess(left, right)), nil
		}
		panic("unreachable")

	default:
		return Value{}, errorf(e.Position(), "unhandled binary operator %v", e.Op)
	}
}

// call evaluates a function call: arguments in the caller's symbol table,
// body in a fresh table bound only to the parameters. Functions therefore
// see no enclosing locals.
func (in *Interp) call(c *ast.FuncCall, st *SymbolTable, ft *FunctionTable) (Value, error) {
	decl, err := ft.Lookup(c.Position(), c.Name)
	if err != nil {
		return Value{}, err
	}
	if len(c.Args) != len(decl.Params) {
		return Value{}, errorf(c.Position(), "function %q takes %d argument(s), got %d", c.Name, len(decl.Params), len(c.Args))
	}

	args := make([]Value, len(c.Args))
	for i, arg := range c.Args {
		v, err := in.evalExpr(arg, st, ft)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	callST := NewSymbolTable()
	for i, param := range decl.Params {
		if err := callST.Declare(c.Position(), param, args[i]); err != nil {
			return Value{}, err
		}
	}

	f, err := in.execBlock(decl.Body, callST, ft)
	if err != nil {
		return Value{}, err
	}
	if f.returned {
		return f.value, nil
	}
	return Null, nil
}

func requireInt(pos lex.Position, v Value, context string) error {
	if v.Type() != TypeInt {
		return errorf(pos, "%s requires int, got %s", context, v.Type())
	}
	return nil
}

func boolInt(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func valuesEqual(a, b Value) bool {
	if a.Type() == TypeInt {
		return a.Int() == b.Int()
	}
	return a.String() == b.String()
}

func valuesLess(a, b Value) bool {
	if a.Type() == TypeInt {
		return a.Int() < b.Int()
	}
	return a.String() < b.String()
}

// floorDiv implements Lua/Python-style integer floor division, which
// differs from Go's truncating `/` for mixed-sign operands.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
