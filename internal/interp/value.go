// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

// Package interp implements the tree-walking evaluator: values, the
// per-call symbol table, the process-wide function table, and the
// depth-first AST walk that drives program side effects.
package interp

import "fmt"

// Type names the dynamic type of a [Value], exactly as the language's
// type-tag strings read in error messages.
type Type string

// Type values.
const (
	TypeInt    Type = "int"
	TypeString Type = "string"
	TypeNull   Type = "Null"
)

// Value is the result of evaluating any expression: a tagged union of an
// integer, a string, or the null value produced by an uninitialized
// `local` declaration.
type Value struct {
	typ Type
	i   int64
	s   string
}

// Null is the value of a `local` declared without an initializer.
var Null = Value{typ: TypeNull}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{typ: TypeInt, i: i}
}

// Str returns a string value.
func Str(s string) Value {
	return Value{typ: TypeString, s: s}
}

// Type reports the value's dynamic type tag.
func (v Value) Type() Type {
	return v.typ
}

// Int returns the value's integer payload.
// It panics if v is not an int, so callers must check [Value.Type] first.
func (v Value) Int() int64 {
	if v.typ != TypeInt {
		panic(fmt.Sprintf("interp: Value.Int called on %s value", v.typ))
	}
	return v.i
}

// String returns v's string payload, or a safe fallback rendering for
// any other type. It implements [fmt.Stringer], so unlike [Value.Int] it
// must never panic: debug logging and `%v`/`%s` formatting can reach it
// with a Value of any type.
func (v Value) String() string {
	if v.typ != TypeString {
		return v.Stringify()
	}
	return v.s
}

// Truthy reports whether v is a nonzero int, as used by `if`/`while`
// conditions. Callers must have already verified v.Type() == TypeInt.
func (v Value) Truthy() bool {
	return v.typ == TypeInt && v.i != 0
}

// Stringify renders v the way `..` and `print` render it: an int as its
// decimal digits, a string as itself, and Null as "nil".
func (v Value) Stringify() string {
	switch v.typ {
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeString:
		return v.s
	default:
		return "nil"
	}
}
