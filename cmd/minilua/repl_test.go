// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNestingDelta(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"local x = 1", 0},
		{"if x > 0 then", 1},
		{"while x < 3 do", 1},
		{"function f(a, b)", 1},
		{"end", -1},
		{"-- if this were code it would not count", 0},
	}
	for _, test := range tests {
		if got := nestingDelta(test.line); got != test.want {
			t.Errorf("nestingDelta(%q) = %d; want %d", test.line, got, test.want)
		}
	}
}

func TestREPLPersistsStateAcrossLines(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("local x = 40\nx = x + 2\nprint(x)\n")
	if err := runREPL(context.Background(), in, &out, &errOut); err != nil {
		t.Fatalf("runREPL() error = %v", err)
	}
	if errOut.Len() != 0 {
		t.Errorf("stderr = %q; want empty", errOut.String())
	}
	if !strings.Contains(out.String(), "42") {
		t.Errorf("stdout = %q; want it to contain %q", out.String(), "42")
	}
}

func TestREPLMultilineFunctionDefinition(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("function add(a, b)\nreturn a + b\nend\nprint(add(2, 40))\n")
	if err := runREPL(context.Background(), in, &out, &errOut); err != nil {
		t.Fatalf("runREPL() error = %v", err)
	}
	if !strings.Contains(out.String(), "42") {
		t.Errorf("stdout = %q; want it to contain %q", out.String(), "42")
	}
}

// read() and the REPL's own line accumulation must pull from the same
// stdin cursor: the line after `local x = read()` is read()'s input,
// not the next statement.
func TestREPLReadConsumesNextStdinLine(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("local x = read()\n5\nprint(x + 1)\n")
	if err := runREPL(context.Background(), in, &out, &errOut); err != nil {
		t.Fatalf("runREPL() error = %v", err)
	}
	if errOut.Len() != 0 {
		t.Errorf("stderr = %q; want empty", errOut.String())
	}
	if !strings.Contains(out.String(), "6") {
		t.Errorf("stdout = %q; want it to contain %q", out.String(), "6")
	}
}

func TestREPLReportsErrorsWithoutStoppingSession(t *testing.T) {
	var out, errOut bytes.Buffer
	in := strings.NewReader("x = 1\nlocal x = 2\nprint(x)\n")
	if err := runREPL(context.Background(), in, &out, &errOut); err != nil {
		t.Fatalf("runREPL() error = %v", err)
	}
	if errOut.Len() == 0 {
		t.Error("stderr is empty; want the assignment-to-undeclared error reported")
	}
	if !strings.Contains(out.String(), "2") {
		t.Errorf("stdout = %q; want it to contain %q (session continued)", out.String(), "2")
	}
}
