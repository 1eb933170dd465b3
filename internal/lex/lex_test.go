// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package lex

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestScanner(t *testing.T) {
	tests := []struct {
		s    string
		want []Token
		bad  bool
	}{
		{s: "", want: []Token{{Kind: EOFKind, Position: Position{Line: 1, Column: 1}}}},
		{
			s: "foo",
			want: []Token{
				{Kind: IdentKind, Position: Position{Line: 1, Column: 1}, Value: "foo"},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 4}},
			},
		},
		{
			s: "  foo  ",
			want: []Token{
				{Kind: IdentKind, Position: Position{Line: 1, Column: 3}, Value: "foo"},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 8}},
			},
		},
		{
			s: "345",
			want: []Token{
				{Kind: IntKind, Position: Position{Line: 1, Column: 1}, Value: "345"},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 4}},
			},
		},
		{
			s: "local x = 2 + 3 * 4\n",
			want: []Token{
				{Kind: LocalKind, Position: Position{Line: 1, Column: 1}},
				{Kind: IdentKind, Position: Position{Line: 1, Column: 7}, Value: "x"},
				{Kind: AssignKind, Position: Position{Line: 1, Column: 9}},
				{Kind: IntKind, Position: Position{Line: 1, Column: 11}, Value: "2"},
				{Kind: PlusKind, Position: Position{Line: 1, Column: 13}},
				{Kind: IntKind, Position: Position{Line: 1, Column: 15}, Value: "3"},
				{Kind: MultKind, Position: Position{Line: 1, Column: 17}},
				{Kind: IntKind, Position: Position{Line: 1, Column: 19}, Value: "4"},
				{Kind: NewlineKind, Position: Position{Line: 1, Column: 20}},
				{Kind: EOFKind, Position: Position{Line: 2, Column: 1}},
			},
		},
		{
			s: `"alo\n123\""`,
			want: []Token{
				{Kind: StringKind, Position: Position{Line: 1, Column: 1}, Value: "alo\n123\""},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 13}},
			},
		},
		{
			s: `"unknown \q escape"`,
			want: []Token{
				{Kind: StringKind, Position: Position{Line: 1, Column: 1}, Value: `unknown \q escape`},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 20}},
			},
		},
		{
			s: "a == b",
			want: []Token{
				{Kind: IdentKind, Position: Position{Line: 1, Column: 1}, Value: "a"},
				{Kind: EQKind, Position: Position{Line: 1, Column: 3}},
				{Kind: IdentKind, Position: Position{Line: 1, Column: 6}, Value: "b"},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 7}},
			},
		},
		{
			s: `"hello" .. "world"`,
			want: []Token{
				{Kind: StringKind, Position: Position{Line: 1, Column: 1}, Value: "hello"},
				{Kind: ConcatKind, Position: Position{Line: 1, Column: 9}},
				{Kind: StringKind, Position: Position{Line: 1, Column: 12}, Value: "world"},
				{Kind: EOFKind, Position: Position{Line: 1, Column: 19}},
			},
		},
		{
			s: `a = "xyz`,
			want: []Token{
				{Kind: IdentKind, Position: Position{Line: 1, Column: 1}, Value: "a"},
				{Kind: AssignKind, Position: Position{Line: 1, Column: 3}},
				{Kind: ErrorKind, Position: Position{Line: 1, Column: 5}},
			},
			bad: true,
		},
		{
			s:   "a . b",
			bad: true,
		},
		{
			s:   "@",
			bad: true,
		},
	}

	for _, test := range tests {
		s := NewScanner(strings.NewReader(test.s))
		var got []Token
		sawError := false
		for {
			tok, err := s.Scan()
			got = append(got, tok)
			if err != nil {
				sawError = true
				break
			}
			if tok.Kind == EOFKind {
				break
			}
		}
		if sawError != test.bad {
			t.Errorf("scan of %q: got error = %t, want %t", test.s, sawError, test.bad)
		}
		if !test.bad {
			if diff := cmp.Diff(test.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("scan of %q (-want +got):\n%s", test.s, diff)
			}
		}
	}
}

func TestScannerIdempotentAtEOF(t *testing.T) {
	s := NewScanner(strings.NewReader("x"))
	if tok, err := s.Scan(); err != nil || tok.Kind != IdentKind {
		t.Fatalf("first Scan() = %v, %v", tok, err)
	}
	for i := 0; i < 3; i++ {
		tok, err := s.Scan()
		if err != nil || tok.Kind != EOFKind {
			t.Fatalf("Scan() at EOF (call %d) = %v, %v; want EOFKind, nil", i, tok, err)
		}
	}
}
