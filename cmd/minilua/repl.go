// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"minilua.dev/interp/internal/interp"
	"minilua.dev/interp/internal/lex"
	"minilua.dev/interp/internal/parser"
	"minilua.dev/interp/internal/preprocess"
)

func newReplCommand(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:                   "repl",
		Short:                 "read minilua statements one line at a time",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), os.Stdin, os.Stdout, os.Stderr)
		},
	}
	return c
}

// runREPL reads one line at a time, accumulating lines into buf until a
// statement completes (tracked by `end`-nesting depth), then parses and
// evaluates the accumulated block against a symbol table and function
// table that persist across the whole session.
//
// Statement lines and `read()`'s own input share one cursor into stdin:
// the interpreter owns the single buffered reader, and the REPL pulls
// its lines through [interp.Interp.ReadLine] rather than layering a
// second reader over the same stream, so a `read()` call typed into the
// session consumes the very next line instead of racing a lookahead
// buffer that already swallowed it.
func runREPL(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	in := interp.New(stdout, stdin)
	st := interp.NewSymbolTable()
	ft := interp.NewFunctionTable()

	var buf strings.Builder
	depth := 0
	for {
		if interactive {
			if depth == 0 {
				fmt.Fprint(stdout, "> ")
			} else {
				fmt.Fprint(stdout, ">> ")
			}
		}
		line, err := in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		depth += nestingDelta(line)
		buf.WriteString(line)
		buf.WriteByte('\n')
		if depth > 0 {
			continue
		}

		cleaned := preprocess.Strip(buf.String())
		buf.Reset()
		depth = 0

		p, err := parser.New(lex.NewScanner(strings.NewReader(cleaned)))
		if err != nil {
			fmt.Fprintln(stderr, err)
			continue
		}
		block, err := p.ParseProgram()
		if err != nil {
			fmt.Fprintln(stderr, err)
			continue
		}
		if _, err := in.RunWith(block, st, ft); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}
}

// nestingDelta reports how a line changes the REPL's `end`-nesting
// depth: +1 for each of `if`/`while`/`function` that opens a block
// needing a matching `end`, -1 for each `end`. Words are split on
// whitespace after comments are stripped.
func nestingDelta(line string) int {
	fields := strings.Fields(preprocess.Strip(line))
	delta := 0
	for _, f := range fields {
		switch f {
		case "if", "while", "function":
			delta++
		case "end":
			delta--
		}
	}
	return delta
}
