// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zombiezen.com/go/log"

	"minilua.dev/interp/internal/cache"
	"minilua.dev/interp/internal/interp"
	"minilua.dev/interp/internal/lex"
	"minilua.dev/interp/internal/parser"
	"minilua.dev/interp/internal/preprocess"
)

func newRunCommand(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:                   "run FILE [FILE ...]",
		Short:                 "evaluate one or more minilua source files",
		Args:                  cobra.MinimumNArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(cmd.Context(), g, args)
		},
	}
	return c
}

// runFiles implements both the bare `minilua FILE...` form and the
// `minilua run FILE...` subcommand: the distilled interpreter's
// single-file contract, extended to evaluate independent files
// concurrently.
func runFiles(ctx context.Context, g *globalFlags, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("Usage: minilua <file.lua> [file.lua ...]")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	var c *cache.Cache
	if cfg.CacheDB != "" {
		c, err = cache.Open(ctx, cfg.CacheDB)
		if err != nil {
			log.Errorf(ctx, "cache disabled: %v", err)
			c = nil
		} else {
			defer c.Close()
		}
	}

	grp, ctx := errgroup.WithContext(ctx)
	for _, path := range args {
		path := path
		grp.Go(func() error {
			return runFile(ctx, c, path)
		})
	}
	return grp.Wait()
}

func runFile(ctx context.Context, c *cache.Cache, path string) error {
	if filepath.Ext(path) != ".lua" {
		return fmt.Errorf("Error: File extension must be .lua")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("Error: File %s not found", path)
		}
		return fmt.Errorf("Error: %v", err)
	}

	start := time.Now()
	cleaned := preprocess.Strip(string(data))
	log.Debugf(ctx, "%s: preprocessed", path)

	outcome := "ok"
	runErr := func() error {
		p, err := parser.New(lex.NewScanner(strings.NewReader(cleaned)))
		if err != nil {
			return err
		}
		block, err := p.ParseProgram()
		if err != nil {
			return err
		}
		log.Debugf(ctx, "%s: parsed", path)

		in := interp.New(os.Stdout, os.Stdin)
		if err := in.Run(block); err != nil {
			return err
		}
		log.Debugf(ctx, "%s: evaluated", path)
		return nil
	}()
	if runErr != nil {
		outcome = runErr.Error()
	}

	if c != nil {
		recErr := c.Record(cache.Entry{
			SourceHash:  cache.SourceHash(cleaned),
			DisplayName: filepath.Base(path),
			Source:      cleaned,
			Outcome:     outcome,
			DurationMS:  time.Since(start).Milliseconds(),
			CreatedAt:   start.Unix(),
		})
		if recErr != nil {
			log.Errorf(ctx, "%s: record run: %v", path, recErr)
		}
	}

	return runErr
}
