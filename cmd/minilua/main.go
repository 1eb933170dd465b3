// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

// Command minilua runs, caches, and serves programs written in the
// minilua language.
package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"zombiezen.com/go/log"

	"minilua.dev/interp/internal/config"
)

type globalFlags struct {
	configPaths []string
	cacheDB     string
	debug       bool
}

func main() {
	g := new(globalFlags)
	rootCommand := &cobra.Command{
		Use:           "minilua FILE [FILE ...]",
		Short:         "run minilua programs",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCommand.PersistentFlags().StringArrayVar(&g.configPaths, "config", []string{config.Path()}, "`path` to a JSONC config file, may be repeated")
	rootCommand.PersistentFlags().StringVar(&g.cacheDB, "cache", "", "`path` to the run cache database (overrides config)")
	rootCommand.PersistentFlags().BoolVar(&g.debug, "debug", false, "show debugging output")
	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogging(g.debug)
		return nil
	}
	rootCommand.RunE = func(cmd *cobra.Command, args []string) error {
		return runFiles(cmd.Context(), g, args)
	}

	rootCommand.AddCommand(
		newRunCommand(g),
		newReplCommand(g),
		newServeCommand(g),
		newCacheCommand(g),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCommand.ExecuteContext(ctx)
	cancel()
	if err != nil {
		initLogging(g.debug)
		log.Errorf(context.Background(), "%v", err)
		os.Exit(1)
	}
}

// loadConfig resolves g's flags against the layered config file and
// environment, applying any command-line overrides last.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	c, err := config.Load(slices.Values(g.configPaths))
	if err != nil {
		return nil, err
	}
	if g.cacheDB != "" {
		c.CacheDB = g.cacheDB
	}
	if g.debug {
		c.Debug = true
	}
	return c, nil
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "minilua: ", log.StdFlags, nil),
		})
	})
}
