// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"minilua.dev/interp/internal/cache"
)

func newCacheCommand(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "cache",
		Short: "inspect the run history cache",
	}
	c.AddCommand(newCacheShowCommand(g), newCacheStatsCommand(g))
	return c
}

func newCacheShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:                   "show HASH",
		Short:                 "print the source recorded for a run's source hash",
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			c, err := cache.Open(cmd.Context(), cfg.CacheDB)
			if err != nil {
				return err
			}
			defer c.Close()

			entry, found, err := c.Show(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no run recorded for hash %s", args[0])
			}
			fmt.Printf("run %d: %s, recorded %s, took %dms\n", entry.RunID, entry.DisplayName, time.Unix(entry.CreatedAt, 0).Format(time.RFC3339), entry.DurationMS)
			fmt.Printf("outcome: %s\n", entry.Outcome)
			fmt.Println("---")
			fmt.Print(entry.Source)
			return nil
		},
	}
}

func newCacheStatsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:                   "stats",
		Short:                 "print aggregate run cache statistics",
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			c, err := cache.Open(cmd.Context(), cfg.CacheDB)
			if err != nil {
				return err
			}
			defer c.Close()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("runs recorded: %d\n", stats.RunCount)
			return nil
		},
	}
}
