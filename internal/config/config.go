// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

// Package config loads the interpreter's global configuration: a JSONC
// file layered with environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/tailscale/hujson"
	"go4.org/xdgdir"
)

// Config holds every setting the CLI driver, the run cache, and the
// HTTP service consult.
type Config struct {
	Debug     bool   `json:"debug"`
	CacheDB   string `json:"cacheDB"`
	ServeAddr string `json:"serveAddr"`
}

// Default returns the configuration a freshly installed system would
// have before any config file or environment variable is consulted.
func Default() *Config {
	return &Config{
		CacheDB:   filepath.Join(xdgdir.Cache.Path(), "minilua", "cache.db"),
		ServeAddr: "localhost:8080",
	}
}

// Path returns the default config file location,
// $XDG_CONFIG_HOME/minilua/config.json.
func Path() string {
	return filepath.Join(xdgdir.Config.Path(), "minilua", "config.json")
}

// Load builds a [Config] by starting from [Default], merging each file
// in paths in order (a missing file is not an error), then applying
// environment variable overrides.
func Load(paths iter.Seq[string]) (*Config, error) {
	c := Default()
	if err := c.mergeFiles(paths); err != nil {
		return nil, err
	}
	c.mergeEnvironment()
	return c, nil
}

func (c *Config) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		huJSONData, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		jsonData, err := hujson.Standardize(huJSONData)
		if err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
		if err := jsonv2.Unmarshal(jsonData, c, jsonv2.RejectUnknownMembers(false)); err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
	}
	return nil
}

func (c *Config) mergeEnvironment() {
	if v := os.Getenv("MINILUA_CACHE"); v != "" {
		c.CacheDB = v
	}
	if v := os.Getenv("MINILUA_DEBUG"); v != "" {
		c.Debug = v != "0"
	}
}

// Validate reports whether the configuration is usable: a cache path
// must always be set.
func (c *Config) Validate() error {
	if c.CacheDB == "" {
		return fmt.Errorf("config: cache path not set")
	}
	return nil
}
