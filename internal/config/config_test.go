// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	c, err := Load(slices.Values([]string{filepath.Join(t.TempDir(), "does-not-exist.json")}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.CacheDB == "" {
		t.Error("CacheDB is empty; want default populated")
	}
	if c.Debug {
		t.Error("Debug = true; want false by default")
	}
}

func TestLoadMergesFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	// JSONC: comments and trailing commas are allowed.
	contents := "{\n  // use a custom cache\n  \"cacheDB\": \"/tmp/custom.db\",\n  \"serveAddr\": \"0.0.0.0:9000\",\n}\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MINILUA_CACHE", "/tmp/env-override.db")
	t.Setenv("MINILUA_DEBUG", "1")

	c, err := Load(slices.Values([]string{path}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.CacheDB != "/tmp/env-override.db" {
		t.Errorf("CacheDB = %q; want env var to win over file", c.CacheDB)
	}
	if c.ServeAddr != "0.0.0.0:9000" {
		t.Errorf("ServeAddr = %q; want value from file", c.ServeAddr)
	}
	if !c.Debug {
		t.Error("Debug = false; want true from MINILUA_DEBUG=1")
	}
}

func TestValidateRejectsEmptyCachePath(t *testing.T) {
	c := &Config{}
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() succeeded; want error for empty CacheDB")
	}
}
