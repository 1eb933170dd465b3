// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minilua.dev/interp/internal/cache"
)

func TestRunFileRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.txt")
	if err := os.WriteFile(path, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := runFile(context.Background(), nil, path)
	if err == nil || !strings.Contains(err.Error(), "File extension must be .lua") {
		t.Errorf("runFile() error = %v; want extension error", err)
	}
}

func TestRunFileReportsMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.lua")
	err := runFile(context.Background(), nil, path)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("runFile() error = %v; want not-found error", err)
	}
}

func TestRunFileRecordsOutcomeInCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.lua")
	source := "print(1)\n"
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := cache.Open(context.Background(), filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer c.Close()

	if err := runFile(context.Background(), c, path); err != nil {
		t.Fatalf("runFile() error = %v", err)
	}

	entry, found, err := c.Show(cache.SourceHash(source))
	if err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if !found {
		t.Fatal("Show() found no recorded run")
	}
	if entry.Outcome != "ok" {
		t.Errorf("Outcome = %q; want %q", entry.Outcome, "ok")
	}
	if entry.DisplayName != "program.lua" {
		t.Errorf("DisplayName = %q; want %q", entry.DisplayName, "program.lua")
	}
}

func TestRunFilesWithoutArgsReportsUsage(t *testing.T) {
	g := &globalFlags{configPaths: []string{filepath.Join(t.TempDir(), "missing.json")}}
	err := runFiles(context.Background(), g, nil)
	if err == nil || !strings.Contains(err.Error(), "Usage:") {
		t.Errorf("runFiles() error = %v; want usage error", err)
	}
}
