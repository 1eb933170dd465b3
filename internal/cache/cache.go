// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

// Package cache records the history of minilua runs in a SQLite
// database. It is a side channel for diagnostics: it is never
// consulted to decide whether to skip an evaluation, since a program
// that calls read() can observe different stdin on every run.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Cache stores one row per evaluated program.
type Cache struct {
	conn *sqlite.Conn
}

// Open opens (creating if necessary) the cache database at path and
// applies any outstanding schema migrations.
func Open(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, fmt.Errorf("open cache: %v", err)
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("open cache: %v", err)
	}
	conn.SetInterrupt(ctx.Done())

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA journal_mode=wal;", nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open cache %s: enable write-ahead logging: %v", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys=on;", nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open cache %s: enable foreign keys: %v", path, err)
	}

	var schema sqlitemigration.Schema
	for i := 1; ; i++ {
		migration, err := fs.ReadFile(sqlFiles(), fmt.Sprintf("schema/%02d.sql", i))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open cache %s: read migrations: %v", path, err)
		}
		schema.Migrations = append(schema.Migrations, string(migration))
	}
	if err := sqlitemigration.Migrate(ctx, conn, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open cache %s: %v", path, err)
	}

	return &Cache{conn: conn}, nil
}

// Close releases the underlying database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// SourceHash returns the SHA-256 digest used to key cache rows and to
// address them with `minilua cache show`.
func SourceHash(preprocessedSource string) string {
	sum := sha256.Sum256([]byte(preprocessedSource))
	return hex.EncodeToString(sum[:])
}

// Entry is one recorded run.
type Entry struct {
	RunID       int64
	SourceHash  string
	DisplayName string
	Source      string
	Outcome     string
	DurationMS  int64
	CreatedAt   int64
}

// Record appends a new row describing one evaluated program. It never
// overwrites a prior row for the same source hash: every run is its own
// entry in the history.
func (c *Cache) Record(e Entry) error {
	compressed, err := compress(e.Source)
	if err != nil {
		return fmt.Errorf("cache record: %v", err)
	}
	err = sqlitex.ExecuteTransient(c.conn,
		`INSERT INTO runs (source_hash, display_name, source, outcome, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?);`,
		&sqlitex.ExecOptions{
			Args: []any{e.SourceHash, e.DisplayName, compressed, e.Outcome, e.DurationMS, e.CreatedAt},
		})
	if err != nil {
		return fmt.Errorf("cache record: %v", err)
	}
	return nil
}

// Show returns the most recent run recorded for a given source hash.
func (c *Cache) Show(sourceHash string) (Entry, bool, error) {
	var entry Entry
	var found bool
	var rowErr error
	err := sqlitex.ExecuteTransient(c.conn,
		`SELECT run_id, source_hash, display_name, source, outcome, duration_ms, created_at
		 FROM runs WHERE source_hash = ? ORDER BY run_id DESC LIMIT 1;`,
		&sqlitex.ExecOptions{
			Args: []any{sourceHash},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				compressed := make([]byte, stmt.GetLen("source"))
				stmt.GetBytes("source", compressed)
				source, err := decompress(compressed)
				if err != nil {
					rowErr = err
					return nil
				}
				entry = Entry{
					RunID:       stmt.GetInt64("run_id"),
					SourceHash:  stmt.GetText("source_hash"),
					DisplayName: stmt.GetText("display_name"),
					Source:      source,
					Outcome:     stmt.GetText("outcome"),
					DurationMS:  stmt.GetInt64("duration_ms"),
					CreatedAt:   stmt.GetInt64("created_at"),
				}
				return nil
			},
		})
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache show: %v", err)
	}
	if rowErr != nil {
		return Entry{}, false, fmt.Errorf("cache show: %v", rowErr)
	}
	return entry, found, nil
}

// Stats reports how many runs are recorded.
type Stats struct {
	RunCount int64
}

// Stats computes aggregate statistics over the cache.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	err := sqlitex.ExecuteTransient(c.conn, "SELECT count(*) AS n FROM runs;", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stats.RunCount = stmt.GetInt64("n")
			return nil
		},
	})
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %v", err)
	}
	return stats, nil
}

func compress(s string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, nil)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, s); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(b []byte) (string, error) {
	r, err := bzip2.NewReader(bytes.NewReader(b), nil)
	if err != nil {
		return "", err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

//go:embed cache_sql
var rawSqlFiles embed.FS

func sqlFiles() fs.FS {
	fsys, err := fs.Sub(rawSqlFiles, "cache_sql")
	if err != nil {
		panic(err)
	}
	return fsys
}
