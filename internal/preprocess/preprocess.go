// Copyright 2024 The minilua Authors
// SPDX-License-Identifier: MIT

// Package preprocess strips `--` comments from minilua source. Comment
// removal runs once, line-wise, ahead of tokenization rather than being
// woven into the scan loop.
package preprocess

import "strings"

// Strip removes every `--` through the end of its line from src, leaving
// newlines intact so that downstream line numbers are unaffected.
func Strip(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}
