// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTinyPhraseTable writes a two-word-source phrase table (one
// single-word phrase per source position, plus a two-word phrase
// covering both) to a temp file and returns its path, mirroring the
// shape loadPhraseTable expects.
func writeTinyPhraseTable(t *testing.T) string {
	t.Helper()
	const tableJSON = `{
		"source_vocab": {"una": 0, "casa": 1},
		"target_vocab": ["a", "house", "the"],
		"entries": [
			{"start": 0, "length": 1, "target": [2], "phrase_trans_prob": -0.1, "forward_trans_prob": -0.1, "adir_prob": -0.1},
			{"start": 1, "length": 1, "target": [1], "phrase_trans_prob": -0.1, "forward_trans_prob": -0.1, "adir_prob": -0.1},
			{"start": 0, "length": 2, "target": [2, 1], "phrase_trans_prob": -0.05, "forward_trans_prob": -0.05, "adir_prob": -0.05}
		]
	}`
	dir := t.TempDir()
	path := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(path, []byte(tableJSON), 0o644))
	return path
}

// TestDecodeCommandEndToEnd drives the cobra CLI the way a user would
// invoke it — "canoe decode --table ... file" — rather than calling
// runDecode's internals directly, so a regression in flag wiring or
// root-command registration fails this test too.
func TestDecodeCommandEndToEnd(t *testing.T) {
	tablePath = ""
	defer func() { tablePath = "" }()

	tablePathArg := writeTinyPhraseTable(t)
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("una casa\n"), 0o644))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"decode", "--table", tablePathArg, srcPath})

	require.NoError(t, root.Execute())
	assert.Equal(t, "the house", strings.TrimSpace(out.String()))
}

// TestDecodeCommandRequiresTable asserts the CLI rejects a decode
// invocation with no phrase table configured, rather than panicking or
// silently decoding against an empty table.
func TestDecodeCommandRequiresTable(t *testing.T) {
	tablePath = ""
	defer func() { tablePath = "" }()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("una casa\n"), 0o644))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"decode", srcPath})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--table is required")
}
