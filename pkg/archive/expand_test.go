// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestExpandStripsNoiseAndReturnsSortedPaths(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	writeZip(t, zipPath, map[string]string{
		"b.csv":                 "b",
		"a.csv":                 "a",
		"__MACOSX/b.csv":        "noise",
		".DS_Store":             "noise",
		"sub/.git/HEAD":         "noise",
		"sub/~$scratch.xlsx":    "noise",
		"sub/keep.txt":          "kept",
	})

	scratch := filepath.Join(dir, "scratch")
	got, err := Expand(zipPath, scratch)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var bases []string
	for _, p := range got {
		bases = append(bases, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.csv", "b.csv", "keep.txt"}, bases, "lexicographic archive order with noise excluded")

	data, err := os.ReadFile(got[0])
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestExpandRefusesPathTraversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{
		"../../outside.txt": "escape",
	})

	_, err := Expand(zipPath, filepath.Join(dir, "scratch"))
	require.Error(t, err)
}

func TestIsNoiseMatchesDenyList(t *testing.T) {
	assert.True(t, IsNoise("__MACOSX"))
	assert.True(t, IsNoise(".DS_Store"))
	assert.True(t, IsNoise("Thumbs.db"))
	assert.True(t, IsNoise("~$invoice.xlsx"))
	assert.True(t, IsNoise("draft.bak"))
	assert.True(t, IsNoise("notes.swp"))
	assert.False(t, IsNoise("a.csv"))
}
