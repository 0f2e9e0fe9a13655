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

// Package archive expands compressed inputs into a scratch directory and
// strips OS/tooling noise with the SystemFilesCleaner deny-list.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
)

// denyPatterns is the SystemFilesCleaner deny-list: platform metadata,
// editor/VCS/cache directories, Office temp files and editor backups.
var denyPatterns = []string{
	"__MACOSX", ".DS_Store", "Thumbs.db", "desktop.ini",
	".git", ".idea", "__pycache__", ".ipynb_checkpoints",
}

var denySuffixes = []string{".bak", ".swp"}
var denyPrefixes = []string{"~$"}

// IsNoise reports whether name (a single path component) matches the
// SystemFilesCleaner deny-list.
func IsNoise(name string) bool {
	for _, p := range denyPatterns {
		if name == p {
			return true
		}
	}
	for _, p := range denyPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range denySuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// pathIsNoise reports whether any component of a slash-separated archive
// path matches the deny-list.
func pathIsNoise(archivePath string) bool {
	for _, comp := range strings.Split(archivePath, "/") {
		if IsNoise(comp) {
			return true
		}
	}
	return false
}

// Expand extracts zipPath into scratchDir and returns the flattened list of
// extracted file paths in deterministic (lexicographic, archive-internal)
// order, with noise entries excluded. Archive-traversal attempts — entries
// whose resolved path falls outside scratchDir — are refused.
func Expand(zipPath, scratchDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, rdeerrors.NewIOError(
			"Cannot open archive",
			fmt.Sprintf("failed to open %s as a zip archive", zipPath),
			"check that the file is a valid zip archive",
			err,
		)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
		byName[f.Name] = f
	}
	sort.Strings(names)

	if err := os.MkdirAll(scratchDir, 0o750); err != nil {
		return nil, rdeerrors.NewIOError("Cannot create scratch directory", err.Error(), "", err)
	}

	var extracted []string
	for _, name := range names {
		if pathIsNoise(name) {
			continue
		}
		f := byName[name]
		if f.FileInfo().IsDir() {
			continue
		}

		target, err := safeJoin(scratchDir, name)
		if err != nil {
			return nil, rdeerrors.NewIOError(
				"Archive path traversal refused",
				fmt.Sprintf("entry %q resolves outside the scratch directory", name),
				"this archive is malformed or malicious and cannot be expanded",
				err,
			)
		}

		if err := extractOne(f, target); err != nil {
			return nil, rdeerrors.NewIOError("Cannot extract archive entry", err.Error(), "", err)
		}
		extracted = append(extracted, target)
	}
	return extracted, nil
}

// safeJoin joins base and archivePath, refusing any result that escapes
// base (the archive-traversal guard required by §4.C3).
func safeJoin(base, archivePath string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(base, filepath.FromSlash(archivePath)))
	baseClean := filepath.Clean(base) + string(os.PathSeparator)
	if !strings.HasPrefix(cleaned+string(os.PathSeparator), baseClean) {
		return "", fmt.Errorf("path %q escapes scratch root %q", archivePath, base)
	}
	return cleaned, nil
}

func extractOne(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return nil
}
