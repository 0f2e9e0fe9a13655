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

package rdeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaultWhenNoFilePresent(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPrefersYAMLOverTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rdeconfig.yaml", "system:\n  save_raw: false\n")
	writeFile(t, dir, "pyproject.toml", "[tool.rdetoolkit.system]\nsave_raw = true\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.False(t, cfg.System.SaveRaw)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rdeconfig.yaml", `
system:
  extended_mode: MultiDataTile
  save_thumbnail_image: false
  feature_description: true
multidata_tile:
  divided_dir_digit: 6
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ExtendedModeMultiDataTile, cfg.System.ExtendedMode)
	assert.False(t, cfg.System.SaveThumbnailImage)
	assert.True(t, cfg.System.FeatureDescription)
	assert.Equal(t, 6, cfg.MultiDataTile.DividedDirDigit)
	assert.True(t, cfg.System.SaveRaw, "unset keys keep their Default() value")
}

func TestLoadParsesTOMLWhenYAMLAbsent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", "[tool.rdetoolkit.system]\nextended_mode = \"rdeformat\"\n")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ExtendedModeRDEFormat, cfg.System.ExtendedMode)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rdeconfig.yaml", "system: [this is not a mapping\n")
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsExtendedModeWrongCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rdeconfig.yaml", "system:\n  extended_mode: multidatatile\n")
	_, err := Load(dir)
	assert.Error(t, err, "extended_mode is matched case-sensitively")
}

func TestLoadAcceptsNullExtendedMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rdeconfig.yaml", "system:\n  extended_mode: \"\"\n")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ExtendedModeNone, cfg.System.ExtendedMode)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640))
}
