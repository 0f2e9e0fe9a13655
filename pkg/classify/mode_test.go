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

package classify

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/rdeconfig"
)

func mustWriteZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for entryName, content := range entries {
		w, err := zw.Create(entryName)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return p
}

func mustWrite(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o640))
	return p
}

func TestClassifyPlainFilesYieldsInvoiceModeSingleTile(t *testing.T) {
	in := t.TempDir()
	mustWrite(t, in, "a.csv", []byte("1,2"))
	mustWrite(t, in, "b.csv", []byte("3,4"))

	mode, tiles, err := Classify(in, rdeconfig.Default(), t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeInvoice, mode)
	require.Len(t, tiles, 1)
	assert.Len(t, tiles[0].InputFiles, 2)
}

func TestClassifyExcelInvoiceTakesPriorityOverExtendedMode(t *testing.T) {
	in := t.TempDir()
	mustWrite(t, in, "sample.csv", []byte("data"))
	writeExcelInvoice(t, in, "dataset_excel_invoice.xlsx")

	cfg := rdeconfig.Default()
	cfg.System.ExtendedMode = rdeconfig.ExtendedModeMultiDataTile
	mode, tiles, err := Classify(in, cfg, t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeExcelInvoice, mode, "an excel invoice workbook always wins over extended_mode")
	require.Len(t, tiles, 1)
	assert.Equal(t, "1", tiles[0].SmartTableRow["param"])
}

func writeExcelInvoice(t *testing.T, dir, name string) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"file_names", "param"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"sample.csv", "1"}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, name)))
}

func TestClassifyExtendedModeMultiDataTile(t *testing.T) {
	in := t.TempDir()
	mustWrite(t, in, "x.csv", []byte("x"))
	mustWrite(t, in, "y.csv", []byte("y"))

	cfg := rdeconfig.Default()
	cfg.System.ExtendedMode = rdeconfig.ExtendedModeMultiDataTile
	mode, tiles, err := Classify(in, cfg, t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeMultiDataTile, mode)
	assert.Len(t, tiles, 2, "one tile per top-level input file")
}

func TestClassifyMultiDataTileEmptyInputYieldsOneEmptyTile(t *testing.T) {
	in := t.TempDir()
	cfg := rdeconfig.Default()
	cfg.System.ExtendedMode = rdeconfig.ExtendedModeMultiDataTile
	mode, tiles, err := Classify(in, cfg, t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeMultiDataTile, mode)
	require.Len(t, tiles, 1)
	assert.Empty(t, tiles[0].InputFiles)
}

func TestClassifySmartTableDescriptorSelectsSmartTableMode(t *testing.T) {
	in := t.TempDir()
	mustWrite(t, in, "smarttable_batch.csv", []byte("file_names,param\nsample.csv,1\n"))
	mustWrite(t, in, "sample.csv", []byte("data"))

	mode, tiles, err := Classify(in, rdeconfig.Default(), t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeSmartTable, mode)
	require.Len(t, tiles, 1)
	assert.Equal(t, "1", tiles[0].SmartTableRow["param"])
	require.Len(t, tiles[0].InputFiles, 1)
	assert.Equal(t, "sample.csv", filepath.Base(tiles[0].InputFiles[0]))
}

func TestClassifyAssignsSequentialTileIndexesAndOutputPaths(t *testing.T) {
	in := t.TempDir()
	mustWrite(t, in, "x.csv", []byte("x"))
	mustWrite(t, in, "y.csv", []byte("y"))
	cfg := rdeconfig.Default()
	cfg.System.ExtendedMode = rdeconfig.ExtendedModeMultiDataTile

	runRoot := t.TempDir()
	_, tiles, err := Classify(in, cfg, t.TempDir(), runRoot)
	require.NoError(t, err)
	require.Len(t, tiles, 2)
	assert.Equal(t, 0, tiles[0].Index)
	assert.Equal(t, 1, tiles[1].Index)
	assert.Equal(t, runRoot, tiles[0].OutputPaths.Root(), "tile 0 is rooted at the run root")
	assert.NotEqual(t, runRoot, tiles[1].OutputPaths.Root(), "tile i>=1 is rooted under divided/")
}

func TestClassifyRDEFormatOneTilePerArchive(t *testing.T) {
	in := t.TempDir()
	mustWriteZip(t, in, "rdeformat_0000.zip", map[string]string{"data.csv": "1,2"})
	mustWriteZip(t, in, "rdeformat_0001.zip", map[string]string{"data.csv": "3,4"})

	cfg := rdeconfig.Default()
	cfg.System.ExtendedMode = rdeconfig.ExtendedModeRDEFormat
	mode, tiles, err := Classify(in, cfg, t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ModeRDEFormat, mode)
	require.Len(t, tiles, 2, "one tile per rdeformat_*.zip archive")
	for _, tile := range tiles {
		require.Len(t, tile.InputFiles, 1)
	}
}

func TestClassifyRDEFormatAllArchivesEmptyYieldsMissingInputError(t *testing.T) {
	in := t.TempDir()
	// A zip whose only entry is noise unpacks to zero files.
	mustWriteZip(t, in, "rdeformat_0000.zip", map[string]string{".DS_Store": "noise"})

	cfg := rdeconfig.Default()
	cfg.System.ExtendedMode = rdeconfig.ExtendedModeRDEFormat
	_, tiles, err := Classify(in, cfg, t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Empty(t, tiles, "an archive that unpacks to zero files yields zero tiles, not one empty tile")
	ue, ok := rdeerrors.AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "Missing input", ue.Title)
}

func TestClassifyInvoiceArchiveUnpackingToZeroFilesYieldsMissingInputError(t *testing.T) {
	in := t.TempDir()
	mustWriteZip(t, in, "bundle.zip", map[string]string{"__MACOSX/junk": "noise", ".DS_Store": "noise"})

	_, tiles, err := Classify(in, rdeconfig.Default(), t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.Empty(t, tiles)
	ue, ok := rdeerrors.AsUserError(err)
	require.True(t, ok)
	assert.Equal(t, "Missing input", ue.Title)
}
