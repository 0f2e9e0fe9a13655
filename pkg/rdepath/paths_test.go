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

package rdepath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInputPathsRequiresInputDataAndTasksupport(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inputdata"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tasksupport"), 0o750))

	ip, err := NewInputPaths(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "inputdata"), ip.InputData())
	assert.Equal(t, filepath.Join(root, "tasksupport"), ip.Tasksupport())
}

func TestNewInputPathsErrorsWhenInputDataMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tasksupport"), 0o750))
	_, err := NewInputPaths(root)
	assert.Error(t, err)
}

func TestNewInputPathsDoesNotRequireInvoiceDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inputdata"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tasksupport"), 0o750))
	_, err := NewInputPaths(root)
	assert.NoError(t, err, "invoice/ is optional for RDEFormat and bare SmartTable runs")
}

func TestDividedDirTileZeroIsRunRoot(t *testing.T) {
	assert.Equal(t, "/run", DividedDir("/run", 0, 4, 0))
}

func TestDividedDirPadsWithDigitWidth(t *testing.T) {
	got := DividedDir("/run", 1, 4, 0)
	assert.Equal(t, filepath.Join("/run", "divided", "0000"), got)
}

func TestDividedDirAppliesStartNumberOffset(t *testing.T) {
	got := DividedDir("/run", 1, 4, 10)
	assert.Equal(t, filepath.Join("/run", "divided", "0010"), got)
}

func TestNewFileGroupClassifiesBySuffix(t *testing.T) {
	fg := NewFileGroup([]string{
		"a.csv", "b.zip", "data_excel_invoice.xlsx", "notes.pdf",
	})
	assert.Equal(t, []string{"a.csv"}, fg.RawFiles)
	assert.Equal(t, []string{"b.zip"}, fg.ZipFiles)
	assert.Equal(t, []string{"data_excel_invoice.xlsx"}, fg.ExcelInvoices)
	assert.Equal(t, []string{"notes.pdf"}, fg.OtherFiles)
}

func TestNewFileGroupIsCaseInsensitiveOnSuffix(t *testing.T) {
	fg := NewFileGroup([]string{"A.CSV", "B.ZIP"})
	assert.Equal(t, []string{"A.CSV"}, fg.RawFiles)
	assert.Equal(t, []string{"B.ZIP"}, fg.ZipFiles)
}

func TestNewFileGroupExcelInvoiceSuffixWinsOverXlsxExtension(t *testing.T) {
	fg := NewFileGroup([]string{"plain.xlsx", "dataset_excel_invoice.xlsx"})
	assert.Equal(t, []string{"plain.xlsx"}, fg.RawFiles)
	assert.Equal(t, []string{"dataset_excel_invoice.xlsx"}, fg.ExcelInvoices)
}

func TestHasExcelInvoice(t *testing.T) {
	assert.True(t, NewFileGroup([]string{"x_excel_invoice.xlsx"}).HasExcelInvoice())
	assert.False(t, NewFileGroup([]string{"x.csv"}).HasExcelInvoice())
}

func TestAllFilesOrdersRawZipExcelOther(t *testing.T) {
	fg := NewFileGroup([]string{"other.pdf", "raw.csv", "archive.zip", "x_excel_invoice.xlsx"})
	assert.Equal(t, []string{"raw.csv", "archive.zip", "x_excel_invoice.xlsx", "other.pdf"}, fg.AllFiles())
}

func TestOutputPathsEnsureCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	op := NewOutputPaths(filepath.Join(dir, "tile0"))
	require.NoError(t, op.Ensure(op.Raw))
	info, err := os.Stat(op.Raw)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOutputPathsEnsureEmptyStringIsNoop(t *testing.T) {
	op := OutputPaths{}
	assert.NoError(t, op.Ensure(""))
}

func TestOutputPathsJSONPathHelpers(t *testing.T) {
	op := NewOutputPaths("/run/tile0")
	assert.Equal(t, filepath.Join("/run/tile0", "invoice", "invoice.json"), op.InvoiceJSON())
	assert.Equal(t, filepath.Join("/run/tile0", "meta", "metadata.json"), op.MetadataJSON())
}
