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
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/archive"
	"github.com/kraklabs/rdesys/pkg/rdepath"
)

func isFileRefColumn(header string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	return h == "file_names" || strings.HasPrefix(h, "inputdata")
}

func listFiles(root string) ([]string, error) {
	var out []string
	var walk func(dir string) error
	walk = func(dir string) error {
		ents, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range ents {
			p := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if err := walk(p); err != nil {
					return err
				}
				continue
			}
			out = append(out, p)
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, rdeerrors.NewIOError("Cannot list inputdata", err.Error(), "check that inputdata/ exists and is readable", err)
	}
	sort.Strings(out)
	return out, nil
}

// expandZips expands every zip in zips into its own subdirectory of
// scratchRoot and returns the flattened, sorted union of extracted paths.
func expandZips(zips []string, scratchRoot string) ([]string, error) {
	var out []string
	for i, z := range zips {
		dir := filepath.Join(scratchRoot, fileStem(z)+"_"+strconv.Itoa(i))
		extracted, err := archive.Expand(z, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, extracted...)
	}
	sort.Strings(out)
	return out, nil
}

func fileStem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// buildInvoiceTiles builds the single Invoice-mode tile. Per the §4.C4 edge
// case, if the tile's only candidate inputs were zip archives and every one
// of them unpacked to zero files, the tile itself is never constructed —
// zero tiles plus a Missing input report, not one tile with no files.
func buildInvoiceTiles(fg rdepath.FileGroup, scratchRoot string) ([]TileUnit, error) {
	nonArchive := append(append([]string{}, fg.RawFiles...), fg.OtherFiles...)
	archiveContents, err := expandZips(fg.ZipFiles, scratchRoot)
	if err != nil {
		return nil, err
	}
	if len(nonArchive) == 0 && len(fg.ZipFiles) > 0 && len(archiveContents) == 0 {
		return nil, rdeerrors.NewValidationError(
			"Missing input",
			"every archive in inputdata/ unpacked to zero files",
			"check that the submitted archive is not empty and contains files other than noise",
			nil,
		)
	}
	files := append(nonArchive, archiveContents...)
	return []TileUnit{{InputFiles: files}}, nil
}

// buildMultiDataTileTiles builds one tile per top-level input file. An
// empty inputdata/ still yields one empty tile so validators run (§4.C4
// edge case).
func buildMultiDataTileTiles(inputData string, fg rdepath.FileGroup) ([]TileUnit, error) {
	topLevel := append(append([]string{}, fg.RawFiles...), fg.OtherFiles...)
	var top []string
	for _, p := range topLevel {
		if filepath.Dir(p) == filepath.Clean(inputData) {
			top = append(top, p)
		}
	}
	sort.Strings(top)
	if len(top) == 0 {
		return []TileUnit{{InputFiles: nil}}, nil
	}
	tiles := make([]TileUnit, len(top))
	for i, p := range top {
		tiles[i] = TileUnit{InputFiles: []string{p}}
	}
	return tiles, nil
}

// buildRDEFormatTiles builds one tile per rdeformat_*.zip archive. Per the
// §4.C4 edge case, an archive that unpacks to zero files contributes no
// tile; if every matched archive is empty (or none match at all), the
// result is zero tiles plus a Missing input report rather than tiles with
// no files.
func buildRDEFormatTiles(fg rdepath.FileGroup, scratchRoot string) ([]TileUnit, error) {
	var matches []string
	for _, z := range fg.ZipFiles {
		if rdeformatArchivePattern.MatchString(filepath.Base(z)) {
			matches = append(matches, z)
		}
	}
	sort.Strings(matches)
	tiles := make([]TileUnit, 0, len(matches))
	for i, z := range matches {
		dir := filepath.Join(scratchRoot, "rdeformat_"+strconv.Itoa(i))
		extracted, err := archive.Expand(z, dir)
		if err != nil {
			return nil, err
		}
		if len(extracted) == 0 {
			continue
		}
		sort.Strings(extracted)
		tiles = append(tiles, TileUnit{InputFiles: extracted})
	}
	if len(tiles) == 0 {
		return nil, rdeerrors.NewValidationError(
			"Missing input",
			"every rdeformat_*.zip archive in inputdata/ unpacked to zero files",
			"check that the submitted archives are not empty and contain files other than noise",
			nil,
		)
	}
	return tiles, nil
}

// buildExcelInvoiceTiles reads the first ExcelInvoice workbook's first
// sheet: one tile per data row, its files coming from the file-name
// column(s) and any other column mapped through the SmartTable-style
// column-path syntax.
func buildExcelInvoiceTiles(inputData string, fg rdepath.FileGroup, scratchRoot string) ([]TileUnit, error) {
	wbPath := fg.ExcelInvoices[0]
	f, err := excelize.OpenFile(wbPath)
	if err != nil {
		return nil, rdeerrors.NewIOError("Cannot open excel invoice workbook", err.Error(), "check that the .xlsx file is not corrupted", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, rdeerrors.NewValidationError("Excel invoice workbook has no sheets", wbPath, "", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, rdeerrors.NewIOError("Cannot read excel invoice rows", err.Error(), "", err)
	}
	if len(rows) < 2 {
		return nil, rdeerrors.NewValidationError("Missing input", "excel invoice workbook has no data rows", "", nil)
	}
	header := rows[0]

	archiveContents, err := expandZips(fg.ZipFiles, scratchRoot)
	if err != nil {
		return nil, err
	}
	byBase := indexByBasename(archiveContents)

	tiles := make([]TileUnit, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var files []string
		rowMap := map[string]string{}
		for col, header := range header {
			if col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if isFileRefColumn(header) {
				for _, name := range splitFileList(cell) {
					if p, ok := byBase[name]; ok {
						files = append(files, p)
					} else {
						files = append(files, filepath.Join(inputData, name))
					}
				}
				continue
			}
			rowMap[header] = cell
		}
		tiles = append(tiles, TileUnit{InputFiles: files, SmartTableRow: rowMap})
	}
	return tiles, nil
}

// buildSmartTableTiles parses the smarttable_*.csv descriptor: one tile per
// data row, the row's column/value mapping attached as SmartTableRow.
func buildSmartTableTiles(inputData string, fg rdepath.FileGroup) ([]TileUnit, error) {
	var descriptor string
	for _, p := range fg.AllFiles() {
		if smartTableDescriptorPattern.MatchString(filepath.Base(p)) {
			descriptor = p
			break
		}
	}
	f, err := os.Open(descriptor)
	if err != nil {
		return nil, rdeerrors.NewIOError("Cannot open SmartTable descriptor", err.Error(), "", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, rdeerrors.NewIOError("Cannot parse SmartTable descriptor", err.Error(), "", err)
	}
	if len(rows) < 2 {
		return nil, rdeerrors.NewValidationError("Missing input", "SmartTable descriptor has no data rows", "", nil)
	}
	header := rows[0]
	byBase := indexByBasename(fg.AllFiles())

	tiles := make([]TileUnit, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var files []string
		rowMap := map[string]string{}
		for col, h := range header {
			if col >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[col])
			if isFileRefColumn(h) {
				for _, name := range splitFileList(cell) {
					if p, ok := byBase[name]; ok {
						files = append(files, p)
					} else {
						files = append(files, filepath.Join(inputData, name))
					}
				}
				continue
			}
			rowMap[h] = cell
		}
		tiles = append(tiles, TileUnit{InputFiles: files, SmartTableRow: rowMap})
	}
	return tiles, nil
}

func indexByBasename(paths []string) map[string]string {
	m := make(map[string]string, len(paths))
	for _, p := range paths {
		m[filepath.Base(p)] = p
	}
	return m
}

func splitFileList(cell string) []string {
	if cell == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
