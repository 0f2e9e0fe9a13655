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

// Package classify decides which of the four processing modes an input
// bundle selects, and expands it into the ordered list of tiles the
// dispatcher will run.
package classify

import (
	"path/filepath"
	"regexp"
	"sort"

	"github.com/kraklabs/rdesys/pkg/rdeconfig"
	"github.com/kraklabs/rdesys/pkg/rdepath"
)

// Mode is the closed enumeration of processing modes.
type Mode string

const (
	ModeInvoice       Mode = "Invoice"
	ModeExcelInvoice  Mode = "ExcelInvoice"
	ModeMultiDataTile Mode = "MultiDataTile"
	ModeRDEFormat     Mode = "RDEFormat"
	ModeSmartTable    Mode = "SmartTable"
)

// TileUnit is a logical dataset to be produced.
type TileUnit struct {
	Index         int
	InputFiles    []string
	SmartTableRow map[string]string // column path -> cell string; nil outside SmartTable/ExcelInvoice
	OutputPaths   rdepath.OutputPaths
}

var smartTableDescriptorPattern = regexp.MustCompile(`^smarttable_.*\.csv$`)
var rdeformatArchivePattern = regexp.MustCompile(`^rdeformat_.*\.zip$`)

// Classify lists inputData, selects a mode under the fixed priority order
// in §4.C4, and constructs the run's tiles. scratchRoot is where archives
// belonging to each tile are expanded (see §5 for the temp-dir lifecycle);
// runRoot is the directory tile 0's outputs are rooted at.
func Classify(inputData string, cfg rdeconfig.Config, scratchRoot, runRoot string) (Mode, []TileUnit, error) {
	allPaths, err := listFiles(inputData)
	if err != nil {
		return "", nil, err
	}
	fg := rdepath.NewFileGroup(allPaths)

	mode := selectMode(fg, cfg)

	var tiles []TileUnit
	switch mode {
	case ModeExcelInvoice:
		tiles, err = buildExcelInvoiceTiles(inputData, fg, scratchRoot)
	case ModeMultiDataTile:
		tiles, err = buildMultiDataTileTiles(inputData, fg)
	case ModeRDEFormat:
		tiles, err = buildRDEFormatTiles(fg, scratchRoot)
	case ModeSmartTable:
		tiles, err = buildSmartTableTiles(inputData, fg)
	default:
		tiles, err = buildInvoiceTiles(fg, scratchRoot)
	}
	if err != nil {
		return "", nil, err
	}

	for i := range tiles {
		tiles[i].Index = i
		dir := rdepath.DividedDir(runRoot, i, cfg.MultiDataTile.DividedDirDigit, cfg.MultiDataTile.DividedDirStartNumber)
		tiles[i].OutputPaths = rdepath.NewOutputPaths(dir)
	}
	return mode, tiles, nil
}

func selectMode(fg rdepath.FileGroup, cfg rdeconfig.Config) Mode {
	if fg.HasExcelInvoice() {
		return ModeExcelInvoice
	}
	if cfg.System.ExtendedMode == rdeconfig.ExtendedModeMultiDataTile {
		return ModeMultiDataTile
	}
	if cfg.System.ExtendedMode == rdeconfig.ExtendedModeRDEFormat {
		return ModeRDEFormat
	}
	if hasSmartTableDescriptor(fg) {
		return ModeSmartTable
	}
	return ModeInvoice
}

func hasSmartTableDescriptor(fg rdepath.FileGroup) bool {
	for _, p := range fg.AllFiles() {
		if smartTableDescriptorPattern.MatchString(filepath.Base(p)) {
			return true
		}
	}
	return false
}

func sortedCopy(paths []string) []string {
	out := append([]string(nil), paths...)
	sort.Strings(out)
	return out
}
