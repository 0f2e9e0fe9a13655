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
	"sort"
	"strings"
)

// FileGroup is the immutable classification of a flat list of input paths
// into the four buckets the classifier cares about. Every input path ends
// up in exactly one bucket.
type FileGroup struct {
	RawFiles      []string
	ZipFiles      []string
	ExcelInvoices []string
	OtherFiles    []string
}

// NewFileGroup classifies paths by suffix rule and returns the group with
// every bucket sorted lexicographically, matching the deterministic
// enumeration order required by §5.
func NewFileGroup(paths []string) FileGroup {
	g := FileGroup{}
	for _, p := range paths {
		lower := strings.ToLower(p)
		switch {
		case strings.HasSuffix(lower, "_excel_invoice.xlsx"):
			g.ExcelInvoices = append(g.ExcelInvoices, p)
		case strings.HasSuffix(lower, ".zip"):
			g.ZipFiles = append(g.ZipFiles, p)
		case isRawSuffix(lower):
			g.RawFiles = append(g.RawFiles, p)
		default:
			g.OtherFiles = append(g.OtherFiles, p)
		}
	}
	sort.Strings(g.RawFiles)
	sort.Strings(g.ZipFiles)
	sort.Strings(g.ExcelInvoices)
	sort.Strings(g.OtherFiles)
	return g
}

// isRawSuffix reports whether path looks like a plain data file rather than
// an archive or invoice workbook. Everything that is not a zip or an
// excel-invoice workbook, but carries a recognized data extension, is raw;
// unrecognized extensions fall through to OtherFiles so the classifier can
// still enumerate them without misclassifying tooling noise as data.
func isRawSuffix(lower string) bool {
	for _, ext := range rawExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var rawExtensions = []string{
	".csv", ".tsv", ".txt", ".dat", ".json", ".xml",
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff",
	".xlsx", ".xls", ".h5", ".hdf5", ".npy", ".npz",
}

// AllFiles returns the ordered concatenation of every bucket: raw, zip,
// excel-invoice, other — the classifier's canonical enumeration order.
func (g FileGroup) AllFiles() []string {
	all := make([]string, 0, len(g.RawFiles)+len(g.ZipFiles)+len(g.ExcelInvoices)+len(g.OtherFiles))
	all = append(all, g.RawFiles...)
	all = append(all, g.ZipFiles...)
	all = append(all, g.ExcelInvoices...)
	all = append(all, g.OtherFiles...)
	return all
}

// HasExcelInvoice reports whether any path was classified as an
// excel-invoice workbook, the top-priority mode-selection signal.
func (g FileGroup) HasExcelInvoice() bool { return len(g.ExcelInvoices) > 0 }
