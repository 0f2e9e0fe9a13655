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

// Package rdepath holds the typed path and file-group wrappers shared by
// every component of the pipeline. It deliberately exposes only the typed
// forms (InputPaths, OutputPaths, FileGroup) — no loose string/tuple
// aliases, per the design notes.
package rdepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// InputPaths is the immutable bundle of directory roots a run reads from.
// NewInputPaths verifies that inputdata and tasksupport exist; tasksupport
// is treated as read-only by every downstream component.
type InputPaths struct {
	inputData   string
	invoice     string
	tasksupport string
}

// NewInputPaths validates that inputdata and tasksupport exist under root
// and returns the bundle. The invoice directory is not checked: it may be
// absent when the mode does not require a base invoice (RDEFormat,
// SmartTable without an invoice/invoice.json template).
func NewInputPaths(root string) (InputPaths, error) {
	ip := InputPaths{
		inputData:   filepath.Join(root, "inputdata"),
		invoice:     filepath.Join(root, "invoice"),
		tasksupport: filepath.Join(root, "tasksupport"),
	}
	if err := requireDir(ip.inputData); err != nil {
		return InputPaths{}, err
	}
	if err := requireDir(ip.tasksupport); err != nil {
		return InputPaths{}, err
	}
	// invoice/ is optional: Invoice mode requires invoice.json inside it,
	// but RDEFormat and bare SmartTable runs may have none.
	return ip, nil
}

func requireDir(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("required input directory %s: %w", p, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("required input path %s is not a directory", p)
	}
	return nil
}

func (ip InputPaths) InputData() string   { return ip.inputData }
func (ip InputPaths) Invoice() string     { return ip.invoice }
func (ip InputPaths) Tasksupport() string { return ip.tasksupport }

// InvoiceOrgPath returns the base invoice.json path under invoice/, if any.
func (ip InputPaths) InvoiceOrgPath() string { return filepath.Join(ip.invoice, "invoice.json") }

// SchemaPath returns tasksupport/invoice.schema.json.
func (ip InputPaths) SchemaPath() string { return filepath.Join(ip.tasksupport, "invoice.schema.json") }

// MetadataDefPath returns tasksupport/metadata-def.json.
func (ip InputPaths) MetadataDefPath() string {
	return filepath.Join(ip.tasksupport, "metadata-def.json")
}

// OutputPaths is the per-tile directory bundle. Every directory it
// references is created lazily by Ensure; a directory that no executed
// processor needed is never created, per the universal invariant in §8.
type OutputPaths struct {
	root               string
	Raw                string
	NonsharedRaw       string
	Struct             string
	MainImage          string
	OtherImage         string
	Meta               string
	Thumbnail          string
	Logs               string
	Invoice            string
	InvoiceSchemaJSON  string
	InvoiceOrg         string
	SmarttableRowfile  string
	Temp               string
	InvoicePatch       string
	Attachment         string
}

// NewOutputPaths lays out the per-tile directory bundle rooted at dir. For
// tile 0 dir is the run root; for tile i>=1 dir is the one DividedDir
// returns, root/divided/ numbered i-1+startNumber.
func NewOutputPaths(dir string) OutputPaths {
	return OutputPaths{
		root:              dir,
		Raw:               filepath.Join(dir, "raw"),
		NonsharedRaw:      filepath.Join(dir, "nonshared_raw"),
		Struct:            filepath.Join(dir, "structured"),
		MainImage:         filepath.Join(dir, "main_image"),
		OtherImage:        filepath.Join(dir, "other_image"),
		Meta:              filepath.Join(dir, "meta"),
		Thumbnail:         filepath.Join(dir, "thumbnail"),
		Logs:              filepath.Join(dir, "logs"),
		Invoice:           filepath.Join(dir, "invoice"),
		InvoiceSchemaJSON: filepath.Join(dir, "invoice_schema_json"),
		InvoiceOrg:        filepath.Join(dir, "invoice_org"),
		SmarttableRowfile: filepath.Join(dir, "smarttable_rowfile"),
		Temp:              filepath.Join(dir, "temp"),
		InvoicePatch:      filepath.Join(dir, "invoice_patch"),
		Attachment:        filepath.Join(dir, "attachment"),
	}
}

// Root returns the tile's output root directory.
func (op OutputPaths) Root() string { return op.root }

// InvoiceJSON returns the path to the tile's invoice.json.
func (op OutputPaths) InvoiceJSON() string { return filepath.Join(op.Invoice, "invoice.json") }

// MetadataJSON returns the path to the tile's metadata.json.
func (op OutputPaths) MetadataJSON() string { return filepath.Join(op.Meta, "metadata.json") }

// Ensure creates dir if it does not already exist. Directory creation is
// idempotent, matching the shared-resource policy in §5.
func (op OutputPaths) Ensure(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}

// DividedDir computes the output root for tile index i (0-based) relative to
// runRoot, using digit as the zero-pad width for the divided/ suffix and
// startNumber as the offset applied before padding.
func DividedDir(runRoot string, i, digit, startNumber int) string {
	if i == 0 {
		return runRoot
	}
	n := i - 1 + startNumber
	format := fmt.Sprintf("%%0%dd", digit)
	return filepath.Join(runRoot, "divided", fmt.Sprintf(format, n))
}
