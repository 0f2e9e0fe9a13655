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

package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/invoice"
	"github.com/kraklabs/rdesys/pkg/magicvar"
	"github.com/kraklabs/rdesys/pkg/rdeschema"
	"github.com/kraklabs/rdesys/pkg/thumbnail"
)

// InitializeFromInvoiceOrg clones InvoiceOrg as-is: the Invoice and
// MultiDataTile modes, where every tile starts from the same base document.
type InitializeFromInvoiceOrg struct{}

func (InitializeFromInvoiceOrg) Name() string { return "initialize_from_invoice_org" }

func (InitializeFromInvoiceOrg) Process(_ context.Context, pc *ProcessingContext) error {
	if pc.InvoiceOrg != nil {
		pc.Invoice = pc.InvoiceOrg.Clone()
	} else {
		pc.Invoice = invoice.Empty()
	}
	if len(pc.Tile.InputFiles) > 0 {
		pc.Invoice.EnsureDataName(filepath.Base(pc.Tile.InputFiles[0]))
	}
	return nil
}

// InitializeFromRow applies the tile's SmartTableRow (the ExcelInvoice or
// SmartTable column-path mapping) on top of InvoiceOrg, covering both the
// ExcelInvoice and SmartTable Initializer variants — they share the same
// column-path syntax and casting rules.
type InitializeFromRow struct{}

func (InitializeFromRow) Name() string { return "initialize_from_row" }

func (InitializeFromRow) Process(_ context.Context, pc *ProcessingContext) error {
	base := pc.InvoiceOrg
	if base == nil {
		base = invoice.Empty()
	}
	doc, meta, err := invoice.OverwriteInvoice(base, pc.Tile.SmartTableRow, pc.Schema, pc.MetadataDef)
	if err != nil {
		return err
	}
	pc.Invoice = doc
	if pc.MetadataOverrides == nil {
		pc.MetadataOverrides = meta
	} else {
		for k, v := range meta {
			pc.MetadataOverrides[k] = v
		}
	}
	if len(pc.Tile.InputFiles) > 0 {
		pc.Invoice.EnsureDataName(filepath.Base(pc.Tile.InputFiles[0]))
	}
	return nil
}

// InitializeNoOp materializes a fresh Invoice straight from the schema
// (RDEFormat tiles and any mode with no base invoice to clone).
type InitializeNoOp struct {
	FillDefaults bool
}

func (InitializeNoOp) Name() string { return "initialize_noop" }

func (p InitializeNoOp) Process(_ context.Context, pc *ProcessingContext) error {
	if pc.Schema != nil {
		pc.Invoice = invoice.GenerateFromSchema(pc.Schema, invoice.GenerateOptions{FillDefaults: p.FillDefaults})
	} else {
		pc.Invoice = invoice.Empty()
	}
	if len(pc.Tile.InputFiles) > 0 {
		pc.Invoice.EnsureDataName(filepath.Base(pc.Tile.InputFiles[0]))
	}
	return nil
}

// MagicVariableSubstitutor resolves ${...} tokens across the invoice's
// basic/custom/sample sections when system.magic_variable is enabled.
type MagicVariableSubstitutor struct{}

func (MagicVariableSubstitutor) Name() string { return "magic_variable_substitutor" }

func (MagicVariableSubstitutor) Process(_ context.Context, pc *ProcessingContext) error {
	if !pc.Config.System.MagicVariable || pc.Invoice == nil {
		return nil
	}
	var filename string
	if len(pc.Tile.InputFiles) > 0 {
		filename = filepath.Base(pc.Tile.InputFiles[0])
	}
	metaConst := map[string]string{}
	if pc.Metadata != nil {
		for k, v := range pc.Metadata.Constant {
			metaConst[k] = fmt.Sprint(v.Value)
		}
	}
	resolved, err := magicvar.SubstituteDocument(pc.Invoice, magicvar.Context{
		Filename:         filename,
		InvoiceOrg:       pc.InvoiceOrg,
		MetadataConstant: metaConst,
	})
	if err != nil {
		return err
	}
	pc.Invoice = invoice.Document(resolved)
	return nil
}

// Validator checks the tile's Invoice against the schema and its merged
// metadata against metadata-def. Every failure found is collected into a
// ValidationReport rather than stopping at the first one; the returned
// error is non-fatal so the chain continues and the dispatcher marks only
// this tile failed.
type Validator struct {
	RequiredOnly bool
}

func (Validator) Name() string { return "validator" }

func (v Validator) Process(_ context.Context, pc *ProcessingContext) error {
	if pc.Schema == nil || pc.Invoice == nil {
		return nil
	}
	result := rdeschema.ValidateInvoice(pc.Invoice, pc.Schema, rdeschema.ValidateOptions{RequiredOnly: v.RequiredOnly})
	if result.IsErr() {
		report := result.Error()
		pc.ValidationReports = append(pc.ValidationReports, report)
		return rdeerrors.NewValidationError(
			"Invoice failed schema validation",
			report.Error(),
			"check invoice.schema.json against the generated invoice.json",
			nil,
		)
	}
	return nil
}

// RawCopier copies the tile's input files into raw/ and, when configured,
// nonshared_raw/.
type RawCopier struct{}

func (RawCopier) Name() string { return "raw_copier" }

func (RawCopier) Process(_ context.Context, pc *ProcessingContext) error {
	if !pc.Config.System.SaveRaw && !pc.Config.System.SaveNonsharedRaw {
		return nil
	}
	op := pc.Tile.OutputPaths
	if pc.Config.System.SaveRaw {
		if err := op.Ensure(op.Raw); err != nil {
			return rdeerrors.NewIOError("Cannot create raw output directory", err.Error(), "", err)
		}
	}
	if pc.Config.System.SaveNonsharedRaw {
		if err := op.Ensure(op.NonsharedRaw); err != nil {
			return rdeerrors.NewIOError("Cannot create nonshared_raw output directory", err.Error(), "", err)
		}
	}
	for _, src := range pc.Tile.InputFiles {
		name := filepath.Base(src)
		if pc.Config.System.SaveRaw {
			if err := copyFile(src, filepath.Join(op.Raw, name)); err != nil {
				return err
			}
		}
		if pc.Config.System.SaveNonsharedRaw {
			if err := copyFile(src, filepath.Join(op.NonsharedRaw, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return rdeerrors.NewIOError("Cannot open input file", err.Error(), "", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return rdeerrors.NewIOError("Cannot write output file", err.Error(), "", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return rdeerrors.NewIOError("Cannot copy file", err.Error(), "", err)
	}
	return nil
}

// DescriptionUpdater transcribes every feature-flagged metadata-def entry
// found in the tile's metadata into custom.description, when
// system.feature_description is enabled. A key present in both Constant and
// Variable is taken from Constant; a key with more than one distinct value
// across Variable groups is rendered "[A,B,C]", each value listed once.
type DescriptionUpdater struct{}

func (DescriptionUpdater) Name() string { return "description_updater" }

func (DescriptionUpdater) Process(_ context.Context, pc *ProcessingContext) error {
	if !pc.Config.System.FeatureDescription || pc.Invoice == nil || pc.MetadataDef == nil {
		return nil
	}
	lines := featureLines(pc.MetadataDef, pc.Metadata, pc.MetadataOverrides)
	if len(lines) == 0 {
		return nil
	}
	custom, ok := pc.Invoice.Section("custom")
	if !ok {
		custom = map[string]any{}
		pc.Invoice["custom"] = custom
	}
	custom["description"] = strings.Join(lines, "\n")
	return nil
}

// featureLines renders one "key: value" line per feature-flagged metadata-def
// key found in meta or overrides, constant-shadows-variable, sorted by key
// for deterministic output.
func featureLines(def *rdeschema.MetadataDef, meta *rdeschema.MetadataDocument, overrides map[string]rdeschema.MetadataValue) []string {
	variable := map[string][]string{}
	var order []string
	addVariable := func(key, rendered string) {
		existing, seen := variable[key]
		if !seen {
			order = append(order, key)
		}
		for _, v := range existing {
			if v == rendered {
				return
			}
		}
		variable[key] = append(existing, rendered)
	}

	constant := map[string]string{}
	if meta != nil {
		for _, group := range meta.Variable {
			for key, mv := range group {
				entry, ok := def.Entries[key]
				if !ok || !entry.Feature {
					continue
				}
				addVariable(key, fmt.Sprint(mv.Value))
			}
		}
		for key, mv := range meta.Constant {
			if entry, ok := def.Entries[key]; ok && entry.Feature {
				constant[key] = fmt.Sprint(mv.Value)
			}
		}
	}
	for key, mv := range overrides {
		if entry, ok := def.Entries[key]; ok && entry.Feature {
			constant[key] = fmt.Sprint(mv.Value)
		}
	}

	rendered := map[string]string{}
	for _, key := range order {
		vals := variable[key]
		if len(vals) == 1 {
			rendered[key] = vals[0]
		} else {
			rendered[key] = fmt.Sprintf("[%s]", strings.Join(vals, ","))
		}
	}
	for key, v := range constant {
		rendered[key] = v
	}

	keys := make([]string, 0, len(rendered))
	for k := range rendered {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, rendered[k]))
	}
	return lines
}

// ThumbnailGenerator writes a downscaled preview of the tile's first
// decodable image into thumbnail/.
type ThumbnailGenerator struct{}

func (ThumbnailGenerator) Name() string { return "thumbnail_generator" }

func (ThumbnailGenerator) Process(_ context.Context, pc *ProcessingContext) error {
	if !pc.Config.System.SaveThumbnailImage {
		return nil
	}
	var src string
	for _, f := range pc.Tile.InputFiles {
		if thumbnail.IsImage(f) {
			src = f
			break
		}
	}
	if src == "" {
		return nil
	}
	op := pc.Tile.OutputPaths
	if err := op.Ensure(op.Thumbnail); err != nil {
		return rdeerrors.NewIOError("Cannot create thumbnail directory", err.Error(), "", err)
	}
	dest := filepath.Join(op.Thumbnail, stemOf(src)+".jpg")
	return thumbnail.Generate(src, dest)
}

func stemOf(p string) string {
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

// StructuredInvoiceSaver writes the tile's final invoice.json and
// metadata.json, merging MetadataOverrides into the constant section.
type StructuredInvoiceSaver struct{}

func (StructuredInvoiceSaver) Name() string { return "structured_invoice_saver" }

func (StructuredInvoiceSaver) Process(_ context.Context, pc *ProcessingContext) error {
	op := pc.Tile.OutputPaths
	if pc.Invoice != nil {
		if err := op.Ensure(op.Invoice); err != nil {
			return rdeerrors.NewIOError("Cannot create invoice output directory", err.Error(), "", err)
		}
		if err := pc.Invoice.Save(op.InvoiceJSON()); err != nil {
			return rdeerrors.NewIOError("Cannot write invoice.json", err.Error(), "", err)
		}
		if pc.Config.System.SaveInvoiceToStructured {
			if err := op.Ensure(op.Struct); err != nil {
				return rdeerrors.NewIOError("Cannot create structured output directory", err.Error(), "", err)
			}
			if err := pc.Invoice.Save(filepath.Join(op.Struct, "invoice.json")); err != nil {
				return rdeerrors.NewIOError("Cannot copy invoice.json to structured/", err.Error(), "", err)
			}
		}
	}

	if len(pc.MetadataOverrides) == 0 && pc.Metadata == nil {
		return nil
	}
	doc := mergeMetadata(pc.Metadata, pc.MetadataOverrides)
	if err := op.Ensure(op.Meta); err != nil {
		return rdeerrors.NewIOError("Cannot create meta output directory", err.Error(), "", err)
	}
	if err := writeMetadataJSON(op.MetadataJSON(), doc); err != nil {
		return err
	}
	return nil
}

func mergeMetadata(base *rdeschema.MetadataDocument, overrides map[string]rdeschema.MetadataValue) *rdeschema.MetadataDocument {
	out := &rdeschema.MetadataDocument{Constant: map[string]rdeschema.MetadataValue{}}
	if base != nil {
		for k, v := range base.Constant {
			out.Constant[k] = v
		}
		out.Variable = base.Variable
	}
	for k, v := range overrides {
		out.Constant[k] = v
	}
	return out
}

// UserDatasetFunction invokes pc.DatasetFunc, the final escape hatch for
// dataset-specific processing a run can register, if one was set.
type UserDatasetFunction struct{}

func (UserDatasetFunction) Name() string { return "user_dataset_function" }

func (UserDatasetFunction) Process(ctx context.Context, pc *ProcessingContext) (err error) {
	if pc.DatasetFunc == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = rdeerrors.NewUserCallbackError(
				"User dataset function panicked",
				fmt.Sprintf("%v", r),
				"check the dataset function for a nil-pointer dereference, out-of-range index, or similar bug",
				nil,
			)
		}
	}()
	if callErr := pc.DatasetFunc(ctx, pc); callErr != nil {
		return rdeerrors.NewUserCallbackError(
			"User dataset function failed",
			callErr.Error(),
			"",
			callErr,
		)
	}
	return nil
}
