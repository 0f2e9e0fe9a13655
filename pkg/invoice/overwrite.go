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

package invoice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/rdeschema"
)

// ColumnError attaches the offending column path to a casting failure, so
// callers can report {tile_index, column_path} per §4.C5.
type ColumnError struct {
	ColumnPath string
	Err        error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %s: %v", e.ColumnPath, e.Err)
}
func (e *ColumnError) Unwrap() error { return e.Err }

// OverwriteInvoice applies a SmartTable row (or an arbitrary patch) to a
// clone of base. row maps column path -> cell string, using the syntax in
// §4.C5: basic/f, custom/f, sample/f, sample/generalAttributes/<termId>,
// sample/specificAttributes/<classId>/<termId>, meta/<constantName>.
//
// An empty cell removes the mapped field from the result rather than
// leaving the base's prior value in place — the tile's invoice never
// inherits a value from an earlier row. meta/ columns are routed to the
// metadataOut return value instead of being written into the invoice.
func OverwriteInvoice(base Document, row map[string]string, schema *rdeschema.InvoiceSchema, metaDef *rdeschema.MetadataDef) (Document, map[string]rdeschema.MetadataValue, error) {
	result := base.Clone()
	if result == nil {
		result = Document{}
	}
	metaOut := map[string]rdeschema.MetadataValue{}

	paths := make([]string, 0, len(row))
	for p := range row {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, columnPath := range paths {
		cell := row[columnPath]
		segments := strings.Split(columnPath, "/")
		if len(segments) == 0 {
			continue
		}
		if segments[0] == "meta" {
			if len(segments) != 2 {
				return nil, nil, &ColumnError{columnPath, fmt.Errorf("malformed meta column path")}
			}
			if cell == "" {
				delete(metaOut, segments[1])
				continue
			}
			val, unit, err := castMetadataCell(segments[1], cell, metaDef)
			if err != nil {
				return nil, nil, &ColumnError{columnPath, err}
			}
			metaOut[segments[1]] = rdeschema.MetadataValue{Value: val, Unit: unit}
			continue
		}

		if err := applyInvoiceColumn(result, segments, cell, schema); err != nil {
			return nil, nil, &ColumnError{columnPath, err}
		}
	}
	return result, metaOut, nil
}

func applyInvoiceColumn(doc Document, segments []string, cell string, schema *rdeschema.InvoiceSchema) error {
	switch {
	case len(segments) == 2 && (segments[0] == "basic" || segments[0] == "custom" || segments[0] == "sample"):
		return applyScalarField(doc, segments[0], segments[1], cell, schema)
	case len(segments) == 3 && segments[0] == "sample" && segments[1] == "generalAttributes":
		return applyAttribute(doc, "generalAttributes", map[string]string{"termId": segments[2]}, cell, schema)
	case len(segments) == 4 && segments[0] == "sample" && segments[1] == "specificAttributes":
		return applyAttribute(doc, "specificAttributes", map[string]string{"classId": segments[2], "termId": segments[3]}, cell, schema)
	default:
		return fmt.Errorf("unrecognized column-path syntax %q", strings.Join(segments, "/"))
	}
}

func applyScalarField(doc Document, section, field, cell string, schema *rdeschema.InvoiceSchema) error {
	sec, ok := doc.Section(section)
	if !ok {
		sec = map[string]any{}
		doc[section] = sec
	}
	if cell == "" {
		delete(sec, field)
		return nil
	}
	val, err := castByField(field, cell, schema)
	if err != nil {
		return err
	}
	sec[field] = val
	return nil
}

func applyAttribute(doc Document, arrayName string, keys map[string]string, cell string, schema *rdeschema.InvoiceSchema) error {
	sample, ok := doc.Section("sample")
	if !ok {
		sample = map[string]any{}
		doc["sample"] = sample
	}
	arr, _ := sample[arrayName].([]any)

	matchIdx := -1
	for i, el := range arr {
		entry, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if attributeMatches(entry, keys) {
			matchIdx = i
			break
		}
	}

	if cell == "" {
		if matchIdx >= 0 {
			arr = append(arr[:matchIdx], arr[matchIdx+1:]...)
			sample[arrayName] = arr
		}
		return nil
	}

	val, err := castByField("value", cell, schema)
	if err != nil {
		return err
	}
	if matchIdx >= 0 {
		entry := arr[matchIdx].(map[string]any)
		entry["value"] = val
		return nil
	}
	entry := map[string]any{"value": val}
	for k, v := range keys {
		entry[k] = v
	}
	sample[arrayName] = append(arr, entry)
	return nil
}

func attributeMatches(entry map[string]any, keys map[string]string) bool {
	for k, v := range keys {
		if fmt.Sprint(entry[k]) != v {
			return false
		}
	}
	return true
}

// castByField finds field's declared type via find_field and casts cell to
// it. Fields absent from the schema are treated as strings.
func castByField(field, cell string, schema *rdeschema.InvoiceSchema) (any, error) {
	kind := rdeschema.KindString
	if schema != nil {
		if f, ok := schema.FindField(field); ok {
			kind = f.Type
		}
	}
	return castCell(cell, kind)
}

func castMetadataCell(field, cell string, metaDef *rdeschema.MetadataDef) (any, string, error) {
	kind := rdeschema.KindString
	unit := ""
	if metaDef != nil {
		if entry, ok := metaDef.Entries[field]; ok {
			kind = entry.Type
			unit = entry.Unit
		}
	}
	val, err := castCell(cell, kind)
	return val, unit, err
}

// castCell performs the typed cast described in §4.C5: boolean casting is
// case-insensitive and strict (only "TRUE"/"FALSE" in any case map to a
// bool; every other string for a boolean-typed field is a TypeMismatch).
func castCell(cell string, kind rdeschema.FieldKind) (any, error) {
	switch kind {
	case rdeschema.KindBoolean:
		switch strings.ToUpper(cell) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		default:
			return nil, rdeerrors.NewValidationError(
				"Boolean cast failed",
				fmt.Sprintf("value %q is not TRUE or FALSE", cell),
				`boolean columns accept only "TRUE"/"FALSE" in any letter case`,
				nil,
			)
		}
	case rdeschema.KindInteger:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, rdeerrors.NewValidationError("Integer cast failed", fmt.Sprintf("value %q is not an integer", cell), "", err)
		}
		return n, nil
	case rdeschema.KindNumber:
		d, err := decimal.NewFromString(cell)
		if err != nil {
			return nil, rdeerrors.NewValidationError("Number cast failed", fmt.Sprintf("value %q is not a number", cell), "", err)
		}
		return d, nil
	case rdeschema.KindArray, rdeschema.KindObject:
		return nil, rdeerrors.NewValidationError("Unsupported cast", "cannot cast a scalar cell to an array/object field", "", nil)
	default:
		return cell, nil
	}
}
