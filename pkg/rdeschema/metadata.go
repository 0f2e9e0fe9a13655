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

package rdeschema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/result"
)

// MaxValueSize bounds the serialized length (bytes of its string form) of
// any single metadata value. Exceeding it raises ValidationError{SizeExceeded}.
const MaxValueSize = 1024

// MetadataDefEntry describes one constant/variable metadata key as declared
// in tasksupport/metadata-def.json.
type MetadataDefEntry struct {
	Type    FieldKind
	Unit    string
	Feature bool
}

// MetadataDef is the parsed metadata-def.json: key -> declared type/feature.
type MetadataDef struct {
	Entries map[string]MetadataDefEntry
}

type rawMetadataDefEntry struct {
	Schema struct {
		Type string `json:"type"`
	} `json:"schema"`
	Unit    string `json:"unit"`
	Feature bool   `json:"feature"`
}

// LoadMetadataDef parses tasksupport/metadata-def.json.
func LoadMetadataDef(path string) result.Result[*MetadataDef, *rdeerrors.UserError] {
	data, err := os.ReadFile(path)
	if err != nil {
		return result.Err[*MetadataDef](rdeerrors.NewConfigError(
			"Cannot read metadata definition",
			fmt.Sprintf("failed to read %s", path),
			"check that tasksupport/metadata-def.json exists and is readable",
			err,
		))
	}
	var raw map[string]rawMetadataDefEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return result.Err[*MetadataDef](rdeerrors.NewConfigError(
			"Invalid metadata definition JSON",
			err.Error(),
			"fix the JSON syntax in metadata-def.json",
			err,
		))
	}
	def := &MetadataDef{Entries: make(map[string]MetadataDefEntry, len(raw))}
	for name, entry := range raw {
		kind := FieldKind(entry.Schema.Type)
		switch kind {
		case KindString, KindNumber, KindInteger, KindBoolean, KindArray, KindObject:
		default:
			kind = KindString
		}
		def.Entries[name] = MetadataDefEntry{Type: kind, Unit: entry.Unit, Feature: entry.Feature}
	}
	return result.Ok[*MetadataDef, *rdeerrors.UserError](def)
}

// MetadataValue is one {value, unit?} leaf of a MetadataDocument.
type MetadataValue struct {
	Value any
	Unit  string
}

// MetadataDocument is the in-memory form of metadata.json: a constant
// section plus a list of variable sections (one per measurement sweep).
type MetadataDocument struct {
	Constant map[string]MetadataValue
	Variable []map[string]MetadataValue
}

// ValidateMetadata checks each constant/variable entry against its declared
// type and the MaxValueSize bound.
func ValidateMetadata(doc *MetadataDocument, def *MetadataDef) result.Result[struct{}, *ValidationReport] {
	report := &ValidationReport{}
	if doc == nil || def == nil {
		return result.Ok[struct{}, *ValidationReport](struct{}{})
	}
	for key, mv := range doc.Constant {
		validateMetadataValue(fmt.Sprintf("$/constant/%s", key), key, mv, def, report)
	}
	for i, group := range doc.Variable {
		for key, mv := range group {
			validateMetadataValue(fmt.Sprintf("$/variable[%d]/%s", i, key), key, mv, def, report)
		}
	}
	if report.Empty() {
		return result.Ok[struct{}, *ValidationReport](struct{}{})
	}
	return result.Err[struct{}](report)
}

func validateMetadataValue(path, key string, mv MetadataValue, def *MetadataDef, report *ValidationReport) {
	serialized := fmt.Sprint(mv.Value)
	if len(serialized) > MaxValueSize {
		report.add(path, KindSizeExceeded, fmt.Sprintf("value is %d bytes, exceeds MAX_VALUE_SIZE=%d", len(serialized), MaxValueSize))
	}
	entry, ok := def.Entries[key]
	if !ok {
		return
	}
	switch entry.Type {
	case KindString:
		if _, ok := mv.Value.(string); !ok {
			report.add(path, KindTypeMismatch, "expected string")
		}
	case KindNumber:
		if !isNumber(mv.Value) {
			report.add(path, KindTypeMismatch, "expected number")
		}
	case KindInteger:
		if !isInteger(mv.Value) {
			report.add(path, KindTypeMismatch, "expected integer")
		}
	case KindBoolean:
		if _, ok := mv.Value.(bool); !ok {
			report.add(path, KindTypeMismatch, "expected boolean")
		}
	}
}
