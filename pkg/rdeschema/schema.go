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

// Package rdeschema parses the invoice JSON Schema and the metadata
// definition document, and validates InvoiceDocument/MetadataDocument values
// against them.
//
// The schema walker is the one place recursion over an untyped JSON tree is
// unavoidable (see the design notes): it is modeled as a tagged variant —
// FieldKind plus Properties/Items — rather than chased through interface{}
// at every call site.
package rdeschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/result"
)

// FieldKind is the closed enumeration of JSON Schema scalar/compound types
// this package understands.
type FieldKind string

const (
	KindObject  FieldKind = "object"
	KindArray   FieldKind = "array"
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindInteger FieldKind = "integer"
	KindBoolean FieldKind = "boolean"
)

// Field is a node in the schema's tagged-variant tree.
type Field struct {
	Name       string
	Type       FieldKind
	Default    any
	Examples   []any
	Enum       []any
	Properties map[string]*Field // populated when Type == KindObject
	Required   []string          // child names required when Type == KindObject
	Items      *Field            // populated when Type == KindArray
}

// InvoiceSchema is the parsed invoice.schema.json document.
type InvoiceSchema struct {
	Root *Field
}

// rawSchema mirrors the JSON Schema fields this package consumes; recursive
// properties are decoded by hand in toField so arbitrary nesting depth
// works without generating one Go type per schema level.
type rawSchema struct {
	Type       string                 `json:"type"`
	Default    any                    `json:"default"`
	Examples   []any                  `json:"examples"`
	Enum       []any                  `json:"enum"`
	Required   []string               `json:"required"`
	Properties map[string]json.RawMessage `json:"properties"`
	Items      json.RawMessage        `json:"items"`
}

// LoadInvoiceSchema parses path as a JSON Schema document. Syntactic errors
// are reported with the json decoder's byte offset converted to line/column;
// structural errors (unrecognized "type") are reported with their field
// path.
func LoadInvoiceSchema(path string) result.Result[*InvoiceSchema, *rdeerrors.UserError] {
	data, err := os.ReadFile(path)
	if err != nil {
		return result.Err[*InvoiceSchema](rdeerrors.NewConfigError(
			"Cannot read invoice schema",
			fmt.Sprintf("failed to read %s", path),
			"check that tasksupport/invoice.schema.json exists and is readable",
			err,
		))
	}
	return ParseInvoiceSchema(data)
}

// ParseInvoiceSchema parses raw JSON Schema bytes into an InvoiceSchema.
func ParseInvoiceSchema(data []byte) result.Result[*InvoiceSchema, *rdeerrors.UserError] {
	var raw rawSchema
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		line, col := lineCol(data, jsonOffset(err))
		return result.Err[*InvoiceSchema](rdeerrors.NewConfigError(
			"Invalid invoice schema JSON",
			fmt.Sprintf("syntax error at line %d, column %d: %v", line, col, err),
			"fix the JSON syntax in invoice.schema.json",
			err,
		))
	}
	root, err := toField("$", &raw)
	if err != nil {
		return result.Err[*InvoiceSchema](rdeerrors.NewConfigError(
			"Invalid invoice schema structure",
			err.Error(),
			"check the field referenced in the error for a malformed \"type\"",
			err,
		))
	}
	return result.Ok[*InvoiceSchema, *rdeerrors.UserError](&InvoiceSchema{Root: root})
}

func toField(path string, raw *rawSchema) (*Field, error) {
	f := &Field{
		Name:     path,
		Default:  raw.Default,
		Examples: raw.Examples,
		Enum:     raw.Enum,
		Required: raw.Required,
	}
	switch raw.Type {
	case "", "object":
		f.Type = KindObject
	case "array":
		f.Type = KindArray
	case "string":
		f.Type = KindString
	case "number":
		f.Type = KindNumber
	case "integer":
		f.Type = KindInteger
	case "boolean":
		f.Type = KindBoolean
	default:
		return nil, fmt.Errorf("field %s: unrecognized schema type %q", path, raw.Type)
	}

	if f.Type == KindObject && len(raw.Properties) > 0 {
		f.Properties = make(map[string]*Field, len(raw.Properties))
		for name, rawChild := range raw.Properties {
			var childSchema rawSchema
			if err := json.Unmarshal(rawChild, &childSchema); err != nil {
				return nil, fmt.Errorf("field %s/%s: %w", path, name, err)
			}
			child, err := toField(path+"/"+name, &childSchema)
			if err != nil {
				return nil, err
			}
			f.Properties[name] = child
		}
	}

	if f.Type == KindArray && len(raw.Items) > 0 {
		var itemSchema rawSchema
		if err := json.Unmarshal(raw.Items, &itemSchema); err != nil {
			return nil, fmt.Errorf("field %s/items: %w", path, err)
		}
		item, err := toField(path+"/items", &itemSchema)
		if err != nil {
			return nil, err
		}
		f.Items = item
	}
	return f, nil
}

// FindField performs a depth-first search over nested properties and
// returns the first field named name, searching Root and every descendant
// object in traversal order.
func (s *InvoiceSchema) FindField(name string) (*Field, bool) {
	if s == nil || s.Root == nil {
		return nil, false
	}
	return findField(s.Root, name)
}

func findField(f *Field, name string) (*Field, bool) {
	if f == nil {
		return nil, false
	}
	if f.Name != "" {
		// Name carries the full path ("$/basic/dataName"); match on the
		// last path segment, which is how callers address fields.
		if lastSegment(f.Name) == name {
			return f, true
		}
	}
	if f.Properties != nil {
		// Deterministic order: property names are visited sorted, so
		// depth-first search results are reproducible across runs.
		for _, childName := range sortedKeys(f.Properties) {
			if found, ok := findField(f.Properties[childName], name); ok {
				return found, true
			}
		}
	}
	if f.Items != nil {
		if found, ok := findField(f.Items, name); ok {
			return found, true
		}
	}
	return nil, false
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func sortedKeys(m map[string]*Field) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// simple insertion sort keeps this allocation-free for the small
	// property counts schemas carry in practice.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func jsonOffset(err error) int64 {
	if se, ok := err.(*json.SyntaxError); ok {
		return se.Offset
	}
	if te, ok := err.(*json.UnmarshalTypeError); ok {
		return te.Offset
	}
	return 0
}

func lineCol(data []byte, offset int64) (line, col int) {
	line = 1
	col = 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
