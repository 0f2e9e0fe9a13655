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

// Package invoice implements the two invoice-generation entry points:
// schema-driven materialization and SmartTable-row-driven overwrite, plus
// the Document type both work on.
package invoice

import (
	"encoding/json"
	"os"
)

// Document is the nested mapping with top-level keys basic, custom, sample,
// datasetId. It is intentionally a bare map so the schema walker in
// pkg/rdeschema (which validates arbitrary JSON documents) can operate on
// it without an adapter layer.
type Document map[string]any

// Empty returns a Document with the four top-level containers present but
// empty, the shape every tile invoice starts from before Initializer
// populates it.
func Empty() Document {
	return Document{
		"basic":     map[string]any{},
		"custom":    map[string]any{},
		"sample":    map[string]any{},
		"datasetId": "",
	}
}

// Load reads and parses path as a Document.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Document(raw), nil
}

// Save writes doc to path as indented JSON.
func (d Document) Save(path string) error {
	data, err := json.MarshalIndent(map[string]any(d), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o640)
}

// Clone deep-clones d so later per-tile mutation can never leak back into
// the shared base invoice (the "invoice_org" invariant in §3/§4.C5).
func (d Document) Clone() Document {
	cloned, _ := cloneValue(map[string]any(d)).(map[string]any)
	return Document(cloned)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}

// Section returns the named top-level container (basic, custom, sample) as
// a map, creating nothing — callers check the second return value.
func (d Document) Section(name string) (map[string]any, bool) {
	v, ok := d[name]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// EnsureDataName fills basic.dataName from firstFileName when absent, per
// the InvoiceDocument invariant in §3.
func (d Document) EnsureDataName(firstFileName string) {
	basic, ok := d.Section("basic")
	if !ok {
		basic = map[string]any{}
		d["basic"] = basic
	}
	if _, present := basic["dataName"]; !present {
		basic["dataName"] = firstFileName
	}
}
