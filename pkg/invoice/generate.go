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

import "github.com/kraklabs/rdesys/pkg/rdeschema"

// GenerateOptions configures GenerateFromSchema.
type GenerateOptions struct {
	// FillDefaults allows falling back to a field's first example when no
	// explicit default is declared.
	FillDefaults bool
	// RequiredOnly restricts emitted fields to those declared required by
	// an ancestor object (plus the always-required basic/datasetId
	// containers at the root).
	RequiredOnly bool
}

// GenerateFromSchema walks schema and materializes a Document. Default
// values are chosen by strict priority: the field's own "default", then
// (if FillDefaults) the first "examples" entry, then a type-based default
// (string->"", number->0.0, integer->0, boolean->false, array->[],
// object->{}).
func GenerateFromSchema(schema *rdeschema.InvoiceSchema, opts GenerateOptions) Document {
	if schema == nil || schema.Root == nil {
		return Empty()
	}
	root := materializeObject(schema.Root, opts, true)
	obj, ok := root.(map[string]any)
	if !ok {
		return Empty()
	}
	return Document(obj)
}

func materializeObject(f *rdeschema.Field, opts GenerateOptions, isRoot bool) any {
	obj := map[string]any{}
	for name, child := range f.Properties {
		required := contains(f.Required, name)
		alwaysRequired := isRoot && (name == "basic" || name == "datasetId")
		if opts.RequiredOnly && !required && !alwaysRequired {
			continue
		}
		obj[name] = materializeValue(child, opts)
	}
	return obj
}

func materializeValue(f *rdeschema.Field, opts GenerateOptions) any {
	if f == nil {
		return nil
	}
	if f.Default != nil {
		return f.Default
	}
	if opts.FillDefaults && len(f.Examples) > 0 {
		return f.Examples[0]
	}
	switch f.Type {
	case rdeschema.KindObject:
		return materializeObject(f, opts, false)
	case rdeschema.KindArray:
		return []any{}
	case rdeschema.KindString:
		return ""
	case rdeschema.KindNumber:
		return 0.0
	case rdeschema.KindInteger:
		return 0
	case rdeschema.KindBoolean:
		return false
	default:
		return nil
	}
}

func contains(list []string, name string) bool {
	for _, l := range list {
		if l == name {
			return true
		}
	}
	return false
}
