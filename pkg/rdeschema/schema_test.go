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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSchemaJSON = `{
  "type": "object",
  "required": ["basic"],
  "properties": {
    "basic": {
      "type": "object",
      "required": ["dataName"],
      "properties": {
        "dataName": {"type": "string"},
        "dataOwnerId": {"type": "string", "default": "unset"}
      }
    },
    "custom": {
      "type": "object",
      "properties": {
        "tags": {"type": "array", "items": {"type": "string"}},
        "status": {"type": "string", "enum": ["draft", "final"], "examples": ["draft"]}
      }
    }
  }
}`

func TestParseInvoiceSchemaValid(t *testing.T) {
	r := ParseInvoiceSchema([]byte(sampleSchemaJSON))
	require.True(t, r.IsOk())
	schema := r.Value()
	require.NotNil(t, schema.Root)
	assert.Equal(t, KindObject, schema.Root.Type)
}

func TestParseInvoiceSchemaSyntaxErrorReportsLineColumn(t *testing.T) {
	r := ParseInvoiceSchema([]byte("{not json"))
	require.True(t, r.IsErr())
	assert.Contains(t, r.Error().Detail, "line")
}

func TestParseInvoiceSchemaUnrecognizedTypeErrors(t *testing.T) {
	r := ParseInvoiceSchema([]byte(`{"type": "bogus"}`))
	require.True(t, r.IsErr())
	assert.Contains(t, r.Error().Detail, "bogus")
}

func TestFindFieldLocatesNestedField(t *testing.T) {
	r := ParseInvoiceSchema([]byte(sampleSchemaJSON))
	require.True(t, r.IsOk())
	schema := r.Value()

	field, ok := schema.FindField("dataName")
	require.True(t, ok)
	assert.Equal(t, KindString, field.Type)

	field, ok = schema.FindField("status")
	require.True(t, ok)
	assert.Equal(t, []any{"draft", "final"}, field.Enum)
}

func TestFindFieldReturnsFalseWhenAbsent(t *testing.T) {
	r := ParseInvoiceSchema([]byte(sampleSchemaJSON))
	require.True(t, r.IsOk())
	_, ok := r.Value().FindField("doesNotExist")
	assert.False(t, ok)
}

func TestFindFieldOnNilSchemaIsFalse(t *testing.T) {
	var schema *InvoiceSchema
	_, ok := schema.FindField("dataName")
	assert.False(t, ok)
}
