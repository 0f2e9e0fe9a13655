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

package magicvar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFilename(t *testing.T) {
	out, err := Resolve("${filename}", Context{Filename: "sample.csv"})
	require.NoError(t, err)
	assert.Equal(t, "sample.csv", out)
}

func TestResolveInvoiceBasicField(t *testing.T) {
	ctx := Context{InvoiceOrg: map[string]any{
		"basic": map[string]any{"dataName": "run-01"},
	}}
	out, err := Resolve("prefix_${invoice:basic:dataName}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "prefix_run-01", out)
}

func TestResolveInvoiceCustomField(t *testing.T) {
	ctx := Context{InvoiceOrg: map[string]any{
		"custom": map[string]any{"batch": 12},
	}}
	out, err := Resolve("${invoice:custom:batch}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "12", out)
}

func TestResolveInvoiceSampleNamesJoinsWithUnderscore(t *testing.T) {
	ctx := Context{InvoiceOrg: map[string]any{
		"sample": map[string]any{"names": []any{"A", "B", "C"}},
	}}
	out, err := Resolve("${invoice:sample:names}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "A_B_C", out)
}

func TestResolveInvoiceSampleNamesSkipsEmptyEntries(t *testing.T) {
	ctx := Context{InvoiceOrg: map[string]any{
		"sample": map[string]any{"names": []any{"A", "", "C"}},
	}}
	out, err := Resolve("${invoice:sample:names}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "A_C", out)
}

func TestResolveMetadataConstantField(t *testing.T) {
	ctx := Context{MetadataConstant: map[string]string{"temperature": "25"}}
	out, err := Resolve("${metadata:constant:temperature}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "25", out)
}

func TestResolveMetadataVariableIsAlwaysRejected(t *testing.T) {
	ctx := Context{MetadataConstant: map[string]string{"temperature": "25"}}
	_, err := Resolve("${metadata:variable:temperature}", ctx)
	require.Error(t, err)
}

func TestResolveMissingInvoiceFieldIsError(t *testing.T) {
	ctx := Context{InvoiceOrg: map[string]any{"basic": map[string]any{}}}
	_, err := Resolve("${invoice:basic:dataName}", ctx)
	require.Error(t, err)
}

func TestResolveMissingMetadataFieldIsError(t *testing.T) {
	_, err := Resolve("${metadata:constant:missing}", Context{})
	require.Error(t, err)
}

func TestResolveUnrecognizedPatternIsError(t *testing.T) {
	_, err := Resolve("${bogus:thing}", Context{})
	require.Error(t, err)
}

func TestResolveCollapsesDoubleUnderscoresFromEmptySubstitution(t *testing.T) {
	ctx := Context{InvoiceOrg: map[string]any{
		"sample": map[string]any{"names": []any{}},
	}}
	out, err := Resolve("left_${invoice:sample:names}_right", ctx)
	require.NoError(t, err)
	assert.Equal(t, "left_right", out)
}

func TestResolveNoTokensReturnsInputUnchanged(t *testing.T) {
	out, err := Resolve("plain text with no tokens", Context{})
	require.NoError(t, err)
	assert.Equal(t, "plain text with no tokens", out)
}

func TestSubstituteDocumentWalksBasicCustomSampleOnly(t *testing.T) {
	doc := map[string]any{
		"datasetId": "${filename}",
		"basic":     map[string]any{"dataName": "${filename}"},
		"custom":    map[string]any{"label": "${filename}"},
	}
	ctx := Context{Filename: "in.csv"}
	out, err := SubstituteDocument(doc, ctx)
	require.NoError(t, err)
	assert.Equal(t, "${filename}", out["datasetId"], "top-level keys outside basic/custom/sample are left untouched")
	basic := out["basic"].(map[string]any)
	assert.Equal(t, "in.csv", basic["dataName"])
	custom := out["custom"].(map[string]any)
	assert.Equal(t, "in.csv", custom["label"])
}

func TestSubstituteDocumentDoesNotMutateInput(t *testing.T) {
	doc := map[string]any{"basic": map[string]any{"dataName": "${filename}"}}
	ctx := Context{Filename: "in.csv"}
	_, err := SubstituteDocument(doc, ctx)
	require.NoError(t, err)
	basic := doc["basic"].(map[string]any)
	assert.Equal(t, "${filename}", basic["dataName"], "original document must not be mutated")
}

func TestSubstituteDocumentWalksNestedLists(t *testing.T) {
	doc := map[string]any{
		"custom": map[string]any{
			"items": []any{"${filename}", map[string]any{"nested": "${filename}"}},
		},
	}
	ctx := Context{Filename: "x.csv"}
	out, err := SubstituteDocument(doc, ctx)
	require.NoError(t, err)
	custom := out["custom"].(map[string]any)
	items := custom["items"].([]any)
	assert.Equal(t, "x.csv", items[0])
	nested := items[1].(map[string]any)
	assert.Equal(t, "x.csv", nested["nested"])
}

func TestSubstituteDocumentPropagatesError(t *testing.T) {
	doc := map[string]any{"basic": map[string]any{"dataName": "${invoice:basic:missing}"}}
	_, err := SubstituteDocument(doc, Context{InvoiceOrg: map[string]any{"basic": map[string]any{}}})
	require.Error(t, err)
}
