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
	"encoding/json"
	"os"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/rdeschema"
)

type metadataValueJSON struct {
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

type metadataDocumentJSON struct {
	Constant map[string]metadataValueJSON `json:"constant"`
	Variable []map[string]metadataValueJSON `json:"variable,omitempty"`
}

func writeMetadataJSON(path string, doc *rdeschema.MetadataDocument) error {
	out := metadataDocumentJSON{Constant: make(map[string]metadataValueJSON, len(doc.Constant))}
	for k, v := range doc.Constant {
		out.Constant[k] = metadataValueJSON{Value: v.Value, Unit: v.Unit}
	}
	for _, group := range doc.Variable {
		row := make(map[string]metadataValueJSON, len(group))
		for k, v := range group {
			row[k] = metadataValueJSON{Value: v.Value, Unit: v.Unit}
		}
		out.Variable = append(out.Variable, row)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return rdeerrors.NewInternalError("Cannot encode metadata.json", err.Error(), "", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return rdeerrors.NewIOError("Cannot write metadata.json", err.Error(), "", err)
	}
	return nil
}
