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

// Package pipeline runs the ordered chain of per-tile processors: invoice
// initialization, magic-variable substitution, schema validation, raw-file
// copying, description enrichment, thumbnail generation and the final
// structured-output save.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/pkg/classify"
	"github.com/kraklabs/rdesys/pkg/invoice"
	"github.com/kraklabs/rdesys/pkg/rdeconfig"
	"github.com/kraklabs/rdesys/pkg/rdeschema"
)

// ErrSkipRemaining is returned by a Processor to end the tile's chain early
// without marking the tile as failed — e.g. a validator that determines no
// further processor can usefully run against an unrecoverably malformed
// invoice.
var ErrSkipRemaining = errors.New("pipeline: skip remaining processors")

// DatasetFunction is a user-supplied hook invoked once per tile after the
// built-in chain completes, mirroring the "custom dataset function" escape
// hatch described in the design notes.
type DatasetFunction func(ctx context.Context, pc *ProcessingContext) error

// ProcessingContext is the mutable state threaded through one tile's
// processor chain. A fresh ProcessingContext is built per tile; InvoiceOrg
// is the single shared, read-only base every tile clones from.
type ProcessingContext struct {
	Tile   classify.TileUnit
	Mode   classify.Mode
	Config rdeconfig.Config

	Schema      *rdeschema.InvoiceSchema
	MetadataDef *rdeschema.MetadataDef

	// InvoiceOrg is the run's shared base invoice. Processors must treat it
	// as read-only; Invoice is always built via Clone().
	InvoiceOrg invoice.Document

	// Invoice is the tile's working document, populated by an Initializer
	// and mutated by the rest of the chain.
	Invoice invoice.Document

	// MetadataOverrides holds meta/<constantName> columns routed out of
	// OverwriteInvoice. StructuredInvoiceSaver merges them into the constant
	// section of the metadata.json it writes; Metadata itself is not modified.
	MetadataOverrides map[string]rdeschema.MetadataValue
	Metadata          *rdeschema.MetadataDocument

	DatasetFunc DatasetFunction

	Logger *slog.Logger

	// ValidationReports collects every non-empty report a Validator
	// produced, in chain order.
	ValidationReports []*rdeschema.ValidationReport

	// Errors accumulates every non-fatal processor error encountered so the
	// dispatcher can attach them to the tile's WorkflowStatus.
	Errors []error

	// Skipped is set when a processor returned ErrSkipRemaining, ending the
	// chain before every processor ran. This does not change the tile's
	// outcome — ErrSkipRemaining terminates a tile as a success, just an
	// early one — it is recorded only so callers can log or count it.
	Skipped bool
}

// Processor is one stage of a tile's pipeline.
type Processor interface {
	Name() string
	Process(ctx context.Context, pc *ProcessingContext) error
}

// RunTile executes processors against pc in order. A processor returning
// ErrSkipRemaining ends the chain without error. A processor returning a
// *rdeerrors.UserError with Fatal set aborts the tile immediately; any other
// error is recorded in pc.Errors and the chain continues, matching the
// fail-slow-within-a-tile policy non-fatal errors are designed around.
func RunTile(ctx context.Context, processors []Processor, pc *ProcessingContext) error {
	logger := pc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, p := range processors {
		logger.Debug("pipeline.processor.start", "tile_index", pc.Tile.Index, "processor", p.Name())
		err := p.Process(ctx, pc)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrSkipRemaining) {
			logger.Debug("pipeline.processor.skip_remaining", "tile_index", pc.Tile.Index, "processor", p.Name())
			pc.Skipped = true
			break
		}
		pc.Errors = append(pc.Errors, err)
		if ue, ok := rdeerrors.AsUserError(err); ok && ue.Fatal {
			logger.Error("pipeline.processor.fatal", "tile_index", pc.Tile.Index, "processor", p.Name(), "err", err)
			return err
		}
		logger.Warn("pipeline.processor.error", "tile_index", pc.Tile.Index, "processor", p.Name(), "err", err)
	}
	return nil
}
