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

// Package dispatch selects the per-mode processor chain and drives every
// tile through it in index order, aggregating a WorkflowStatus per tile.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kraklabs/rdesys/pkg/classify"
	"github.com/kraklabs/rdesys/pkg/invoice"
	"github.com/kraklabs/rdesys/pkg/pipeline"
	"github.com/kraklabs/rdesys/pkg/rdeconfig"
	"github.com/kraklabs/rdesys/pkg/rdeschema"
)

// Outcome is a tile's terminal state.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// WorkflowStatus is the per-tile result surfaced to the CLI and, when
// requested, serialized as the run's job status document.
type WorkflowStatus struct {
	TileIndex int           `json:"tile_index"`
	Mode      classify.Mode `json:"mode"`
	Outcome   Outcome       `json:"outcome"`
	Errors    []string      `json:"errors,omitempty"`
}

// RunResult aggregates every tile's WorkflowStatus plus the run's overall
// outcome: failed if any tile failed, otherwise success (skipped tiles do not
// fail the run).
type RunResult struct {
	Mode           classify.Mode     `json:"mode"`
	Tiles          []WorkflowStatus  `json:"tiles"`
	OverallOutcome Outcome           `json:"overall_outcome"`
}

// RunInputs bundles the shared, run-scoped values every tile's
// ProcessingContext is built from.
type RunInputs struct {
	Mode        classify.Mode
	Tiles       []classify.TileUnit
	Config      rdeconfig.Config
	Schema      *rdeschema.InvoiceSchema
	MetadataDef *rdeschema.MetadataDef
	InvoiceOrg  invoice.Document
	Metadata    *rdeschema.MetadataDocument
	DatasetFunc pipeline.DatasetFunction
	Logger      *slog.Logger
}

// chainForMode selects the ordered processor chain for mode, matching the
// fixed per-mode Initializer variant the classification stage already
// resolved: ExcelInvoice and SmartTable both carry a SmartTableRow and so
// share InitializeFromRow; RDEFormat tiles carry no base invoice and so
// materialize straight from schema; Invoice and MultiDataTile clone the
// shared invoice_org.
func chainForMode(mode classify.Mode) []pipeline.Processor {
	var initializer pipeline.Processor
	switch mode {
	case classify.ModeExcelInvoice, classify.ModeSmartTable:
		initializer = pipeline.InitializeFromRow{}
	case classify.ModeRDEFormat:
		initializer = pipeline.InitializeNoOp{FillDefaults: true}
	default:
		initializer = pipeline.InitializeFromInvoiceOrg{}
	}
	return []pipeline.Processor{
		initializer,
		pipeline.MagicVariableSubstitutor{},
		pipeline.Validator{},
		pipeline.RawCopier{},
		pipeline.DescriptionUpdater{},
		pipeline.ThumbnailGenerator{},
		pipeline.StructuredInvoiceSaver{},
		pipeline.UserDatasetFunction{},
	}
}

// Run drives every tile in in.Tiles through its mode's processor chain, in
// index order. A fatal processor error (config/internal, per the error
// taxonomy) aborts the whole run and is returned directly; any other
// per-tile error marks that tile OutcomeFailed and processing continues
// with the next tile. Cancellation is checked only between tiles, never inside
// one: once ctx is canceled, every tile not yet started is recorded
// OutcomeSkipped and Run returns with no error.
func Run(ctx context.Context, in RunInputs) (*RunResult, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chain := chainForMode(in.Mode)

	result := &RunResult{Mode: in.Mode, OverallOutcome: OutcomeSuccess}
	for _, tile := range in.Tiles {
		if ctx.Err() != nil {
			logger.Warn("dispatch.tile.cancelled", "tile_index", tile.Index, "mode", in.Mode)
			result.Tiles = append(result.Tiles, WorkflowStatus{TileIndex: tile.Index, Mode: in.Mode, Outcome: OutcomeSkipped})
			continue
		}

		pc := &pipeline.ProcessingContext{
			Tile:        tile,
			Mode:        in.Mode,
			Config:      in.Config,
			Schema:      in.Schema,
			MetadataDef: in.MetadataDef,
			InvoiceOrg:  in.InvoiceOrg,
			Metadata:    in.Metadata,
			DatasetFunc: in.DatasetFunc,
			Logger:      logger,
		}
		logger.Info("dispatch.tile.start", "tile_index", tile.Index, "mode", in.Mode, "input_files", len(tile.InputFiles))

		if err := pipeline.RunTile(ctx, chain, pc); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Warn("dispatch.tile.cancelled", "tile_index", tile.Index, "mode", in.Mode)
				result.Tiles = append(result.Tiles, WorkflowStatus{TileIndex: tile.Index, Mode: in.Mode, Outcome: OutcomeSkipped})
				continue
			}
			logger.Error("dispatch.tile.abort", "tile_index", tile.Index, "err", err)
			return result, err
		}

		status := WorkflowStatus{TileIndex: tile.Index, Mode: in.Mode, Outcome: OutcomeSuccess}
		for _, e := range pc.Errors {
			status.Errors = append(status.Errors, e.Error())
		}
		if len(status.Errors) > 0 {
			status.Outcome = OutcomeFailed
			result.OverallOutcome = OutcomeFailed
		}
		logger.Info("dispatch.tile.done", "tile_index", tile.Index, "outcome", status.Outcome, "skipped_early", pc.Skipped)
		result.Tiles = append(result.Tiles, status)
	}
	return result, nil
}
