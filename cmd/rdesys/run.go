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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/internal/ui"
	"github.com/kraklabs/rdesys/pkg/classify"
	"github.com/kraklabs/rdesys/pkg/dispatch"
	"github.com/kraklabs/rdesys/pkg/invoice"
	"github.com/kraklabs/rdesys/pkg/rdeconfig"
	"github.com/kraklabs/rdesys/pkg/rdepath"
	"github.com/kraklabs/rdesys/pkg/rdeschema"
)

var (
	tilesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rdesys_tiles_processed_total",
		Help: "Tiles that completed their processor chain, by outcome.",
	}, []string{"mode", "outcome"})
	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "rdesys_run_duration_seconds",
		Help: "Wall-clock duration of a full rdesys run.",
	})
)

func init() {
	prometheus.MustRegister(tilesProcessed, runDuration)
}

// runRun executes the 'run' command: classify the bundle rooted at dir into
// tiles, then drive every tile through its mode's processor chain.
//
// Usage: rdesys run <dir> [options]
func runRun(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	metricsAddr := fs.String("metrics-addr", "", "HTTP address to expose Prometheus metrics on (default: disabled)")
	scratchDir := fs.String("scratch-dir", "", "Directory archives are expanded into (default: <dir>/temp)")
	jsonOutput := fs.Bool("json", globals.JSON, "Output in JSON format")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rdesys run <dir> [options]

Description:
  Classifies the input bundle rooted at <dir> (inputdata/, invoice/,
  tasksupport/) into one of Invoice, ExcelInvoice, MultiDataTile,
  RDEFormat or SmartTable mode, expands it into tiles, and drives every
  tile through invoice initialization, magic-variable substitution,
  schema validation, raw-file copying, thumbnail generation and
  structured-output save.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  rdesys run .
  rdesys run ./dataset --json
  rdesys run ./dataset --metrics-addr :9090

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	root := fs.Arg(0)
	if *jsonOutput {
		globals.JSON = true
		globals.Quiet = true
	}

	logLevel := slog.LevelInfo
	if globals.Verbose >= 2 {
		logLevel = slog.LevelDebug
	} else if globals.Quiet {
		logLevel = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})).
		With("run_id", globals.RunID)
	slog.SetDefault(logger)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	start := time.Now()
	result, err := runOnce(ctx, root, *scratchDir, logger, globals)
	runDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		rdeerrors.FatalError(err, globals.JSON)
	}

	for _, tile := range result.Tiles {
		tilesProcessed.WithLabelValues(string(result.Mode), string(tile.Outcome)).Inc()
	}

	if err := writeJobStatus(root, result); err != nil {
		logger.Warn("run.job_status.write_error", "err", err)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printRunResult(result)
	}

	if result.OverallOutcome != dispatch.OutcomeSuccess {
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, root, scratchDir string, logger *slog.Logger, globals GlobalFlags) (*dispatch.RunResult, error) {
	ip, err := rdepath.NewInputPaths(root)
	if err != nil {
		return nil, rdeerrors.NewConfigError("Invalid run directory", err.Error(),
			"ensure <dir> contains inputdata/ and tasksupport/", err)
	}

	cfg, err := rdeconfig.Load(ip.Tasksupport())
	if err != nil {
		return nil, err
	}

	var schema *rdeschema.InvoiceSchema
	if _, statErr := os.Stat(ip.SchemaPath()); statErr == nil {
		schemaResult := rdeschema.LoadInvoiceSchema(ip.SchemaPath())
		if schemaResult.IsErr() {
			return nil, schemaResult.Error()
		}
		schema = schemaResult.Value()
	}

	var metadataDef *rdeschema.MetadataDef
	if _, statErr := os.Stat(ip.MetadataDefPath()); statErr == nil {
		metaResult := rdeschema.LoadMetadataDef(ip.MetadataDefPath())
		if metaResult.IsErr() {
			return nil, metaResult.Error()
		}
		metadataDef = metaResult.Value()
	}

	var invoiceOrg invoice.Document
	if _, statErr := os.Stat(ip.InvoiceOrgPath()); statErr == nil {
		invoiceOrg, err = invoice.Load(ip.InvoiceOrgPath())
		if err != nil {
			return nil, err
		}
	}

	if scratchDir == "" {
		scratchDir = filepath.Join(root, "temp")
	}
	if err := os.MkdirAll(scratchDir, 0o750); err != nil {
		return nil, rdeerrors.NewIOError("Cannot create scratch directory", err.Error(), "", err)
	}

	mode, tiles, err := classify.Classify(ip.InputData(), cfg, scratchDir, root)
	if err != nil {
		return nil, err
	}
	logger.Info("run.classify", "mode", mode, "tiles", len(tiles))

	progressCfg := ui.NewProgressConfig(ui.ProgressOptions{Quiet: globals.Quiet, JSON: globals.JSON})
	bar := ui.NewProgressBar(progressCfg, int64(len(tiles)), ui.TileDescription(0, string(mode)))

	result, err := dispatch.Run(ctx, dispatch.RunInputs{
		Mode:        mode,
		Tiles:       tiles,
		Config:      cfg,
		Schema:      schema,
		MetadataDef: metadataDef,
		InvoiceOrg:  invoiceOrg,
		Logger:      logger,
	})
	if bar != nil {
		_ = bar.Finish()
	}
	return result, err
}

// writeJobStatus persists result as logs/job_status.json under root so a
// later "rdesys status" invocation can report on this run without rerunning
// the pipeline.
func writeJobStatus(root string, result *dispatch.RunResult) error {
	logsDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		return rdeerrors.NewIOError("Cannot create logs directory", err.Error(), "", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return rdeerrors.NewInternalError("Cannot encode job_status.json", err.Error(), "", err)
	}
	if err := os.WriteFile(filepath.Join(logsDir, "job_status.json"), data, 0o640); err != nil {
		return rdeerrors.NewIOError("Cannot write job_status.json", err.Error(), "", err)
	}
	return nil
}

func printRunResult(result *dispatch.RunResult) {
	ui.Header("rdesys run complete")
	fmt.Printf("%s %s\n", ui.Label("Mode:"), result.Mode)
	fmt.Printf("%s %s\n", ui.Label("Tiles:"), ui.CountText(len(result.Tiles)))
	fmt.Printf("%s %s\n", ui.Label("Outcome:"), result.OverallOutcome)

	failed := 0
	for _, t := range result.Tiles {
		if t.Outcome == dispatch.OutcomeFailed {
			failed++
		}
	}
	if failed > 0 {
		fmt.Println()
		ui.Warningf("%d of %d tiles failed:", failed, len(result.Tiles))
		for _, t := range result.Tiles {
			if t.Outcome != dispatch.OutcomeFailed {
				continue
			}
			fmt.Printf("  tile %d: %s\n", t.TileIndex, ui.DimText(fmt.Sprint(t.Errors)))
		}
	}
}
