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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
	"github.com/kraklabs/rdesys/internal/ui"
	"github.com/kraklabs/rdesys/pkg/dispatch"
)

// runStatus executes the 'status' command, reporting the outcome of the
// last run recorded at <dir>/logs/job_status.json.
//
// Usage: rdesys status <dir> [--json]
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output in JSON format")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rdesys status <dir> [options]

Description:
  Reports the outcome of the last "rdesys run" under <dir>, reading
  back the per-tile WorkflowStatus vector written to
  <dir>/logs/job_status.json.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  rdesys status .
  rdesys status . --json

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
	}

	statusPath := filepath.Join(root, "logs", "job_status.json")
	data, err := os.ReadFile(statusPath)
	if os.IsNotExist(err) {
		if globals.JSON {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"error": "no run recorded"})
		} else {
			ui.Warningf("No run recorded under %s.", root)
			ui.Info("Run 'rdesys run %s' first.", root)
		}
		os.Exit(0)
	}
	if err != nil {
		rdeerrors.FatalError(rdeerrors.NewIOError("Cannot read job_status.json", err.Error(), "", err), globals.JSON)
	}

	var result dispatch.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		rdeerrors.FatalError(rdeerrors.NewInternalError("Invalid job_status.json", err.Error(),
			"rerun 'rdesys run' to regenerate it", err), globals.JSON)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	printStatus(&result)
}

func printStatus(result *dispatch.RunResult) {
	ui.Header("rdesys run status")
	fmt.Printf("%s %s\n", ui.Label("Mode:"), result.Mode)
	fmt.Printf("%s %s\n", ui.Label("Overall outcome:"), result.OverallOutcome)
	fmt.Println()

	ui.SubHeader("Tiles:")
	counts := map[dispatch.Outcome]int{}
	for _, t := range result.Tiles {
		counts[t.Outcome]++
	}
	fmt.Printf("  Success: %s\n", ui.CountText(counts[dispatch.OutcomeSuccess]))
	fmt.Printf("  Skipped: %s\n", ui.CountText(counts[dispatch.OutcomeSkipped]))
	fmt.Printf("  Failed:  %s\n", ui.CountText(counts[dispatch.OutcomeFailed]))

	for _, t := range result.Tiles {
		if t.Outcome != dispatch.OutcomeFailed {
			continue
		}
		fmt.Println()
		ui.Warningf("tile %d failed:", t.TileIndex)
		for _, e := range t.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}
