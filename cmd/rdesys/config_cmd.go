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
	"github.com/kraklabs/rdesys/pkg/rdeconfig"
)

// runConfigCmd executes the 'config' command, showing the resolved
// tasksupport/rdeconfig.yaml (or pyproject.toml [tool.rdetoolkit]) merged
// with defaults.
//
// Usage: rdesys config <dir> [--json]
func runConfigCmd(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output in JSON format")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rdesys config <dir> [options]

Description:
  Loads <dir>/tasksupport/rdeconfig.yaml (or pyproject.toml's
  [tool.rdetoolkit] table) merged with defaults, and prints the
  resolved configuration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  rdesys config .
  rdesys config . --json

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

	cfg, err := rdeconfig.Load(filepath.Join(root, "tasksupport"))
	if err != nil {
		rdeerrors.FatalError(err, globals.JSON)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(cfg)
		return
	}

	ui.Header("rdesys configuration")
	fmt.Printf("%s %s\n", ui.Label("extended_mode:"), ui.DimText(string(cfg.System.ExtendedMode)))
	fmt.Printf("%s %v\n", ui.Label("save_raw:"), cfg.System.SaveRaw)
	fmt.Printf("%s %v\n", ui.Label("save_nonshared_raw:"), cfg.System.SaveNonsharedRaw)
	fmt.Printf("%s %v\n", ui.Label("save_thumbnail_image:"), cfg.System.SaveThumbnailImage)
	fmt.Printf("%s %v\n", ui.Label("magic_variable:"), cfg.System.MagicVariable)
	fmt.Printf("%s %v\n", ui.Label("save_invoice_to_structured:"), cfg.System.SaveInvoiceToStructured)
	fmt.Printf("%s %v\n", ui.Label("feature_description:"), cfg.System.FeatureDescription)
	fmt.Println()
	ui.SubHeader("multidata_tile:")
	fmt.Printf("  divided_dir_digit: %d\n", cfg.MultiDataTile.DividedDirDigit)
	fmt.Printf("  divided_dir_start_number: %d\n", cfg.MultiDataTile.DividedDirStartNumber)
	fmt.Println()
	fmt.Printf("%s %s\n", ui.Label("traceback.format:"), cfg.Traceback.Format)
	fmt.Printf("%s %v\n", ui.Label("ignore_errors:"), cfg.IgnoreErrors)
}
