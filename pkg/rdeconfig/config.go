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

// Package rdeconfig loads and merges run configuration from either
// tasksupport/rdeconfig.yaml or pyproject.toml's [tool.rdetoolkit] table.
package rdeconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/rdesys/internal/rdeerrors"
)

// ExtendedMode is the closed enumeration system.extended_mode accepts.
type ExtendedMode string

const (
	ExtendedModeNone          ExtendedMode = ""
	ExtendedModeMultiDataTile ExtendedMode = "MultiDataTile"
	ExtendedModeRDEFormat     ExtendedMode = "rdeformat"
)

// SystemConfig holds the system.* recognized options.
type SystemConfig struct {
	ExtendedMode              ExtendedMode `yaml:"extended_mode" toml:"extended_mode"`
	SaveRaw                   bool         `yaml:"save_raw" toml:"save_raw"`
	SaveNonsharedRaw          bool         `yaml:"save_nonshared_raw" toml:"save_nonshared_raw"`
	SaveThumbnailImage        bool         `yaml:"save_thumbnail_image" toml:"save_thumbnail_image"`
	MagicVariable             bool         `yaml:"magic_variable" toml:"magic_variable"`
	SaveInvoiceToStructured   bool         `yaml:"save_invoice_to_structured" toml:"save_invoice_to_structured"`
	FeatureDescription        bool         `yaml:"feature_description" toml:"feature_description"`
}

// MultiDataTileConfig holds the multidata_tile.* recognized options.
type MultiDataTileConfig struct {
	DividedDirDigit       int `yaml:"divided_dir_digit" toml:"divided_dir_digit"`
	DividedDirStartNumber int `yaml:"divided_dir_start_number" toml:"divided_dir_start_number"`
}

// SmartTableConfig holds the smarttable.* recognized options.
type SmartTableConfig struct {
	SaveTableFile bool `yaml:"save_table_file" toml:"save_table_file"`
}

// TracebackFormat is the closed enumeration traceback.format accepts.
type TracebackFormat string

const (
	TracebackCompact TracebackFormat = "compact"
	TracebackFull    TracebackFormat = "full"
	TracebackDuplex  TracebackFormat = "duplex"
)

// TracebackConfig holds the traceback.* recognized options.
type TracebackConfig struct {
	Format TracebackFormat `yaml:"format" toml:"format"`
}

// Config is the parsed, merged, defaulted run configuration.
type Config struct {
	System        SystemConfig         `yaml:"system" toml:"system"`
	MultiDataTile MultiDataTileConfig  `yaml:"multidata_tile" toml:"multidata_tile"`
	SmartTable    SmartTableConfig     `yaml:"smarttable" toml:"smarttable"`
	Traceback     TracebackConfig      `yaml:"traceback" toml:"traceback"`
	IgnoreErrors  bool                 `yaml:"ignore_errors" toml:"ignore_errors"`
}

// pyprojectFile mirrors the [tool.rdetoolkit] table inside pyproject.toml;
// other tables in the file are ignored.
type pyprojectFile struct {
	Tool struct {
		Rdetoolkit Config `toml:"rdetoolkit"`
	} `toml:"tool"`
}

// Default returns the configuration defaults applied before any file
// override.
func Default() Config {
	return Config{
		System: SystemConfig{
			ExtendedMode:       ExtendedModeNone,
			SaveRaw:            true,
			SaveNonsharedRaw:   false,
			SaveThumbnailImage: true,
			MagicVariable:      false,
		},
		MultiDataTile: MultiDataTileConfig{
			DividedDirDigit:       4,
			DividedDirStartNumber: 0,
		},
		Traceback: TracebackConfig{Format: TracebackCompact},
		IgnoreErrors: true,
	}
}

// Load finds and parses the run configuration under tasksupportDir: it
// tries rdeconfig.yaml first, then pyproject.toml's [tool.rdetoolkit]
// table, and falls back to Default() if neither file exists.
func Load(tasksupportDir string) (Config, error) {
	cfg := Default()

	yamlPath := filepath.Join(tasksupportDir, "rdeconfig.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, rdeerrors.NewConfigError(
				"Invalid rdeconfig.yaml",
				err.Error(),
				"fix the YAML syntax in tasksupport/rdeconfig.yaml",
				err,
			)
		}
		return cfg, validate(cfg)
	}

	tomlPath := filepath.Join(tasksupportDir, "pyproject.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		var pp pyprojectFile
		pp.Tool.Rdetoolkit = cfg
		if err := toml.Unmarshal(data, &pp); err != nil {
			return Config{}, rdeerrors.NewConfigError(
				"Invalid pyproject.toml",
				err.Error(),
				"fix the TOML syntax in the [tool.rdetoolkit] table",
				err,
			)
		}
		return pp.Tool.Rdetoolkit, validate(pp.Tool.Rdetoolkit)
	}

	return cfg, nil
}

// validate rejects any extended_mode value other than the documented
// literals, matching case-sensitively per the design notes' resolved open
// question.
func validate(cfg Config) error {
	switch cfg.System.ExtendedMode {
	case ExtendedModeNone, ExtendedModeMultiDataTile, ExtendedModeRDEFormat:
		return nil
	default:
		return rdeerrors.NewConfigError(
			"Invalid system.extended_mode",
			fmt.Sprintf("value %q is not one of null, \"MultiDataTile\", \"rdeformat\"", cfg.System.ExtendedMode),
			"extended_mode is matched case-sensitively; check capitalization",
			nil,
		)
	}
}
