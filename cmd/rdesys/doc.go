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

// Package main implements the rdesys CLI: a structured research-data
// ingestion pipeline that classifies an input bundle, expands it into
// tiles, and drives each tile through invoice initialization,
// magic-variable substitution, schema validation and structured-output
// generation.
//
// # Quick Start
//
// Given a directory laid out as inputdata/, invoice/ and tasksupport/:
//
//	rdesys run .
//
// Check the outcome of the last run:
//
//	rdesys status .
//
// Show the resolved tasksupport configuration:
//
//	rdesys config .
//
// # Commands
//
//	run       Classify and process an input bundle
//	status    Show the outcome of the last run
//	config    Show the resolved run configuration
//
// Global flags:
//
//	--json            Output in JSON format
//	--no-color        Disable color output (respects NO_COLOR env var)
//	-v, --verbose     Increase verbosity (-v for info, -vv for debug)
//	-q, --quiet       Suppress non-essential output
//	--run-id          Correlation id recorded in logs
//	-V, --version     Show version and exit
//
// # Configuration
//
// Run behavior is controlled by tasksupport/rdeconfig.yaml (or
// pyproject.toml's [tool.rdetoolkit] table), merged with defaults — see
// the rdeconfig package.
//
// # Output Layout
//
// The first tile writes to the run root's raw/, structured/, meta/,
// thumbnail/, invoice/ and logs/ directories; tile i>=1 writes under
// divided/<n>/, where n is i-1 plus divided_dir_start_number, zero-padded to
// divided_dir_digit digits (4 by default). rdesys run additionally writes logs/job_status.json,
// the WorkflowStatus vector rdesys status reads back.
package main
