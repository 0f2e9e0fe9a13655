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

// Package ui holds the CLI's color and progress-bar helpers shared across
// commands.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// InitColors decides whether fatih/color should emit escape sequences: it
// is disabled when noColor is set, when NO_COLOR is present in the
// environment, or when stdout is not a terminal.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Success prints a green, bold status line to stdout.
func Success(format string, args ...any) { successColor.Printf(format+"\n", args...) }

// Warn prints a yellow, bold status line to stderr.
func Warn(format string, args ...any) { warnColor.Fprintf(os.Stderr, format+"\n", args...) }

// Error prints a red, bold status line to stderr.
func Error(format string, args ...any) { errorColor.Fprintf(os.Stderr, format+"\n", args...) }

// Info prints a cyan status line to stdout.
func Info(format string, args ...any) { infoColor.Printf(format+"\n", args...) }

// ProgressOptions controls whether a run renders a live progress bar.
type ProgressOptions struct {
	Quiet bool
	JSON  bool
}

// ProgressConfig is the resolved decision of whether progress bars should
// render, computed once per invocation.
type ProgressConfig struct {
	enabled bool
}

// NewProgressConfig resolves opts into a ProgressConfig: progress bars are
// suppressed in quiet or JSON mode, since either would corrupt the
// machine-readable or silent output contract.
func NewProgressConfig(opts ProgressOptions) ProgressConfig {
	return ProgressConfig{enabled: !opts.Quiet && !opts.JSON}
}

// NewProgressBar returns a progress bar for total items described by
// description, or nil when cfg disables progress rendering — callers treat
// a nil bar as a no-op.
func NewProgressBar(cfg ProgressConfig, total int64, description string) *progressbar.ProgressBar {
	if !cfg.enabled {
		return nil
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// TileDescription renders the one-line summary printed as each tile starts.
func TileDescription(index int, mode string) string {
	return fmt.Sprintf("Processing tile %d (%s)", index, mode)
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	labelColor  = color.New(color.FgWhite, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	countColor  = color.New(color.FgGreen)
)

// Header prints a bold cyan section title.
func Header(format string, args ...any) { headerColor.Printf(format+"\n", args...) }

// SubHeader prints an indented section title, one level below Header.
func SubHeader(format string, args ...any) {
	headerColor.Printf("  "+format+"\n", args...)
}

// Label renders a bold field name, e.g. ui.Label("Mode:") before printing the
// value with fmt.Printf alongside it.
func Label(name string) string { return labelColor.Sprint(name) }

// DimText renders s in a greyed-out color, used for secondary detail next to
// a Label.
func DimText(s string) string { return dimColor.Sprint(s) }

// CountText renders n as a highlighted count, e.g. for tile or error tallies.
func CountText(n int) string { return countColor.Sprint(n) }

// Warning prints a yellow warning line to stdout (unlike Warn, which targets
// stderr for errors surfaced mid-run).
func Warning(msg string) { warnColor.Println(msg) }

// Warningf prints a formatted yellow warning line to stdout.
func Warningf(format string, args ...any) { warnColor.Printf(format+"\n", args...) }
