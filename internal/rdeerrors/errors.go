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

// Package rdeerrors defines the error taxonomy shared across the pipeline:
// user-facing errors carry a title, a detail, a suggestion, and an optional
// documentation link so that both the CLI and the per-run log can render a
// one-line summary plus actionable next steps.
package rdeerrors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies an error for exit-code selection and traceback formatting.
type Kind string

const (
	KindConfig       Kind = "config"
	KindValidation   Kind = "validation"
	KindIO           Kind = "io"
	KindTemplate     Kind = "template"
	KindPipeline     Kind = "pipeline"
	KindInternal     Kind = "internal"
	KindPermission   Kind = "permission"
	KindUserCallback Kind = "user_callback"
)

// Fatal, when true, means the error must abort the entire run rather than
// being isolated to the tile that raised it (see the pipeline's failure
// isolation policy).
type UserError struct {
	Kind       Kind
	Title      string
	Detail     string
	Suggestion string
	DocsURL    string
	Fatal      bool
	Cause      error
}

func (e *UserError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

func (e *UserError) Unwrap() error { return e.Cause }

// Summary renders the one-line human summary used on stdout/stderr, plus the
// documentation link when one is carried.
func (e *UserError) Summary() string {
	s := e.Error()
	if e.Suggestion != "" {
		s += " (" + e.Suggestion + ")"
	}
	if e.DocsURL != "" {
		s += " [" + e.DocsURL + "]"
	}
	return s
}

func newError(kind Kind, fatal bool, title, detail, suggestion string, cause error) *UserError {
	return &UserError{Kind: kind, Title: title, Detail: detail, Suggestion: suggestion, Fatal: fatal, Cause: cause}
}

// NewConfigError builds a ConfigError: config file not found, parse error, or
// schema violation. Config errors are always fatal — the run cannot proceed
// without a usable configuration.
func NewConfigError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindConfig, true, title, detail, suggestion, cause)
}

// NewValidationError builds a ValidationError for an invoice/metadata failure.
// Validation errors are never fatal on their own; they mark a single tile
// failed and let the dispatcher continue.
func NewValidationError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindValidation, false, title, detail, suggestion, cause)
}

// NewIOError builds an IOError for filesystem, archive-traversal, or
// permission failures encountered while materializing a tile.
func NewIOError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindIO, false, title, detail, suggestion, cause)
}

// NewPermissionError is an IOError specialization for permission-denied
// conditions, reported with its own suggestion text.
func NewPermissionError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindPermission, false, title, detail, suggestion, cause)
}

// NewTemplateError builds a TemplateError for a magic-variable resolution
// failure (missing field, rejected metadata:variable reference).
func NewTemplateError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindTemplate, false, title, detail, suggestion, cause)
}

// NewInternalError builds an error for conditions that indicate a bug in the
// pipeline itself rather than bad input.
func NewInternalError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindInternal, true, title, detail, suggestion, cause)
}

// NewUserCallbackError builds a PipelineError for a user-supplied dataset
// function that returned an error or panicked. It is never fatal on its own:
// the error marks only the tile that invoked the callback, per the
// failure-isolation policy.
func NewUserCallbackError(title, detail, suggestion string, cause error) *UserError {
	return newError(KindUserCallback, false, title, detail, suggestion, cause)
}

// AsUserError unwraps err looking for a *UserError, returning ok=false if
// none is found anywhere in the chain.
func AsUserError(err error) (*UserError, bool) {
	for err != nil {
		if ue, ok := err.(*UserError); ok {
			return ue, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// ExitCode maps an error to the process exit code described in the external
// interface contract: 0 success, 1 validation failure, 2 usage/config error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ue, ok := AsUserError(err); ok {
		switch ue.Kind {
		case KindConfig, KindPermission:
			return 2
		default:
			return 1
		}
	}
	return 1
}

// fatalErrorJSON is the machine-readable shape FatalError prints in --json
// mode; it mirrors the fields a UserError carries so tooling can branch on
// kind without parsing the summary string.
type fatalErrorJSON struct {
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// FatalError prints err and terminates the process with ExitCode(err). In
// JSON mode it writes a single JSON object to stderr instead of the colored
// summary line, so a caller piping --json output never has to distinguish a
// fatal error from malformed output on stdout.
func FatalError(err error, jsonMode bool) {
	if err == nil {
		os.Exit(0)
	}
	ue, ok := AsUserError(err)
	if !ok {
		ue = &UserError{Kind: KindInternal, Title: err.Error(), Fatal: true}
	}
	if jsonMode {
		data, marshalErr := json.Marshal(fatalErrorJSON{
			Kind: ue.Kind, Title: ue.Title, Detail: ue.Detail, Suggestion: ue.Suggestion,
		})
		if marshalErr == nil {
			fmt.Fprintln(os.Stderr, string(data))
		} else {
			fmt.Fprintln(os.Stderr, ue.Summary())
		}
	} else {
		fmt.Fprintln(os.Stderr, "Error:", ue.Summary())
	}
	os.Exit(ExitCode(ue))
}
