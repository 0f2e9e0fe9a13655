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

package rdeerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStringIncludesDetailWhenPresent(t *testing.T) {
	err := NewValidationError("bad invoice", "missing field x", "", nil)
	assert.Equal(t, "bad invoice: missing field x", err.Error())
}

func TestErrorStringOmitsDetailWhenEmpty(t *testing.T) {
	err := NewValidationError("bad invoice", "", "", nil)
	assert.Equal(t, "bad invoice", err.Error())
}

func TestSummaryAppendsSuggestionAndDocsURL(t *testing.T) {
	err := NewConfigError("bad config", "missing key", "add system.extended_mode", nil)
	err.DocsURL = "https://example.com/docs"
	assert.Equal(t, "bad config: missing key (add system.extended_mode) [https://example.com/docs]", err.Summary())
}

func TestConfigAndInternalErrorsAreFatal(t *testing.T) {
	assert.True(t, NewConfigError("x", "", "", nil).Fatal)
	assert.True(t, NewInternalError("x", "", "", nil).Fatal)
}

func TestValidationIOPermissionTemplateErrorsAreNonFatal(t *testing.T) {
	assert.False(t, NewValidationError("x", "", "", nil).Fatal)
	assert.False(t, NewIOError("x", "", "", nil).Fatal)
	assert.False(t, NewPermissionError("x", "", "", nil).Fatal)
	assert.False(t, NewTemplateError("x", "", "", nil).Fatal)
}

func TestAsUserErrorFindsDirectMatch(t *testing.T) {
	want := NewIOError("cannot read", "", "", nil)
	ue, ok := AsUserError(want)
	require.True(t, ok)
	assert.Same(t, want, ue)
}

func TestAsUserErrorUnwrapsWrappedError(t *testing.T) {
	want := NewIOError("cannot read", "", "", nil)
	wrapped := fmt.Errorf("context: %w", want)
	ue, ok := AsUserError(wrapped)
	require.True(t, ok)
	assert.Same(t, want, ue)
}

func TestAsUserErrorFalseForPlainError(t *testing.T) {
	_, ok := AsUserError(errors.New("plain"))
	assert.False(t, ok)
}

func TestAsUserErrorFalseForNil(t *testing.T) {
	_, ok := AsUserError(nil)
	assert.False(t, ok)
}

func TestExitCodeNilIsZero(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
}

func TestExitCodeConfigAndPermissionAreTwo(t *testing.T) {
	assert.Equal(t, 2, ExitCode(NewConfigError("x", "", "", nil)))
	assert.Equal(t, 2, ExitCode(NewPermissionError("x", "", "", nil)))
}

func TestExitCodeOtherUserErrorsAreOne(t *testing.T) {
	assert.Equal(t, 1, ExitCode(NewValidationError("x", "", "", nil)))
	assert.Equal(t, 1, ExitCode(NewIOError("x", "", "", nil)))
}

func TestExitCodePlainErrorIsOne(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := NewIOError("x", "", "", cause)
	assert.Same(t, cause, err.Unwrap())
}
