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

package result

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkIsOk(t *testing.T) {
	r := Ok[int, error](42)
	require.True(t, r.IsOk())
	require.False(t, r.IsErr())
	assert.Equal(t, 42, r.Value())
	assert.NoError(t, r.Error())
}

func TestErrIsErr(t *testing.T) {
	want := errors.New("boom")
	r := Err[int, error](want)
	require.True(t, r.IsErr())
	require.False(t, r.IsOk())
	assert.Equal(t, 0, r.Value())
	assert.Equal(t, want, r.Error())
}

func TestUnwrap(t *testing.T) {
	v, e := Ok[int, error](7).Unwrap()
	assert.Equal(t, 7, v)
	assert.NoError(t, e)
}

func TestMapOnSuccessTransformsValue(t *testing.T) {
	r := Ok[int, error](3)
	mapped := Map(r, func(v int) string { return strconv.Itoa(v * 2) })
	require.True(t, mapped.IsOk())
	assert.Equal(t, "6", mapped.Value())
}

func TestMapOnFailureShortCircuits(t *testing.T) {
	want := errors.New("boom")
	r := Err[int, error](want)
	mapped := Map(r, func(v int) string { return "should not run" })
	require.True(t, mapped.IsErr())
	assert.Equal(t, want, mapped.Error())
}

func TestMapErrOnFailureTransformsError(t *testing.T) {
	r := Err[int, error](errors.New("boom"))
	mapped := MapErr(r, func(e error) string { return e.Error() })
	require.True(t, mapped.IsErr())
	assert.Equal(t, "boom", mapped.Error())
}

func TestMapErrOnSuccessShortCircuits(t *testing.T) {
	r := Ok[int, error](9)
	mapped := MapErr(r, func(e error) string { return "should not run" })
	require.True(t, mapped.IsOk())
	assert.Equal(t, 9, mapped.Value())
}

func TestAndThenChainsOnSuccess(t *testing.T) {
	r := Ok[int, error](4)
	chained := AndThen(r, func(v int) Result[int, error] {
		if v <= 0 {
			return Err[int, error](errors.New("non-positive"))
		}
		return Ok[int, error](v * v)
	})
	require.True(t, chained.IsOk())
	assert.Equal(t, 16, chained.Value())
}

func TestAndThenShortCircuitsOnFailure(t *testing.T) {
	want := errors.New("boom")
	r := Err[int, error](want)
	called := false
	chained := AndThen(r, func(v int) Result[int, error] {
		called = true
		return Ok[int, error](v)
	})
	require.True(t, chained.IsErr())
	assert.False(t, called)
	assert.Equal(t, want, chained.Error())
}
