// Copyright 2026 The Timepace Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamforge/timepace/errs"
)

func TestIsMatchesSentinel(t *testing.T) {
	wrapped := errs.ErrCouldNotParseConfig(errs.ErrNoConfig)
	assert.True(t, errs.Is(wrapped, errs.ErrNoConfig))
	assert.False(t, errs.Is(wrapped, errs.ErrNoTrack))
}

func TestErrCouldNotParseConfigWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := errs.ErrCouldNotParseConfig(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestErrInvalidLatencyMessage(t *testing.T) {
	err := errs.ErrInvalidLatency(-5)
	assert.Contains(t, err.Error(), "-5")
}

func TestErrDiagClientWriteFailedWrapsCause(t *testing.T) {
	cause := errors.New("write timeout")
	err := errs.ErrDiagClientWriteFailed(cause)
	assert.ErrorIs(t, err, cause)
}
