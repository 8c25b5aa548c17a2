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

// Package errs holds the host layer's error values. The core interp
// package never returns an error: it self-corrects per its diagnostics
// contract. Everything here belongs to config loading, the CLI, and the
// demo's audio sources.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNoConfig      = errors.New("missing config path")
	ErrUnknownSource = errors.New("unknown audio source")
	ErrNoTrack       = errors.New("no remote track supplied")
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func ErrCouldNotParseConfig(err error) error {
	return fmt.Errorf("could not parse config: %w", err)
}

func ErrInvalidLatency(v int64) error {
	return fmt.Errorf("invalid latency %dus: must be positive", v)
}

func ErrDiagClientWriteFailed(err error) error {
	return fmt.Errorf("diagnostics client write failed: %w", err)
}
