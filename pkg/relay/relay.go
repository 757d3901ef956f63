// Copyright 2025 The Authors (see AUTHORS file)
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

// Package relay publishes CheckRequest envelopes to whichever sink the
// front process is configured for: a managed event bus, an HTTP relay
// endpoint, or a direct POST to the runner's own /run endpoint (spec §4.3).
package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/abcxyz/orgu/pkg/checkrequest"
)

// ErrRelayFailed is returned when publication did not succeed; the front
// surfaces this as an HTTP 500 to the platform (spec §4.3, §7).
var ErrRelayFailed = errors.New("relay failed")

// Relay is the single capability a queue-relay variant must implement:
// publish(CheckRequest) -> Result.
type Relay interface {
	Publish(ctx context.Context, cr *checkrequest.CheckRequest) error
}

func failedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRelayFailed, fmt.Sprintf(format, args...))
}
