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

package canonical

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when the inbound event is missing fields
// required to build a CheckRequest (spec §4.2, §7).
var ErrMalformedPayload = errors.New("malformed payload")

// IgnoredError signals that an event was intentionally dropped rather than
// failed; spec §4.2/§7 treat this as a non-error ("ignored", not a fault).
type IgnoredError struct {
	Reason string
}

func (e *IgnoredError) Error() string {
	return fmt.Sprintf("ignored: %s", e.Reason)
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, reason)
}

func ignored(reason string) error {
	return &IgnoredError{Reason: reason}
}
