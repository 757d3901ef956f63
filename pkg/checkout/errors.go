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

package checkout

import "errors"

// Sentinel error kinds from spec §4.6/§7. Wrap with fmt.Errorf("...: %w",
// ErrX) to attach detail while staying errors.Is-compatible.
var (
	ErrCheckoutTimeout = errors.New("checkout timed out")
	ErrCheckoutAuth    = errors.New("checkout auth failure")
	ErrCheckoutNotFound = errors.New("checkout not found")
	ErrCheckoutFetch   = errors.New("checkout fetch failure")
	ErrCheckoutIO      = errors.New("checkout io failure")
)
