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

package githubapp

import (
	"context"
	"sync/atomic"
)

var _ Backend = (*MockBackend)(nil)

// MockBackend is a mock of Backend for tests.
type MockBackend struct {
	MintInstallationTokenF func(ctx context.Context, installationID int64) (*InstallationToken, error)

	calls atomic.Int64
}

// MintInstallationToken implements Backend.
func (m *MockBackend) MintInstallationToken(ctx context.Context, installationID int64) (*InstallationToken, error) {
	m.calls.Add(1)
	return m.MintInstallationTokenF(ctx, installationID)
}

// Calls returns the number of times MintInstallationToken was invoked.
func (m *MockBackend) Calls() int64 {
	return m.calls.Load()
}
