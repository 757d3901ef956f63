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

// Package githubapp mints and caches installation-scoped access tokens for
// the platform app (spec §4.5), and constructs the app-level client used to
// do so (spec §4.4's get_installation_token).
package githubapp

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshWindow is how close to expiry a cached token may get before it is
// considered stale and re-minted (spec §4.5).
const refreshWindow = 60 * time.Second

// InstallationToken is a short-lived credential scoped to one installation.
// Tokens are never persisted and never logged in full.
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// Redacted returns a value safe to place in a log line.
func (t *InstallationToken) Redacted() string {
	if t == nil || len(t.Token) < 8 {
		return "***"
	}
	return t.Token[:4] + "..." + t.Token[len(t.Token)-2:]
}

// Backend mints a fresh installation token, hitting the platform's token
// endpoint exactly once per call. It is the sole seam the Minter needs for
// testing (spec §9, "trait-based testability").
type Backend interface {
	MintInstallationToken(ctx context.Context, installationID int64) (*InstallationToken, error)
}

// Minter mints and caches installation tokens. A single Minter is a
// process-scoped singleton (spec §9): the cache map is guarded by a mutex,
// but concurrent mints for distinct installations never block each other
// because singleflight keys on the installation ID, not on the mutex —
// "prefer a map with per-entry exclusion over a global lock".
type Minter struct {
	backend Backend

	mu    sync.Mutex
	cache map[int64]*InstallationToken

	sf singleflight.Group

	now func() time.Time
}

// NewMinter constructs a Minter around the given Backend.
func NewMinter(backend Backend) *Minter {
	return &Minter{
		backend: backend,
		cache:   make(map[int64]*InstallationToken),
		now:     time.Now,
	}
}

// Mint returns a cached installation token if it has more than 60 seconds
// remaining before expiry, otherwise mints a fresh one. Concurrent calls for
// the same installationID are coalesced into a single backend mint.
func (m *Minter) Mint(ctx context.Context, installationID int64) (*InstallationToken, error) {
	if tok, ok := m.cached(installationID); ok {
		return tok, nil
	}

	key := strconv.FormatInt(installationID, 10)
	v, err, _ := m.sf.Do(key, func() (any, error) {
		// Re-check: another goroutine may have just finished minting while
		// we were waiting to enter singleflight for this key.
		if tok, ok := m.cached(installationID); ok {
			return tok, nil
		}

		tok, err := m.backend.MintInstallationToken(ctx, installationID)
		if err != nil {
			return nil, fmt.Errorf("failed to mint installation token for %d: %w", installationID, err)
		}

		m.mu.Lock()
		m.cache[installationID] = tok
		m.mu.Unlock()

		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*InstallationToken), nil
}

func (m *Minter) cached(installationID int64) (*InstallationToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.cache[installationID]
	if !ok {
		return nil, false
	}
	if tok.ExpiresAt.Sub(m.now()) <= refreshWindow {
		return nil, false
	}
	return tok, true
}
