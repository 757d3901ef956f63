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
	"crypto"
	"fmt"
	"strconv"

	"github.com/abcxyz/pkg/githubauth"
)

// appBackend mints installation tokens through the platform's real
// installation-token endpoint, using the same githubauth.App /
// InstallationForID / AllReposOAuth2TokenSource flow the teacher project
// uses to generate JIT runner configs.
type appBackend struct {
	app *githubauth.App
}

var _ Backend = (*appBackend)(nil)

// NewAppBackend constructs the production Backend: appIDStr identifies the
// platform app, signer produces the RS256-signed app JWT (minted fresh for
// each call, per spec §4.4: "{iat: now-60s, exp: now+9min, iss: app_id}"),
// and baseURL points at the platform's API host.
func NewAppBackend(appIDStr string, signer crypto.Signer, baseURL string) (Backend, error) {
	opts := []githubauth.Option{githubauth.WithBaseURL(baseURL)}
	app, err := githubauth.NewApp(appIDStr, signer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to construct github app client: %w", err)
	}
	return &appBackend{app: app}, nil
}

// MintInstallationToken implements Backend.
func (b *appBackend) MintInstallationToken(ctx context.Context, installationID int64) (*InstallationToken, error) {
	installation, err := b.app.InstallationForID(ctx, strconv.FormatInt(installationID, 10))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve installation %d: %w", installationID, err)
	}

	ts := (*installation).AllReposOAuth2TokenSource(ctx, Permissions)
	oauthTok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch installation token for %d: %w", installationID, err)
	}

	return &InstallationToken{
		Token:     oauthTok.AccessToken,
		ExpiresAt: oauthTok.Expiry,
	}, nil
}

// Permissions is the set of installation permissions orgu requests when
// minting a token, covering check-run updates, repository checkout, and
// custom-property reads.
var Permissions = map[string]string{
	"checks":            "write",
	"contents":          "read",
	"metadata":          "read",
	"custom_properties": "read",
}
