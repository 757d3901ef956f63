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

// Package platform is the thin call layer over the hosted platform's REST
// API: check-run lifecycle and repository custom properties (spec §4.4).
package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"

	"github.com/abcxyz/orgu/pkg/githubapp"
)

// defaultCallTimeout is the hard per-call timeout from spec §4.4.
const defaultCallTimeout = 30 * time.Second

// CheckRunOutput is the Markdown title/summary attached to a terminal
// check-run update (spec §6: title <= 255 chars, summary <= 64 KiB).
type CheckRunOutput struct {
	Title   string
	Summary string
}

// CheckRunUpdate describes an update to an existing check run.
type CheckRunUpdate struct {
	Status     string // queued | in_progress | completed
	Conclusion string // success | failure | neutral | cancelled | timed_out; only set when Status == completed
	StartedAt  *time.Time
	Output     *CheckRunOutput
}

// Client is the capability set the dispatcher and canonicalizer depend on.
// It is expressed as a small interface so both can be exercised against a
// mock (spec §9).
type Client interface {
	CreateCheckRun(ctx context.Context, installationID int64, owner, repo, headSHA, jobName string) (checkRunID int64, err error)
	UpdateCheckRun(ctx context.Context, installationID int64, owner, repo string, checkRunID int64, update CheckRunUpdate) error
	GetRepositoryCustomProperties(ctx context.Context, installationID int64, owner, repo string) (map[string]string, error)
}

var _ Client = (*apiClient)(nil)

type apiClient struct {
	minter  *githubapp.Minter
	baseURL string
}

// NewClient constructs the production platform Client. minter supplies
// installation tokens (spec §4.5); baseURL is the platform API host.
func NewClient(minter *githubapp.Minter, baseURL string) Client {
	return &apiClient{minter: minter, baseURL: baseURL}
}

func (c *apiClient) ghClient(ctx context.Context, installationID int64) (*github.Client, error) {
	tok, err := c.minter.Mint(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint installation token: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok.Token})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = defaultCallTimeout

	gh := github.NewClient(hc)
	baseURL, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse platform base url: %w", err)
	}
	gh.BaseURL = baseURL
	gh.UploadURL = baseURL

	return gh, nil
}

// CreateCheckRun implements Client.
func (c *apiClient) CreateCheckRun(ctx context.Context, installationID int64, owner, repo, headSHA, jobName string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	gh, err := c.ghClient(ctx, installationID)
	if err != nil {
		return 0, err
	}

	status := "queued"
	run, resp, err := gh.Checks.CreateCheckRun(ctx, owner, repo, github.CreateCheckRunOptions{
		Name:    jobName,
		HeadSHA: headSHA,
		Status:  &status,
	})
	if err != nil {
		return 0, classifyError(resp, err)
	}
	if run.ID == nil {
		return 0, decodeError(fmt.Errorf("create check run response missing id"))
	}
	return *run.ID, nil
}

// UpdateCheckRun implements Client.
func (c *apiClient) UpdateCheckRun(ctx context.Context, installationID int64, owner, repo string, checkRunID int64, update CheckRunUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	gh, err := c.ghClient(ctx, installationID)
	if err != nil {
		return err
	}

	opts := github.UpdateCheckRunOptions{
		Status: &update.Status,
	}
	if update.Conclusion != "" {
		opts.Conclusion = &update.Conclusion
		now := github.Timestamp{Time: time.Now().UTC()}
		opts.CompletedAt = &now
	}
	if update.Output != nil {
		opts.Output = &github.CheckRunOutput{
			Title:   &update.Output.Title,
			Summary: &update.Output.Summary,
		}
	}

	_, resp, err := gh.Checks.UpdateCheckRun(ctx, owner, repo, checkRunID, opts)
	if err != nil {
		return classifyError(resp, err)
	}
	return nil
}

// GetRepositoryCustomProperties implements Client.
func (c *apiClient) GetRepositoryCustomProperties(ctx context.Context, installationID int64, owner, repo string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	gh, err := c.ghClient(ctx, installationID)
	if err != nil {
		return nil, err
	}

	values, resp, err := gh.Repositories.GetAllCustomPropertyValues(ctx, owner, repo)
	if err != nil {
		return nil, classifyError(resp, err)
	}

	out := make(map[string]string, len(values))
	for _, v := range values {
		if v == nil || v.Value == nil {
			continue
		}
		if s, ok := v.Value.(string); ok {
			out[v.PropertyName] = s
		}
	}
	return out, nil
}

func classifyError(resp *github.Response, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if resp != nil && resp.Response != nil {
		return httpError(resp.StatusCode, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return networkError(err)
	}
	return networkError(err)
}
