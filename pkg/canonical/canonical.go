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

// Package canonical normalizes inbound pull_request, check_suite, and
// check_run payloads into a single CheckRequest envelope, and applies the
// action/installation allow-list filter (spec §4.2).
package canonical

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/go-github/v69/github"

	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/orgu/pkg/checkrequest"
	"github.com/abcxyz/orgu/pkg/platform"
)

// Canonicalizer turns raw platform webhook payloads into CheckRequest
// envelopes.
type Canonicalizer struct {
	platform       platform.Client
	installationID int64
	now            func() time.Time
}

// New constructs a Canonicalizer. installationID is the runner's own
// configured installation (GITHUB_INSTALLATION_ID), used to drop
// cross-app rerun events per spec §4.2.
func New(platformClient platform.Client, installationID int64) *Canonicalizer {
	return &Canonicalizer{
		platform:       platformClient,
		installationID: installationID,
		now:            time.Now,
	}
}

// Canonicalize accepts (event_name, raw_json_bytes) and either returns a
// populated CheckRequest, an *IgnoredError (not a fault), or an error
// wrapping ErrMalformedPayload.
func (c *Canonicalizer) Canonicalize(ctx context.Context, eventName string, raw []byte) (*checkrequest.CheckRequest, error) {
	name := checkrequest.EventName(eventName)

	var cr *checkrequest.CheckRequest
	var err error

	switch name {
	case checkrequest.EventPullRequest:
		cr, err = canonicalizePullRequest(raw)
	case checkrequest.EventCheckSuite:
		cr, err = canonicalizeCheckSuite(raw)
	case checkrequest.EventCheckRun:
		cr, err = canonicalizeCheckRun(raw)
	default:
		return nil, ignored(fmt.Sprintf("unsupported event type %q", eventName))
	}
	if err != nil {
		return nil, err
	}

	if !isAllowedAction(name, cr.Action) {
		return nil, ignored(fmt.Sprintf("action %q not in allow-set for %s", cr.Action, name))
	}

	if isRerunEvent(name) && cr.InstallationID != c.installationID {
		return nil, ignored(fmt.Sprintf("installation %d does not match configured installation %d", cr.InstallationID, c.installationID))
	}

	cr.ReceivedAt = c.now().UTC()

	props, err := c.platform.GetRepositoryCustomProperties(ctx, cr.InstallationID, cr.Repository.Owner, cr.Repository.Name)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "failed to fetch repository custom properties; proceeding with empty properties",
			"error", err, "owner", cr.Repository.Owner, "repo", cr.Repository.Name)
		props = nil
	}
	cr.Repository.CustomProperties = checkrequest.SanitizeCustomProperties(props)

	return cr, nil
}

func canonicalizePullRequest(raw []byte) (*checkrequest.CheckRequest, error) {
	var ev github.PullRequestEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, malformed(fmt.Sprintf("invalid pull_request payload: %v", err))
	}

	if ev.Action == nil || ev.PullRequest == nil || ev.Repo == nil || ev.Installation == nil || ev.Installation.ID == nil {
		return nil, malformed("pull_request event missing required fields")
	}
	pr := ev.PullRequest
	if pr.Head == nil || pr.Head.SHA == nil || pr.Base == nil || pr.Base.SHA == nil {
		return nil, malformed("pull_request event missing head/base sha")
	}

	repo, err := repositoryFrom(ev.Repo)
	if err != nil {
		return nil, err
	}

	cr := &checkrequest.CheckRequest{
		EventName:      checkrequest.EventPullRequest,
		Action:         ev.GetAction(),
		InstallationID: ev.Installation.GetID(),
		Sender:         senderFrom(ev.Sender),
		Repository:     repo,
		Head: checkrequest.Head{
			SHA:     pr.Head.GetSHA(),
			Ref:     pr.Head.GetRef(),
			RefType: checkrequest.RefTypeBranch,
		},
		Base: &checkrequest.Base{
			SHA: pr.Base.GetSHA(),
			Ref: pr.Base.GetRef(),
		},
		PullRequest: &checkrequest.PullRequest{
			Number:  ev.GetNumber(),
			Title:   pr.GetTitle(),
			HTMLURL: pr.GetHTMLURL(),
			User:    checkrequest.PullRequestUser{Login: pr.GetUser().GetLogin()},
		},
	}

	if err := cr.Validate(); err != nil {
		return nil, malformed(err.Error())
	}
	return cr, nil
}

func canonicalizeCheckSuite(raw []byte) (*checkrequest.CheckRequest, error) {
	var ev github.CheckSuiteEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, malformed(fmt.Sprintf("invalid check_suite payload: %v", err))
	}

	if ev.Action == nil || ev.CheckSuite == nil || ev.Repo == nil || ev.Installation == nil || ev.Installation.ID == nil {
		return nil, malformed("check_suite event missing required fields")
	}
	if ev.CheckSuite.HeadSHA == nil {
		return nil, malformed("check_suite event missing head sha")
	}

	repo, err := repositoryFrom(ev.Repo)
	if err != nil {
		return nil, err
	}

	cr := &checkrequest.CheckRequest{
		EventName:      checkrequest.EventCheckSuite,
		Action:         ev.GetAction(),
		InstallationID: ev.Installation.GetID(),
		Sender:         senderFrom(ev.Sender),
		Repository:     repo,
		Head: checkrequest.Head{
			SHA:     ev.CheckSuite.GetHeadSHA(),
			Ref:     ev.CheckSuite.GetHeadBranch(),
			RefType: checkrequest.RefTypeBranch,
		},
	}

	if err := cr.Validate(); err != nil {
		return nil, malformed(err.Error())
	}
	return cr, nil
}

func canonicalizeCheckRun(raw []byte) (*checkrequest.CheckRequest, error) {
	var ev github.CheckRunEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, malformed(fmt.Sprintf("invalid check_run payload: %v", err))
	}

	if ev.Action == nil || ev.CheckRun == nil || ev.Repo == nil || ev.Installation == nil || ev.Installation.ID == nil {
		return nil, malformed("check_run event missing required fields")
	}
	if ev.CheckRun.HeadSHA == nil {
		return nil, malformed("check_run event missing head sha")
	}

	repo, err := repositoryFrom(ev.Repo)
	if err != nil {
		return nil, err
	}

	headRef := ev.CheckRun.GetCheckSuite().GetHeadBranch()

	cr := &checkrequest.CheckRequest{
		EventName:      checkrequest.EventCheckRun,
		Action:         ev.GetAction(),
		InstallationID: ev.Installation.GetID(),
		Sender:         senderFrom(ev.Sender),
		Repository:     repo,
		Head: checkrequest.Head{
			SHA:     ev.CheckRun.GetHeadSHA(),
			Ref:     headRef,
			RefType: checkrequest.RefTypeBranch,
		},
	}

	if err := cr.Validate(); err != nil {
		return nil, malformed(err.Error())
	}
	return cr, nil
}

func repositoryFrom(repo *github.Repository) (checkrequest.Repository, error) {
	if repo == nil || repo.Name == nil || repo.FullName == nil || repo.Owner == nil || repo.Owner.Login == nil {
		return checkrequest.Repository{}, malformed("repository missing required fields")
	}
	return checkrequest.Repository{
		ID:            repo.GetID(),
		Owner:         repo.Owner.GetLogin(),
		Name:          repo.GetName(),
		DefaultBranch: repo.GetDefaultBranch(),
		FullName:      repo.GetFullName(),
	}, nil
}

func senderFrom(user *github.User) checkrequest.Sender {
	if user == nil {
		return checkrequest.Sender{}
	}
	return checkrequest.Sender{Login: user.GetLogin(), ID: user.GetID()}
}
