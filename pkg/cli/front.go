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

package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/renderer"
	"github.com/abcxyz/pkg/serving"

	"github.com/abcxyz/orgu/pkg/canonical"
	"github.com/abcxyz/orgu/pkg/config"
	"github.com/abcxyz/orgu/pkg/frontserver"
	"github.com/abcxyz/orgu/pkg/githubapp"
	"github.com/abcxyz/orgu/pkg/platform"
	"github.com/abcxyz/orgu/pkg/relay"
)

var _ cli.Command = (*FrontServerCommand)(nil)

// FrontServerCommand runs the front process's HTTP server: it verifies and
// canonicalizes inbound platform webhooks and relays them onward (spec
// §4.1-§4.3, §4.8).
type FrontServerCommand struct {
	cli.BaseCommand

	cfg config.Config

	testFlagSetOpts []cli.Option
	closeRelay      func() error
}

func (c *FrontServerCommand) Desc() string {
	return `Start the front HTTP server`
}

func (c *FrontServerCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]

Start the front process, which receives GitHub webhooks, verifies their
signature, canonicalizes them into a CheckRequest, and relays the result
to the runner (directly, via the managed event bus, or via an HTTP
relay endpoint).`
}

func (c *FrontServerCommand) Flags() *cli.FlagSet {
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *FrontServerCommand) Run(ctx context.Context, args []string) error {
	srv, mux, err := c.RunUnstarted(ctx, args)
	if err != nil {
		return err
	}
	defer c.closeRelayFunc(ctx)

	return srv.StartHTTPHandler(ctx, mux)
}

// RunUnstarted parses flags, validates configuration, and constructs the
// server without starting it, so tests can exercise configuration failures
// and route behavior without binding a port.
func (c *FrontServerCommand) RunUnstarted(ctx context.Context, args []string) (*serving.Server, http.Handler, error) {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if extra := f.Args(); len(extra) > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %q", extra)
	}

	mux, closeRelay, err := newFrontHandler(ctx, &c.cfg)
	if err != nil {
		return nil, nil, err
	}
	c.closeRelay = closeRelay

	srv, err := serving.New(c.cfg.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create serving infrastructure: %w", err)
	}

	return srv, mux, nil
}

func (c *FrontServerCommand) closeRelayFunc(ctx context.Context) {
	if c.closeRelay == nil {
		return
	}
	if err := c.closeRelay(); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to close relay", "error", err)
	}
}

// newFrontHandler builds the front's http.Handler from cfg, which must
// already be populated (by flag parsing or direct construction). Shared by
// FrontServerCommand (which binds a port) and FrontLambdaCommand (which
// invokes the handler in-process per event).
func newFrontHandler(ctx context.Context, cfg *config.Config) (http.Handler, func() error, error) {
	if err := cfg.ValidateFront(); err != nil {
		return nil, nil, err
	}

	installationID, err := cfg.GitHubInstallationIDInt64()
	if err != nil {
		return nil, nil, err
	}

	signer, err := githubapp.ParsePrivateKey([]byte(cfg.GitHubPrivateKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse GITHUB_PRIVATE_KEY: %w", err)
	}
	backend, err := githubapp.NewAppBackend(cfg.GitHubAppID, signer, cfg.GitHubAPIBaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to construct github app backend: %w", err)
	}
	minter := githubapp.NewMinter(backend)
	platformClient := platform.NewClient(minter, cfg.GitHubAPIBaseURL)
	canon := canonical.New(platformClient, installationID)

	rl, closeRelay, err := relay.New(ctx, relay.Config{
		QueueRelayEndpoint: cfg.OrguEventQueueRelayEndpoint,
		EventBusProject:    cfg.OrguEventBusProject,
		EventBusName:       cfg.OrguEventBusName,
		RunnerEndpoint:     cfg.OrguRunnerEndpoint,
	}, http.DefaultClient)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to construct relay: %w", err)
	}

	h, err := renderer.New(ctx, nil, renderer.WithOnError(func(err error) {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to render response", "error", err)
	}))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	fsrv := frontserver.New(h, []byte(cfg.GitHubWebhookSecret), canon, rl)
	return fsrv.Routes(ctx), closeRelay, nil
}
