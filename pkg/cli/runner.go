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

	"github.com/abcxyz/orgu/pkg/checkout"
	"github.com/abcxyz/orgu/pkg/dispatcher"
	"github.com/abcxyz/orgu/pkg/githubapp"
	"github.com/abcxyz/orgu/pkg/jobexec"
	"github.com/abcxyz/orgu/pkg/platform"
	"github.com/abcxyz/orgu/pkg/runnerserver"

	"github.com/abcxyz/orgu/pkg/config"
)

// defaultGitHost is the clone host used for the repository URL the
// checkout engine builds (spec §4.7 step 4). It is independent of
// GITHUB_API_BASE_URL, which may point at an enterprise API host while
// the clone host stays github.com, or vice versa.
const defaultGitHost = "github.com"

var _ cli.Command = (*RunnerServerCommand)(nil)

// RunnerServerCommand runs the runner process's HTTP server: it accepts a
// CheckRequest and drives it through the dispatcher (spec §4.7, §4.8).
type RunnerServerCommand struct {
	cli.BaseCommand

	cfg config.Config

	testFlagSetOpts []cli.Option
}

func (c *RunnerServerCommand) Desc() string {
	return `Start the runner HTTP server`
}

func (c *RunnerServerCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]

Start the runner process, which accepts a CheckRequest (from the front
directly, or from a queue subscriber forwarding bus messages), opens a
check run, checks out the repository at the requested SHA, runs the
configured job under a timeout, and reports the outcome back to the
check run.`
}

func (c *RunnerServerCommand) Flags() *cli.FlagSet {
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *RunnerServerCommand) Run(ctx context.Context, args []string) error {
	srv, mux, err := c.RunUnstarted(ctx, args)
	if err != nil {
		return err
	}
	return srv.StartHTTPHandler(ctx, mux)
}

// RunUnstarted parses flags, validates configuration, and constructs the
// server without starting it.
func (c *RunnerServerCommand) RunUnstarted(ctx context.Context, args []string) (*serving.Server, http.Handler, error) {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if extra := f.Args(); len(extra) > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %q", extra)
	}

	mux, err := newRunnerHandler(ctx, &c.cfg)
	if err != nil {
		return nil, nil, err
	}

	srv, err := serving.New(c.cfg.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create serving infrastructure: %w", err)
	}

	return srv, mux, nil
}

// newRunnerHandler builds the runner's http.Handler from cfg. Shared by
// RunnerServerCommand and RunnerLambdaCommand.
func newRunnerHandler(ctx context.Context, cfg *config.Config) (http.Handler, error) {
	cfg.ApplyDefaults()
	if err := cfg.ValidateRunner(); err != nil {
		return nil, err
	}

	signer, err := githubapp.ParsePrivateKey([]byte(cfg.GitHubPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse GITHUB_PRIVATE_KEY: %w", err)
	}
	backend, err := githubapp.NewAppBackend(cfg.GitHubAppID, signer, cfg.GitHubAPIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to construct github app backend: %w", err)
	}
	minter := githubapp.NewMinter(backend)
	platformClient := platform.NewClient(minter, cfg.GitHubAPIBaseURL)

	disp := dispatcher.New(platformClient, minter, checkout.New(), jobexec.New(), dispatcher.Config{
		WorkDir:         cfg.OrguWorkDir,
		GitHost:         defaultGitHost,
		JobName:         cfg.OrguJobName,
		JobArgv:         cfg.JobCommandArgv(),
		PassthroughEnv:  cfg.PassthroughEnvNames(),
		JobTimeout:      cfg.OrguJobTimeout,
		CheckoutTimeout: cfg.OrguCheckoutTimeout,
	})

	h, err := renderer.New(ctx, nil, renderer.WithOnError(func(err error) {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to render response", "error", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	rsrv := runnerserver.New(h, disp)
	return rsrv.Routes(ctx), nil
}
