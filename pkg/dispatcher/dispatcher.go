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

// Package dispatcher implements the runner's per-request algorithm (spec
// §4.7): open a check run, checkout the repository, run the configured
// job, and close the check run with the outcome.
package dispatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/orgu/pkg/checkout"
	"github.com/abcxyz/orgu/pkg/checkrequest"
	"github.com/abcxyz/orgu/pkg/githubapp"
	"github.com/abcxyz/orgu/pkg/jobexec"
	"github.com/abcxyz/orgu/pkg/platform"
)

// Config is the runner-side configuration the dispatcher needs beyond the
// per-request CheckRequest itself.
type Config struct {
	WorkDir         string
	GitHost         string // platform host used for the clone URL, e.g. "github.com"
	JobName         string
	JobArgv         []string
	PassthroughEnv  []string
	JobTimeout      time.Duration
	CheckoutTimeout time.Duration
}

// checkoutEngine is the subset of *checkout.Engine the dispatcher depends
// on, narrowed to an interface so tests can substitute a fake.
type checkoutEngine interface {
	Checkout(ctx context.Context, req checkout.Request) error
}

// jobRunner is the subset of *jobexec.Executor the dispatcher depends on.
type jobRunner interface {
	Run(ctx context.Context, req jobexec.Request) (*jobexec.Outcome, error)
}

// Dispatcher wires the platform client, token minter, checkout engine,
// and job executor into the single per-request algorithm.
type Dispatcher struct {
	platform platform.Client
	minter   *githubapp.Minter
	checkout checkoutEngine
	jobs     jobRunner
	cfg      Config
}

// New constructs a Dispatcher.
func New(platformClient platform.Client, minter *githubapp.Minter, checkout checkoutEngine, jobs jobRunner, cfg Config) *Dispatcher {
	return &Dispatcher{
		platform: platformClient,
		minter:   minter,
		checkout: checkout,
		jobs:     jobs,
		cfg:      cfg,
	}
}

// Dispatch runs the full per-request algorithm. A non-nil return means
// the check run could not even be opened (step 1) and the caller should
// NACK the request with a 5xx; every other failure is absorbed into the
// check run's terminal conclusion and Dispatch returns nil.
func (d *Dispatcher) Dispatch(ctx context.Context, cr *checkrequest.CheckRequest) error {
	logger := logging.FromContext(ctx)
	owner, name := cr.Repository.Owner, cr.Repository.Name

	// Step 1: open the check run. Failure here is a hard error.
	checkRunID, err := d.platform.CreateCheckRun(ctx, cr.InstallationID, owner, name, cr.Head.SHA, d.cfg.JobName)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open check run", "error", err, "repo", cr.Repository.FullName)
		return fmt.Errorf("failed to open check run: %w", err)
	}

	// Step 2: best-effort transition to in_progress.
	startedAt := time.Now().UTC()
	if err := d.platform.UpdateCheckRun(ctx, cr.InstallationID, owner, name, checkRunID, platform.CheckRunUpdate{
		Status:    "in_progress",
		StartedAt: &startedAt,
	}); err != nil {
		logger.WarnContext(ctx, "failed to transition check run to in_progress", "error", err, "check_run_id", checkRunID)
	}

	conclusion, output := d.runJob(ctx, cr, startedAt)

	// Step 7 (continued): close the check run. A failure here is logged
	// but does not change the dispatcher's own outcome.
	if err := d.platform.UpdateCheckRun(ctx, cr.InstallationID, owner, name, checkRunID, platform.CheckRunUpdate{
		Status:     "completed",
		Conclusion: conclusion,
		Output:     output,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to close check run", "error", err, "check_run_id", checkRunID, "conclusion", conclusion)
	}

	return nil
}

// runJob performs steps 3-7 of the algorithm up to (but not including) the
// final update_check_run call, returning the conclusion and output block.
func (d *Dispatcher) runJob(ctx context.Context, cr *checkrequest.CheckRequest, startedAt time.Time) (string, *platform.CheckRunOutput) {
	logger := logging.FromContext(ctx)

	// Step 3: mint an installation token.
	tok, err := d.minter.Mint(ctx, cr.InstallationID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to mint installation token", "error", err)
		return "failure", failureOutput(d.cfg.JobName, "token", time.Since(startedAt), err, nil)
	}

	// Step 4: checkout into a fresh scratch directory.
	jobID := uuid.NewString()
	scratchDir := filepath.Join(d.cfg.WorkDir, jobID)
	defer os.RemoveAll(scratchDir) //nolint:errcheck // step 8: cleanup on every exit path

	if err := d.checkout.Checkout(ctx, checkout.Request{
		PlatformHost: d.cfg.GitHost,
		Owner:        cr.Repository.Owner,
		Name:         cr.Repository.Name,
		HeadSHA:      cr.Head.SHA,
		BaseSHA:      baseSHA(cr),
		Token:        tok.Token,
		Dest:         scratchDir,
		Timeout:      d.cfg.CheckoutTimeout,
	}); err != nil {
		logger.ErrorContext(ctx, "checkout failed", "error", err, "repo", cr.Repository.FullName)
		return "failure", failureOutput(d.cfg.JobName, "checkout", time.Since(startedAt), err, nil)
	}

	// Step 5: spawn the job with the derived environment.
	env := buildEnv(cr, tok.Token, d.cfg.JobName, d.cfg.PassthroughEnv)

	// Step 6: supervise with job_timeout.
	outcome, err := d.jobs.Run(ctx, jobexec.Request{
		Argv:    d.cfg.JobArgv,
		Dir:     scratchDir,
		Env:     env,
		Timeout: d.cfg.JobTimeout,
	})
	if err != nil {
		logger.ErrorContext(ctx, "job executor internal error", "error", err)
		return "failure", failureOutput(d.cfg.JobName, "spawn", time.Since(startedAt), err, nil)
	}

	// Step 7: map exit status to conclusion and build output.
	return conclusionFor(outcome), outputFor(d.cfg.JobName, outcome)
}

func baseSHA(cr *checkrequest.CheckRequest) string {
	if cr.Base == nil {
		return ""
	}
	return cr.Base.SHA
}
