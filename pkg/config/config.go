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

// Package config defines the environment variables shared by the front and
// runner processes (spec §6).
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/abcxyz/pkg/cfgloader"
	"github.com/abcxyz/pkg/cli"
)

// Config is the full set of environment variables recognized by the front
// and runner binaries. Each binary validates only the subset it needs.
type Config struct {
	GitHubAppID           string `env:"GITHUB_APP_ID,required"`
	GitHubInstallationID  string `env:"GITHUB_INSTALLATION_ID,required"`
	GitHubPrivateKey      string `env:"GITHUB_PRIVATE_KEY,required"`
	GitHubWebhookSecret   string `env:"GITHUB_WEBHOOK_SECRET"`
	GitHubAPIBaseURL      string `env:"GITHUB_API_BASE_URL,default=https://api.github.com"`

	OrguWorkDir         string        `env:"ORGU_WORK_DIR"`
	OrguJobTimeout      time.Duration `env:"ORGU_JOB_TIMEOUT,default=10m"`
	OrguCheckoutTimeout time.Duration `env:"ORGU_CHECKOUT_TIMEOUT,default=10m"`
	OrguJobName         string        `env:"ORGU_JOB_NAME,default=orgu"`
	OrguJobCommand      string        `env:"ORGU_JOB_COMMAND,default=orgu-job"`
	OrguJobPassthroughEnv string      `env:"ORGU_JOB_PASSTHROUGH_ENV"`
	OrguShutdownTimeout time.Duration `env:"ORGU_SHUTDOWN_TIMEOUT,default=15m"`

	OrguEventQueueRelayEndpoint string `env:"ORGU_EVENT_QUEUE_RELAY_ENDPOINT"`
	OrguEventBusName            string `env:"ORGU_EVENT_BUS_NAME"`
	OrguEventBusProject         string `env:"ORGU_EVENT_BUS_PROJECT"`
	OrguRunnerEndpoint           string `env:"ORGU_RUNNER_ENDPOINT,default=http://localhost:8081"`

	Port string `env:"PORT,default=8080"`
	Log  string `env:"ORGU_LOG,default=info"`
}

// GitHubAppIDInt64 parses GitHubAppID. Callers must call Validate first.
func (c *Config) GitHubAppIDInt64() (int64, error) {
	id, err := strconv.ParseInt(c.GitHubAppID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("GITHUB_APP_ID must be an integer: %w", err)
	}
	return id, nil
}

// GitHubInstallationIDInt64 parses GitHubInstallationID.
func (c *Config) GitHubInstallationIDInt64() (int64, error) {
	id, err := strconv.ParseInt(c.GitHubInstallationID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("GITHUB_INSTALLATION_ID must be an integer: %w", err)
	}
	return id, nil
}

// JobCommandArgv splits OrguJobCommand into an argv slice.
func (c *Config) JobCommandArgv() []string {
	return strings.Fields(c.OrguJobCommand)
}

// PassthroughEnvNames returns the operator-configured list of environment
// variable names to forward into the job process unmodified (spec §4.7
// step 5, "operator-provided pass-through vars per configuration").
func (c *Config) PassthroughEnvNames() []string {
	if strings.TrimSpace(c.OrguJobPassthroughEnv) == "" {
		return nil
	}
	var out []string
	for _, name := range strings.Split(c.OrguJobPassthroughEnv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ValidateCommon validates the fields required by both binaries.
func (c *Config) ValidateCommon() error {
	if strings.TrimSpace(c.GitHubAppID) == "" {
		return fmt.Errorf("GITHUB_APP_ID is required")
	}
	if _, err := c.GitHubAppIDInt64(); err != nil {
		return err
	}
	if strings.TrimSpace(c.GitHubInstallationID) == "" {
		return fmt.Errorf("GITHUB_INSTALLATION_ID is required")
	}
	if _, err := c.GitHubInstallationIDInt64(); err != nil {
		return err
	}
	if strings.TrimSpace(c.GitHubPrivateKey) == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required")
	}
	return nil
}

// ValidateFront additionally validates the fields the front process requires.
func (c *Config) ValidateFront() error {
	if err := c.ValidateCommon(); err != nil {
		return err
	}
	if strings.TrimSpace(c.GitHubWebhookSecret) == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}
	return nil
}

// ValidateRunner additionally validates the fields the runner process
// requires.
func (c *Config) ValidateRunner() error {
	if err := c.ValidateCommon(); err != nil {
		return err
	}
	if len(c.JobCommandArgv()) == 0 {
		return fmt.Errorf("ORGU_JOB_COMMAND must not be empty")
	}
	return nil
}

// New loads Config from the process environment.
func New(ctx context.Context) (*Config, error) {
	return newConfig(ctx, envconfig.OsLookuper())
}

func newConfig(ctx context.Context, lu envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := cfgloader.Load(ctx, &cfg, cfgloader.WithLookuper(lu)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in defaults that depend on runtime state rather than
// a static `env:"...,default=..."` tag. ORGU_WORK_DIR defaults to the OS
// temp directory when unset ("scratch root, default platform temp"), which
// a struct tag can't express. Safe to call more than once.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.OrguWorkDir) == "" {
		c.OrguWorkDir = os.TempDir()
	}
}

// ToFlags binds the config to a CLI flag set, following the teacher's
// ToFlags convention.
func (c *Config) ToFlags(set *cli.FlagSet) *cli.FlagSet {
	f := set.NewSection("GITHUB OPTIONS")

	f.StringVar(&cli.StringVar{
		Name:   "github-app-id",
		Target: &c.GitHubAppID,
		EnvVar: "GITHUB_APP_ID",
		Usage:  `The provisioned GitHub App ID.`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "github-installation-id",
		Target: &c.GitHubInstallationID,
		EnvVar: "GITHUB_INSTALLATION_ID",
		Usage:  `The GitHub App installation ID this deployment serves.`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "github-private-key",
		Target: &c.GitHubPrivateKey,
		EnvVar: "GITHUB_PRIVATE_KEY",
		Usage:  `The GitHub App's RS256 PEM private key.`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "github-webhook-secret",
		Target: &c.GitHubWebhookSecret,
		EnvVar: "GITHUB_WEBHOOK_SECRET",
		Usage:  `The webhook HMAC signing secret (front only).`,
	})
	f.StringVar(&cli.StringVar{
		Name:    "github-api-base-url",
		Target:  &c.GitHubAPIBaseURL,
		EnvVar:  "GITHUB_API_BASE_URL",
		Default: "https://api.github.com",
		Usage:   `The GitHub API base URL.`,
	})

	o := set.NewSection("ORGU OPTIONS")

	o.StringVar(&cli.StringVar{
		Name:   "work-dir",
		Target: &c.OrguWorkDir,
		EnvVar: "ORGU_WORK_DIR",
		Usage:  `Scratch root for repository checkouts. Defaults to the OS temp directory.`,
	})
	o.StringVar(&cli.StringVar{
		Name:    "job-name",
		Target:  &c.OrguJobName,
		EnvVar:  "ORGU_JOB_NAME",
		Default: "orgu",
		Usage:   `Display name for the check run.`,
	})
	o.DurationVar(&cli.DurationVar{
		Name:    "job-timeout",
		Target:  &c.OrguJobTimeout,
		EnvVar:  "ORGU_JOB_TIMEOUT",
		Default: 10 * time.Minute,
		Usage:   `Wall-clock limit for one job run.`,
	})
	o.DurationVar(&cli.DurationVar{
		Name:    "checkout-timeout",
		Target:  &c.OrguCheckoutTimeout,
		EnvVar:  "ORGU_CHECKOUT_TIMEOUT",
		Default: 10 * time.Minute,
		Usage:   `Wall-clock limit for one repository checkout.`,
	})
	o.StringVar(&cli.StringVar{
		Name:   "job-command",
		Target: &c.OrguJobCommand,
		EnvVar: "ORGU_JOB_COMMAND",
		Usage:  `The job argv to execute for each check request.`,
	})
	o.StringVar(&cli.StringVar{
		Name:   "event-queue-relay-endpoint",
		Target: &c.OrguEventQueueRelayEndpoint,
		EnvVar: "ORGU_EVENT_QUEUE_RELAY_ENDPOINT",
		Usage:  `If set, the front relays check requests via HTTP POST to this endpoint.`,
	})
	o.StringVar(&cli.StringVar{
		Name:   "event-bus-name",
		Target: &c.OrguEventBusName,
		EnvVar: "ORGU_EVENT_BUS_NAME",
		Usage:  `If set, the front relays check requests via the managed event bus.`,
	})
	o.StringVar(&cli.StringVar{
		Name:   "runner-endpoint",
		Target: &c.OrguRunnerEndpoint,
		EnvVar: "ORGU_RUNNER_ENDPOINT",
		Usage:  `The runner's /run endpoint, used when no relay is configured.`,
	})
	o.StringVar(&cli.StringVar{
		Name:    "port",
		Target:  &c.Port,
		EnvVar:  "PORT",
		Default: "8080",
		Usage:   `The port the HTTP server listens on.`,
	})

	return set
}
