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
	"strconv"

	"github.com/abcxyz/pkg/cli"

	"github.com/abcxyz/orgu/pkg/canonical"
)

var _ cli.Command = (*PatternGenerateCommand)(nil)

// PatternGenerateCommand prints a starter allow-set configuration an
// operator can copy into their deployment notes, documenting exactly
// which (event, action) pairs the front accepts (spec §4.2).
type PatternGenerateCommand struct {
	cli.BaseCommand

	testFlagSetOpts []cli.Option
}

func (c *PatternGenerateCommand) Desc() string {
	return `Print the front's event/action allow-set`
}

func (c *PatternGenerateCommand) Help() string {
	return `
Usage: {{ COMMAND }}

Print the (event, action) pairs the front will accept, and which of
those are additionally filtered by installation ID. Useful for
confirming a deployment's webhook subscription covers exactly what
orgu will act on.`
}

func (c *PatternGenerateCommand) Flags() *cli.FlagSet {
	return cli.NewFlagSet(c.testFlagSetOpts...)
}

func (c *PatternGenerateCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if extra := f.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected arguments: %q", extra)
	}

	stdout := c.Stdout()
	for _, line := range canonical.AllowSetDescription() {
		if _, err := fmt.Fprintln(stdout, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

var _ cli.Command = (*PatternTestCommand)(nil)

// PatternTestCommand evaluates a single (event, action, installation)
// tuple against the allow-set filter in isolation, without touching the
// platform API, so an operator can check whether a given webhook
// delivery would have been accepted (spec §4.2).
type PatternTestCommand struct {
	cli.BaseCommand

	testFlagSetOpts []cli.Option

	event                    string
	action                   string
	installationID           string
	configuredInstallationID string
}

func (c *PatternTestCommand) Desc() string {
	return `Test whether an event/action/installation tuple is accepted`
}

func (c *PatternTestCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]

Evaluate the allow-set filter against a single (event, action,
installation) tuple and print whether it would be accepted, and if
not, why.`
}

func (c *PatternTestCommand) Flags() *cli.FlagSet {
	set := cli.NewFlagSet(c.testFlagSetOpts...)

	f := set.NewSection("PATTERN OPTIONS")
	f.StringVar(&cli.StringVar{
		Name:   "event",
		Target: &c.event,
		Usage:  `The X-GitHub-Event header value, e.g. "pull_request".`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "action",
		Target: &c.action,
		Usage:  `The payload's "action" field, e.g. "opened".`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "installation-id",
		Target: &c.installationID,
		Usage:  `The installation ID present on the delivery.`,
	})
	f.StringVar(&cli.StringVar{
		Name:   "configured-installation-id",
		Target: &c.configuredInstallationID,
		Usage:  `The GITHUB_INSTALLATION_ID this deployment is configured with.`,
	})

	return set
}

func (c *PatternTestCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if extra := f.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected arguments: %q", extra)
	}
	if c.event == "" {
		return fmt.Errorf("--event is required")
	}
	if c.action == "" {
		return fmt.Errorf("--action is required")
	}

	installationID, err := parseOptionalInt64(c.installationID)
	if err != nil {
		return fmt.Errorf("--installation-id: %w", err)
	}
	configuredInstallationID, err := parseOptionalInt64(c.configuredInstallationID)
	if err != nil {
		return fmt.Errorf("--configured-installation-id: %w", err)
	}

	accepted, reason := canonical.Evaluate(c.event, c.action, installationID, configuredInstallationID)

	stdout := c.Stdout()
	if accepted {
		_, err := fmt.Fprintln(stdout, "accepted")
		return err
	}
	_, err = fmt.Fprintf(stdout, "rejected: %s\n", reason)
	return err
}

// parseOptionalInt64 parses s as a base-10 int64, treating an empty string
// as zero rather than an error.
func parseOptionalInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
