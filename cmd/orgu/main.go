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

// orgu is the CI pipeline's single binary: "front" verifies and
// canonicalizes inbound platform webhooks, "runner" dispatches and
// executes check runs, and "pattern" offers operator helpers for the
// front's event/action allow-set (spec §4.1-§4.8).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	orgucli "github.com/abcxyz/orgu/pkg/cli"
	"github.com/abcxyz/orgu/pkg/config"
	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
)

// commands maps a two-word "group subcommand" pair (e.g. "front server") to
// its implementation. A plain map, not a registry type: no
// cli.CommandRegistry (or equivalent multi-level dispatcher) was ever
// retrieved from the corpus, so this mirrors the teacher's one-command-per-
// binary wiring without inventing an unconfirmed API.
var commands = map[[2]string]func() cli.Command{
	{"front", "server"}:     func() cli.Command { return &orgucli.FrontServerCommand{} },
	{"front", "lambda"}:     func() cli.Command { return &orgucli.FrontLambdaCommand{} },
	{"runner", "server"}:    func() cli.Command { return &orgucli.RunnerServerCommand{} },
	{"runner", "lambda"}:    func() cli.Command { return &orgucli.RunnerLambdaCommand{} },
	{"pattern", "generate"}: func() cli.Command { return &orgucli.PatternGenerateCommand{} },
	{"pattern", "test"}:     func() cli.Command { return &orgucli.PatternTestCommand{} },
}

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()

	logger := logging.NewFromEnv("")
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx, done); err != nil {
		logger.ErrorContext(ctx, "process exited with error", "error", err)
		os.Exit(1)
	}
}

func realMain(ctx context.Context, cancel context.CancelFunc) error {
	logger := logging.FromContext(ctx)

	if len(os.Args) < 3 {
		return fmt.Errorf("usage: orgu <group> <subcommand> [options], one of: %s", commandNames())
	}

	key := [2]string{os.Args[1], os.Args[2]}
	newCmd, ok := commands[key]
	if !ok {
		return fmt.Errorf("unknown command %q (available: %s)", os.Args[1]+" "+os.Args[2], commandNames())
	}
	cmd := newCmd()
	name := key[0] + " " + key[1]

	// ORGU_SHUTDOWN_TIMEOUT bounds how long the process waits for an
	// in-flight dispatch to finish once a shutdown signal arrives (spec
	// §5): the HTTP handler detaches dispatch from the request context
	// (pkg/runnerserver) so a client disconnect never cuts it short, but
	// the process itself must still give up eventually.
	shutdownTimeout := 15 * time.Minute
	if cfg, err := config.New(ctx); err == nil && cfg.OrguShutdownTimeout > 0 {
		shutdownTimeout = cfg.OrguShutdownTimeout
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- cmd.Run(ctx, os.Args[3:])
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
	}

	select {
	case err := <-runErr:
		return err
	case <-time.After(shutdownTimeout):
		logger.ErrorContext(ctx, "shutdown timeout elapsed with work still in flight; terminating", "timeout", shutdownTimeout)
		cancel()
		return fmt.Errorf("shutdown timeout (%s) elapsed before %q finished draining", shutdownTimeout, name)
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for key := range commands {
		names = append(names, key[0]+" "+key[1])
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}
