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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/abcxyz/pkg/cli"

	"github.com/abcxyz/orgu/pkg/config"
)

// lambdaEvent is the request half of a one-shot function-as-a-service
// invocation: an HTTP method/path/headers/body tuple, the same shape API
// Gateway-style integrations hand a Lambda function. `front lambda` and
// `runner lambda` read one of these from stdin and replay it against the
// same handler the `server` subcommands serve, per spec §6's note that the
// lambda adapters are thin collaborators, not a reimplementation.
type lambdaEvent struct {
	HTTPMethod string            `json:"httpMethod"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// lambdaResponse is the response half.
type lambdaResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

var _ cli.Command = (*FrontLambdaCommand)(nil)

// FrontLambdaCommand replays a single event against the front's handler
// without binding an HTTP port, for function-as-a-service deployments.
type FrontLambdaCommand struct {
	cli.BaseCommand

	cfg config.Config

	testFlagSetOpts []cli.Option
}

func (c *FrontLambdaCommand) Desc() string {
	return `Invoke the front handler once against a single event read from stdin`
}

func (c *FrontLambdaCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options] < event.json

Read a single JSON event (httpMethod, path, headers, body) from stdin,
replay it against the same handler "front server" serves, and print the
JSON response to stdout. Intended for function-as-a-service deployments
where the platform itself owns the HTTP listener.`
}

func (c *FrontLambdaCommand) Flags() *cli.FlagSet {
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *FrontLambdaCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if extra := f.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected arguments: %q", extra)
	}

	mux, closeRelay, err := newFrontHandler(ctx, &c.cfg)
	if err != nil {
		return err
	}
	if closeRelay != nil {
		defer closeRelay() //nolint:errcheck // best-effort cleanup for a one-shot invocation
	}

	return runLambdaEvent(mux, c.Stdin(), c.Stdout())
}

var _ cli.Command = (*RunnerLambdaCommand)(nil)

// RunnerLambdaCommand replays a single event against the runner's handler
// without binding an HTTP port.
type RunnerLambdaCommand struct {
	cli.BaseCommand

	cfg config.Config

	testFlagSetOpts []cli.Option
}

func (c *RunnerLambdaCommand) Desc() string {
	return `Invoke the runner handler once against a single event read from stdin`
}

func (c *RunnerLambdaCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options] < event.json

Read a single JSON event (httpMethod, path, headers, body) from stdin,
replay it against the same handler "runner server" serves, and print
the JSON response to stdout.`
}

func (c *RunnerLambdaCommand) Flags() *cli.FlagSet {
	set := cli.NewFlagSet(c.testFlagSetOpts...)
	c.cfg.ToFlags(set)
	return set
}

func (c *RunnerLambdaCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if extra := f.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected arguments: %q", extra)
	}

	mux, err := newRunnerHandler(ctx, &c.cfg)
	if err != nil {
		return err
	}

	return runLambdaEvent(mux, c.Stdin(), c.Stdout())
}

// runLambdaEvent decodes a lambdaEvent from in, invokes h with it, and
// writes the resulting lambdaResponse to out.
func runLambdaEvent(h http.Handler, in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read event from stdin: %w", err)
	}

	var ev lambdaEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}

	method := ev.HTTPMethod
	if method == "" {
		method = http.MethodPost
	}
	path := ev.Path
	if path == "" {
		path = "/"
	}

	req := httptest.NewRequest(method, path, bytes.NewBufferString(ev.Body))
	for k, v := range ev.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := lambdaResponse{
		StatusCode: rec.Code,
		Headers:    map[string]string{},
		Body:       rec.Body.String(),
	}
	for k := range rec.Header() {
		resp.Headers[k] = rec.Header().Get(k)
	}

	enc := json.NewEncoder(out)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
