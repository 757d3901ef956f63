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

package checkout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeGitRunner records invocations and lets tests script per-arg0
// responses (keyed by the git subcommand, e.g. "init", "fetch").
type fakeGitRunner struct {
	calls   [][]string
	handler func(args []string) (stdout, stderr []byte, err error)
}

func (f *fakeGitRunner) run(ctx context.Context, dir string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, args)
	if f.handler == nil {
		return nil, nil, nil
	}

	type result struct {
		stdout, stderr []byte
		err            error
	}
	ch := make(chan result, 1)
	go func() {
		stdout, stderr, err := f.handler(args)
		ch <- result{stdout: stdout, stderr: stderr, err: err}
	}()

	select {
	case <-ctx.Done():
		// Mirrors exec.CommandContext: cancellation kills the subprocess and
		// Run() returns promptly with an error, rather than hanging forever.
		return nil, nil, ctx.Err()
	case r := <-ch:
		return r.stdout, r.stderr, r.err
	}
}

func testRequest(t *testing.T) Request {
	t.Helper()
	return Request{
		PlatformHost: "github.com",
		Owner:        "acme",
		Name:         "widgets",
		HeadSHA:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Token:        "tok-abc",
		Dest:         filepath.Join(t.TempDir(), "scratch"),
		Timeout:      5 * time.Second,
	}
}

func TestCheckout_Success(t *testing.T) {
	t.Parallel()

	fake := &fakeGitRunner{}
	e := &Engine{git: fake}

	req := testRequest(t)
	if err := e.Checkout(context.Background(), req); err != nil {
		t.Fatalf("Checkout() = %v, want nil", err)
	}

	if _, err := os.Stat(req.Dest); err != nil {
		t.Errorf("expected dest to exist: %v", err)
	}

	var sawCheckout bool
	for _, c := range fake.calls {
		if len(c) > 0 && c[0] == "checkout" {
			sawCheckout = true
		}
	}
	if !sawCheckout {
		t.Error("expected a git checkout invocation")
	}
}

func TestCheckout_WithBaseSHA(t *testing.T) {
	t.Parallel()

	fake := &fakeGitRunner{}
	e := &Engine{git: fake}

	req := testRequest(t)
	req.BaseSHA = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	if err := e.Checkout(context.Background(), req); err != nil {
		t.Fatalf("Checkout() = %v, want nil", err)
	}

	var sawBaseFetch bool
	for _, c := range fake.calls {
		for _, a := range c {
			if a == req.BaseSHA {
				sawBaseFetch = true
			}
		}
	}
	if !sawBaseFetch {
		t.Error("expected a fetch invocation naming the base sha")
	}
}

func TestCheckout_AuthFailureClassified(t *testing.T) {
	t.Parallel()

	fake := &fakeGitRunner{
		handler: func(args []string) ([]byte, []byte, error) {
			if len(args) > 0 && args[0] == "fetch" {
				return nil, []byte("remote: Authentication failed for repository"), errors.New("exit status 128")
			}
			return nil, nil, nil
		},
	}
	e := &Engine{git: fake}

	err := e.Checkout(context.Background(), testRequest(t))
	if !errors.Is(err, ErrCheckoutAuth) {
		t.Fatalf("Checkout() = %v, want ErrCheckoutAuth", err)
	}
}

func TestCheckout_NotFoundClassified(t *testing.T) {
	t.Parallel()

	fake := &fakeGitRunner{
		handler: func(args []string) ([]byte, []byte, error) {
			if len(args) > 0 && args[0] == "fetch" {
				return nil, []byte("remote: Repository not found."), errors.New("exit status 128")
			}
			return nil, nil, nil
		},
	}
	e := &Engine{git: fake}

	err := e.Checkout(context.Background(), testRequest(t))
	if !errors.Is(err, ErrCheckoutNotFound) {
		t.Fatalf("Checkout() = %v, want ErrCheckoutNotFound", err)
	}
}

// TestCheckout_ShallowEscalation exercises the force-push case from spec
// §4.6: the initial shallow fetch fails to surface head_sha, so the
// engine escalates to a full unshallow fetch.
func TestCheckout_ShallowEscalation(t *testing.T) {
	t.Parallel()

	fetchAttempts := 0
	fake := &fakeGitRunner{
		handler: func(args []string) ([]byte, []byte, error) {
			if len(args) > 0 && args[0] == "fetch" {
				fetchAttempts++
				for _, a := range args {
					if a == "--unshallow" {
						return nil, nil, nil
					}
				}
				return nil, []byte("fatal: could not find remote ref"), errors.New("exit status 128")
			}
			return nil, nil, nil
		},
	}
	e := &Engine{git: fake}

	if err := e.Checkout(context.Background(), testRequest(t)); err != nil {
		t.Fatalf("Checkout() = %v, want nil after escalation", err)
	}
	if fetchAttempts < 2 {
		t.Errorf("fetchAttempts = %d, want >= 2 (shallow + unshallow)", fetchAttempts)
	}
}

// TestCheckout_Timeout exercises the wall-clock timeout bound (spec §4.6):
// a git invocation that never returns must be bounded by req.Timeout, and
// the destination must be removed on expiry.
func TestCheckout_Timeout(t *testing.T) {
	t.Parallel()

	blocking := make(chan struct{})
	defer close(blocking)

	fake := &fakeGitRunner{
		handler: func(args []string) ([]byte, []byte, error) {
			if len(args) > 0 && args[0] == "remote" {
				<-blocking
			}
			return nil, nil, nil
		},
	}
	e := &Engine{git: fake}

	req := testRequest(t)
	req.Timeout = 50 * time.Millisecond

	err := e.Checkout(context.Background(), req)
	if !errors.Is(err, ErrCheckoutTimeout) {
		t.Fatalf("Checkout() = %v, want ErrCheckoutTimeout", err)
	}
	if want := "timed out after 50ms"; !strings.Contains(err.Error(), want) {
		t.Errorf("Checkout() error = %q, want substring %q", err.Error(), want)
	}
	if _, statErr := os.Stat(req.Dest); !os.IsNotExist(statErr) {
		t.Errorf("expected dest to be removed after timeout, stat err = %v", statErr)
	}
}

func TestCheckout_DestNotEmptyRejected(t *testing.T) {
	t.Parallel()

	fake := &fakeGitRunner{}
	e := &Engine{git: fake}

	req := testRequest(t)
	if err := os.MkdirAll(req.Dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(req.Dest, "stale"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := e.Checkout(context.Background(), req)
	if !errors.Is(err, ErrCheckoutIO) {
		t.Fatalf("Checkout() = %v, want ErrCheckoutIO", err)
	}
}
