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

// Package checkout performs scoped, installation-token-authenticated
// shallow clones of a single repository at a single commit (spec §4.6).
package checkout

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultDepth is the shallow-clone depth used when a Request does not
// specify one.
const defaultDepth = 1

// grace period for the dispatcher's git subprocesses isn't needed here;
// the engine's own timeout bounds the whole operation (spec §4.6).

// Request describes a single checkout.
type Request struct {
	PlatformHost string // e.g. "github.com"
	Owner        string
	Name         string
	HeadSHA      string
	BaseSHA      string // optional; empty means "not needed"
	Token        string // installation token, embedded in the remote URL
	Dest         string // must not exist, or must be an empty directory
	Depth        int    // shallow-clone depth; 0 means defaultDepth
	Timeout      time.Duration
}

func (r Request) depth() int {
	if r.Depth <= 0 {
		return defaultDepth
	}
	return r.Depth
}

func (r Request) remoteURL() string {
	return fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", r.Token, r.PlatformHost, r.Owner, r.Name)
}

// Engine performs checkouts by shelling out to the system git binary
// (the corpus's buildkite-agent and gopherci treat the VCS tool as an
// external process rather than a pure-Go library; this follows suit).
type Engine struct {
	git gitRunner
}

// New returns an Engine backed by the system git binary.
func New() *Engine {
	return &Engine{git: execGitRunner{}}
}

// Checkout performs the scoped clone described by req. Blocking file and
// network I/O run on a dedicated goroutine via errgroup so the caller
// never blocks its own goroutine on the subprocess pipeline; the caller
// observes this as a single suspend point.
func (e *Engine) Checkout(ctx context.Context, req Request) error {
	if err := validateDest(req.Dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckoutIO, err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.run(gctx, req)
	})

	err := g.Wait()
	if err != nil {
		os.RemoveAll(req.Dest) //nolint:errcheck // best-effort cleanup on failure
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s: %v", ErrCheckoutTimeout, req.Timeout, err)
		}
		return err
	}
	return nil
}

func validateDest(dest string) error {
	info, err := os.Stat(dest)
	if os.IsNotExist(err) {
		return os.MkdirAll(dest, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%q exists and is not a directory", dest)
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%q exists and is not empty", dest)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, req Request) error {
	if err := e.gitInit(ctx, req); err != nil {
		return err
	}
	if err := e.fetchHead(ctx, req); err != nil {
		return err
	}
	if err := e.checkoutHead(ctx, req); err != nil {
		return err
	}
	if req.BaseSHA != "" {
		if err := e.fetchRef(ctx, req, req.BaseSHA); err != nil {
			return fmt.Errorf("%w: fetching base sha: %v", ErrCheckoutFetch, err)
		}
	}
	return nil
}

func (e *Engine) gitInit(ctx context.Context, req Request) error {
	if _, stderr, err := e.git.run(ctx, req.Dest, "init", "--quiet"); err != nil {
		return fmt.Errorf("%w: git init: %s", ErrCheckoutIO, firstLine(stderr))
	}
	if _, stderr, err := e.git.run(ctx, req.Dest, "remote", "add", "origin", req.remoteURL()); err != nil {
		return fmt.Errorf("%w: git remote add: %s", ErrCheckoutIO, firstLine(stderr))
	}
	return nil
}

// fetchHead fetches head_sha shallowly, escalating to a full unshallow
// fetch if the object isn't reachable from the default shallow window
// (the force-push case named in spec §4.6).
func (e *Engine) fetchHead(ctx context.Context, req Request) error {
	depthFlag := fmt.Sprintf("--depth=%d", req.depth())
	_, stderr, err := e.git.run(ctx, req.Dest, "fetch", depthFlag, "origin", req.HeadSHA)
	if err == nil {
		return nil
	}

	if classifyFetchError(stderr) == ErrCheckoutAuth {
		return fmt.Errorf("%w: %s", ErrCheckoutAuth, firstLine(stderr))
	}
	if classifyFetchError(stderr) == ErrCheckoutNotFound {
		return fmt.Errorf("%w: %s", ErrCheckoutNotFound, firstLine(stderr))
	}

	// Escalate: the shallow window didn't include head_sha. Fall back to a
	// full fetch of the branch history.
	_, stderr2, err2 := e.git.run(ctx, req.Dest, "fetch", "--unshallow", "origin")
	if err2 != nil {
		// If there's nothing to unshallow from (fresh repo, first fetch
		// already failed outright), try a depth-less fetch instead.
		_, stderr3, err3 := e.git.run(ctx, req.Dest, "fetch", "origin", req.HeadSHA)
		if err3 != nil {
			return fmt.Errorf("%w: %s", ErrCheckoutFetch, firstLine(stderr3))
		}
		return nil
	}
	_ = stderr2
	return nil
}

func (e *Engine) fetchRef(ctx context.Context, req Request, sha string) error {
	_, stderr, err := e.git.run(ctx, req.Dest, "fetch", "--depth=1", "origin", sha)
	if err != nil {
		return fmt.Errorf("%s", firstLine(stderr))
	}
	return nil
}

func (e *Engine) checkoutHead(ctx context.Context, req Request) error {
	if _, stderr, err := e.git.run(ctx, req.Dest, "checkout", "--detach", req.HeadSHA); err != nil {
		return fmt.Errorf("%w: git checkout: %s", ErrCheckoutFetch, firstLine(stderr))
	}
	return nil
}

func classifyFetchError(stderr []byte) error {
	s := strings.ToLower(string(stderr))
	switch {
	case strings.Contains(s, "authentication failed"), strings.Contains(s, "403"), strings.Contains(s, "permission denied"):
		return ErrCheckoutAuth
	case strings.Contains(s, "not found"), strings.Contains(s, "404"), strings.Contains(s, "repository not found"):
		return ErrCheckoutNotFound
	default:
		return ErrCheckoutFetch
	}
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
