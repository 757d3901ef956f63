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

package jobexec

import (
	"context"
	"testing"
	"time"

	"github.com/abcxyz/pkg/logging"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logging.WithLogger(context.Background(), logging.TestLogger(t))
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	e := New()
	outcome, err := e.Run(testContext(t), Request{
		Argv:    []string{"/bin/sh", "-c", "echo hello; echo world 1>&2"},
		Dir:     t.TempDir(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", outcome.ExitCode)
	}
	if outcome.SpawnErr != nil {
		t.Errorf("SpawnErr = %v, want nil", outcome.SpawnErr)
	}
	if outcome.TimedOut {
		t.Error("TimedOut = true, want false")
	}
	if len(outcome.Tail) == 0 {
		t.Error("expected non-empty tail")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()

	e := New()
	outcome, err := e.Run(testContext(t), Request{
		Argv:    []string{"/bin/sh", "-c", "exit 3"},
		Dir:     t.TempDir(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if outcome.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", outcome.ExitCode)
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	e := New()
	outcome, err := e.Run(testContext(t), Request{
		Argv:    []string{"/bin/sh", "-c", "trap '' TERM; sleep 30"},
		Dir:     t.TempDir(),
		Timeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if !outcome.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if !outcome.Signaled {
		t.Error("Signaled = false, want true (expected SIGKILL escalation)")
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	t.Parallel()

	e := New()
	outcome, err := e.Run(testContext(t), Request{
		Argv:    []string{"/nonexistent/binary/path"},
		Dir:     t.TempDir(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if outcome.SpawnErr == nil {
		t.Error("expected a non-nil SpawnErr")
	}
}

func TestRun_EmptyArgv(t *testing.T) {
	t.Parallel()

	e := New()
	_, err := e.Run(testContext(t), Request{Dir: t.TempDir(), Timeout: time.Second})
	if err == nil {
		t.Fatal("expected an error for empty argv")
	}
}
