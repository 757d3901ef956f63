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

package dispatcher

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abcxyz/orgu/pkg/jobexec"
	"github.com/abcxyz/orgu/pkg/platform"
)

// maxSummaryBytes bounds the check-run output.summary field (GitHub caps
// it at 64 KiB; spec §6 cites the same figure).
const maxSummaryBytes = 64 * 1024

// conclusionFor maps a job outcome to a check-run conclusion per spec
// §4.7 step 7.
func conclusionFor(o *jobexec.Outcome) string {
	switch {
	case o.SpawnErr != nil:
		return "failure"
	case o.TimedOut:
		return "failure"
	case o.Signaled:
		return "failure"
	case o.ExitCode != 0:
		return "failure"
	default:
		return "success"
	}
}

// outputFor builds the check-run output block for a completed job run.
func outputFor(jobName string, o *jobexec.Outcome) *platform.CheckRunOutput {
	var b strings.Builder
	fmt.Fprintf(&b, "duration: %s\n", o.Duration.Round(time.Millisecond))

	switch {
	case o.SpawnErr != nil:
		fmt.Fprintf(&b, "stage: spawn\nerror: %s\n", o.SpawnErr)
	case o.TimedOut:
		fmt.Fprintf(&b, "outcome: timed out and was killed\n")
	case o.Signaled:
		fmt.Fprintf(&b, "outcome: killed by signal\n")
	default:
		fmt.Fprintf(&b, "exit status: %d\n", o.ExitCode)
	}

	if len(o.Tail) > 0 {
		b.WriteString("\n--- output tail ---\n")
		b.Write(o.Tail)
	}

	return &platform.CheckRunOutput{
		Title:   jobName,
		Summary: truncateUTF8(b.String(), maxSummaryBytes),
	}
}

// failureOutput builds the output block for a pre-job failure (token
// mint, checkout, or spawn failure), identifying the stage at which it
// occurred (spec §4.7 step 4: "a summary identifying the checkout
// stage").
func failureOutput(jobName, stage string, elapsed time.Duration, err error, _ *jobexec.Outcome) *platform.CheckRunOutput {
	summary := fmt.Sprintf("duration: %s\nstage: %s\nerror: %s\n", elapsed.Round(time.Millisecond), stage, err)
	return &platform.CheckRunOutput{
		Title:   jobName,
		Summary: truncateUTF8(summary, maxSummaryBytes),
	}
}

// truncateUTF8 truncates s to at most max bytes, dropping a trailing
// partial rune rather than splitting it.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	b := []byte(s)[:max]

	i := len(b)
	for i > 0 && !utf8.RuneStart(b[i-1]) {
		i--
	}
	if i > 0 && !utf8.FullRune(b[i-1:]) {
		b = b[:i-1]
	}
	return string(b)
}
