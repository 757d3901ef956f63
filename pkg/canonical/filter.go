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

package canonical

import (
	"fmt"
	"sort"

	"github.com/abcxyz/orgu/pkg/checkrequest"
)

// allowedActions implements the allow-set from spec §4.2. Any
// (event_name, action) pair not present here is ignored, never an error —
// this is testable property #2, "filter totality".
var allowedActions = map[checkrequest.EventName]map[string]bool{
	checkrequest.EventPullRequest: {
		"opened":           true,
		"synchronize":      true,
		"reopened":         true,
		"ready_for_review": true,
	},
	checkrequest.EventCheckSuite: {
		"rerequested": true,
	},
	checkrequest.EventCheckRun: {
		"rerequested": true,
	},
}

// isAllowedAction reports whether action is in the allow-set for eventName.
// Unknown event names are never allowed.
func isAllowedAction(eventName checkrequest.EventName, action string) bool {
	set, ok := allowedActions[eventName]
	if !ok {
		return false
	}
	return set[action]
}

// isRerunEvent reports whether eventName is one of the check_* rerun kinds
// that are additionally filtered by installation ID (spec §4.2).
func isRerunEvent(eventName checkrequest.EventName) bool {
	return eventName == checkrequest.EventCheckSuite || eventName == checkrequest.EventCheckRun
}

// Evaluate runs the action/installation allow-list filter in isolation,
// without touching the platform API, for the `pattern test` operator
// helper. It reports whether the tuple would be accepted, and if not, why.
func Evaluate(eventName, action string, installationID, configuredInstallationID int64) (accepted bool, reason string) {
	name := checkrequest.EventName(eventName)

	if !isAllowedAction(name, action) {
		return false, fmt.Sprintf("action %q not in allow-set for %s", action, name)
	}
	if isRerunEvent(name) && installationID != configuredInstallationID {
		return false, fmt.Sprintf("installation %d does not match configured installation %d", installationID, configuredInstallationID)
	}
	return true, ""
}

// AllowSetDescription renders the allow-set as human-readable lines, one
// per (event, action) pair, for the `pattern generate` operator helper.
func AllowSetDescription() []string {
	var events []string
	for name := range allowedActions {
		events = append(events, string(name))
	}
	sort.Strings(events)

	var lines []string
	for _, eventStr := range events {
		name := checkrequest.EventName(eventStr)
		var actions []string
		for action := range allowedActions[name] {
			actions = append(actions, action)
		}
		sort.Strings(actions)

		for _, action := range actions {
			line := fmt.Sprintf("%s.%s", eventStr, action)
			if isRerunEvent(name) {
				line += " (filtered by installation ID)"
			}
			lines = append(lines, line)
		}
	}
	return lines
}
