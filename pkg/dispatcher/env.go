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
	"os"
	"strconv"
	"strings"

	"github.com/abcxyz/orgu/pkg/checkrequest"
)

// buildEnv derives the job process's environment per spec §4.7 step 5.
func buildEnv(cr *checkrequest.CheckRequest, token, jobName string, passthrough []string) []string {
	env := []string{
		"GITHUB_TOKEN=" + token,
		"ORGU_EVENT_NAME=" + string(cr.EventName),
		"ORGU_ACTION=" + cr.Action,
		"ORGU_REPO=" + cr.Repository.FullName,
		"ORGU_HEAD_SHA=" + cr.Head.SHA,
		"JOB_NAME=" + jobName,
	}

	if cr.Base != nil {
		env = append(env, "ORGU_BASE_SHA="+cr.Base.SHA)
	}
	if cr.PullRequest != nil {
		env = append(env, "ORGU_PR_NUMBER="+strconv.Itoa(cr.PullRequest.Number))
	}

	for k, v := range cr.Repository.CustomProperties {
		env = append(env, "CUSTOM_PROP_"+strings.ToUpper(k)+"="+v)
	}

	for _, name := range passthrough {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}

	return env
}
