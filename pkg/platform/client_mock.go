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

package platform

import "context"

var _ Client = (*MockClient)(nil)

// MockClient is a mock of Client for tests, following the teacher's
// *Func/*Calls mock idiom.
type MockClient struct {
	CreateCheckRunF     func(ctx context.Context, installationID int64, owner, repo, headSHA, jobName string) (int64, error)
	CreateCheckRunCalls int

	UpdateCheckRunF     func(ctx context.Context, installationID int64, owner, repo string, checkRunID int64, update CheckRunUpdate) error
	UpdateCheckRunCalls []CheckRunUpdate

	GetRepositoryCustomPropertiesF func(ctx context.Context, installationID int64, owner, repo string) (map[string]string, error)
}

// CreateCheckRun implements Client.
func (m *MockClient) CreateCheckRun(ctx context.Context, installationID int64, owner, repo, headSHA, jobName string) (int64, error) {
	m.CreateCheckRunCalls++
	return m.CreateCheckRunF(ctx, installationID, owner, repo, headSHA, jobName)
}

// UpdateCheckRun implements Client.
func (m *MockClient) UpdateCheckRun(ctx context.Context, installationID int64, owner, repo string, checkRunID int64, update CheckRunUpdate) error {
	m.UpdateCheckRunCalls = append(m.UpdateCheckRunCalls, update)
	return m.UpdateCheckRunF(ctx, installationID, owner, repo, checkRunID, update)
}

// GetRepositoryCustomProperties implements Client.
func (m *MockClient) GetRepositoryCustomProperties(ctx context.Context, installationID int64, owner, repo string) (map[string]string, error) {
	if m.GetRepositoryCustomPropertiesF == nil {
		return nil, nil
	}
	return m.GetRepositoryCustomPropertiesF(ctx, installationID, owner, repo)
}
