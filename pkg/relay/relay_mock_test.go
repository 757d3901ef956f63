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

package relay

import (
	"context"

	"cloud.google.com/go/pubsub"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mockPublisherTopic is a test double for publisherTopic that records the
// last published message and lets tests force a publish-time error.
type mockPublisherTopic struct {
	lastMsg *pubsub.Message
	calls   int
	err     error
}

func (m *mockPublisherTopic) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	m.calls++
	m.lastMsg = msg
	if m.err != nil {
		return "", m.err
	}
	return "mock-id", nil
}

// flakyPublisherTopic fails with a transient error the first failCount
// calls, then succeeds.
type flakyPublisherTopic struct {
	failCount int
	calls     int
	lastMsg   *pubsub.Message
}

func (m *flakyPublisherTopic) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	m.calls++
	m.lastMsg = msg
	if m.calls <= m.failCount {
		return "", status.Error(codes.Unavailable, "service unavailable")
	}
	return "mock-id", nil
}
