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
	"time"

	"cloud.google.com/go/pubsub"
	goretry "github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/orgu/pkg/checkrequest"
)

// detailTypeAttribute is the Pub/Sub message attribute carrying the
// envelope's logical type, per spec §4.3.
const (
	detailTypeAttribute = "detail-type"
	detailTypeValue     = "orgu.CheckRequest"
)

// busPublishBackoffInitialDelay and busPublishMaxAttempts bound the bus
// relay's own retry of transient publish failures, on top of whatever the
// Pub/Sub client's transport already retries. This is a property of the
// bus transport, not the "caller decides" no-retry rule spec §4.4 states
// for checkout/platform calls.
const (
	busPublishBackoffInitialDelay = 100 * time.Millisecond
	busPublishMaxAttempts         = 3
)

// publisherTopic is the subset of *pubsub.Topic behavior the bus relay
// depends on, reduced to a synchronous (id, error) result so tests can
// substitute a fake without constructing a real *pubsub.PublishResult.
type publisherTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) (serverID string, err error)
}

// topicAdapter adapts a real *pubsub.Topic to publisherTopic, blocking on
// the publish result the way the front's fire-and-forget contract
// requires (spec §4.3: the front awaits publish before responding).
type topicAdapter struct {
	topic *pubsub.Topic
}

func (a *topicAdapter) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	return a.topic.Publish(ctx, msg).Get(ctx)
}

// busRelay submits the envelope as a single message to a managed event
// bus (spec §4.3, "Bus"): the entire JSON document is the message body,
// and detail-type is carried as a message attribute.
type busRelay struct {
	topic publisherTopic
}

var _ Relay = (*busRelay)(nil)

// NewBusRelay wraps an already-configured Pub/Sub topic handle
// (ORGU_EVENT_BUS_PROJECT / ORGU_EVENT_BUS_NAME) as a Relay. Callers own
// the *pubsub.Client's lifecycle (Close).
func NewBusRelay(topic *pubsub.Topic) Relay {
	return &busRelay{topic: &topicAdapter{topic: topic}}
}

// Publish implements Relay.
func (r *busRelay) Publish(ctx context.Context, cr *checkrequest.CheckRequest) error {
	body, err := cr.Encode()
	if err != nil {
		return failedf("encode check request: %v", err)
	}

	msg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			detailTypeAttribute: detailTypeValue,
		},
	}

	logger := logging.FromContext(ctx)
	backoff := goretry.WithMaxRetries(busPublishMaxAttempts-1, goretry.NewExponential(busPublishBackoffInitialDelay))

	if err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := r.topic.Publish(ctx, msg); err != nil {
			if isTransientPublishError(err) {
				logger.WarnContext(ctx, "retrying transient bus publish failure", "error", err)
				return goretry.RetryableError(err)
			}
			return err
		}
		return nil
	}); err != nil {
		return failedf("publish to bus: %v", err)
	}
	return nil
}

// isTransientPublishError reports whether err is worth retrying: the
// Pub/Sub service being momentarily unavailable, overloaded, or slow,
// rather than a permanent misconfiguration (bad topic, permission denied).
func isTransientPublishError(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
