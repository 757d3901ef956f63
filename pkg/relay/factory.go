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
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/pubsub"
)

// Config is the subset of process configuration the relay factory needs to
// pick a variant, mirroring spec §6's selection order: HTTP relay endpoint
// first, then managed bus, else direct to the runner.
type Config struct {
	QueueRelayEndpoint string
	EventBusProject    string
	EventBusName       string
	RunnerEndpoint     string
}

// New selects and constructs the configured Relay variant. The returned
// io.Closer-like cleanup, if any, is the caller's responsibility; bus
// relays hold a *pubsub.Client the caller must Close on shutdown, returned
// as the second value (a no-op for the other variants).
func New(ctx context.Context, cfg Config, httpClient *http.Client) (Relay, func() error, error) {
	switch {
	case strings.TrimSpace(cfg.QueueRelayEndpoint) != "":
		return NewHTTPRelay(cfg.QueueRelayEndpoint, httpClient), noopClose, nil

	case strings.TrimSpace(cfg.EventBusName) != "":
		if strings.TrimSpace(cfg.EventBusProject) == "" {
			return nil, nil, fmt.Errorf("ORGU_EVENT_BUS_PROJECT is required when ORGU_EVENT_BUS_NAME is set")
		}
		client, err := pubsub.NewClient(ctx, cfg.EventBusProject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		topic := client.Topic(cfg.EventBusName)
		return NewBusRelay(topic), client.Close, nil

	default:
		return NewDirectRelay(cfg.RunnerEndpoint, httpClient), noopClose, nil
	}
}

func noopClose() error { return nil }
