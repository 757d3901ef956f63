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
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abcxyz/orgu/pkg/checkrequest"
)

// httpRelay POSTs the envelope's JSON encoding to a fixed endpoint. It
// backs both the HTTP-relay variant (spec §4.3, "POSTs JSON to a
// configured endpoint") and the direct-to-runner variant, which is the
// same behavior pointed at the runner's own /run endpoint.
type httpRelay struct {
	endpoint   string
	httpClient *http.Client
}

var _ Relay = (*httpRelay)(nil)

// NewHTTPRelay returns a Relay that POSTs to a statically configured
// relay endpoint (ORGU_EVENT_QUEUE_RELAY_ENDPOINT).
func NewHTTPRelay(endpoint string, httpClient *http.Client) Relay {
	return &httpRelay{endpoint: endpoint, httpClient: httpClientOrDefault(httpClient)}
}

// NewDirectRelay returns a Relay that POSTs to the runner's own /run
// endpoint, the default local-loop variant (spec §4.3 "Direct").
func NewDirectRelay(runnerEndpoint string, httpClient *http.Client) Relay {
	endpoint := strings.TrimSuffix(runnerEndpoint, "/") + "/run"
	return &httpRelay{endpoint: endpoint, httpClient: httpClientOrDefault(httpClient)}
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Publish implements Relay.
func (r *httpRelay) Publish(ctx context.Context, cr *checkrequest.CheckRequest) error {
	body, err := cr.Encode()
	if err != nil {
		return failedf("encode check request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return failedf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return failedf("POST %s: %v", r.endpoint, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain to allow connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failedf("POST %s: unexpected status %s", r.endpoint, resp.Status)
	}
	return nil
}
