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

// Package frontserver is the front process's HTTP surface: it receives
// platform webhooks, verifies and canonicalizes them, and relays the
// result onward (spec §4.8).
package frontserver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/abcxyz/pkg/healthcheck"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/renderer"
	"github.com/abcxyz/orgu/pkg/canonical"
	"github.com/abcxyz/orgu/pkg/relay"
	"github.com/abcxyz/orgu/pkg/verifier"
	"github.com/abcxyz/orgu/pkg/version"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
	deliveryHeader  = "X-GitHub-Delivery"

	// maxBodyBytes bounds the inbound webhook payload the front will read,
	// matching GitHub's own delivery size cap.
	maxBodyBytes = 25 * 1024 * 1024
)

// Server is the front process's HTTP surface.
type Server struct {
	h             *renderer.Renderer
	webhookSecret []byte
	canon         *canonical.Canonicalizer
	relay         relay.Relay
}

// New constructs a Server.
func New(h *renderer.Renderer, webhookSecret []byte, canon *canonical.Canonicalizer, rl relay.Relay) *Server {
	return &Server{
		h:             h,
		webhookSecret: webhookSecret,
		canon:         canon,
		relay:         rl,
	}
}

// Routes builds the ServeMux for the front process.
func (s *Server) Routes(ctx context.Context) http.Handler {
	logger := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("GET /health", healthcheck.HandleHTTPHealthCheck())
	mux.Handle("GET /version", s.handleVersion())
	mux.Handle("POST /github/events", s.handleEvents())

	return logging.HTTPInterceptor(logger, "")(mux)
}

func (s *Server) handleVersion() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.h.RenderJSON(w, http.StatusOK, map[string]string{
			"version": version.HumanVersion,
		})
	})
}

// handleEvents implements POST /github/events per spec §4.1-§4.3, §4.8:
// verify the signature, canonicalize the payload, relay the result.
func (s *Server) handleEvents() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		eventName := r.Header.Get(eventHeader)
		deliveryID := r.Header.Get(deliveryHeader)
		sigHeader := r.Header.Get(signatureHeader)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			logger.ErrorContext(ctx, "failed to read webhook body", "error", err, "delivery_id", deliveryID)
			s.h.RenderJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
			return
		}
		if len(body) > maxBodyBytes {
			s.h.RenderJSON(w, http.StatusBadRequest, map[string]string{"error": "request body too large"})
			return
		}

		if err := verifier.Verify(body, sigHeader, s.webhookSecret); err != nil {
			logger.WarnContext(ctx, "signature verification failed", "error", err, "delivery_id", deliveryID)
			s.h.RenderJSON(w, http.StatusUnauthorized, map[string]string{"error": "signature verification failed"})
			return
		}

		cr, err := s.canon.Canonicalize(ctx, eventName, body)
		if err != nil {
			var ignoredErr *canonical.IgnoredError
			if errors.As(err, &ignoredErr) {
				logger.InfoContext(ctx, "event ignored", "reason", ignoredErr.Reason, "delivery_id", deliveryID, "event", eventName)
				s.h.RenderJSON(w, http.StatusOK, map[string]string{"ignored": ignoredErr.Reason})
				return
			}
			logger.WarnContext(ctx, "malformed payload", "error", err, "delivery_id", deliveryID, "event", eventName)
			s.h.RenderJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if err := s.relay.Publish(ctx, cr); err != nil {
			logger.ErrorContext(ctx, "failed to relay check request", "error", err, "delivery_id", deliveryID, "repo", cr.Repository.FullName)
			s.h.RenderJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to relay check request"})
			return
		}

		logger.InfoContext(ctx, "check request relayed", "delivery_id", deliveryID, "event", eventName, "repo", cr.Repository.FullName, "head_sha", cr.Head.SHA)
		s.h.RenderJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	})
}
