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

// Package runnerserver is the runner process's HTTP surface: it accepts a
// CheckRequest from the front (or queue subscriber) and drives it through
// the dispatcher (spec §4.8).
package runnerserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/abcxyz/pkg/healthcheck"
	"github.com/abcxyz/pkg/logging"
	"github.com/abcxyz/pkg/renderer"
	"github.com/abcxyz/orgu/pkg/checkrequest"
	"github.com/abcxyz/orgu/pkg/version"
)

// dispatcher is the subset of *dispatcher.Dispatcher the server depends on,
// narrowed so tests can substitute a fake.
type dispatcher interface {
	Dispatch(ctx context.Context, cr *checkrequest.CheckRequest) error
}

// Server is the runner process's HTTP surface.
type Server struct {
	h    *renderer.Renderer
	disp dispatcher
}

// New constructs a Server.
func New(h *renderer.Renderer, disp dispatcher) *Server {
	return &Server{h: h, disp: disp}
}

// Routes builds the ServeMux for the runner process.
func (s *Server) Routes(ctx context.Context) http.Handler {
	logger := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("GET /health", healthcheck.HandleHTTPHealthCheck())
	mux.Handle("GET /version", s.handleVersion())
	mux.Handle("POST /run", s.handleRun())

	return logging.HTTPInterceptor(logger, "")(mux)
}

func (s *Server) handleVersion() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.h.RenderJSON(w, http.StatusOK, map[string]string{
			"version": version.HumanVersion,
		})
	})
}

// handleRun implements POST /run. Per spec §4.8 and §5, the dispatch is
// detached from the inbound request's context so that a client disconnect
// does not cancel an in-flight check run: the response is only sent once
// Dispatch returns, at which point the terminal check-run update has
// already been attempted (or step 1 failed outright).
func (s *Server) handleRun() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqCtx := r.Context()
		logger := logging.FromContext(reqCtx)

		var cr checkrequest.CheckRequest
		if err := json.NewDecoder(r.Body).Decode(&cr); err != nil {
			logger.WarnContext(reqCtx, "malformed check request body", "error", err)
			s.h.RenderJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed check request body"})
			return
		}
		if err := cr.Validate(); err != nil {
			logger.WarnContext(reqCtx, "invalid check request", "error", err)
			s.h.RenderJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		dispatchCtx := logging.WithLogger(context.WithoutCancel(reqCtx), logger)
		if err := s.disp.Dispatch(dispatchCtx, &cr); err != nil {
			logger.ErrorContext(reqCtx, "dispatch failed before check run could be opened", "error", err, "repo", cr.Repository.FullName)
			s.h.RenderJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to open check run"})
			return
		}

		s.h.RenderJSON(w, http.StatusOK, map[string]string{"status": "completed"})
	})
}
