// Copyright (c) 2026 John Earle
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

// Package webhook serves the Layer webhook endpoint. Layer POSTs a signed
// JSON body for every subscribed event; the handler hands the raw bytes to
// the sync pipeline and writes back whatever response it produced.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bcem/layersync/internal/models"
	"github.com/bcem/layersync/internal/signature"
	"github.com/bcem/layersync/internal/syncer"
)

// MaxBodyBytes caps the size of an accepted webhook body.
const MaxBodyBytes = 1 << 20

// Processor runs one webhook delivery.
type Processor interface {
	Process(ctx context.Context, env models.Envelope) syncer.Response
}

// HealthCheck is a named dependency probe for /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler serves the webhook, verification and health endpoints.
type Handler struct {
	processor Processor
	checks    []HealthCheck
}

// NewHandler creates a webhook handler.
func NewHandler(processor Processor, checks ...HealthCheck) *Handler {
	return &Handler{
		processor: processor,
		checks:    checks,
	}
}

// Routes returns the HTTP routes for the service.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(allowAnyOrigin)

	for _, path := range []string{"/layer", "/webhook/layer"} {
		r.Post(path, h.ServeWebhook)
		r.Get(path, h.ServeChallenge)
	}
	r.Get("/health", h.ServeHealth)

	return r
}

// ServeWebhook handles a signed webhook delivery.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("webhook body too large", "limit", MaxBodyBytes)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		slog.Error("failed to read webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read request body"})
		return
	}

	resp := h.processor.Process(r.Context(), models.Envelope{
		Body:      body,
		Signature: r.Header.Get(signature.Header),
	})
	writeJSON(w, resp.StatusCode, resp.Body)
}

// ServeChallenge answers the verification request Layer sends when a
// webhook is registered by echoing the challenge back.
func (h *Handler) ServeChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("verification_challenge")
	if challenge != "" {
		slog.Info("webhook verification challenge received")
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// ServeHealth reports whether every configured dependency responds.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			slog.Warn("health check failed", "dependency", check.Name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": check.Name + " unhealthy",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// allowAnyOrigin lets browser-based tools call the endpoint.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+signature.Header)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Serve starts the webhook HTTP server on the given port.
// It binds the port immediately and signals readiness via the first returned
// channel before starting to accept connections. The second channel closes
// once in-flight requests have drained after ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) (<-chan struct{}, <-chan struct{}, error) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind webhook port %d: %w", port, err)
	}

	ready := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		slog.Info("webhook server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("webhook server shutdown error", "error", err)
			server.Close()
		}
	}()

	go func() {
		slog.Info("webhook server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("webhook server error", "error", err)
		}
	}()

	return ready, done, nil
}
