// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// healthServer serves the health_check extension endpoint. It reports
// not-ready until every receiver has bound its source, ready while the
// collector is serving, and not-ready again the moment shutdown begins.
type healthServer struct {
	logger hclog.Logger

	server *http.Server

	// health server control
	errorExitCh chan struct{}
	ready       bool
	running     bool
	mu          sync.Mutex
}

func newHealthServer(endpoint string) *healthServer {
	hs := &healthServer{
		errorExitCh: make(chan struct{}, 1),
		mu:          sync.Mutex{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", hs.handle)
	hs.server = &http.Server{
		Addr:    endpoint,
		Handler: mux,
	}
	return hs
}

func (hs *healthServer) start(ctx context.Context) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.running {
		return
	}
	hs.logger = hclog.FromContext(ctx).Named("health")
	hs.running = true

	go func() {
		<-ctx.Done()
		hs.stop()
	}()

	go func() {
		hs.logger.Info("starting health check server", "address", hs.server.Addr)
		err := hs.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			hs.logger.Error("failed to serve health check requests", "error", err)
			close(hs.errorExitCh)
		}
	}()
}

func (hs *healthServer) stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.running = false

	hs.logger.Info("stopping the health check server")
	if err := hs.server.Close(); err != nil {
		hs.logger.Warn("error while closing health check server", "error", err)
	}
}

// setReady flips the readiness state. Called with true once all receivers
// are live, and with false when shutdown starts.
func (hs *healthServer) setReady(ready bool) {
	hs.mu.Lock()
	hs.ready = ready
	hs.mu.Unlock()
}

// exited signals that the health server failed unexpectedly.
func (hs *healthServer) exited() <-chan struct{} {
	return hs.errorExitCh
}

func (hs *healthServer) handle(w http.ResponseWriter, _ *http.Request) {
	hs.mu.Lock()
	ready := hs.ready
	hs.mu.Unlock()

	code := http.StatusServiceUnavailable
	statusText := "not-ready"
	if ready {
		code = http.StatusOK
		statusText = "ready"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": statusText}) // nolint:errcheck
}
