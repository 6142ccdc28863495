package debug

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/hashicorp/go-hclog"
)

// ServePprof starts a local HTTP server exposing the pprof debug
// endpoints. It blocks until the context is cancelled, then shuts the
// server down.
func ServePprof(ctx context.Context, endpoint string) {
	log := hclog.FromContext(ctx).Named("pprof_server")

	router := http.NewServeMux()
	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)

	serve(ctx, log, endpoint, router)
}

// ServeStats starts the runtime introspection server. The snapshot
// function is invoked per request so queue depths and retry states are
// always current.
func ServeStats(ctx context.Context, endpoint string, snapshot func() interface{}) {
	log := hclog.FromContext(ctx).Named("stats_server")

	router := http.NewServeMux()
	router.HandleFunc("/debug/pipelinez", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot()); err != nil {
			log.Error("failed to encode pipeline stats", "error", err)
		}
	})

	serve(ctx, log, endpoint, router)
}

func serve(ctx context.Context, log hclog.Logger, endpoint string, handler http.Handler) {
	srv := &http.Server{
		Addr:         endpoint,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting local debug server", "address", endpoint)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("local debug server error", "error", err)
			return
		}
	}()

	// Wait for the collector to exit, and shutdown the server.
	<-ctx.Done()
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error("error shutting down debug server", "error", err)
	}
}
