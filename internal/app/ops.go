package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type opsIndex struct {
	Service    string   `json:"service"`
	Generation uint64   `json:"generation"`
	Endpoints  []string `json:"endpoints"`
}

// OpsHandler serves metrics and health probes without the API middleware,
// for scraping on a separate port.
func (a *App) OpsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", a.Metrics.Handler())
	mux.HandleFunc("GET /health/live", a.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", a.Health.ReadyHandler())
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(opsIndex{
			Service:    "docsearch",
			Generation: a.Engine.Generation(),
			Endpoints:  []string{"/metrics", "/health/live", "/health/ready"},
		})
	})
	return mux
}

// startOpsServer serves OpsHandler on port and returns its shutdown func.
func (a *App) startOpsServer(port int) func(context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      a.OpsHandler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		a.logger.Info("ops server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("ops server error", "error", err)
		}
	}()
	return server.Shutdown
}
