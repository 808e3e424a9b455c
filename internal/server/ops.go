package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jbjoujoute/hive/internal/infra/storage"
)

// OpsServer exposes health and metrics endpoints next to the gRPC port.
type OpsServer struct {
	store  storage.CatalogStore
	server *http.Server
}

// NewOpsServer wires /health and /metrics.
func NewOpsServer(store storage.CatalogStore, port int) *OpsServer {
	mux := http.NewServeMux()
	s := &OpsServer{
		store: store,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *OpsServer) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *OpsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
