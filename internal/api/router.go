// Package api exposes the Propagation Engine and its supporting components
// over HTTP: version authoring, database discovery, propagation lifecycle,
// progress streaming, and simulator batches.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/cedarline/schema-propagation/internal/engine"
	"github.com/cedarline/schema-propagation/internal/registry"
	"github.com/cedarline/schema-propagation/internal/simulator"
	"github.com/cedarline/schema-propagation/internal/streamer"
	"github.com/cedarline/schema-propagation/internal/tenant"
	"github.com/cedarline/schema-propagation/internal/version"
)

// Server wires the domain packages into an HTTP surface.
type Server struct {
	versions  *version.Store
	tenants   *tenant.Directory
	engine    *engine.Engine
	registry  *registry.Registry
	streamer  *streamer.Streamer
	simulator *simulator.Simulator
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewServer creates a Server bound to the given components.
func NewServer(versions *version.Store, tenants *tenant.Directory, eng *engine.Engine, reg *registry.Registry, strm *streamer.Streamer, sim *simulator.Simulator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		versions:  versions,
		tenants:   tenants,
		engine:    eng,
		registry:  reg,
		streamer:  strm,
		simulator: sim,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Router builds the gorilla/mux router exposing every caller-facing operation.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/versions", s.handleGenerateVersion).Methods(http.MethodPost)
	r.HandleFunc("/versions", s.handleListVersions).Methods(http.MethodGet)
	r.HandleFunc("/versions/{id}", s.handleGetVersion).Methods(http.MethodGet)

	r.HandleFunc("/databases", s.handleListDatabases).Methods(http.MethodGet)

	r.HandleFunc("/propagate", s.handleStartPropagation).Methods(http.MethodPost)
	r.HandleFunc("/propagate/{id}", s.handleGetPropagation).Methods(http.MethodGet)
	r.HandleFunc("/propagate/{id}/stream", s.handleStreamPropagation).Methods(http.MethodGet)
	r.HandleFunc("/propagate/{id}/ws", s.handleStreamPropagationWS).Methods(http.MethodGet)
	r.HandleFunc("/propagate/{id}/stop", s.handleStopPropagation).Methods(http.MethodPost)

	r.HandleFunc("/simulate/create", s.handleSimulateCreate).Methods(http.MethodPost)
	r.HandleFunc("/simulate/cleanup", s.handleSimulateCleanup).Methods(http.MethodDelete)
	r.HandleFunc("/benchmark", s.handleBenchmark).Methods(http.MethodPost)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func requestContext(r *http.Request) context.Context {
	return r.Context()
}
