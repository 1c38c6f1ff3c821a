package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cedarline/schema-propagation/internal/version"
)

func (s *Server) handleGenerateVersion(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upgradeSQL, downgradeSQL, ok := version.Preset(req.Preset)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset: "+req.Preset)
		return
	}

	artifact, err := s.versions.Put(req.Description, upgradeSQL, downgradeSQL, req.RevisionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"version_id": artifact.VersionID,
		"checksum":   artifact.Checksum,
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.versions.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	versionID := mux.Vars(r)["id"]

	artifact, err := s.versions.Get(versionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if artifact == nil {
		writeError(w, http.StatusNotFound, "version not found")
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "cmp_*"
	}

	names, err := s.tenants.List(requestContext(r), pattern)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleStartPropagation(w http.ResponseWriter, r *http.Request) {
	var req PropagateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	artifact, err := s.versions.Get(req.VersionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if artifact == nil {
		writeError(w, http.StatusNotFound, "version not found")
		return
	}

	ctx := requestContext(r)
	databases, err := s.tenants.List(ctx, req.DatabasePattern)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(databases) == 0 {
		writeError(w, http.StatusBadRequest, "no databases found matching pattern")
		return
	}

	job, err := s.engine.Propagate(ctx, artifact.VersionID, artifact.Checksum, artifact.UpgradeSQL, databases, req.MaxConnections, req.DryRun)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":          job.JobID,
		"total_databases": len(databases),
	})
}

func (s *Server) handleGetPropagation(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, ok := s.registry.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, snapshotToDTO(job.Snapshot()))
}

func (s *Server) handleStopPropagation(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if ok := s.registry.RequestStop(jobID); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stop_requested"})
}

func (s *Server) handleSimulateCreate(w http.ResponseWriter, r *http.Request) {
	var req SimulateCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.StartID == 0 {
		req.StartID = 1
	}

	created, err := s.simulator.Create(requestContext(r), req.Count, req.Prefix, req.StartID, req.Template)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"created":   len(created),
		"databases": created,
	})
}

// handleBenchmark creates a throwaway batch of simulated tenant databases,
// propagates a preset artifact across them, tears the batch down, and
// reports per-phase timing plus the propagation job's terminal counters.
func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upgradeSQL, downgradeSQL, ok := version.Preset(req.Preset)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset: "+req.Preset)
		return
	}

	ctx := requestContext(r)

	artifact, err := s.versions.Put("benchmark run", upgradeSQL, downgradeSQL, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	createStart := time.Now()
	databases, err := s.simulator.Create(ctx, req.Count, req.Prefix, 1, req.Template)
	createElapsed := time.Since(createStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(databases) == 0 {
		writeError(w, http.StatusInternalServerError, "no databases were created")
		return
	}

	propagateStart := time.Now()
	job, err := s.engine.Propagate(ctx, artifact.VersionID, artifact.Checksum, artifact.UpgradeSQL, databases, req.MaxConnections, false)
	propagateElapsed := time.Since(propagateStart)
	if err != nil {
		s.simulator.Cleanup(ctx, databases)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cleanupStart := time.Now()
	removed := s.simulator.Cleanup(ctx, databases)
	cleanupElapsed := time.Since(cleanupStart)

	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version_id":         artifact.VersionID,
		"databases_created":  len(databases),
		"databases_removed":  removed,
		"create_seconds":     createElapsed.Seconds(),
		"propagate_seconds":  propagateElapsed.Seconds(),
		"cleanup_seconds":    cleanupElapsed.Seconds(),
		"propagation_result": snapshotToDTO(snap),
	})
}

func (s *Server) handleSimulateCleanup(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "cmp_"
	}

	ctx := requestContext(r)
	names, err := s.tenants.List(ctx, prefix+"*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	removed := s.simulator.Cleanup(ctx, names)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
