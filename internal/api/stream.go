package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cedarline/schema-propagation/internal/registry"
)

func marshalSnapshot(snap registry.Snapshot) ([]byte, error) {
	return json.Marshal(snapshotToDTO(snap))
}

// snapshotDTO is the caller-facing shape of a registry.Snapshot.
type snapshotDTO struct {
	JobID      string              `json:"job_id"`
	Status     registry.Status     `json:"status"`
	Total      int                 `json:"total"`
	Completed  int                 `json:"completed"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Skipped    int                 `json:"skipped"`
	RateDBPerS float64             `json:"rate"`
	ETASeconds float64             `json:"eta_seconds"`
	Errors     []registry.ErrEntry `json:"errors"`
}

func snapshotToDTO(snap registry.Snapshot) snapshotDTO {
	errs := snap.Errors
	if len(errs) > 10 {
		errs = errs[:10]
	}
	return snapshotDTO{
		JobID:      snap.JobID,
		Status:     snap.Status,
		Total:      snap.Total,
		Completed:  snap.Completed,
		Successful: snap.Successful,
		Failed:     snap.Failed,
		Skipped:    snap.Skipped,
		RateDBPerS: snap.Rate,
		ETASeconds: snap.ETASeconds,
		Errors:     errs,
	}
}

// handleStreamPropagation serves a Server-Sent Events stream of snapshots
// for one job, ending once the job reaches a terminal state.
func (s *Server) handleStreamPropagation(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	snapshots, ok := s.streamer.Stream(r.Context(), jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	flusher, canFlush := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for snap := range snapshots {
		payload, err := marshalSnapshot(snap)
		if err != nil {
			s.logger.Error("failed to marshal snapshot", "job_id", jobID, "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if canFlush {
			flusher.Flush()
		}
	}
}
