package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin is left nil, so the library's default check applies: a
	// browser upgrade whose Origin host differs from the request host is
	// rejected, and requests without an Origin header are accepted.
}

// handleStreamPropagationWS is the websocket counterpart to the SSE stream,
// for callers that prefer a persistent bidirectional connection (stop_propagation
// could ride the same socket in a future revision; today it's receive-only).
func (s *Server) handleStreamPropagationWS(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	snapshots, ok := s.streamer.Stream(r.Context(), jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	defer conn.Close()

	for snap := range snapshots {
		payload, err := marshalSnapshot(snap)
		if err != nil {
			s.logger.Error("failed to marshal snapshot", "job_id", jobID, "error", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
