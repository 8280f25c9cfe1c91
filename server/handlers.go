package server

import (
	"encoding/json"
	"net/http"
)

// HandleHealthz responds to liveness probes. The relay has no local
// dependencies worth checking; reachability of the archive service is an
// operational concern surfaced through /status instead.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleStatus reports in-flight pollers and the remote pending queue.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	queue := h.Archive.Queue(r.Context())
	ids := make([]string, 0, len(queue))
	for _, bv := range queue {
		ids = append(ids, bv.String())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"active_pollers": h.Pollers.ActivePollers(),
		"queue_length":   len(ids),
		"queue":          ids,
	})
}
