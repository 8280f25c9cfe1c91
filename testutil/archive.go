// Package testutil provides shared test doubles, most notably a mock
// archive service HTTP server.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockArchiveServer mimics the remote archive service: it accepts
// submissions, reports per-id status, and lists its queue. Completion is
// driven by the test via Complete.
type MockArchiveServer struct {
	*httptest.Server

	mu    sync.Mutex
	queue []string
	done  map[string]string // id -> artifact url

	// RejectAdds makes POST /add answer 500.
	RejectAdds bool
}

// NewMockArchiveServer starts the server; it is torn down with the test.
func NewMockArchiveServer(t *testing.T) *MockArchiveServer {
	t.Helper()
	m := &MockArchiveServer{done: make(map[string]string)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Close)
	return m
}

func (m *MockArchiveServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/add":
		if m.RejectAdds {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.queue = append(m.queue, body.ID)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/check/"):
		id := strings.TrimPrefix(r.URL.Path, "/check/")
		url, ok := m.done[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": url})
	case r.Method == http.MethodGet && r.URL.Path == "/queue":
		_ = json.NewEncoder(w).Encode(m.queue)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Complete marks an id as archived at the given artifact URL and removes
// it from the queue.
func (m *MockArchiveServer) Complete(id, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[id] = url
	remaining := m.queue[:0]
	for _, q := range m.queue {
		if q != id {
			remaining = append(remaining, q)
		}
	}
	m.queue = remaining
}

// Submitted returns the ids received via /add, in arrival order.
func (m *MockArchiveServer) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queue...)
}
