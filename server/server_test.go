package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onnwee/bili-relay/bvid"
	"github.com/onnwee/bili-relay/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	m.Run()
}

type fakePollers int64

func (f fakePollers) ActivePollers() int64 { return int64(f) }

type fakeQueue []bvid.Bvid

func (f fakeQueue) Queue(ctx context.Context) []bvid.Bvid { return f }

func newTestServer(t *testing.T, pollers int64, queue []bvid.Bvid) *httptest.Server {
	t.Helper()
	mux := NewMux(&Handlers{Pollers: fakePollers(pollers), Archive: fakeQueue(queue)})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, 0, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, 3, []bvid.Bvid{"BV1AbCdEfGhI", "BV2ZyXwVuTsR"})

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		ActivePollers int64    `json:"active_pollers"`
		QueueLength   int      `json:"queue_length"`
		Queue         []string `json:"queue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body.ActivePollers != 3 {
		t.Errorf("active_pollers = %d, want 3", body.ActivePollers)
	}
	if body.QueueLength != 2 || len(body.Queue) != 2 {
		t.Errorf("queue = %v (len %d), want 2 entries", body.Queue, body.QueueLength)
	}
	if body.Queue[0] != "BV1AbCdEfGhI" {
		t.Errorf("queue[0] = %q, want service order preserved", body.Queue[0])
	}
}

func TestCorrelationHeader(t *testing.T) {
	srv := newTestServer(t, 0, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("missing generated X-Correlation-ID header")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Correlation-ID", "fixed-id")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("X-Correlation-ID"); got != "fixed-id" {
		t.Errorf("X-Correlation-ID = %q, want caller-provided id reused", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, 0, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
