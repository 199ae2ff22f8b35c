package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"topomap/internal/metrics"
	"topomap/internal/topology"
	"topomap/internal/viewer"
)

func strPtr(s string) *string { return &s }

func sampleDevices() []topology.DeviceRecord {
	return []topology.DeviceRecord{
		{IdxDevice: 1, SysName: "core", Hostname: "core.lan", Interfaces: []topology.InterfaceRecord{
			{NeighborDeviceID: strPtr("dist"), NeighborPort: strPtr("Te1/1")},
			{NeighborDeviceID: strPtr("ghost"), NeighborPort: strPtr("Gi0/9")},
		}},
		{IdxDevice: 2, SysName: "dist"},
	}
}

func newTestRouter(t *testing.T, publish bool, opts Options) (http.Handler, *viewer.Registry) {
	t.Helper()
	reg := viewer.NewRegistry(zerolog.Nop(), nil)
	if publish {
		reg.PublishDevices(sampleDevices())
	}
	h := NewHandler(zerolog.New(io.Discard), reg, opts)
	return h.Router(), reg
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error.Code
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, false, Options{})
	rr := do(t, router, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReadyz_WaitsForFirstPublish(t *testing.T) {
	router, reg := newTestRouter(t, false, Options{})

	rr := do(t, router, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before publish, got %d", rr.Code)
	}
	if code := decodeError(t, rr); code != "source_unavailable" {
		t.Fatalf("expected source_unavailable, got %q", code)
	}

	reg.PublishDevices(nil)
	rr = do(t, router, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after publish, got %d", rr.Code)
	}
}

func TestReadyz_PingFailure(t *testing.T) {
	router, _ := newTestRouter(t, true, Options{Ping: func(ctx context.Context) error {
		return errors.New("connection refused")
	}})

	rr := do(t, router, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if code := decodeError(t, rr); code != "db_unavailable" {
		t.Fatalf("expected db_unavailable, got %q", code)
	}
}

func TestReadyz_NoRegistry(t *testing.T) {
	h := NewHandler(zerolog.New(io.Discard), nil, Options{})
	rr := do(t, h.Router(), http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestMetricsEndpoint_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	router, _ := newTestRouter(t, true, Options{Metrics: m})

	created := do(t, router, http.MethodPost, "/api/v1/topology/sessions", "")
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.Code)
	}

	rr := do(t, router, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `topomap_http_requests_total{method="POST",path="/api/v1/topology/sessions`) {
		t.Fatalf("expected request counter keyed by route pattern; body=%s", body)
	}
	if !strings.Contains(body, "topomap_graph_builds_total") {
		t.Fatalf("expected graph build metric; body=%s", body)
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	router, _ := newTestRouter(t, true, Options{AllowedOrigins: []string{"http://viewer.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/topology/snapshot", nil)
	req.Header.Set("Origin", "http://viewer.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://viewer.example" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestDecodeJSONStrict_RejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"a"} {"text":"b"}`))
	var dst searchRequest
	if err := decodeJSONStrict(req, &dst); err == nil {
		t.Fatalf("expected error for trailing data")
	}
}
