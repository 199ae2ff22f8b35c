package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.ObserveGesture("selectNode", "")
	m.ObserveGraphBuild(1, 1, time.Millisecond)
	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.ObserveGraphBuild(4, 3, 2*time.Millisecond)
	m.ObserveGesture("selectNode", "")
	m.ObserveGesture("search", "not_found")
	m.ObserveRefresh("file", "published", time.Second)
	m.SetViewerSessions(2)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	for _, want := range []string{
		`topomap_http_requests_total{method="GET",path="/readyz",status="200"} 1`,
		"topomap_graph_builds_total 1",
		"topomap_graph_nodes 4",
		"topomap_graph_edges 3",
		`topomap_gestures_total{kind="selectNode"} 1`,
		`topomap_gesture_signals_total{signal="not_found"} 1`,
		`topomap_device_refreshes_total{outcome="published",source="file"} 1`,
		"topomap_viewer_sessions 2",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body=%s", want, body)
		}
	}
}
