package cmd

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/metrics"
)

func TestMetricsServerServesRecorder(t *testing.T) {
	recorder, err := metrics.NewRecorder()
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	recorder.ObserveProbe("http", metrics.OutcomeMatched, 10*time.Millisecond)

	srv, err := startMetricsServer("127.0.0.1:0", recorder, nil)
	if err != nil {
		t.Fatalf("startMetricsServer failed: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected generated X-Request-ID header")
	}
	if !strings.Contains(string(body), `seca_scan_probes_total{outcome="matched",protocol="http"} 1`) {
		t.Errorf("Expected probe counter in output, got %s", body)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://"+srv.Addr()+"/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	health, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	health.Body.Close()
	if got := health.Header.Get("X-Request-ID"); got != "abc123" {
		t.Errorf("Expected client request ID to be echoed, got %q", got)
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr() + "/healthz"); err == nil {
		t.Error("Expected server to be closed after shutdown")
	}
}

func TestMetricsServerBadAddress(t *testing.T) {
	if _, err := startMetricsServer("256.0.0.1:-1", nil, nil); err == nil {
		t.Fatal("Expected listen error for invalid address")
	}
}
