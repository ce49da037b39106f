package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	outmetered "github.com/crimson-sun/launchpad/internal/output/metered"
	"github.com/crimson-sun/launchpad/internal/output/multi"
	"github.com/crimson-sun/launchpad/pkg/logger"
)

func TestRouterServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := outmetered.New(multi.New(), outmetered.NewMetrics(reg))
	logger.New(sink).Info(logger.Record{Message: "hello"})

	srv := httptest.NewServer(newRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `launchpad_log_records_total{severity="info"} 1`) {
		t.Errorf("expected record counter in output:\n%s", body)
	}
}

func TestRouterHealthz(t *testing.T) {
	srv := httptest.NewServer(newRouter(prometheus.NewRegistry()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/metrics", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
