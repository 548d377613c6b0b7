package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

func TestBuildServerExposesRoutes(t *testing.T) {
	cfg := &appconfig.Config{
		Port:               "0",
		MaxMessages:        15,
		MaxNoNewIntel:      3,
		CORSAllowedOrigins: []string{"*"},
	}
	srv, hp, err := buildServer(context.Background(), cfg, prometheus.NewRegistry(), logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer hp.Close()

	if srv.Addr != ":0" {
		t.Fatalf("expected addr :0, got %s", srv.Addr)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body := `{"sessionId":"main-1","message":{"sender":"scammer","text":"Hello","timestamp":1769000000000}}`
	req = httptest.NewRequest(http.MethodPost, "/honeypot/message", strings.NewReader(body))
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), "honeypot_messages_total") {
		t.Fatalf("expected honeypot counters to be exported")
	}
}
