package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"sdgateway/core"
	"sdgateway/metrics"
)

func newTestServer(t *testing.T, backend Backend) *Server {
	t.Helper()
	srv, err := NewServer(DefaultServerConfig(), testConfig(), core.DefaultPresets(), backend, nil, metrics.NewStore(), nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestNewServer_RequiresBackend(t *testing.T) {
	if _, err := NewServer(DefaultServerConfig(), testConfig(), nil, nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil backend")
	}
}

func TestServer_IndexPage(t *testing.T) {
	srv := newTestServer(t, successBackend(t))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "/api/generate") {
		t.Error("demo page should document the generate endpoint")
	}
}

func TestServer_UnknownPathIs404(t *testing.T) {
	srv := newTestServer(t, successBackend(t))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_StaticAssets(t *testing.T) {
	srv := newTestServer(t, successBackend(t))

	for _, path := range []string{"/static/css/style.css", "/static/js/app.js"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_GenerateEndToEnd(t *testing.T) {
	srv := newTestServer(t, successBackend(t))

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{"prompt":"routed"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServer_HealthEndToEnd(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{loaded: false})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"model_loaded":false`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServer_WebSocketUpgradeEndToEnd(t *testing.T) {
	// The upgrade must succeed through the full handler chain, logging
	// middleware included, not just on a bare mux.
	srv := newTestServer(t, successBackend(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Broadcaster().Start(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial through handler chain: %v (status %d)", err, status)
	}
	defer conn.Close()

	waitForClients(t, srv.Broadcaster(), 1)

	srv.Broadcaster().BroadcastGenerationUpdate(GenerationUpdateData{
		ID:     "gen-ws",
		Status: GenerationStatusStarted,
		Prompt: "routed",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.WriteTimeout <= cfg.ReadTimeout {
		t.Error("WriteTimeout must exceed ReadTimeout to cover long generations")
	}
}
