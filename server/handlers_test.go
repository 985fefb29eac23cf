package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"sdgateway/core"
	"sdgateway/db"
	"sdgateway/metrics"
	"sdgateway/sdruntime"
)

// fakeBackend is a Backend that returns a fixed result or error.
type fakeBackend struct {
	mu         sync.Mutex
	result     *sdruntime.GenerateResult
	err        error
	loaded     bool
	lastParams sdruntime.GenerateParams
	callCount  int
}

func (f *fakeBackend) Generate(ctx context.Context, params sdruntime.GenerateParams) (*sdruntime.GenerateResult, error) {
	f.mu.Lock()
	f.lastParams = params
	f.callCount++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeBackend) Loaded() bool { return f.loaded }
func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) params() sdruntime.GenerateParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastParams
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func newTestHandlers(t *testing.T, backend Backend) *Handlers {
	t.Helper()
	return NewHandlers(testConfig(), core.DefaultPresets(), backend, nil, metrics.NewStore(), nil, nil, zaptest.NewLogger(t))
}

func successBackend(t *testing.T) *fakeBackend {
	t.Helper()
	data := encodePNG(t, 64, 64)
	return &fakeBackend{
		result: &sdruntime.GenerateResult{ImageData: data, Width: 64, Height: 64, Seed: 1234},
		loaded: true,
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleGenerate_POSTSuccess(t *testing.T) {
	backend := successBackend(t)
	h := newTestHandlers(t, backend)

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{"prompt":"a red fox"}`))
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	decodeJSON(t, rec, &resp)

	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if resp.Prompt != "a red fox" {
		t.Errorf("Prompt = %q", resp.Prompt)
	}
	if resp.Format != "png" {
		t.Errorf("Format = %q, want png", resp.Format)
	}
	if resp.Width != 64 || resp.Height != 64 {
		t.Errorf("dims = %dx%d, want 64x64", resp.Width, resp.Height)
	}
	if resp.Seed != 1234 {
		t.Errorf("Seed = %d, want 1234", resp.Seed)
	}
	if resp.Backend != "fake" {
		t.Errorf("Backend = %q, want fake", resp.Backend)
	}

	decoded, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		t.Fatalf("image is not valid base64: %v", err)
	}
	if !sdruntime.IsPNG(decoded) {
		t.Error("decoded image is not a PNG")
	}
}

func TestHandleGenerate_GETSuccess(t *testing.T) {
	backend := successBackend(t)
	h := newTestHandlers(t, backend)

	req := httptest.NewRequest("GET", "/api/generate?prompt=a+red+fox&num_steps=10", nil)
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if got := backend.params().Steps; got != 10 {
		t.Errorf("backend received Steps = %d, want 10", got)
	}
}

func TestHandleGenerate_MissingPrompt(t *testing.T) {
	h := newTestHandlers(t, successBackend(t))

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/api/generate", nil),
		httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{}`)),
		httptest.NewRequest("POST", "/api/generate", strings.NewReader("")),
	} {
		rec := httptest.NewRecorder()
		h.HandleGenerate(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", req.Method, req.URL, rec.Code)
		}
		var resp ErrorResponse
		decodeJSON(t, rec, &resp)
		if !strings.Contains(resp.Error, "prompt") {
			t.Errorf("error = %q, want mention of prompt", resp.Error)
		}
	}
}

func TestHandleGenerate_MalformedInput(t *testing.T) {
	h := newTestHandlers(t, successBackend(t))

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"bad query int", httptest.NewRequest("GET", "/api/generate?prompt=x&num_steps=ten", nil)},
		{"bad query float", httptest.NewRequest("GET", "/api/generate?prompt=x&guidance_scale=x", nil)},
		{"bad JSON", httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{"prompt"`))},
		{"unknown preset", httptest.NewRequest("GET", "/api/generate?prompt=x&preset=bogus", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleGenerate(rec, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleGenerate_MethodNotAllowed(t *testing.T) {
	h := newTestHandlers(t, successBackend(t))
	req := httptest.NewRequest("DELETE", "/api/generate", nil)
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleGenerate_BackendErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid params", sdruntime.ErrInvalidParams, http.StatusBadRequest},
		{"invalid prompt", sdruntime.ErrInvalidPrompt, http.StatusBadRequest},
		{"model not found", sdruntime.ErrModelNotFound, http.StatusServiceUnavailable},
		{"model load failed", sdruntime.ErrModelLoadFailed, http.StatusServiceUnavailable},
		{"busy", sdruntime.ErrAcquireTimeout, http.StatusServiceUnavailable},
		{"timeout", sdruntime.ErrGenerationTimeout, http.StatusGatewayTimeout},
		{"generation failed", sdruntime.ErrGenerationFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(t, &fakeBackend{err: tt.err})
			req := httptest.NewRequest("GET", "/api/generate?prompt=x", nil)
			rec := httptest.NewRecorder()
			h.HandleGenerate(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			decodeJSON(t, rec, &resp)
			if resp.Error == "" {
				t.Error("expected non-empty error message")
			}
		})
	}
}

func TestHandleGenerate_Thumbnail(t *testing.T) {
	backend := successBackend(t)
	h := newTestHandlers(t, backend)

	req := httptest.NewRequest("GET", "/api/generate?prompt=x&thumbnail=32", nil)
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp GenerateResponse
	decodeJSON(t, rec, &resp)
	if resp.Thumbnail == "" {
		t.Fatal("expected thumbnail in response")
	}
	thumb, err := base64.StdEncoding.DecodeString(resp.Thumbnail)
	if err != nil {
		t.Fatalf("thumbnail base64: %v", err)
	}
	w, h2 := decodeDims(t, thumb)
	if w != 32 || h2 != 32 {
		t.Errorf("thumbnail dims = %dx%d, want 32x32", w, h2)
	}
}

func TestHandleGenerate_ThumbnailOutOfRange(t *testing.T) {
	backend := successBackend(t)
	store := metrics.NewStore()
	h := NewHandlers(testConfig(), core.DefaultPresets(), backend, nil, store, nil, nil, zaptest.NewLogger(t))

	for _, size := range []string{"9999", "1"} {
		req := httptest.NewRequest("GET", "/api/generate?prompt=x&thumbnail="+size, nil)
		rec := httptest.NewRecorder()
		h.HandleGenerate(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("thumbnail=%s: status = %d, want 400", size, rec.Code)
		}
	}

	// A rejected thumbnail size must short-circuit before the backend runs
	// and must not show up in the generation counters.
	if n := backend.calls(); n != 0 {
		t.Errorf("backend called %d times for rejected requests", n)
	}
	if stats := store.Snapshot(); stats.TotalRequests != 0 {
		t.Errorf("stats = %+v, want no recorded generations", stats)
	}
}

func TestHandleGenerate_RecordsStats(t *testing.T) {
	store := metrics.NewStore()
	h := NewHandlers(testConfig(), core.DefaultPresets(), successBackend(t), nil, store, nil, nil, zaptest.NewLogger(t))

	req := httptest.NewRequest("GET", "/api/generate?prompt=x", nil)
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)

	stats := store.Snapshot()
	if stats.TotalRequests != 1 || stats.TotalSuccess != 1 {
		t.Errorf("stats = %+v, want one successful request", stats)
	}
}

func TestHandleGenerate_RecordsHistory(t *testing.T) {
	database, err := db.NewSQLiteConnectionWithDefaults(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()
	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := db.NewRepository(database)

	h := NewHandlers(testConfig(), core.DefaultPresets(), successBackend(t), nil, metrics.NewStore(), repo, nil, zaptest.NewLogger(t))

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{"prompt":"history me"}`))
	rec := httptest.NewRecorder()
	h.HandleGenerate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	records, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Prompt != "history me" {
		t.Errorf("Prompt = %q", records[0].Prompt)
	}
	if records[0].Status != db.StatusSuccess {
		t.Errorf("Status = %q, want %q", records[0].Status, db.StatusSuccess)
	}
	if records[0].Backend != "fake" {
		t.Errorf("Backend = %q", records[0].Backend)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{loaded: true})
	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if !resp.ModelLoaded {
		t.Error("ModelLoaded = false, want true")
	}
	if resp.GPUAvailable {
		t.Error("GPUAvailable = true without a collector")
	}
}

func TestHandleHealth_WithGPU(t *testing.T) {
	reader := metrics.NewMockGPUReader(metrics.GPUMetrics{
		Name:        "NVIDIA A10",
		Utilization: 55,
		Temperature: 60,
		MemoryUsed:  4 << 30,
		MemoryTotal: 24 << 30,
	})
	collector := metrics.NewGPUCollectorWithReader(metrics.GPUCollectorConfig{
		CollectionInterval: time.Hour,
		HistorySize:        8,
	}, reader)
	collector.Start()
	defer collector.Stop()

	// Wait for the first sample.
	deadline := time.Now().Add(2 * time.Second)
	for !collector.IsAvailable() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	h := NewHandlers(testConfig(), core.DefaultPresets(), &fakeBackend{loaded: true}, collector, metrics.NewStore(), nil, nil, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest("GET", "/api/health", nil))

	var resp HealthResponse
	decodeJSON(t, rec, &resp)
	if !resp.GPUAvailable {
		t.Fatal("GPUAvailable = false, want true")
	}
	if resp.GPUInfo.Name != "NVIDIA A10" {
		t.Errorf("GPU name = %q", resp.GPUInfo.Name)
	}
	if resp.GPUInfo.MemoryTotalGB < 23 || resp.GPUInfo.MemoryTotalGB > 25 {
		t.Errorf("MemoryTotalGB = %v, want about 24", resp.GPUInfo.MemoryTotalGB)
	}
}

func TestHandleVersion(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})
	rec := httptest.NewRecorder()
	h.HandleVersion(rec, httptest.NewRequest("GET", "/api/version", nil))

	var resp VersionResponse
	decodeJSON(t, rec, &resp)
	if resp.Version == "" {
		t.Error("expected non-empty version")
	}
}

func TestHandleHistory_NoRepository(t *testing.T) {
	h := newTestHandlers(t, &fakeBackend{})
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, httptest.NewRequest("GET", "/api/history", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleHistory_BadLimit(t *testing.T) {
	database, err := db.NewSQLiteConnectionWithDefaults(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()
	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	h := NewHandlers(testConfig(), core.DefaultPresets(), &fakeBackend{}, nil, metrics.NewStore(), db.NewRepository(database), nil, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.HandleHistory(rec, httptest.NewRequest("GET", "/api/history?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	store := metrics.NewStore()
	store.RecordGeneration(2*time.Second, true)
	h := NewHandlers(testConfig(), core.DefaultPresets(), &fakeBackend{}, nil, store, nil, nil, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleStats(rec, httptest.NewRequest("GET", "/api/stats", nil))

	var resp StatsResponse
	decodeJSON(t, rec, &resp)
	if resp.Generation.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", resp.Generation.TotalRequests)
	}
}
