package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sdgateway/core"
	"sdgateway/db"
	"sdgateway/metrics"
	"sdgateway/server/static"
)

// Server wires the API handlers, the demo page and the WebSocket
// broadcaster into one http.Server.
type Server struct {
	httpServer  *http.Server
	mux         *http.ServeMux
	config      ServerConfig
	logger      *zap.Logger
	loggingMw   *LoggingMiddleware
	handlers    *Handlers
	broadcaster *Broadcaster
}

// ServerConfig configures the Server.
type ServerConfig struct {
	// Host to bind to (default "0.0.0.0").
	Host string

	// Port to listen on (default 8080).
	Port int

	// ReadTimeout for HTTP requests (default 30s).
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. Generation can take minutes on
	// CPU, so this defaults to 10m.
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default 120s).
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default 30s).
	ShutdownTimeout time.Duration

	// LogSkipPaths are paths excluded from request logging.
	LogSkipPaths []string

	// Broadcaster tunes the WebSocket broadcaster.
	Broadcaster BroadcasterConfig
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogSkipPaths:    []string{"/api/health", "/api/gpu"},
		Broadcaster:     DefaultBroadcasterConfig(),
	}
}

// NewServer creates a Server. gpuCollector, statsStore and repo may be
// nil; the matching endpoints degrade instead of failing.
func NewServer(
	config ServerConfig,
	cfg *core.Config,
	presets core.Presets,
	backend Backend,
	gpuCollector *metrics.GPUCollector,
	statsStore *metrics.Store,
	repo *db.Repository,
	logger *zap.Logger,
) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("server: backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	broadcaster := NewBroadcaster(config.Broadcaster, logger)
	handlers := NewHandlers(cfg, presets, backend, gpuCollector, statsStore, repo, broadcaster, logger)

	s := &Server{
		mux:         http.NewServeMux(),
		config:      config,
		logger:      logger,
		loggingMw:   NewLoggingMiddleware(logger, config.LogSkipPaths...),
		handlers:    handlers,
		broadcaster: broadcaster,
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.loggingMw.Handler(s.mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger.Info("server created",
		zap.String("addr", addr),
		zap.String("backend", backend.Name()))

	return s, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/generate", s.handlers.HandleGenerate)
	s.mux.HandleFunc("/api/health", s.handlers.HandleHealth)
	s.mux.HandleFunc("/api/version", s.handlers.HandleVersion)
	s.mux.HandleFunc("/api/history", s.handlers.HandleHistory)
	s.mux.HandleFunc("/api/gpu", s.handlers.HandleGPU)
	s.mux.HandleFunc("/api/stats", s.handlers.HandleStats)

	s.mux.HandleFunc("/ws", s.broadcaster.HandleConnection)

	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static.GetFS()))))

	s.mux.HandleFunc("/", s.handleIndex)
}

// handleIndex serves the embedded demo page at the exact root path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data, err := static.ReadFile("index.html")
	if err != nil {
		http.Error(w, "demo page not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Start runs the broadcaster and the HTTP server. It blocks until the
// server is shut down.
func (s *Server) Start(ctx context.Context) error {
	go s.broadcaster.Start(ctx)

	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and disconnects WebSocket
// clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	s.broadcaster.Close()

	s.logger.Info("server stopped")
	return nil
}

// Broadcaster returns the WebSocket broadcaster for pushing updates.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Handler returns the root handler, logging middleware included. Used in
// tests with httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
