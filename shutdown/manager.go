package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sdgateway/core"
)

// Manager coordinates graceful shutdown. The first SIGINT or SIGTERM
// cancels the managed context; a second signal forces immediate exit.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool
	sigCount int

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	sigChan  chan os.Signal

	// lastSignal records the signal that initiated shutdown.
	lastSignal os.Signal

	// forceExit is overridable for tests.
	forceExit func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the shutdown timeout (default 30s).
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager creates a Manager ready to coordinate shutdown.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger,
		timeout:  30 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
		forceExit: func() {
			os.Exit(core.ExitCodeError)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context returns the context cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function. Lower priority runs first.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Start begins listening for SIGINT and SIGTERM. Safe to call more than
// once; later calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			m.mu.Lock()
			m.sigCount++
			count := m.sigCount
			if count == 1 {
				m.lastSignal = sig
			}
			m.mu.Unlock()

			if count == 1 {
				m.logger.Info("received shutdown signal",
					zap.String("signal", sig.String()))
				m.cancel()
			} else {
				m.logger.Warn("received second signal, forcing exit")
				m.forceExit()
			}
		}
	}()
}

// Wait blocks until shutdown is initiated.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Signal returns the OS signal that initiated shutdown, or nil when
// shutdown was triggered programmatically.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSignal
}

// Trigger initiates shutdown without an OS signal.
func (m *Manager) Trigger() {
	m.cancel()
}

// Shutdown cancels the context and runs the cleanup functions in priority
// order within the configured timeout. Idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	m.cancel()

	start := time.Now()
	m.logger.Info("starting graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Strings("handlers", m.registry.Names()))

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("cleanup failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
	}

	duration := time.Since(start)
	if len(errs) > 0 {
		m.logger.Error("shutdown completed with errors",
			zap.Duration("duration", duration),
			zap.Int("errors", len(errs)))
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}

	m.logger.Info("shutdown complete", zap.Duration("duration", duration))
	return nil
}
