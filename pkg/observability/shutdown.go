package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a cleanup step run during shutdown.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and runs registered cleanup
// steps when the process receives SIGINT or SIGTERM.
type ShutdownManager struct {
	logger        *slog.Logger
	server        *http.Server
	timeout       time.Duration
	mu            sync.Mutex
	shutdownFuncs []ShutdownFunc
}

// NewShutdownManager creates a shutdown manager. A zero timeout defaults
// to 30 seconds.
func NewShutdownManager(logger *slog.Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, server: server, timeout: timeout}
}

// RegisterShutdownFunc registers a cleanup step.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, fn)
}

// WaitForShutdown blocks until a shutdown signal arrives, then drains the
// server and runs cleanup steps concurrently within the timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Info("starting graceful shutdown", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.Error("HTTP server shutdown failed", "error", err)
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
		sm.logger.Info("HTTP server drained")
	}

	sm.mu.Lock()
	funcs := sm.shutdownFuncs
	sm.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(funcs))
	for _, fn := range funcs {
		wg.Add(1)
		go func(shutdownFn ShutdownFunc) {
			defer wg.Done()
			if err := shutdownFn(ctx); err != nil {
				errChan <- err
			}
		}(fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	var failed int
	for err := range errChan {
		sm.logger.Error("shutdown step failed", "error", err)
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failed)
	}

	sm.logger.Info("graceful shutdown complete")
	return nil
}
