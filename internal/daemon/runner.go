// Package daemon runs the recognition server's lifecycle: it opens the
// listener, serves until the context ends or Shutdown is called, and runs
// the cleanup function with a bounded wait.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when cleanup exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultShutdownTimeout bounds the cleanup function when Config leaves it
// unset.
const DefaultShutdownTimeout = 10 * time.Second

// Config holds the configuration for the daemon runner.
type Config struct {
	// Addr is the TCP address to listen on. Empty picks an ephemeral port
	// on all interfaces.
	Addr string

	// ShutdownTimeout is the maximum time to wait for the cleanup function.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
type Dependencies struct {
	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// Serve serves on l until ctx is cancelled. If nil, the runner only
	// holds the listener open.
	Serve func(ctx context.Context, l net.Listener) error

	// ShutdownFunc is called once serving stops to release resources.
	ShutdownFunc func() error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config   *Config
	deps     *Dependencies
	running  bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
	done     chan struct{}
}

// New creates a runner. A nil config listens on an ephemeral port and a
// nil deps uses net.Listen.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
	}
}

func applyConfigDefaults(config *Config) *Config {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Addr == "" {
		cfg.Addr = ":0"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &cfg
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	d := Dependencies{}
	if deps != nil {
		d = *deps
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return &d
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Addr returns the listening address, or nil when not running.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Start listens, serves and blocks until serving stops, then runs the
// shutdown function. Cancellation is not an error: Start returns nil
// after a clean stop, the Serve error if serving failed, or
// ErrShutdownTimeout if cleanup did not finish in time.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)

	// Create listener BEFORE setting running=true to avoid race condition
	listener, err := r.deps.ListenerFactory("tcp", r.config.Addr)
	if err != nil {
		r.mu.Unlock()
		cancel()
		return err
	}
	r.listener = listener
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true
	done := r.done
	r.mu.Unlock()

	defer close(done)

	var serveErr error
	if r.deps.Serve != nil {
		serveErr = r.deps.Serve(ctx, listener)
	} else {
		<-ctx.Done()
	}
	cancel()

	shutdownErr := r.executeShutdownFunc()
	r.cleanupOnStop()

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return shutdownErr
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.closeListener()
}

// closeListener closes the listener if it exists.
// Caller must hold the mutex.
func (r *Runner) closeListener() {
	if r.listener != nil {
		_ = r.listener.Close()
		r.listener = nil
	}
}

// Shutdown stops serving and waits for Start to finish its cleanup.
// Returns ErrNotRunning if the daemon is not running.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// executeShutdownFunc runs the shutdown function with the configured
// timeout.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}
	result := make(chan error, 1)
	go func() {
		result <- r.deps.ShutdownFunc()
	}()

	select {
	case err := <-result:
		return err
	case <-time.After(r.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
