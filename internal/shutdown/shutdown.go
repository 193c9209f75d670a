// Package shutdown coordinates graceful shutdown of the monitor's server and
// background loops on SIGTERM/SIGINT.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout is the default graceful shutdown timeout.
const DefaultTimeout = 30 * time.Second

// Component is one part of the process that needs an orderly stop.
type Component interface {
	Name() string
	// Shutdown must return once ctx expires.
	Shutdown(ctx context.Context) error
}

// Coordinator stops registered components in reverse registration order, one
// after the other, under a single deadline. Registering the API server last
// makes it stop taking requests before the loops behind it go away.
type Coordinator struct {
	timeout  time.Duration
	logger   *slog.Logger
	signalCh chan os.Signal

	mu         sync.Mutex
	components []Component

	once     sync.Once
	done     chan struct{}
	exitCode int
	err      error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the overall shutdown deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithSignalChannel replaces OS signal delivery, for tests.
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) {
		c.signalCh = ch
	}
}

// NewCoordinator creates a shutdown coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a component. The last registered component stops first.
func (c *Coordinator) Register(component Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component)
	c.logger.Debug("registered shutdown component", "component", component.Name())
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives and then shuts down.
// It returns without shutting down when ctx ends first.
func (c *Coordinator) WaitForSignal(ctx context.Context) {
	sigCh := c.signalCh
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	select {
	case sig := <-sigCh:
		c.logger.Info("received shutdown signal", "signal", sig.String())
		c.Shutdown()
	case <-ctx.Done():
	}
}

// Shutdown stops every component. Only the first call does anything; later
// calls block until that one is finished.
func (c *Coordinator) Shutdown() {
	c.once.Do(c.run)
	<-c.done
}

func (c *Coordinator) run() {
	defer close(c.done)

	c.mu.Lock()
	components := make([]Component, len(c.components))
	copy(components, c.components)
	c.mu.Unlock()

	c.logger.Info("initiating graceful shutdown", "components", len(components), "timeout", c.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var (
		errMu sync.Mutex
		errs  []error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := len(components) - 1; i >= 0; i-- {
			comp := components[i]
			start := time.Now()
			if err := comp.Shutdown(ctx); err != nil {
				c.logger.Error("component shutdown failed", "component", comp.Name(), "error", err)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", comp.Name(), err))
				errMu.Unlock()
				continue
			}
			c.logger.Info("component stopped", "component", comp.Name(), "took", time.Since(start).String())
		}
	}()

	select {
	case <-finished:
		c.logger.Info("shutdown complete")
	case <-ctx.Done():
		c.logger.Warn("shutdown deadline exceeded, forcing exit")
		c.exitCode = 1
	}

	errMu.Lock()
	c.err = errors.Join(errs...)
	errMu.Unlock()
}

// Done is closed once shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until shutdown has finished.
func (c *Coordinator) Wait() {
	<-c.done
}

// ExitCode is 0 after a shutdown that finished in time and 1 after one that
// hit the deadline. Only meaningful once Done is closed.
func (c *Coordinator) ExitCode() int {
	return c.exitCode
}

// Err joins the errors returned by components. Only meaningful once Done is
// closed.
func (c *Coordinator) Err() error {
	return c.err
}
