package topology

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Provider loads a fresh topology. *Loader satisfies it.
type Provider interface {
	Load() (*Topology, error)
}

// Store serves immutable topology snapshots and swaps them atomically on reload.
// A failed reload keeps the previous snapshot.
type Store struct {
	provider Provider
	current  atomic.Pointer[Topology]
	logger   *slog.Logger

	mu       sync.RWMutex
	lastErr  error
	loadedAt time.Time
}

// NewStore creates a store and performs the initial load. A failed initial
// load is not fatal: Snapshot reports the configuration error until a later
// Reload succeeds.
func NewStore(p Provider, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{provider: p, logger: logger}
	if err := s.Reload(); err != nil {
		logger.Error("failed to load topology", "error", err)
	}
	return s
}

// NewStaticStore wraps an already-loaded topology.
func NewStaticStore(t *Topology) *Store {
	s := &Store{logger: slog.Default(), loadedAt: time.Now()}
	s.current.Store(t)
	return s
}

// Snapshot returns the current topology. The returned value must not be mutated.
func (s *Store) Snapshot() (*Topology, error) {
	if t := s.current.Load(); t != nil {
		return t, nil
	}
	s.mu.RLock()
	err := s.lastErr
	s.mu.RUnlock()
	if err == nil {
		err = &ConfigurationError{Err: ErrNotConfigured}
	}
	return nil, err
}

// Reload loads the topology from the provider and swaps it in on success.
func (s *Store) Reload() error {
	if s.provider == nil {
		return nil
	}
	t, err := s.provider.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	if err != nil {
		return err
	}
	s.current.Store(t)
	s.loadedAt = time.Now()
	s.logger.Info("topology loaded",
		"datacenters", len(t.Datacenters),
		"nodes", t.NodeCount(),
	)
	return nil
}

// Ping satisfies the self health checker: it fails when no snapshot is loaded.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.Snapshot()
	return err
}

// State reports whether a snapshot is loaded and the last reload error.
func (s *Store) State() (loaded bool, lastErr error, loadedAt time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Load() != nil, s.lastErr, s.loadedAt
}

// Refresher periodically reloads a Store.
type Refresher struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewRefresher creates a refresher; interval must be positive for Start to loop.
func NewRefresher(store *Store, interval time.Duration, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:    store,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the reload loop until ctx is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.interval <= 0 {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopChan = make(chan struct{})
	r.done = make(chan struct{})
	r.mu.Unlock()
	defer close(r.done)

	r.logger.Info("starting topology refresher", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopChan:
			r.logger.Info("topology refresher stopped")
			return nil
		case <-ticker.C:
			if err := r.store.Reload(); err != nil {
				r.logger.Warn("topology reload failed, keeping previous snapshot", "error", err)
			}
		}
	}
}

// Stop stops the refresher and waits for the loop to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopChan)
	r.running = false
	done := r.done
	r.mu.Unlock()
	<-done
}
