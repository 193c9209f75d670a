package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/narvanalabs/solr-monitor/internal/models"
)

// Source produces one cluster snapshot. *cluster.Service implements it.
type Source interface {
	DatacentersSummary(ctx context.Context) (*models.DatacentersSummary, error)
}

// Poller computes a snapshot every interval and publishes it to a Broker.
// Ticks with no subscribers are skipped so an idle monitor sends no probes.
type Poller struct {
	source   Source
	broker   *Broker
	interval time.Duration
	logger   *slog.Logger

	trigger chan struct{}

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewPoller creates a poller. A non-positive interval disables it.
func NewPoller(source Source, broker *Broker, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		broker:   broker,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Enabled reports whether the poller publishes anything.
func (p *Poller) Enabled() bool {
	return p.interval > 0
}

// Trigger requests a snapshot before the next tick. Extra requests while one
// is pending are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Start runs the polling loop until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running || p.interval <= 0 {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	p.mu.Unlock()
	defer close(p.done)

	p.logger.Info("starting snapshot poller", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot poller stopped by context")
			return ctx.Err()
		case <-p.stopChan:
			p.logger.Info("snapshot poller stopped")
			return nil
		case <-p.trigger:
			p.poll(ctx)
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Stop stops the poller and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	close(p.stopChan)
	p.running = false
	done := p.done
	p.mu.Unlock()
	<-done
}

func (p *Poller) poll(ctx context.Context) {
	if p.broker.SubscriberCount() == 0 {
		return
	}

	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	snapshot, err := p.source.DatacentersSummary(pollCtx)
	if err != nil {
		p.logger.Warn("snapshot failed", "error", err)
		return
	}
	p.broker.Publish(snapshot)
}
