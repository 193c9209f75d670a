// Package stream pushes periodic cluster snapshots to connected dashboards.
package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/narvanalabs/solr-monitor/internal/models"
)

// subscriberBuffer is how many snapshots a subscriber may lag behind.
const subscriberBuffer = 4

// Subscriber represents a snapshot stream subscriber.
type Subscriber struct {
	ID        string
	Ch        chan *models.DatacentersSummary
	CreatedAt time.Time
}

// Broker manages snapshot subscriptions and publishing. The latest snapshot
// is retained so a new subscriber does not wait a full interval.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	latest      *models.DatacentersSummary
	closed      bool
	logger      *slog.Logger
}

// NewBroker creates a new snapshot broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subscribers: make(map[string]*Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a subscriber. If a snapshot was already published it is
// queued on the subscriber's channel right away. After Close the returned
// channel is already closed and the subscriber is not registered.
func (b *Broker) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:        uuid.NewString(),
		Ch:        make(chan *models.DatacentersSummary, subscriberBuffer),
		CreatedAt: time.Now(),
	}
	if b.closed {
		close(sub.Ch)
		return sub
	}
	if b.latest != nil {
		sub.Ch <- b.latest
	}

	b.subscribers[sub.ID] = sub
	b.logger.Debug("stream subscriber added", "subscriber_id", sub.ID, "subscribers", len(b.subscribers))
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[sub.ID]; exists {
		close(sub.Ch)
		delete(b.subscribers, sub.ID)
		b.logger.Debug("stream subscriber removed", "subscriber_id", sub.ID)
	}
}

// Publish sends a snapshot to every subscriber. A subscriber whose buffer is
// full misses this snapshot; publishing never blocks.
func (b *Broker) Publish(snapshot *models.DatacentersSummary) {
	if snapshot == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest = snapshot
	for _, sub := range b.subscribers {
		select {
		case sub.Ch <- snapshot:
		default:
			b.logger.Warn("subscriber channel full, dropping snapshot", "subscriber_id", sub.ID)
		}
	}
}

// Latest returns the most recently published snapshot, or nil.
func (b *Broker) Latest() *models.DatacentersSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close unsubscribes everyone, which ends every open stream, and refuses
// later subscriptions.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.Ch)
		delete(b.subscribers, id)
	}
}
