// Package health reports the monitor's own health, as opposed to the health of
// the fleet it monitors.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status of the monitor or one of its components.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses from best to worst.
var severity = map[Status]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

// ComponentStatus is one entry of Response.Components.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the body of GET /health.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// TopologyReporter exposes the state of the topology store.
type TopologyReporter interface {
	State() (loaded bool, lastErr error, loadedAt time.Time)
}

// Checker answers GET /health from the topology store and host statistics.
// It never calls a Solr or ZooKeeper node.
type Checker struct {
	topology TopologyReporter
	version  string
	started  time.Time

	mu        sync.RWMutex
	hostStats HostStatsFunc
}

// NewChecker creates a Checker reading host memory through go-osstat.
func NewChecker(topology TopologyReporter, version string) *Checker {
	return &Checker{
		topology:  topology,
		version:   version,
		started:   time.Now(),
		hostStats: ReadHostStats,
	}
}

// SetHostStats replaces the host stats reader; nil drops the host component.
func (c *Checker) SetHostStats(fn HostStatsFunc) {
	c.mu.Lock()
	c.hostStats = fn
	c.mu.Unlock()
}

// Check evaluates every component. The context is accepted for symmetry with
// the handler; none of the checks block.
func (c *Checker) Check(_ context.Context) *Response {
	c.mu.RLock()
	hostStats := c.hostStats
	c.mu.RUnlock()

	components := map[string]ComponentStatus{"topology": topologyStatus(c.topology)}
	if hostStats != nil {
		components["host"] = checkHost(hostStats)
	}

	return &Response{
		Status:     Overall(components),
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
	}
}

// Overall is the worst status among components, healthy when there are none.
func Overall(components map[string]ComponentStatus) Status {
	worst := StatusHealthy
	for _, comp := range components {
		if severity[comp.Status] > severity[worst] {
			worst = comp.Status
		}
	}
	return worst
}

// topologyStatus is healthy while the last load succeeded, degraded while a
// stale snapshot is served after a failed reload, and unhealthy when nothing
// was ever loaded.
func topologyStatus(topo TopologyReporter) ComponentStatus {
	if topo == nil {
		return ComponentStatus{Status: StatusUnhealthy, Message: "topology store not configured"}
	}

	loaded, lastErr, loadedAt := topo.State()
	if !loaded {
		msg := "topology not loaded"
		if lastErr != nil {
			msg += ": " + lastErr.Error()
		}
		return ComponentStatus{Status: StatusUnhealthy, Message: msg}
	}
	if lastErr != nil {
		msg := "serving topology loaded at " + loadedAt.UTC().Format(time.RFC3339) +
			"; reload failed: " + lastErr.Error()
		return ComponentStatus{Status: StatusDegraded, Message: msg}
	}
	return ComponentStatus{Status: StatusHealthy, Message: "loaded"}
}

// Handler serves Check. Only unhealthy answers 503.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Check(r.Context())

		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
