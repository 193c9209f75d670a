package health

import (
	"fmt"

	"github.com/mackerelio/go-osstat/memory"

	"github.com/narvanalabs/solr-monitor/internal/rollup"
)

// hostMemoryDegradedPercent is the memory usage above which the monitor's own
// host is reported as degraded.
const hostMemoryDegradedPercent = 95

// HostStats is the memory usage of the machine the monitor runs on.
type HostStats struct {
	UsedBytes  uint64
	TotalBytes uint64
}

// HostStatsFunc reads the current host stats.
type HostStatsFunc func() (*HostStats, error)

// ReadHostStats reads host memory from the operating system.
func ReadHostStats() (*HostStats, error) {
	m, err := memory.Get()
	if err != nil {
		return nil, err
	}
	return &HostStats{UsedBytes: m.Used, TotalBytes: m.Total}, nil
}

func checkHost(read HostStatsFunc) ComponentStatus {
	stats, err := read()
	if err != nil {
		return ComponentStatus{
			Status:  StatusDegraded,
			Message: "host stats unavailable: " + err.Error(),
		}
	}

	pct := rollup.Percent(float64(stats.UsedBytes), float64(stats.TotalBytes))
	msg := fmt.Sprintf("memory %.1f%% used", pct)
	if pct >= hostMemoryDegradedPercent {
		return ComponentStatus{Status: StatusDegraded, Message: msg}
	}
	return ComponentStatus{Status: StatusHealthy, Message: msg}
}
