package models

// NodeStatus is the outcome of probing one search node.
type NodeStatus string

const (
	// NodeStatusOnline means the system-info call succeeded.
	NodeStatusOnline NodeStatus = "online"
	// NodeStatusOffline means the node could not be reached or timed out.
	NodeStatusOffline NodeStatus = "offline"
	// NodeStatusError means the node answered, but not usefully.
	NodeStatusError NodeStatus = "error"
)

// NodeHealth is a freshly probed node together with its identity.
type NodeHealth struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Datacenter string `json:"datacenter"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	URL        string `json:"url"`

	Status         NodeStatus      `json:"status"`
	SystemInfo     *SystemInfo     `json:"systemInfo,omitempty"`
	MetricsSummary *MetricsSummary `json:"metricsSummary,omitempty"`
	Error          string          `json:"error,omitempty"`
	MetricsError   string          `json:"metricsError,omitempty"`
	ResponseTimeMs int64           `json:"responseTimeMs"`
}

// Online reports whether the node answered its system-info call.
func (n *NodeHealth) Online() bool {
	return n.Status == NodeStatusOnline
}

// SystemInfo is the normalized self-report of a node.
type SystemInfo struct {
	Mode            string          `json:"mode"`
	ZkHost          string          `json:"zkHost,omitempty"`
	JVMMemory       MemoryUsage     `json:"jvmMemory"`
	PhysicalMemory  MemoryUsage     `json:"physicalMemory"`
	UptimeMs        int64           `json:"uptimeMs"`
	ProcessorCount  int             `json:"processorCount"`
	LoadAverage     float64         `json:"loadAverage"`
	FileDescriptors FileDescriptors `json:"fileDescriptors"`
	Versions        Versions        `json:"versions"`
}

// MemoryUsage is a used/max pair with a percentage that is 0 when max is unknown.
type MemoryUsage struct {
	UsedBytes   int64   `json:"usedBytes"`
	MaxBytes    int64   `json:"maxBytes"`
	UsedPercent float64 `json:"usedPercent"`
}

// FileDescriptors is open/max descriptor usage.
type FileDescriptors struct {
	Open        int64   `json:"open"`
	Max         int64   `json:"max"`
	UsedPercent float64 `json:"usedPercent"`
}

// Versions carries engine and core library versions.
type Versions struct {
	EngineVersion  string `json:"engineVersion"`
	CoreLibVersion string `json:"coreLibVersion"`
}

// MetricsSummary is the per-core metrics of a node summed over its cores.
type MetricsSummary struct {
	DocumentsIndexed int64 `json:"documentsIndexed"`
	IndexSizeBytes   int64 `json:"indexSizeBytes"`
	CoreCount        int   `json:"coreCount"`
}

// PingResult is the outcome of an /admin/ping call.
type PingResult struct {
	OK        bool   `json:"ok"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}
