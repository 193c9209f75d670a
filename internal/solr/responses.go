package solr

import "encoding/json"

// SystemInfo is the subset of /admin/info/system the monitor reads.
// Raw keeps the full upstream document for passthrough views.
type SystemInfo struct {
	Mode     string     `json:"mode"`
	ZkHost   string     `json:"zkHost"`
	SolrHome string     `json:"solr_home"`
	Lucene   LuceneInfo `json:"lucene"`
	JVM      JVMInfo    `json:"jvm"`
	System   OSInfo     `json:"system"`

	Raw json.RawMessage `json:"-"`
}

// LuceneInfo carries engine and library versions.
type LuceneInfo struct {
	SolrSpecVersion   string `json:"solr-spec-version"`
	SolrImplVersion   string `json:"solr-impl-version"`
	LuceneSpecVersion string `json:"lucene-spec-version"`
	LuceneImplVersion string `json:"lucene-impl-version"`
}

// JVMInfo describes the node's JVM.
type JVMInfo struct {
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	Processors int       `json:"processors"`
	Memory     JVMMemory `json:"memory"`
	JMX        JMXInfo   `json:"jmx"`
}

// JVMMemory holds heap usage. Only the raw byte counts are read.
type JVMMemory struct {
	Raw JVMMemoryRaw `json:"raw"`
}

// JVMMemoryRaw is heap usage in bytes. UsedPercent is absent on some versions.
type JVMMemoryRaw struct {
	Free        int64    `json:"free"`
	Total       int64    `json:"total"`
	Max         int64    `json:"max"`
	Used        int64    `json:"used"`
	UsedPercent *float64 `json:"used%"`
}

// JMXInfo carries JVM uptime.
type JMXInfo struct {
	StartTime string `json:"startTime"`
	UpTimeMS  int64  `json:"upTimeMS"`
}

// OSInfo is the operating system section of system info.
type OSInfo struct {
	Name                    string  `json:"name"`
	Arch                    string  `json:"arch"`
	AvailableProcessors     int     `json:"availableProcessors"`
	SystemLoadAverage       float64 `json:"systemLoadAverage"`
	OpenFileDescriptorCount int64   `json:"openFileDescriptorCount"`
	MaxFileDescriptorCount  int64   `json:"maxFileDescriptorCount"`
	TotalPhysicalMemorySize int64   `json:"totalPhysicalMemorySize"`
	FreePhysicalMemorySize  int64   `json:"freePhysicalMemorySize"`
}

// Metric names requested from /admin/metrics.
const (
	MetricIndexSize = "INDEX.sizeInBytes"
	MetricNumDocs   = "SEARCHER.searcher.numDocs"
)

// Metrics is the /admin/metrics document: registry name to metric name to value.
// Values stay raw because their shape varies by metric type.
type Metrics struct {
	Metrics map[string]map[string]json.RawMessage `json:"metrics"`
}

// ZkStatus is the /admin/zookeeper/status document. The status payload is kept
// loosely typed; normalization happens in the ensemble prober.
type ZkStatus struct {
	Status map[string]json.RawMessage `json:"zkStatus"`

	Raw json.RawMessage `json:"-"`
}

// Ping is the /admin/ping document.
type Ping struct {
	Status string `json:"status"`
}
