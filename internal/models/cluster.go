package models

import (
	"time"
)

// DatacenterHealth classifies a datacenter by its nodes.
type DatacenterHealth string

const (
	DatacenterOnline   DatacenterHealth = "online"
	DatacenterDegraded DatacenterHealth = "degraded"
	DatacenterOffline  DatacenterHealth = "offline"
)

// NodeRollup aggregates a set of probed nodes.
type NodeRollup struct {
	TotalNodes          int              `json:"totalNodes"`
	OnlineNodes         int              `json:"onlineNodes"`
	OfflineNodes        int              `json:"offlineNodes"`
	ErrorNodes          int              `json:"errorNodes"`
	Health              DatacenterHealth `json:"health"`
	HealthPercent       float64          `json:"healthPercent"`
	TotalDocuments      int64            `json:"totalDocuments"`
	TotalIndexSizeBytes int64            `json:"totalIndexSizeBytes"`
}

// DatacenterSummary is one row of the datacenters summary view.
type DatacenterSummary struct {
	Name      string              `json:"name"`
	IsDefault bool                `json:"isDefault"`
	Nodes     NodeRollup          `json:"nodes"`
	Health    DatacenterHealth    `json:"health"`
	Zookeeper DatacenterZkSummary `json:"zookeeper"`
}

// ClusterSummary is the top-level roll-up across all datacenters.
type ClusterSummary struct {
	TotalDatacenters    int              `json:"totalDatacenters"`
	OnlineDatacenters   int              `json:"onlineDatacenters"`
	DegradedDatacenters int              `json:"degradedDatacenters"`
	OfflineDatacenters  int              `json:"offlineDatacenters"`
	TotalNodes          int              `json:"totalNodes"`
	OnlineNodes         int              `json:"onlineNodes"`
	OfflineNodes        int              `json:"offlineNodes"`
	TotalZkMembers      int              `json:"totalZkMembers"`
	ConnectedZkMembers  int              `json:"connectedZkMembers"`
	ZkStatus            EnsembleStatus   `json:"zkStatus"`
	OverallHealth       float64          `json:"overallHealth"`
	Health              DatacenterHealth `json:"health"`
}

// NodesList is the body of GET /cluster/nodes.
type NodesList struct {
	Nodes          []NodeHealth `json:"nodes"`
	Datacenters    []string     `json:"datacenters"`
	LoadedDefaults bool         `json:"loadedDefaults"`
	Summary        NodeRollup   `json:"summary"`
}

// ZookeeperOverview is the body of GET /cluster/zookeeper.
type ZookeeperOverview struct {
	Datacenters map[string]DatacenterZkSummary `json:"datacenters"`
	Summary     ClusterZkSummary               `json:"summary"`
}

// ZookeeperDetails is the body of GET /cluster/zookeeper/{datacenter}/details.
type ZookeeperDetails struct {
	Datacenter    string              `json:"datacenter"`
	RetrievedFrom string              `json:"retrievedFrom"`
	ZkStatus      DatacenterZkSummary `json:"zkStatus"`
	Timestamp     time.Time           `json:"timestamp"`
}

// DatacentersSummary is the body of GET /datacenters/summary and of every
// streamed snapshot.
type DatacentersSummary struct {
	Datacenters []DatacenterSummary `json:"datacenters"`
	Summary     ClusterSummary      `json:"summary"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NodeDetail is one node of the datacenter detail view.
type NodeDetail struct {
	NodeHealth
	Ping PingResult `json:"ping"`
}

// DatacenterDetail is the body of GET /datacenters/{datacenter}.
type DatacenterDetail struct {
	Datacenter string               `json:"datacenter"`
	IsDefault  bool                 `json:"isDefault"`
	Nodes      []NodeDetail         `json:"nodes"`
	Summary    NodeRollup           `json:"summary"`
	Zookeeper  *DatacenterZkSummary `json:"zookeeper,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}
