package models

import "encoding/json"

// MemberStatus is the connectivity of one coordination host.
type MemberStatus string

const (
	MemberConnected    MemberStatus = "connected"
	MemberDisconnected MemberStatus = "disconnected"
	MemberUnknown      MemberStatus = "unknown"
)

// MemberRole is the role a coordination host reports.
type MemberRole string

const (
	RoleLeader   MemberRole = "leader"
	RoleFollower MemberRole = "follower"
	RoleObserver MemberRole = "observer"
	RoleUnknown  MemberRole = "unknown"
)

// EnsembleMode describes the ensemble layout.
type EnsembleMode string

const (
	ModeStandalone EnsembleMode = "standalone"
	ModeEnsemble   EnsembleMode = "ensemble"
	ModeUnknown    EnsembleMode = "unknown"
)

// EnsembleStatus is the traffic-light status of an ensemble or the whole cluster.
type EnsembleStatus string

const (
	EnsembleGreen       EnsembleStatus = "green"
	EnsembleYellow      EnsembleStatus = "yellow"
	EnsembleRed         EnsembleStatus = "red"
	EnsembleUnreachable EnsembleStatus = "unreachable"
	EnsembleUnknown     EnsembleStatus = "unknown"
)

// EnsembleMemberHealth is one normalized coordination host.
type EnsembleMemberHealth struct {
	Hostname          string       `json:"hostname"`
	Port              int          `json:"port"`
	Status            MemberStatus `json:"status"`
	Role              MemberRole   `json:"role"`
	ServerID          *int64       `json:"serverId,omitempty"`
	Version           string       `json:"version,omitempty"`
	ActiveConnections *int64       `json:"activeConnections,omitempty"`
	AvgLatencyMs      *float64     `json:"avgLatencyMs,omitempty"`
	ClientPort        *int64       `json:"clientPort,omitempty"`
}

// DatacenterZkSummary is the coordination view of one datacenter.
// RawMembers[i] is the upstream record Members[i] was normalized from.
type DatacenterZkSummary struct {
	Datacenter             string                       `json:"datacenter"`
	Members                []EnsembleMemberHealth       `json:"members"`
	RawMembers             []map[string]json.RawMessage `json:"rawMembers,omitempty"`
	TotalMembers           int                          `json:"totalMembers"`
	ConnectedMembers       int                          `json:"connectedMembers"`
	DisconnectedMembers    int                          `json:"disconnectedMembers"`
	Mode                   EnsembleMode                 `json:"mode"`
	EnsembleSize           int                          `json:"ensembleSize"`
	OverallStatus          EnsembleStatus               `json:"overallStatus"`
	DynamicReconfigEnabled bool                         `json:"dynamicReconfigEnabled"`
	ConnectionString       string                       `json:"connectionString"`
	Errors                 []string                     `json:"errors"`
	RetrievedFromHost      string                       `json:"retrievedFromHost,omitempty"`
}

// Reachable reports whether any node answered with a status payload.
func (s *DatacenterZkSummary) Reachable() bool {
	return s.OverallStatus != EnsembleUnreachable
}

// ClusterZkSummary rolls every datacenter's ensemble up.
type ClusterZkSummary struct {
	TotalDatacenters       int            `json:"totalDatacenters"`
	HealthyDatacenters     int            `json:"healthyDatacenters"`
	UnreachableDatacenters int            `json:"unreachableDatacenters"`
	TotalMembers           int            `json:"totalMembers"`
	ConnectedMembers       int            `json:"connectedMembers"`
	DisconnectedMembers    int            `json:"disconnectedMembers"`
	OverallStatus          EnsembleStatus `json:"overallStatus"`
}
