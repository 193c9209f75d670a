// Package topology models the static description of the search fleet:
// datacenters, their member nodes and the coordination ensemble hosts.
//
// A *Topology is immutable once loaded. Callers take one snapshot per request
// and read everything from it, so a concurrent reload can never tear a
// datacenter list from its node list.
package topology

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NodeIDSeparator joins a node name and its datacenter into a NodeID.
const NodeIDSeparator = "@"

// HostPort is one coordination ensemble host.
type HostPort struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// String renders the host in host:port form.
func (h HostPort) String() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// NodeRef is one search node as configured.
type NodeRef struct {
	Name string `json:"name" yaml:"name"`
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Address returns host:port.
func (n NodeRef) Address() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// Datacenter groups nodes that share a coordination ensemble.
type Datacenter struct {
	Name          string     `json:"name" yaml:"name"`
	IsDefault     bool       `json:"default" yaml:"default"`
	EnsembleHosts []HostPort `json:"zookeeperHosts" yaml:"zookeeperHosts"`
	Nodes         []NodeRef  `json:"nodes" yaml:"nodes"`
}

// Node returns the node with the given name, if it is a member.
func (d *Datacenter) Node(name string) (NodeRef, bool) {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeRef{}, false
}

// ConnectionString renders the ensemble hosts the way clients configure them.
func (d *Datacenter) ConnectionString() string {
	hosts := make([]string, 0, len(d.EnsembleHosts))
	for _, h := range d.EnsembleHosts {
		hosts = append(hosts, h.String())
	}
	return strings.Join(hosts, ",")
}

// Topology is the whole fleet.
type Topology struct {
	Datacenters []Datacenter `json:"datacenters" yaml:"datacenters"`
}

// Datacenter looks a datacenter up by name.
func (t *Topology) Datacenter(name string) (*Datacenter, bool) {
	for i := range t.Datacenters {
		if t.Datacenters[i].Name == name {
			return &t.Datacenters[i], true
		}
	}
	return nil, false
}

// DefaultDatacenter returns the first datacenter flagged as default, falling
// back to the first configured one. Returns nil for an empty topology.
func (t *Topology) DefaultDatacenter() *Datacenter {
	for i := range t.Datacenters {
		if t.Datacenters[i].IsDefault {
			return &t.Datacenters[i]
		}
	}
	if len(t.Datacenters) > 0 {
		return &t.Datacenters[0]
	}
	return nil
}

// DatacenterNames lists datacenter names in configured order.
func (t *Topology) DatacenterNames() []string {
	names := make([]string, 0, len(t.Datacenters))
	for _, dc := range t.Datacenters {
		names = append(names, dc.Name)
	}
	return names
}

// NodeCount returns the number of configured nodes across all datacenters.
func (t *Topology) NodeCount() int {
	n := 0
	for _, dc := range t.Datacenters {
		n += len(dc.Nodes)
	}
	return n
}

// Validate enforces the uniqueness and addressing rules of a topology.
// More than one default datacenter is tolerated; the first one wins.
func (t *Topology) Validate() error {
	seenDC := make(map[string]bool, len(t.Datacenters))
	for i, dc := range t.Datacenters {
		if dc.Name == "" {
			return fmt.Errorf("datacenter %d: name is required", i)
		}
		if strings.Contains(dc.Name, NodeIDSeparator) {
			return fmt.Errorf("datacenter %q: name must not contain %q", dc.Name, NodeIDSeparator)
		}
		if seenDC[dc.Name] {
			return fmt.Errorf("datacenter %q: duplicate name", dc.Name)
		}
		seenDC[dc.Name] = true

		seenNode := make(map[string]bool, len(dc.Nodes))
		for j, n := range dc.Nodes {
			if n.Name == "" {
				return fmt.Errorf("datacenter %q node %d: name is required", dc.Name, j)
			}
			if strings.Contains(n.Name, NodeIDSeparator) {
				return fmt.Errorf("datacenter %q node %q: name must not contain %q", dc.Name, n.Name, NodeIDSeparator)
			}
			if seenNode[n.Name] {
				return fmt.Errorf("datacenter %q node %q: duplicate name", dc.Name, n.Name)
			}
			seenNode[n.Name] = true
			if n.Host == "" {
				return fmt.Errorf("datacenter %q node %q: host is required", dc.Name, n.Name)
			}
			if !validPort(n.Port) {
				return fmt.Errorf("datacenter %q node %q: invalid port %d", dc.Name, n.Name, n.Port)
			}
		}

		for _, h := range dc.EnsembleHosts {
			if h.Host == "" {
				return fmt.Errorf("datacenter %q: ensemble host is required", dc.Name)
			}
			if !validPort(h.Port) {
				return fmt.Errorf("datacenter %q ensemble host %q: invalid port %d", dc.Name, h.Host, h.Port)
			}
		}
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// NodeID builds the composite identifier used externally for a node.
func NodeID(datacenter, node string) string {
	return node + NodeIDSeparator + datacenter
}

// ParseNodeID splits a NodeID into datacenter and node name.
func ParseNodeID(id string) (datacenter, node string, ok bool) {
	i := strings.LastIndex(id, NodeIDSeparator)
	if i <= 0 || i == len(id)-len(NodeIDSeparator) {
		return "", "", false
	}
	return id[i+len(NodeIDSeparator):], id[:i], true
}

// Target is one resolved (datacenter, node) pair to probe.
type Target struct {
	Datacenter *Datacenter
	Node       NodeRef
}

// ID returns the composite NodeID of the target.
func (t Target) ID() string {
	return NodeID(t.Datacenter.Name, t.Node.Name)
}
