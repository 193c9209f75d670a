package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/narvanalabs/solr-monitor/internal/models"
	"github.com/narvanalabs/solr-monitor/internal/rollup"
	"github.com/narvanalabs/solr-monitor/internal/topology"
)

// Keys of the coordination status payload. Member records use several names
// for the same value depending on the ensemble version.
var (
	keyServerID    = []string{"serverId", "zk_server_id", "server_id", "myid"}
	keyVersion     = []string{"zk_version", "version"}
	keyConnections = []string{"zk_num_alive_connections", "num_alive_connections"}
	keyAvgLatency  = []string{"zk_avg_latency", "avg_latency"}
	keyState       = []string{"zk_server_state", "role", "mode"}
)

// EnsembleProber derives a datacenter's coordination view through its nodes.
type EnsembleProber struct {
	upstream Upstream
	logger   *slog.Logger
}

// NewEnsembleProber creates an ensemble prober.
func NewEnsembleProber(u Upstream, logger *slog.Logger) *EnsembleProber {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnsembleProber{upstream: u, logger: logger}
}

// Probe asks the datacenter's nodes, in configured order, for the ensemble
// status they see. The first node returning a non-empty payload is used. When
// none does, the summary is built from the configured ensemble hosts and
// marked unreachable. timeout bounds each node attempt.
func (p *EnsembleProber) Probe(ctx context.Context, dc *topology.Datacenter, timeout time.Duration) models.DatacenterZkSummary {
	var failures []string

	for _, node := range dc.Nodes {
		if ctx.Err() != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", node.Name, ctx.Err()))
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		st, err := p.upstream.ZkStatus(callCtx, node)
		cancel()

		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", node.Name, Describe(err, timeout)))
			p.logger.Debug("coordination status probe failed",
				"datacenter", dc.Name,
				"node", node.Name,
				"error", err,
			)
			continue
		}
		if len(st.Status) == 0 {
			failures = append(failures, fmt.Sprintf("%s: empty coordination status", node.Name))
			continue
		}

		summary := NormalizeEnsemble(dc, st.Status)
		summary.RetrievedFromHost = node.Address()
		return summary
	}

	return Unreachable(dc, failures)
}

// Unreachable builds the summary used when no node could report the ensemble
// status. Every configured host is listed with unknown status and role.
func Unreachable(dc *topology.Datacenter, failures []string) models.DatacenterZkSummary {
	members := configuredMembers(dc)
	errs := make([]string, 0, len(failures)+1)
	errs = append(errs, failures...)
	if len(dc.Nodes) == 0 {
		errs = append(errs, fmt.Sprintf("datacenter %q has no nodes to query coordination status through", dc.Name))
	} else {
		errs = append(errs, fmt.Sprintf("coordination status unavailable from all %d nodes of datacenter %q", len(dc.Nodes), dc.Name))
	}

	return models.DatacenterZkSummary{
		Datacenter:       dc.Name,
		Members:          members,
		TotalMembers:     len(members),
		ConnectedMembers: 0,
		Mode:             modeFromSize(len(dc.EnsembleHosts)),
		EnsembleSize:     len(dc.EnsembleHosts),
		OverallStatus:    models.EnsembleUnreachable,
		ConnectionString: dc.ConnectionString(),
		Errors:           errs,
	}
}

// NormalizeEnsemble converts one upstream status payload. Members keep the
// upstream order and RawMembers[i] is the record Members[i] came from.
func NormalizeEnsemble(dc *topology.Datacenter, status map[string]json.RawMessage) models.DatacenterZkSummary {
	out := models.DatacenterZkSummary{
		Datacenter: dc.Name,
		Errors:     []string{},
	}

	details, state := Field(status, "details").Array()
	if state == FieldMistyped {
		out.Errors = append(out.Errors, "coordination status details are malformed")
	}

	for i, raw := range details {
		rec, st := RawField{raw: raw}.Object()
		if !st.Usable() {
			out.Errors = append(out.Errors, fmt.Sprintf("member record %d is malformed", i))
			rec = map[string]json.RawMessage{}
		}
		m := normalizeMember(rec)
		switch m.Status {
		case models.MemberConnected:
			out.ConnectedMembers++
		case models.MemberDisconnected:
			out.DisconnectedMembers++
		}
		out.Members = append(out.Members, m)
		out.RawMembers = append(out.RawMembers, rec)
	}
	out.TotalMembers = len(out.Members)

	if size, st := Field(status, "ensembleSize").Int(); st.Usable() {
		out.EnsembleSize = int(size)
	} else {
		out.EnsembleSize = out.TotalMembers
	}

	out.ConnectionString = dc.ConnectionString()
	if zkHost, st := Field(status, "zkHost").String(); st.Usable() && zkHost != "" {
		out.ConnectionString = zkHost
	}

	out.Mode = modeFromSize(out.EnsembleSize)
	if mode, st := Field(status, "mode").String(); st == FieldTyped {
		switch models.EnsembleMode(strings.ToLower(mode)) {
		case models.ModeStandalone:
			out.Mode = models.ModeStandalone
		case models.ModeEnsemble:
			out.Mode = models.ModeEnsemble
		}
	}

	if dyn, st := Field(status, "dynamicReconfig").Bool(); st.Usable() {
		out.DynamicReconfigEnabled = dyn
	}

	if upstreamErrs, st := Field(status, "errors").Array(); st.Usable() {
		for _, e := range upstreamErrs {
			if s, st := (RawField{raw: e}).String(); st.Usable() && s != "" {
				out.Errors = append(out.Errors, s)
			}
		}
	}

	if out.TotalMembers == 0 {
		// The node answered but listed no members: report what is configured
		// without claiming anything about it.
		out.Members = configuredMembers(dc)
		out.RawMembers = nil
		out.TotalMembers = len(out.Members)
		out.OverallStatus = models.EnsembleUnknown
		out.Errors = append(out.Errors, "coordination status listed no ensemble members")
		return out
	}

	out.OverallStatus = rollup.EnsembleStatus(out.TotalMembers, out.ConnectedMembers, out.DisconnectedMembers, true)
	return out
}

func normalizeMember(rec map[string]json.RawMessage) models.EnsembleMemberHealth {
	m := models.EnsembleMemberHealth{
		Status: models.MemberUnknown,
		Role:   models.RoleUnknown,
	}

	if hp, st := Field(rec, "host").String(); st.Usable() {
		m.Hostname, m.Port = splitHostPort(hp)
	}

	switch ok, st := Field(rec, "ok").Bool(); {
	case st.Usable() && ok:
		m.Status = models.MemberConnected
	case st != FieldAbsent:
		m.Status = models.MemberDisconnected
	}

	if s, st := Field(rec, keyState...).String(); st == FieldTyped {
		m.Role = normalizeRole(s)
	}

	if v, st := Field(rec, keyServerID...).Int(); st.Usable() {
		m.ServerID = &v
	}
	if v, st := Field(rec, keyVersion...).String(); st.Usable() && v != "" {
		// zk_version carries the build stamp after the first comma.
		m.Version = strings.TrimSpace(strings.SplitN(v, ",", 2)[0])
	}
	if v, st := Field(rec, keyConnections...).Int(); st.Usable() {
		m.ActiveConnections = &v
	}
	if v, st := Field(rec, keyAvgLatency...).Float(); st.Usable() {
		m.AvgLatencyMs = &v
	}
	if v, st := Field(rec, "clientPort").Int(); st.Usable() {
		m.ClientPort = &v
		if m.Port == 0 {
			m.Port = int(v)
		}
	}
	return m
}

func normalizeRole(s string) models.MemberRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leader", "standalone":
		return models.RoleLeader
	case "follower":
		return models.RoleFollower
	case "observer":
		return models.RoleObserver
	default:
		return models.RoleUnknown
	}
}

func configuredMembers(dc *topology.Datacenter) []models.EnsembleMemberHealth {
	members := make([]models.EnsembleMemberHealth, 0, len(dc.EnsembleHosts))
	for _, h := range dc.EnsembleHosts {
		members = append(members, models.EnsembleMemberHealth{
			Hostname: h.Host,
			Port:     h.Port,
			Status:   models.MemberUnknown,
			Role:     models.RoleUnknown,
		})
	}
	return members
}

func modeFromSize(size int) models.EnsembleMode {
	switch {
	case size == 1:
		return models.ModeStandalone
	case size > 1:
		return models.ModeEnsemble
	default:
		return models.ModeUnknown
	}
}

// splitHostPort accepts "host:port", "[v6]:port" and a bare host.
func splitHostPort(s string) (string, int) {
	s = strings.TrimSpace(s)
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return s, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
