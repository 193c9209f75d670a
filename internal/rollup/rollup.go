// Package rollup folds probe results into datacenter and cluster summaries.
//
// Every function here is a pure reduction over already-collected results.
// Missing data degrades a summary; it never makes a computation fail.
package rollup

import (
	"math"

	"github.com/narvanalabs/solr-monitor/internal/models"
)

// Percent returns part/whole*100 rounded to two decimals, or 0 when whole is
// not positive or the result is not finite.
func Percent(part, whole float64) float64 {
	if whole <= 0 || math.IsNaN(whole) || math.IsInf(whole, 0) {
		return 0
	}
	p := part / whole * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return math.Round(p*100) / 100
}

// ClassifyDatacenter maps online/total node counts to a health class:
// all online is online, none online is offline, anything else is degraded.
// A datacenter without nodes is offline.
func ClassifyDatacenter(online, total int) models.DatacenterHealth {
	switch {
	case total <= 0 || online <= 0:
		return models.DatacenterOffline
	case online >= total:
		return models.DatacenterOnline
	default:
		return models.DatacenterDegraded
	}
}

// EnsembleStatus applies the traffic-light rule to member counts.
// responded tells whether any node produced a status payload at all and
// disconnected counts members that explicitly reported ok=false. Red needs at
// least one such member; members that said nothing leave the status unknown.
func EnsembleStatus(total, connected, disconnected int, responded bool) models.EnsembleStatus {
	switch {
	case !responded:
		return models.EnsembleUnreachable
	case total <= 0:
		return models.EnsembleUnknown
	case connected >= total:
		return models.EnsembleGreen
	case connected > 0:
		return models.EnsembleYellow
	case disconnected > 0:
		return models.EnsembleRed
	default:
		return models.EnsembleUnknown
	}
}

// Nodes summarizes a set of probed nodes. Metrics are summed over nodes with
// a successful metrics probe; the rest contribute zero.
func Nodes(nodes []models.NodeHealth) models.NodeRollup {
	r := models.NodeRollup{TotalNodes: len(nodes)}
	for i := range nodes {
		n := &nodes[i]
		switch n.Status {
		case models.NodeStatusOnline:
			r.OnlineNodes++
		case models.NodeStatusError:
			r.ErrorNodes++
		default:
			r.OfflineNodes++
		}
		if n.MetricsSummary != nil {
			r.TotalDocuments += n.MetricsSummary.DocumentsIndexed
			r.TotalIndexSizeBytes += n.MetricsSummary.IndexSizeBytes
		}
	}
	r.Health = ClassifyDatacenter(r.OnlineNodes, r.TotalNodes)
	r.HealthPercent = Percent(float64(r.OnlineNodes), float64(r.TotalNodes))
	return r
}

// Ensembles rolls datacenter coordination summaries up to the cluster.
func Ensembles(summaries []models.DatacenterZkSummary) models.ClusterZkSummary {
	out := models.ClusterZkSummary{TotalDatacenters: len(summaries)}
	responded := false
	for i := range summaries {
		s := &summaries[i]
		out.TotalMembers += s.TotalMembers
		out.ConnectedMembers += s.ConnectedMembers
		out.DisconnectedMembers += s.DisconnectedMembers
		if s.Reachable() {
			responded = true
		} else {
			out.UnreachableDatacenters++
		}
		if s.OverallStatus == models.EnsembleGreen {
			out.HealthyDatacenters++
		}
	}
	out.OverallStatus = EnsembleStatus(out.TotalMembers, out.ConnectedMembers, out.DisconnectedMembers, responded)
	if len(summaries) == 0 {
		out.OverallStatus = models.EnsembleUnknown
	}
	return out
}

// Cluster builds the top-level summary from per-datacenter rows.
func Cluster(rows []models.DatacenterSummary) models.ClusterSummary {
	out := models.ClusterSummary{TotalDatacenters: len(rows)}
	zk := make([]models.DatacenterZkSummary, 0, len(rows))

	for i := range rows {
		row := &rows[i]
		out.TotalNodes += row.Nodes.TotalNodes
		out.OnlineNodes += row.Nodes.OnlineNodes
		switch row.Health {
		case models.DatacenterOnline:
			out.OnlineDatacenters++
		case models.DatacenterDegraded:
			out.DegradedDatacenters++
		default:
			out.OfflineDatacenters++
		}
		zk = append(zk, row.Zookeeper)
	}

	out.OfflineNodes = out.TotalNodes - out.OnlineNodes
	out.OverallHealth = Percent(float64(out.OnlineNodes), float64(out.TotalNodes))
	out.Health = ClassifyDatacenter(out.OnlineNodes, out.TotalNodes)

	zkSummary := Ensembles(zk)
	out.TotalZkMembers = zkSummary.TotalMembers
	out.ConnectedZkMembers = zkSummary.ConnectedMembers
	out.ZkStatus = zkSummary.OverallStatus
	return out
}
