// Package probe issues bounded-time status probes against search nodes and
// normalizes their answers.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/narvanalabs/solr-monitor/internal/models"
	"github.com/narvanalabs/solr-monitor/internal/rollup"
	"github.com/narvanalabs/solr-monitor/internal/solr"
	"github.com/narvanalabs/solr-monitor/internal/topology"
)

// Upstream is the node admin API the probers depend on. *solr.Client implements it.
type Upstream interface {
	BaseURL(node topology.NodeRef) string
	SystemInfo(ctx context.Context, node topology.NodeRef) (*solr.SystemInfo, error)
	CoreMetrics(ctx context.Context, node topology.NodeRef) (*solr.Metrics, error)
	ZkStatus(ctx context.Context, node topology.NodeRef) (*solr.ZkStatus, error)
	Ping(ctx context.Context, node topology.NodeRef) (*solr.Ping, error)
}

// NodeOptions controls one node probe.
type NodeOptions struct {
	// Timeout bounds each upstream call individually.
	Timeout time.Duration
	// Metrics requests the per-core metrics call alongside system info.
	Metrics bool
	// DistinguishErrors reports a node that answered badly as error instead
	// of offline. Only single-node lookups set it.
	DistinguishErrors bool
}

// NodeProber probes single nodes. It holds no mutable state.
type NodeProber struct {
	upstream Upstream
	logger   *slog.Logger
}

// NewNodeProber creates a node prober.
func NewNodeProber(u Upstream, logger *slog.Logger) *NodeProber {
	if logger == nil {
		logger = slog.Default()
	}
	return &NodeProber{upstream: u, logger: logger}
}

// Probe queries system info and, optionally, metrics. The two calls run
// concurrently and fail independently: a metrics failure only sets
// MetricsError, and the node's status depends on system info alone.
func (p *NodeProber) Probe(ctx context.Context, target topology.Target, opts NodeOptions) models.NodeHealth {
	h := Identity(target, p.upstream.BaseURL(target.Node))

	var (
		info       *solr.SystemInfo
		infoErr    error
		infoTook   time.Duration
		metrics    *solr.Metrics
		metricsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		start := time.Now()
		info, infoErr = p.upstream.SystemInfo(callCtx, target.Node)
		infoTook = time.Since(start)
		return nil
	})
	if opts.Metrics {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
			metrics, metricsErr = p.upstream.CoreMetrics(callCtx, target.Node)
			return nil
		})
	}
	_ = g.Wait()

	h.ResponseTimeMs = infoTook.Milliseconds()

	if infoErr != nil {
		h.Status = FailureStatus(infoErr, opts.DistinguishErrors)
		h.Error = Describe(infoErr, opts.Timeout)
		p.logger.Debug("node system info probe failed",
			"node_id", h.ID,
			"status", h.Status,
			"error", infoErr,
		)
	} else {
		h.Status = models.NodeStatusOnline
		h.SystemInfo = NormalizeSystemInfo(info)
	}

	if opts.Metrics {
		if metricsErr != nil {
			h.MetricsError = Describe(metricsErr, opts.Timeout)
			p.logger.Debug("node metrics probe failed", "node_id", h.ID, "error", metricsErr)
		} else {
			h.MetricsSummary = SummarizeMetrics(metrics)
		}
	}

	return h
}

// Ping calls /admin/ping and measures its latency.
func (p *NodeProber) Ping(ctx context.Context, target topology.Target, timeout time.Duration) models.PingResult {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.upstream.Ping(callCtx, target.Node)
	took := time.Since(start).Milliseconds()
	if err != nil {
		return models.PingResult{Status: "failed", LatencyMs: took, Error: Describe(err, timeout)}
	}
	status := strings.ToUpper(resp.Status)
	if status == "" {
		status = "OK"
	}
	return models.PingResult{OK: status == "OK", Status: status, LatencyMs: took}
}

// Identity fills the identity fields of a node document. Status starts offline
// so a document that is never probed reads as unreachable.
func Identity(target topology.Target, baseURL string) models.NodeHealth {
	return models.NodeHealth{
		ID:         target.ID(),
		Name:       target.Node.Name,
		Datacenter: target.Datacenter.Name,
		Host:       target.Node.Host,
		Port:       target.Node.Port,
		URL:        baseURL,
		Status:     models.NodeStatusOffline,
	}
}

// FailureStatus maps a failed system-info call to a node status. Every
// failure is offline unless distinguish is set, in which case a node that
// answered with a bad status or an undecodable body is in error.
func FailureStatus(err error, distinguish bool) models.NodeStatus {
	if distinguish && solr.KindOf(err) != solr.KindUnreachable {
		return models.NodeStatusError
	}
	return models.NodeStatusOffline
}

// Describe renders a probe failure for display.
func Describe(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out after %s", timeout)
	}
	var ue *solr.UpstreamError
	if errors.As(err, &ue) {
		switch ue.Kind {
		case solr.KindBadStatus:
			return fmt.Sprintf("HTTP %d from node", ue.StatusCode)
		case solr.KindDecode:
			return "invalid response from node"
		}
		if ue.Err != nil {
			return "unreachable: " + ue.Err.Error()
		}
	}
	return err.Error()
}

// NormalizeSystemInfo converts the upstream self-report. Percentages are taken
// from upstream when reported and otherwise computed, and are 0 whenever the
// denominator is missing.
func NormalizeSystemInfo(in *solr.SystemInfo) *models.SystemInfo {
	if in == nil {
		return nil
	}
	heap := in.JVM.Memory.Raw

	heapPercent := rollup.Percent(float64(heap.Used), float64(heap.Max))
	if heap.UsedPercent != nil && !math.IsNaN(*heap.UsedPercent) && !math.IsInf(*heap.UsedPercent, 0) {
		heapPercent = math.Round(*heap.UsedPercent*100) / 100
	}

	physUsed := in.System.TotalPhysicalMemorySize - in.System.FreePhysicalMemorySize
	if physUsed < 0 {
		physUsed = 0
	}

	processors := in.JVM.Processors
	if processors == 0 {
		processors = in.System.AvailableProcessors
	}

	return &models.SystemInfo{
		Mode:   in.Mode,
		ZkHost: in.ZkHost,
		JVMMemory: models.MemoryUsage{
			UsedBytes:   heap.Used,
			MaxBytes:    heap.Max,
			UsedPercent: heapPercent,
		},
		PhysicalMemory: models.MemoryUsage{
			UsedBytes:   physUsed,
			MaxBytes:    in.System.TotalPhysicalMemorySize,
			UsedPercent: rollup.Percent(float64(physUsed), float64(in.System.TotalPhysicalMemorySize)),
		},
		UptimeMs:       in.JVM.JMX.UpTimeMS,
		ProcessorCount: processors,
		LoadAverage:    in.System.SystemLoadAverage,
		FileDescriptors: models.FileDescriptors{
			Open:        in.System.OpenFileDescriptorCount,
			Max:         in.System.MaxFileDescriptorCount,
			UsedPercent: rollup.Percent(float64(in.System.OpenFileDescriptorCount), float64(in.System.MaxFileDescriptorCount)),
		},
		Versions: models.Versions{
			EngineVersion:  in.Lucene.SolrSpecVersion,
			CoreLibVersion: in.Lucene.LuceneSpecVersion,
		},
	}
}

// SummarizeMetrics sums document counts and index sizes across every core
// registry. Unreadable values count as zero.
func SummarizeMetrics(in *solr.Metrics) *models.MetricsSummary {
	out := &models.MetricsSummary{}
	if in == nil {
		return out
	}
	for registry, values := range in.Metrics {
		if !strings.HasPrefix(registry, "solr.core.") {
			continue
		}
		out.CoreCount++
		if v, st := Field(values, solr.MetricNumDocs).Int(); st.Usable() {
			out.DocumentsIndexed += v
		}
		if v, st := Field(values, solr.MetricIndexSize).Int(); st.Usable() {
			out.IndexSizeBytes += v
		}
	}
	return out
}
