// Package cluster answers health queries about the search fleet. It is the
// single place where a query is resolved against the topology, fanned out to
// the probers and rolled up.
package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/narvanalabs/solr-monitor/internal/fanout"
	"github.com/narvanalabs/solr-monitor/internal/models"
	"github.com/narvanalabs/solr-monitor/internal/probe"
	"github.com/narvanalabs/solr-monitor/internal/rollup"
	"github.com/narvanalabs/solr-monitor/internal/solr"
	"github.com/narvanalabs/solr-monitor/internal/topology"
)

// Upstream is the node API the service uses. *solr.Client implements it.
type Upstream interface {
	probe.Upstream
	Cores(ctx context.Context, node topology.NodeRef) (json.RawMessage, error)
	Forward(ctx context.Context, node topology.NodeRef, method, path string, body []byte, contentType string) (*solr.ProxyResponse, error)
}

// TopologySource hands out immutable topology snapshots. *topology.Store
// implements it.
type TopologySource interface {
	Snapshot() (*topology.Topology, error)
}

// Config holds the per-call-site timeouts and the fan-out cap.
type Config struct {
	// NodeTimeout bounds system-info, metrics and ping calls of node views.
	NodeTimeout time.Duration
	// SummaryTimeout bounds every call made for roll-up views.
	SummaryTimeout time.Duration
	// ZkDetailTimeout bounds each node attempt of on-demand coordination detail.
	ZkDetailTimeout time.Duration
	// ProxyTimeout bounds each candidate of a passthrough call.
	ProxyTimeout time.Duration
	// MaxConcurrency caps in-flight probes per fan-out; 0 means unbounded.
	MaxConcurrency int
}

// DefaultConfig returns the timeouts used when none are configured.
func DefaultConfig() Config {
	return Config{
		NodeTimeout:     5 * time.Second,
		SummaryTimeout:  2 * time.Second,
		ZkDetailTimeout: 10 * time.Second,
		ProxyTimeout:    10 * time.Second,
	}
}

// Service implements every health query. It keeps no state between calls:
// each call takes one topology snapshot and probes afresh.
type Service struct {
	topology  TopologySource
	upstream  Upstream
	nodes     *probe.NodeProber
	ensembles *probe.EnsembleProber
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a cluster service.
func NewService(topo TopologySource, upstream Upstream, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		topology:  topo,
		upstream:  upstream,
		nodes:     probe.NewNodeProber(upstream, logger),
		ensembles: probe.NewEnsembleProber(upstream, logger),
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Topology returns the current topology snapshot.
func (s *Service) Topology() (*topology.Topology, error) {
	return s.topology.Snapshot()
}

// ListNodes probes every node the query selects. Every selected node is
// present in the result whatever its probe outcome.
func (s *Service) ListNodes(ctx context.Context, q topology.Query) (*models.NodesList, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	targets, err := topo.Resolve(q)
	if err != nil {
		return nil, err
	}

	nodes := s.probeNodes(ctx, targets, probe.NodeOptions{Timeout: s.cfg.NodeTimeout, Metrics: true})
	summary := rollup.Nodes(nodes)

	s.logger.Debug("nodes probed",
		"datacenter", q.Datacenter,
		"total", summary.TotalNodes,
		"online", summary.OnlineNodes,
	)

	return &models.NodesList{
		Nodes:          nodes,
		Datacenters:    topo.DatacenterNames(),
		LoadedDefaults: !q.LoadAll,
		Summary:        summary,
	}, nil
}

// GetNode probes one node by NodeID or bare name.
func (s *Service) GetNode(ctx context.Context, id string) (*models.NodeHealth, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	target, err := topo.ResolveID(id)
	if err != nil {
		return nil, err
	}
	h := s.nodes.Probe(ctx, target, probe.NodeOptions{
		Timeout:           s.cfg.NodeTimeout,
		Metrics:           true,
		DistinguishErrors: true,
	})
	return &h, nil
}

// ZookeeperOverview summarizes the coordination ensembles of every datacenter,
// or of one when datacenter is set.
func (s *Service) ZookeeperOverview(ctx context.Context, datacenter string) (*models.ZookeeperOverview, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	dcs, err := scope(topo, datacenter)
	if err != nil {
		return nil, err
	}

	summaries := s.probeEnsembles(ctx, dcs, s.cfg.SummaryTimeout)

	out := &models.ZookeeperOverview{
		Datacenters: make(map[string]models.DatacenterZkSummary, len(summaries)),
		Summary:     rollup.Ensembles(summaries),
	}
	for _, zs := range summaries {
		out.Datacenters[zs.Datacenter] = zs
	}
	return out, nil
}

// ZookeeperDetails fetches the full coordination view of one datacenter with
// the long detail timeout. It fails with *UnavailableError when no node of
// the datacenter could report it.
func (s *Service) ZookeeperDetails(ctx context.Context, datacenter string) (*models.ZookeeperDetails, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	dc, ok := topo.Datacenter(datacenter)
	if !ok {
		return nil, &topology.NotFoundError{Kind: topology.KindDatacenter, Name: datacenter}
	}

	zs := s.ensembles.Probe(ctx, dc, s.cfg.ZkDetailTimeout)
	if zs.OverallStatus == models.EnsembleUnreachable {
		return nil, &UnavailableError{
			Resource: fmt.Sprintf("coordination status of datacenter %q", dc.Name),
			Reason:   "no node of the datacenter could report it",
			Errors:   zs.Errors,
		}
	}

	return &models.ZookeeperDetails{
		Datacenter:    dc.Name,
		RetrievedFrom: zs.RetrievedFromHost,
		ZkStatus:      zs,
		Timestamp:     s.now(),
	}, nil
}

// DatacentersSummary rolls every datacenter up using system info and
// coordination status only, both bounded by the summary timeout.
func (s *Service) DatacentersSummary(ctx context.Context) (*models.DatacentersSummary, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	targets, err := topo.Resolve(topology.Query{LoadAll: true})
	if err != nil {
		return nil, err
	}
	dcs := datacenters(topo)

	var (
		nodes    []models.NodeHealth
		ensemble []models.DatacenterZkSummary
		g        errgroup.Group
	)
	g.Go(func() error {
		nodes = s.probeNodes(ctx, targets, probe.NodeOptions{Timeout: s.cfg.SummaryTimeout})
		return nil
	})
	g.Go(func() error {
		ensemble = s.probeEnsembles(ctx, dcs, s.cfg.SummaryTimeout)
		return nil
	})
	_ = g.Wait()

	byDC := make(map[string][]models.NodeHealth, len(dcs))
	for _, n := range nodes {
		byDC[n.Datacenter] = append(byDC[n.Datacenter], n)
	}

	def := topo.DefaultDatacenter()
	rows := make([]models.DatacenterSummary, 0, len(dcs))
	for i, dc := range dcs {
		r := rollup.Nodes(byDC[dc.Name])
		rows = append(rows, models.DatacenterSummary{
			Name:      dc.Name,
			IsDefault: dc == def,
			Nodes:     r,
			Health:    r.Health,
			Zookeeper: ensemble[i],
		})
	}

	return &models.DatacentersSummary{
		Datacenters: rows,
		Summary:     rollup.Cluster(rows),
		Timestamp:   s.now(),
	}, nil
}

// DatacenterDetail probes every node of one datacenter with ping, system info
// and metrics, together with its coordination detail.
func (s *Service) DatacenterDetail(ctx context.Context, datacenter string) (*models.DatacenterDetail, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	targets, err := topo.Resolve(topology.Query{Datacenter: datacenter, LoadAll: true})
	if err != nil {
		return nil, err
	}
	dc, _ := topo.Datacenter(datacenter)

	var (
		details []models.NodeDetail
		zs      models.DatacenterZkSummary
		g       errgroup.Group
	)
	g.Go(func() error {
		details = fanout.Run(ctx, targets, s.probeDetail, fanout.Options[topology.Target, models.NodeDetail]{
			Limit: s.cfg.MaxConcurrency,
			OnPanic: func(t topology.Target, err error) models.NodeDetail {
				return models.NodeDetail{
					NodeHealth: s.panicked(t, err),
					Ping:       models.PingResult{Status: "failed", Error: err.Error()},
				}
			},
		})
		return nil
	})
	g.Go(func() error {
		zs = s.ensembles.Probe(ctx, dc, s.cfg.ZkDetailTimeout)
		return nil
	})
	_ = g.Wait()

	healths := make([]models.NodeHealth, len(details))
	for i := range details {
		healths[i] = details[i].NodeHealth
	}

	return &models.DatacenterDetail{
		Datacenter: dc.Name,
		IsDefault:  dc == topo.DefaultDatacenter(),
		Nodes:      details,
		Summary:    rollup.Nodes(healths),
		Zookeeper:  &zs,
		Timestamp:  s.now(),
	}, nil
}

// SystemInfo returns one node's raw system info document. With node empty,
// candidates are tried default datacenter first until one answers.
func (s *Service) SystemInfo(ctx context.Context, node string) (json.RawMessage, error) {
	candidates, err := s.candidates("", node)
	if err != nil {
		return nil, err
	}
	return tryCandidates(ctx, s, "system info", candidates, func(ctx context.Context, t topology.Target) (json.RawMessage, error) {
		info, err := s.upstream.SystemInfo(ctx, t.Node)
		if err != nil {
			return nil, err
		}
		return info.Raw, nil
	})
}

// Cores returns the core listing of the first candidate node that answers.
func (s *Service) Cores(ctx context.Context, datacenter, node string) (json.RawMessage, error) {
	candidates, err := s.candidates(datacenter, node)
	if err != nil {
		return nil, err
	}
	return tryCandidates(ctx, s, "core listing", candidates, func(ctx context.Context, t topology.Target) (json.RawMessage, error) {
		return s.upstream.Cores(ctx, t.Node)
	})
}

// Security relays a request to a node's authentication or authorization
// endpoint. The first candidate that produces any HTTP answer wins and its
// answer is returned as is.
func (s *Service) Security(ctx context.Context, node string, resource SecurityResource, method string, body []byte, contentType string) (*solr.ProxyResponse, error) {
	if !resource.Valid() {
		return nil, fmt.Errorf("unknown security resource %q", resource)
	}
	candidates, err := s.candidates("", node)
	if err != nil {
		return nil, err
	}
	return tryCandidates(ctx, s, "security "+string(resource), candidates, func(ctx context.Context, t topology.Target) (*solr.ProxyResponse, error) {
		return s.upstream.Forward(ctx, t.Node, method, "/admin/"+string(resource), body, contentType)
	})
}

// SecurityResource names a node security endpoint.
type SecurityResource string

const (
	SecurityAuthentication SecurityResource = "authentication"
	SecurityAuthorization  SecurityResource = "authorization"
)

// Valid reports whether r is a known security endpoint.
func (r SecurityResource) Valid() bool {
	return r == SecurityAuthentication || r == SecurityAuthorization
}

func (s *Service) probeNodes(ctx context.Context, targets []topology.Target, opts probe.NodeOptions) []models.NodeHealth {
	return fanout.Run(ctx, targets,
		func(ctx context.Context, t topology.Target) models.NodeHealth {
			return s.nodes.Probe(ctx, t, opts)
		},
		fanout.Options[topology.Target, models.NodeHealth]{
			Limit:   s.cfg.MaxConcurrency,
			OnPanic: s.panicked,
		},
	)
}

func (s *Service) probeEnsembles(ctx context.Context, dcs []*topology.Datacenter, timeout time.Duration) []models.DatacenterZkSummary {
	return fanout.Run(ctx, dcs,
		func(ctx context.Context, dc *topology.Datacenter) models.DatacenterZkSummary {
			return s.ensembles.Probe(ctx, dc, timeout)
		},
		fanout.Options[*topology.Datacenter, models.DatacenterZkSummary]{
			Limit: s.cfg.MaxConcurrency,
			OnPanic: func(dc *topology.Datacenter, err error) models.DatacenterZkSummary {
				s.logger.Error("coordination probe panicked", "datacenter", dc.Name, "error", err)
				return probe.Unreachable(dc, []string{err.Error()})
			},
		},
	)
}

func (s *Service) probeDetail(ctx context.Context, t topology.Target) models.NodeDetail {
	var (
		d models.NodeDetail
		g errgroup.Group
	)
	g.Go(func() error {
		d.NodeHealth = s.nodes.Probe(ctx, t, probe.NodeOptions{Timeout: s.cfg.NodeTimeout, Metrics: true})
		return nil
	})
	g.Go(func() error {
		d.Ping = s.nodes.Ping(ctx, t, s.cfg.NodeTimeout)
		return nil
	})
	_ = g.Wait()
	return d
}

func (s *Service) panicked(t topology.Target, err error) models.NodeHealth {
	s.logger.Error("node probe panicked", "node_id", t.ID(), "error", err)
	h := probe.Identity(t, s.upstream.BaseURL(t.Node))
	h.Status = models.NodeStatusError
	h.Error = err.Error()
	return h
}

// candidates resolves the fallback order of a passthrough call. A node
// selector may be a NodeID or a bare name.
func (s *Service) candidates(datacenter, node string) ([]topology.Target, error) {
	topo, err := s.topology.Snapshot()
	if err != nil {
		return nil, err
	}
	if datacenter == "" && node != "" {
		t, err := topo.ResolveID(node)
		if err != nil {
			return nil, err
		}
		return []topology.Target{t}, nil
	}
	return topo.Candidates(datacenter, node)
}

// tryCandidates calls fn on each candidate in order, each bounded by the
// proxy timeout, and returns the first success.
func tryCandidates[R any](ctx context.Context, s *Service, op string, candidates []topology.Target, fn func(context.Context, topology.Target) (R, error)) (R, error) {
	var zero R
	attempts := make([]string, 0, len(candidates))
	for _, t := range candidates {
		if ctx.Err() != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProxyTimeout)
		res, err := fn(callCtx, t)
		cancel()
		if err == nil {
			return res, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %s", t.ID(), probe.Describe(err, s.cfg.ProxyTimeout)))
		s.logger.Debug("passthrough candidate failed", "operation", op, "node_id", t.ID(), "error", err)
	}
	return zero, &CandidatesError{Operation: op, Attempts: attempts}
}

// scope returns the datacenters a datacenter selector covers, in order.
func scope(topo *topology.Topology, datacenter string) ([]*topology.Datacenter, error) {
	if datacenter == "" {
		return datacenters(topo), nil
	}
	dc, ok := topo.Datacenter(datacenter)
	if !ok {
		return nil, &topology.NotFoundError{Kind: topology.KindDatacenter, Name: datacenter}
	}
	return []*topology.Datacenter{dc}, nil
}

func datacenters(topo *topology.Topology) []*topology.Datacenter {
	out := make([]*topology.Datacenter, len(topo.Datacenters))
	for i := range topo.Datacenters {
		out[i] = &topo.Datacenters[i]
	}
	return out
}
