package probe

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvanalabs/solr-monitor/internal/models"
	"github.com/narvanalabs/solr-monitor/internal/solr"
	"github.com/narvanalabs/solr-monitor/internal/topology"
)

func healthyInfo() *solr.SystemInfo {
	info := &solr.SystemInfo{Mode: "solrcloud", ZkHost: "zk1:2181"}
	info.Lucene.SolrSpecVersion = "9.4.0"
	info.Lucene.LuceneSpecVersion = "9.8.0"
	info.JVM.Processors = 8
	info.JVM.Memory.Raw.Used = 512
	info.JVM.Memory.Raw.Max = 1024
	info.JVM.JMX.UpTimeMS = 3600000
	info.System.TotalPhysicalMemorySize = 4000
	info.System.FreePhysicalMemorySize = 1000
	info.System.OpenFileDescriptorCount = 100
	info.System.MaxFileDescriptorCount = 400
	return info
}

func targetOf(dc *topology.Datacenter, i int) topology.Target {
	return topology.Target{Datacenter: dc, Node: dc.Nodes[i]}
}

func TestNodeProbeOnline(t *testing.T) {
	up := newFakeUpstream()
	up.info["solr1"] = healthyInfo()
	up.metrics["solr1"] = &solr.Metrics{Metrics: map[string]map[string]json.RawMessage{
		"solr.core.products.shard1.replica_n1": {
			solr.MetricNumDocs:   json.RawMessage(`1200`),
			solr.MetricIndexSize: json.RawMessage(`"2048"`),
		},
		"solr.core.orders.shard1.replica_n1": {
			solr.MetricNumDocs: json.RawMessage(`300`),
		},
		"solr.jvm": {
			solr.MetricNumDocs: json.RawMessage(`99999`),
		},
	}}

	h := NewNodeProber(up, nil).Probe(context.Background(), targetOf(london(), 0), NodeOptions{Timeout: time.Second, Metrics: true})

	assert.Equal(t, "solr1@London", h.ID)
	assert.Equal(t, "http://solr1:8983/solr", h.URL)
	assert.Equal(t, models.NodeStatusOnline, h.Status)
	assert.Empty(t, h.Error)
	require.NotNil(t, h.SystemInfo)
	assert.Equal(t, 50.0, h.SystemInfo.JVMMemory.UsedPercent)
	assert.Equal(t, int64(3000), h.SystemInfo.PhysicalMemory.UsedBytes)
	assert.Equal(t, 75.0, h.SystemInfo.PhysicalMemory.UsedPercent)
	assert.Equal(t, 25.0, h.SystemInfo.FileDescriptors.UsedPercent)
	assert.Equal(t, "9.4.0", h.SystemInfo.Versions.EngineVersion)

	require.NotNil(t, h.MetricsSummary)
	assert.Equal(t, 2, h.MetricsSummary.CoreCount)
	assert.Equal(t, int64(1500), h.MetricsSummary.DocumentsIndexed)
	assert.Equal(t, int64(2048), h.MetricsSummary.IndexSizeBytes)
}

func TestNodeProbeMetricsFailureKeepsNodeOnline(t *testing.T) {
	up := newFakeUpstream()
	up.info["solr1"] = healthyInfo()

	h := NewNodeProber(up, nil).Probe(context.Background(), targetOf(london(), 0), NodeOptions{Timeout: time.Second, Metrics: true})

	assert.Equal(t, models.NodeStatusOnline, h.Status)
	assert.Nil(t, h.MetricsSummary)
	assert.NotEmpty(t, h.MetricsError)
}

func TestNodeProbeWithoutMetricsSkipsCall(t *testing.T) {
	up := newFakeUpstream()
	up.info["solr1"] = healthyInfo()

	h := NewNodeProber(up, nil).Probe(context.Background(), targetOf(london(), 0), NodeOptions{Timeout: time.Second})

	assert.Equal(t, models.NodeStatusOnline, h.Status)
	assert.Nil(t, h.MetricsSummary)
	assert.Empty(t, h.MetricsError)
}

func TestNodeProbeFailureClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		distinguish bool
		wantStatus  models.NodeStatus
		wantError   string
	}{
		{
			name:       "connection refused",
			wantStatus: models.NodeStatusOffline,
			wantError:  "unreachable: connection refused",
		},
		{
			name:       "bad status",
			err:        &solr.UpstreamError{Kind: solr.KindBadStatus, StatusCode: 500},
			wantStatus: models.NodeStatusOffline,
			wantError:  "HTTP 500 from node",
		},
		{
			name:       "undecodable body",
			err:        &solr.UpstreamError{Kind: solr.KindDecode},
			wantStatus: models.NodeStatusOffline,
			wantError:  "invalid response from node",
		},
		{
			name:        "connection refused on a single-node lookup",
			distinguish: true,
			wantStatus:  models.NodeStatusOffline,
			wantError:   "unreachable: connection refused",
		},
		{
			name:        "bad status on a single-node lookup",
			err:         &solr.UpstreamError{Kind: solr.KindBadStatus, StatusCode: 500},
			distinguish: true,
			wantStatus:  models.NodeStatusError,
			wantError:   "HTTP 500 from node",
		},
		{
			name:        "undecodable body on a single-node lookup",
			err:         &solr.UpstreamError{Kind: solr.KindDecode},
			distinguish: true,
			wantStatus:  models.NodeStatusError,
			wantError:   "invalid response from node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream()
			if tt.err != nil {
				up.errs["solr2/info"] = tt.err
			}
			h := NewNodeProber(up, nil).Probe(context.Background(), targetOf(london(), 1), NodeOptions{
				Timeout:           time.Second,
				DistinguishErrors: tt.distinguish,
			})

			assert.Equal(t, tt.wantStatus, h.Status)
			assert.Equal(t, tt.wantError, h.Error)
			assert.Nil(t, h.SystemInfo)
			assert.Equal(t, "solr2@London", h.ID)
		})
	}
}

func TestNodeProbeTimeoutIsOffline(t *testing.T) {
	up := newFakeUpstream()
	up.info["solr1"] = healthyInfo()
	up.delay["solr1/info"] = 2 * time.Second

	start := time.Now()
	h := NewNodeProber(up, nil).Probe(context.Background(), targetOf(london(), 0), NodeOptions{Timeout: 50 * time.Millisecond})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.NodeStatusOffline, h.Status)
	assert.Equal(t, "timed out after 50ms", h.Error)
}

func TestPing(t *testing.T) {
	up := newFakeUpstream()
	up.ping["solr1"] = &solr.Ping{Status: "ok"}
	up.ping["solr2"] = &solr.Ping{}
	prober := NewNodeProber(up, nil)
	dc := london()

	res := prober.Ping(context.Background(), targetOf(dc, 0), time.Second)
	assert.True(t, res.OK)
	assert.Equal(t, "OK", res.Status)

	res = prober.Ping(context.Background(), targetOf(dc, 1), time.Second)
	assert.True(t, res.OK)

	up.errs["solr2/ping"] = &solr.UpstreamError{Kind: solr.KindBadStatus, StatusCode: 503}
	res = prober.Ping(context.Background(), targetOf(dc, 1), time.Second)
	assert.False(t, res.OK)
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, "HTTP 503 from node", res.Error)
}

func TestNormalizeSystemInfoPrefersUpstreamPercent(t *testing.T) {
	info := healthyInfo()
	pct := 12.3456
	info.JVM.Memory.Raw.UsedPercent = &pct
	info.JVM.Processors = 0
	info.System.AvailableProcessors = 4

	out := NormalizeSystemInfo(info)
	assert.Equal(t, 12.35, out.JVMMemory.UsedPercent)
	assert.Equal(t, 4, out.ProcessorCount)

	nan := math.NaN()
	info.JVM.Memory.Raw.UsedPercent = &nan
	assert.Equal(t, 50.0, NormalizeSystemInfo(info).JVMMemory.UsedPercent)

	assert.Nil(t, NormalizeSystemInfo(nil))
}

// **Feature: node-probe, Property 1: Percentages Are Always Finite**
// *For any* memory and descriptor counts, including zero or missing maxima and
// free memory above total, the normalized percentages SHALL be finite and
// non-negative and used physical memory SHALL never be negative.
func TestPropertyPercentagesAreFinite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("normalized percentages are finite", prop.ForAll(
		func(used, max, total, free, open, maxFD int64) bool {
			info := &solr.SystemInfo{}
			info.JVM.Memory.Raw.Used = used
			info.JVM.Memory.Raw.Max = max
			info.System.TotalPhysicalMemorySize = total
			info.System.FreePhysicalMemorySize = free
			info.System.OpenFileDescriptorCount = open
			info.System.MaxFileDescriptorCount = maxFD

			out := NormalizeSystemInfo(info)
			for _, p := range []float64{out.JVMMemory.UsedPercent, out.PhysicalMemory.UsedPercent, out.FileDescriptors.UsedPercent} {
				if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
					return false
				}
			}
			if max <= 0 && out.JVMMemory.UsedPercent != 0 {
				return false
			}
			return out.PhysicalMemory.UsedBytes >= 0
		},
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<40),
		gen.Int64Range(0, 1<<20),
		gen.Int64Range(0, 1<<20),
	))

	properties.TestingRun(t)
}
