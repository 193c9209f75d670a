package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/narvanalabs/solr-monitor/internal/solr"
	"github.com/narvanalabs/solr-monitor/internal/topology"
)

// fakeUpstream answers per node host. Missing entries behave like a refused
// connection.
type fakeUpstream struct {
	mu sync.Mutex

	info    map[string]*solr.SystemInfo
	metrics map[string]*solr.Metrics
	zk      map[string]*solr.ZkStatus
	ping    map[string]*solr.Ping
	errs    map[string]error
	delay   map[string]time.Duration

	zkCalls []string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		info:    map[string]*solr.SystemInfo{},
		metrics: map[string]*solr.Metrics{},
		zk:      map[string]*solr.ZkStatus{},
		ping:    map[string]*solr.Ping{},
		errs:    map[string]error{},
		delay:   map[string]time.Duration{},
	}
}

func (f *fakeUpstream) BaseURL(node topology.NodeRef) string {
	return "http://" + node.Address() + "/solr"
}

func (f *fakeUpstream) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	d := f.delay[key]
	err := f.errs[key]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return &solr.UpstreamError{URL: key, Kind: solr.KindUnreachable, Err: ctx.Err()}
		}
	}
	return err
}

func refused(key string) error {
	return &solr.UpstreamError{URL: key, Kind: solr.KindUnreachable, Err: fmt.Errorf("connection refused")}
}

func (f *fakeUpstream) SystemInfo(ctx context.Context, node topology.NodeRef) (*solr.SystemInfo, error) {
	key := node.Host + "/info"
	if err := f.wait(ctx, key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.info[node.Host]; ok {
		return v, nil
	}
	return nil, refused(key)
}

func (f *fakeUpstream) CoreMetrics(ctx context.Context, node topology.NodeRef) (*solr.Metrics, error) {
	key := node.Host + "/metrics"
	if err := f.wait(ctx, key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.metrics[node.Host]; ok {
		return v, nil
	}
	return nil, refused(key)
}

func (f *fakeUpstream) ZkStatus(ctx context.Context, node topology.NodeRef) (*solr.ZkStatus, error) {
	key := node.Host + "/zk"
	f.mu.Lock()
	f.zkCalls = append(f.zkCalls, node.Host)
	f.mu.Unlock()
	if err := f.wait(ctx, key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.zk[node.Host]; ok {
		return v, nil
	}
	return nil, refused(key)
}

func (f *fakeUpstream) Ping(ctx context.Context, node topology.NodeRef) (*solr.Ping, error) {
	key := node.Host + "/ping"
	if err := f.wait(ctx, key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.ping[node.Host]; ok {
		return v, nil
	}
	return nil, refused(key)
}

func zkStatus(doc string) *solr.ZkStatus {
	var st solr.ZkStatus
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		panic(err)
	}
	return &st
}

func london() *topology.Datacenter {
	return &topology.Datacenter{
		Name:      "London",
		IsDefault: true,
		EnsembleHosts: []topology.HostPort{
			{Host: "zk1", Port: 2181}, {Host: "zk2", Port: 2181}, {Host: "zk3", Port: 2181},
		},
		Nodes: []topology.NodeRef{
			{Name: "solr1", Host: "solr1", Port: 8983},
			{Name: "solr2", Host: "solr2", Port: 8982},
		},
	}
}
