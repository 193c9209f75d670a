package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narvanalabs/solr-monitor/internal/cluster"
	"github.com/narvanalabs/solr-monitor/internal/solr"
	"github.com/narvanalabs/solr-monitor/internal/stream"
	"github.com/narvanalabs/solr-monitor/internal/topology"
	"github.com/narvanalabs/solr-monitor/pkg/config"
	"github.com/narvanalabs/solr-monitor/pkg/logger"
)

func fakeSolr(t *testing.T) topology.NodeRef {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/solr/admin/info/system", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"mode": "solrcloud", "jvm": {"memory": {"raw": {"used": 1, "max": 4}}}}`)
	})
	mux.HandleFunc("/solr/admin/metrics", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"metrics": {}}`)
	})
	mux.HandleFunc("/solr/admin/ping", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "OK"}`)
	})
	mux.HandleFunc("/solr/admin/cores", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": {}}`)
	})
	mux.HandleFunc("/solr/admin/zookeeper/status", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"zkStatus": {"details": [{"host": "zk1:2181", "ok": true, "mode": "standalone"}]}}`)
	})
	mux.HandleFunc("/solr/admin/authorization", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": "require authentication"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return topology.NodeRef{Name: "solr1", Host: host, Port: port}
}

func newTestServer(t *testing.T, store *topology.Store, streamInterval time.Duration) *Server {
	t.Helper()
	cfg := config.LoadWithDefaults()
	cfg.Stream.Interval = streamInterval
	log := logger.Discard().Logger

	svc := cluster.NewService(store, solr.NewClient("/solr"), cluster.Config{
		NodeTimeout:     time.Second,
		SummaryTimeout:  time.Second,
		ZkDetailTimeout: time.Second,
		ProxyTimeout:    time.Second,
	}, log)
	broker := stream.NewBroker(log)
	poller := stream.NewPoller(svc, broker, streamInterval, log)
	return NewServer(cfg, svc, store, broker, poller, log)
}

func londonStore(t *testing.T) *topology.Store {
	t.Helper()
	return topology.NewStaticStore(&topology.Topology{Datacenters: []topology.Datacenter{{
		Name:          "London",
		IsDefault:     true,
		EnsembleHosts: []topology.HostPort{{Host: "zk1", Port: 2181}},
		Nodes:         []topology.NodeRef{fakeSolr(t)},
	}}})
}

func do(t *testing.T, s *Server, method, target string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(method, target, body))

	var decoded map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decoded), rr.Body.String())
	}
	return rr, decoded
}

func TestRoutesAnswerOK(t *testing.T) {
	s := newTestServer(t, londonStore(t), 0)

	for _, target := range []string{
		"/health",
		"/cluster/nodes",
		"/cluster/nodes?datacenter=London&loadAll=false",
		"/cluster/nodes/solr1@London",
		"/cluster/zookeeper",
		"/cluster/zookeeper/London/details",
		"/datacenters/",
		"/datacenters/summary",
		"/datacenters/London",
		"/system/info",
		"/admin/cores?datacenter=London",
	} {
		t.Run(target, func(t *testing.T) {
			rr, _ := do(t, s, http.MethodGet, target, nil)
			assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestListNodesBody(t *testing.T) {
	s := newTestServer(t, londonStore(t), 0)

	_, body := do(t, s, http.MethodGet, "/cluster/nodes?loadAll=false", nil)

	assert.Equal(t, true, body["loadedDefaults"])
	nodes := body["nodes"].([]any)
	require.Len(t, nodes, 1)
	node := nodes[0].(map[string]any)
	assert.Equal(t, "solr1@London", node["id"])
	assert.Equal(t, "online", node["status"])
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t, londonStore(t), 0)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/cluster/nodes/solr9", http.StatusNotFound, "NOT_FOUND"},
		{"/cluster/nodes?datacenter=Tokyo", http.StatusNotFound, "NOT_FOUND"},
		{"/cluster/nodes?loadAll=maybe", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"/cluster/zookeeper/Tokyo/details", http.StatusNotFound, "NOT_FOUND"},
		{"/datacenters/Tokyo", http.StatusNotFound, "NOT_FOUND"},
		{"/security/users", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"/cluster/stream", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr, body := do(t, s, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["message"])
			assert.NotEmpty(t, body["request_id"])
		})
	}

	_, body := do(t, s, http.MethodGet, "/cluster/nodes/solr9", nil)
	assert.Contains(t, body["message"], "solr9")
}

func TestMissingTopology(t *testing.T) {
	store := topology.NewStore(topology.NewLoader(topology.Source{}), logger.Discard().Logger)
	s := newTestServer(t, store, 0)

	rr, body := do(t, s, http.MethodGet, "/cluster/nodes", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "CONFIGURATION_ERROR", body["code"])

	rr, body = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestSecurityRelaysUpstreamStatus(t *testing.T) {
	s := newTestServer(t, londonStore(t), 0)

	rr, body := do(t, s, http.MethodGet, "/security/authorization", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "require authentication", body["error"])

	rr, _ = do(t, s, http.MethodPost, "/security/authorization", strings.NewReader(`{"set-permission": {}}`))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestZookeeperDetailsUnavailable(t *testing.T) {
	store := topology.NewStaticStore(&topology.Topology{Datacenters: []topology.Datacenter{{
		Name:          "London",
		EnsembleHosts: []topology.HostPort{{Host: "zk1", Port: 2181}},
		Nodes:         []topology.NodeRef{{Name: "solr1", Host: "127.0.0.1", Port: 1}},
	}}})
	s := newTestServer(t, store, 0)

	rr, body := do(t, s, http.MethodGet, "/cluster/zookeeper/London/details", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", body["code"])
	details := body["details"].(map[string]any)
	assert.NotEmpty(t, details["errors"])
}

func TestSSEStreamsSnapshot(t *testing.T) {
	s := newTestServer(t, londonStore(t), time.Hour)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.poller.Start(ctx)
	defer s.poller.Stop()

	resp, err := http.Get(ts.URL + "/cluster/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The first subscriber triggers a snapshot without waiting for a tick.
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 1024)
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(string(buf), "\n\n") && time.Now().Before(deadline) {
		n, err := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	assert.Contains(t, string(buf), "event: snapshot")
	assert.Contains(t, string(buf), `"datacenters"`)
}

func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer(t, londonStore(t), 0)

	require.NoError(t, s.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept running after Shutdown")
	}
}

func TestShutdownRacesStart(t *testing.T) {
	s := newTestServer(t, londonStore(t), 0)
	s.httpServer.Addr = "127.0.0.1:0"

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept running after Shutdown")
	}
}

func TestStreamAfterShutdownEndsImmediately(t *testing.T) {
	s := newTestServer(t, londonStore(t), time.Hour)
	s.broker.Close()

	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ts.URL + "/cluster/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	// The body ends without a snapshot instead of hanging until the timeout.
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "event: snapshot")
}
