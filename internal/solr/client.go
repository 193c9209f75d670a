// Package solr provides a client for the admin API that every search node exposes.
package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/narvanalabs/solr-monitor/internal/topology"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 16 << 20

// Client talks to search nodes. It carries no per-node state and is safe for
// concurrent use. Per-call deadlines come from the caller's context.
type Client struct {
	basePath   string
	httpClient *http.Client
}

// NewClient creates a client. basePath is the API prefix, usually "/solr".
func NewClient(basePath string) *Client {
	return NewClientWithHTTP(basePath, &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	})
}

// NewClientWithHTTP creates a client using the given http.Client.
func NewClientWithHTTP(basePath string, hc *http.Client) *Client {
	return &Client{
		basePath:   "/" + strings.Trim(basePath, "/"),
		httpClient: hc,
	}
}

// BaseURL returns the API root of a node, e.g. http://solr1:8983/solr.
func (c *Client) BaseURL(node topology.NodeRef) string {
	return "http://" + node.Address() + c.basePath
}

// SystemInfo fetches /admin/info/system.
func (c *Client) SystemInfo(ctx context.Context, node topology.NodeRef) (*SystemInfo, error) {
	var info SystemInfo
	raw, err := c.getJSON(ctx, c.endpoint(node, "/admin/info/system", nil), &info)
	if err != nil {
		return nil, err
	}
	info.Raw = raw
	return &info, nil
}

// CoreMetrics fetches the per-core index size and document count metrics.
func (c *Client) CoreMetrics(ctx context.Context, node topology.NodeRef) (*Metrics, error) {
	q := url.Values{}
	q.Set("group", "core")
	q.Set("prefix", MetricIndexSize+","+MetricNumDocs)

	var m Metrics
	if _, err := c.getJSON(ctx, c.endpoint(node, "/admin/metrics", q), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ZkStatus fetches the coordination ensemble status as seen by the node.
func (c *Client) ZkStatus(ctx context.Context, node topology.NodeRef) (*ZkStatus, error) {
	var st ZkStatus
	raw, err := c.getJSON(ctx, c.endpoint(node, "/admin/zookeeper/status", nil), &st)
	if err != nil {
		return nil, err
	}
	st.Raw = raw
	return &st, nil
}

// Ping calls /admin/ping.
func (c *Client) Ping(ctx context.Context, node topology.NodeRef) (*Ping, error) {
	var p Ping
	if _, err := c.getJSON(ctx, c.endpoint(node, "/admin/ping", nil), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Cores fetches the raw /admin/cores listing.
func (c *Client) Cores(ctx context.Context, node topology.NodeRef) (json.RawMessage, error) {
	var doc json.RawMessage
	raw, err := c.getJSON(ctx, c.endpoint(node, "/admin/cores", nil), &doc)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ProxyResponse is an upstream answer relayed verbatim.
type ProxyResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward relays a request to one of the node's admin endpoints. Any HTTP
// answer, including non-2xx, is returned as a ProxyResponse; only transport
// failures are errors.
func (c *Client) Forward(ctx context.Context, node topology.NodeRef, method, path string, body []byte, contentType string) (*ProxyResponse, error) {
	target := c.endpoint(node, path, nil)

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindUnreachable, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindUnreachable, Err: err}
	}

	return &ProxyResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func (c *Client) endpoint(node topology.NodeRef, path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("wt", "json")
	return c.BaseURL(node) + path + "?" + q.Encode()
}

// getJSON performs a GET and decodes a 2xx body into out, returning the raw body.
func (c *Client) getJSON(ctx context.Context, target string, out any) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindUnreachable, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &UpstreamError{URL: target, Kind: KindBadStatus, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindUnreachable, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, &UpstreamError{URL: target, Kind: KindDecode, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return data, nil
}
