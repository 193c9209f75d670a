package topology

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns its results in order, repeating the last one.
type scriptedProvider struct {
	mu      sync.Mutex
	results []func() (*Topology, error)
	calls   int
}

func (p *scriptedProvider) Load() (*Topology, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.results) {
		i = len(p.results) - 1
	}
	p.calls++
	return p.results[i]()
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func ok(names ...string) func() (*Topology, error) {
	return func() (*Topology, error) {
		t := &Topology{}
		for _, n := range names {
			t.Datacenters = append(t.Datacenters, Datacenter{Name: n})
		}
		return t, nil
	}
}

func fail(msg string) func() (*Topology, error) {
	return func() (*Topology, error) {
		return nil, &ConfigurationError{Source: "test", Err: errors.New(msg)}
	}
}

func TestStoreKeepsLastGoodSnapshot(t *testing.T) {
	p := &scriptedProvider{results: []func() (*Topology, error){ok("London"), fail("broken file")}}
	store := NewStore(p, nil)

	first, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"London"}, first.DatacenterNames())

	require.Error(t, store.Reload())

	second, err := store.Snapshot()
	require.NoError(t, err)
	assert.Same(t, first, second)

	loaded, lastErr, _ := store.State()
	assert.True(t, loaded)
	assert.Error(t, lastErr)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestStoreWithoutTopologyReportsConfigurationError(t *testing.T) {
	store := NewStore(&scriptedProvider{results: []func() (*Topology, error){fail("no file")}}, nil)

	_, err := store.Snapshot()
	require.Error(t, err)
	assert.True(t, IsConfiguration(err))
	assert.Error(t, store.Ping(context.Background()))

	loaded, lastErr, _ := store.State()
	assert.False(t, loaded)
	assert.Error(t, lastErr)
}

func TestStaticStore(t *testing.T) {
	topo := &Topology{Datacenters: []Datacenter{{Name: "London"}}}
	store := NewStaticStore(topo)

	got, err := store.Snapshot()
	require.NoError(t, err)
	assert.Same(t, topo, got)
	assert.NoError(t, store.Reload())
}

func TestRefresherSwapsSnapshot(t *testing.T) {
	p := &scriptedProvider{results: []func() (*Topology, error){ok("London"), ok("London", "Paris")}}
	store := NewStore(p, nil)
	refresher := NewRefresher(store, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go refresher.Start(ctx)

	require.Eventually(t, func() bool {
		topo, err := store.Snapshot()
		return err == nil && len(topo.Datacenters) == 2
	}, 2*time.Second, 10*time.Millisecond)

	refresher.Stop()
	calls := p.Calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, p.Calls(), "refresher kept reloading after Stop")
}

func TestRefresherDisabled(t *testing.T) {
	refresher := NewRefresher(NewStaticStore(&Topology{}), 0, nil)
	assert.NoError(t, refresher.Start(context.Background()))
	refresher.Stop()
}
