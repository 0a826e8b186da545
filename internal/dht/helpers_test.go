package dht

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/pkg/types"
)

// newTestNetworks 创建共享同一注册表的多个进程内网络
func newTestNetworks(t *testing.T, cfg *Config, ids ...types.NodeID) (*Registry, []*Network) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	registry := NewRegistry()
	networks := make([]*Network, 0, len(ids))
	for _, id := range ids {
		n, err := NewNetwork("test", WithRegistry(registry), WithConfig(cfg))
		require.NoError(t, err)
		require.NoError(t, n.Initialize(context.Background(), id))
		networks = append(networks, n)
	}
	return registry, networks
}

// link 让 from 的路由表包含 to
func link(t *testing.T, from, to *Network) {
	t.Helper()
	require.NoError(t, from.LocalNode().AddNode(context.Background(), to.LocalNode().Ref()))
}

// fakePeer 记录调用的测试节点
type fakePeer struct {
	id        types.NodeID
	reachable bool
	block     bool

	mu     sync.Mutex
	added  []types.NodeID
	stored map[types.Key][]string
}

func newFakePeer(id types.NodeID) *fakePeer {
	return &fakePeer{id: id, reachable: true, stored: make(map[types.Key][]string)}
}

func (p *fakePeer) ID() types.NodeID { return p.id }
func (p *fakePeer) Ref() PeerRef     { return PeerRef{ID: p.id, Location: "/fake/" + p.id.String()} }
func (p *fakePeer) Reachable() bool  { return p.reachable }

func (p *fakePeer) AddNode(ctx context.Context, ref PeerRef) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, ref.ID)
	return nil
}

func (p *fakePeer) RemoveNode(context.Context, PeerRef) error { return nil }

func (p *fakePeer) Store(_ context.Context, key types.Key, values []string, _ Visited, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stored[key], _ = MergeValues(p.stored[key], values)
	return nil
}

func (p *fakePeer) FindValue(_ context.Context, key types.Key, _ Visited, _ int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.stored[key]...), nil
}

func (p *fakePeer) HasValue(_ context.Context, key types.Key) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.stored[key]
	return ok, nil
}

func (p *fakePeer) Ping(context.Context) error { return nil }

func (p *fakePeer) addedIDs() []types.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.NodeID{}, p.added...)
}
