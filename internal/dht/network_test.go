package dht

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/pkg/types"
)

func TestNewNetwork_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BucketSize = 0
	_, err := NewNetwork("test", WithConfig(cfg))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNetwork_Initialize(t *testing.T) {
	ctx := context.Background()
	n, err := NewNetwork("test")
	require.NoError(t, err)

	assert.Nil(t, n.LocalNode())
	assert.ErrorIs(t, n.Close(), ErrNotInitialized)

	require.NoError(t, n.Initialize(ctx, 42))
	require.NoError(t, n.Initialize(ctx, 42), "重复初始化同一 ID 不报错")
	assert.ErrorIs(t, n.Initialize(ctx, 43), ErrInvalidArgument)

	peer, err := n.FindNodeByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, types.NodeID(42), peer.ID())

	_, err = n.FindNodeByID(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNetwork_FindNodesByKey(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	for _, id := range []types.NodeID{100, 1, 12, 6, 64, 3} {
		registry.Add(newFakePeer(id))
	}
	n, err := NewNetwork("test", WithRegistry(registry))
	require.NoError(t, err)

	peers, err := n.FindNodesByKey(ctx, 7, 0)
	require.NoError(t, err)
	ids := make([]types.NodeID, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID())
	}
	// 距离：6→1 3→4 1→6 12→11 64→71 100→99
	assert.Equal(t, []types.NodeID{6, 3, 1, 12, 64}, ids, "默认返回 5 个，升序")

	peers, _ = n.FindNodesByKey(ctx, 7, 1)
	require.Len(t, peers, 1)
	assert.Equal(t, types.NodeID(6), peers[0].ID())
}

func TestNetwork_StoreValueNoPeers(t *testing.T) {
	n, err := NewNetwork("test")
	require.NoError(t, err)

	err = n.StoreValue(context.Background(), 1, "v")
	assert.ErrorIs(t, err, ErrNotFound)

	values, err := n.FindValue(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestNetwork_FindValueSkipsFailedPeers(t *testing.T) {
	ctx := context.Background()
	_, nets := newTestNetworks(t, nil, 7, 1)

	// 7 最近但已关闭，1 直接持有值
	require.NoError(t, nets[1].LocalNode().Store(ctx, 7, []string{"v"}, nil, 0))
	require.NoError(t, nets[0].Close())

	values, err := nets[1].FindValue(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, values)
}

// ============================================================================
// 成员管理测试
// ============================================================================

func TestNetwork_AddNodeArguments(t *testing.T) {
	_, nets := newTestNetworks(t, nil, 1)
	n := nets[0]

	assert.ErrorIs(t, n.AddNode(context.Background(), nil), ErrInvalidArgument)
	require.NoError(t, n.AddNode(context.Background(), n.LocalNode()), "本地节点是空操作")
	assert.Equal(t, 1, n.Registry().Len())
}

func TestNetwork_AddNodeConverges(t *testing.T) {
	ctx := context.Background()
	_, nets := newTestNetworks(t, nil, 1)
	n := nets[0]

	p1, p2 := newFakePeer(10), newFakePeer(20)
	require.NoError(t, n.AddNode(ctx, p1))
	require.NoError(t, n.AddNode(ctx, p2))
	require.NoError(t, n.AddNode(ctx, p2), "已收敛的节点不再重复")

	local := n.LocalNode().RoutingTable()
	assert.True(t, local.Contains(10))
	assert.True(t, local.Contains(20))

	assert.ElementsMatch(t, []types.NodeID{1, 20}, p1.addedIDs())
	assert.ElementsMatch(t, []types.NodeID{1, 10}, p2.addedIDs())
	assert.Equal(t, 3, n.Registry().Len())
}

func TestNetwork_AddNodeJoinTimeout(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.JoinTimeout = 50 * time.Millisecond

	_, nets := newTestNetworks(t, cfg, 1)
	n := nets[0]

	slow := newFakePeer(10)
	slow.block = true

	start := time.Now()
	require.NoError(t, n.AddNode(ctx, slow), "超时不作为错误返回")
	assert.Less(t, time.Since(start), 2*time.Second)

	// 本地节点一侧的收敛不受影响
	assert.Eventually(t, func() bool {
		return n.LocalNode().RoutingTable().Contains(10)
	}, time.Second, 10*time.Millisecond)
}

func TestNetwork_Join(t *testing.T) {
	ctx := context.Background()
	remote := newFakePeer(10)
	factory := PeerFactoryFunc(func(_ context.Context, _ *Network, ref PeerRef) (Peer, error) {
		require.Equal(t, types.NodeID(10), ref.ID)
		return remote, nil
	})

	n, err := NewNetwork("test", WithPeerFactory(factory))
	require.NoError(t, err)
	require.NoError(t, n.Initialize(ctx, 1))

	require.NoError(t, n.Join(ctx, remote.Ref()))
	assert.True(t, n.LocalNode().RoutingTable().Contains(10))
	assert.Equal(t, []types.NodeID{1}, remote.addedIDs())

	_, err = n.Resolve(ctx, PeerRef{ID: 11})
	assert.ErrorIs(t, err, ErrNotFound, "没有位置时无法构造")
}

func TestNetwork_RemoveNode(t *testing.T) {
	ctx := context.Background()
	_, nets := newTestNetworks(t, nil, 1, 2, 3)
	a := nets[0]
	require.NoError(t, a.AddNode(ctx, nets[1].LocalNode()))
	require.NoError(t, a.AddNode(ctx, nets[2].LocalNode()))
	require.True(t, nets[1].LocalNode().RoutingTable().Contains(3))

	require.NoError(t, a.RemoveNode(ctx, nets[2].LocalNode()))

	_, err := a.FindNodeByID(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, a.LocalNode().RoutingTable().Contains(3))
	assert.False(t, nets[1].LocalNode().RoutingTable().Contains(3))

	assert.ErrorIs(t, a.RemoveNode(ctx, nil), ErrInvalidArgument)
}

// ============================================================================
// 场景测试
// ============================================================================

// TestScenario_JoinThroughA A、B、C 通过 A 两两加入，A 上存储的值可从 B、C 找到
func TestScenario_JoinThroughA(t *testing.T) {
	ctx := context.Background()
	_, nets := newTestNetworks(t, nil, 10, 20, 30)
	a, b, c := nets[0], nets[1], nets[2]

	require.NoError(t, a.AddNode(ctx, b.LocalNode()))
	require.NoError(t, a.AddNode(ctx, c.LocalNode()))

	for _, n := range nets {
		assert.Equal(t, 2, n.LocalNode().RoutingTable().Size(), "节点 %s 路由表已收敛", n.LocalNode().ID())
	}

	const key = types.Key(10)
	require.NoError(t, a.StoreValue(ctx, key, "hello"))
	ok, err := a.LocalNode().HasValue(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "A 离 key 最近")

	for _, n := range []*Network{b, c} {
		values, err := n.FindValue(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"hello"}, values)
	}

	t.Log("✅ 场景 A 通过")
}

// TestScenario_ReplicateOnFailure key 最近的节点不可达时，Ping 后值出现在最近的可达节点
func TestScenario_ReplicateOnFailure(t *testing.T) {
	ctx := context.Background()
	m, err := metrics.New("test")
	require.NoError(t, err)

	registry := NewRegistry()
	var nets []*Network
	for _, id := range []types.NodeID{1, 6, 7} {
		n, err := NewNetwork("test", WithRegistry(registry), WithMetrics(m))
		require.NoError(t, err)
		require.NoError(t, n.Initialize(ctx, id))
		nets = append(nets, n)
	}
	a, b, c := nets[0], nets[1], nets[2]
	require.NoError(t, a.AddNode(ctx, b.LocalNode()))
	require.NoError(t, a.AddNode(ctx, c.LocalNode()))

	// 值存放在 A，key 7 的最近节点 C 随后不可达
	require.NoError(t, a.LocalNode().Store(ctx, 7, []string{"v"}, nil, 0))
	require.NoError(t, c.Close())

	err = a.Ping(ctx)
	assert.ErrorIs(t, err, ErrNodeClosed, "已关闭节点的 Ping 错误被汇总")

	ok, err := b.LocalNode().HasValue(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	values, err := b.FindValue(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, values)

	t.Log("✅ 场景 B 通过")
}

// slowRemote 响应缓慢且最终失败的远程节点
type slowRemote struct {
	*fakePeer
	delay time.Duration
}

func (p *slowRemote) Ping(ctx context.Context) error {
	select {
	case <-time.After(p.delay):
		return errors.New("no response")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *slowRemote) Probe(ctx context.Context) error { return p.Ping(ctx) }

func TestNetwork_PingRemotePeersConcurrently(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()
	n, err := NewNetwork("test", WithRegistry(registry))
	require.NoError(t, err)
	require.NoError(t, n.Initialize(ctx, 1))

	delay := 300 * time.Millisecond
	for id := types.NodeID(10); id < 14; id++ {
		require.True(t, registry.Add(&slowRemote{fakePeer: newFakePeer(id), delay: delay}))
	}

	start := time.Now()
	require.NoError(t, n.Ping(ctx), "远程节点的失败不作为错误返回")
	assert.Less(t, time.Since(start), 3*delay, "远程节点并发 Ping")
}
