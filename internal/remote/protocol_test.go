package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/pkg/types"
)

// ============================================================================
// 加入与存储
// ============================================================================

func TestDocumentNetwork_JoinStoreFind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	a := newDocNode(t, store, codec, cfg, 10, true)
	b := newDocNode(t, store, codec, cfg, 20, true)

	require.NoError(t, b.factory.Join(ctx, b.network, a.local().Location()))

	assert.True(t, b.local().RoutingTable().Contains(10))
	assert.True(t, a.local().RoutingTable().Contains(20), "远程节点通过 AddNode 动作更新路由表")

	require.NoError(t, b.network.StoreValue(ctx, 10, "hello"))

	ok, err := a.local().HasValue(ctx, 10)
	require.NoError(t, err)
	assert.True(t, ok, "值存储在离 key 最近的 A")

	values, err := b.network.FindValue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, values)

	t.Log("✅ 文档网络加入、存储、查找通过")
}

func TestDocumentNetwork_StoreForwardsAcrossBoundary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.ProtoCodec{}
	cfg := testConfig()

	a := newDocNode(t, store, codec, cfg, 64, true)
	b := newDocNode(t, store, codec, cfg, 8, true)
	require.NoError(t, a.factory.Join(ctx, a.network, b.local().Location()))

	// A 本地发起，向更接近 key 9 的 B 转发
	require.NoError(t, a.local().Store(ctx, 9, []string{"v"}, nil, 5))

	ok, err := b.local().HasValue(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.local().HasValue(ctx, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestScenario_DuplicateStoreValue 重复提交相同的 StoreValue 动作只存一条
func TestScenario_DuplicateStoreValue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	target := newDocNode(t, store, codec, cfg, 1, true)
	sender := newDocNode(t, store, codec, cfg, 2, false)

	for i := 0; i < 2; i++ {
		a := &action.Action{
			Kind:  action.KindStoreValue,
			Agent: sender.local().Location(),
			Entry: &action.Entry{Key: 1, Value: "same"},
		}
		require.NoError(t, sender.client.Send(ctx, target.local().Location(), a))
	}

	values, err := target.local().Values().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"same"}, values)

	t.Log("✅ 场景 C 通过")
}

// ============================================================================
// 失败路径
// ============================================================================

func TestClient_ActionUnsupported(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()
	sender := newDocNode(t, store, codec, cfg, 2, false)

	// 只有 Ping 收件箱的节点
	layout := NewLayout(testCollection, 9)
	require.NoError(t, store.CreateContainer(ctx, layout.Inbox(action.KindPing)))
	rec := &action.NodeRecord{
		ID:       9,
		Location: layout.NodeDocument(),
		Actions:  map[action.Kind]string{action.KindPing: layout.Inbox(action.KindPing)},
		Data:     layout.DataContainer(),
	}
	data, err := codec.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, layout.NodeDocument(), data))

	peer := NewPeer(sender.client, sender.network, rec.Ref())
	err = peer.AddNode(ctx, dht.PeerRef{ID: 3})
	assert.ErrorIs(t, err, dht.ErrActionUnsupported)

	_, err = sender.client.ReadNode(ctx, "/nodes/c/404/node", false)
	assert.ErrorIs(t, err, dht.ErrNotFound)
}

func TestResponder_FailedAction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	target := newDocNode(t, store, codec, cfg, 1, true)
	sender := newDocNode(t, store, codec, cfg, 2, false)

	peer := NewPeer(sender.client, sender.network, target.local().Ref())
	err := peer.AddNode(ctx, dht.PeerRef{ID: 99, Location: "/nodes/c/99/node"})
	assert.ErrorIs(t, err, dht.ErrActionFailed, "无法解析的节点导致 Failed")
	assert.True(t, peer.Reachable(), "失败不等于不可达")

	assert.False(t, target.local().RoutingTable().Contains(99))
}

func TestResponder_ExpiredAction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	newDocNode(t, store, codec, testConfig(), 1, true)

	inbox := NewLayout(testCollection, 1).Inbox(action.KindPing)
	a := &action.Action{
		Name:      "old",
		Kind:      action.KindPing,
		Status:    action.StatusPotential,
		Timeout:   time.Second,
		CreatedAt: time.Now().Add(-time.Minute),
	}
	data, err := codec.Marshal(a)
	require.NoError(t, err)
	location, err := store.Append(ctx, inbox, a.Name, data)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return readAction(t, store, codec, location).Status == action.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, readAction(t, store, codec, location).Error, ErrExpired.Error())
}

func TestResponder_RateLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1

	target := newDocNode(t, store, codec, cfg, 1, true)
	sender := newDocNode(t, store, codec, cfg, 2, false)
	peer := NewPeer(sender.client, sender.network, target.local().Ref())

	require.NoError(t, peer.Ping(ctx))
	assert.ErrorIs(t, peer.Ping(ctx), dht.ErrActionFailed)
}

func TestResponder_PicksUpActionsWrittenBeforeStart(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	target := newDocNode(t, store, codec, testConfig(), 1, false)

	inbox := NewLayout(testCollection, 1).Inbox(action.KindAddNode)
	a := &action.Action{
		Name:      "early",
		Kind:      action.KindAddNode,
		Status:    action.StatusPotential,
		Timeout:   time.Minute,
		CreatedAt: time.Now(),
		Object:    &dht.PeerRef{ID: 1},
	}
	data, err := codec.Marshal(a)
	require.NoError(t, err)
	location, err := store.Append(ctx, inbox, a.Name, data)
	require.NoError(t, err)

	require.NoError(t, target.responder.Start(ctx))
	defer target.responder.Stop()

	require.Eventually(t, func() bool {
		return readAction(t, store, codec, location).Status == action.StatusCompleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResponder_TerminalWrittenOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	target := newDocNode(t, store, codec, testConfig(), 1, false)

	inbox := NewLayout(testCollection, 1).Inbox(action.KindPing)
	a := &action.Action{Name: "p", Kind: action.KindPing, Status: action.StatusPotential, CreatedAt: time.Now()}
	data, err := codec.Marshal(a)
	require.NoError(t, err)
	location, err := store.Append(ctx, inbox, a.Name, data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = target.responder.OnAction(ctx, location)
		}()
	}
	wg.Wait()

	first := readAction(t, store, codec, location)
	require.Equal(t, action.StatusCompleted, first.Status)

	require.NoError(t, target.responder.OnAction(ctx, location))
	assert.Equal(t, first.UpdatedAt, readAction(t, store, codec, location).UpdatedAt, "已处理的动作不再写入")
}

// ============================================================================
// 超时
// ============================================================================

func TestClient_Timeout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	// 目标节点没有运行 Responder
	target := newDocNode(t, store, codec, cfg, 1, false)

	mock := clock.NewMock()
	client, err := NewClient(store, codec, cfg, WithClock(mock))
	require.NoError(t, err)
	peer := NewPeer(client, nil, target.local().Ref())

	done := make(chan error, 1)
	go func() { done <- peer.Ping(ctx) }()

	var result error
	require.Eventually(t, func() bool {
		mock.Add(time.Second)
		select {
		case result = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, result, dht.ErrTimeout)
	assert.False(t, peer.Reachable())
}

func TestPeer_ProbeMarksReachable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	target := newDocNode(t, store, codec, cfg, 1, true)
	sender := newDocNode(t, store, codec, cfg, 2, false)
	peer := NewPeer(sender.client, sender.network, target.local().Ref())

	peer.unreachable.Store(true)
	require.NoError(t, peer.Probe(ctx))
	assert.True(t, peer.Reachable())

	has, err := peer.HasValue(ctx, types.Key(5))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestResponder_EmitsActionHandled(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	target := newDocNode(t, store, codec, cfg, 1, false)
	sender := newDocNode(t, store, codec, cfg, 2, false)

	bus := eventbus.NewBus()
	sub, err := bus.Subscribe(new(EvtActionHandled))
	require.NoError(t, err)
	defer sub.Close()

	responder, err := NewResponder(target.network, store, codec, cfg, WithResponderEventBus(bus))
	require.NoError(t, err)
	require.NoError(t, responder.Start(ctx))
	defer responder.Stop()

	peer := NewPeer(sender.client, sender.network, target.local().Ref())
	require.NoError(t, peer.Ping(ctx))

	select {
	case evt := <-sub.Out():
		handled := evt.(EvtActionHandled)
		assert.Equal(t, types.NodeID(1), handled.NodeID)
		assert.Equal(t, action.KindPing, handled.Kind)
		assert.Equal(t, action.StatusCompleted, handled.Status)
		assert.Empty(t, handled.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到 EvtActionHandled")
	}
}

func TestPeer_CallerDeadlineMarksUnreachable(t *testing.T) {
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	target := newDocNode(t, store, codec, cfg, 1, false)
	sender := newDocNode(t, store, codec, cfg, 2, false)
	peer := NewPeer(sender.client, sender.network, target.local().Ref())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := peer.Ping(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, peer.Reachable(), "调用方期限先于 Ping 超时到达时同样视为不可达")
}

func TestClient_SendWithoutWatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()

	target := newDocNode(t, store, codec, cfg, 1, true)

	client, err := NewClient(noWatchStore{Store: store}, codec, cfg)
	require.NoError(t, err)
	peer := NewPeer(client, nil, target.local().Ref())

	require.NoError(t, peer.Ping(ctx), "订阅失败时依靠轮询拿到终态")
	assert.True(t, peer.Reachable())
}

// ============================================================================
// 故障恢复
// ============================================================================

// TestScenario_ReplicateOnFailureDocument 响应方停止后，Ping 发现故障、
// 移除该节点并把它负责的值复制到下一个最近节点
func TestScenario_ReplicateOnFailureDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()
	cfg.PingTimeout = 1500 * time.Millisecond

	// 单跳超时短于 Ping 超时
	dhtCfg := dht.DefaultConfig()
	dhtCfg.HopTimeout = 500 * time.Millisecond

	a := newDocNode(t, store, codec, cfg, 8, true, dht.WithConfig(dhtCfg))
	b := newDocNode(t, store, codec, cfg, 1, true)
	c := newDocNode(t, store, codec, cfg, 2, true)

	require.NoError(t, a.factory.Join(ctx, a.network, b.local().Location()))
	require.NoError(t, a.factory.Join(ctx, a.network, c.local().Location()))
	require.True(t, a.local().RoutingTable().Contains(1))
	require.True(t, a.local().RoutingTable().Contains(2))

	// key 1 最近的是 B，A 持有一份副本
	require.NoError(t, a.local().Store(ctx, 1, []string{"v"}, nil, 0))

	require.NoError(t, b.responder.Stop())

	require.NoError(t, a.local().Ping(ctx))

	peerB, err := a.network.FindNodeByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, peerB.Reachable(), "B 被标记为不可达")
	assert.False(t, a.local().RoutingTable().Contains(1), "B 被移出路由表")
	assert.True(t, a.local().RoutingTable().Contains(2))

	ok, err := c.local().HasValue(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok, "值被复制到下一个最近的 C")

	t.Log("✅ 文档模式场景 B 通过")
}

// ============================================================================
// 遗留的 Active 动作
// ============================================================================

func TestResponder_ClosesStaleActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	newDocNode(t, store, codec, testConfig(), 1, true)

	inbox := NewLayout(testCollection, 1).Inbox(action.KindPing)
	appendAction := func(name string, createdAt time.Time, timeout time.Duration) string {
		a := &action.Action{
			Name:      name,
			Kind:      action.KindPing,
			Status:    action.StatusActive,
			Timeout:   timeout,
			CreatedAt: createdAt,
		}
		data, err := codec.Marshal(a)
		require.NoError(t, err)
		location, err := store.Append(ctx, inbox, name, data)
		require.NoError(t, err)
		return location
	}

	old := appendAction("old-active", time.Now().Add(-time.Minute), 100*time.Millisecond)
	fresh := appendAction("fresh-active", time.Now(), 300*time.Millisecond)

	require.Eventually(t, func() bool {
		return readAction(t, store, codec, old).Status == action.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, readAction(t, store, codec, old).Error, ErrExpired.Error())

	// 期限未到前保持 Active，之后由重扫关闭
	require.Eventually(t, func() bool {
		return readAction(t, store, codec, fresh).Status == action.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResponder_TerminalWriteFailureRetried(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	codec := action.JSONCodec{}
	cfg := testConfig()
	cfg.RetryMaxElapsed = 100 * time.Millisecond

	target := newDocNode(t, store, codec, cfg, 1, false)

	mock := clock.NewMock()
	mock.Set(time.Now())
	flaky := &terminalFailStore{Store: store, codec: codec}
	responder, err := NewResponder(target.network, flaky, codec, cfg, WithResponderClock(mock))
	require.NoError(t, err)

	inbox := NewLayout(testCollection, 1).Inbox(action.KindPing)
	a := &action.Action{
		Name:      "p",
		Kind:      action.KindPing,
		Status:    action.StatusPotential,
		Timeout:   time.Second,
		CreatedAt: mock.Now(),
	}
	data, err := codec.Marshal(a)
	require.NoError(t, err)
	location, err := store.Append(ctx, inbox, a.Name, data)
	require.NoError(t, err)

	flaky.failTerminal.Store(true)
	assert.Error(t, responder.OnAction(ctx, location))
	assert.Equal(t, action.StatusActive, readAction(t, store, codec, location).Status)
	assert.False(t, responder.handled.Contains(location), "终态未写出时不记为已处理")

	// 期限内仍可能在执行，不做处理
	flaky.failTerminal.Store(false)
	require.NoError(t, responder.OnAction(ctx, location))
	assert.Equal(t, action.StatusActive, readAction(t, store, codec, location).Status)

	mock.Add(2 * time.Second)
	require.NoError(t, responder.OnAction(ctx, location))
	got := readAction(t, store, codec, location)
	assert.Equal(t, action.StatusFailed, got.Status)
	assert.Contains(t, got.Error, ErrExpired.Error())
	assert.True(t, responder.handled.Contains(location))
}
