package ldht

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/internal/remote"
	"github.com/dep2p/go-ldht/pkg/lib/log"
)

var logger = log.Logger("ldht")

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 空闲状态（已创建，未启动）
	StateIdle NodeState = iota

	// StateStarting 启动中（Fx App 启动、加入引导节点）
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止（不可重新启动）
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Node LDHT 节点
//
// Node 是用户与 DHT 交互的主入口，聚合了内部的 Network、远程节点工厂和指标。
//
// 使用示例：
//
//	registry := ldht.NewRegistry()
//	a, _ := ldht.Start(ctx, ldht.WithNodeID(10), ldht.WithRegistry(registry))
//	b, _ := ldht.Start(ctx, ldht.WithNodeID(20), ldht.WithRegistry(registry))
//	_ = b.AddNode(ctx, a.Ref())
//	_ = b.StoreValue(ctx, 10, "v")
type Node struct {
	// ────────────────────────────────────────────────────────────────────────
	// 配置和状态
	// ────────────────────────────────────────────────────────────────────────

	config *nodeConfig
	app    *fx.App

	// ────────────────────────────────────────────────────────────────────────
	// 内部组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	network *dht.Network
	factory *remote.Factory
	metrics *metrics.Metrics
	bus     *eventbus.Bus

	// ────────────────────────────────────────────────────────────────────────
	// 生命周期状态
	// ────────────────────────────────────────────────────────────────────────

	mu      sync.RWMutex
	state   NodeState
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建新节点
//
// 创建节点但不启动，需要调用 Start() 启动。
func New(_ context.Context, opts ...Option) (*Node, error) {
	cfg := newNodeConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{config: cfg}

	var err error
	node.app, err = buildFxApp(cfg, node)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return node, nil
}

// Start 快捷启动函数
//
// 等价于 New() + node.Start()。
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, err
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回本地节点 ID
func (n *Node) ID() NodeID {
	return NodeID(n.config.config.Network.NodeID)
}

// Collection 返回集合标识
func (n *Node) Collection() string {
	return n.config.config.Network.Collection
}

// Mode 返回运行模式
func (n *Node) Mode() string {
	return n.config.config.Network.Mode
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Location 返回本地节点文档位置，memory 模式下为空
func (n *Node) Location() string {
	if local := n.local(); local != nil {
		return local.Location()
	}
	return ""
}

// Ref 返回本地节点引用，其他节点用它加入
func (n *Node) Ref() PeerRef {
	if local := n.local(); local != nil {
		return local.Ref()
	}
	return PeerRef{ID: n.ID()}
}

// Peers 返回路由表中的节点（按桶索引排序）
func (n *Node) Peers() []NodeID {
	local := n.local()
	if local == nil {
		return nil
	}
	return local.RoutingTable().Peers()
}

// NearestPeers 返回路由表中离 key 最近的 count 个节点（按距离升序）
func (n *Node) NearestPeers(key Key, count int) []NodeID {
	local := n.local()
	if local == nil {
		return nil
	}
	return local.RoutingTable().NearestPeers(key, count)
}

// Buckets 返回非空 K-桶的快照，键为桶索引
func (n *Node) Buckets() map[int][]NodeID {
	local := n.local()
	if local == nil {
		return nil
	}
	return local.RoutingTable().Buckets()
}

// Metrics 返回指标集合，禁用指标时为 nil
func (n *Node) Metrics() *metrics.Metrics {
	return n.metrics
}

func (n *Node) local() *dht.LocalNode {
	if n.network == nil {
		return nil
	}
	return n.network.LocalNode()
}

// Subscribe 订阅节点事件
//
// eventType 为事件类型的指针，例如 new(ldht.EvtPeerFailed)。订阅者处理过慢时
// 事件被丢弃，可用 BufSize 加大缓冲区。
func (n *Node) Subscribe(eventType interface{}, opts ...SubscriptionOpt) (*Subscription, error) {
	if n.bus == nil {
		return nil, ErrNotStarted
	}
	return n.bus.Subscribe(eventType, opts...)
}
