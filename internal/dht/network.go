package dht

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/pkg/lib/log"
	"github.com/dep2p/go-ldht/pkg/types"
)

var logger = log.Logger("dht")

// Option Network 选项
type Option func(*Network)

// WithRegistry 使用共享注册表
func WithRegistry(registry *Registry) Option {
	return func(n *Network) {
		n.registry = registry
	}
}

// WithProvisioner 设置本地节点创建方式
func WithProvisioner(p NodeProvisioner) Option {
	return func(n *Network) {
		n.provisioner = p
	}
}

// WithPeerFactory 设置远程节点构造方式
func WithPeerFactory(f PeerFactory) Option {
	return func(n *Network) {
		n.factory = f
	}
}

// WithConfig 设置配置
func WithConfig(cfg *Config) Option {
	return func(n *Network) {
		n.cfg = cfg
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Network) {
		n.metrics = m
	}
}

// WithEventBus 在事件总线上发布路由与存储事件
func WithEventBus(bus *eventbus.Bus) Option {
	return func(n *Network) {
		n.bus = bus
	}
}

// Network DHT 网络
//
// 维护 NodeID 到 Peer 的注册表和本地节点，负责按距离选择节点、
// 发起存储与查找，以及新节点加入时的路由表收敛。
type Network struct {
	collection  string
	cfg         *Config
	registry    *Registry
	provisioner NodeProvisioner
	factory     PeerFactory
	metrics     *metrics.Metrics
	bus         *eventbus.Bus
	events      *emitters

	mu        sync.RWMutex
	local     *LocalNode
	converged map[types.NodeID]struct{}
}

// NewNetwork 创建网络
func NewNetwork(collection string, opts ...Option) (*Network, error) {
	n := &Network{
		collection: collection,
		converged:  make(map[types.NodeID]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.cfg == nil {
		n.cfg = DefaultConfig()
	}
	if err := n.cfg.Validate(); err != nil {
		return nil, err
	}
	if n.registry == nil {
		n.registry = NewRegistry()
	}
	if n.provisioner == nil {
		n.provisioner = MemoryProvisioner{}
	}

	events, err := newEmitters(n.bus)
	if err != nil {
		return nil, err
	}
	n.events = events
	return n, nil
}

// Collection 返回集合标识
func (n *Network) Collection() string {
	return n.collection
}

// Config 返回配置
func (n *Network) Config() *Config {
	return n.cfg
}

// Registry 返回注册表
func (n *Network) Registry() *Registry {
	return n.registry
}

// Metrics 返回指标，可能为 nil
func (n *Network) Metrics() *metrics.Metrics {
	return n.metrics
}

// LocalNode 返回本地节点，未初始化时为 nil
func (n *Network) LocalNode() *LocalNode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.local
}

// ============================================================================
//                              生命周期
// ============================================================================

// Initialize 创建本地节点并注册
func (n *Network) Initialize(ctx context.Context, id types.NodeID) error {
	if local := n.LocalNode(); local != nil {
		if local.ID() == id {
			return nil
		}
		return NewDHTError("initialize", ErrInvalidArgument,
			fmt.Sprintf("already initialized as %s", local.ID()))
	}

	node, err := n.CreateLocalNode(ctx, id)
	if err != nil {
		return NewDHTError("initialize", err, "create local node")
	}

	n.mu.Lock()
	n.local = node
	n.converged[id] = struct{}{}
	n.mu.Unlock()

	n.registry.Replace(node)
	n.metrics.SetPeers(n.registry.Len())

	logger.Info("网络已初始化", "collection", n.collection, "nodeID", id, "peers", n.registry.Len())
	return nil
}

// CreateLocalNode 通过 NodeProvisioner 创建或重建本地节点
func (n *Network) CreateLocalNode(ctx context.Context, id types.NodeID) (*LocalNode, error) {
	return n.provisioner.Provision(ctx, n, id)
}

// Close 关闭本地节点
func (n *Network) Close() error {
	local := n.LocalNode()
	if local == nil {
		return ErrNotInitialized
	}
	err := local.Close()
	n.events.close()
	return err
}

// ============================================================================
//                              节点查找
// ============================================================================

// FindNodeByID 按 ID 查找已注册节点
func (n *Network) FindNodeByID(_ context.Context, id types.NodeID) (Peer, error) {
	if p, ok := n.registry.Get(id); ok {
		return p, nil
	}
	return nil, NewDHTError("find_node", ErrNotFound, id.String())
}

// FindNodesByKey 返回距离 key 最近的 count 个已注册节点（升序）
//
// count <= 0 时使用配置的 ClosestCount。距离相同时保持注册顺序。
func (n *Network) FindNodesByKey(_ context.Context, key types.Key, count int) ([]Peer, error) {
	if count <= 0 {
		count = n.cfg.ClosestCount
	}

	peers := n.registry.Peers()
	sort.SliceStable(peers, func(i, j int) bool {
		return CompareDistance(peers[i].ID(), peers[j].ID(), key) < 0
	})
	if len(peers) > count {
		peers = peers[:count]
	}
	return peers, nil
}

// Resolve 把引用解析为节点
//
// 未注册且提供了位置时，用 PeerFactory 构造并注册（不触发收敛）。
func (n *Network) Resolve(ctx context.Context, ref PeerRef) (Peer, error) {
	if p, ok := n.registry.Get(ref.ID); ok {
		return p, nil
	}
	if n.factory == nil || ref.Location == "" {
		return nil, NewDHTError("resolve", ErrNotFound, ref.ID.String())
	}

	p, err := n.factory.NewPeer(ctx, n, ref)
	if err != nil {
		return nil, NewDHTError("resolve", err, ref.Location)
	}
	if !n.registry.Add(p) {
		// 并发解析时以先注册的为准
		existing, _ := n.registry.Get(ref.ID)
		return existing, nil
	}
	n.metrics.SetPeers(n.registry.Len())
	return p, nil
}

// ============================================================================
//                              存储与查找
// ============================================================================

// StoreValue 把值交给距离 key 最近的节点存储
func (n *Network) StoreValue(ctx context.Context, key types.Key, value string) (err error) {
	defer func() { n.metrics.ObserveOperation("store_value", err) }()

	candidates, _ := n.FindNodesByKey(ctx, key, 1)
	if len(candidates) == 0 {
		return NewDHTError("store_value", ErrNotFound, "no peers known")
	}

	target := candidates[0]
	logger.Debug("存储值", "key", key, "target", target.ID())
	return target.Store(ctx, key, []string{value}, NewVisited(), n.cfg.MaxHops)
}

// FindValue 依次询问距离 key 最近的节点，返回第一个成功的结果
//
// 没有候选节点或全部失败时返回空切片。
func (n *Network) FindValue(ctx context.Context, key types.Key) (values []string, err error) {
	defer func() { n.metrics.ObserveOperation("find_value", err) }()

	candidates, _ := n.FindNodesByKey(ctx, key, n.cfg.ClosestCount)
	for _, peer := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := peer.FindValue(ctx, key, NewVisited(), n.cfg.MaxHops)
		if err != nil {
			logger.Debug("查找失败，尝试下一个节点", "key", key, "peer", peer.ID(), "error", err)
			continue
		}
		if found == nil {
			found = []string{}
		}
		return found, nil
	}
	return []string{}, nil
}

// ============================================================================
//                              成员管理
// ============================================================================

// AddNode 注册节点并在首次加入时收敛路由表
func (n *Network) AddNode(ctx context.Context, peer Peer) error {
	if peer == nil {
		return NewDHTError("add_node", ErrInvalidArgument, "peer is nil")
	}
	id := peer.ID()

	if n.registry.Add(peer) {
		n.metrics.SetPeers(n.registry.Len())
		logger.Info("节点加入网络", "collection", n.collection, "peer", id, "total", n.registry.Len())
	} else if existing, ok := n.registry.Get(id); ok {
		peer = existing
	}

	n.mu.Lock()
	if _, done := n.converged[id]; done {
		n.mu.Unlock()
		return nil
	}
	n.converged[id] = struct{}{}
	n.mu.Unlock()

	n.converge(ctx, peer)
	return nil
}

// Join 通过引用加入一个节点
func (n *Network) Join(ctx context.Context, ref PeerRef) error {
	if local := n.LocalNode(); local != nil && local.ID() == ref.ID {
		return nil
	}
	peer, err := n.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	return n.AddNode(ctx, peer)
}

// RemoveNode 注销节点并通知其余节点
func (n *Network) RemoveNode(ctx context.Context, peer Peer) error {
	if peer == nil {
		return NewDHTError("remove_node", ErrInvalidArgument, "peer is nil")
	}
	ref := peer.Ref()

	n.registry.Remove(ref.ID)
	n.mu.Lock()
	delete(n.converged, ref.ID)
	n.mu.Unlock()
	n.metrics.SetPeers(n.registry.Len())

	var errs error
	for _, other := range n.registry.Peers() {
		if err := other.RemoveNode(ctx, ref); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("peer %s: %w", other.ID(), err))
		}
	}

	logger.Info("节点离开网络", "collection", n.collection, "peer", ref.ID, "total", n.registry.Len())
	n.metrics.ObserveOperation("remove_node", errs)
	return errs
}

// Ping 并发对每个已注册节点调用 Ping（上限 JoinConcurrency）
//
// 本进程内节点的错误被汇总返回；远程节点（实现 Prober）的失败只记录日志，
// 其可达状态由节点自身更新。
func (n *Network) Ping(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.JoinConcurrency)
	for _, peer := range n.registry.Peers() {
		peer := peer
		g.Go(func() error {
			err := peer.Ping(gctx)
			if err == nil {
				return nil
			}
			if _, remote := peer.(Prober); remote {
				logger.Warn("远程节点 Ping 失败", "collection", n.collection, "peer", peer.ID(), "error", err)
				return nil
			}
			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("peer %s: %w", peer.ID(), err))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	n.metrics.ObserveOperation("ping", errs)
	return errs
}
