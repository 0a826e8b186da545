package dht

import (
	"context"
	"sync/atomic"

	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/pkg/types"
)

// RoutingObserver 路由表变化回调
//
// 持久化节点用它在每次路由变化后保存节点记录。返回的错误只记录日志。
type RoutingObserver func(ctx context.Context, node *LocalNode) error

// NodeOption LocalNode 选项
type NodeOption func(*LocalNode)

// WithLocation 设置节点文档位置
func WithLocation(location string) NodeOption {
	return func(n *LocalNode) {
		n.location = location
	}
}

// WithValueStore 设置值存储，默认使用内存存储
func WithValueStore(store ValueStore) NodeOption {
	return func(n *LocalNode) {
		n.values = store
	}
}

// WithRoutingObserver 设置路由变化回调
func WithRoutingObserver(observer RoutingObserver) NodeOption {
	return func(n *LocalNode) {
		n.observer = observer
	}
}

// LocalNode 本地 DHT 节点
//
// 持有路由表和本地值存储，通过所属 Network 解析并调用其他节点。
// 转发期间不持有任何锁，A→B→A 的调用链不会死锁。
type LocalNode struct {
	id       types.NodeID
	location string

	network  *Network
	cfg      *Config
	metrics  *metrics.Metrics
	routing  *RoutingTable
	values   ValueStore
	observer RoutingObserver

	closed atomic.Bool
}

// NewLocalNode 创建本地节点
func NewLocalNode(id types.NodeID, network *Network, opts ...NodeOption) *LocalNode {
	cfg := DefaultConfig()
	var m *metrics.Metrics
	if network != nil {
		cfg = network.Config()
		m = network.Metrics()
	}

	n := &LocalNode{
		id:      id,
		network: network,
		cfg:     cfg,
		metrics: m,
		routing: NewRoutingTable(id, cfg.BucketSize),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.values == nil {
		n.values = NewMemoryValueStore()
	}
	return n
}

// ID 返回节点 ID
func (n *LocalNode) ID() types.NodeID {
	return n.id
}

// Ref 返回节点引用
func (n *LocalNode) Ref() PeerRef {
	return PeerRef{ID: n.id, Location: n.location}
}

// Location 返回节点文档位置
func (n *LocalNode) Location() string {
	return n.location
}

// Network 返回所属网络
func (n *LocalNode) Network() *Network {
	return n.network
}

// RoutingTable 返回路由表
func (n *LocalNode) RoutingTable() *RoutingTable {
	return n.routing
}

// Values 返回值存储
func (n *LocalNode) Values() ValueStore {
	return n.values
}

// Reachable 节点未关闭即可达
func (n *LocalNode) Reachable() bool {
	return !n.closed.Load()
}

// Close 关闭节点，之后所有调用返回 ErrNodeClosed
func (n *LocalNode) Close() error {
	if n.closed.CompareAndSwap(false, true) {
		logger.Info("本地节点已关闭", "nodeID", n.id)
	}
	return nil
}

// ============================================================================
//                              路由维护
// ============================================================================

// AddNode 把节点加入路由表
//
// 先通过网络解析引用，确保之后的转发能找到该节点。
func (n *LocalNode) AddNode(ctx context.Context, ref PeerRef) error {
	if n.closed.Load() {
		return ErrNodeClosed
	}
	if ref.ID == n.id {
		return nil
	}
	if n.network != nil {
		if _, err := n.network.Resolve(ctx, ref); err != nil {
			return NewDHTError("add_node", err, "resolve "+ref.ID.String())
		}
	}

	if n.routing.AddPeer(ref.ID) {
		logger.Debug("路由表新增节点", "nodeID", n.id, "peer", ref.ID)
		n.emit(EvtPeerAdded{NodeID: n.id, Peer: ref.ID})
		n.routingChanged(ctx)
	}
	return nil
}

// RemoveNode 从路由表移除节点
func (n *LocalNode) RemoveNode(ctx context.Context, ref PeerRef) error {
	if n.closed.Load() {
		return ErrNodeClosed
	}
	if ref.ID == n.id {
		return nil
	}

	if n.routing.RemovePeer(ref.ID) {
		logger.Debug("路由表移除节点", "nodeID", n.id, "peer", ref.ID)
		n.emit(EvtPeerRemoved{NodeID: n.id, Peer: ref.ID})
		n.routingChanged(ctx)
	}
	return nil
}

func (n *LocalNode) emit(evt interface{}) {
	if n.network != nil {
		n.network.events.emit(evt)
	}
}

func (n *LocalNode) routingChanged(ctx context.Context) {
	if n.observer == nil {
		return
	}
	if err := n.observer(ctx, n); err != nil {
		logger.Warn("保存路由表失败", "nodeID", n.id, "error", err)
	}
}

// ============================================================================
//                              存储与查找
// ============================================================================

// Store 存储值
//
// 路由表中存在比本节点更接近 key 且未访问过的节点时，把本节点加入
// visited 并以 maxHops-1 转发；否则（包括 maxHops <= 0）写入本地。
// 转发失败直接返回给调用方，不在本地重试。
func (n *LocalNode) Store(ctx context.Context, key types.Key, values []string, visited Visited, maxHops int) error {
	if n.closed.Load() {
		return ErrNodeClosed
	}
	if visited == nil {
		visited = NewVisited()
	}

	if maxHops > 0 {
		if next, ok := n.closerPeer(key, visited); ok {
			visited.Add(n.id)
			return n.forwardStore(ctx, next, key, values, visited, maxHops-1)
		}
	}

	added, err := n.values.Append(ctx, key, values)
	if err != nil {
		return NewDHTError("store", err, "append "+key.String())
	}
	n.metrics.ObserveHops(len(visited))
	n.emit(EvtValueStored{NodeID: n.id, Key: key, Added: added, Hops: len(visited)})
	logger.Debug("值已存储", "nodeID", n.id, "key", key, "added", added, "hops", len(visited))
	return nil
}

// closerPeer 返回比本节点严格更接近 key 的已知节点
func (n *LocalNode) closerPeer(key types.Key, visited Visited) (types.NodeID, bool) {
	closest, ok := n.routing.ClosestKnownPeerExcluding(key, visited)
	if !ok || types.Distance(closest, key) >= types.Distance(n.id, key) {
		return 0, false
	}
	return closest, true
}

func (n *LocalNode) forwardStore(ctx context.Context, id types.NodeID, key types.Key, values []string, visited Visited, maxHops int) error {
	peer, err := n.resolve(ctx, id)
	if err != nil {
		return NewDHTError("store", err, "forward to "+id.String())
	}

	hctx, cancel := n.hopContext(ctx)
	defer cancel()

	logger.Debug("转发存储", "nodeID", n.id, "to", id, "key", key, "hopsLeft", maxHops)
	return peer.Store(hctx, key, values, visited, maxHops)
}

// FindValue 查找值
//
// 本地命中直接返回；否则转发给最接近 key 且未访问过的节点。
// 本节点比应答节点更接近 key 时缓存结果。
func (n *LocalNode) FindValue(ctx context.Context, key types.Key, visited Visited, maxHops int) ([]string, error) {
	if n.closed.Load() {
		return nil, ErrNodeClosed
	}

	local, err := n.values.Get(ctx, key)
	if err != nil {
		return nil, NewDHTError("find_value", err, "read "+key.String())
	}
	if len(local) > 0 {
		return local, nil
	}
	if maxHops <= 0 {
		return []string{}, nil
	}

	if visited == nil {
		visited = NewVisited()
	}
	visited.Add(n.id)

	next, ok := n.routing.ClosestKnownPeerExcluding(key, visited)
	if !ok {
		return []string{}, nil
	}

	peer, err := n.resolve(ctx, next)
	if err != nil {
		return nil, NewDHTError("find_value", err, "forward to "+next.String())
	}

	hctx, cancel := n.hopContext(ctx)
	defer cancel()

	found, err := peer.FindValue(hctx, key, visited, maxHops-1)
	if err != nil {
		return nil, err
	}

	if len(found) > 0 && types.Distance(n.id, key) < types.Distance(next, key) {
		if _, err := n.values.Append(ctx, key, found); err != nil {
			logger.Warn("缓存查找结果失败", "nodeID", n.id, "key", key, "error", err)
		} else {
			logger.Debug("缓存查找结果", "nodeID", n.id, "key", key, "from", next)
		}
	}
	if found == nil {
		found = []string{}
	}
	return found, nil
}

// HasValue 检查本地是否存有 key
func (n *LocalNode) HasValue(ctx context.Context, key types.Key) (bool, error) {
	if n.closed.Load() {
		return false, ErrNodeClosed
	}
	return n.values.Has(ctx, key)
}

// ============================================================================
//                              故障检测
// ============================================================================

// Ping 检查路由表中的每个节点
//
// 无法解析或不可达的节点视为故障：按配置从路由表移除，并把本地值中
// 原本应由它负责的 key 复制到当前最近的可达节点。复制失败只记录日志。
func (n *LocalNode) Ping(ctx context.Context) error {
	if n.closed.Load() {
		return ErrNodeClosed
	}

	for _, id := range n.routing.Peers() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.alive(ctx, id) {
			continue
		}
		n.handleFailure(ctx, id)
	}
	return nil
}

func (n *LocalNode) alive(ctx context.Context, id types.NodeID) bool {
	peer, err := n.resolve(ctx, id)
	if err != nil {
		return false
	}
	if prober, ok := peer.(Prober); ok {
		// 探测由对端自身的 Ping 超时约束，不再叠加跳超时
		if err := prober.Probe(ctx); err != nil {
			logger.Debug("存活探测失败", "nodeID", n.id, "peer", id, "error", err)
		}
	}
	return peer.Reachable()
}

func (n *LocalNode) handleFailure(ctx context.Context, failed types.NodeID) {
	logger.Info("检测到故障节点", "nodeID", n.id, "peer", failed)
	n.emit(EvtPeerFailed{NodeID: n.id, Peer: failed})

	if n.cfg.EvictFailedPeers && n.routing.RemovePeer(failed) {
		n.emit(EvtPeerRemoved{NodeID: n.id, Peer: failed, Failed: true})
		n.routingChanged(ctx)
	}
	if n.network == nil {
		return
	}

	keys, err := n.values.Keys(ctx)
	if err != nil {
		logger.Warn("读取本地键失败", "nodeID", n.id, "error", err)
		return
	}

	for _, key := range keys {
		candidates, err := n.network.FindNodesByKey(ctx, key, n.cfg.ReplicationCount)
		if err != nil || !responsibleFor(candidates, failed, key, n.cfg.ReplicationCount) {
			continue
		}
		values, err := n.values.Get(ctx, key)
		if err != nil || len(values) == 0 {
			continue
		}
		n.replicate(ctx, key, values, candidates, failed)
	}
}

// replicate 把值直接放到最近的可达候选节点上，本地副本保留
func (n *LocalNode) replicate(ctx context.Context, key types.Key, values []string, candidates []Peer, failed types.NodeID) {
	for _, peer := range candidates {
		if peer.ID() == failed {
			continue
		}
		if peer.ID() == n.id {
			// 本节点就是最近的可达节点，已有副本
			return
		}
		if !peer.Reachable() {
			continue
		}

		hctx, cancel := n.hopContext(ctx)
		err := peer.Store(hctx, key, values, NewVisited(n.id), 0)
		cancel()
		if err != nil {
			logger.Warn("重新复制失败", "nodeID", n.id, "key", key, "to", peer.ID(), "error", err)
			continue
		}

		n.metrics.IncReplications()
		n.emit(EvtValueReplicated{NodeID: n.id, Key: key, To: peer.ID(), Failed: failed})
		logger.Info("已重新复制", "nodeID", n.id, "key", key, "to", peer.ID(), "failed", failed)
		return
	}
}

func (n *LocalNode) resolve(ctx context.Context, id types.NodeID) (Peer, error) {
	if n.network == nil {
		return nil, ErrNotFound
	}
	return n.network.FindNodeByID(ctx, id)
}

func (n *LocalNode) hopContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.cfg.HopTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, n.cfg.HopTimeout)
}

// responsibleFor 判断 failed 是否属于 key 的最近 count 个节点
//
// failed 可能已从注册表移除，此时按距离判断它是否会进入候选列表。
func responsibleFor(candidates []Peer, failed types.NodeID, key types.Key, count int) bool {
	for _, p := range candidates {
		if p.ID() == failed {
			return true
		}
	}
	if len(candidates) < count {
		return true
	}
	return CompareDistance(failed, candidates[len(candidates)-1].ID(), key) < 0
}

// 编译时检查接口实现
var _ Peer = (*LocalNode)(nil)
