package dht

import (
	"context"
	"sort"

	"github.com/dep2p/go-ldht/pkg/types"
)

// PeerRef 跨边界引用一个节点
//
// Location 是节点文档的位置，进程内节点可以为空。
type PeerRef struct {
	ID       types.NodeID `json:"id"`
	Location string       `json:"location,omitempty"`
}

// Peer DHT 节点
//
// *LocalNode 直接调用实现，remote.Peer 通过动作协议实现。
type Peer interface {
	// ID 返回节点 ID
	ID() types.NodeID

	// Ref 返回节点引用
	Ref() PeerRef

	// AddNode 把 ref 加入该节点的路由表
	AddNode(ctx context.Context, ref PeerRef) error

	// RemoveNode 从该节点的路由表移除 ref
	RemoveNode(ctx context.Context, ref PeerRef) error

	// Store 存储值，必要时继续转发
	Store(ctx context.Context, key types.Key, values []string, visited Visited, maxHops int) error

	// FindValue 查找值，未找到返回空切片
	FindValue(ctx context.Context, key types.Key, visited Visited, maxHops int) ([]string, error)

	// HasValue 检查该节点本地是否存有 key
	HasValue(ctx context.Context, key types.Key) (bool, error)

	// Ping 对本地节点执行故障检测，对远程节点发送存活探测
	Ping(ctx context.Context) error

	// Reachable 返回节点最近一次已知的可达状态
	Reachable() bool
}

// Prober 可主动探测存活的节点
//
// 故障检测时如果节点实现了 Prober，会先调用 Probe 刷新可达状态。
type Prober interface {
	Probe(ctx context.Context) error
}

// ============================================================================
//                              访问集合
// ============================================================================

// Visited 一次逻辑操作中已经访问过的节点
//
// nil Visited 可以安全读取。
type Visited map[types.NodeID]struct{}

// NewVisited 创建访问集合
func NewVisited(ids ...types.NodeID) Visited {
	v := make(Visited, len(ids))
	for _, id := range ids {
		v[id] = struct{}{}
	}
	return v
}

// Has 检查节点是否已访问
func (v Visited) Has(id types.NodeID) bool {
	_, ok := v[id]
	return ok
}

// Add 标记节点已访问
func (v Visited) Add(id types.NodeID) {
	v[id] = struct{}{}
}

// IDs 返回已访问节点（升序）
func (v Visited) IDs() []types.NodeID {
	out := make([]types.NodeID, 0, len(v))
	for id := range v {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
