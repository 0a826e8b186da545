package dht

import (
	"sort"
	"sync"

	"github.com/dep2p/go-ldht/pkg/types"
)

// ============================================================================
//                              K-Bucket
// ============================================================================

// KBucket K 桶
//
// 按加入顺序保存最多 size 个不重复的节点 ID。桶满时移除最早加入的节点
// （下标 0），再把新节点追加到末尾。KBucket 本身不加锁，由 RoutingTable 保护。
type KBucket struct {
	ids  []types.NodeID
	size int
}

// NewKBucket 创建新的 K 桶
func NewKBucket(size int) *KBucket {
	return &KBucket{
		ids:  make([]types.NodeID, 0, size),
		size: size,
	}
}

// Len 返回桶中节点数量
func (b *KBucket) Len() int {
	return len(b.ids)
}

// IsFull 检查桶是否已满
func (b *KBucket) IsFull() bool {
	return len(b.ids) >= b.size
}

// Contains 检查节点是否在桶中
func (b *KBucket) Contains(id types.NodeID) bool {
	return b.indexOf(id) >= 0
}

// IDs 返回节点 ID 副本（按加入顺序）
func (b *KBucket) IDs() []types.NodeID {
	out := make([]types.NodeID, len(b.ids))
	copy(out, b.ids)
	return out
}

// Add 添加节点
//
// 返回被驱逐的节点（如果有）。节点已存在时不做任何改变。
func (b *KBucket) Add(id types.NodeID) (added bool, evicted types.NodeID, didEvict bool) {
	if b.Contains(id) {
		return false, 0, false
	}
	if b.IsFull() {
		evicted = b.ids[0]
		b.ids = append(b.ids[:0], b.ids[1:]...)
		didEvict = true
	}
	b.ids = append(b.ids, id)
	return true, evicted, didEvict
}

// Remove 移除节点
func (b *KBucket) Remove(id types.NodeID) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.ids = append(b.ids[:i], b.ids[i+1:]...)
	return true
}

func (b *KBucket) indexOf(id types.NodeID) int {
	for i, existing := range b.ids {
		if existing == id {
			return i
		}
	}
	return -1
}

// ============================================================================
//                              路由表
// ============================================================================

// RoutingTable Kademlia 路由表
//
// 桶按下标 floor(log2(distance(owner, id))) 组织，首次使用时创建。
// 所有者自身（距离 0）永远不会进入任何桶。
type RoutingTable struct {
	owner      types.NodeID
	bucketSize int

	buckets map[int]*KBucket

	mu sync.RWMutex
}

// NewRoutingTable 创建路由表
func NewRoutingTable(owner types.NodeID, bucketSize int) *RoutingTable {
	if bucketSize <= 0 {
		bucketSize = DefaultConfig().BucketSize
	}
	return &RoutingTable{
		owner:      owner,
		bucketSize: bucketSize,
		buckets:    make(map[int]*KBucket),
	}
}

// Owner 返回路由表所有者
func (rt *RoutingTable) Owner() types.NodeID {
	return rt.owner
}

// AddPeer 添加节点
//
// 所有者自身和已存在的节点都是空操作。返回路由表是否发生变化。
func (rt *RoutingTable) AddPeer(id types.NodeID) bool {
	idx := types.BucketIndex(types.NodeDistance(rt.owner, id))
	if idx < 0 {
		return false
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	bucket, ok := rt.buckets[idx]
	if !ok {
		bucket = NewKBucket(rt.bucketSize)
		rt.buckets[idx] = bucket
	}

	added, evicted, didEvict := bucket.Add(id)
	if didEvict {
		logger.Debug("K 桶已满，驱逐最早节点", "owner", rt.owner, "bucket", idx, "evicted", evicted, "added", id)
	}
	return added
}

// RemovePeer 移除节点，不存在时返回 false
func (rt *RoutingTable) RemovePeer(id types.NodeID) bool {
	idx := types.BucketIndex(types.NodeDistance(rt.owner, id))
	if idx < 0 {
		return false
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	bucket, ok := rt.buckets[idx]
	if !ok {
		return false
	}
	return bucket.Remove(id)
}

// Contains 检查节点是否在路由表中
func (rt *RoutingTable) Contains(id types.NodeID) bool {
	idx := types.BucketIndex(types.NodeDistance(rt.owner, id))
	if idx < 0 {
		return false
	}

	rt.mu.RLock()
	defer rt.mu.RUnlock()

	bucket, ok := rt.buckets[idx]
	return ok && bucket.Contains(id)
}

// ClosestKnownPeer 返回路由表中距离 key 最近的节点
func (rt *RoutingTable) ClosestKnownPeer(key types.Key) (types.NodeID, bool) {
	return rt.ClosestKnownPeerExcluding(key, nil)
}

// ClosestKnownPeerExcluding 返回不在 exclude 中、距离 key 最近的节点
//
// 线性扫描所有桶。不同节点到同一个 key 的距离互不相同。
func (rt *RoutingTable) ClosestKnownPeerExcluding(key types.Key, exclude Visited) (types.NodeID, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var (
		best     types.NodeID
		bestDist uint64
		found    bool
	)
	for _, idx := range rt.sortedIndexesLocked() {
		for _, id := range rt.buckets[idx].ids {
			if exclude.Has(id) {
				continue
			}
			d := types.Distance(id, key)
			if !found || d < bestDist {
				best, bestDist, found = id, d, true
			}
		}
	}
	return best, found
}

// NearestPeers 返回距离 key 最近的 count 个节点（升序）
func (rt *RoutingTable) NearestPeers(key types.Key, count int) []types.NodeID {
	peers := rt.Peers()
	SortByDistance(peers, key)
	if count >= 0 && len(peers) > count {
		peers = peers[:count]
	}
	return peers
}

// Peers 返回所有节点（按桶下标、加入顺序）
func (rt *RoutingTable) Peers() []types.NodeID {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]types.NodeID, 0, rt.sizeLocked())
	for _, idx := range rt.sortedIndexesLocked() {
		out = append(out, rt.buckets[idx].ids...)
	}
	return out
}

// Bucket 返回指定下标桶中的节点
func (rt *RoutingTable) Bucket(idx int) []types.NodeID {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	bucket, ok := rt.buckets[idx]
	if !ok {
		return nil
	}
	return bucket.IDs()
}

// Buckets 返回非空桶的快照
func (rt *RoutingTable) Buckets() map[int][]types.NodeID {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make(map[int][]types.NodeID, len(rt.buckets))
	for idx, bucket := range rt.buckets {
		if bucket.Len() > 0 {
			out[idx] = bucket.IDs()
		}
	}
	return out
}

// Size 返回节点总数
func (rt *RoutingTable) Size() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.sizeLocked()
}

// Restore 按顺序重新加入节点，用于从持久化记录重建
func (rt *RoutingTable) Restore(ids []types.NodeID) int {
	n := 0
	for _, id := range ids {
		if rt.AddPeer(id) {
			n++
		}
	}
	return n
}

func (rt *RoutingTable) sizeLocked() int {
	n := 0
	for _, bucket := range rt.buckets {
		n += bucket.Len()
	}
	return n
}

func (rt *RoutingTable) sortedIndexesLocked() []int {
	idxs := make([]int, 0, len(rt.buckets))
	for idx := range rt.buckets {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}
