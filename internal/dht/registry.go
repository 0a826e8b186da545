package dht

import (
	"sync"

	"github.com/dep2p/go-ldht/pkg/types"
)

// Registry 节点注册表
//
// 保存 NodeID 到 Peer 的映射并记住注册顺序。同一进程内的多个 Network
// 可以共享同一个 Registry。
type Registry struct {
	mu    sync.RWMutex
	peers map[types.NodeID]Peer
	order []types.NodeID
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[types.NodeID]Peer),
	}
}

// Get 查找节点
func (r *Registry) Get(id types.NodeID) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[id]
	return p, ok
}

// Add 注册节点，已存在时返回 false 且不替换
func (r *Registry) Add(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.peers[id]; ok {
		return false
	}
	r.peers[id] = p
	r.order = append(r.order, id)
	return true
}

// Replace 注册或替换节点，保持原注册顺序
func (r *Registry) Replace(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := p.ID()
	if _, ok := r.peers[id]; !ok {
		r.order = append(r.order, id)
	}
	r.peers[id] = p
}

// Remove 注销节点
func (r *Registry) Remove(id types.NodeID) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id]
	if !ok {
		return nil, false
	}
	delete(r.peers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

// Peers 返回所有节点（按注册顺序）
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.peers[id])
	}
	return out
}

// Len 返回节点数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
