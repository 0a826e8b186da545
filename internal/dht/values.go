package dht

import (
	"context"
	"sort"
	"sync"

	"github.com/dep2p/go-ldht/pkg/types"
)

// ValueStore 节点本地数据存储
//
// 每个 key 对应一组按首次插入顺序排列的值，重复的值不会再次加入。
type ValueStore interface {
	// Append 追加值，返回实际新增的数量
	Append(ctx context.Context, key types.Key, values []string) (int, error)

	// Get 返回 key 的所有值，不存在时返回 nil
	Get(ctx context.Context, key types.Key) ([]string, error)

	// Has 检查 key 是否存在
	Has(ctx context.Context, key types.Key) (bool, error)

	// Keys 返回所有 key（升序）
	Keys(ctx context.Context) ([]types.Key, error)
}

// MemoryValueStore 内存值存储
type MemoryValueStore struct {
	mu     sync.RWMutex
	values map[types.Key][]string
}

// NewMemoryValueStore 创建内存值存储
func NewMemoryValueStore() *MemoryValueStore {
	return &MemoryValueStore{
		values: make(map[types.Key][]string),
	}
}

// Append 追加值
func (s *MemoryValueStore) Append(_ context.Context, key types.Key, values []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, added := MergeValues(s.values[key], values)
	if added > 0 {
		s.values[key] = merged
	}
	return added, nil
}

// Get 返回值副本
func (s *MemoryValueStore) Get(_ context.Context, key types.Key) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

// Has 检查 key 是否存在
func (s *MemoryValueStore) Has(_ context.Context, key types.Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.values[key]
	return ok, nil
}

// Keys 返回所有 key
func (s *MemoryValueStore) Keys(_ context.Context) ([]types.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]types.Key, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// MergeValues 把 incoming 中不存在的值按顺序追加到 existing
//
// 返回合并结果和新增数量。existing 不会被修改。
func MergeValues(existing, incoming []string) ([]string, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, v := range existing {
		seen[v] = struct{}{}
		merged = append(merged, v)
	}

	added := 0
	for _, v := range incoming {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
		added++
	}
	return merged, added
}

// 编译时检查接口实现
var _ ValueStore = (*MemoryValueStore)(nil)
