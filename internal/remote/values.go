package remote

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/pkg/types"
)

// DocumentValueStore 基于文档存储的值存储
//
// 每个 key 对应数据容器下的一个 ValueRecord 文档，远程节点可以直接读取。
// 启动时把全部文档加载到内存，之后读操作只访问内存。
type DocumentValueStore struct {
	store     docstore.Store
	codec     action.Codec
	clock     clock.Clock
	container string

	mu     sync.RWMutex
	cache  map[types.Key][]string
	loaded bool
}

// NewDocumentValueStore 创建文档值存储
func NewDocumentValueStore(store docstore.Store, codec action.Codec, container string, clk clock.Clock) *DocumentValueStore {
	if clk == nil {
		clk = clock.New()
	}
	return &DocumentValueStore{
		store:     store,
		codec:     codec,
		clock:     clk,
		container: container,
		cache:     make(map[types.Key][]string),
	}
}

// Load 从数据容器加载所有值
func (s *DocumentValueStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *DocumentValueStore) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	locations, err := s.store.List(ctx, s.container)
	if err != nil {
		return err
	}
	for _, loc := range locations {
		data, err := s.store.Read(ctx, loc)
		if err != nil {
			return err
		}
		var rec action.ValueRecord
		if err := s.codec.Unmarshal(data, &rec); err != nil {
			logger.Warn("跳过无法解析的值文档", "location", loc, "error", err)
			continue
		}
		s.cache[rec.Key] = rec.Values
	}

	s.loaded = true
	logger.Debug("已加载值文档", "container", s.container, "keys", len(s.cache))
	return nil
}

// Append 追加值并发布文档
func (s *DocumentValueStore) Append(ctx context.Context, key types.Key, values []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return 0, err
	}

	merged, added := dht.MergeValues(s.cache[key], values)
	if added == 0 {
		return 0, nil
	}

	rec := &action.ValueRecord{Key: key, Values: merged, UpdatedAt: s.clock.Now()}
	data, err := s.codec.Marshal(rec)
	if err != nil {
		return 0, err
	}
	if err := s.store.Write(ctx, ValueDocument(s.container, key), data); err != nil {
		return 0, err
	}

	s.cache[key] = merged
	return added, nil
}

// Get 返回 key 的值
func (s *DocumentValueStore) Get(ctx context.Context, key types.Key) ([]string, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.cache[key]
	if !ok {
		return nil, nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

// Has 检查 key 是否存在
func (s *DocumentValueStore) Has(ctx context.Context, key types.Key) (bool, error) {
	if err := s.Load(ctx); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.cache[key]
	return ok, nil
}

// Keys 返回所有 key
func (s *DocumentValueStore) Keys(ctx context.Context) ([]types.Key, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]types.Key, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// ReadValues 读取远程节点发布的值，不存在时返回 nil
func ReadValues(ctx context.Context, store docstore.Store, codec action.Codec, container string, key types.Key) ([]string, error) {
	data, err := store.Read(ctx, ValueDocument(container, key))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec action.ValueRecord
	if err := codec.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.Values, nil
}

// 编译时检查接口实现
var _ dht.ValueStore = (*DocumentValueStore)(nil)
