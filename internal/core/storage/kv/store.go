// Package kv 提供带前缀隔离的 KV 存储抽象层
//
// Store 在底层存储引擎之上提供命名空间隔离，
// 每个组件可以使用不同的前缀来隔离数据。
//
// # 键空间设计
//
// LDHT 使用以下前缀约定：
//   - ds/d/ - 文档内容
//   - ds/c/ - 容器
//   - ds/a/ - 访问规则
//
// # 使用示例
//
//	eng, _ := badger.New(engine.InMemoryConfig())
//	docs := kv.New(eng, []byte("ds/d/"))
//
//	// 写入数据（自动添加前缀）
//	docs.Put([]byte("/nodes/c1/7/node"), data)  // 实际键: ds/d//nodes/c1/7/node
package kv

import (
	"context"
	"encoding/json"

	"github.com/dep2p/go-ldht/internal/core/storage/engine"
)

// ErrExists 键已存在（Create 使用）
var ErrExists = engine.ErrExists

// Store 带前缀隔离的 KV 存储
//
// Store 封装底层存储引擎，为所有键自动添加前缀，
// 实现数据命名空间隔离。
type Store struct {
	engine engine.Engine
	prefix []byte
}

// New 创建新的 KVStore
//
// 参数:
//   - eng: 底层存储引擎
//   - prefix: 键前缀（所有操作会自动添加此前缀）
func New(eng engine.Engine, prefix []byte) *Store {
	return &Store{
		engine: eng,
		prefix: prefix,
	}
}

// prefixKey 为键添加前缀
func (s *Store) prefixKey(key []byte) []byte {
	if len(s.prefix) == 0 {
		return key
	}
	prefixed := make([]byte, len(s.prefix)+len(key))
	copy(prefixed, s.prefix)
	copy(prefixed[len(s.prefix):], key)
	return prefixed
}

// stripPrefix 从键中移除前缀
func (s *Store) stripPrefix(key []byte) []byte {
	if len(s.prefix) == 0 || len(key) < len(s.prefix) {
		return key
	}
	return key[len(s.prefix):]
}

// ============= 基础操作 =============

// Get 获取指定键的值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 设置键值对
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除指定键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// Create 仅在键不存在时写入，已存在时返回 ErrExists
func (s *Store) Create(key, value []byte) error {
	return s.engine.PutIfAbsent(s.prefixKey(key), value)
}

// ============= 便捷方法 =============

// GetJSON 获取并反序列化 JSON 值
func (s *Store) GetJSON(key []byte, v interface{}) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// PutJSON 序列化并存储 JSON 值
func (s *Store) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// ============= 前缀迭代 =============

// PrefixScan 扫描指定前缀的所有键值对
//
// 回调函数返回 false 时停止扫描。
// 注意：返回的 key 已去除 Store 的前缀，但保留 subPrefix。
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	return s.engine.Scan(s.prefixKey(subPrefix), func(key, value []byte) bool {
		return fn(s.stripPrefix(key), value)
	})
}

// ============= 变更订阅 =============

// Subscribe 订阅子前缀下的变更
//
// 回调收到的键已去除 Store 的前缀。阻塞直到 ctx 取消。
func (s *Store) Subscribe(ctx context.Context, subPrefix []byte, fn func(key, value []byte) error) error {
	return s.engine.Subscribe(ctx, s.prefixKey(subPrefix), func(changes []engine.Change) error {
		for _, c := range changes {
			if err := fn(s.stripPrefix(c.Key), c.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
