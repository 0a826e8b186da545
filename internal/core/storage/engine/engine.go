package engine

import "context"

// Engine 存储引擎接口
//
// 文档存储只需要点读写、前缀扫描、原子创建和前缀变更订阅，
// 引擎按这四类操作暴露能力。所有实现必须保证线程安全。
type Engine interface {
	// Get 获取指定键的值，键不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 设置键值对
	Put(key, value []byte) error

	// Delete 删除指定键，键不存在时不返回错误
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// PutIfAbsent 仅在键不存在时写入
	//
	// 键已存在或并发创建冲突时返回 ErrExists。
	PutIfAbsent(key, value []byte) error

	// Scan 按键序遍历前缀下的键值对
	//
	// 遍历基于调用时的快照，fn 返回 false 时停止。传给 fn 的切片
	// 是副本，可以保留。
	Scan(prefix []byte, fn func(key, value []byte) bool) error

	// Subscribe 订阅指定前缀下的键变更
	//
	// 阻塞直到 ctx 取消或回调返回错误。每次有匹配的键被写入或删除时，
	// fn 以变更批次被调用（删除的键 Value 为空）。ctx 取消时返回 ctx.Err()。
	Subscribe(ctx context.Context, prefix []byte, fn func(changes []Change) error) error

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Sync 同步数据到磁盘
	Sync() error

	// Close 关闭存储引擎
	Close() error
}

// Change 一次键变更
type Change struct {
	// Key 完整键
	Key []byte

	// Value 新值（删除时为空）
	Value []byte
}
