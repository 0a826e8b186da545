// Package storage 提供统一的存储服务
//
// Storage 模块基于 BadgerDB 实现，为文档存储提供键值后端。
//
// # 架构
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                      使用方模块                              │
//	│            docstore（文档 / 容器 / 访问规则）                │
//	└─────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│                     storage (本包)                          │
//	│  kv.Store        带前缀隔离的 KV 抽象 + 订阅                 │
//	│  engine/badger   BadgerDB 实现（磁盘 / 内存）                │
//	└─────────────────────────────────────────────────────────────┘
//
// # 使用示例
//
// 使用 Fx 依赖注入：
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    storage.Module(),
//	)
//
// 手动创建：
//
//	eng, err := storage.NewEngine(engine.InMemoryConfig())
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//	docs := storage.NewKVStore(eng, []byte("ds/d/"))
//
// # 线程安全
//
// 所有公开的类型和方法都是线程安全的。
package storage
