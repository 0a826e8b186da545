// Package badger 实现 BadgerDB 存储引擎
//
// # 特性
//
//   - LSM-tree 存储引擎
//   - PutIfAbsent 在单个读写事务内完成检查与写入
//   - Scan 基于只读事务快照的前缀遍历
//   - 前缀订阅：基于 DB.Subscribe 推送键变更
//   - 自动 GC
//   - 纯内存模式（InMemory）
//
// # 使用示例
//
//	cfg := engine.DefaultConfig("/path/to/data")
//	eng, err := badger.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	err = eng.Put([]byte("key"), []byte("value"))
//	value, err := eng.Get([]byte("key"))
package badger
