// Package engine 定义文档存储使用的 KV 引擎接口
//
// Engine 覆盖点读写、前缀扫描、原子创建与前缀变更订阅。
// 唯一的实现是 badger 子包，支持持久化与纯内存两种模式。
package engine
