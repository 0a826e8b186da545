// Package types 定义 LDHT 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 ldht 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - ids.go - NodeID, Key, XOR 距离, 键哈希
//
// NodeID 与 Key 共享同一个 64 位标识空间，
// 两者之间的 XOR 距离决定了值存放在哪个节点。
package types
