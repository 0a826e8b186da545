// Package action 定义动作协议的持久化记录及其编解码
//
// 动作（Action）是写入目标节点收件箱的文档：调用方以 Potential 状态创建，
// 响应方先写 Active，再写且只写一次终态（Completed 或 Failed）。
//
// 记录类型：
//   - Action: 一次远程调用
//   - Entry: StoreValue 的键值
//   - NodeRecord: 持久化的节点（收件箱、数据容器、路由快照）
//   - ValueRecord: 节点发布的单个 key 的值
//
// Codec 负责记录与文档字节之间的转换，提供 JSON 和 protobuf wire 两种格式。
package action
