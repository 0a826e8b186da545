// Package docstore 提供共享文档存储
//
// 文档以路径定位，容器以 "/" 结尾，文档位于容器之下：
//
//	/nodes/                          容器
//	/nodes/default/7/node            文档
//	/nodes/default/7/actions/Ping/   容器（收件箱）
//
// 文档存储是节点之间唯一的通信媒介：节点把动作追加到对方的收件箱，
// 对方改写动作状态，发起方通过轮询和变更通知得到结果。
//
// # 访问规则
//
// 每个容器可以设置 AccessRule。追加（Append）是对外开放的写操作，
// 需要容器的有效规则（自身或最近的祖先上设置的规则）允许追加；
// 未设置任何规则时默认允许。Write 是所有者操作，不受规则限制。
//
// # 实现
//
//   - BadgerStore: 基于 storage/kv，使用 BadgerDB 订阅实现 Watch
package docstore
