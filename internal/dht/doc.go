// Package dht 实现基于 XOR 距离的 Kademlia 风格 DHT
//
// # 核心组件
//
//   - RoutingTable: 按 floor(log2(distance)) 分桶，每桶最多 K 个节点，满时先进先出
//   - LocalNode: 持有路由表和本地值存储，实现存储转发、值查找、故障检测
//   - Network: 节点注册表、按距离选节点、新节点加入时的路由表收敛
//
// # 节点抽象
//
// Peer 接口有两种实现：进程内直接调用的 *LocalNode，以及通过共享文档
// 存储中的动作记录通信的 remote.Peer。Network 通过 PeerFactory 在注册时
// 选择实现，通过 NodeProvisioner 创建或重建本地节点。
//
// # 存储与查找
//
// Store 沿路由表向更接近 key 的节点转发，最多 MaxHops 跳，访问集合防止
// 同一次操作重复经过某个节点。FindValue 本地命中时零跳返回，本节点比
// 应答节点更接近 key 时缓存结果。
//
// # 故障检测
//
// Ping 检查路由表中的每个节点。不可达的节点从路由表移除（可配置），
// 本地持有的、原本应由它负责的值被复制到当前最近的可达节点，本地副本保留。
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module,
//	    dht.Module,
//	)
package dht
