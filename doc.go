// Package ldht 提供基于异或距离的分布式哈希表
//
// LDHT 把节点和键映射到同一个 64 位标识空间，按 Kademlia 风格的 k-桶
// 维护路由表，值沿着严格递减的距离逐跳转发，最终存放在离键最近的节点上。
//
// # 运行模式
//
//   - memory: 同一进程内的节点直接调用，多个 Node 可以共享一个节点注册表
//   - document: 节点之间通过共享文档存储中的动作文档通信，节点状态持久化在 BadgerDB 中
//
// # 快速开始
//
//	import "github.com/dep2p/go-ldht"
//
//	node, err := ldht.Start(ctx,
//	    ldht.WithNodeID(10),
//	    ldht.WithMode(ldht.ModeDocument),
//	    ldht.WithDataDir("./data"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	_ = node.Join(ctx, "/nodes/default/20/node")
//	_ = node.StoreValue(ctx, ldht.KeyFromString("greeting"), "hello")
//	values, _ := node.FindValue(ctx, ldht.KeyFromString("greeting"))
//
// # 文件组织
//
//   - ldht.go: 版本信息与类型别名
//   - options.go / presets.go: 用户选项与预设
//   - fx.go: 内部模块装配
//   - node.go / node_lifecycle.go / node_dht.go: 节点门面
package ldht
