// Package remote 实现通过共享文档存储通信的远程节点
//
// 每个节点在文档存储中拥有如下结构：
//
//	/nodes/<collection>/<id>/node                  节点记录（NodeRecord）
//	/nodes/<collection>/<id>/actions/<kind>/       每种动作一个收件箱
//	/nodes/<collection>/<id>/data/<key>            发布的值（ValueRecord）
//
// 调用方（Peer）把动作写入目标收件箱，随后轮询并监听其状态；响应方
// （Responder）监听自己的收件箱，把动作置为 Active、执行、再写入且只写入
// 一次终态。Provisioner 负责创建上述结构，并在节点重启时从节点记录恢复
// 路由表。
package remote
