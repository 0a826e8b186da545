package ldht

import (
	"context"
)

// ════════════════════════════════════════════════════════════════════════════
//                              存储与查找
// ════════════════════════════════════════════════════════════════════════════

// StoreValue 把值存储到网络中离 key 最近的节点
func (n *Node) StoreValue(ctx context.Context, key Key, value string) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	return n.network.StoreValue(ctx, key, value)
}

// FindValue 查找 key 对应的值，找不到时返回空切片
func (n *Node) FindValue(ctx context.Context, key Key) ([]string, error) {
	if err := n.checkRunning(); err != nil {
		return nil, err
	}
	return n.network.FindValue(ctx, key)
}

// HasLocalValue 检查本地节点是否存储了 key
func (n *Node) HasLocalValue(ctx context.Context, key Key) (bool, error) {
	if err := n.checkRunning(); err != nil {
		return false, err
	}
	return n.local().HasValue(ctx, key)
}

// ════════════════════════════════════════════════════════════════════════════
//                              成员管理
// ════════════════════════════════════════════════════════════════════════════

// AddNode 加入一个节点并与已知节点互相更新路由表
//
// memory 模式下 ref 必须已在共享注册表中；document 模式下需要 ref.Location。
func (n *Node) AddNode(ctx context.Context, ref PeerRef) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	return n.network.Join(ctx, ref)
}

// Join 通过节点文档位置加入网络，仅 document 模式可用
func (n *Node) Join(ctx context.Context, location string) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	if n.factory == nil {
		return ErrDocumentModeRequired
	}
	return n.factory.Join(ctx, n.network, location)
}

// RemoveNode 注销节点并通知其余已知节点
func (n *Node) RemoveNode(ctx context.Context, id NodeID) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	peer, err := n.network.FindNodeByID(ctx, id)
	if err != nil {
		return err
	}
	return n.network.RemoveNode(ctx, peer)
}

// Ping 对所有已注册节点执行故障检测
//
// 故障节点负责的值会重新复制到下一个最近的可达节点。
func (n *Node) Ping(ctx context.Context) error {
	if err := n.checkRunning(); err != nil {
		return err
	}
	return n.network.Ping(ctx)
}
