package dht

import (
	"context"

	"github.com/dep2p/go-ldht/pkg/types"
)

// NodeProvisioner 创建或重建本地节点
type NodeProvisioner interface {
	// Provision 为 network 返回一个可用的本地节点
	Provision(ctx context.Context, network *Network, id types.NodeID) (*LocalNode, error)
}

// PeerFactory 根据引用构造节点句柄
//
// 进程内网络不需要 PeerFactory；文档网络用它构造 remote.Peer。
type PeerFactory interface {
	NewPeer(ctx context.Context, network *Network, ref PeerRef) (Peer, error)
}

// ProvisionerFunc 函数适配器
type ProvisionerFunc func(ctx context.Context, network *Network, id types.NodeID) (*LocalNode, error)

// Provision 实现 NodeProvisioner
func (f ProvisionerFunc) Provision(ctx context.Context, network *Network, id types.NodeID) (*LocalNode, error) {
	return f(ctx, network, id)
}

// PeerFactoryFunc 函数适配器
type PeerFactoryFunc func(ctx context.Context, network *Network, ref PeerRef) (Peer, error)

// NewPeer 实现 PeerFactory
func (f PeerFactoryFunc) NewPeer(ctx context.Context, network *Network, ref PeerRef) (Peer, error) {
	return f(ctx, network, ref)
}

// MemoryProvisioner 创建使用内存值存储的新节点
type MemoryProvisioner struct{}

// Provision 实现 NodeProvisioner
func (MemoryProvisioner) Provision(_ context.Context, network *Network, id types.NodeID) (*LocalNode, error) {
	return NewLocalNode(id, network), nil
}
