package remote

import (
	"context"
	"fmt"

	"github.com/dep2p/go-ldht/internal/dht"
)

// Factory 构造远程节点句柄
type Factory struct {
	client *Client
}

// NewFactory 创建 Factory
func NewFactory(client *Client) *Factory {
	return &Factory{client: client}
}

// NewPeer 实现 dht.PeerFactory
//
// 读取引用位置的节点记录，确认 ID 一致后返回句柄。
func (f *Factory) NewPeer(ctx context.Context, network *dht.Network, ref dht.PeerRef) (dht.Peer, error) {
	rec, err := f.client.ReadNode(ctx, ref.Location, true)
	if err != nil {
		return nil, err
	}
	if rec.ID != ref.ID {
		return nil, dht.NewDHTError("new_peer", dht.ErrInvalidArgument,
			fmt.Sprintf("%s holds node %s, expected %s", ref.Location, rec.ID, ref.ID))
	}
	return NewPeer(f.client, network, ref), nil
}

// Join 通过节点文档位置加入网络
func (f *Factory) Join(ctx context.Context, network *dht.Network, location string) error {
	rec, err := f.client.ReadNode(ctx, location, true)
	if err != nil {
		return err
	}
	logger.Info("通过节点文档加入网络", "location", location, "peer", rec.ID)
	return network.Join(ctx, rec.Ref())
}

// 编译时检查接口实现
var _ dht.PeerFactory = (*Factory)(nil)
