package remote

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/pkg/types"
)

// Peer 通过动作协议访问的远程节点
//
// 路由维护、存储和 Ping 以动作形式发送；FindValue 和 HasValue 直接读取
// 节点发布的值文档，不再继续转发。
type Peer struct {
	ref     dht.PeerRef
	client  *Client
	network *dht.Network

	unreachable atomic.Bool
}

// NewPeer 创建远程节点句柄
func NewPeer(client *Client, network *dht.Network, ref dht.PeerRef) *Peer {
	return &Peer{
		ref:     ref,
		client:  client,
		network: network,
	}
}

// ID 实现 dht.Peer
func (p *Peer) ID() types.NodeID {
	return p.ref.ID
}

// Ref 实现 dht.Peer
func (p *Peer) Ref() dht.PeerRef {
	return p.ref
}

// Reachable 最近一次动作没有超时（包括调用方期限到达）即视为可达
func (p *Peer) Reachable() bool {
	return !p.unreachable.Load()
}

// AddNode 发送 AddNode 动作
func (p *Peer) AddNode(ctx context.Context, ref dht.PeerRef) error {
	return p.send(ctx, &action.Action{Kind: action.KindAddNode, Object: &ref})
}

// RemoveNode 发送 RemoveNode 动作
func (p *Peer) RemoveNode(ctx context.Context, ref dht.PeerRef) error {
	return p.send(ctx, &action.Action{Kind: action.KindRemoveNode, Object: &ref})
}

// Store 每个值发送一个 StoreValue 动作，携带剩余跳数和访问集合
func (p *Peer) Store(ctx context.Context, key types.Key, values []string, visited dht.Visited, maxHops int) error {
	for _, v := range values {
		hops := maxHops
		a := &action.Action{
			Kind:    action.KindStoreValue,
			Entry:   &action.Entry{Key: key, Value: v},
			Hops:    &hops,
			Visited: visited.IDs(),
		}
		if err := p.send(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// FindValue 读取节点发布的值
func (p *Peer) FindValue(ctx context.Context, key types.Key, _ dht.Visited, _ int) ([]string, error) {
	values, _, err := p.client.ReadValues(ctx, p.ref.Location, key)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// HasValue 检查节点是否发布了 key
func (p *Peer) HasValue(ctx context.Context, key types.Key) (bool, error) {
	_, ok, err := p.client.ReadValues(ctx, p.ref.Location, key)
	return ok, err
}

// Ping 发送存活确认动作
func (p *Peer) Ping(ctx context.Context) error {
	return p.send(ctx, &action.Action{Kind: action.KindPing})
}

// Probe 实现 dht.Prober
func (p *Peer) Probe(ctx context.Context) error {
	return p.Ping(ctx)
}

func (p *Peer) send(ctx context.Context, a *action.Action) error {
	a.Agent = p.agent()

	err := p.client.Send(ctx, p.ref.Location, a)
	switch {
	case err == nil:
		if p.unreachable.CompareAndSwap(true, false) {
			logger.Info("远程节点恢复可达", "peer", p.ref.ID)
		}
	case errors.Is(err, dht.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		if p.unreachable.CompareAndSwap(false, true) {
			logger.Warn("远程节点不可达", "peer", p.ref.ID, "kind", a.Kind)
		}
	}
	return err
}

// agent 返回本地节点文档位置
func (p *Peer) agent() string {
	if p.network == nil {
		return ""
	}
	if local := p.network.LocalNode(); local != nil {
		return local.Location()
	}
	return ""
}

// 编译时检查接口实现
var (
	_ dht.Peer   = (*Peer)(nil)
	_ dht.Prober = (*Peer)(nil)
)
