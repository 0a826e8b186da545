package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/pkg/types"
)

// Provisioner 基于文档存储创建或重建本地节点
type Provisioner struct {
	store docstore.Store
	codec action.Codec
	clock clock.Clock

	// saveMu 串行化节点记录的快照与写入，后写入的记录总是包含更新的路由表
	saveMu sync.Mutex
}

// NewProvisioner 创建 Provisioner
func NewProvisioner(store docstore.Store, codec action.Codec, clk clock.Clock) *Provisioner {
	if clk == nil {
		clk = clock.New()
	}
	return &Provisioner{store: store, codec: codec, clock: clk}
}

// Provision 实现 dht.NodeProvisioner
//
// 创建节点所需的容器和访问规则；节点记录已存在时按记录恢复路由表，
// 否则写入新的节点记录。返回的节点在每次路由变化后重新保存记录。
func (p *Provisioner) Provision(ctx context.Context, network *dht.Network, id types.NodeID) (*dht.LocalNode, error) {
	layout := NewLayout(network.Collection(), id)

	if err := p.prepare(ctx, layout); err != nil {
		return nil, fmt.Errorf("prepare containers: %w", err)
	}

	existing, err := p.readRecord(ctx, layout)
	if err != nil {
		return nil, err
	}

	values := NewDocumentValueStore(p.store, p.codec, layout.DataContainer(), p.clock)
	if err := values.Load(ctx); err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}

	node := dht.NewLocalNode(id, network,
		dht.WithLocation(layout.NodeDocument()),
		dht.WithValueStore(values),
		dht.WithRoutingObserver(p.save),
	)

	if existing == nil {
		if err := p.save(ctx, node); err != nil {
			return nil, err
		}
		logger.Info("已创建节点记录", "nodeID", id, "location", layout.NodeDocument())
		return node, nil
	}

	restored := p.restore(ctx, network, node, existing.Peers)
	logger.Info("已从节点记录重建节点", "nodeID", id, "peers", restored, "recorded", len(existing.Peers))
	return node, nil
}

// prepare 创建容器并设置访问规则
//
// 集合只读，收件箱可读可追加。
func (p *Provisioner) prepare(ctx context.Context, layout Layout) error {
	for _, container := range []string{layout.NodeContainer(), layout.ActionsContainer(), layout.DataContainer()} {
		if err := p.store.CreateContainer(ctx, container); err != nil {
			return err
		}
	}
	if err := p.store.SetAccess(ctx, layout.CollectionContainer(), docstore.ReadOnly); err != nil {
		return err
	}
	for _, inbox := range layout.Inboxes() {
		if err := p.store.CreateContainer(ctx, inbox); err != nil {
			return err
		}
		if err := p.store.SetAccess(ctx, inbox, docstore.ReadAppend); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) readRecord(ctx context.Context, layout Layout) (*action.NodeRecord, error) {
	data, err := p.store.Read(ctx, layout.NodeDocument())
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec action.NodeRecord
	if err := p.codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode node record: %w", err)
	}
	if rec.ID != layout.ID {
		return nil, fmt.Errorf("node record at %s belongs to %s", layout.NodeDocument(), rec.ID)
	}
	return &rec, nil
}

// restore 解析记录中的节点并恢复路由表，无法解析的节点被跳过
func (p *Provisioner) restore(ctx context.Context, network *dht.Network, node *dht.LocalNode, peers []dht.PeerRef) int {
	ids := make([]types.NodeID, 0, len(peers))
	for _, ref := range peers {
		if _, err := network.Resolve(ctx, ref); err != nil {
			logger.Warn("恢复路由表时无法解析节点", "nodeID", node.ID(), "peer", ref.ID, "error", err)
			continue
		}
		ids = append(ids, ref.ID)
	}
	return node.RoutingTable().Restore(ids)
}

// save 保存节点记录（包括当前路由表）
func (p *Provisioner) save(ctx context.Context, node *dht.LocalNode) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	network := node.Network()
	layout := NewLayout(network.Collection(), node.ID())

	rec := &action.NodeRecord{
		ID:         node.ID(),
		Collection: network.Collection(),
		Location:   layout.NodeDocument(),
		Actions:    layout.Inboxes(),
		Data:       layout.DataContainer(),
		UpdatedAt:  p.clock.Now(),
	}
	for _, id := range node.RoutingTable().Peers() {
		ref := dht.PeerRef{ID: id}
		if peer, err := network.FindNodeByID(ctx, id); err == nil {
			ref = peer.Ref()
		}
		rec.Peers = append(rec.Peers, ref)
	}

	data, err := p.codec.Marshal(rec)
	if err != nil {
		return err
	}
	return p.store.Write(ctx, layout.NodeDocument(), data)
}

// 编译时检查接口实现
var _ dht.NodeProvisioner = (*Provisioner)(nil)
