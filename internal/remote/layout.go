package remote

import (
	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/pkg/types"
)

// RootContainer 所有集合的根容器
const RootContainer = "/nodes/"

// Layout 节点在文档存储中的位置
type Layout struct {
	Collection string
	ID         types.NodeID
}

// NewLayout 创建位置布局
func NewLayout(collection string, id types.NodeID) Layout {
	return Layout{Collection: collection, ID: id}
}

// CollectionContainer 集合容器
func (l Layout) CollectionContainer() string {
	return docstore.Join(RootContainer, l.Collection+"/")
}

// NodeContainer 节点容器
func (l Layout) NodeContainer() string {
	return docstore.Join(l.CollectionContainer(), l.ID.String()+"/")
}

// NodeDocument 节点记录文档
func (l Layout) NodeDocument() string {
	return docstore.Join(l.NodeContainer(), "node")
}

// ActionsContainer 动作容器
func (l Layout) ActionsContainer() string {
	return docstore.Join(l.NodeContainer(), "actions/")
}

// Inbox 动作收件箱
func (l Layout) Inbox(kind action.Kind) string {
	return docstore.Join(l.ActionsContainer(), string(kind)+"/")
}

// Inboxes 所有动作收件箱
func (l Layout) Inboxes() map[action.Kind]string {
	out := make(map[action.Kind]string, len(action.AllKinds))
	for _, kind := range action.AllKinds {
		out[kind] = l.Inbox(kind)
	}
	return out
}

// DataContainer 数据容器
func (l Layout) DataContainer() string {
	return docstore.Join(l.NodeContainer(), "data/")
}

// ValueDocument 返回数据容器下 key 对应的文档位置
func ValueDocument(dataContainer string, key types.Key) string {
	return docstore.Join(dataContainer, key.String())
}
