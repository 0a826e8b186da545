package dht

import (
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/pkg/types"
)

// ============================================================================
//                              事件类型
// ============================================================================

// EvtPeerAdded 节点加入路由表
type EvtPeerAdded struct {
	NodeID types.NodeID
	Peer   types.NodeID
}

// EvtPeerRemoved 节点离开路由表
type EvtPeerRemoved struct {
	NodeID types.NodeID
	Peer   types.NodeID
	// Failed 为 true 表示因故障检测被移除
	Failed bool
}

// EvtPeerFailed Ping 检测到故障节点
type EvtPeerFailed struct {
	NodeID types.NodeID
	Peer   types.NodeID
}

// EvtValueStored 值写入本地
type EvtValueStored struct {
	NodeID types.NodeID
	Key    types.Key
	Added  int
	Hops   int
}

// EvtValueReplicated 故障节点负责的值被重新复制
type EvtValueReplicated struct {
	NodeID types.NodeID
	Key    types.Key
	To     types.NodeID
	Failed types.NodeID
}

// ============================================================================
//                              发射器
// ============================================================================

// emitters 网络事件发射器，nil 时所有方法为空操作
type emitters struct {
	peerAdded       *eventbus.Emitter
	peerRemoved     *eventbus.Emitter
	peerFailed      *eventbus.Emitter
	valueStored     *eventbus.Emitter
	valueReplicated *eventbus.Emitter
}

func newEmitters(bus *eventbus.Bus) (*emitters, error) {
	if bus == nil {
		return nil, nil
	}

	e := &emitters{}
	for _, item := range []struct {
		dst **eventbus.Emitter
		typ interface{}
	}{
		{&e.peerAdded, new(EvtPeerAdded)},
		{&e.peerRemoved, new(EvtPeerRemoved)},
		{&e.peerFailed, new(EvtPeerFailed)},
		{&e.valueStored, new(EvtValueStored)},
		{&e.valueReplicated, new(EvtValueReplicated)},
	} {
		em, err := bus.Emitter(item.typ)
		if err != nil {
			e.close()
			return nil, err
		}
		*item.dst = em
	}
	return e, nil
}

func (e *emitters) emit(evt interface{}) {
	if e == nil {
		return
	}

	var em *eventbus.Emitter
	switch evt.(type) {
	case EvtPeerAdded:
		em = e.peerAdded
	case EvtPeerRemoved:
		em = e.peerRemoved
	case EvtPeerFailed:
		em = e.peerFailed
	case EvtValueStored:
		em = e.valueStored
	case EvtValueReplicated:
		em = e.valueReplicated
	}
	if em == nil {
		return
	}
	if err := em.Emit(evt); err != nil {
		logger.Debug("发射事件失败", "event", evt, "error", err)
	}
}

func (e *emitters) close() {
	if e == nil {
		return
	}
	for _, em := range []*eventbus.Emitter{e.peerAdded, e.peerRemoved, e.peerFailed, e.valueStored, e.valueReplicated} {
		if em != nil {
			_ = em.Close()
		}
	}
}
