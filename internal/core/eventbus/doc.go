// Package eventbus 实现进程内事件总线
//
// 以事件的类型作为主题，DHT 网络和动作响应方通过它发布路由变化、
// 值存储、故障与重新复制、动作处理结果等事件。
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(dht.EvtPeerFailed), eventbus.BufSize(64))
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(dht.EvtPeerFailed))
//	defer em.Close()
//	_ = em.Emit(dht.EvtPeerFailed{NodeID: 1, Peer: 7})
//
// 订阅者缓冲区满时事件被丢弃，发射方永不阻塞。
package eventbus
