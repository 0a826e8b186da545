package ldht

import (
	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/remote"
	"github.com/dep2p/go-ldht/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              版本信息
// ════════════════════════════════════════════════════════════════════════════

// Version 当前版本
const Version = "v0.1.0"

// BuildInfo 构建信息（通过 ldflags 注入）
var (
	// GitCommit Git 提交哈希
	GitCommit string

	// BuildDate 构建日期
	BuildDate string
)

// VersionInfo 返回完整版本信息字符串
func VersionInfo() string {
	info := "LDHT " + Version
	if GitCommit != "" {
		info += " (" + GitCommit[:min(8, len(GitCommit))] + ")"
	}
	if BuildDate != "" {
		info += " built " + BuildDate
	}
	return info
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

// NodeID 节点标识
type NodeID = types.NodeID

// Key 值的键，与 NodeID 处于同一标识空间
type Key = types.Key

// PeerRef 节点引用（ID 与节点文档位置）
type PeerRef = dht.PeerRef

// Registry 节点注册表，memory 模式下多个 Node 可共享同一个
type Registry = dht.Registry

// NewRegistry 创建节点注册表
func NewRegistry() *Registry {
	return dht.NewRegistry()
}

// KeyFromString 把字符串哈希为 Key
func KeyFromString(s string) Key {
	return types.KeyFromString(s)
}

// 运行模式
const (
	ModeMemory   = config.ModeMemory
	ModeDocument = config.ModeDocument
)

// ════════════════════════════════════════════════════════════════════════════
//                              事件
// ════════════════════════════════════════════════════════════════════════════

type (
	// EvtPeerAdded 节点进入路由表
	EvtPeerAdded = dht.EvtPeerAdded

	// EvtPeerRemoved 节点离开路由表，Failed 表示因故障被驱逐
	EvtPeerRemoved = dht.EvtPeerRemoved

	// EvtPeerFailed Ping 发现节点不可达
	EvtPeerFailed = dht.EvtPeerFailed

	// EvtValueStored 值写入本地存储
	EvtValueStored = dht.EvtValueStored

	// EvtValueReplicated 故障节点负责的值已复制到其他节点
	EvtValueReplicated = dht.EvtValueReplicated

	// EvtActionHandled document 模式下收件箱中的动作已处理
	EvtActionHandled = remote.EvtActionHandled
)

// Subscription 事件订阅
type Subscription = eventbus.Subscription

// SubscriptionOpt 订阅选项
type SubscriptionOpt = eventbus.SubscriptionOpt

// BufSize 设置订阅缓冲区大小
func BufSize(n int) SubscriptionOpt {
	return eventbus.BufSize(n)
}
