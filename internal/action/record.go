package action

import (
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/pkg/types"
)

// 预定义错误
var (
	// ErrInvalidTransition 非法状态转换
	ErrInvalidTransition = errors.New("action: invalid status transition")

	// ErrInvalidAction 动作内容无效
	ErrInvalidAction = errors.New("action: invalid action")
)

// Kind 动作类型
type Kind string

const (
	KindAddNode    Kind = "AddNode"
	KindRemoveNode Kind = "RemoveNode"
	KindStoreValue Kind = "StoreValue"
	KindPing       Kind = "Ping"
)

// AllKinds 所有动作类型，节点为每种类型创建一个收件箱
var AllKinds = []Kind{KindAddNode, KindRemoveNode, KindStoreValue, KindPing}

// Valid 检查动作类型是否已知
func (k Kind) Valid() bool {
	switch k {
	case KindAddNode, KindRemoveNode, KindStoreValue, KindPing:
		return true
	}
	return false
}

// Status 动作状态
type Status string

const (
	StatusPotential Status = "Potential"
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Terminal 是否为终态
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition 检查状态转换是否合法
//
//	Potential → Active | Failed
//	Active    → Completed | Failed
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPotential:
		return to == StatusActive || to == StatusFailed
	case StatusActive:
		return to.Terminal()
	}
	return false
}

// Entry StoreValue 的键值
type Entry struct {
	Key   types.Key `json:"key"`
	Value string    `json:"value"`
}

// Action 一次远程调用
type Action struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`

	// Agent 发送方节点文档位置
	Agent string `json:"agent"`

	// Target 目标收件箱位置
	Target string `json:"target"`

	Timeout   time.Duration `json:"timeout"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Object AddNode/RemoveNode 引用的节点
	Object *dht.PeerRef `json:"object,omitempty"`

	// Entry StoreValue 的键值
	Entry *Entry `json:"entry,omitempty"`

	// Hops 转发时剩余的跳数；为 nil 时由目标网络重新路由
	Hops *int `json:"hops,omitempty"`

	// Visited 转发时已经访问过的节点
	Visited []types.NodeID `json:"visited,omitempty"`

	// Error 失败原因
	Error string `json:"error,omitempty"`
}

// Validate 检查动作的类型和载荷
func (a *Action) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAction)
	}
	switch a.Kind {
	case KindAddNode, KindRemoveNode:
		if a.Object == nil {
			return fmt.Errorf("%w: %s requires an object", ErrInvalidAction, a.Kind)
		}
	case KindStoreValue:
		if a.Entry == nil {
			return fmt.Errorf("%w: %s requires an entry", ErrInvalidAction, a.Kind)
		}
	case KindPing:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
	return nil
}

// Transition 转换状态
func (a *Action) Transition(to Status, reason string, now time.Time) error {
	if !a.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = to
	a.UpdatedAt = now
	if to == StatusFailed {
		a.Error = reason
	}
	return nil
}

// Expired 检查动作是否已超过等待期限
func (a *Action) Expired(now time.Time) bool {
	if a.Timeout <= 0 {
		return false
	}
	return now.After(a.CreatedAt.Add(a.Timeout))
}

// VisitedSet 返回转发访问集合
func (a *Action) VisitedSet() dht.Visited {
	return dht.NewVisited(a.Visited...)
}

// NodeRecord 持久化节点
type NodeRecord struct {
	ID         types.NodeID    `json:"id"`
	Collection string          `json:"collection"`
	Location   string          `json:"location"`
	Actions    map[Kind]string `json:"actions"`
	Data       string          `json:"data"`
	Peers      []dht.PeerRef   `json:"peers,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Inbox 返回动作类型对应的收件箱
func (r *NodeRecord) Inbox(kind Kind) (string, bool) {
	if r == nil {
		return "", false
	}
	inbox, ok := r.Actions[kind]
	return inbox, ok && inbox != ""
}

// Ref 返回节点引用
func (r *NodeRecord) Ref() dht.PeerRef {
	return dht.PeerRef{ID: r.ID, Location: r.Location}
}

// ValueRecord 节点发布的单个 key 的值
type ValueRecord struct {
	Key       types.Key `json:"key"`
	Values    []string  `json:"values"`
	UpdatedAt time.Time `json:"updated_at"`
}
