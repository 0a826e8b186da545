package ldht

import (
	"errors"

	"github.com/dep2p/go-ldht/internal/dht"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrDocumentModeRequired 操作只在 document 模式下可用
	ErrDocumentModeRequired = errors.New("operation requires document mode")

	// ────────────────────────────────────────────────────────────────────────
	// DHT 错误（与内部实现共用同一组哨兵值）
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotFound 节点或文档不存在
	ErrNotFound = dht.ErrNotFound

	// ErrTimeout 远程动作超时
	ErrTimeout = dht.ErrTimeout

	// ErrActionFailed 远程动作执行失败
	ErrActionFailed = dht.ErrActionFailed

	// ErrActionUnsupported 远程节点不支持该动作
	ErrActionUnsupported = dht.ErrActionUnsupported
)
