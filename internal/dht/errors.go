package dht

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrNotFound 节点或键未找到
	ErrNotFound = errors.New("dht: not found")

	// ErrActionUnsupported 目标节点不支持该动作
	ErrActionUnsupported = errors.New("dht: action not supported")

	// ErrActionFailed 远程动作执行失败
	ErrActionFailed = errors.New("dht: action failed")

	// ErrTimeout 等待超时
	ErrTimeout = errors.New("dht: timeout")

	// ErrInvalidArgument 无效参数
	ErrInvalidArgument = errors.New("dht: invalid argument")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("dht: node is closed")

	// ErrNotInitialized 网络尚未初始化
	ErrNotInitialized = errors.New("dht: network not initialized")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("dht: invalid config")
)

// DHTError DHT 操作错误
type DHTError struct {
	Op      string
	Err     error
	Message string
}

func (e *DHTError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("dht %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("dht %s: %v", e.Op, e.Err)
}

func (e *DHTError) Unwrap() error {
	return e.Err
}

// NewDHTError 创建 DHT 错误
func NewDHTError(op string, err error, message string) *DHTError {
	return &DHTError{
		Op:      op,
		Err:     err,
		Message: message,
	}
}
