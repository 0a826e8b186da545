package config

import (
	"errors"
	"fmt"
)

// 运行模式
const (
	// ModeMemory 进程内网络：节点之间直接调用
	ModeMemory = "memory"

	// ModeDocument 文档网络：节点之间通过共享文档存储中的动作通信
	ModeDocument = "document"
)

// 编解码器名称
const (
	CodecJSON  = "json"
	CodecProto = "proto"
)

// NetworkConfig 网络配置
type NetworkConfig struct {
	// Collection 集合标识，同一集合内的节点组成一个 DHT
	Collection string `json:"collection"`

	// NodeID 本地节点 ID
	// 0 表示由调用方在 Initialize 时指定
	NodeID uint64 `json:"node_id,omitempty"`

	// Mode 运行模式：memory / document
	Mode string `json:"mode"`

	// Codec 文档编解码器：json / proto
	Codec string `json:"codec"`

	// Bootstrap 启动后加入的节点文档位置
	Bootstrap []string `json:"bootstrap,omitempty"`
}

// DefaultNetworkConfig 返回默认网络配置
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		Collection: "default",
		Mode:       ModeMemory,
		Codec:      CodecJSON,
	}
}

// Validate 验证网络配置
func (c *NetworkConfig) Validate() error {
	if c.Collection == "" {
		return errors.New("network: collection cannot be empty")
	}
	switch c.Mode {
	case ModeMemory, ModeDocument:
	default:
		return fmt.Errorf("network: unknown mode %q", c.Mode)
	}
	switch c.Codec {
	case CodecJSON, CodecProto:
	default:
		return fmt.Errorf("network: unknown codec %q", c.Codec)
	}
	return nil
}
