package config

import (
	"errors"
	"time"
)

// ActionConfig 远程动作协议配置
//
// 调用方写入动作后，以 PollInterval 轮询状态，同时监听文档变更通知；
// 超过 Timeout（Ping 为 PingTimeout）仍未完成则视为超时。
type ActionConfig struct {
	// Timeout 动作等待超时
	Timeout Duration `json:"timeout,omitempty"`

	// PingTimeout Ping 动作等待超时
	PingTimeout Duration `json:"ping_timeout,omitempty"`

	// PollInterval 状态轮询间隔
	PollInterval Duration `json:"poll_interval,omitempty"`

	// RetryMaxElapsed 写入重试的最长总时间
	RetryMaxElapsed Duration `json:"retry_max_elapsed,omitempty"`

	// RateLimit 每个发送方每秒允许处理的动作数
	RateLimit float64 `json:"rate_limit,omitempty"`

	// RateBurst 速率限制的突发容量
	RateBurst int `json:"rate_burst,omitempty"`

	// HandledCacheSize 已处理动作缓存大小
	HandledCacheSize int `json:"handled_cache_size,omitempty"`

	// NodeCacheSize 远程节点记录缓存大小
	NodeCacheSize int `json:"node_cache_size,omitempty"`
}

// DefaultActionConfig 返回默认动作协议配置
func DefaultActionConfig() ActionConfig {
	return ActionConfig{
		Timeout:          Duration(30 * time.Second),
		PingTimeout:      Duration(60 * time.Second),
		PollInterval:     Duration(time.Second),
		RetryMaxElapsed:  Duration(5 * time.Second),
		RateLimit:        50,
		RateBurst:        100,
		HandledCacheSize: 1024,
		NodeCacheSize:    256,
	}
}

// Validate 验证动作协议配置
func (c *ActionConfig) Validate() error {
	if c.Timeout <= 0 || c.PingTimeout <= 0 {
		return errors.New("action: timeouts must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("action: poll_interval must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("action: rate limit must be positive")
	}
	if c.HandledCacheSize <= 0 || c.NodeCacheSize <= 0 {
		return errors.New("action: cache sizes must be positive")
	}
	return nil
}
