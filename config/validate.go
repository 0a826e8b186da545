package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil 配置。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 零值或负值的数值参数 -> 使用默认值
//   - 空的模式/编解码器 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	defNet := DefaultNetworkConfig()
	if c.Network.Mode == "" {
		c.Network.Mode = defNet.Mode
	}
	if c.Network.Codec == "" {
		c.Network.Codec = defNet.Codec
	}
	if c.Network.Collection == "" {
		c.Network.Collection = defNet.Collection
	}

	defDHT := DefaultDHTConfig()
	if c.DHT.BucketSize <= 0 {
		c.DHT.BucketSize = defDHT.BucketSize
	}
	if c.DHT.MaxHops < 0 {
		c.DHT.MaxHops = defDHT.MaxHops
	}
	if c.DHT.ClosestCount <= 0 {
		c.DHT.ClosestCount = defDHT.ClosestCount
	}
	if c.DHT.ReplicationCount <= 0 {
		c.DHT.ReplicationCount = defDHT.ReplicationCount
	}
	if c.DHT.JoinTimeout <= 0 {
		c.DHT.JoinTimeout = defDHT.JoinTimeout
	}
	if c.DHT.JoinConcurrency <= 0 {
		c.DHT.JoinConcurrency = defDHT.JoinConcurrency
	}
	if c.DHT.HopTimeout <= 0 {
		c.DHT.HopTimeout = defDHT.HopTimeout
	}

	defAction := DefaultActionConfig()
	if c.Action.Timeout <= 0 {
		c.Action.Timeout = defAction.Timeout
	}
	if c.Action.PingTimeout <= 0 {
		c.Action.PingTimeout = defAction.PingTimeout
	}
	if c.Action.PollInterval <= 0 {
		c.Action.PollInterval = defAction.PollInterval
	}
	if c.Action.RateLimit <= 0 {
		c.Action.RateLimit = defAction.RateLimit
	}
	if c.Action.RateBurst <= 0 {
		c.Action.RateBurst = defAction.RateBurst
	}
	if c.Action.HandledCacheSize <= 0 {
		c.Action.HandledCacheSize = defAction.HandledCacheSize
	}
	if c.Action.NodeCacheSize <= 0 {
		c.Action.NodeCacheSize = defAction.NodeCacheSize
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsConfig().Namespace
	}

	// 验证修复后的配置
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}

	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
