package dht

import (
	"fmt"
	"time"

	"github.com/dep2p/go-ldht/config"
)

// Config DHT 配置
type Config struct {
	// BucketSize K-桶大小
	BucketSize int

	// MaxHops 存储转发跳数上限
	MaxHops int

	// ClosestCount FindNodesByKey 默认返回的节点数
	ClosestCount int

	// ReplicationCount 故障检测时检查的最近节点数
	ReplicationCount int

	// JoinTimeout 路由表收敛时间上限
	JoinTimeout time.Duration

	// JoinConcurrency 收敛并发数
	JoinConcurrency int

	// HopTimeout 单跳转发超时，0 表示不限制
	HopTimeout time.Duration

	// EvictFailedPeers Ping 发现故障节点后从路由表移除
	EvictFailedPeers bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BucketSize:       20,
		MaxHops:          5,
		ClosestCount:     5,
		ReplicationCount: 5,
		JoinTimeout:      5 * time.Second,
		JoinConcurrency:  5,
		HopTimeout:       30 * time.Second,
		EvictFailedPeers: true,
	}
}

// ConfigFromUnified 从统一配置转换
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	d := cfg.DHT
	return &Config{
		BucketSize:       d.BucketSize,
		MaxHops:          d.MaxHops,
		ClosestCount:     d.ClosestCount,
		ReplicationCount: d.ReplicationCount,
		JoinTimeout:      d.JoinTimeout.Duration(),
		JoinConcurrency:  d.JoinConcurrency,
		HopTimeout:       d.HopTimeout.Duration(),
		EvictFailedPeers: d.EvictFailedPeers,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch {
	case c.BucketSize <= 0:
		return fmt.Errorf("%w: bucket size must be positive", ErrInvalidConfig)
	case c.MaxHops < 0:
		return fmt.Errorf("%w: max hops cannot be negative", ErrInvalidConfig)
	case c.ClosestCount <= 0:
		return fmt.Errorf("%w: closest count must be positive", ErrInvalidConfig)
	case c.ReplicationCount <= 0:
		return fmt.Errorf("%w: replication count must be positive", ErrInvalidConfig)
	case c.JoinTimeout <= 0:
		return fmt.Errorf("%w: join timeout must be positive", ErrInvalidConfig)
	case c.JoinConcurrency <= 0:
		return fmt.Errorf("%w: join concurrency must be positive", ErrInvalidConfig)
	case c.HopTimeout < 0:
		return fmt.Errorf("%w: hop timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ConfigOption 配置选项函数
type ConfigOption func(*Config)

// WithBucketSize 设置K-桶大小
func WithBucketSize(size int) ConfigOption {
	return func(c *Config) {
		c.BucketSize = size
	}
}

// WithMaxHops 设置转发跳数上限
func WithMaxHops(hops int) ConfigOption {
	return func(c *Config) {
		c.MaxHops = hops
	}
}

// WithJoinTimeout 设置收敛超时
func WithJoinTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.JoinTimeout = timeout
	}
}

// WithHopTimeout 设置单跳超时
func WithHopTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.HopTimeout = timeout
	}
}

// WithEvictFailedPeers 设置是否移除故障节点
func WithEvictFailedPeers(evict bool) ConfigOption {
	return func(c *Config) {
		c.EvictFailedPeers = evict
	}
}
