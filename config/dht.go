package config

import (
	"errors"
	"time"
)

// DHTConfig DHT 配置
type DHTConfig struct {
	// BucketSize K-桶大小
	BucketSize int `json:"bucket_size,omitempty"`

	// MaxHops 存储/查找的转发跳数上限
	MaxHops int `json:"max_hops,omitempty"`

	// ClosestCount FindNodesByKey 默认返回的节点数
	ClosestCount int `json:"closest_count,omitempty"`

	// ReplicationCount 故障检测时用于判断是否需要重新复制的最近节点数
	ReplicationCount int `json:"replication_count,omitempty"`

	// JoinTimeout 新节点加入时路由表收敛的时间上限
	JoinTimeout Duration `json:"join_timeout,omitempty"`

	// JoinConcurrency 收敛时的并发数
	JoinConcurrency int `json:"join_concurrency,omitempty"`

	// HopTimeout 单跳转发超时
	HopTimeout Duration `json:"hop_timeout,omitempty"`

	// EvictFailedPeers Ping 检测到故障节点时是否从路由表移除
	EvictFailedPeers bool `json:"evict_failed_peers"`
}

// DefaultDHTConfig 返回默认 DHT 配置
func DefaultDHTConfig() DHTConfig {
	return DHTConfig{
		BucketSize:       20,
		MaxHops:          5,
		ClosestCount:     5,
		ReplicationCount: 5,
		JoinTimeout:      Duration(5 * time.Second),
		JoinConcurrency:  5,
		HopTimeout:       Duration(30 * time.Second),
		EvictFailedPeers: true,
	}
}

// Validate 验证 DHT 配置
func (c *DHTConfig) Validate() error {
	if c.BucketSize <= 0 {
		return errors.New("dht: bucket_size must be positive")
	}
	if c.MaxHops < 0 {
		return errors.New("dht: max_hops cannot be negative")
	}
	if c.ClosestCount <= 0 {
		return errors.New("dht: closest_count must be positive")
	}
	if c.ReplicationCount <= 0 {
		return errors.New("dht: replication_count must be positive")
	}
	if c.JoinTimeout <= 0 {
		return errors.New("dht: join_timeout must be positive")
	}
	if c.JoinConcurrency <= 0 {
		return errors.New("dht: join_concurrency must be positive")
	}
	return nil
}
