package remote

import (
	"fmt"
	"time"

	"github.com/dep2p/go-ldht/config"
)

// Config 动作协议配置
type Config struct {
	// Timeout 动作等待超时
	Timeout time.Duration

	// PingTimeout Ping 动作等待超时
	PingTimeout time.Duration

	// PollInterval 状态轮询与收件箱重扫间隔
	PollInterval time.Duration

	// RetryMaxElapsed 写入重试的最长总时间
	RetryMaxElapsed time.Duration

	// RateLimit 每个发送方每秒处理的动作数
	RateLimit float64

	// RateBurst 速率限制突发容量
	RateBurst int

	// HandledCacheSize 已处理动作缓存大小
	HandledCacheSize int

	// NodeCacheSize 节点记录缓存大小
	NodeCacheSize int

	// Workers 响应方并发处理数
	Workers int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置转换
func ConfigFromUnified(cfg *config.Config) Config {
	a := config.DefaultActionConfig()
	if cfg != nil {
		a = cfg.Action
	}
	return Config{
		Timeout:          a.Timeout.Duration(),
		PingTimeout:      a.PingTimeout.Duration(),
		PollInterval:     a.PollInterval.Duration(),
		RetryMaxElapsed:  a.RetryMaxElapsed.Duration(),
		RateLimit:        a.RateLimit,
		RateBurst:        a.RateBurst,
		HandledCacheSize: a.HandledCacheSize,
		NodeCacheSize:    a.NodeCacheSize,
		Workers:          4,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Timeout <= 0 || c.PingTimeout <= 0 || c.PollInterval <= 0 {
		return fmt.Errorf("remote: timeouts must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("remote: rate limit must be positive")
	}
	if c.HandledCacheSize <= 0 || c.NodeCacheSize <= 0 || c.Workers <= 0 {
		return fmt.Errorf("remote: cache sizes and workers must be positive")
	}
	return nil
}
