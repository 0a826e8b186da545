package engine

import (
	"os"
	"path/filepath"
	"time"
)

// Config 存储引擎配置
type Config struct {
	// Path 数据目录，非内存模式必需
	Path string

	// InMemory 纯内存模式
	InMemory bool

	// SyncWrites 每次写入后同步到磁盘
	SyncWrites bool

	// ReadOnly 只读打开，用于离线检查节点文档
	ReadOnly bool

	// MemTableSize 内存表大小（字节）
	MemTableSize int64

	// NumMemtables 内存表数量
	NumMemtables int

	// BlockCacheSize 块缓存大小（字节），启用压缩时必须大于 0
	BlockCacheSize int64

	// Compression ZSTD 压缩级别，0 关闭
	Compression int

	// GCInterval 值日志 GC 间隔，0 关闭
	GCInterval time.Duration

	// GCDiscardRatio GC 丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回默认持久化配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:           path,
		MemTableSize:   64 << 20,
		NumMemtables:   5,
		BlockCacheSize: 256 << 20,
		Compression:    1,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig 返回纯内存配置
//
// 关闭压缩与块缓存，降低单个实例的内存占用，适合在一个进程中
// 启动大量模拟节点。
func InMemoryConfig() *Config {
	return &Config{
		InMemory:     true,
		MemTableSize: 4 << 20,
		NumMemtables: 2,
	}
}

// Validate 验证配置并补齐 GC 参数
func (c *Config) Validate() error {
	switch {
	case c.Path == "" && !c.InMemory:
		return ErrInvalidConfig
	case c.MemTableSize < 1<<20:
		return ErrInvalidConfig
	case c.Compression > 0 && c.BlockCacheSize <= 0:
		return ErrInvalidConfig
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		c.GCDiscardRatio = 0.5
	}
	return nil
}

// EnsureDir 创建数据目录并把 Path 转为绝对路径，内存模式下不做任何事
func (c *Config) EnsureDir() error {
	if c.InMemory {
		return nil
	}
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = abs
	return os.MkdirAll(c.Path, 0o755)
}
