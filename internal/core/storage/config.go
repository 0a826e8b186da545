package storage

import (
	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/core/storage/engine"
)

// ConfigFromUnified 从统一配置生成引擎配置
//
// cfg 为 nil 时使用默认数据目录。
func ConfigFromUnified(cfg *config.Config) *engine.Config {
	if cfg == nil {
		d := config.DefaultStorageConfig()
		return engine.DefaultConfig(d.DBPath())
	}

	s := cfg.Storage
	if s.InMemory {
		return engine.InMemoryConfig()
	}

	ec := engine.DefaultConfig(s.DBPath())
	ec.SyncWrites = s.SyncWrites
	ec.Compression = s.Compression
	ec.GCInterval = s.GCInterval.Duration()
	if ec.Compression == 0 {
		ec.BlockCacheSize = 0
	}
	return ec
}
