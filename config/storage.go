package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// document 模式的文档、容器和访问规则存放在同一个 BadgerDB 中，按键前缀隔离。
//
// 数据目录结构：
//
//	${DataDir}/
//	└── ldht.db/            # BadgerDB 主数据库
//	    ├── 000001.vlog     # Value Log
//	    ├── 000001.sst      # SSTable
//	    └── MANIFEST        # 数据库元信息
type StorageConfig struct {
	// DataDir 数据目录路径
	// 默认值: "./data"
	DataDir string `json:"data_dir"`

	// InMemory 使用纯内存模式，不落盘
	// 适用于模拟与测试
	InMemory bool `json:"in_memory,omitempty"`

	// SyncWrites 每次写入后同步到磁盘
	SyncWrites bool `json:"sync_writes,omitempty"`

	// Compression ZSTD 压缩级别，0 关闭压缩
	Compression int `json:"compression,omitempty"`

	// GCInterval 值日志 GC 间隔，0 关闭
	GCInterval Duration `json:"gc_interval,omitempty"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:     "./data",
		Compression: 1,
		GCInterval:  Duration(10 * time.Minute),
	}
}

// Validate 验证存储配置的有效性
func (c *StorageConfig) Validate() error {
	if c.DataDir == "" && !c.InMemory {
		return fmt.Errorf("storage: data_dir cannot be empty")
	}
	if c.Compression < 0 {
		return fmt.Errorf("storage: compression cannot be negative")
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("storage: gc_interval cannot be negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "ldht.db")
}
