package ldht

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
)

// Option 用户配置选项函数
type Option func(*nodeConfig) error

// nodeConfig 节点内部配置
type nodeConfig struct {
	// config 统一配置
	config *config.Config

	// registry memory 模式下共享的节点注册表
	registry *dht.Registry

	// store document 模式下共享的文档存储，为空时使用 BadgerDB
	store docstore.Store

	// userFxOptions 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

// newNodeConfig 创建默认节点配置
func newNodeConfig() *nodeConfig {
	return &nodeConfig{
		config: config.NewConfig(),
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置来源
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置
//
// 整体替换当前配置，应放在其他选项之前。
func WithConfig(cfg *config.Config) Option {
	return func(c *nodeConfig) error {
		if cfg == nil {
			return fmt.Errorf("config cannot be nil")
		}
		c.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
//
// 与 WithConfig 一样整体替换当前配置。
func WithConfigFile(path string) Option {
	return func(c *nodeConfig) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithPreset 使用预设配置
func WithPreset(name string) Option {
	return func(c *nodeConfig) error {
		cfg := GetConfigByPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset %q", name)
		}
		c.config = cfg
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              网络选项
// ════════════════════════════════════════════════════════════════════════════

// WithNodeID 设置本地节点 ID
func WithNodeID(id NodeID) Option {
	return func(c *nodeConfig) error {
		c.config.Network.NodeID = uint64(id)
		return nil
	}
}

// WithCollection 设置集合标识
func WithCollection(collection string) Option {
	return func(c *nodeConfig) error {
		if collection == "" {
			return fmt.Errorf("collection cannot be empty")
		}
		c.config.Network.Collection = collection
		return nil
	}
}

// WithMode 设置运行模式（ModeMemory / ModeDocument）
func WithMode(mode string) Option {
	return func(c *nodeConfig) error {
		c.config.Network.Mode = mode
		return nil
	}
}

// WithCodec 设置文档编解码器（json / proto）
func WithCodec(codec string) Option {
	return func(c *nodeConfig) error {
		c.config.Network.Codec = codec
		return nil
	}
}

// WithBootstrap 设置启动后加入的节点文档位置
func WithBootstrap(locations ...string) Option {
	return func(c *nodeConfig) error {
		c.config.Network.Bootstrap = append([]string(nil), locations...)
		return nil
	}
}

// WithRegistry 在 memory 模式下与其他 Node 共享节点注册表
func WithRegistry(r *Registry) Option {
	return func(c *nodeConfig) error {
		c.registry = r
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              存储与指标
// ════════════════════════════════════════════════════════════════════════════

// WithDataDir 设置数据目录
func WithDataDir(dir string) Option {
	return func(c *nodeConfig) error {
		c.config.Storage.DataDir = dir
		c.config.Storage.InMemory = false
		return nil
	}
}

// WithInMemory 使用内存存储，不落盘
func WithInMemory() Option {
	return func(c *nodeConfig) error {
		c.config.Storage.InMemory = true
		return nil
	}
}

// WithDocumentStore 与其他 Node 共享文档存储
//
// 设置后不再创建 BadgerDB 引擎。
func WithDocumentStore(store docstore.Store) Option {
	return func(c *nodeConfig) error {
		c.store = store
		return nil
	}
}

// WithMetrics 启用或禁用 Prometheus 指标
func WithMetrics(enabled bool) Option {
	return func(c *nodeConfig) error {
		c.config.Metrics.Enabled = enabled
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(c *nodeConfig) error {
		c.userFxOptions = append(c.userFxOptions, opts...)
		return nil
	}
}
