package ldht

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/core/storage"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/internal/remote"
	"github.com/dep2p/go-ldht/pkg/lib/log"
)

var fxLogger = log.Logger("ldht/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置、指标与事件总线
//  2. document 模式: Storage → DocStore
//  3. DHT（OnStart 初始化本地节点）
//  4. document 模式: Remote（OnStart 启动 Responder，必须在 DHT 之后）
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg.config),
		metrics.Module,
		eventbus.Module,
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 共享注册表（可选）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.registry != nil {
		modules = append(modules, fx.Supply(cfg.registry))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 存储与 DHT
	// ════════════════════════════════════════════════════════════════════════
	switch cfg.config.Network.Mode {
	case config.ModeDocument:
		if cfg.store != nil {
			store := cfg.store
			modules = append(modules, fx.Provide(func() docstore.Store { return store }))
		} else {
			modules = append(modules, storage.Module(), docstore.Module)
		}
		modules = append(modules, dht.Module, remote.Module)
		fxLogger.Debug("已加载文档网络模块", "codec", cfg.config.Network.Codec)

	default:
		modules = append(modules, dht.Module)
		fxLogger.Debug("已加载内存网络模块")
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. Node 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	// ════════════════════════════════════════════════════════════════════════
	// 6. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入辅助函数
// ════════════════════════════════════════════════════════════════════════════

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	// 核心组件（必需）
	Network  *dht.Network
	EventBus *eventbus.Bus

	// 可选组件
	Factory *remote.Factory  `optional:"true"` // 仅 document 模式
	Metrics *metrics.Metrics `optional:"true"`
}

// injectNodeComponents 创建 Node 组件注入函数
func injectNodeComponents(node *Node) interface{} {
	return func(params nodeInjectParams) {
		node.network = params.Network
		node.factory = params.Factory
		node.metrics = params.Metrics
		node.bus = params.EventBus
	}
}
