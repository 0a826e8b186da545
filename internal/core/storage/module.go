package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/core/storage/engine"
	"github.com/dep2p/go-ldht/internal/core/storage/engine/badger"
	"github.com/dep2p/go-ldht/internal/core/storage/kv"
	"github.com/dep2p/go-ldht/pkg/lib/log"
)

var logger = log.Logger("core/storage")

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Module 返回 Storage Fx 模块
//
// 提供 engine.Engine。OnStart 启动值日志 GC，OnStop 关闭引擎。
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideEngine),
	)
}

// ProvideEngine 按统一配置打开存储引擎并注册生命周期
func ProvideEngine(p Params) (engine.Engine, error) {
	eng, err := NewEngine(ConfigFromUnified(p.UnifiedCfg))
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := eng.Start(); err != nil {
				logger.Error("存储引擎启动失败", "error", err)
				return err
			}
			logger.Info("存储引擎已启动")
			return nil
		},
		OnStop: func(_ context.Context) error {
			logger.Info("正在关闭存储引擎")
			return eng.Close()
		},
	})
	return eng, nil
}

// NewEngine 根据配置创建存储引擎
func NewEngine(cfg *engine.Config) (engine.Engine, error) {
	logger.Debug("创建存储引擎", "path", cfg.Path, "inMemory", cfg.InMemory)
	eng, err := badger.New(cfg)
	if err != nil {
		logger.Error("创建存储引擎失败", "error", err)
		return nil, err
	}
	return eng, nil
}

// NewKVStore 创建带前缀的 KVStore
func NewKVStore(eng engine.Engine, prefix []byte) *kv.Store {
	return kv.New(eng, prefix)
}
