package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-ldht/config"
)

// Params 指标模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 指标 Fx 模块
//
// 配置禁用指标时提供 nil *Metrics，使用方无需判断。
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
)

// NewFromParams 从 Fx 参数创建指标
func NewFromParams(p Params) (*Metrics, error) {
	cfg := config.DefaultMetricsConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Metrics
	}
	if !cfg.Enabled {
		return nil, nil
	}
	return New(cfg.Namespace)
}
