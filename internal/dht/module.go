package dht

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/metrics"
	"github.com/dep2p/go-ldht/pkg/types"
)

// Module DHT Fx 模块
var Module = fx.Module("dht",
	fx.Provide(
		NewFromParams,
	),
	fx.Invoke(registerLifecycle),
)

// Params DHT 依赖参数
type Params struct {
	fx.In

	UnifiedCfg  *config.Config   `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
	Registry    *Registry        `optional:"true"`
	Provisioner NodeProvisioner  `optional:"true"`
	PeerFactory PeerFactory      `optional:"true"`
	EventBus    *eventbus.Bus    `optional:"true"`
}

// NewFromParams 从 Fx 参数创建 Network
func NewFromParams(p Params) (*Network, error) {
	collection := config.DefaultNetworkConfig().Collection
	if p.UnifiedCfg != nil {
		collection = p.UnifiedCfg.Network.Collection
	}

	cfg := ConfigFromUnified(p.UnifiedCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []Option{
		WithConfig(cfg),
		WithMetrics(p.Metrics),
		WithEventBus(p.EventBus),
	}
	if p.Registry != nil {
		opts = append(opts, WithRegistry(p.Registry))
	}
	if p.Provisioner != nil {
		opts = append(opts, WithProvisioner(p.Provisioner))
	}
	if p.PeerFactory != nil {
		opts = append(opts, WithPeerFactory(p.PeerFactory))
	}
	return NewNetwork(collection, opts...)
}

type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	Network    *Network
	UnifiedCfg *config.Config `optional:"true"`
}

// registerLifecycle 注册生命周期
//
// OnStart 以配置中的 NodeID 初始化本地节点，OnStop 关闭本地节点。
func registerLifecycle(in lifecycleInput) {
	var id types.NodeID
	if in.UnifiedCfg != nil {
		id = types.NodeID(in.UnifiedCfg.Network.NodeID)
	}

	in.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("正在初始化 DHT 网络", "collection", in.Network.Collection(), "nodeID", id)
			return in.Network.Initialize(ctx, id)
		},
		OnStop: func(_ context.Context) error {
			if in.Network.LocalNode() == nil {
				return nil
			}
			logger.Info("正在关闭 DHT 网络", "collection", in.Network.Collection())
			return in.Network.Close()
		},
	})
}
