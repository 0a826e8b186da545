package remote

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ldht/config"
	"github.com/dep2p/go-ldht/internal/action"
	"github.com/dep2p/go-ldht/internal/core/eventbus"
	"github.com/dep2p/go-ldht/internal/dht"
	"github.com/dep2p/go-ldht/internal/docstore"
	"github.com/dep2p/go-ldht/internal/metrics"
)

// Module 文档网络 Fx 模块
//
// 提供:
//   - action.Codec: 按配置选择的编解码器
//   - *Client / *Factory / dht.PeerFactory: 远程节点构造
//   - *Provisioner / dht.NodeProvisioner: 文档节点创建与重建
//   - *Responder: 收件箱处理
//
// 生命周期:
//   - OnStart: 启动 Responder（需在 dht.Module 之后注册）
//   - OnStop: 停止 Responder
var Module = fx.Module("remote",
	fx.Provide(
		ProvideConfig,
		ProvideCodec,
		ProvideClient,
		NewFactory,
		func(f *Factory) dht.PeerFactory { return f },
		ProvideProvisioner,
		func(p *Provisioner) dht.NodeProvisioner { return p },
		ProvideResponder,
	),
	fx.Invoke(registerLifecycle),
)

// Params 远程模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
	EventBus   *eventbus.Bus    `optional:"true"`
}

// ProvideConfig 提供动作协议配置
func ProvideConfig(p Params) (Config, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	return cfg, cfg.Validate()
}

// ProvideCodec 按配置提供编解码器
func ProvideCodec(p Params) (action.Codec, error) {
	name := config.CodecJSON
	if p.UnifiedCfg != nil {
		name = p.UnifiedCfg.Network.Codec
	}
	return action.NewCodec(name)
}

// ProvideClient 提供动作协议调用方
func ProvideClient(p Params, store docstore.Store, codec action.Codec, cfg Config) (*Client, error) {
	return NewClient(store, codec, cfg, WithClientMetrics(p.Metrics))
}

// ProvideProvisioner 提供文档节点 Provisioner
func ProvideProvisioner(store docstore.Store, codec action.Codec) *Provisioner {
	return NewProvisioner(store, codec, nil)
}

// ProvideResponder 提供 Responder
func ProvideResponder(p Params, network *dht.Network, store docstore.Store, codec action.Codec, cfg Config) (*Responder, error) {
	return NewResponder(network, store, codec, cfg,
		WithResponderMetrics(p.Metrics),
		WithResponderEventBus(p.EventBus),
	)
}

func registerLifecycle(lc fx.Lifecycle, r *Responder) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return r.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return r.Stop()
		},
	})
}
