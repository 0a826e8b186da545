package eventbus

import (
	"go.uber.org/fx"
)

// Module 事件总线 Fx 模块
//
// 提供 *Bus，DHT 网络与动作响应方以可选依赖的方式使用它。
var Module = fx.Module("eventbus",
	fx.Provide(NewBus),
)
