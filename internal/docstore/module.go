package docstore

import (
	"go.uber.org/fx"
)

// Module 文档存储 Fx 模块
//
// 依赖 engine.Engine（由 storage.Module 提供），导出 Store。
var Module = fx.Module("docstore",
	fx.Provide(
		fx.Annotate(NewBadgerStore, fx.As(new(Store))),
	),
)
