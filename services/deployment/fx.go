package deployment

import "go.uber.org/fx"

var Module = fx.Module("deployment.module",
	fx.Provide(NewService),
)
