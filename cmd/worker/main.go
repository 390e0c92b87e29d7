package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"churnvision-controlplane/pkg/config"
	"churnvision-controlplane/pkg/db"
	"churnvision-controlplane/pkg/gen"
	"churnvision-controlplane/pkg/logger"
	"churnvision-controlplane/pkg/task"
	"churnvision-controlplane/services/webhook"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		task.Server,

		webhook.WorkerModule,

		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
