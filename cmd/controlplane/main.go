package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"churnvision-controlplane/internal/router"
	"churnvision-controlplane/internal/server"
	"churnvision-controlplane/pkg/config"
	"churnvision-controlplane/pkg/db"
	"churnvision-controlplane/pkg/gen"
	"churnvision-controlplane/pkg/health"
	"churnvision-controlplane/pkg/logger"
	"churnvision-controlplane/pkg/redis"
	"churnvision-controlplane/pkg/task"
	"churnvision-controlplane/services/apikey"
	"churnvision-controlplane/services/bootstrap"
	"churnvision-controlplane/services/deployment"
	"churnvision-controlplane/services/license"
	"churnvision-controlplane/services/tenant"
	"churnvision-controlplane/services/webhook"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		gen.Module,
		health.Module,
		task.Client,

		bootstrap.Module,
		tenant.Module,
		apikey.Module,
		license.Module,
		webhook.Module,
		deployment.Module,

		router.Module,
		server.Module,

		fx.Invoke(db.Otel, db.Metric),
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
