package bootstrap

import (
	"context"

	"churnvision-controlplane/pkg/config"
	"churnvision-controlplane/services/apikey"
	"churnvision-controlplane/services/deployment"
	"churnvision-controlplane/services/license"
	"churnvision-controlplane/services/tenant"
	"churnvision-controlplane/services/webhook"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("bootstrap.module",
	fx.Invoke(AutoMigrate),
)

// AutoMigrate creates or updates the schema on startup when enabled. Intended
// for development and single-node installs; production schemas are managed
// with explicit migrations.
func AutoMigrate(lc fx.Lifecycle, cfg *config.Config, db *gorm.DB) {
	if !cfg.Database.AutoMigrate {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			zap.L().Info("running schema auto-migration")
			return db.WithContext(ctx).AutoMigrate(
				&tenant.Tenant{},
				&apikey.APIKey{},
				&license.License{},
				&license.AuditLog{},
				&webhook.Webhook{},
				&webhook.Delivery{},
				&deployment.TenantDeployment{},
			)
		},
	})
}
