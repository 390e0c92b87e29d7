package router

import (
	"churnvision-controlplane/pkg/config"
	"churnvision-controlplane/pkg/health"
	"churnvision-controlplane/pkg/middleware"
	"churnvision-controlplane/services/apikey"
	"churnvision-controlplane/services/deployment"
	"churnvision-controlplane/services/license"
	"churnvision-controlplane/services/tenant"
	"churnvision-controlplane/services/webhook"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("router",
	fx.Provide(NewEngine),
)

type Params struct {
	fx.In
	Config      *config.Config
	Health      health.HealthService
	APIKeys     *apikey.Service
	Tenants     *tenant.Service
	Licenses    *license.Service
	Webhooks    *webhook.Service
	Deployments *deployment.Service
}

// NewEngine wires the full HTTP surface. Remote product instances reach only
// the validation and heartbeat endpoints behind the shared service secret;
// everything else is administrative and requires an API key.
func NewEngine(p Params) *gin.Engine {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handler{
		tenants:     p.Tenants,
		licenses:    p.Licenses,
		webhooks:    p.Webhooks,
		deployments: p.Deployments,
	}

	api := r.Group("/api/v1")

	remote := api.Group("", middleware.ServiceSecret(p.Config.License.ServiceSecret))
	{
		remote.POST("/licenses/validate", h.validateLicense)
		remote.GET("/licenses/validate/tenant/:slug", h.validateTenant)
		remote.POST("/deployments/heartbeat", h.heartbeat)
	}

	admin := api.Group("", middleware.APIKey(p.APIKeys))
	{
		admin.POST("/tenants", h.createTenant)
		admin.GET("/tenants", h.listTenants)
		admin.GET("/tenants/:id", h.getTenant)
		admin.PATCH("/tenants/:id", h.updateTenant)
		admin.DELETE("/tenants/:id", h.deleteTenant)
		admin.GET("/tenants/:id/licenses", h.listTenantLicenses)
		admin.GET("/tenants/:id/deployments", h.listTenantDeployments)

		admin.POST("/licenses", h.issueLicense)
		admin.GET("/licenses", h.listLicenses)
		admin.GET("/licenses/:id", h.getLicense)
		admin.POST("/licenses/:id/revoke", h.revokeLicense)
		admin.POST("/licenses/:id/extend", h.extendLicense)
		admin.GET("/licenses/:id/audit", h.listAuditLogs)

		admin.POST("/webhooks", h.createWebhook)
		admin.GET("/webhooks", h.listWebhooks)
		admin.GET("/webhooks/:id", h.getWebhook)
		admin.PATCH("/webhooks/:id", h.updateWebhook)
		admin.DELETE("/webhooks/:id", h.deleteWebhook)
		admin.GET("/webhooks/:id/deliveries", h.listDeliveries)
		admin.POST("/webhooks/:id/ping", h.pingWebhook)
	}

	return r
}

type handler struct {
	tenants     *tenant.Service
	licenses    *license.Service
	webhooks    *webhook.Service
	deployments *deployment.Service
}
