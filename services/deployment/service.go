package deployment

import (
	"context"
	"encoding/json"
	"time"

	"churnvision-controlplane/pkg/db/option"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/pkg/repository"
	"churnvision-controlplane/services/tenant"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	deployments repository.Repository[TenantDeployment]
	tenants     repository.Repository[tenant.Tenant]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		deployments: repository.ProvideStore[TenantDeployment](p.DB),
		tenants:     repository.ProvideStore[tenant.Tenant](p.DB),
	}
}

type HeartbeatRequest struct {
	TenantID       string         `json:"tenant_id" binding:"required"`
	InstallationID string         `json:"installation_id" binding:"required"`
	AppVersion     string         `json:"app_version"`
	Hostname       string         `json:"hostname"`
	EmployeeCount  *int           `json:"employee_count"`
	UserCount      *int           `json:"user_count"`
	Telemetry      map[string]any `json:"telemetry"`
}

// Heartbeat records a check-in from a deployed instance, creating the row on
// first contact and updating it afterwards.
func (s *Service) Heartbeat(ctx context.Context, req HeartbeatRequest) (*TenantDeployment, error) {
	zapLog := logWithTrace(ctx)

	owner, err := s.tenants.FindOne(ctx, &tenant.Tenant{ID: req.TenantID})
	if err != nil {
		zapLog.Error("failed query tenant by id", zap.Error(err))
		return nil, errutil.Internal("failed to resolve tenant", err)
	}
	if owner == nil {
		return nil, errutil.NotFound("tenant not found", nil)
	}

	var telemetry datatypes.JSON
	if req.Telemetry != nil {
		payload, err := json.Marshal(req.Telemetry)
		if err != nil {
			return nil, errutil.BadRequest("invalid telemetry payload", err)
		}
		telemetry = datatypes.JSON(payload)
	}

	now := time.Now().UTC()

	existing, err := s.deployments.FindOne(ctx, &TenantDeployment{InstallationID: req.InstallationID})
	if err != nil {
		zapLog.Error("failed query deployment by installation id", zap.Error(err))
		return nil, errutil.Internal("failed to look up deployment", err)
	}

	if existing == nil {
		dep := &TenantDeployment{
			ID:             s.node.Generate().String(),
			TenantID:       owner.ID,
			InstallationID: req.InstallationID,
			AppVersion:     req.AppVersion,
			Hostname:       req.Hostname,
			EmployeeCount:  req.EmployeeCount,
			UserCount:      req.UserCount,
			Telemetry:      telemetry,
			FirstSeenAt:    now,
			LastSeenAt:     now,
		}
		if err := s.deployments.Create(ctx, dep); err != nil {
			zapLog.Error("failed to create deployment", zap.Error(err))
			return nil, errutil.Internal("failed to record deployment", err)
		}
		zapLog.Info("deployment first seen",
			zap.String("tenant_id", owner.ID),
			zap.String("installation_id", req.InstallationID),
		)
		return dep, nil
	}

	values := map[string]any{
		"last_seen_at": now,
	}
	if req.AppVersion != "" {
		values["app_version"] = req.AppVersion
	}
	if req.Hostname != "" {
		values["hostname"] = req.Hostname
	}
	if req.EmployeeCount != nil {
		values["employee_count"] = *req.EmployeeCount
	}
	if req.UserCount != nil {
		values["user_count"] = *req.UserCount
	}
	if telemetry != nil {
		values["telemetry"] = telemetry
	}

	if err := s.deployments.Update(ctx, existing.ID, values); err != nil {
		zapLog.Error("failed to update deployment", zap.Error(err))
		return nil, errutil.Internal("failed to record heartbeat", err)
	}

	return s.deployments.FindOne(ctx, &TenantDeployment{ID: existing.ID})
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*TenantDeployment, error) {
	rows, err := s.deployments.Find(ctx, &TenantDeployment{TenantID: tenantID},
		option.WithSortBy(option.QuerySortBy{Column: "last_seen_at", OrderBy: "DESC"}),
	)
	if err != nil {
		logWithTrace(ctx).Error("failed to list deployments", zap.Error(err))
		return nil, errutil.Internal("failed to list deployments", err)
	}
	return rows, nil
}

func logWithTrace(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}
