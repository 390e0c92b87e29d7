package tenant

import (
	"context"
	"fmt"
	"time"

	"churnvision-controlplane/pkg/db/option"
	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/pkg/repository"
	"churnvision-controlplane/pkg/security"
	"churnvision-controlplane/services/apikey"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[Tenant]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[Tenant](p.DB),
	}
}

type CreateRequest struct {
	Name            string   `json:"name" binding:"required"`
	Slug            string   `json:"slug"`
	Tier            Tier     `json:"tier"`
	Status          Status   `json:"status"`
	MaxEmployees    *int     `json:"max_employees"`
	MaxUsers        *int     `json:"max_users"`
	FeaturesEnabled []string `json:"features_enabled"`
	Industry        string   `json:"industry"`
	Region          string   `json:"region"`
}

// UpdateRequest applies each changed field deliberately; absent pointers leave
// the column untouched.
type UpdateRequest struct {
	Name            *string   `json:"name"`
	Tier            *Tier     `json:"tier"`
	Status          *Status   `json:"status"`
	MaxEmployees    *int      `json:"max_employees"`
	MaxUsers        *int      `json:"max_users"`
	FeaturesEnabled *[]string `json:"features_enabled"`
	Industry        *string   `json:"industry"`
	Region          *string   `json:"region"`
}

// CreateResult carries the one-time plaintext admin API key minted with the
// tenant; it is never persisted or shown again.
type CreateResult struct {
	Tenant      *Tenant `json:"tenant"`
	AdminAPIKey string  `json:"admin_api_key"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	zapLog := logWithTrace(ctx)

	slugName := req.Slug
	if slugName == "" {
		slugName = slug.Make(req.Name)
	}

	exist, err := s.repo.FindOne(ctx, &Tenant{Slug: slugName})
	if err != nil {
		zapLog.Error("failed query get tenant by slug", zap.Error(err))
		return nil, errutil.Internal("failed to check existing tenant", err)
	}
	if exist != nil {
		zapLog.Warn("tenant already exists", zap.String("slug", slugName))
		return nil, errutil.Conflict("tenant already exists", nil)
	}

	tier := req.Tier
	if tier == "" {
		tier = TierStarter
	}
	if !tier.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown tier %q", req.Tier), nil)
	}

	status := req.Status
	if status == "" {
		status = StatusTrial
	}
	if !status.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown status %q", req.Status), nil)
	}

	now := time.Now().UTC()
	tenant := &Tenant{
		ID:              s.node.Generate().String(),
		Name:            req.Name,
		Slug:            slugName,
		Status:          status,
		Tier:            tier,
		MaxEmployees:    req.MaxEmployees,
		MaxUsers:        req.MaxUsers,
		FeaturesEnabled: req.FeaturesEnabled,
		TrialStartedAt:  &now,
		Industry:        req.Industry,
		Region:          req.Region,
	}

	secret, err := security.GenerateBase64Secret(32)
	if err != nil {
		return nil, errutil.Internal("failed to generate api key secret", err)
	}
	hash, err := security.HashArgon2(secret)
	if err != nil {
		return nil, errutil.Internal("failed to hash api key secret", err)
	}

	keyID := s.node.Generate().String()
	key := &apikey.APIKey{
		ID:         keyID,
		TenantID:   tenant.ID,
		KeyID:      fmt.Sprintf("cvk_live_%s", keyID),
		KeyType:    apikey.TypeAdmin,
		SecretHash: hash,
		Scopes:     []string{"*"},
		Status:     apikey.StatusActive,
		CreatedAt:  now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		if err := tx.Create(key).Error; err != nil {
			return fmt.Errorf("failed to create api key: %w", err)
		}
		return nil
	}); err != nil {
		zapLog.Error("failed to create tenant transaction", zap.Error(err))
		return nil, errutil.Internal("failed to create tenant", err)
	}

	return &CreateResult{
		Tenant:      tenant,
		AdminAPIKey: fmt.Sprintf("%s.%s", key.KeyID, secret),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Tenant, error) {
	zapLog := logWithTrace(ctx)

	tenant, err := s.repo.FindOne(ctx, &Tenant{ID: id})
	if err != nil {
		zapLog.Error("failed query get tenant by id", zap.Error(err))
		return nil, errutil.Internal("failed to get tenant", err)
	}
	if tenant == nil {
		return nil, errutil.NotFound("tenant not found", nil)
	}

	return tenant, nil
}

func (s *Service) GetBySlug(ctx context.Context, slugName string) (*Tenant, error) {
	zapLog := logWithTrace(ctx)

	tenant, err := s.repo.FindOne(ctx, &Tenant{Slug: slugName})
	if err != nil {
		zapLog.Error("failed query get tenant by slug", zap.Error(err))
		return nil, errutil.Internal("failed to get tenant", err)
	}
	if tenant == nil {
		return nil, errutil.NotFound("tenant not found", nil)
	}

	return tenant, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]*Tenant, *pagination.PageInfo, error) {
	zapLog := logWithTrace(ctx)

	limit := page.Limit
	if limit <= 0 {
		limit = 10
	}

	// Over-fetch one row to learn whether another page exists.
	tenants, err := s.repo.Find(ctx, &Tenant{},
		option.ApplyPagination(pagination.Pagination{Cursor: page.Cursor, Limit: limit + 1}),
		option.WithSortBy(option.QuerySortBy{Column: "created_at", OrderBy: "DESC"}),
	)
	if err != nil {
		zapLog.Error("failed to list tenants", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list tenants", err)
	}

	info, tenants := pagination.BuildCursorPageInfo(tenants, limit, func(t *Tenant) string {
		cursor, err := pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
			ID:        t.ID,
		})
		if err != nil {
			return ""
		}
		return cursor
	})

	return tenants, info, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Tenant, error) {
	zapLog := logWithTrace(ctx)

	tenant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if req.Name != nil {
		values["name"] = *req.Name
	}
	if req.Tier != nil {
		if !req.Tier.Valid() {
			return nil, errutil.BadRequest(fmt.Sprintf("unknown tier %q", *req.Tier), nil)
		}
		values["tier"] = *req.Tier
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, errutil.BadRequest(fmt.Sprintf("unknown status %q", *req.Status), nil)
		}
		values["status"] = *req.Status
	}
	if req.MaxEmployees != nil {
		values["max_employees"] = *req.MaxEmployees
	}
	if req.MaxUsers != nil {
		values["max_users"] = *req.MaxUsers
	}
	if req.FeaturesEnabled != nil {
		values["features_enabled"] = pq.StringArray(*req.FeaturesEnabled)
	}
	if req.Industry != nil {
		values["industry"] = *req.Industry
	}
	if req.Region != nil {
		values["region"] = *req.Region
	}

	if len(values) == 0 {
		return tenant, nil
	}

	if err := s.repo.Update(ctx, tenant.ID, values); err != nil {
		zapLog.Error("failed to update tenant", zap.Error(err))
		return nil, errutil.Internal("failed to update tenant", err)
	}

	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	zapLog := logWithTrace(ctx)

	tenant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(tenant).Error; err != nil {
		zapLog.Error("failed to delete tenant", zap.Error(err))
		return errutil.Internal("failed to delete tenant", err)
	}

	return nil
}

func logWithTrace(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}
