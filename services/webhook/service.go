package webhook

import (
	"context"

	"churnvision-controlplane/pkg/db/option"
	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/pkg/repository"
	"churnvision-controlplane/pkg/task"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	node       *snowflake.Node
	enqueuer   task.Enqueuer
	endpoints  repository.Repository[Webhook]
	deliveries repository.Repository[Delivery]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		enqueuer:   p.Enqueuer,
		endpoints:  repository.ProvideStore[Webhook](p.DB),
		deliveries: repository.ProvideStore[Delivery](p.DB),
	}
}

type CreateRequest struct {
	Name     string   `json:"name" binding:"required"`
	URL      string   `json:"url" binding:"required,url"`
	Secret   string   `json:"secret"`
	Events   []string `json:"events" binding:"required,min=1"`
	TenantID *string  `json:"tenant_id"`
}

type UpdateRequest struct {
	Name     *string   `json:"name"`
	URL      *string   `json:"url"`
	Secret   *string   `json:"secret"`
	Events   *[]string `json:"events"`
	IsActive *bool     `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Webhook, error) {
	hook := &Webhook{
		ID:       s.node.Generate().String(),
		Name:     req.Name,
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   req.Events,
		TenantID: req.TenantID,
		IsActive: true,
	}

	if err := s.endpoints.Create(ctx, hook); err != nil {
		zap.L().Error("failed to create webhook", zap.Error(err))
		return nil, errutil.Internal("failed to create webhook", err)
	}

	return hook, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Webhook, error) {
	hook, err := s.endpoints.FindOne(ctx, &Webhook{ID: id})
	if err != nil {
		zap.L().Error("failed query get webhook", zap.Error(err))
		return nil, errutil.Internal("failed to get webhook", err)
	}
	if hook == nil {
		return nil, errutil.NotFound("webhook not found", nil)
	}
	return hook, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]*Webhook, error) {
	hooks, err := s.endpoints.Find(ctx, &Webhook{},
		option.ApplyPagination(page),
		option.WithSortBy(option.QuerySortBy{Column: "created_at", OrderBy: "DESC"}),
	)
	if err != nil {
		zap.L().Error("failed to list webhooks", zap.Error(err))
		return nil, errutil.Internal("failed to list webhooks", err)
	}
	return hooks, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Webhook, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	values := map[string]any{}
	if req.Name != nil {
		values["name"] = *req.Name
	}
	if req.URL != nil {
		values["url"] = *req.URL
	}
	if req.Secret != nil {
		values["secret"] = *req.Secret
	}
	if req.Events != nil {
		values["events"] = pqArray(*req.Events)
	}
	if req.IsActive != nil {
		values["is_active"] = *req.IsActive
	}

	if len(values) > 0 {
		if err := s.endpoints.Update(ctx, id, values); err != nil {
			zap.L().Error("failed to update webhook", zap.Error(err))
			return nil, errutil.Internal("failed to update webhook", err)
		}
	}

	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	hook, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(hook).Error; err != nil {
		zap.L().Error("failed to delete webhook", zap.Error(err))
		return errutil.Internal("failed to delete webhook", err)
	}

	return nil
}

// Deliveries returns the delivery history for one endpoint, newest first.
func (s *Service) Deliveries(ctx context.Context, webhookID string, page pagination.Pagination) ([]*Delivery, error) {
	if _, err := s.Get(ctx, webhookID); err != nil {
		return nil, err
	}

	rows, err := s.deliveries.Find(ctx, &Delivery{WebhookID: webhookID},
		option.ApplyPagination(page),
		option.WithSortBy(option.QuerySortBy{Column: "delivered_at", OrderBy: "DESC"}),
	)
	if err != nil {
		zap.L().Error("failed to list webhook deliveries", zap.Error(err))
		return nil, errutil.Internal("failed to list deliveries", err)
	}
	return rows, nil
}

// Ping enqueues a synthetic test delivery for the endpoint.
func (s *Service) Ping(ctx context.Context, id string) error {
	hook, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.enqueuer == nil {
		return errutil.Internal("task queue not configured", nil)
	}

	t, err := NewPingTask(hook.ID)
	if err != nil {
		return errutil.Internal("failed to build ping task", err)
	}
	if _, err := s.enqueuer.Enqueue(ctx, t); err != nil {
		return errutil.Internal("failed to enqueue ping task", err)
	}

	return nil
}

// activeForEvent resolves the endpoints subscribed to eventType, honoring the
// tenant filter: endpoints with no tenant receive everything. Event matching
// happens in Go so the query stays portable across dialects.
func (s *Service) activeForEvent(ctx context.Context, eventType, tenantID string) ([]*Webhook, error) {
	tx := s.db.WithContext(ctx).Where("is_active = ?", true)

	if tenantID != "" {
		tx = tx.Where("tenant_id IS NULL OR tenant_id = ?", tenantID)
	} else {
		tx = tx.Where("tenant_id IS NULL")
	}

	var hooks []*Webhook
	if err := tx.Find(&hooks).Error; err != nil {
		return nil, err
	}

	subscribed := hooks[:0]
	for _, h := range hooks {
		for _, ev := range h.Events {
			if ev == eventType {
				subscribed = append(subscribed, h)
				break
			}
		}
	}
	return subscribed, nil
}
