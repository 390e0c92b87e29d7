package license

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"churnvision-controlplane/pkg/db/option"
	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/errutil"
	"churnvision-controlplane/pkg/repository"
	"churnvision-controlplane/pkg/task"
	"churnvision-controlplane/services/tenant"
	"churnvision-controlplane/services/webhook"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	signer   *Signer
	enqueuer task.Enqueuer

	licenses repository.Repository[License]
	audits   repository.Repository[AuditLog]
	tenants  repository.Repository[tenant.Tenant]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Signer   *Signer
	Enqueuer task.Enqueuer `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		signer:   p.Signer,
		enqueuer: p.Enqueuer,
		licenses: repository.ProvideStore[License](p.DB),
		audits:   repository.ProvideStore[AuditLog](p.DB),
		tenants:  repository.ProvideStore[tenant.Tenant](p.DB),
	}
}

type IssueRequest struct {
	TenantID       string        `json:"tenant_id" binding:"required"`
	ExpirationDays int           `json:"expiration_days"`
	MaxEmployees   *int          `json:"max_employees"`
	MaxUsers       *int          `json:"max_users"`
	Features       []string      `json:"features"`
	EmbeddedKeys   *EmbeddedKeys `json:"embedded_keys"`
	Actor          string        `json:"-"`
}

// Issue mints a signed license binding the requested entitlements to an expiry
// window and persists it with its ISSUED audit entry in one transaction.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*License, error) {
	zapLog := logWithTrace(ctx)

	if req.ExpirationDays <= 0 {
		return nil, errutil.BadRequest("expiration_days must be a positive integer", nil)
	}

	owner, err := s.tenants.FindOne(ctx, &tenant.Tenant{ID: req.TenantID})
	if err != nil {
		zapLog.Error("failed query get tenant by id", zap.Error(err))
		return nil, errutil.Internal("failed to resolve tenant", err)
	}
	if owner == nil {
		return nil, errutil.NotFound("tenant not found", nil)
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(time.Duration(req.ExpirationDays) * 24 * time.Hour)

	claims := s.signer.NewClaims(owner.Slug, issuedAt, expiresAt, req.Features, Limits{
		MaxEmployees: req.MaxEmployees,
		MaxUsers:     req.MaxUsers,
	}, req.EmbeddedKeys)

	token, err := s.signer.Sign(claims)
	if err != nil {
		zapLog.Error("failed to sign license token", zap.Error(err))
		return nil, errutil.Internal("failed to sign license", err)
	}

	lic := &License{
		ID:           s.node.Generate().String(),
		TenantID:     owner.ID,
		KeyString:    token,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		MaxEmployees: req.MaxEmployees,
		MaxUsers:     req.MaxUsers,
		Features:     req.Features,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(lic).Error; err != nil {
			return fmt.Errorf("failed to create license: %w", err)
		}
		return s.appendAudit(tx, lic.ID, ActionIssued, req.Actor, map[string]any{
			"expiration_days": req.ExpirationDays,
		})
	}); err != nil {
		zapLog.Error("failed to issue license", zap.Error(err))
		return nil, errutil.Internal("failed to issue license", err)
	}

	issuedTotal.Inc()
	s.dispatchEvent(webhook.EventLicenseIssued, owner.ID, map[string]any{
		"license_id": lic.ID,
		"tenant_id":  owner.ID,
		"expires_at": lic.ExpiresAt.Format(time.RFC3339),
	})

	zapLog.Info("license issued",
		zap.String("license_id", lic.ID),
		zap.String("tenant_id", owner.ID),
		zap.Int("expiration_days", req.ExpirationDays),
	)

	return lic, nil
}

type ValidateRequest struct {
	LicenseKey          string `json:"license_key" binding:"required"`
	InstallationID      string `json:"installation_id"`
	HardwareFingerprint string `json:"hardware_fingerprint"`
}

// ValidateKey verifies a presented token for a remote product instance. The
// signature check is the cheap first gate; the stored row stays authoritative
// for expiry and revocation. Revocation comes back as data, not an error, so
// the caller can render why it was rejected without a second lookup.
func (s *Service) ValidateKey(ctx context.Context, req ValidateRequest) (*ValidationResult, error) {
	zapLog := logWithTrace(ctx)

	if _, err := s.signer.Verify(req.LicenseKey); err != nil {
		zapLog.Warn("license validation failed, invalid token", zap.Error(err))
		validationsTotal.WithLabelValues("invalid_format").Inc()
		return nil, newValidationError(CodeInvalidFormat, "Invalid license key format")
	}

	lic, err := s.licenses.FindOne(ctx, &License{KeyString: req.LicenseKey})
	if err != nil {
		zapLog.Error("failed query license by key", zap.Error(err))
		return nil, errutil.Internal("failed to look up license", err)
	}
	if lic == nil {
		zapLog.Warn("license validation failed, license not found in database")
		validationsTotal.WithLabelValues("not_found").Inc()
		return nil, newValidationError(CodeNotFound, "License not found")
	}

	// Best effort: a missing tenant degrades tier/name reporting, the
	// snapshot on the license row stays authoritative.
	owner, err := s.tenants.FindOne(ctx, &tenant.Tenant{ID: lic.TenantID})
	if err != nil {
		zapLog.Error("failed query tenant for license", zap.Error(err))
		owner = nil
	}

	now := time.Now().UTC()

	if lic.Revoked {
		zapLog.Warn("license validation failed, license is revoked", zap.String("license_id", lic.ID))
		validationsTotal.WithLabelValues("revoked").Inc()
		return revokedResult(lic, owner), nil
	}

	if lic.ExpiresAt.Before(now) {
		zapLog.Warn("license validation failed, license is expired", zap.String("license_id", lic.ID))
		validationsTotal.WithLabelValues("expired").Inc()
		return nil, newValidationError(CodeExpired, "License has expired")
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.appendAudit(tx, lic.ID, ActionValidated, "api", map[string]any{
			"timestamp":            now.Format(time.RFC3339),
			"installation_id":      req.InstallationID,
			"hardware_fingerprint": req.HardwareFingerprint,
		})
	}); err != nil {
		zapLog.Error("failed to record validation audit", zap.Error(err))
		return nil, errutil.Internal("failed to record validation", err)
	}

	validationsTotal.WithLabelValues("valid").Inc()
	return successResult(lic, owner, now), nil
}

// ValidateTenant resolves the longest-lived currently-valid license for a
// tenant slug. It is an administrative lookup convenience: no signature check
// and no audit entry, matching the token path's proof-of-possession semantics
// only where possession is actually proven.
func (s *Service) ValidateTenant(ctx context.Context, slug string) (*ValidationResult, error) {
	zapLog := logWithTrace(ctx)

	owner, err := s.tenants.FindOne(ctx, &tenant.Tenant{Slug: slug})
	if err != nil {
		zapLog.Error("failed query tenant by slug", zap.Error(err))
		return nil, errutil.Internal("failed to resolve tenant", err)
	}
	if owner == nil {
		return nil, newValidationError(CodeTenantNotFound, "Tenant not found")
	}

	now := time.Now().UTC()

	var lic License
	err = s.db.WithContext(ctx).
		Where("tenant_id = ? AND revoked = ? AND expires_at > ?", owner.ID, false, now).
		Order("expires_at DESC").
		First(&lic).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newValidationError(CodeNoLicense, "No valid license found for tenant")
		}
		zapLog.Error("failed query active license for tenant", zap.Error(err))
		return nil, errutil.Internal("failed to look up license", err)
	}

	return successResult(&lic, owner, now), nil
}

// Revoke permanently invalidates a license before its natural expiry.
// Re-revocation is permitted and refreshes the reason and timestamp; each call
// appends its own audit entry.
func (s *Service) Revoke(ctx context.Context, licenseID, reason, actor string) (*License, error) {
	zapLog := logWithTrace(ctx)

	lic, err := s.GetByID(ctx, licenseID)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "Manual revocation"
	}

	now := time.Now().UTC()
	lic.Revoked = true
	lic.RevokedAt = &now
	lic.RevocationReason = &reason

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&License{}).Where("id = ?", lic.ID).Updates(map[string]any{
			"revoked":           true,
			"revoked_at":        now,
			"revocation_reason": reason,
		}).Error; err != nil {
			return fmt.Errorf("failed to revoke license: %w", err)
		}
		return s.appendAudit(tx, lic.ID, ActionRevoked, actor, map[string]any{
			"reason": reason,
		})
	}); err != nil {
		zapLog.Error("failed to revoke license", zap.Error(err))
		return nil, errutil.Internal("failed to revoke license", err)
	}

	revokedTotal.Inc()
	s.dispatchEvent(webhook.EventLicenseRevoked, lic.TenantID, map[string]any{
		"license_id": lic.ID,
		"tenant_id":  lic.TenantID,
		"reason":     reason,
	})

	zapLog.Info("license revoked",
		zap.String("license_id", lic.ID),
		zap.String("reason", reason),
	)

	return lic, nil
}

// Extend pushes a license's expiry out (or back, for corrections) without
// re-signing the token: the stored row is authoritative for validation, the
// token's own expiry claim is only the fast pre-check.
func (s *Service) Extend(ctx context.Context, licenseID string, additionalDays int, actor string) (*License, error) {
	zapLog := logWithTrace(ctx)

	lic, err := s.GetByID(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	if lic.Revoked {
		return nil, errutil.UnprocessableEntity("cannot extend a revoked license", nil)
	}

	oldExpiry := lic.ExpiresAt
	newExpiry := oldExpiry.Add(time.Duration(additionalDays) * 24 * time.Hour)

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&License{}).Where("id = ?", lic.ID).
			Update("expires_at", newExpiry).Error; err != nil {
			return fmt.Errorf("failed to extend license: %w", err)
		}
		return s.appendAudit(tx, lic.ID, ActionExtended, actor, map[string]any{
			"old_expiry":      oldExpiry.Format(time.RFC3339),
			"new_expiry":      newExpiry.Format(time.RFC3339),
			"additional_days": additionalDays,
		})
	}); err != nil {
		zapLog.Error("failed to extend license", zap.Error(err))
		return nil, errutil.Internal("failed to extend license", err)
	}

	lic.ExpiresAt = newExpiry

	extendedTotal.Inc()
	s.dispatchEvent(webhook.EventLicenseExtended, lic.TenantID, map[string]any{
		"license_id":      lic.ID,
		"tenant_id":       lic.TenantID,
		"additional_days": additionalDays,
		"expires_at":      newExpiry.Format(time.RFC3339),
	})

	zapLog.Info("license extended",
		zap.String("license_id", lic.ID),
		zap.Int("additional_days", additionalDays),
	)

	return lic, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*License, error) {
	lic, err := s.licenses.FindOne(ctx, &License{ID: id})
	if err != nil {
		logWithTrace(ctx).Error("failed query license by id", zap.Error(err))
		return nil, errutil.Internal("failed to get license", err)
	}
	if lic == nil {
		return nil, errutil.NotFound("license not found", nil)
	}
	return lic, nil
}

func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]*License, error) {
	rows, err := s.licenses.Find(ctx, &License{},
		option.ApplyPagination(page),
		option.WithSortBy(option.QuerySortBy{Column: "issued_at", OrderBy: "DESC"}),
	)
	if err != nil {
		logWithTrace(ctx).Error("failed to list licenses", zap.Error(err))
		return nil, errutil.Internal("failed to list licenses", err)
	}
	return rows, nil
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*License, error) {
	rows, err := s.licenses.Find(ctx, &License{TenantID: tenantID},
		option.WithSortBy(option.QuerySortBy{Column: "issued_at", OrderBy: "DESC"}),
	)
	if err != nil {
		logWithTrace(ctx).Error("failed to list tenant licenses", zap.Error(err))
		return nil, errutil.Internal("failed to list licenses", err)
	}
	return rows, nil
}

// AuditLogs returns the forensic record for one license, newest first.
// Snowflake IDs tie-break entries that share a wall-clock timestamp.
func (s *Service) AuditLogs(ctx context.Context, licenseID string, page pagination.Pagination) ([]*AuditLog, error) {
	if _, err := s.GetByID(ctx, licenseID); err != nil {
		return nil, err
	}

	var rows []*AuditLog
	limit := page.Limit
	if limit <= 0 {
		limit = 100
	}
	err := s.db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Order("performed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		logWithTrace(ctx).Error("failed to list audit logs", zap.Error(err))
		return nil, errutil.Internal("failed to list audit logs", err)
	}
	return rows, nil
}

// appendAudit writes one immutable audit entry inside the caller's
// transaction so a crash can never separate a mutation from its record.
func (s *Service) appendAudit(tx *gorm.DB, licenseID string, action Action, actor string, details map[string]any) error {
	if actor == "" {
		actor = "system"
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := &AuditLog{
		ID:          s.node.Generate().String(),
		LicenseID:   licenseID,
		Action:      action,
		PerformedAt: time.Now().UTC(),
		PerformedBy: actor,
		Details:     datatypes.JSON(payload),
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// dispatchEvent enqueues a webhook fan-out task best-effort: queue problems
// are logged, never surfaced to the license operation that emitted the event.
func (s *Service) dispatchEvent(eventType, tenantID string, data map[string]any) {
	if s.enqueuer == nil {
		return
	}

	t, err := webhook.NewDispatchTask(eventType, tenantID, data)
	if err != nil {
		zap.L().Error("failed to build webhook task", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if _, err := s.enqueuer.Enqueue(context.Background(), t); err != nil {
		zap.L().Error("failed to enqueue webhook task", zap.String("event_type", eventType), zap.Error(err))
	}
}

func logWithTrace(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}
