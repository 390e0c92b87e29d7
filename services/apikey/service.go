package apikey

import (
	"strings"
	"time"

	"churnvision-controlplane/pkg/repository"
	"churnvision-controlplane/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("apikey.module",
	fx.Provide(NewService),
)

type Service struct {
	db   *gorm.DB
	repo repository.Repository[APIKey]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		repo: repository.ProvideStore[APIKey](p.DB),
	}
}

// Verify implements middleware.APIKeyVerifier. Presented keys have the form
// "<key_id>.<secret>"; the key ID locates the row, argon2 verifies the secret.
func (s *Service) Verify(c *gin.Context, presented string) (string, bool) {
	keyID, secret, ok := strings.Cut(presented, ".")
	if !ok {
		return "", false
	}

	key, err := s.repo.FindOne(c.Request.Context(), &APIKey{KeyID: keyID})
	if err != nil {
		zap.L().Error("failed query api key", zap.Error(err))
		return "", false
	}
	if key == nil || key.Status != StatusActive {
		return "", false
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now().UTC()) {
		return "", false
	}

	if !security.VerifyArgon2(secret, key.SecretHash) {
		return "", false
	}

	return "tenant:" + key.TenantID, true
}
