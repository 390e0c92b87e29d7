package apikey

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"churnvision-controlplane/pkg/security"
	"churnvision-controlplane/services/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

func testContext() *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c
}

func seedKey(t *testing.T, db *gorm.DB, mutate func(*APIKey)) (string, *APIKey) {
	t.Helper()

	secret, err := security.GenerateBase64Secret(32)
	require.NoError(t, err)
	hash, err := security.HashArgon2(secret)
	require.NoError(t, err)

	key := &APIKey{
		ID:         "k1",
		TenantID:   "tenant-1",
		KeyID:      "cvk_live_k1",
		KeyType:    TypeAdmin,
		SecretHash: hash,
		Scopes:     []string{"*"},
		Status:     StatusActive,
	}
	if mutate != nil {
		mutate(key)
	}
	require.NoError(t, db.Create(key).Error)

	return key.KeyID + "." + secret, key
}

func TestVerifySuccess(t *testing.T) {
	db := testutil.NewTestDB(t, &APIKey{})
	svc := NewService(ServiceParams{DB: db})

	presented, _ := seedKey(t, db, nil)

	actor, ok := svc.Verify(testContext(), presented)
	require.True(t, ok)
	require.Equal(t, "tenant:tenant-1", actor)
}

func TestVerifyRejectsBadSecret(t *testing.T) {
	db := testutil.NewTestDB(t, &APIKey{})
	svc := NewService(ServiceParams{DB: db})

	_, key := seedKey(t, db, nil)

	_, ok := svc.Verify(testContext(), key.KeyID+".wrong-secret")
	require.False(t, ok)
}

func TestVerifyRejectsMalformedKey(t *testing.T) {
	db := testutil.NewTestDB(t, &APIKey{})
	svc := NewService(ServiceParams{DB: db})

	_, ok := svc.Verify(testContext(), "no-separator")
	require.False(t, ok)

	_, ok = svc.Verify(testContext(), "cvk_live_unknown.secret")
	require.False(t, ok)
}

func TestVerifyRejectsRevokedKey(t *testing.T) {
	db := testutil.NewTestDB(t, &APIKey{})
	svc := NewService(ServiceParams{DB: db})

	presented, _ := seedKey(t, db, func(k *APIKey) {
		k.Status = StatusRevoked
	})

	_, ok := svc.Verify(testContext(), presented)
	require.False(t, ok)
}

func TestVerifyRejectsExpiredKey(t *testing.T) {
	db := testutil.NewTestDB(t, &APIKey{})
	svc := NewService(ServiceParams{DB: db})

	past := time.Now().UTC().Add(-time.Hour)
	presented, _ := seedKey(t, db, func(k *APIKey) {
		k.ExpiresAt = &past
	})

	_, ok := svc.Verify(testContext(), presented)
	require.False(t, ok)
}
