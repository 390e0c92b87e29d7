package tenant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"churnvision-controlplane/pkg/db/option"
	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/repository"
	"churnvision-controlplane/pkg/security"
	"churnvision-controlplane/services/apikey"
	"churnvision-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockTenantRepository struct {
	findFn    func(ctx context.Context, query *Tenant, opts ...option.QueryOption) ([]*Tenant, error)
	findOneFn func(ctx context.Context, query *Tenant, opts ...option.QueryOption) (*Tenant, error)
}

func (m *mockTenantRepository) WithTrx(tx *gorm.DB) repository.Repository[Tenant] {
	return m
}

func (m *mockTenantRepository) Find(ctx context.Context, query *Tenant, opts ...option.QueryOption) ([]*Tenant, error) {
	if m.findFn != nil {
		return m.findFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *mockTenantRepository) FindOne(ctx context.Context, query *Tenant, opts ...option.QueryOption) (*Tenant, error) {
	if m.findOneFn != nil {
		return m.findOneFn(ctx, query, opts...)
	}
	return nil, nil
}

func (m *mockTenantRepository) Create(context.Context, *Tenant) error     { return nil }
func (m *mockTenantRepository) Update(context.Context, string, any) error { return nil }
func (m *mockTenantRepository) Count(context.Context, *Tenant) (int64, error) {
	return 0, nil
}

func newDBService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &Tenant{}, &apikey.APIKey{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node}), db
}

func TestCreateTenantSuccess(t *testing.T) {
	svc, db := newDBService(t)

	result, err := svc.Create(context.Background(), CreateRequest{
		Name: "Acme Corp",
		Tier: TierProfessional,
	})
	require.NoError(t, err)
	require.Equal(t, "acme-corp", result.Tenant.Slug)
	require.Equal(t, TierProfessional, result.Tenant.Tier)
	require.Equal(t, StatusTrial, result.Tenant.Status)

	// One admin API key minted alongside, plaintext returned exactly once.
	require.True(t, strings.HasPrefix(result.AdminAPIKey, "cvk_live_"))
	keyID, secret, ok := strings.Cut(result.AdminAPIKey, ".")
	require.True(t, ok)

	var key apikey.APIKey
	require.NoError(t, db.Where("key_id = ?", keyID).First(&key).Error)
	require.Equal(t, result.Tenant.ID, key.TenantID)
	require.Equal(t, apikey.TypeAdmin, key.KeyType)
	require.NotEqual(t, secret, key.SecretHash)
	require.True(t, security.VerifyArgon2(secret, key.SecretHash))
}

func TestCreateTenantSlugExists(t *testing.T) {
	svc, _ := newDBService(t)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateRequest{Name: "Acme Corp"})
	require.Error(t, err)
}

func TestCreateTenantUnknownTier(t *testing.T) {
	svc, _ := newDBService(t)

	_, err := svc.Create(context.Background(), CreateRequest{Name: "Acme", Tier: "PLATINUM"})
	require.Error(t, err)
}

func TestGetTenantNotFound(t *testing.T) {
	repo := &mockTenantRepository{}
	repo.findOneFn = func(ctx context.Context, _ *Tenant, _ ...option.QueryOption) (*Tenant, error) {
		return nil, nil
	}
	svc := &Service{repo: repo}

	_, err := svc.Get(context.Background(), "unknown")
	require.Error(t, err)
}

func TestListTenantsRepositoryError(t *testing.T) {
	repo := &mockTenantRepository{}
	repo.findFn = func(ctx context.Context, _ *Tenant, _ ...option.QueryOption) ([]*Tenant, error) {
		return nil, errors.New("boom")
	}
	svc := &Service{repo: repo}

	_, _, err := svc.List(context.Background(), pagination.Pagination{})
	require.Error(t, err)
}

func TestListTenantsPageInfo(t *testing.T) {
	svc, _ := newDBService(t)

	for _, name := range []string{"Acme Corp", "Globex", "Initech"} {
		_, err := svc.Create(context.Background(), CreateRequest{Name: name})
		require.NoError(t, err)
	}

	rows, info, err := svc.List(context.Background(), pagination.Pagination{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, info.HasMore)
	require.NotEmpty(t, info.NextCursor)

	rows, info, err = svc.List(context.Background(), pagination.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.False(t, info.HasMore)
}

func TestUpdateTenant(t *testing.T) {
	svc, _ := newDBService(t)

	created, err := svc.Create(context.Background(), CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	tier := TierEnterprise
	status := StatusActive
	maxUsers := 50
	updated, err := svc.Update(context.Background(), created.Tenant.ID, UpdateRequest{
		Tier:     &tier,
		Status:   &status,
		MaxUsers: &maxUsers,
	})
	require.NoError(t, err)
	require.Equal(t, TierEnterprise, updated.Tier)
	require.Equal(t, StatusActive, updated.Status)
	require.NotNil(t, updated.MaxUsers)
	require.Equal(t, 50, *updated.MaxUsers)

	// Untouched fields survive.
	require.Equal(t, "acme-corp", updated.Slug)
}

func TestUpdateTenantInvalidTier(t *testing.T) {
	svc, _ := newDBService(t)

	created, err := svc.Create(context.Background(), CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	bad := Tier("PLATINUM")
	_, err = svc.Update(context.Background(), created.Tenant.ID, UpdateRequest{Tier: &bad})
	require.Error(t, err)
}

func TestDeleteTenant(t *testing.T) {
	svc, db := newDBService(t)

	created, err := svc.Create(context.Background(), CreateRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.Tenant.ID))

	var count int64
	require.NoError(t, db.Model(&Tenant{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}
