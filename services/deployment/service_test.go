package deployment

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"churnvision-controlplane/services/tenant"
	"churnvision-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &tenant.Tenant{}, &TenantDeployment{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	owner := &tenant.Tenant{ID: "tenant-1", Name: "Acme", Slug: "acme", Tier: tenant.TierStarter, Status: tenant.StatusActive}
	require.NoError(t, db.Create(owner).Error)

	return NewService(ServiceParams{DB: db, Node: node})
}

func TestHeartbeatCreatesThenUpdates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	employees := 42
	first, err := svc.Heartbeat(ctx, HeartbeatRequest{
		TenantID:       "tenant-1",
		InstallationID: "install-1",
		AppVersion:     "1.4.0",
		Hostname:       "hr.acme.internal",
		EmployeeCount:  &employees,
		Telemetry:      map[string]any{"db": "postgres"},
	})
	require.NoError(t, err)
	require.Equal(t, first.FirstSeenAt, first.LastSeenAt)
	require.NotNil(t, first.EmployeeCount)
	require.Equal(t, 42, *first.EmployeeCount)

	more := 45
	second, err := svc.Heartbeat(ctx, HeartbeatRequest{
		TenantID:       "tenant-1",
		InstallationID: "install-1",
		AppVersion:     "1.5.0",
		EmployeeCount:  &more,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "1.5.0", second.AppVersion)
	require.Equal(t, 45, *second.EmployeeCount)

	// Fields absent from the heartbeat survive.
	require.Equal(t, "hr.acme.internal", second.Hostname)
	require.Equal(t, first.FirstSeenAt.Unix(), second.FirstSeenAt.Unix())
	require.False(t, second.LastSeenAt.Before(first.LastSeenAt))
}

func TestHeartbeatUnknownTenant(t *testing.T) {
	svc := newService(t)

	_, err := svc.Heartbeat(context.Background(), HeartbeatRequest{
		TenantID:       "ghost",
		InstallationID: "install-1",
	})
	require.Error(t, err)
}

func TestListByTenant(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Heartbeat(ctx, HeartbeatRequest{TenantID: "tenant-1", InstallationID: "install-1"})
	require.NoError(t, err)
	_, err = svc.Heartbeat(ctx, HeartbeatRequest{TenantID: "tenant-1", InstallationID: "install-2"})
	require.NoError(t, err)

	rows, err := svc.ListByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = svc.ListByTenant(ctx, "other")
	require.NoError(t, err)
	require.Empty(t, rows)
}
