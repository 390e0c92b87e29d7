package webhook

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"churnvision-controlplane/pkg/db/pagination"
	"churnvision-controlplane/pkg/taskname"
	"churnvision-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return nil, nil
}

func newService(t *testing.T) (*Service, *gorm.DB, *fakeEnqueuer) {
	t.Helper()
	db := testutil.NewTestDB(t, &Webhook{}, &Delivery{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enqueuer := &fakeEnqueuer{}
	svc := NewService(ServiceParams{DB: db, Node: node, Enqueuer: enqueuer})
	return svc, db, enqueuer
}

func TestCreateAndGetWebhook(t *testing.T) {
	svc, _, _ := newService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:   "slack",
		URL:    "https://hooks.example.com/slack",
		Secret: "whsec_test",
		Events: []string{EventLicenseIssued, EventLicenseRevoked},
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "slack", got.Name)
	require.Len(t, got.Events, 2)
}

func TestGetWebhookNotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestUpdateWebhook(t *testing.T) {
	svc, _, _ := newService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:   "slack",
		URL:    "https://hooks.example.com/slack",
		Events: []string{EventLicenseIssued},
	})
	require.NoError(t, err)

	inactive := false
	events := []string{EventLicenseIssued, EventLicenseExtended}
	updated, err := svc.Update(context.Background(), created.ID, UpdateRequest{
		IsActive: &inactive,
		Events:   &events,
	})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Len(t, updated.Events, 2)
}

func TestDeleteWebhook(t *testing.T) {
	svc, db, _ := newService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:   "slack",
		URL:    "https://hooks.example.com/slack",
		Events: []string{EventLicenseIssued},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	var count int64
	require.NoError(t, db.Model(&Webhook{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestPingEnqueuesTask(t *testing.T) {
	svc, _, enqueuer := newService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:   "slack",
		URL:    "https://hooks.example.com/slack",
		Events: []string{EventLicenseIssued},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Ping(context.Background(), created.ID))
	require.Len(t, enqueuer.tasks, 1)
	require.Equal(t, taskname.WebhookPing, enqueuer.tasks[0].Type())
}

func TestActiveForEvent(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	global, err := svc.Create(ctx, CreateRequest{
		Name:   "global",
		URL:    "https://hooks.example.com/global",
		Events: []string{EventLicenseIssued},
	})
	require.NoError(t, err)

	tenantID := "tenant-1"
	scoped, err := svc.Create(ctx, CreateRequest{
		Name:     "scoped",
		URL:      "https://hooks.example.com/scoped",
		Events:   []string{EventLicenseIssued},
		TenantID: &tenantID,
	})
	require.NoError(t, err)

	otherEvent, err := svc.Create(ctx, CreateRequest{
		Name:   "revocations-only",
		URL:    "https://hooks.example.com/revoked",
		Events: []string{EventLicenseRevoked},
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(ctx, otherEvent.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	// Matching tenant sees both the global and the scoped endpoint.
	hooks, err := svc.activeForEvent(ctx, EventLicenseIssued, "tenant-1")
	require.NoError(t, err)
	require.Len(t, hooks, 2)

	// A different tenant sees only the global endpoint.
	hooks, err = svc.activeForEvent(ctx, EventLicenseIssued, "tenant-2")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	require.Equal(t, global.ID, hooks[0].ID)

	// Event filter excludes the revocations endpoint even when active.
	active := true
	_, err = svc.Update(ctx, otherEvent.ID, UpdateRequest{IsActive: &active})
	require.NoError(t, err)

	hooks, err = svc.activeForEvent(ctx, EventLicenseIssued, "tenant-1")
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	for _, h := range hooks {
		require.NotEqual(t, otherEvent.ID, h.ID)
	}

	_, err = svc.Deliveries(ctx, scoped.ID, pagination.Pagination{Limit: 10})
	require.NoError(t, err)
}
