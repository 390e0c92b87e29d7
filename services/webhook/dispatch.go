package webhook

import (
	"encoding/json"

	"churnvision-controlplane/pkg/taskname"

	"github.com/hibiken/asynq"
)

// DispatchPayload is the asynq task body for fanning one control-plane event
// out to every subscribed endpoint.
type DispatchPayload struct {
	EventType string         `json:"event_type"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Data      map[string]any `json:"data"`
}

// NewDispatchTask packages an event for the delivery worker. Producers enqueue
// it best-effort: a queue outage must not fail the license operation that
// triggered the event.
func NewDispatchTask(eventType, tenantID string, data map[string]any) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchPayload{
		EventType: eventType,
		TenantID:  tenantID,
		Data:      data,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.WebhookDeliver, payload, asynq.MaxRetry(3)), nil
}

// PingPayload is the asynq task body for a synthetic test delivery to a single
// endpoint.
type PingPayload struct {
	WebhookID string `json:"webhook_id"`
}

func NewPingTask(webhookID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PingPayload{WebhookID: webhookID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.WebhookPing, payload, asynq.MaxRetry(0)), nil
}
