package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"churnvision-controlplane/pkg/config"
	"churnvision-controlplane/pkg/security"
	"churnvision-controlplane/pkg/taskname"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxResponseBody = 1000

// Worker executes webhook delivery tasks: it resolves subscribed endpoints,
// POSTs the signed payload, and records a delivery row per attempt.
type Worker struct {
	db      *gorm.DB
	node    *snowflake.Node
	service *Service
	client  *http.Client
}

type WorkerParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Service *Service
	Config  *config.Config
}

func NewWorker(p WorkerParams) *Worker {
	timeout := p.Config.Webhook.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Worker{
		db:      p.DB,
		node:    p.Node,
		service: p.Service,
		client:  &http.Client{Timeout: timeout},
	}
}

var WorkerModule = fx.Module("webhook.worker",
	fx.Provide(NewService, NewWorker),
	fx.Invoke(registerHandlers),
)

func registerHandlers(mux *asynq.ServeMux, w *Worker) {
	mux.HandleFunc(taskname.WebhookDeliver, w.HandleDispatch)
	mux.HandleFunc(taskname.WebhookPing, w.HandlePing)
}

// HandleDispatch fans one event out to every subscribed endpoint. Individual
// endpoint failures are recorded but do not fail the task; only a storage
// error is retryable.
func (w *Worker) HandleDispatch(ctx context.Context, t *asynq.Task) error {
	var payload DispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed dispatch payload: %w: %w", err, asynq.SkipRetry)
	}

	hooks, err := w.service.activeForEvent(ctx, payload.EventType, payload.TenantID)
	if err != nil {
		return fmt.Errorf("resolve webhooks: %w", err)
	}

	for _, hook := range hooks {
		if _, err := w.deliver(ctx, hook, payload.EventType, payload.Data); err != nil {
			zap.L().Error("failed to record webhook delivery",
				zap.String("webhook_id", hook.ID),
				zap.String("event_type", payload.EventType),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (w *Worker) HandlePing(ctx context.Context, t *asynq.Task) error {
	var payload PingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed ping payload: %w: %w", err, asynq.SkipRetry)
	}

	hook, err := w.service.Get(ctx, payload.WebhookID)
	if err != nil {
		return err
	}

	_, err = w.deliver(ctx, hook, EventTestPing, map[string]any{
		"message":      "This is a test webhook delivery",
		"webhook_id":   hook.ID,
		"webhook_name": hook.Name,
	})
	return err
}

func (w *Worker) deliver(ctx context.Context, hook *Webhook, eventType string, data map[string]any) (*Delivery, error) {
	body, err := json.Marshal(map[string]any{
		"event_type": eventType,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"data":       data,
	})
	if err != nil {
		return nil, err
	}

	delivery := &Delivery{
		ID:          w.node.Generate().String(),
		WebhookID:   hook.ID,
		EventType:   eventType,
		Payload:     datatypes.JSON(body),
		DeliveredAt: time.Now().UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		delivery.ResponseStatus = "ERROR"
		delivery.ResponseBody = truncate(err.Error())
	} else {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Event", eventType)
		if hook.Secret != "" {
			req.Header.Set("X-Webhook-Signature", "sha256="+security.SignPayload(body, hook.Secret))
		}

		resp, err := w.client.Do(req)
		if err != nil {
			delivery.ResponseStatus = "ERROR"
			delivery.ResponseBody = truncate(err.Error())
			zap.L().Error("webhook delivery failed", zap.String("url", hook.URL), zap.Error(err))
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
			resp.Body.Close()

			delivery.ResponseStatus = strconv.Itoa(resp.StatusCode)
			delivery.ResponseBody = string(respBody)
			delivery.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
		}
	}

	if err := w.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

func truncate(s string) string {
	if len(s) > maxResponseBody {
		return s[:maxResponseBody]
	}
	return s
}
