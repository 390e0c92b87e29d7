package webhook

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Event types webhook endpoints can subscribe to.
const (
	EventLicenseIssued   = "license.issued"
	EventLicenseRevoked  = "license.revoked"
	EventLicenseExtended = "license.extended"
	EventTestPing        = "test.ping"
)

// Webhook is a registered outbound endpoint. A nil TenantID subscribes it to
// events for every tenant.
type Webhook struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	Name     string         `gorm:"column:name;not null" json:"name"`
	URL      string         `gorm:"column:url;not null" json:"url"`
	Secret   string         `gorm:"column:secret" json:"-"`
	Events   pq.StringArray `gorm:"column:events;type:text[];not null" json:"events"`
	TenantID *string        `gorm:"column:tenant_id;index" json:"tenant_id,omitempty"`
	IsActive bool           `gorm:"column:is_active;default:true;not null" json:"is_active"`
}

func (Webhook) TableName() string { return "webhooks" }

// Delivery records one attempt to POST an event to an endpoint. Failures are
// recorded, not retried here; asynq owns the bounded retry budget.
type Delivery struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	WebhookID      string         `gorm:"column:webhook_id;not null;index" json:"webhook_id"`
	EventType      string         `gorm:"column:event_type;not null" json:"event_type"`
	Payload        datatypes.JSON `gorm:"column:payload" json:"payload"`
	ResponseStatus string         `gorm:"column:response_status" json:"response_status"`
	ResponseBody   string         `gorm:"column:response_body" json:"response_body,omitempty"`
	Success        bool           `gorm:"column:success;default:false;not null" json:"success"`
	DeliveredAt    time.Time      `gorm:"column:delivered_at" json:"delivered_at"`
}

func (Delivery) TableName() string { return "webhook_deliveries" }

func pqArray(v []string) pq.StringArray { return pq.StringArray(v) }
