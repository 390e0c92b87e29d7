package apikey

import (
	"time"

	"github.com/lib/pq"
)

type Type string

const (
	// TypeAdmin authenticates a customer's deployment against the admin panel API.
	TypeAdmin Type = "admin"
	// TypeWebhook signs outbound webhook deliveries.
	TypeWebhook Type = "webhook"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

type APIKey struct {
	ID         string         `gorm:"column:id;primaryKey"`
	TenantID   string         `gorm:"column:tenant_id;not null;index"`
	KeyID      string         `gorm:"column:key_id;uniqueIndex;not null"` // e.g. cvk_live_xxx
	KeyType    Type           `gorm:"column:key_type;not null"`
	SecretHash string         `gorm:"column:secret_hash;not null"` // argon2id, never plaintext
	Scopes     pq.StringArray `gorm:"column:scopes;type:text[];not null"`
	Status     Status         `gorm:"column:status;default:'active';not null"`
	CreatedBy  *string        `gorm:"column:created_by"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt  *time.Time     `gorm:"column:expires_at"`
}

func (APIKey) TableName() string { return "api_keys" }
