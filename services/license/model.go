package license

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// License binds a signed token to the entitlement snapshot granted at
// issuance. Snapshot fields are deliberately copies, not live references: a
// later tenant downgrade must not retroactively alter a token already
// distributed to a customer.
type License struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	TenantID  string `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	KeyString string `gorm:"column:key_string;not null;index" json:"key_string"`

	IssuedAt  time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null" json:"expires_at"`

	// Revoked is monotonic: once true it never resets.
	Revoked          bool       `gorm:"column:revoked;default:false;not null" json:"revoked"`
	RevokedAt        *time.Time `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	RevocationReason *string    `gorm:"column:revocation_reason" json:"revocation_reason,omitempty"`

	MaxEmployees *int           `gorm:"column:max_employees" json:"max_employees"`
	MaxUsers     *int           `gorm:"column:max_users" json:"max_users"`
	Features     pq.StringArray `gorm:"column:features;type:text[]" json:"features"`
}

func (License) TableName() string { return "licenses" }

type Action string

const (
	ActionIssued    Action = "ISSUED"
	ActionValidated Action = "VALIDATED"
	ActionRevoked   Action = "REVOKED"
	ActionExtended  Action = "EXTENDED"
)

// AuditLog entries are append-only: created in the same transaction as the
// license mutation they record, never updated or deleted. Snowflake IDs break
// wall-clock ties so causal order survives high concurrency.
type AuditLog struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	LicenseID   string         `gorm:"column:license_id;not null;index" json:"license_id"`
	Action      Action         `gorm:"column:action;not null" json:"action"`
	PerformedAt time.Time      `gorm:"column:performed_at;not null" json:"performed_at"`
	PerformedBy string         `gorm:"column:performed_by" json:"performed_by"`
	Details     datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
}

func (AuditLog) TableName() string { return "license_audit_logs" }
