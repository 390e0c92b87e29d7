package tenant

import (
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusTrial     Status = "TRIAL"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusChurned   Status = "CHURNED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTrial, StatusActive, StatusSuspended, StatusChurned:
		return true
	default:
		return false
	}
}

type Tier string

const (
	TierStarter      Tier = "STARTER"
	TierProfessional Tier = "PROFESSIONAL"
	TierEnterprise   Tier = "ENTERPRISE"
)

func (t Tier) Valid() bool {
	switch t {
	case TierStarter, TierProfessional, TierEnterprise:
		return true
	default:
		return false
	}
}

// Tenant is the identity anchor for a customer organization. The license
// subsystem reads it at issuance time to snapshot entitlements and never
// writes it.
type Tenant struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	Name   string `gorm:"column:name;not null" json:"name"`
	Slug   string `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Status Status `gorm:"column:status;default:'TRIAL';not null" json:"status"`
	Tier   Tier   `gorm:"column:tier;default:'STARTER';not null" json:"tier"`

	// Entitlement ceilings. Nil means unlimited.
	MaxEmployees    *int           `gorm:"column:max_employees" json:"max_employees"`
	MaxUsers        *int           `gorm:"column:max_users" json:"max_users"`
	FeaturesEnabled pq.StringArray `gorm:"column:features_enabled;type:text[]" json:"features_enabled"`

	TrialStartedAt *time.Time `gorm:"column:trial_started_at" json:"trial_started_at,omitempty"`
	TrialEndsAt    *time.Time `gorm:"column:trial_ends_at" json:"trial_ends_at,omitempty"`
	ContractStart  *time.Time `gorm:"column:contract_start" json:"contract_start,omitempty"`
	ContractEnd    *time.Time `gorm:"column:contract_end" json:"contract_end,omitempty"`

	Industry string `gorm:"column:industry" json:"industry,omitempty"`
	Region   string `gorm:"column:region" json:"region,omitempty"`
}

func (Tenant) TableName() string { return "tenants" }
