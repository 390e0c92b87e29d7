package deployment

import (
	"time"

	"gorm.io/datatypes"
)

// TenantDeployment is one self-hosted product instance phoning home. Rows are
// keyed by installation so repeated heartbeats update in place.
type TenantDeployment struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	TenantID       string         `gorm:"column:tenant_id;index;not null" json:"tenant_id"`
	InstallationID string         `gorm:"column:installation_id;uniqueIndex;not null" json:"installation_id"`
	AppVersion     string         `gorm:"column:app_version" json:"app_version"`
	Hostname       string         `gorm:"column:hostname" json:"hostname"`
	EmployeeCount  *int           `gorm:"column:employee_count" json:"employee_count"`
	UserCount      *int           `gorm:"column:user_count" json:"user_count"`
	Telemetry      datatypes.JSON `gorm:"column:telemetry;type:jsonb" json:"telemetry,omitempty"`
	FirstSeenAt    time.Time      `gorm:"column:first_seen_at;not null" json:"first_seen_at"`
	LastSeenAt     time.Time      `gorm:"column:last_seen_at;index;not null" json:"last_seen_at"`
}

func (TenantDeployment) TableName() string {
	return "tenant_deployments"
}
