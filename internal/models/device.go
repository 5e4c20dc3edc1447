package models

import (
	"time"
)

// Device is a telemetry emitter registered under a project. Fingerprint is
// the identifier the device reports in its telemetry messages.
type Device struct {
	ID          uint      `json:"device_id" gorm:"column:device_id;primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"device_name" gorm:"column:device_name;type:varchar(255);not null"`
	Fingerprint string    `json:"fingerprint" gorm:"type:varchar(255);not null;index"`
	ProjectID   uint      `json:"project_id" gorm:"not null;index"`

	// Relationships
	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Device model
func (Device) TableName() string {
	return "devices"
}
