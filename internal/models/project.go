package models

import (
	"time"
)

// Project owns devices, datasets, widgets and access keys for one tenant
type Project struct {
	ID        uint      `json:"project_id" gorm:"column:project_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"project_name" gorm:"column:project_name;type:varchar(255);not null"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`

	// Relationships
	User       User        `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Devices    []Device    `json:"devices,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	DataTables []DataTable `json:"data_tables,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	AccessKeys []AccessKey `json:"access_keys,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Project model
func (Project) TableName() string {
	return "projects"
}
