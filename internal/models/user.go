package models

import (
	"time"
)

// User represents a dashboard user in the system
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Email        string     `json:"email" gorm:"type:varchar(255);not null;unique;index"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	DisplayName  string     `json:"display_name" gorm:"type:varchar(255)"`
	IsAdmin      bool       `json:"is_admin" gorm:"default:false;index"`
	LastLoginAt  *time.Time `json:"last_login_at"`

	// Relationships
	Projects []Project `json:"projects,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
