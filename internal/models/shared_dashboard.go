package models

import (
	"time"
)

// SharedDashboard is a public, token-addressed view over a subset of a
// project's widgets. The token is the only credential; anyone holding it can
// read the projections of the widgets listed in the junction rows, as long as
// the share is active and not expired.
type SharedDashboard struct {
	ID         uint       `json:"share_id" gorm:"column:share_id;primaryKey"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ShareToken string     `json:"share_token" gorm:"type:varchar(64);not null;uniqueIndex"`
	ProjectID  uint       `json:"project_id" gorm:"not null;index"`
	ShareName  string     `json:"share_name" gorm:"type:varchar(255)"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true"`
	ExpiresAt  *time.Time `json:"expires_at"`

	// Relationships
	Project Project                 `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	Widgets []SharedDashboardWidget `json:"widgets,omitempty" gorm:"foreignKey:ShareID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the SharedDashboard model
func (SharedDashboard) TableName() string {
	return "shared_dashboards"
}

// IsExpired reports whether the share's expiration date has passed. A share
// with no expiration date never expires.
func (s *SharedDashboard) IsExpired() bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(time.Now())
}

// WidgetIDs returns the shared widget ids as a flat list
func (s *SharedDashboard) WidgetIDs() []uint {
	ids := make([]uint, 0, len(s.Widgets))
	for _, w := range s.Widgets {
		ids = append(ids, w.WidgetID)
	}
	return ids
}

// AllowsWidget reports whether a widget is part of this share
func (s *SharedDashboard) AllowsWidget(widgetID uint) bool {
	for _, w := range s.Widgets {
		if w.WidgetID == widgetID {
			return true
		}
	}
	return false
}

// SharedDashboardWidget is one widget exposed by a share. Deleting the widget
// cascades the junction row, so a share never references a dead widget.
type SharedDashboardWidget struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	ShareID   uint      `json:"share_id" gorm:"column:share_id;not null;uniqueIndex:idx_share_widget"`
	WidgetID  uint      `json:"widget_id" gorm:"not null;uniqueIndex:idx_share_widget"`

	// Relationships
	Widget Widget `json:"-" gorm:"foreignKey:WidgetID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the SharedDashboardWidget model
func (SharedDashboardWidget) TableName() string {
	return "shared_dashboard_widgets"
}

// CreateShareRequest is the payload for creating a shared dashboard
type CreateShareRequest struct {
	ProjectID uint       `json:"project_id" binding:"required"`
	WidgetIDs []uint     `json:"allowed_widget_ids" binding:"required"`
	ShareName string     `json:"share_name"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// UpdateShareRequest is the payload for updating a shared dashboard. Nil
// fields mean "leave unchanged".
type UpdateShareRequest struct {
	WidgetIDs []uint     `json:"allowed_widget_ids"`
	ShareName *string    `json:"share_name"`
	IsActive  *bool      `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ShareMetadata is the listing/detail shape for a shared dashboard
type ShareMetadata struct {
	ID         uint       `json:"share_id"`
	ShareToken string     `json:"share_token"`
	ShareName  string     `json:"share_name"`
	ProjectID  uint       `json:"project_id"`
	WidgetIDs  []uint     `json:"allowed_widget_ids"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
