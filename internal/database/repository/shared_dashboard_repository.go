package repository

import (
	"errors"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// SharedDashboardRepository handles database operations for shared dashboards
type SharedDashboardRepository struct {
	db *gorm.DB
}

// NewSharedDashboardRepository creates a new SharedDashboardRepository instance
func NewSharedDashboardRepository(db *gorm.DB) *SharedDashboardRepository {
	return &SharedDashboardRepository{db: db}
}

// GetByID retrieves a share by ID with its widget rows preloaded
func (r *SharedDashboardRepository) GetByID(id uint) (*models.SharedDashboard, error) {
	var share models.SharedDashboard
	err := r.db.Preload("Widgets").Where("share_id = ?", id).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &share, nil
}

// GetByToken retrieves a share by its token with its widget rows preloaded.
// Active and expiry checks belong to the caller.
func (r *SharedDashboardRepository) GetByToken(token string) (*models.SharedDashboard, error) {
	var share models.SharedDashboard
	err := r.db.Preload("Widgets").Where("share_token = ?", token).First(&share).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

// GetByProjectID retrieves all shares for a project, newest first
func (r *SharedDashboardRepository) GetByProjectID(projectID uint) ([]models.SharedDashboard, error) {
	var shares []models.SharedDashboard
	err := r.db.Preload("Widgets").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}
