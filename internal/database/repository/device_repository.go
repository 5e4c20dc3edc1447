package repository

import (
	"errors"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// DeviceRepository handles database operations for Device entities
type DeviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new DeviceRepository instance
func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// GetByID retrieves a device by ID
func (r *DeviceRepository) GetByID(id uint) (*models.Device, error) {
	var device models.Device
	if err := r.db.Where("device_id = ?", id).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &device, nil
}

// GetByProjectID retrieves all devices belonging to a project
func (r *DeviceRepository) GetByProjectID(projectID uint) ([]models.Device, error) {
	var devices []models.Device
	if err := r.db.Where("project_id = ?", projectID).Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// GetByFingerprint retrieves a device by its reported fingerprint within a
// project
func (r *DeviceRepository) GetByFingerprint(projectID uint, fingerprint string) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("project_id = ? AND fingerprint = ?", projectID, fingerprint).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// CountByIDsInProject counts how many of the given device ids belong to the
// project. Used for the exact-count membership check during key issuance.
func (r *DeviceRepository) CountByIDsInProject(deviceIDs []uint, projectID uint) (int64, error) {
	if len(deviceIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Device{}).
		Where("device_id IN ? AND project_id = ?", deviceIDs, projectID).
		Count(&count).Error
	return count, err
}
