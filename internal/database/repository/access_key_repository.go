package repository

import (
	"errors"
	"time"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// AccessKeyRepository handles database operations for AccessKey entities and
// their scoping rows
type AccessKeyRepository struct {
	db *gorm.DB
}

// NewAccessKeyRepository creates a new AccessKeyRepository instance
func NewAccessKeyRepository(db *gorm.DB) *AccessKeyRepository {
	return &AccessKeyRepository{db: db}
}

// GetByID retrieves an access key by ID, without scoping rows
func (r *AccessKeyRepository) GetByID(id uint) (*models.AccessKey, error) {
	var key models.AccessKey
	if err := r.db.Where("access_key_id = ?", id).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &key, nil
}

// GetByIDWithScope retrieves an access key with its domain and device rows
// preloaded
func (r *AccessKeyRepository) GetByIDWithScope(id uint) (*models.AccessKey, error) {
	var key models.AccessKey
	err := r.db.Preload("Domains").Preload("Devices").
		Where("access_key_id = ?", id).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// GetByProjectID retrieves all access keys issued for a project
func (r *AccessKeyRepository) GetByProjectID(projectID uint) ([]models.AccessKey, error) {
	var keys []models.AccessKey
	if err := r.db.Where("project_id = ?", projectID).Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// GetByHashedPair looks up an access key by project and hashed credential
// pair, preloading its scoping rows. This is the verification lookup: the
// plaintext never reaches the database.
func (r *AccessKeyRepository) GetByHashedPair(projectID uint, clientHash, secretHash string) (*models.AccessKey, error) {
	var key models.AccessKey
	err := r.db.Preload("Domains").Preload("Devices").
		Where("project_id = ? AND client_key_hash = ? AND secret_key_hash = ?",
			projectID, clientHash, secretHash).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// TouchLastUsed updates the last used timestamp for an access key
func (r *AccessKeyRepository) TouchLastUsed(id uint) error {
	now := time.Now()
	return r.db.Model(&models.AccessKey{}).
		Where("access_key_id = ?", id).
		Update("last_used_at", now).Error
}
