package repository

import (
	"errors"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// ColumnRepository handles database operations for the column registry
type ColumnRepository struct {
	db *gorm.DB
}

// NewColumnRepository creates a new ColumnRepository instance
func NewColumnRepository(db *gorm.DB) *ColumnRepository {
	return &ColumnRepository{db: db}
}

// GetByID retrieves a column registry row by ID
func (r *ColumnRepository) GetByID(id uint) (*models.Column, error) {
	var column models.Column
	if err := r.db.Where("clm_id = ?", id).First(&column).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &column, nil
}

// GetByTableID retrieves all columns registered for a dataset
func (r *ColumnRepository) GetByTableID(tableID uint) ([]models.Column, error) {
	var columns []models.Column
	if err := r.db.Where("tbl_id = ?", tableID).Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}
