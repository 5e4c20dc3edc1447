package repository

import (
	"errors"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// DataTableRepository handles database operations for the dataset registry
type DataTableRepository struct {
	db *gorm.DB
}

// NewDataTableRepository creates a new DataTableRepository instance
func NewDataTableRepository(db *gorm.DB) *DataTableRepository {
	return &DataTableRepository{db: db}
}

// GetByID retrieves a dataset registry row by ID
func (r *DataTableRepository) GetByID(id uint) (*models.DataTable, error) {
	var table models.DataTable
	if err := r.db.Where("tbl_id = ?", id).First(&table).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &table, nil
}

// GetByName retrieves a dataset by name within a project
func (r *DataTableRepository) GetByName(projectID uint, name string) (*models.DataTable, error) {
	var table models.DataTable
	err := r.db.Where("project_id = ? AND tbl_name = ?", projectID, name).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}

// GetByIDInProject retrieves a dataset by ID, constrained to a project
func (r *DataTableRepository) GetByIDInProject(id, projectID uint) (*models.DataTable, error) {
	var table models.DataTable
	err := r.db.Where("tbl_id = ? AND project_id = ?", id, projectID).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &table, nil
}
