package repository

import (
	"errors"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// WidgetRepository handles database reads for widgets and their per-type
// configuration records. Widget CRUD belongs to the dashboard configuration
// surface; the query engine only resolves configurations.
type WidgetRepository struct {
	db *gorm.DB
}

// NewWidgetRepository creates a new WidgetRepository instance
func NewWidgetRepository(db *gorm.DB) *WidgetRepository {
	return &WidgetRepository{db: db}
}

// GetByID retrieves a widget by ID
func (r *WidgetRepository) GetByID(id uint) (*models.Widget, error) {
	var widget models.Widget
	if err := r.db.Where("id = ?", id).First(&widget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Return nil, nil when not found
		}
		return nil, err
	}
	return &widget, nil
}

// GetByIDsInProject retrieves the widgets among the given ids that belong to
// the project
func (r *WidgetRepository) GetByIDsInProject(ids []uint, projectID uint) ([]models.Widget, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var widgets []models.Widget
	err := r.db.Where("id IN ? AND project_id = ?", ids, projectID).Find(&widgets).Error
	if err != nil {
		return nil, err
	}
	return widgets, nil
}

// CountByIDsInProject counts how many of the given widget ids belong to the
// project. Used for the exact-count membership check when sharing widgets.
func (r *WidgetRepository) CountByIDsInProject(ids []uint, projectID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.Widget{}).
		Where("id IN ? AND project_id = ?", ids, projectID).
		Count(&count).Error
	return count, err
}

// GetChartConfig retrieves the chart configuration for a widget with its
// series and column bindings preloaded
func (r *WidgetRepository) GetChartConfig(widgetID uint) (*models.ChartWidget, error) {
	var config models.ChartWidget
	err := r.db.Preload("Series").Preload("Series.Column").Preload("XAxisColumn").
		Where("widget_id = ?", widgetID).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// GetGaugeConfig retrieves the gauge configuration for a widget
func (r *WidgetRepository) GetGaugeConfig(widgetID uint) (*models.GaugeWidget, error) {
	var config models.GaugeWidget
	err := r.db.Preload("Column").Where("widget_id = ?", widgetID).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// GetToggleConfig retrieves the toggle configuration for a widget
func (r *WidgetRepository) GetToggleConfig(widgetID uint) (*models.ToggleWidget, error) {
	var config models.ToggleWidget
	err := r.db.Preload("Column").Where("widget_id = ?", widgetID).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// GetMetricConfig retrieves the metric configuration for a widget
func (r *WidgetRepository) GetMetricConfig(widgetID uint) (*models.MetricWidget, error) {
	var config models.MetricWidget
	err := r.db.Preload("Column").Where("widget_id = ?", widgetID).First(&config).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// GetParameterTableConfig retrieves all parameter rows configured for a
// parameter table widget
func (r *WidgetRepository) GetParameterTableConfig(widgetID uint) ([]models.ParameterTableWidget, error) {
	var config []models.ParameterTableWidget
	err := r.db.Preload("Column").Preload("Device").
		Where("widget_id = ?", widgetID).Find(&config).Error
	if err != nil {
		return nil, err
	}
	return config, nil
}
