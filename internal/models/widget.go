package models

import (
	"time"
)

// WidgetType is the closed set of widget kinds. Each kind has its own
// configuration record and its own query-and-reshape projection.
type WidgetType int

const (
	WidgetTypeChart          WidgetType = 1
	WidgetTypeParameterTable WidgetType = 2
	WidgetTypeToggle         WidgetType = 3
	WidgetTypeGauge          WidgetType = 4
	WidgetTypeMetric         WidgetType = 5
)

// String returns the widget kind name for logging
func (t WidgetType) String() string {
	switch t {
	case WidgetTypeChart:
		return "chart"
	case WidgetTypeParameterTable:
		return "parameter_table"
	case WidgetTypeToggle:
		return "toggle"
	case WidgetTypeGauge:
		return "gauge"
	case WidgetTypeMetric:
		return "metric"
	default:
		return "unknown"
	}
}

// Widget binds a dashboard widget to a project and a dataset. The per-type
// configuration lives in the type-specific record.
type Widget struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Name       string     `json:"widget_name" gorm:"column:widget_name;type:varchar(255);not null"`
	WidgetType WidgetType `json:"widget_type" gorm:"not null;index"`
	ProjectID  uint       `json:"project_id" gorm:"not null;index"`
	Dataset    uint       `json:"dataset" gorm:"not null"`

	// Relationships
	Project   Project   `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	DataTable DataTable `json:"data_table,omitempty" gorm:"foreignKey:Dataset;references:ID"`
}

// TableName specifies the table name for the Widget model
func (Widget) TableName() string {
	return "widgets"
}

// ChartWidget configures a chart widget. XAxisColumnID selects the column
// used for x values; nil means the ingestion timestamp.
type ChartWidget struct {
	ID            uint  `json:"id" gorm:"primaryKey"`
	WidgetID      uint  `json:"widget_id" gorm:"not null;uniqueIndex"`
	XAxisColumnID *uint `json:"x_axis_clm_id" gorm:"column:x_axis_clm_id"`

	// Relationships
	Widget      Widget        `json:"-" gorm:"foreignKey:WidgetID;references:ID;constraint:OnDelete:CASCADE"`
	XAxisColumn *Column       `json:"x_axis_column,omitempty" gorm:"foreignKey:XAxisColumnID;references:ID"`
	Series      []ChartSeries `json:"series,omitempty" gorm:"foreignKey:ChartWidgetID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the ChartWidget model
func (ChartWidget) TableName() string {
	return "chart_widgets"
}

// ChartSeries is one named y-series of a chart widget
type ChartSeries struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	ChartWidgetID uint   `json:"chart_widget_id" gorm:"not null;index"`
	ColumnID      uint   `json:"clm_id" gorm:"column:clm_id;not null"`
	DeviceID      uint   `json:"device_id" gorm:"not null"`
	SeriesName    string `json:"series_name" gorm:"type:varchar(255);not null"`

	// Relationships
	Column Column `json:"column,omitempty" gorm:"foreignKey:ColumnID;references:ID"`
}

// TableName specifies the table name for the ChartSeries model
func (ChartSeries) TableName() string {
	return "chart_series"
}

// GaugeWidget configures a gauge widget: one numeric column, optionally one
// device.
type GaugeWidget struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	WidgetID uint    `json:"widget_id" gorm:"not null;uniqueIndex"`
	ColumnID uint    `json:"clm_id" gorm:"column:clm_id;not null"`
	DeviceID *uint   `json:"device_id"`
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`

	// Relationships
	Widget Widget  `json:"-" gorm:"foreignKey:WidgetID;references:ID;constraint:OnDelete:CASCADE"`
	Column Column  `json:"column,omitempty" gorm:"foreignKey:ColumnID;references:ID"`
	Device *Device `json:"device,omitempty" gorm:"foreignKey:DeviceID;references:ID"`
}

// TableName specifies the table name for the GaugeWidget model
func (GaugeWidget) TableName() string {
	return "gauge_widgets"
}

// ToggleWidget configures a toggle widget: one boolean column, optionally one
// device.
type ToggleWidget struct {
	ID       uint  `json:"id" gorm:"primaryKey"`
	WidgetID uint  `json:"widget_id" gorm:"not null;uniqueIndex"`
	ColumnID uint  `json:"clm_id" gorm:"column:clm_id;not null"`
	DeviceID *uint `json:"device_id"`

	// Relationships
	Widget Widget  `json:"-" gorm:"foreignKey:WidgetID;references:ID;constraint:OnDelete:CASCADE"`
	Column Column  `json:"column,omitempty" gorm:"foreignKey:ColumnID;references:ID"`
	Device *Device `json:"device,omitempty" gorm:"foreignKey:DeviceID;references:ID"`
}

// TableName specifies the table name for the ToggleWidget model
func (ToggleWidget) TableName() string {
	return "toggle_widgets"
}

// MetricWidget configures a metric widget: latest value of one column,
// optionally one device. Numeric-looking strings are parsed opportunistically
// at query time.
type MetricWidget struct {
	ID       uint  `json:"id" gorm:"primaryKey"`
	WidgetID uint  `json:"widget_id" gorm:"not null;uniqueIndex"`
	ColumnID uint  `json:"clm_id" gorm:"column:clm_id;not null"`
	DeviceID *uint `json:"device_id"`

	// Relationships
	Widget Widget  `json:"-" gorm:"foreignKey:WidgetID;references:ID;constraint:OnDelete:CASCADE"`
	Column Column  `json:"column,omitempty" gorm:"foreignKey:ColumnID;references:ID"`
	Device *Device `json:"device,omitempty" gorm:"foreignKey:DeviceID;references:ID"`
}

// TableName specifies the table name for the MetricWidget model
func (MetricWidget) TableName() string {
	return "metric_widgets"
}

// ParameterTableWidget configures one row of a parameter table widget: a
// named parameter bound to a column and optionally a device.
type ParameterTableWidget struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	WidgetID      uint   `json:"widget_id" gorm:"not null;index"`
	ColumnID      uint   `json:"clm_id" gorm:"column:clm_id;not null"`
	DeviceID      *uint  `json:"device_id"`
	ParameterName string `json:"parameter_name" gorm:"type:varchar(255);not null"`
	Unit          string `json:"unit" gorm:"type:varchar(64)"`

	// Relationships
	Widget Widget  `json:"-" gorm:"foreignKey:WidgetID;references:ID;constraint:OnDelete:CASCADE"`
	Column Column  `json:"column,omitempty" gorm:"foreignKey:ColumnID;references:ID"`
	Device *Device `json:"device,omitempty" gorm:"foreignKey:DeviceID;references:ID"`
}

// TableName specifies the table name for the ParameterTableWidget model
func (ParameterTableWidget) TableName() string {
	return "parameter_table_widgets"
}
