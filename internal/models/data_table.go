package models

import (
	"time"
)

// Column data types recorded in the dataset registry.
const (
	ColumnTypeNumber  = 1
	ColumnTypeBoolean = 2
	ColumnTypeString  = 3
)

// DataTable is the registry row for one dataset. Telemetry rows for the
// dataset live in a dedicated physical table addressed from the surrogate id
// (see telemetry.PhysicalTableName), never from a caller-supplied string.
type DataTable struct {
	ID        uint      `json:"tbl_id" gorm:"column:tbl_id;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `json:"tbl_name" gorm:"column:tbl_name;type:varchar(255);not null"`
	ProjectID uint      `json:"project_id" gorm:"not null;index"`

	// Relationships
	Project Project  `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	Columns []Column `json:"columns,omitempty" gorm:"foreignKey:TableID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the DataTable model
func (DataTable) TableName() string {
	return "data_tables"
}

// Column is the registry row for one column of a dataset. Column names placed
// into telemetry queries must come from this registry.
type Column struct {
	ID             uint   `json:"clm_id" gorm:"column:clm_id;primaryKey"`
	Name           string `json:"clm_name" gorm:"column:clm_name;type:varchar(255);not null"`
	DataType       int    `json:"data_type" gorm:"not null"`
	Unit           string `json:"unit" gorm:"type:varchar(64)"`
	IsSystemColumn bool   `json:"is_system_column" gorm:"default:false"`
	TableID        uint   `json:"tbl_id" gorm:"column:tbl_id;not null;index"`

	// Relationships
	DataTable DataTable `json:"-" gorm:"foreignKey:TableID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Column model
func (Column) TableName() string {
	return "columns"
}
