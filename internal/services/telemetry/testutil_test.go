package telemetry_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
)

// fixture is a seeded project with one dataset, its physical table and two
// devices.
type fixture struct {
	db      *gorm.DB
	project *models.Project
	table   *models.DataTable
	devices []models.Device
	columns map[string]models.Column
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// newFixture seeds the registry and creates the physical dataset table with
// temperature (number), active (boolean) and label (string) columns.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	user := models.User{Email: "owner@example.com", PasswordHash: "x", DisplayName: "Owner"}
	require.NoError(t, db.Create(&user).Error)

	project := models.Project{Name: "Greenhouse", UserID: user.ID}
	require.NoError(t, db.Create(&project).Error)

	devices := []models.Device{
		{Name: "Sensor A", Fingerprint: "fp-a", ProjectID: project.ID},
		{Name: "Sensor B", Fingerprint: "fp-b", ProjectID: project.ID},
	}
	for i := range devices {
		require.NoError(t, db.Create(&devices[i]).Error)
	}

	table := models.DataTable{Name: "climate", ProjectID: project.ID}
	require.NoError(t, db.Create(&table).Error)

	columns := map[string]models.Column{}
	seed := []models.Column{
		{Name: telemetry.SystemColumnID, DataType: models.ColumnTypeNumber, IsSystemColumn: true, TableID: table.ID},
		{Name: telemetry.SystemColumnDevice, DataType: models.ColumnTypeNumber, IsSystemColumn: true, TableID: table.ID},
		{Name: telemetry.SystemColumnCreatedAt, DataType: models.ColumnTypeString, IsSystemColumn: true, TableID: table.ID},
		{Name: "temperature", DataType: models.ColumnTypeNumber, Unit: "C", TableID: table.ID},
		{Name: "active", DataType: models.ColumnTypeBoolean, TableID: table.ID},
		{Name: "label", DataType: models.ColumnTypeString, TableID: table.ID},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
		columns[seed[i].Name] = seed[i]
	}

	createTable := fmt.Sprintf(
		`CREATE TABLE %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			temperature REAL,
			active BOOLEAN,
			label TEXT
		)`, telemetry.PhysicalTableName(table.ID))
	require.NoError(t, db.Exec(createTable).Error)

	return &fixture{db: db, project: &project, table: &table, devices: devices, columns: columns}
}

// insertRow writes one row into the fixture's physical table
func (f *fixture) insertRow(t *testing.T, deviceID uint, temperature interface{}, active interface{}, label interface{}) {
	t.Helper()
	insert := fmt.Sprintf(
		"INSERT INTO %s (device, created_at, temperature, active, label) VALUES (?, ?, ?, ?, ?)",
		telemetry.PhysicalTableName(f.table.ID))
	require.NoError(t, f.db.Exec(insert, deviceID, time.Now(), temperature, active, label).Error)
}

// newWidget creates a widget bound to the fixture's dataset
func (f *fixture) newWidget(t *testing.T, widgetType models.WidgetType) *models.Widget {
	t.Helper()
	widget := models.Widget{
		Name:       "test-widget",
		WidgetType: widgetType,
		ProjectID:  f.project.ID,
		Dataset:    f.table.ID,
	}
	require.NoError(t, f.db.Create(&widget).Error)
	return &widget
}
