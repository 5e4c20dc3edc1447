package share_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
)

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

// seedProject creates a user, a project with one dataset and two widgets
func seedProject(t *testing.T, db *gorm.DB) (*models.Project, []models.Widget) {
	t.Helper()

	user := models.User{Email: "owner@example.com", PasswordHash: "x", DisplayName: "Owner"}
	require.NoError(t, db.Create(&user).Error)

	project := models.Project{Name: "Greenhouse", UserID: user.ID}
	require.NoError(t, db.Create(&project).Error)

	table := models.DataTable{Name: "climate", ProjectID: project.ID}
	require.NoError(t, db.Create(&table).Error)

	widgets := []models.Widget{
		{Name: "Gauge", WidgetType: models.WidgetTypeGauge, ProjectID: project.ID, Dataset: table.ID},
		{Name: "Chart", WidgetType: models.WidgetTypeChart, ProjectID: project.ID, Dataset: table.ID},
	}
	for i := range widgets {
		require.NoError(t, db.Create(&widgets[i]).Error)
	}

	return &project, widgets
}
