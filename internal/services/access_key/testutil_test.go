package access_key_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
)

// newTestDB opens an isolated in-memory database with the full schema
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

// seedProject creates a user, a project owned by it and two devices
func seedProject(t *testing.T, db *gorm.DB) (*models.Project, []models.Device) {
	t.Helper()

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

	return &project, devices
}

// expireKey backdates a key's expiration so it reads as expired
func expireKey(t *testing.T, db *gorm.DB, keyID uint) {
	t.Helper()
	past := time.Now().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.AccessKey{}).
		Where("access_key_id = ?", keyID).
		Update("expires_at", past).Error)
}
