package middleware_test

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
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

// seedOwner creates two users and a project owned by the first
func seedOwner(t *testing.T, db *gorm.DB) (owner, other *models.User, project *models.Project) {
	t.Helper()

	ownerUser := models.User{Email: "owner@example.com", PasswordHash: "x", DisplayName: "Owner"}
	require.NoError(t, db.Create(&ownerUser).Error)
	otherUser := models.User{Email: "other@example.com", PasswordHash: "x", DisplayName: "Other"}
	require.NoError(t, db.Create(&otherUser).Error)

	p := models.Project{Name: "Greenhouse", UserID: ownerUser.ID}
	require.NoError(t, db.Create(&p).Error)

	return &ownerUser, &otherUser, &p
}

// asUser returns a middleware that plants an authenticated user id, standing
// in for the bearer token middleware.
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}
