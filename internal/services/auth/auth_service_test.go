package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/auth"
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

func seedUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Email: email, PasswordHash: string(hash), DisplayName: "Owner"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestNewAuthService(t *testing.T) {
	t.Run("Should fail without a signing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		db := newTestDB(t)

		_, err := auth.NewAuthService(db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("Should construct with a signing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		db := newTestDB(t)

		svc, err := auth.NewAuthService(db)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})
}

func TestLogin(t *testing.T) {
	t.Run("Should issue a token that validates", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		db := newTestDB(t)
		user := seedUser(t, db, "owner@example.com", "hunter22")

		svc, err := auth.NewAuthService(db)
		require.NoError(t, err)

		resp, err := svc.Login(&models.LoginRequest{Email: "owner@example.com", Password: "hunter22"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Positive(t, resp.ExpiresIn)

		info, err := svc.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, info.UserID)
		assert.Equal(t, "owner@example.com", info.Email)
	})

	t.Run("Should reject a wrong password", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")
		db := newTestDB(t)
		seedUser(t, db, "owner@example.com", "hunter22")

		svc, err := auth.NewAuthService(db)
		require.NoError(t, err)

		_, err = svc.Login(&models.LoginRequest{Email: "owner@example.com", Password: "wrong"})
		require.Error(t, err)
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		db := newTestDB(t)
		seedUser(t, db, "owner@example.com", "hunter22")

		t.Setenv("JWT_SECRET", "first-secret")
		first, err := auth.NewAuthService(db)
		require.NoError(t, err)
		resp, err := first.Login(&models.LoginRequest{Email: "owner@example.com", Password: "hunter22"})
		require.NoError(t, err)

		t.Setenv("JWT_SECRET", "second-secret")
		second, err := auth.NewAuthService(db)
		require.NoError(t, err)

		_, err = second.ValidateToken(resp.AccessToken)
		require.Error(t, err)
	})
}
