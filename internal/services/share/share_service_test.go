package share_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/share"
)

func TestGenerateShareToken(t *testing.T) {
	t.Run("Should produce distinct 64-character hex tokens", func(t *testing.T) {
		first, err := share.GenerateShareToken()
		require.NoError(t, err)
		second, err := share.GenerateShareToken()
		require.NoError(t, err)

		assert.Len(t, first, 64)
		assert.Regexp(t, "^[0-9a-f]+$", first)
		assert.NotEqual(t, first, second)
	})
}

func TestCreate(t *testing.T) {
	t.Run("Should create a share with its widget rows", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)

		metadata, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[0].ID, widgets[1].ID},
			ShareName: "Customer view",
		})
		require.NoError(t, err)

		assert.Len(t, metadata.ShareToken, 64)
		assert.Equal(t, "Customer view", metadata.ShareName)
		assert.True(t, metadata.IsActive)
		assert.Nil(t, metadata.ExpiresAt)
		assert.ElementsMatch(t, []uint{widgets[0].ID, widgets[1].ID}, metadata.WidgetIDs)

		var rows []models.SharedDashboardWidget
		require.NoError(t, db.Where("share_id = ?", metadata.ID).Find(&rows).Error)
		assert.Len(t, rows, 2)
	})

	t.Run("Should default the share name", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)

		metadata, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[0].ID},
		})
		require.NoError(t, err)
		assert.Contains(t, metadata.ShareName, "Share ")
	})

	t.Run("Should reject an empty widget set", func(t *testing.T) {
		db := newTestDB(t)
		project, _ := seedProject(t, db)
		svc := share.NewService(db)

		_, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{},
		})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
	})

	t.Run("Should reject widgets outside the project", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)

		_, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[0].ID, 9999},
		})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))

		// Nothing persisted.
		var count int64
		require.NoError(t, db.Model(&models.SharedDashboard{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestUpdate(t *testing.T) {
	create := func(t *testing.T, db *gorm.DB, svc *share.Service, projectID uint, widgetIDs []uint) *models.SharedDashboard {
		t.Helper()
		metadata, err := svc.Create(&models.CreateShareRequest{
			ProjectID: projectID,
			WidgetIDs: widgetIDs,
			ShareName: "initial",
		})
		require.NoError(t, err)
		var dashboard models.SharedDashboard
		require.NoError(t, db.Preload("Widgets").First(&dashboard, "share_id = ?", metadata.ID).Error)
		return &dashboard
	}

	t.Run("Should diff the widget set keeping unchanged rows", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)
		dashboard := create(t, db, svc, project.ID, []uint{widgets[0].ID, widgets[1].ID})

		var keptRow models.SharedDashboardWidget
		require.NoError(t, db.First(&keptRow, "share_id = ? AND widget_id = ?", dashboard.ID, widgets[0].ID).Error)

		err := svc.Update(dashboard, &models.UpdateShareRequest{
			WidgetIDs: []uint{widgets[0].ID},
		})
		require.NoError(t, err)

		var rows []models.SharedDashboardWidget
		require.NoError(t, db.Where("share_id = ?", dashboard.ID).Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.Equal(t, widgets[0].ID, rows[0].WidgetID)
		assert.Equal(t, keptRow.ID, rows[0].ID)
	})

	t.Run("Should reject an empty widget set", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)
		dashboard := create(t, db, svc, project.ID, []uint{widgets[0].ID})

		err := svc.Update(dashboard, &models.UpdateShareRequest{WidgetIDs: []uint{}})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
	})

	t.Run("Should update name, active flag and expiry without touching the token", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)
		dashboard := create(t, db, svc, project.ID, []uint{widgets[0].ID})
		originalToken := dashboard.ShareToken

		name := "renamed"
		inactive := false
		expiresAt := time.Now().Add(48 * time.Hour)
		err := svc.Update(dashboard, &models.UpdateShareRequest{
			ShareName: &name,
			IsActive:  &inactive,
			ExpiresAt: &expiresAt,
		})
		require.NoError(t, err)

		var stored models.SharedDashboard
		require.NoError(t, db.First(&stored, "share_id = ?", dashboard.ID).Error)
		assert.Equal(t, "renamed", stored.ShareName)
		assert.False(t, stored.IsActive)
		require.NotNil(t, stored.ExpiresAt)
		assert.WithinDuration(t, expiresAt, *stored.ExpiresAt, time.Second)
		assert.Equal(t, originalToken, stored.ShareToken)
	})
}

func TestDelete(t *testing.T) {
	t.Run("Should remove the share and its widget rows", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)

		metadata, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[0].ID, widgets[1].ID},
		})
		require.NoError(t, err)

		var dashboard models.SharedDashboard
		require.NoError(t, db.First(&dashboard, "share_id = ?", metadata.ID).Error)
		require.NoError(t, svc.Delete(&dashboard))

		var shareCount, rowCount int64
		require.NoError(t, db.Model(&models.SharedDashboard{}).Count(&shareCount).Error)
		require.NoError(t, db.Model(&models.SharedDashboardWidget{}).Count(&rowCount).Error)
		assert.Zero(t, shareCount)
		assert.Zero(t, rowCount)
	})
}

func TestListByProject(t *testing.T) {
	t.Run("Should list shares with their widget sets", func(t *testing.T) {
		db := newTestDB(t)
		project, widgets := seedProject(t, db)
		svc := share.NewService(db)

		_, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[0].ID},
			ShareName: "first",
		})
		require.NoError(t, err)
		_, err = svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[1].ID},
			ShareName: "second",
		})
		require.NoError(t, err)

		shares, err := svc.ListByProject(project.ID)
		require.NoError(t, err)
		require.Len(t, shares, 2)
		for _, s := range shares {
			assert.Len(t, s.WidgetIDs, 1)
			assert.Len(t, s.ShareToken, 64)
		}
	})
}

func TestResolveToken(t *testing.T) {
	newShare := func(t *testing.T, db *gorm.DB, svc *share.Service) *models.ShareMetadata {
		t.Helper()
		project, widgets := seedProject(t, db)
		metadata, err := svc.Create(&models.CreateShareRequest{
			ProjectID: project.ID,
			WidgetIDs: []uint{widgets[0].ID},
		})
		require.NoError(t, err)
		return metadata
	}

	t.Run("Should resolve a live token with its widget set", func(t *testing.T) {
		db := newTestDB(t)
		svc := share.NewService(db)
		metadata := newShare(t, db, svc)

		dashboard, err := svc.ResolveToken(metadata.ShareToken)
		require.NoError(t, err)
		assert.Equal(t, metadata.ID, dashboard.ID)
		assert.Equal(t, metadata.WidgetIDs, dashboard.WidgetIDs())
	})

	t.Run("Should not resolve an unknown token", func(t *testing.T) {
		db := newTestDB(t)
		svc := share.NewService(db)

		_, err := svc.ResolveToken("deadbeef")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("Should not resolve a deactivated token", func(t *testing.T) {
		db := newTestDB(t)
		svc := share.NewService(db)
		metadata := newShare(t, db, svc)

		require.NoError(t, db.Model(&models.SharedDashboard{}).
			Where("share_id = ?", metadata.ID).
			Update("is_active", false).Error)

		_, err := svc.ResolveToken(metadata.ShareToken)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("Should not resolve an expired token", func(t *testing.T) {
		db := newTestDB(t)
		svc := share.NewService(db)
		metadata := newShare(t, db, svc)

		expired := time.Now().Add(-time.Hour)
		require.NoError(t, db.Model(&models.SharedDashboard{}).
			Where("share_id = ?", metadata.ID).
			Update("expires_at", expired).Error)

		_, err := svc.ResolveToken(metadata.ShareToken)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})
}
