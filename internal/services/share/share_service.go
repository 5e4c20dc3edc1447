package share

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
)

// tokenByteLength is the entropy of a share token before hex encoding.
const tokenByteLength = 32

// GenerateShareToken creates a random 64-character hex share token
func GenerateShareToken() (string, error) {
	tokenBytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(tokenBytes), nil
}

// Service handles shared dashboard lifecycle and token resolution
type Service struct {
	db         *gorm.DB
	shareRepo  *repository.SharedDashboardRepository
	widgetRepo *repository.WidgetRepository
}

// NewService creates a new shared dashboard service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:         db,
		shareRepo:  repository.NewSharedDashboardRepository(db),
		widgetRepo: repository.NewWidgetRepository(db),
	}
}

// Create mints a share for a project. Project ownership is checked by the
// caller (ownership middleware). Every shared widget must belong to the
// project. The share row and its junction rows are written in one
// transaction.
func (s *Service) Create(req *models.CreateShareRequest) (*models.ShareMetadata, error) {
	if len(req.WidgetIDs) == 0 {
		return nil, apperrors.BadRequest("allowed_widget_ids must be a non-empty array")
	}

	count, err := s.widgetRepo.CountByIDsInProject(req.WidgetIDs, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check widgets: %w", err)
	}
	if count != int64(len(req.WidgetIDs)) {
		return nil, apperrors.BadRequest("One or more widget IDs are invalid or do not belong to this project")
	}

	token, err := GenerateShareToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	name := req.ShareName
	if name == "" {
		name = fmt.Sprintf("Share %s", time.Now().Format("2006-01-02"))
	}

	dashboard := &models.SharedDashboard{
		ShareToken: token,
		ProjectID:  req.ProjectID,
		ShareName:  name,
		IsActive:   true,
		ExpiresAt:  req.ExpiresAt,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dashboard).Error; err != nil {
			return fmt.Errorf("failed to create shared dashboard: %w", err)
		}

		for _, widgetID := range req.WidgetIDs {
			row := models.SharedDashboardWidget{ShareID: dashboard.ID, WidgetID: widgetID}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create share widget row: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.ShareMetadata{
		ID:         dashboard.ID,
		ShareToken: dashboard.ShareToken,
		ShareName:  dashboard.ShareName,
		ProjectID:  dashboard.ProjectID,
		WidgetIDs:  req.WidgetIDs,
		IsActive:   dashboard.IsActive,
		ExpiresAt:  dashboard.ExpiresAt,
		CreatedAt:  dashboard.CreatedAt,
		UpdatedAt:  dashboard.UpdatedAt,
	}, nil
}

// Update changes a share's widget set, name, active flag or expiry. The token
// never changes. The widget set is diffed against the current junction rows;
// only added and removed rows are written, so unchanged rows keep their
// surrogate ids.
func (s *Service) Update(dashboard *models.SharedDashboard, req *models.UpdateShareRequest) error {
	if req.WidgetIDs != nil {
		if len(req.WidgetIDs) == 0 {
			return apperrors.BadRequest("allowed_widget_ids cannot be empty")
		}
		count, err := s.widgetRepo.CountByIDsInProject(req.WidgetIDs, dashboard.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to check widgets: %w", err)
		}
		if count != int64(len(req.WidgetIDs)) {
			return apperrors.BadRequest("One or more widget IDs are invalid or do not belong to this project")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if req.ShareName != nil {
			updates["share_name"] = *req.ShareName
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}
		if req.ExpiresAt != nil {
			updates["expires_at"] = *req.ExpiresAt
		}
		if len(updates) > 0 {
			err := tx.Model(&models.SharedDashboard{}).
				Where("share_id = ?", dashboard.ID).
				Updates(updates).Error
			if err != nil {
				return fmt.Errorf("failed to update shared dashboard: %w", err)
			}
		}

		if req.WidgetIDs != nil {
			if err := s.diffWidgets(tx, dashboard.ID, req.WidgetIDs); err != nil {
				return err
			}
		}

		return nil
	})
}

// diffWidgets reconciles the stored junction rows with the requested widget
// set, touching only the symmetric difference.
func (s *Service) diffWidgets(tx *gorm.DB, shareID uint, requested []uint) error {
	var existing []models.SharedDashboardWidget
	if err := tx.Where("share_id = ?", shareID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load share widget rows: %w", err)
	}

	requestedSet := make(map[uint]bool, len(requested))
	for _, id := range requested {
		requestedSet[id] = true
	}
	existingSet := make(map[uint]bool, len(existing))
	var removeIDs []uint
	for _, row := range existing {
		existingSet[row.WidgetID] = true
		if !requestedSet[row.WidgetID] {
			removeIDs = append(removeIDs, row.ID)
		}
	}

	if len(removeIDs) > 0 {
		err := tx.Where("id IN ?", removeIDs).
			Delete(&models.SharedDashboardWidget{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove share widget rows: %w", err)
		}
	}

	for _, widgetID := range requested {
		if existingSet[widgetID] {
			continue
		}
		row := models.SharedDashboardWidget{ShareID: shareID, WidgetID: widgetID}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add share widget row: %w", err)
		}
	}

	return nil
}

// Delete revokes a share; its junction rows go with it
func (s *Service) Delete(dashboard *models.SharedDashboard) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("share_id = ?", dashboard.ID).Delete(&models.SharedDashboardWidget{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete share widget rows: %w", err)
		}
		err = tx.Where("share_id = ?", dashboard.ID).Delete(&models.SharedDashboard{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete shared dashboard: %w", err)
		}
		return nil
	})
}

// ListByProject returns share metadata for a project, newest first
func (s *Service) ListByProject(projectID uint) ([]models.ShareMetadata, error) {
	shares, err := s.shareRepo.GetByProjectID(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared dashboards: %w", err)
	}

	metadata := make([]models.ShareMetadata, 0, len(shares))
	for i := range shares {
		metadata = append(metadata, *Metadata(&shares[i]))
	}
	return metadata, nil
}

// Describe returns metadata for one share including its widget set
func (s *Service) Describe(shareID uint) (*models.ShareMetadata, error) {
	dashboard, err := s.shareRepo.GetByID(shareID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shared dashboard: %w", err)
	}
	if dashboard == nil {
		return nil, apperrors.NotFound("Shared dashboard not found")
	}
	return Metadata(dashboard), nil
}

// ResolveToken loads the share behind a public token. Unknown, inactive and
// expired tokens are indistinguishable to the caller.
func (s *Service) ResolveToken(token string) (*models.SharedDashboard, error) {
	dashboard, err := s.shareRepo.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to load shared dashboard: %w", err)
	}
	if dashboard == nil || !dashboard.IsActive || dashboard.IsExpired() {
		return nil, apperrors.NotFound("Shared dashboard not found or has expired")
	}
	return dashboard, nil
}

// Metadata flattens a share row into its metadata shape
func Metadata(dashboard *models.SharedDashboard) *models.ShareMetadata {
	return &models.ShareMetadata{
		ID:         dashboard.ID,
		ShareToken: dashboard.ShareToken,
		ShareName:  dashboard.ShareName,
		ProjectID:  dashboard.ProjectID,
		WidgetIDs:  dashboard.WidgetIDs(),
		IsActive:   dashboard.IsActive,
		ExpiresAt:  dashboard.ExpiresAt,
		CreatedAt:  dashboard.CreatedAt,
		UpdatedAt:  dashboard.UpdatedAt,
	}
}
