package access_key

import (
	"fmt"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service handles access key issuance, lifecycle and verification
type Service struct {
	db            *gorm.DB
	accessKeyRepo *repository.AccessKeyRepository
	deviceRepo    *repository.DeviceRepository
}

// NewService creates a new access key service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:            db,
		accessKeyRepo: repository.NewAccessKeyRepository(db),
		deviceRepo:    repository.NewDeviceRepository(db),
	}
}

// Issue creates a new access key for a project. Project ownership is checked
// by the caller (ownership middleware). Every device id must belong to the
// project. The key row and its scoping rows are written in one transaction,
// and the plaintext pair is returned exactly once.
func (s *Service) Issue(req *models.CreateAccessKeyRequest) (*models.IssuedAccessKey, error) {
	if req.ValidDays <= 0 {
		return nil, apperrors.BadRequest("valid_duration_for_access_key must be a positive number of days")
	}

	// Exact-count membership check: every requested device must belong to
	// the issuing project.
	count, err := s.deviceRepo.CountByIDsInProject(req.DeviceIDs, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check devices: %w", err)
	}
	if count != int64(len(req.DeviceIDs)) {
		return nil, apperrors.NotFound("One or more devices not found or do not belong to this project")
	}

	client, secret, err := GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	expiresAt := ExpirationDate(req.ValidDays)
	key := &models.AccessKey{
		Name:          req.Name,
		ProjectID:     req.ProjectID,
		ClientKeyHash: HashKey(client),
		SecretKeyHash: HashKey(secret),
		ExpiresAt:     &expiresAt,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(key).Error; err != nil {
			return fmt.Errorf("failed to create access key: %w", err)
		}

		for _, domain := range req.Domains {
			row := models.AccessKeyDomain{DomainName: domain, AccessKeyID: key.ID}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create domain row: %w", err)
			}
		}

		for _, deviceID := range req.DeviceIDs {
			row := models.AccessKeyDevice{DeviceID: deviceID, AccessKeyID: key.ID}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to create device row: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.IssuedAccessKey{
		ID:        key.ID,
		Name:      key.Name,
		Client:    client,
		Secret:    secret,
		ExpiresAt: key.ExpiresAt,
		Domains:   req.Domains,
		DeviceIDs: req.DeviceIDs,
		IsExpired: key.IsExpired(),
	}, nil
}

// Update changes a key's name and/or its scoping sets. The credential
// material is never touched. Domain and device sets are diffed against the
// current rows; only added and removed rows are written, so unchanged rows
// keep their surrogate ids. An expired key cannot be updated.
func (s *Service) Update(key *models.AccessKey, req *models.UpdateAccessKeyRequest) error {
	if key.IsExpired() {
		return apperrors.InvalidState("Access key has expired and cannot be updated")
	}

	// Validate new devices against the key's project before opening the
	// transaction.
	if req.DeviceIDs != nil {
		count, err := s.deviceRepo.CountByIDsInProject(req.DeviceIDs, key.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to check devices: %w", err)
		}
		if count != int64(len(req.DeviceIDs)) {
			return apperrors.NotFound("One or more devices not found or do not belong to this project")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if req.Name != "" {
			err := tx.Model(&models.AccessKey{}).
				Where("access_key_id = ?", key.ID).
				Update("access_key_name", req.Name).Error
			if err != nil {
				return fmt.Errorf("failed to update name: %w", err)
			}
		}

		if req.Domains != nil {
			if err := s.diffDomains(tx, key.ID, req.Domains); err != nil {
				return err
			}
		}

		if req.DeviceIDs != nil {
			if err := s.diffDevices(tx, key.ID, req.DeviceIDs); err != nil {
				return err
			}
		}

		return nil
	})
}

// diffDomains reconciles the stored domain rows with the requested set,
// touching only the symmetric difference.
func (s *Service) diffDomains(tx *gorm.DB, keyID uint, requested []string) error {
	var existing []models.AccessKeyDomain
	if err := tx.Where("access_key_id = ?", keyID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load domain rows: %w", err)
	}

	requestedSet := make(map[string]bool, len(requested))
	for _, d := range requested {
		requestedSet[d] = true
	}
	existingSet := make(map[string]bool, len(existing))
	var removeIDs []uint
	for _, row := range existing {
		existingSet[row.DomainName] = true
		if !requestedSet[row.DomainName] {
			removeIDs = append(removeIDs, row.ID)
		}
	}

	if len(removeIDs) > 0 {
		err := tx.Where("access_key_domain_id IN ?", removeIDs).
			Delete(&models.AccessKeyDomain{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove domain rows: %w", err)
		}
	}

	for _, domain := range requested {
		if existingSet[domain] {
			continue
		}
		row := models.AccessKeyDomain{DomainName: domain, AccessKeyID: keyID}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add domain row: %w", err)
		}
	}

	return nil
}

// diffDevices reconciles the stored device rows with the requested set,
// touching only the symmetric difference.
func (s *Service) diffDevices(tx *gorm.DB, keyID uint, requested []uint) error {
	var existing []models.AccessKeyDevice
	if err := tx.Where("access_key_id = ?", keyID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load device rows: %w", err)
	}

	requestedSet := make(map[uint]bool, len(requested))
	for _, id := range requested {
		requestedSet[id] = true
	}
	existingSet := make(map[uint]bool, len(existing))
	var removeIDs []uint
	for _, row := range existing {
		existingSet[row.DeviceID] = true
		if !requestedSet[row.DeviceID] {
			removeIDs = append(removeIDs, row.ID)
		}
	}

	if len(removeIDs) > 0 {
		err := tx.Where("access_key_device_id IN ?", removeIDs).
			Delete(&models.AccessKeyDevice{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove device rows: %w", err)
		}
	}

	for _, deviceID := range requested {
		if existingSet[deviceID] {
			continue
		}
		row := models.AccessKeyDevice{DeviceID: deviceID, AccessKeyID: keyID}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add device row: %w", err)
		}
	}

	return nil
}

// Renew extends the expiration of a currently expired key. Renewing a live
// key is rejected; nothing else on the key changes.
func (s *Service) Renew(key *models.AccessKey, validDays int) (*models.AccessKey, error) {
	if validDays <= 0 {
		return nil, apperrors.BadRequest("valid_duration_for_access_key must be a positive number of days")
	}
	if !key.IsExpired() {
		return nil, apperrors.InvalidState("Access key is not expired and cannot be renewed")
	}

	expiresAt := ExpirationDate(validDays)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&models.AccessKey{}).
			Where("access_key_id = ?", key.ID).
			Update("expires_at", expiresAt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to renew access key: %w", err)
	}

	key.ExpiresAt = &expiresAt
	return key, nil
}

// Revoke deletes a key; the scoping rows cascade with it
func (s *Service) Revoke(key *models.AccessKey) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("access_key_id = ?", key.ID).Delete(&models.AccessKeyDomain{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete domain rows: %w", err)
		}
		err = tx.Where("access_key_id = ?", key.ID).Delete(&models.AccessKeyDevice{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete device rows: %w", err)
		}
		err = tx.Where("access_key_id = ?", key.ID).Delete(&models.AccessKey{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete access key: %w", err)
		}
		return nil
	})
}

// List returns key metadata for a project, never credential material
func (s *Service) List(projectID uint) ([]models.AccessKeyMetadata, error) {
	keys, err := s.accessKeyRepo.GetByProjectID(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}

	metadata := make([]models.AccessKeyMetadata, 0, len(keys))
	for i := range keys {
		metadata = append(metadata, models.AccessKeyMetadata{
			ID:         keys[i].ID,
			Name:       keys[i].Name,
			ProjectID:  keys[i].ProjectID,
			ExpiresAt:  keys[i].ExpiresAt,
			LastUsedAt: keys[i].LastUsedAt,
			IsExpired:  keys[i].IsExpired(),
		})
	}
	return metadata, nil
}

// Describe returns full metadata for one key including its scope sets
func (s *Service) Describe(keyID uint) (*models.AccessKeyMetadata, error) {
	key, err := s.accessKeyRepo.GetByIDWithScope(keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load access key: %w", err)
	}
	if key == nil {
		return nil, apperrors.NotFound("Access key not found")
	}

	return &models.AccessKeyMetadata{
		ID:         key.ID,
		Name:       key.Name,
		ProjectID:  key.ProjectID,
		ExpiresAt:  key.ExpiresAt,
		LastUsedAt: key.LastUsedAt,
		Domains:    key.DomainNames(),
		DeviceIDs:  key.DeviceIDs(),
		IsExpired:  key.IsExpired(),
	}, nil
}

// TouchLastUsed records use of a key. Verification does not call this by
// itself; call paths opt in explicitly.
func (s *Service) TouchLastUsed(keyID uint) {
	if err := s.accessKeyRepo.TouchLastUsed(keyID); err != nil {
		logrus.Warnf("Failed to update access key last use time: %v", err)
	}
}
