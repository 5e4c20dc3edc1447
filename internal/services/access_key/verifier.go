package access_key

import (
	"fmt"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
)

// VerificationStatus tags the outcome of verifying one presented pair
type VerificationStatus int

const (
	StatusVerified VerificationStatus = iota + 1
	StatusNotFound
	StatusExpired
)

// VerificationResult is the tagged per-pair outcome of a batch verification.
// The caller decides whether partial success is sufficient.
type VerificationResult struct {
	Pair   models.AccessKeyCredentials
	Status VerificationStatus
	Key    *models.AccessKey // set only when Status == StatusVerified
}

// VerifyPair authenticates a presented client/secret pair against a project.
// The presented tokens are hashed with the issuance hash and looked up; the
// plaintext never reaches the database. An unmatched pair and an expired key
// are both Forbidden, with distinct messages.
func (s *Service) VerifyPair(projectID uint, client, secret string) (*models.AccessKey, error) {
	if client == "" || secret == "" {
		return nil, apperrors.BadRequest("access_key_client and access_key_secret are required")
	}

	key, err := s.accessKeyRepo.GetByHashedPair(projectID, HashKey(client), HashKey(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to verify access keys: %w", err)
	}
	if key == nil {
		return nil, apperrors.Forbidden("Invalid access key pair provided")
	}
	if key.IsExpired() {
		return nil, apperrors.Forbidden("Provided access key pair is expired. Either renew or create a new one.")
	}

	return key, nil
}

// VerifyBatch verifies an array of presented pairs and partitions them into
// verified, not-found and expired. If at least one pair verifies the call
// succeeds with the verified subset; if every pair is expired the whole call
// fails with the aggregate expired list; otherwise nothing matched.
func (s *Service) VerifyBatch(projectID uint, pairs []models.AccessKeyCredentials) ([]VerificationResult, []*models.AccessKey, error) {
	if len(pairs) == 0 {
		return nil, nil, apperrors.BadRequest("At least one access key pair is required")
	}

	results := make([]VerificationResult, 0, len(pairs))
	var verified []*models.AccessKey
	expiredCount := 0

	for _, pair := range pairs {
		if pair.Client == "" || pair.Secret == "" {
			return nil, nil, apperrors.BadRequest("access_key_client and access_key_secret are required for every pair")
		}

		key, err := s.accessKeyRepo.GetByHashedPair(projectID, HashKey(pair.Client), HashKey(pair.Secret))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to verify access keys: %w", err)
		}

		switch {
		case key == nil:
			results = append(results, VerificationResult{Pair: pair, Status: StatusNotFound})
		case key.IsExpired():
			expiredCount++
			results = append(results, VerificationResult{Pair: pair, Status: StatusExpired})
		default:
			results = append(results, VerificationResult{Pair: pair, Status: StatusVerified, Key: key})
			verified = append(verified, key)
		}
	}

	if len(verified) == 0 {
		if expiredCount == len(pairs) {
			return results, nil, apperrors.Forbidden("All provided access key pairs are expired. Either renew or create new ones.").
				WithDetails(map[string]interface{}{"expired_count": expiredCount})
		}
		return results, nil, apperrors.Forbidden("No valid access key pair provided")
	}

	return results, verified, nil
}
