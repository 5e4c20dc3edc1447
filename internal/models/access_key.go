package models

import (
	"time"
)

// AccessKey is a project-scoped, non-interactive credential pair. Only the
// one-way hashes of the client and secret tokens are persisted; the plaintext
// pair is returned to the caller exactly once, at creation or renewal.
type AccessKey struct {
	ID            uint       `json:"access_key_id" gorm:"column:access_key_id;primaryKey"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Name          string     `json:"access_key_name" gorm:"column:access_key_name;type:varchar(255);not null"`
	ProjectID     uint       `json:"project_id" gorm:"not null;index"`
	ClientKeyHash string     `json:"-" gorm:"type:varchar(64);not null;uniqueIndex:idx_access_keys_pair"`
	SecretKeyHash string     `json:"-" gorm:"type:varchar(64);not null;uniqueIndex:idx_access_keys_pair"`
	ExpiresAt     *time.Time `json:"expiration_date"`
	LastUsedAt    *time.Time `json:"access_key_last_use_time"`

	// Relationships
	Project Project           `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
	Domains []AccessKeyDomain `json:"domains,omitempty" gorm:"foreignKey:AccessKeyID;references:ID;constraint:OnDelete:CASCADE"`
	Devices []AccessKeyDevice `json:"devices,omitempty" gorm:"foreignKey:AccessKeyID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the AccessKey model
func (AccessKey) TableName() string {
	return "access_keys"
}

// IsExpired reports whether the key's expiration date has passed. A key with
// no expiration date never expires.
func (k *AccessKey) IsExpired() bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now())
}

// DomainNames returns the key's allowed domains as a flat list. Empty means
// no domain restriction.
func (k *AccessKey) DomainNames() []string {
	names := make([]string, 0, len(k.Domains))
	for _, d := range k.Domains {
		names = append(names, d.DomainName)
	}
	return names
}

// DeviceIDs returns the key's allowed device ids as a flat list. Empty means
// no device restriction.
func (k *AccessKey) DeviceIDs() []uint {
	ids := make([]uint, 0, len(k.Devices))
	for _, d := range k.Devices {
		ids = append(ids, d.DeviceID)
	}
	return ids
}

// DisallowedDevices returns the subset of the given device ids that fall
// outside the key's device scope. A key with zero device rows is
// unrestricted and disallows nothing.
func (k *AccessKey) DisallowedDevices(deviceIDs []uint) []uint {
	if len(k.Devices) == 0 {
		return nil
	}
	allowed := make(map[uint]bool, len(k.Devices))
	for _, d := range k.Devices {
		allowed[d.DeviceID] = true
	}
	var disallowed []uint
	for _, id := range deviceIDs {
		if !allowed[id] {
			disallowed = append(disallowed, id)
		}
	}
	return disallowed
}

// AccessKeyDomain is one allowed origin hostname for an access key. The full
// allowed set is the union of a key's rows; zero rows means unrestricted.
type AccessKeyDomain struct {
	ID          uint   `json:"access_key_domain_id" gorm:"column:access_key_domain_id;primaryKey"`
	DomainName  string `json:"access_key_domain_name" gorm:"column:access_key_domain_name;type:varchar(255);not null"`
	AccessKeyID uint   `json:"access_key_id" gorm:"not null;index"`
}

// TableName specifies the table name for the AccessKeyDomain model
func (AccessKeyDomain) TableName() string {
	return "access_key_domains"
}

// AccessKeyDevice is one allowed device for an access key. Zero rows means
// the key is not device-restricted.
type AccessKeyDevice struct {
	ID          uint `json:"access_key_device_id" gorm:"column:access_key_device_id;primaryKey"`
	DeviceID    uint `json:"device_id" gorm:"not null;index"`
	AccessKeyID uint `json:"access_key_id" gorm:"not null;index"`

	// Relationships
	Device Device `json:"-" gorm:"foreignKey:DeviceID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the AccessKeyDevice model
func (AccessKeyDevice) TableName() string {
	return "access_key_devices"
}

// CreateAccessKeyRequest is the payload for issuing a new access key
type CreateAccessKeyRequest struct {
	ProjectID uint     `json:"project_id" binding:"required"`
	Name      string   `json:"access_key_name" binding:"required"`
	Domains   []string `json:"domain_name_array"`
	DeviceIDs []uint   `json:"device_id_array"`
	ValidDays int      `json:"valid_duration_for_access_key" binding:"required"`
}

// UpdateAccessKeyRequest is the payload for updating an access key. Nil
// slices mean "leave that scope set unchanged".
type UpdateAccessKeyRequest struct {
	Name      string   `json:"access_key_name"`
	Domains   []string `json:"domain_name_array"`
	DeviceIDs []uint   `json:"device_id_array"`
}

// RenewAccessKeyRequest is the payload for renewing an expired access key
type RenewAccessKeyRequest struct {
	ValidDays int `json:"valid_duration_for_access_key" binding:"required"`
}

// AccessKeyCredentials is one presented client/secret pair for verification
type AccessKeyCredentials struct {
	Client string `json:"access_key_client"`
	Secret string `json:"access_key_secret"`
}

// IssuedAccessKey is the one-time response carrying plaintext credentials
type IssuedAccessKey struct {
	ID        uint       `json:"access_key_id"`
	Name      string     `json:"access_key_name"`
	Client    string     `json:"client_access_key"`
	Secret    string     `json:"secret_access_key"`
	ExpiresAt *time.Time `json:"expiration_date"`
	Domains   []string   `json:"accessible_domains"`
	DeviceIDs []uint     `json:"accessible_devices"`
	IsExpired bool       `json:"is_expired"`
}

// AccessKeyMetadata is the listing/detail shape; it never carries credential
// material.
type AccessKeyMetadata struct {
	ID         uint       `json:"access_key_id"`
	Name       string     `json:"access_key_name"`
	ProjectID  uint       `json:"project_id"`
	ExpiresAt  *time.Time `json:"expiration_date"`
	LastUsedAt *time.Time `json:"access_key_last_use_time"`
	Domains    []string   `json:"access_key_domain_names,omitempty"`
	DeviceIDs  []uint     `json:"device_ids,omitempty"`
	IsExpired  bool       `json:"is_expired"`
}
