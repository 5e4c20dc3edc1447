package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/access_key"
)

// AccessKeyHandler handles HTTP requests related to access keys
type AccessKeyHandler struct {
	accessKeyService *access_key.Service
}

// NewAccessKeyHandler creates a new AccessKeyHandler instance
func NewAccessKeyHandler(db *gorm.DB) *AccessKeyHandler {
	return &AccessKeyHandler{
		accessKeyService: access_key.NewService(db),
	}
}

// GetAccessKeyService returns the underlying service for middleware wiring
func (h *AccessKeyHandler) GetAccessKeyService() *access_key.Service {
	return h.accessKeyService
}

// Create handles POST /api/v1/access-keys
// @Summary Create access key
// @Description Issue a new access key pair for a project. The plaintext pair is returned exactly once.
// @Tags access-keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param access_key body models.CreateAccessKeyRequest true "Access key to create"
// @Success 201 {object} map[string]interface{} "success: true, access_key: models.IssuedAccessKey"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 403 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/access-keys [post]
func (h *AccessKeyHandler) Create(c *gin.Context) {
	var req models.CreateAccessKeyRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing required fields: project_id, access_key_name, valid_duration_for_access_key",
		})
		return
	}

	issued, err := h.accessKeyService.Issue(&req)
	if err != nil {
		respondError(c, err, "Failed to create access key")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Access key created successfully. Store the client and secret keys now; they cannot be retrieved again.",
		"access_key": issued,
	})
}

// List handles GET /api/v1/projects/:project_id/access-keys
// @Summary List access keys
// @Description List access key metadata for a project. Credential material is never returned.
// @Tags access-keys
// @Produce json
// @Security BearerAuth
// @Param project_id path int true "Project ID"
// @Success 200 {object} map[string]interface{} "success: true, count: int, access_keys: []models.AccessKeyMetadata"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/projects/{project_id}/access-keys [get]
func (h *AccessKeyHandler) List(c *gin.Context) {
	projectID := c.MustGet("parsed_project_id").(uint)

	keys, err := h.accessKeyService.List(projectID)
	if err != nil {
		respondError(c, err, "Failed to get access keys")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"count":       len(keys),
		"access_keys": keys,
	})
}

// Get handles GET /api/v1/access-keys/:access_key_id
// @Summary Get access key
// @Description Get one access key's metadata including its domain and device scope
// @Tags access-keys
// @Produce json
// @Security BearerAuth
// @Param access_key_id path int true "Access key ID"
// @Success 200 {object} map[string]interface{} "success: true, access_key: models.AccessKeyMetadata"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/access-keys/{access_key_id} [get]
func (h *AccessKeyHandler) Get(c *gin.Context) {
	keyID := c.MustGet("parsed_access_key_id").(uint)

	metadata, err := h.accessKeyService.Describe(keyID)
	if err != nil {
		respondError(c, err, "Failed to get access key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"access_key": metadata,
	})
}

// Update handles PUT /api/v1/access-keys/:access_key_id
// @Summary Update access key
// @Description Update an access key's name and/or scope sets. Expired keys cannot be updated.
// @Tags access-keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param access_key_id path int true "Access key ID"
// @Param access_key body models.UpdateAccessKeyRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "success: true, access_key: models.AccessKeyMetadata"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/access-keys/{access_key_id} [put]
func (h *AccessKeyHandler) Update(c *gin.Context) {
	key := c.MustGet("access_key").(*models.AccessKey)

	var req models.UpdateAccessKeyRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	if err := h.accessKeyService.Update(key, &req); err != nil {
		respondError(c, err, "Failed to update access key")
		return
	}

	metadata, err := h.accessKeyService.Describe(key.ID)
	if err != nil {
		respondError(c, err, "Failed to get access key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Access key updated successfully",
		"access_key": metadata,
	})
}

// Renew handles POST /api/v1/access-keys/:access_key_id/renew
// @Summary Renew access key
// @Description Extend the expiration of a currently expired access key
// @Tags access-keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param access_key_id path int true "Access key ID"
// @Param renewal body models.RenewAccessKeyRequest true "New validity duration in days"
// @Success 200 {object} map[string]interface{} "success: true, access_key: models.AccessKeyMetadata"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/access-keys/{access_key_id}/renew [post]
func (h *AccessKeyHandler) Renew(c *gin.Context) {
	key := c.MustGet("access_key").(*models.AccessKey)

	var req models.RenewAccessKeyRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "valid_duration_for_access_key is required",
		})
		return
	}

	renewed, err := h.accessKeyService.Renew(key, req.ValidDays)
	if err != nil {
		respondError(c, err, "Failed to renew access key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Access key renewed successfully",
		"access_key": models.AccessKeyMetadata{
			ID:         renewed.ID,
			Name:       renewed.Name,
			ProjectID:  renewed.ProjectID,
			ExpiresAt:  renewed.ExpiresAt,
			LastUsedAt: renewed.LastUsedAt,
			IsExpired:  renewed.IsExpired(),
		},
	})
}

// Delete handles DELETE /api/v1/access-keys/:access_key_id
// @Summary Delete access key
// @Description Revoke an access key and its scope rows
// @Tags access-keys
// @Produce json
// @Security BearerAuth
// @Param access_key_id path int true "Access key ID"
// @Success 200 {object} map[string]interface{} "success: true, message: string"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/access-keys/{access_key_id} [delete]
func (h *AccessKeyHandler) Delete(c *gin.Context) {
	key := c.MustGet("access_key").(*models.AccessKey)

	if err := h.accessKeyService.Revoke(key); err != nil {
		respondError(c, err, "Failed to delete access key")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Access key deleted successfully",
	})
}
