package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/share"
)

// ShareHandler handles HTTP requests for shared dashboard links
type ShareHandler struct {
	shareService *share.Service
}

// NewShareHandler creates a new ShareHandler instance
func NewShareHandler(db *gorm.DB) *ShareHandler {
	return &ShareHandler{
		shareService: share.NewService(db),
	}
}

// Create handles POST /api/v1/shares
// @Summary Create shared dashboard
// @Description Create a public share link exposing a subset of a project's widgets
// @Tags shares
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateShareRequest true "Share parameters"
// @Success 201 {object} map[string]interface{} "success: true, share: models.ShareMetadata"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 403 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/shares [post]
func (h *ShareHandler) Create(c *gin.Context) {
	var req models.CreateShareRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "project_id and allowed_widget_ids are required",
		})
		return
	}

	metadata, err := h.shareService.Create(&req)
	if err != nil {
		respondError(c, err, "Failed to create shared dashboard")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Shared dashboard created successfully",
		"share":   metadata,
	})
}

// List handles GET /api/v1/projects/:project_id/shares
// @Summary List shared dashboards
// @Description List the share links of a project, newest first
// @Tags shares
// @Produce json
// @Security BearerAuth
// @Param project_id path int true "Project ID"
// @Success 200 {object} map[string]interface{} "success: true, count: int, shares: []models.ShareMetadata"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/projects/{project_id}/shares [get]
func (h *ShareHandler) List(c *gin.Context) {
	projectID := c.MustGet("parsed_project_id").(uint)

	shares, err := h.shareService.ListByProject(projectID)
	if err != nil {
		respondError(c, err, "Failed to get shared dashboards")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(shares),
		"shares":  shares,
	})
}

// Update handles PUT /api/v1/shares/:share_id
// @Summary Update shared dashboard
// @Description Change a share's widget selection, name, active flag or expiry
// @Tags shares
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param share_id path int true "Share ID"
// @Param request body models.UpdateShareRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "success: true, share: models.ShareMetadata"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/shares/{share_id} [put]
func (h *ShareHandler) Update(c *gin.Context) {
	dashboard := c.MustGet("shared_dashboard").(*models.SharedDashboard)

	var req models.UpdateShareRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	if err := h.shareService.Update(dashboard, &req); err != nil {
		respondError(c, err, "Failed to update shared dashboard")
		return
	}

	metadata, err := h.shareService.Describe(dashboard.ID)
	if err != nil {
		respondError(c, err, "Failed to update shared dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Shared dashboard updated successfully",
		"share":   metadata,
	})
}

// Delete handles DELETE /api/v1/shares/:share_id
// @Summary Delete shared dashboard
// @Description Revoke a share link; its token stops resolving immediately
// @Tags shares
// @Produce json
// @Security BearerAuth
// @Param share_id path int true "Share ID"
// @Success 200 {object} map[string]interface{} "success: true, message: string"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/shares/{share_id} [delete]
func (h *ShareHandler) Delete(c *gin.Context) {
	dashboard := c.MustGet("shared_dashboard").(*models.SharedDashboard)

	if err := h.shareService.Delete(dashboard); err != nil {
		respondError(c, err, "Failed to delete shared dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Shared dashboard deleted successfully",
	})
}
