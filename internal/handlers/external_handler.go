package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
	"github.com/nimbusiot/iot-dashboard-backend/internal/middleware"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
)

// ExternalDataRequest is the body for the external bulk data read. Credential
// fields are consumed by the verification middleware from the same body.
type ExternalDataRequest struct {
	DatasetName string `json:"datatable_name"`
	DeviceIDs   []uint `json:"device_id_array"`
	Offset      int    `json:"offset"`
	Limit       int    `json:"limit"`
}

// ExternalHandler handles access-key-authenticated requests from outside the
// dashboard.
type ExternalHandler struct {
	queryService *telemetry.QueryService
	deviceRepo   *repository.DeviceRepository
}

// NewExternalHandler creates a new ExternalHandler instance
func NewExternalHandler(db *gorm.DB) *ExternalHandler {
	return &ExternalHandler{
		queryService: telemetry.NewQueryService(db),
		deviceRepo:   repository.NewDeviceRepository(db),
	}
}

// Devices handles POST /api/v1/external/devices
// @Summary List devices (external)
// @Description List the project's devices for a verified access key caller
// @Tags external
// @Accept json
// @Produce json
// @Param credentials body object true "project_id, access_key_client, access_key_secret"
// @Success 200 {object} map[string]interface{} "success: true, devices: []models.Device"
// @Failure 403 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/external/devices [post]
func (h *ExternalHandler) Devices(c *gin.Context) {
	projectID := c.MustGet("parsed_project_id").(uint)

	devices, err := h.deviceRepo.GetByProjectID(projectID)
	if err != nil {
		respondError(c, err, "Failed to fetch devices")
		return
	}

	list := make([]gin.H, 0, len(devices))
	for i := range devices {
		list = append(list, gin.H{
			"device_id":   devices[i].ID,
			"device_name": devices[i].Name,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"devices": list,
	})
}

// Data handles POST /api/v1/external/data
// @Summary Fetch dataset rows (external)
// @Description Paginated dataset read for a verified access key caller, rows grouped by device. The key's device scope is enforced.
// @Tags external
// @Accept json
// @Produce json
// @Param request body handlers.ExternalDataRequest true "Dataset and pagination parameters plus credentials"
// @Success 200 {object} map[string]interface{} "success: true, devices: rows by device id, count: total"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 403 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/external/data [post]
func (h *ExternalHandler) Data(c *gin.Context) {
	key := c.MustGet("verified_access_key").(*models.AccessKey)

	var req ExternalDataRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	if req.DatasetName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "datatable_name is required",
		})
		return
	}
	if req.Limit == 0 {
		req.Limit = 100
	}

	if err := middleware.CheckDeviceScope(key, req.DeviceIDs); err != nil {
		respondError(c, err, "Failed to fetch data")
		return
	}

	page, err := h.queryService.FetchBulk(key, req.DatasetName, req.DeviceIDs, req.Offset, req.Limit)
	if err != nil {
		respondError(c, err, "Failed to fetch data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"devices": page.Devices,
		"count":   page.Count,
	})
}
