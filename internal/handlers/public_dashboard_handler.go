package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/share"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
)

// PublicDashboardHandler serves token-gated reads of shared dashboards. No
// user session is involved; the share token is the whole credential.
type PublicDashboardHandler struct {
	shareService *share.Service
	queryService *telemetry.QueryService
	widgetRepo   *repository.WidgetRepository
	projectRepo  *repository.ProjectRepository
}

// NewPublicDashboardHandler creates a new PublicDashboardHandler instance
func NewPublicDashboardHandler(db *gorm.DB) *PublicDashboardHandler {
	return &PublicDashboardHandler{
		shareService: share.NewService(db),
		queryService: telemetry.NewQueryService(db),
		widgetRepo:   repository.NewWidgetRepository(db),
		projectRepo:  repository.NewProjectRepository(db),
	}
}

// Dashboard handles GET /api/v1/public/dashboard/:share_token
// @Summary Get public dashboard
// @Description Describe a shared dashboard: its name, project and shared widgets
// @Tags public
// @Produce json
// @Param share_token path string true "Share token"
// @Success 200 {object} map[string]interface{} "success: true, share_name: string, project: object, widgets: []models.Widget"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/public/dashboard/{share_token} [get]
func (h *PublicDashboardHandler) Dashboard(c *gin.Context) {
	dashboard, ok := h.resolveShare(c)
	if !ok {
		return
	}

	project, err := h.projectRepo.GetByID(dashboard.ProjectID)
	if err != nil {
		respondError(c, err, "Failed to load public dashboard")
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Project not found",
		})
		return
	}

	widgets, err := h.widgetRepo.GetByIDsInProject(dashboard.WidgetIDs(), dashboard.ProjectID)
	if err != nil {
		respondError(c, err, "Failed to load public dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"share_name": dashboard.ShareName,
		"project": gin.H{
			"project_id":   project.ID,
			"project_name": project.Name,
		},
		"widgets": widgets,
	})
}

// WidgetData handles GET /api/v1/public/dashboard/:share_token/widgets/:widget_id/data
// @Summary Get public widget data
// @Description Fetch the projection for a shared widget, shaped per its widget type
// @Tags public
// @Produce json
// @Param share_token path string true "Share token"
// @Param widget_id path int true "Widget ID"
// @Param limit query int false "Series length limit (charts only)"
// @Param order query string false "Sort order for chart series: asc or desc (default desc)"
// @Success 200 {object} map[string]interface{} "success: true, widget_type: string, data: projection"
// @Failure 403 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/public/dashboard/{share_token}/widgets/{widget_id}/data [get]
func (h *PublicDashboardHandler) WidgetData(c *gin.Context) {
	widget, ok := h.resolveWidget(c)
	if !ok {
		return
	}
	renderProjection(c, h.queryService, widget)
}

// WidgetFullData handles GET /api/v1/public/dashboard/:share_token/widgets/:widget_id/data/full
// @Summary Get public full table data
// @Description Fetch a paginated full-table page for a shared parameter table widget
// @Tags public
// @Produce json
// @Param share_token path string true "Share token"
// @Param widget_id path int true "Widget ID"
// @Param offset query int false "Row offset (default 0)"
// @Param limit query int false "Page size, max 1000 (default 100)"
// @Success 200 {object} map[string]interface{} "success: true, data: rows, count: total"
// @Failure 403 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/public/dashboard/{share_token}/widgets/{widget_id}/data/full [get]
func (h *PublicDashboardHandler) WidgetFullData(c *gin.Context) {
	widget, ok := h.resolveWidget(c)
	if !ok {
		return
	}
	renderFullTable(c, h.queryService, widget)
}

// resolveShare validates the share token and writes the error response
// itself when the token does not resolve.
func (h *PublicDashboardHandler) resolveShare(c *gin.Context) (*models.SharedDashboard, bool) {
	dashboard, err := h.shareService.ResolveToken(c.Param("share_token"))
	if err != nil {
		respondError(c, err, "Failed to load public dashboard")
		return nil, false
	}
	return dashboard, true
}

// resolveWidget validates the token, the widget's membership in the share and
// its project binding, in that order. Membership is checked before existence
// so probing widget ids through a share leaks nothing beyond the share's own
// widget set.
func (h *PublicDashboardHandler) resolveWidget(c *gin.Context) (*models.Widget, bool) {
	dashboard, ok := h.resolveShare(c)
	if !ok {
		return nil, false
	}

	widgetID, err := strconv.ParseUint(c.Param("widget_id"), 10, 32)
	if err != nil || widgetID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid widget_id: must be a positive integer",
		})
		return nil, false
	}

	if !dashboard.AllowsWidget(uint(widgetID)) {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Widget not available in this shared dashboard",
		})
		return nil, false
	}

	widget, err := h.widgetRepo.GetByID(uint(widgetID))
	if err != nil {
		respondError(c, err, "Failed to load widget")
		return nil, false
	}
	if widget == nil || widget.ProjectID != dashboard.ProjectID {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Widget not found",
		})
		return nil, false
	}

	return widget, true
}
