package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
)

// WidgetDataHandler handles HTTP requests for widget projections
type WidgetDataHandler struct {
	queryService *telemetry.QueryService
}

// NewWidgetDataHandler creates a new WidgetDataHandler instance
func NewWidgetDataHandler(db *gorm.DB) *WidgetDataHandler {
	return &WidgetDataHandler{
		queryService: telemetry.NewQueryService(db),
	}
}

// GetData handles GET /api/v1/widgets/:widget_id/data
// @Summary Get widget data
// @Description Fetch the projection for a widget, shaped per its widget type
// @Tags widgets
// @Produce json
// @Security BearerAuth
// @Param widget_id path int true "Widget ID"
// @Param limit query int false "Series length limit (charts only)"
// @Param order query string false "Sort order for chart series: asc or desc (default desc)"
// @Success 200 {object} map[string]interface{} "success: true, widget_type: string, data: projection"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/widgets/{widget_id}/data [get]
func (h *WidgetDataHandler) GetData(c *gin.Context) {
	widget := c.MustGet("widget").(*models.Widget)
	renderProjection(c, h.queryService, widget)
}

// GetFullData handles GET /api/v1/widgets/:widget_id/data/full
// @Summary Get full table data
// @Description Fetch a paginated full-table page for a parameter table widget
// @Tags widgets
// @Produce json
// @Security BearerAuth
// @Param widget_id path int true "Widget ID"
// @Param offset query int false "Row offset (default 0)"
// @Param limit query int false "Page size, max 1000 (default 100)"
// @Success 200 {object} map[string]interface{} "success: true, data: rows, count: total"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/widgets/{widget_id}/data/full [get]
func (h *WidgetDataHandler) GetFullData(c *gin.Context) {
	widget := c.MustGet("widget").(*models.Widget)
	renderFullTable(c, h.queryService, widget)
}

// renderProjection fetches and writes the type-shaped projection for a
// widget. Shared by the owner-facing and public dashboard handlers; the
// caller has already authorized access to the widget.
func renderProjection(c *gin.Context, queryService *telemetry.QueryService, widget *models.Widget) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	projector, err := queryService.ProjectorFor(widget.WidgetType)
	if err != nil {
		respondError(c, err, "Failed to fetch widget data")
		return
	}

	projection, err := projector.FetchProjection(telemetry.ProjectionRequest{
		Widget:    widget,
		Limit:     limit,
		Ascending: c.Query("order") == "asc",
	})
	if err != nil {
		respondError(c, err, "Failed to fetch widget data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"widget_type": widget.WidgetType.String(),
		"data":        projection,
	})
}

// renderFullTable fetches and writes a paginated full-table page for a
// parameter table widget. Shared by the owner-facing and public dashboard
// handlers.
func renderFullTable(c *gin.Context, queryService *telemetry.QueryService, widget *models.Widget) {
	if widget.WidgetType != models.WidgetTypeParameterTable {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Full table data is only available for parameter table widgets",
		})
		return
	}

	offset, limit, ok := paginationParams(c, 0, 100)
	if !ok {
		return
	}

	page, err := queryService.FullTableData(widget, offset, limit)
	if err != nil {
		respondError(c, err, "Failed to fetch table data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Data,
		"count":   page.Count,
	})
}

// paginationParams parses offset/limit query parameters with defaults. Range
// validation beyond integer parsing is the query engine's responsibility.
func paginationParams(c *gin.Context, defaultOffset, defaultLimit int) (int, int, bool) {
	offset := defaultOffset
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "offset must be an integer",
			})
			return 0, 0, false
		}
		offset = parsed
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "limit must be an integer",
			})
			return 0, 0, false
		}
		limit = parsed
	}

	return offset, limit, true
}
