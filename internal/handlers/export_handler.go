package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/excel"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler handles dataset spreadsheet exports
type ExportHandler struct {
	queryService *telemetry.QueryService
	excelService *excel.ExcelService
}

// NewExportHandler creates a new ExportHandler instance
func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{
		queryService: telemetry.NewQueryService(db),
		excelService: excel.NewExcelService(),
	}
}

// Export handles GET /api/v1/data-tables/:tbl_id/export
// @Summary Export dataset
// @Description Download one page of a dataset as an .xlsx workbook
// @Tags data-tables
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param tbl_id path int true "Datatable ID"
// @Param offset query int false "Row offset (default 0)"
// @Param limit query int false "Page size, max 1000 (default 1000)"
// @Success 200 {file} binary "xlsx workbook"
// @Failure 400 {object} map[string]interface{} "success: false, message: error message"
// @Failure 404 {object} map[string]interface{} "success: false, message: error message"
// @Router /api/v1/data-tables/{tbl_id}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	table := c.MustGet("data_table").(*models.DataTable)

	offset, limit, ok := paginationParams(c, 0, telemetry.MaxPageLimit)
	if !ok {
		return
	}

	attributes, rows, err := h.queryService.DatasetRows(table, offset, limit)
	if err != nil {
		respondError(c, err, "Failed to export dataset")
		return
	}

	buf, err := h.excelService.ExportRows(table.Name, attributes, rows)
	if err != nil {
		respondError(c, err, "Failed to export dataset")
		return
	}

	filename := fmt.Sprintf("%s.xlsx", table.Name)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
