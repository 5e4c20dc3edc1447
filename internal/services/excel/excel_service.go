package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelService builds spreadsheet exports of telemetry pages
type ExcelService struct{}

// NewExcelService creates a new excel service
func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ExportRows writes a dataset page to a single-sheet workbook. The attribute
// list controls column order; rows are maps as returned by the query engine.
func (s *ExcelService) ExportRows(sheetName string, attributes []string, rows []map[string]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, attr := range attributes {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, attr); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, row := range rows {
		for colIdx, attr := range attributes {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, row[attr]); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}
