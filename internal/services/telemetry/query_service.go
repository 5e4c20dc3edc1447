package telemetry

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nimbusiot/iot-dashboard-backend/internal/apperrors"
	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
	"github.com/nimbusiot/iot-dashboard-backend/internal/models"
	"gorm.io/gorm"
)

// QueryService answers read queries against per-dataset storage, reshaped
// per widget kind. All physical identifiers come from the dataset registry.
type QueryService struct {
	db         *gorm.DB
	widgetRepo *repository.WidgetRepository
	tableRepo  *repository.DataTableRepository
	columnRepo *repository.ColumnRepository
}

// NewQueryService creates a new telemetry query service
func NewQueryService(db *gorm.DB) *QueryService {
	return &QueryService{
		db:         db,
		widgetRepo: repository.NewWidgetRepository(db),
		tableRepo:  repository.NewDataTableRepository(db),
		columnRepo: repository.NewColumnRepository(db),
	}
}

// ProjectionRequest carries the per-call knobs for a widget projection
type ProjectionRequest struct {
	Widget *models.Widget
	// Limit bounds chart series length; zero means unlimited.
	Limit int
	// Ascending flips chart ordering from the default id-descending.
	Ascending bool
}

// Projector is the capability interface every widget kind implements: turn a
// dataset reference plus widget configuration into its projection.
type Projector interface {
	FetchProjection(req ProjectionRequest) (interface{}, error)
}

// ProjectorFor returns the projector for a widget kind. The set is closed;
// unknown kinds are a bad request.
func (s *QueryService) ProjectorFor(widgetType models.WidgetType) (Projector, error) {
	switch widgetType {
	case models.WidgetTypeChart:
		return &chartProjector{s}, nil
	case models.WidgetTypeGauge:
		return &gaugeProjector{s}, nil
	case models.WidgetTypeToggle:
		return &toggleProjector{s}, nil
	case models.WidgetTypeMetric:
		return &metricProjector{s}, nil
	case models.WidgetTypeParameterTable:
		return &parameterTableProjector{s}, nil
	default:
		return nil, apperrors.BadRequest(fmt.Sprintf("Unknown widget type: %d", widgetType))
	}
}

// resolveDataset verifies the widget's dataset against the registry and
// returns the registry row, the physical table name and the column
// allow-list.
func (s *QueryService) resolveDataset(widget *models.Widget) (*models.DataTable, string, columnSet, error) {
	table, err := s.tableRepo.GetByIDInProject(widget.Dataset, widget.ProjectID)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to resolve dataset: %w", err)
	}
	if table == nil {
		return nil, "", nil, apperrors.NotFound("Dataset not found for this project")
	}

	columns, err := s.columnRepo.GetByTableID(table.ID)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load dataset columns: %w", err)
	}

	return table, PhysicalTableName(table.ID), newColumnSet(columns), nil
}

// checkColumn validates that a configured column belongs to the widget's
// dataset before its name is placed into a query.
func checkColumn(set columnSet, column models.Column, datasetID uint) error {
	if column.TableID != datasetID || !set.contains(column.Name) {
		return apperrors.BadRequest("Configured column does not belong to the widget's dataset")
	}
	return nil
}

// latestRow fetches the newest row's created_at plus one column, optionally
// filtered to a device. Returns nil when the table has no matching rows.
func (s *QueryService) latestRow(physical, columnName string, deviceID *uint) (map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s", SystemColumnCreatedAt, columnName, physical)
	var args []interface{}
	if deviceID != nil {
		query += fmt.Sprintf(" WHERE %s = ?", SystemColumnDevice)
		args = append(args, *deviceID)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC LIMIT 1", SystemColumnID)

	var rows []map[string]interface{}
	if err := s.db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query latest row: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ChartPoint is one x/y pair of a chart series
type ChartPoint struct {
	X interface{} `json:"x"`
	Y interface{} `json:"y"`
}

// ChartSeriesData is one named series of a chart projection
type ChartSeriesData struct {
	Name       string       `json:"name"`
	ColumnName string       `json:"clm_name"`
	DeviceID   uint         `json:"device_id"`
	Data       []ChartPoint `json:"data"`
}

type chartProjector struct {
	svc *QueryService
}

// FetchProjection builds one series per configured chart series: {x, y}
// pairs ordered by insertion id descending (ascending on request), x
// defaulting to the ingestion timestamp unless an x-axis column is
// configured.
func (p *chartProjector) FetchProjection(req ProjectionRequest) (interface{}, error) {
	config, err := p.svc.widgetRepo.GetChartConfig(req.Widget.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart configuration: %w", err)
	}
	if config == nil {
		return nil, apperrors.NotFound("Widget configuration not found")
	}

	_, physical, columns, err := p.svc.resolveDataset(req.Widget)
	if err != nil {
		return nil, err
	}

	xAxis := SystemColumnCreatedAt
	if config.XAxisColumn != nil {
		if err := checkColumn(columns, *config.XAxisColumn, req.Widget.Dataset); err != nil {
			return nil, err
		}
		xAxis = config.XAxisColumn.Name
	}

	order := "DESC"
	if req.Ascending {
		order = "ASC"
	}

	chartData := make([]ChartSeriesData, 0, len(config.Series))
	for _, series := range config.Series {
		if err := checkColumn(columns, series.Column, req.Widget.Dataset); err != nil {
			return nil, err
		}

		query := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s = ? ORDER BY %s %s",
			SystemColumnID, xAxis, series.Column.Name, physical, SystemColumnDevice, SystemColumnID, order)
		args := []interface{}{series.DeviceID}
		if req.Limit > 0 {
			query += " LIMIT ?"
			args = append(args, req.Limit)
		}

		var rows []map[string]interface{}
		if err := p.svc.db.Raw(query, args...).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query chart series: %w", err)
		}

		points := make([]ChartPoint, 0, len(rows))
		for _, row := range rows {
			points = append(points, ChartPoint{X: row[xAxis], Y: row[series.Column.Name]})
		}

		chartData = append(chartData, ChartSeriesData{
			Name:       series.SeriesName,
			ColumnName: series.Column.Name,
			DeviceID:   series.DeviceID,
			Data:       points,
		})
	}

	return chartData, nil
}

// LatestValue is the gauge/toggle/metric projection: the newest value of one
// column with its ingestion timestamp.
type LatestValue struct {
	Value     interface{} `json:"value"`
	CreatedAt interface{} `json:"created_at"`
}

type gaugeProjector struct {
	svc *QueryService
}

// FetchProjection returns the latest value for the gauge column; the value
// must be numeric, never coerced.
func (p *gaugeProjector) FetchProjection(req ProjectionRequest) (interface{}, error) {
	config, err := p.svc.widgetRepo.GetGaugeConfig(req.Widget.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gauge configuration: %w", err)
	}
	if config == nil {
		return nil, apperrors.NotFound("Widget configuration not found")
	}

	_, physical, columns, err := p.svc.resolveDataset(req.Widget)
	if err != nil {
		return nil, err
	}
	if err := checkColumn(columns, config.Column, req.Widget.Dataset); err != nil {
		return nil, err
	}

	row, err := p.svc.latestRow(physical, config.Column.Name, config.DeviceID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperrors.NotFound("Value is not available")
	}

	value := row[config.Column.Name]
	if !isNumeric(value) {
		return nil, apperrors.InvalidState("Value is not a number")
	}

	return &LatestValue{Value: value, CreatedAt: row[SystemColumnCreatedAt]}, nil
}

type toggleProjector struct {
	svc *QueryService
}

// FetchProjection returns the latest value for the toggle column; the value
// must be boolean, never coerced.
func (p *toggleProjector) FetchProjection(req ProjectionRequest) (interface{}, error) {
	config, err := p.svc.widgetRepo.GetToggleConfig(req.Widget.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load toggle configuration: %w", err)
	}
	if config == nil {
		return nil, apperrors.NotFound("Widget configuration not found")
	}

	_, physical, columns, err := p.svc.resolveDataset(req.Widget)
	if err != nil {
		return nil, err
	}
	if err := checkColumn(columns, config.Column, req.Widget.Dataset); err != nil {
		return nil, err
	}

	row, err := p.svc.latestRow(physical, config.Column.Name, config.DeviceID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperrors.NotFound("Value is not available")
	}

	value, ok := asBool(row[config.Column.Name])
	if !ok {
		return nil, apperrors.InvalidState("Value is not a boolean")
	}

	return &LatestValue{Value: value, CreatedAt: row[SystemColumnCreatedAt]}, nil
}

type metricProjector struct {
	svc *QueryService
}

// FetchProjection returns the latest value for the metric column. Metric
// widgets opportunistically parse numeric-looking strings; any other
// non-conforming value yields an empty projection rather than an error.
func (p *metricProjector) FetchProjection(req ProjectionRequest) (interface{}, error) {
	config, err := p.svc.widgetRepo.GetMetricConfig(req.Widget.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric configuration: %w", err)
	}
	if config == nil {
		return nil, apperrors.NotFound("Widget configuration not found")
	}

	_, physical, columns, err := p.svc.resolveDataset(req.Widget)
	if err != nil {
		return nil, err
	}
	if err := checkColumn(columns, config.Column, req.Widget.Dataset); err != nil {
		return nil, err
	}

	row, err := p.svc.latestRow(physical, config.Column.Name, config.DeviceID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &LatestValue{}, nil
	}

	value := row[config.Column.Name]
	if str, ok := value.(string); ok && str != "" {
		if parsed, err := strconv.ParseFloat(str, 64); err == nil {
			value = parsed
		}
	}

	if b, ok := asBool(value); ok {
		return &LatestValue{Value: b, CreatedAt: row[SystemColumnCreatedAt]}, nil
	}
	if isNumeric(value) {
		return &LatestValue{Value: value, CreatedAt: row[SystemColumnCreatedAt]}, nil
	}

	return &LatestValue{}, nil
}

// ParameterValue is one row of a parameter table snapshot
type ParameterValue struct {
	ParameterName string      `json:"parameter_name"`
	ColumnName    string      `json:"clm_name"`
	DeviceName    string      `json:"device_name"`
	Value         interface{} `json:"value"`
	Unit          string      `json:"unit"`
}

type parameterTableProjector struct {
	svc *QueryService
}

// FetchProjection assembles the snapshot form: one latest value per
// configured parameter/device pair, executed as independent point queries.
func (p *parameterTableProjector) FetchProjection(req ProjectionRequest) (interface{}, error) {
	config, err := p.svc.widgetRepo.GetParameterTableConfig(req.Widget.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameter table configuration: %w", err)
	}
	if len(config) == 0 {
		return nil, apperrors.NotFound("Widget configuration not found")
	}

	_, physical, columns, err := p.svc.resolveDataset(req.Widget)
	if err != nil {
		return nil, err
	}

	tableData := make([]ParameterValue, 0, len(config))
	for _, parameter := range config {
		if err := checkColumn(columns, parameter.Column, req.Widget.Dataset); err != nil {
			return nil, err
		}

		row, err := p.svc.latestRow(physical, parameter.Column.Name, parameter.DeviceID)
		if err != nil {
			return nil, err
		}

		deviceName := "All Devices"
		if parameter.Device != nil {
			deviceName = parameter.Device.Name
		}

		var value interface{}
		if row != nil {
			value = row[parameter.Column.Name]
		}

		tableData = append(tableData, ParameterValue{
			ParameterName: parameter.ParameterName,
			ColumnName:    parameter.Column.Name,
			DeviceName:    deviceName,
			Value:         value,
			Unit:          parameter.Unit,
		})
	}

	return tableData, nil
}

// TablePage is a full-table page plus the pagination-unscoped total count
type TablePage struct {
	Data  []map[string]interface{} `json:"data"`
	Count int64                    `json:"count"`
}

// FullTableData returns all rows of a parameter table widget's dataset as a
// paginated page. The attribute list comes from the widget's configured
// columns, ordered deterministically: id first, device second when present,
// the rest alphabetical.
func (s *QueryService) FullTableData(widget *models.Widget, offset, limit int) (*TablePage, error) {
	if offset < 0 || limit <= 0 || limit > MaxPageLimit {
		return nil, apperrors.BadRequest(fmt.Sprintf(
			`Invalid pagination parameters. "offset" must be a non-negative integer and "limit" must be a positive integer not greater than %d.`, MaxPageLimit))
	}

	config, err := s.widgetRepo.GetParameterTableConfig(widget.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameter table configuration: %w", err)
	}
	if len(config) == 0 {
		return nil, apperrors.NotFound("Widget configuration not found")
	}

	_, physical, columns, err := s.resolveDataset(widget)
	if err != nil {
		return nil, err
	}

	attributes := make([]string, 0, len(config))
	seen := make(map[string]bool, len(config))
	for _, parameter := range config {
		if err := checkColumn(columns, parameter.Column, widget.Dataset); err != nil {
			return nil, err
		}
		if !seen[parameter.Column.Name] {
			seen[parameter.Column.Name] = true
			attributes = append(attributes, parameter.Column.Name)
		}
	}
	attributes = orderAttributes(attributes)

	selectList := ""
	for i, attr := range attributes {
		if i > 0 {
			selectList += ", "
		}
		selectList += attr
	}

	var (
		where string
		args  []interface{}
	)
	if config[0].DeviceID != nil {
		where = fmt.Sprintf(" WHERE %s = ?", SystemColumnDevice)
		args = append(args, *config[0].DeviceID)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s ASC LIMIT ? OFFSET ?",
		selectList, physical, where, SystemColumnID)
	var rows []map[string]interface{}
	err = s.db.Raw(query, append(args, limit, offset)...).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query table data: %w", err)
	}

	var count int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", physical, where)
	if err := s.db.Raw(countQuery, args...).Scan(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count table rows: %w", err)
	}

	if rows == nil {
		rows = []map[string]interface{}{}
	}
	return &TablePage{Data: rows, Count: count}, nil
}

// DatasetRows returns one page of a dataset with its full registered
// attribute list, used by the spreadsheet export. Attributes follow the
// deterministic order: id first, device second, the rest alphabetical.
func (s *QueryService) DatasetRows(table *models.DataTable, offset, limit int) ([]string, []map[string]interface{}, error) {
	if offset < 0 || limit <= 0 || limit > MaxPageLimit {
		return nil, nil, apperrors.BadRequest(fmt.Sprintf(
			`Invalid pagination parameters. "offset" must be a non-negative integer and "limit" must be a positive integer not greater than %d.`, MaxPageLimit))
	}

	columns, err := s.columnRepo.GetByTableID(table.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset columns: %w", err)
	}

	attributes := make([]string, 0, len(columns))
	for _, column := range columns {
		attributes = append(attributes, column.Name)
	}
	attributes = orderAttributes(attributes)

	selectList := ""
	for i, attr := range attributes {
		if i > 0 {
			selectList += ", "
		}
		selectList += attr
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC LIMIT ? OFFSET ?",
		selectList, PhysicalTableName(table.ID), SystemColumnID)
	var rows []map[string]interface{}
	if err := s.db.Raw(query, limit, offset).Scan(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	return attributes, rows, nil
}

// BulkPage is the external bulk fetch result: rows grouped by device id plus
// the total count for the applied filter.
type BulkPage struct {
	Devices map[uint][]map[string]interface{} `json:"devices"`
	Count   int64                             `json:"count"`
}

// FetchBulk is the paginated dataset read for access-key callers. The
// device allow-list is re-validated against the verified key's scope here,
// not trusted from upstream.
func (s *QueryService) FetchBulk(key *models.AccessKey, datasetName string, deviceIDs []uint, offset, limit int) (*BulkPage, error) {
	if offset < 0 || limit <= 0 || limit > MaxPageLimit {
		return nil, apperrors.BadRequest(fmt.Sprintf(
			`Invalid pagination parameters. "offset" must be a non-negative integer and "limit" must be a positive integer not greater than %d.`, MaxPageLimit))
	}

	if disallowed := key.DisallowedDevices(deviceIDs); len(disallowed) > 0 {
		return nil, apperrors.Forbidden("Access key does not allow the requested devices").
			WithDetails(map[string]interface{}{"disallowed_devices": disallowed})
	}

	table, err := s.tableRepo.GetByName(key.ProjectID, datasetName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset: %w", err)
	}
	if table == nil {
		return nil, apperrors.NotFound("Datatable not found for this project")
	}
	physical := PhysicalTableName(table.ID)

	var (
		where string
		args  []interface{}
	)
	if len(deviceIDs) > 0 {
		where = fmt.Sprintf(" WHERE %s IN ?", SystemColumnDevice)
		args = append(args, deviceIDs)
	}

	query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s ASC LIMIT ? OFFSET ?",
		physical, where, SystemColumnID)
	var rows []map[string]interface{}
	err = s.db.Raw(query, append(args, limit, offset)...).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}

	var count int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", physical, where)
	if err := s.db.Raw(countQuery, args...).Scan(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count dataset rows: %w", err)
	}

	grouped := make(map[uint][]map[string]interface{})
	for _, row := range rows {
		deviceID, ok := asUint(row[SystemColumnDevice])
		if !ok {
			continue
		}
		grouped[deviceID] = append(grouped[deviceID], row)
	}

	return &BulkPage{Devices: grouped, Count: count}, nil
}

// orderAttributes sorts attribute names alphabetically, then moves id to the
// front and device to second position when present.
func orderAttributes(attributes []string) []string {
	sort.Strings(attributes)

	ordered := make([]string, 0, len(attributes))
	hasID := false
	hasDevice := false
	for _, attr := range attributes {
		switch attr {
		case SystemColumnID:
			hasID = true
		case SystemColumnDevice:
			hasDevice = true
		default:
			ordered = append(ordered, attr)
		}
	}

	if hasDevice {
		ordered = append([]string{SystemColumnDevice}, ordered...)
	}
	if hasID {
		ordered = append([]string{SystemColumnID}, ordered...)
	}
	return ordered
}

// isNumeric reports whether a scanned database value is a number
func isNumeric(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// asBool extracts a boolean from a scanned database value. SQLite reports
// booleans as integers, so 0/1 are accepted.
func asBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	}
	return false, false
}

// asUint extracts an unsigned id from a scanned database value
func asUint(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case int64:
		if v >= 0 {
			return uint(v), true
		}
	case uint:
		return v, true
	case uint64:
		return uint(v), true
	case float64:
		if v >= 0 {
			return uint(v), true
		}
	case int:
		if v >= 0 {
			return uint(v), true
		}
	}
	return 0, false
}
