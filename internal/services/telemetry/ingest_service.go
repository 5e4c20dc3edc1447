package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database/repository"
)

// Routing key conventions for the telemetry topic exchange. Inbound device
// data arrives on project.<id>.data; insert acknowledgements are published
// on projectSuccess.<id>.data and are never consumed by the pipeline (the
// binding key excludes them).
const (
	ingestQueueName  = "telemetry_ingest"
	ingestBindingKey = "project.*.data"
	inboundTopicType = "project"
	ackTopicType     = "projectSuccess"
)

// Broker is the transport surface the ingestion pipeline needs. The owned
// BrokerService satisfies it; tests substitute a fake.
type Broker interface {
	Publish(routingKey string, message interface{}) error
	Subscribe(queueName, bindingKey, consumerTag string) (<-chan amqp.Delivery, error)
}

// inboundMessage is the wire shape of one device telemetry message
type inboundMessage struct {
	MQTTKey  string                 `json:"mqttKey"`
	DeviceID string                 `json:"deviceID"`
	Table    string                 `json:"table"`
	Data     map[string]interface{} `json:"data"`
}

// insertRequest is the internal insertion request built from an inbound
// message plus its routing key
type insertRequest struct {
	ProjectID   uint
	Fingerprint string
	Table       string
	Data        map[string]interface{}
}

// IngestService consumes inbound device telemetry, routes each row into the
// correct per-dataset table and acknowledges successful inserts. Delivery is
// at-most-once: malformed or failed messages are logged and dropped, never
// retried, and the listener never crashes on them.
type IngestService struct {
	broker     Broker
	db         *gorm.DB
	deviceRepo *repository.DeviceRepository
	tableRepo  *repository.DataTableRepository
	columnRepo *repository.ColumnRepository
	stopChan   chan bool
}

// NewIngestService creates a new ingestion pipeline bound to an owned broker
// connection
func NewIngestService(broker Broker, db *gorm.DB) *IngestService {
	return &IngestService{
		broker:     broker,
		db:         db,
		deviceRepo: repository.NewDeviceRepository(db),
		tableRepo:  repository.NewDataTableRepository(db),
		columnRepo: repository.NewColumnRepository(db),
		stopChan:   make(chan bool),
	}
}

// Start subscribes to the inbound telemetry topic and processes deliveries
// one at a time until Stop is called
func (s *IngestService) Start() error {
	consumerTag := "telemetry-ingest-" + uuid.NewString()
	msgs, err := s.broker.Subscribe(ingestQueueName, ingestBindingKey, consumerTag)
	if err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	logrus.Infof("Telemetry ingestion started on binding %s", ingestBindingKey)

	go func() {
		for {
			select {
			case <-s.stopChan:
				logrus.Info("Telemetry ingestion stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					logrus.Warn("Telemetry delivery channel closed")
					return
				}
				if err := s.handleDelivery(msg.RoutingKey, msg.Body); err != nil {
					logrus.Errorf("Failed to process telemetry message on %s: %v", msg.RoutingKey, err)
				}
			}
		}
	}()

	return nil
}

// Stop terminates the consumer loop
func (s *IngestService) Stop() {
	close(s.stopChan)
}

// handleDelivery processes one delivery. Errors are returned for logging
// only; the caller never escalates them.
func (s *IngestService) handleDelivery(routingKey string, body []byte) error {
	tokens := strings.Split(routingKey, ".")
	if len(tokens) < 2 {
		return fmt.Errorf("unexpected routing key: %s", routingKey)
	}

	// Acknowledgement traffic is never re-processed.
	if tokens[0] == ackTopicType {
		return nil
	}
	if tokens[0] != inboundTopicType {
		return fmt.Errorf("unexpected topic type: %s", tokens[0])
	}

	projectID, err := strconv.ParseUint(tokens[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid project id in routing key %s: %w", routingKey, err)
	}

	var msg inboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal telemetry message: %w", err)
	}

	req := &insertRequest{
		ProjectID:   uint(projectID),
		Fingerprint: msg.DeviceID,
		Table:       msg.Table,
		Data:        msg.Data,
	}

	if req.Fingerprint == "" || req.Table == "" || len(req.Data) == 0 {
		return fmt.Errorf("missing required fields (fingerprint, table, data)")
	}

	row, err := s.insertRow(req)
	if err != nil {
		return err
	}

	// The committed insert is the source of truth; acknowledgement is best
	// effort and a publish failure never rolls it back.
	ackKey := fmt.Sprintf("%s.%d.data", ackTopicType, req.ProjectID)
	if err := s.broker.Publish(ackKey, row); err != nil {
		logrus.Errorf("Failed to publish ingestion acknowledgement on %s: %v", ackKey, err)
	}

	return nil
}

// insertRow resolves the destination dataset and device, validates the data
// keys against the column registry and writes one row. Returns the inserted
// row as stored.
func (s *IngestService) insertRow(req *insertRequest) (map[string]interface{}, error) {
	table, err := s.tableRepo.GetByName(req.ProjectID, req.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset: %w", err)
	}
	if table == nil {
		return nil, fmt.Errorf("dataset %q not found for project %d", req.Table, req.ProjectID)
	}

	device, err := s.deviceRepo.GetByFingerprint(req.ProjectID, req.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device: %w", err)
	}
	if device == nil {
		return nil, fmt.Errorf("device %q not found for project %d", req.Fingerprint, req.ProjectID)
	}

	registered, err := s.columnRepo.GetByTableID(table.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset columns: %w", err)
	}
	columns := newColumnSet(registered)

	// Every data key must be a registered, non-system column of the
	// dataset. Identifier injection via payload keys is rejected here.
	names := make([]string, 0, len(req.Data))
	for name := range req.Data {
		column, ok := columns[name]
		if !ok || column.IsSystemColumn {
			return nil, fmt.Errorf("column %q is not registered for dataset %d", name, table.ID)
		}
		names = append(names, name)
	}

	physical := PhysicalTableName(table.ID)

	var inserted map[string]interface{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		columnList := SystemColumnDevice + ", " + SystemColumnCreatedAt
		placeholders := "?, ?"
		args := []interface{}{device.ID, time.Now()}
		for _, name := range names {
			columnList += ", " + name
			placeholders += ", ?"
			args = append(args, req.Data[name])
		}

		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", physical, columnList, placeholders)
		if err := tx.Exec(insert, args...).Error; err != nil {
			return fmt.Errorf("failed to insert telemetry row: %w", err)
		}

		var rows []map[string]interface{}
		query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s DESC LIMIT 1",
			physical, SystemColumnDevice, SystemColumnID)
		if err := tx.Raw(query, device.ID).Scan(&rows).Error; err != nil {
			return fmt.Errorf("failed to read inserted row: %w", err)
		}
		if len(rows) > 0 {
			inserted = rows[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inserted, nil
}
