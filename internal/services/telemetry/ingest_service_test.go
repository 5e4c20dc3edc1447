package telemetry_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
)

// fakeBroker implements telemetry.Broker for tests: deliveries are pushed on
// a channel and published messages are recorded.
type fakeBroker struct {
	mu         sync.Mutex
	deliveries chan amqp.Delivery
	published  []publishedMessage
}

type publishedMessage struct {
	RoutingKey string
	Message    interface{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{deliveries: make(chan amqp.Delivery, 16)}
}

func (b *fakeBroker) Publish(routingKey string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{RoutingKey: routingKey, Message: message})
	return nil
}

func (b *fakeBroker) Subscribe(queueName, bindingKey, consumerTag string) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) publishedMessages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedMessage, len(b.published))
	copy(out, b.published)
	return out
}

// deliver pushes one delivery onto the consumer channel
func (b *fakeBroker) deliver(t *testing.T, routingKey string, payload interface{}) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	b.deliveries <- amqp.Delivery{RoutingKey: routingKey, Body: body}
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Fail(t, "condition not met before deadline")
}

func rowCount(f *fixture) int64 {
	var count int64
	f.db.Raw(fmt.Sprintf("SELECT COUNT(*) FROM %s", telemetry.PhysicalTableName(f.table.ID))).Scan(&count)
	return count
}

func TestIngestService(t *testing.T) {
	t.Run("Should insert a row and publish exactly one acknowledgement", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliver(t, fmt.Sprintf("project.%d.data", f.project.ID), map[string]interface{}{
			"mqttKey":  "ignored",
			"deviceID": "fp-a",
			"table":    "climate",
			"data":     map[string]interface{}{"temperature": 23.5, "active": true},
		})

		waitFor(t, func() bool { return rowCount(f) == 1 })
		waitFor(t, func() bool { return len(broker.publishedMessages()) == 1 })

		published := broker.publishedMessages()
		assert.Equal(t, fmt.Sprintf("projectSuccess.%d.data", f.project.ID), published[0].RoutingKey)

		// The acknowledgement carries the stored row.
		row := published[0].Message.(map[string]interface{})
		assert.EqualValues(t, 23.5, row["temperature"])

		var rows []map[string]interface{}
		query := fmt.Sprintf("SELECT * FROM %s", telemetry.PhysicalTableName(f.table.ID))
		require.NoError(t, f.db.Raw(query).Scan(&rows).Error)
		require.Len(t, rows, 1)
		assert.EqualValues(t, f.devices[0].ID, rows[0]["device"])
	})

	t.Run("Should drop a message with missing fields without publishing", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliver(t, fmt.Sprintf("project.%d.data", f.project.ID), map[string]interface{}{
			"deviceID": "fp-a",
			"table":    "climate",
		})

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(0), rowCount(f))
		assert.Empty(t, broker.publishedMessages())
	})

	t.Run("Should drop a message naming an unregistered column", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliver(t, fmt.Sprintf("project.%d.data", f.project.ID), map[string]interface{}{
			"deviceID": "fp-a",
			"table":    "climate",
			"data":     map[string]interface{}{"temperature; DROP TABLE users": 1.0},
		})

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(0), rowCount(f))
		assert.Empty(t, broker.publishedMessages())
	})

	t.Run("Should drop a message writing to a system column", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliver(t, fmt.Sprintf("project.%d.data", f.project.ID), map[string]interface{}{
			"deviceID": "fp-a",
			"table":    "climate",
			"data":     map[string]interface{}{"device": 999},
		})

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(0), rowCount(f))
		assert.Empty(t, broker.publishedMessages())
	})

	t.Run("Should ignore acknowledgement traffic", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliver(t, fmt.Sprintf("projectSuccess.%d.data", f.project.ID), map[string]interface{}{
			"deviceID": "fp-a",
			"table":    "climate",
			"data":     map[string]interface{}{"temperature": 1.0},
		})

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(0), rowCount(f))
		assert.Empty(t, broker.publishedMessages())
	})

	t.Run("Should drop a message for an unknown device", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliver(t, fmt.Sprintf("project.%d.data", f.project.ID), map[string]interface{}{
			"deviceID": "fp-unknown",
			"table":    "climate",
			"data":     map[string]interface{}{"temperature": 1.0},
		})

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int64(0), rowCount(f))
		assert.Empty(t, broker.publishedMessages())
	})

	t.Run("Should keep consuming after a malformed message", func(t *testing.T) {
		f := newFixture(t)
		broker := newFakeBroker()
		svc := telemetry.NewIngestService(broker, f.db)
		require.NoError(t, svc.Start())
		defer svc.Stop()

		broker.deliveries <- amqp.Delivery{
			RoutingKey: fmt.Sprintf("project.%d.data", f.project.ID),
			Body:       []byte("not json"),
		}
		broker.deliver(t, fmt.Sprintf("project.%d.data", f.project.ID), map[string]interface{}{
			"deviceID": "fp-a",
			"table":    "climate",
			"data":     map[string]interface{}{"temperature": 5.0},
		})

		waitFor(t, func() bool { return rowCount(f) == 1 })
	})
}
