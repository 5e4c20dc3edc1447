package services

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// TelemetryExchange is the topic exchange carrying device telemetry.
// Routing keys follow the topic convention "project.<id>.data" for inbound
// messages and "projectSuccess.<id>.data" for insert acknowledgements.
const TelemetryExchange = "telemetry"

// BrokerService owns the AMQP connection used for telemetry transport. It is
// constructed once at startup and passed to the consumers and publishers that
// need it; there is no process-wide singleton.
type BrokerService struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewBrokerService connects to the broker and declares the telemetry topic
// exchange
func NewBrokerService() (*BrokerService, error) {
	host := getEnv("RABBITMQ_HOST", "localhost")
	port := getEnv("RABBITMQ_PORT", "5672")
	user := getEnv("RABBITMQ_USER", "guest")
	pass := getEnv("RABBITMQ_PASS", "guest")

	url := fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		TelemetryExchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	service := &BrokerService{
		conn:    conn,
		channel: channel,
	}

	logrus.Info("Broker service initialized successfully")
	return service, nil
}

// Publish publishes a JSON message to the telemetry exchange under the given
// routing key
func (s *BrokerService) Publish(routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = s.channel.Publish(
		TelemetryExchange, // exchange
		routingKey,        // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Subscribe declares a queue bound to the telemetry exchange with the given
// binding key and returns its delivery channel. The consumer tag identifies
// the subscriber in broker diagnostics.
func (s *BrokerService) Subscribe(queueName, bindingKey, consumerTag string) (<-chan amqp.Delivery, error) {
	queue, err := s.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = s.channel.QueueBind(
		queue.Name,        // queue name
		bindingKey,        // routing key
		TelemetryExchange, // exchange
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := s.channel.Consume(
		queue.Name,  // queue
		consumerTag, // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	return msgs, nil
}

// Close closes the broker connection
func (s *BrokerService) Close() error {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			logrus.Errorf("Error closing channel: %v", err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			logrus.Errorf("Error closing connection: %v", err)
		}
	}
	return nil
}

// getEnv gets environment variable with fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
