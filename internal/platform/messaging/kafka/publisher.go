package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/pulsewatch/pulsewatch/internal/shared/events"
)

// EventPublisher publishes monitoring events to Kafka
type EventPublisher struct {
	producer sarama.AsyncProducer
	config   *Config
	errors   chan error
}

// Config holds Kafka configuration
type Config struct {
	Brokers []string
	Topic   string
}

// NewEventPublisher creates a new Kafka event publisher
func NewEventPublisher(config *Config) (*EventPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewAsyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	publisher := &EventPublisher{
		producer: producer,
		config:   config,
		errors:   make(chan error, 100),
	}

	go publisher.handleErrors()

	return publisher, nil
}

// Publish publishes an event keyed by aggregate id
func (p *EventPublisher) Publish(ctx context.Context, event *events.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.config.Topic,
		Key:   sarama.StringEncoder(event.AggregateID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("eventType"), Value: []byte(event.EventType)},
			{Key: []byte("aggregateType"), Value: []byte(event.AggregateType)},
		},
		Timestamp: event.Timestamp,
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case err := <-p.errors:
		return fmt.Errorf("producer error: %w", err)
	}
}

// Close closes the publisher
func (p *EventPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	return nil
}

func (p *EventPublisher) handleErrors() {
	for err := range p.producer.Errors() {
		select {
		case p.errors <- fmt.Errorf("kafka producer error: %w", err.Err):
		default:
			// Drop when the channel is full; the next Publish surfaces one
		}
	}
}
