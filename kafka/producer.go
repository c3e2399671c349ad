package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/IBM/sarama"
	"github.com/MoVahedi1/gym/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const OrderEventsTopic = "order-events"

// Producer publishes order lifecycle events to Kafka.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func InitProducer(logger *zap.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	brokers := []string{getEnv("KAFKA_BROKER", "localhost:9092")}

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized")
	return &Producer{
		producer: producer,
		topic:    getEnv("KAFKA_ORDER_TOPIC", OrderEventsTopic),
		logger:   logger,
	}, nil
}

func (p *Producer) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderNumber),
		Value: sarama.StringEncoder(eventJSON),
	}

	// Inject trace context into Kafka message headers
	propagator := otel.GetTextMapPropagator()
	carrier := make(saramaHeaderCarrier, 0)
	propagator.Inject(ctx, &carrier)
	msg.Headers = []sarama.RecordHeader(carrier)

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	// Extract trace ID for logging
	span := trace.SpanFromContext(ctx)
	traceID := ""
	if span.SpanContext().IsValid() {
		traceID = span.SpanContext().TraceID().String()
	}

	p.logger.Info("Event published",
		zap.String("trace_id", traceID),
		zap.String("topic", p.topic),
		zap.String("event_type", event.EventType),
		zap.String("order_number", event.OrderNumber),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// saramaHeaderCarrier implements the TextMapCarrier interface for Kafka headers
type saramaHeaderCarrier []sarama.RecordHeader

func (c saramaHeaderCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *saramaHeaderCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c saramaHeaderCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
