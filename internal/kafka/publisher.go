package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
)

// Publisher emits user activity events
type Publisher interface {
	Publish(ctx context.Context, event domain.ActivityEvent) error
	Close() error
}

// Producer publishes activity events to a Kafka topic
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducer connects a synchronous producer to the configured brokers
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Timeout = cfg.Timeout
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	return NewProducerWith(producer, cfg.Topic, logger), nil
}

// NewProducerWith wraps an existing sarama producer
func NewProducerWith(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends one event keyed by the Telegram user id. A missing ID or
// timestamp is filled in.
func (p *Producer) Publish(ctx context.Context, event domain.ActivityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding activity event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.TelegramID, 10)),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publishing activity event: %w", err)
	}

	p.logger.Debug("published activity event",
		"type", event.Type,
		"event_id", event.ID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every event; used when Kafka is disabled
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.ActivityEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
