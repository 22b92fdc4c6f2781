package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/ticket-wallet-ledger/internal/config"
)

// TopicProducer publishes JSON values to a single Kafka topic.
type TopicProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
	name   string
}

// NewAdjustmentRequestProducer publishes wallet adjustment requests for the processor.
// Writes are asynchronous; the gateway only needs the request handed to the broker.
func NewAdjustmentRequestProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	if cfg.AdjustmentTopic == "" {
		return nil, fmt.Errorf("kafka adjustment topic is not configured")
	}
	return newTopicProducer(logger, cfg, cfg.AdjustmentTopic, "adjustment request", true)
}

// NewWalletEventProducer publishes committed wallet transactions. Writes are synchronous
// and acknowledged by all replicas so the outbox only marks what the broker accepted.
func NewWalletEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TopicProducer, error) {
	if cfg.WalletEventsTopic == "" {
		return nil, fmt.Errorf("kafka wallet events topic is not configured")
	}
	return newTopicProducer(logger, cfg, cfg.WalletEventsTopic, "wallet event", false)
}

func newTopicProducer(logger *slog.Logger, cfg *config.KafkaConfig, topic, name string, async bool) (*TopicProducer, error) {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for %s producer: %w", name, err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for %s producer: %w", topic, name, err)
	}

	acks := kafka.RequireAll
	if async {
		acks = kafka.RequireOne
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same key, same partition: per-wallet ordering
		RequiredAcks: acks,
		Async:        async,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages", "topic", topic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages", "topic", topic, "count", len(messages))
			}
		},
	}

	return &TopicProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
		name:   name,
	}, nil
}

func (p *TopicProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for %s producer: %w", p.name, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message",
			"producer", p.name,
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via %s producer: %w", p.topic, p.name, err)
	}

	p.logger.Debug("Published message",
		"producer", p.name,
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *TopicProducer) Close() error {
	p.logger.Info("Closing Kafka message producer", "producer", p.name, "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close %s kafka writer for topic %s: %w", p.name, p.topic, err)
	}
	return nil
}
