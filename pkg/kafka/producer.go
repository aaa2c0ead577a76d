package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ActivityEvent announces a lifecycle change of one stored activity.
type ActivityEvent struct {
	EventType      string    `json:"event_type"` // created, updated, deleted
	IATIIdentifier string    `json:"iati_identifier"`
	ResourceURL    string    `json:"resource_url"`
	DatasetID      string    `json:"dataset_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// PublishActivityEvent publishes one activity event to Kafka
func (p *Producer) PublishActivityEvent(ctx context.Context, event *ActivityEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishActivityEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.IATIIdentifier),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "dataset_id", Value: []byte(event.DatasetID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish activity event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":      event.EventType,
		"iati_identifier": event.IATIIdentifier,
	}).Debug("Published activity event")

	return nil
}

// PublishActivityEvents publishes multiple activity events in one batch
func (p *Producer) PublishActivityEvents(ctx context.Context, events []*ActivityEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishActivityEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.IATIIdentifier),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "dataset_id", Value: []byte(event.DatasetID)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("count", len(msgs)).Error("Failed to publish activity events")
		return err
	}

	return nil
}
