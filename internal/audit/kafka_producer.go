package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducerConfig contains configurable parameters for the Kafka producer.
type KafkaProducerConfig struct {
	Brokers []string
	Topic   string
	// MaxAttempts defaults to 3 when <= 0.
	MaxAttempts int
	// WriteTimeout defaults to 10s when zero.
	WriteTimeout time.Duration
	// Balancer defaults to key hashing so events of one flag stay ordered.
	Balancer kafka.Balancer
}

// messageWriter is the subset of kafka.Writer the producer depends on.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer streams dispute events to a Kafka topic with bounded retries.
type KafkaProducer struct {
	writer      messageWriter
	topic       string
	maxAttempts int
	backoff     time.Duration
}

// NewKafkaProducer constructs a KafkaProducer.
func NewKafkaProducer(cfg KafkaProducerConfig) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Balancer == nil {
		cfg.Balancer = &kafka.Hash{}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     cfg.Balancer,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaProducer{
		writer:      w,
		topic:       cfg.Topic,
		maxAttempts: cfg.MaxAttempts,
		backoff:     100 * time.Millisecond,
	}, nil
}

// Produce writes a single keyed message, retrying transient failures.
func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	var lastErr error
	backoff := p.backoff

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		msg := kafka.Message{
			Key:   key,
			Value: value,
			Time:  time.Now().UTC(),
		}

		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("produce to %s aborted: %w", p.topic, ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}

	return fmt.Errorf("produce to %s failed after %d attempts: %w", p.topic, p.maxAttempts, lastErr)
}

// PublishEvent marshals v into compact JSON and produces it keyed by key.
func (p *KafkaProducer) PublishEvent(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return p.Produce(ctx, []byte(key), b)
}

// Close shuts down the underlying writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
