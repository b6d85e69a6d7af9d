package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	failures int
	messages []kafka.Message
	calls    int
}

func (s *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("leader not available")
	}
	s.messages = append(s.messages, msgs...)
	return nil
}

func (s *stubWriter) Close() error { return nil }

func TestNewKafkaProducerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaProducer(KafkaProducerConfig{Topic: "disputes"})
	require.Error(t, err)

	_, err = NewKafkaProducer(KafkaProducerConfig{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
}

func TestKafkaProducerRetriesThenSucceeds(t *testing.T) {
	writer := &stubWriter{failures: 2}
	producer := &KafkaProducer{writer: writer, topic: "disputes", maxAttempts: 3, backoff: time.Millisecond}

	err := producer.PublishEvent(context.Background(), "flag:7", map[string]interface{}{"action": "flag.resolved"})
	require.NoError(t, err)
	require.Equal(t, 3, writer.calls)
	require.Len(t, writer.messages, 1)
	require.Equal(t, "flag:7", string(writer.messages[0].Key))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &payload))
	require.Equal(t, "flag.resolved", payload["action"])
}

func TestKafkaProducerGivesUpAfterMaxAttempts(t *testing.T) {
	writer := &stubWriter{failures: 5}
	producer := &KafkaProducer{writer: writer, topic: "disputes", maxAttempts: 2, backoff: time.Millisecond}

	err := producer.Produce(context.Background(), []byte("k"), []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed after 2 attempts")
	require.Equal(t, 2, writer.calls)
}
