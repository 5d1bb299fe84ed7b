package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Compile-time check to ensure KafkaArchiver implements Sink
var _ Sink = (*KafkaArchiver)(nil)

// KafkaArchiver appends every snapshot to a topic, keyed by cycle time.
type KafkaArchiver struct {
	writer KafkaWriter
}

func NewKafkaArchiver(writer KafkaWriter) *KafkaArchiver {
	return &KafkaArchiver{writer: writer}
}

// NewKafkaWriter returns the writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		// One message per poll cycle; flush immediately
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func (k *KafkaArchiver) Name() string { return "kafka" }

func (k *KafkaArchiver) Publish(ctx context.Context, at time.Time, payload []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(at.UTC().Format(time.RFC3339Nano)),
		Value: payload,
		Time:  at,
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaArchiver) Close() error {
	return k.writer.Close()
}
