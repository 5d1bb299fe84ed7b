package publisher

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Sink receives every encoded snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, at time.Time, payload []byte) error
}

// RedisClient abstracts the output storage connection
type RedisClient interface {
	Pipeline() redis.Pipeliner
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaDialer interface {
	DialContext(ctx context.Context, network, address string) (KafkaConn, error)
}

type KafkaConn interface {
	Controller() (kafka.Broker, error)
	Close() error
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
}

// for deterministic testing
type Clock interface {
	Sleep(d time.Duration)
}

type RealClock struct{}

func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// *kafka.Conn satisfies KafkaConn as is.
var _ KafkaConn = (*kafka.Conn)(nil)

// DialerFunc adapts a dial function to KafkaDialer.
type DialerFunc func(ctx context.Context, network, address string) (KafkaConn, error)

func (f DialerFunc) DialContext(ctx context.Context, network, address string) (KafkaConn, error) {
	return f(ctx, network, address)
}

// NewKafkaDialer wraps d so the topic creator can use it.
func NewKafkaDialer(d *kafka.Dialer) KafkaDialer {
	return DialerFunc(func(ctx context.Context, network, address string) (KafkaConn, error) {
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
