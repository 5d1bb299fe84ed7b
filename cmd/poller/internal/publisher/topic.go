package publisher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	archivePartitions = 1
	topicReadyChecks  = 5
	topicReadyBackoff = 200 * time.Millisecond
)

// ErrTopicPartitioned means an existing archive topic has more than one partition,
// so snapshots written to it would not stay in cycle order.
var ErrTopicPartitioned = errors.New("archive topic must have exactly one partition")

type TopicCreator struct {
	logger *zap.Logger
	dialer KafkaDialer
	clock  Clock
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, clock Clock) *TopicCreator {
	return &TopicCreator{
		logger: logger,
		dialer: dialer,
		clock:  clock,
	}
}

// Ensure makes sure topic exists with a single partition, creating it through
// the cluster controller when it is missing.
func (tc *TopicCreator) Ensure(ctx context.Context, brokers []string, topic string) error {
	conn, err := tc.dialAny(ctx, brokers)
	if err != nil {
		return err
	}
	defer conn.Close()

	if n, err := partitionCount(conn, topic); err == nil {
		return checkPartitions(topic, n)
	}

	if err := tc.create(ctx, conn, topic); err != nil {
		return err
	}
	return tc.waitForTopic(ctx, conn, topic)
}

func (tc *TopicCreator) dialAny(ctx context.Context, brokers []string) (KafkaConn, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	var errs []error
	for _, addr := range brokers {
		conn, err := tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return nil, fmt.Errorf("kafka: dial brokers: %w", errors.Join(errs...))
}

func (tc *TopicCreator) create(ctx context.Context, conn KafkaConn, topic string) error {
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka: controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("kafka: dial controller %s: %w", addr, err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     archivePartitions,
		ReplicationFactor: 1,
	})
	switch {
	case errors.Is(err, kafka.TopicAlreadyExists):
		// created concurrently; waitForTopic still checks the partition count
		tc.logger.Info("Archive topic already exists", zap.String("topic", topic))
	case err != nil:
		return fmt.Errorf("kafka: create topic %s: %w", topic, err)
	default:
		tc.logger.Info("Archive topic created", zap.String("topic", topic))
	}
	return nil
}

func (tc *TopicCreator) waitForTopic(ctx context.Context, conn KafkaConn, topic string) error {
	var lastErr error
	for i := 0; i < topicReadyChecks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tc.clock.Sleep(topicReadyBackoff)

		n, err := partitionCount(conn, topic)
		if err == nil {
			tc.logger.Info("Archive topic is ready", zap.String("topic", topic), zap.Int("partitions", n))
			return checkPartitions(topic, n)
		}
		lastErr = err
	}
	return fmt.Errorf("kafka: topic %s not ready: %w", topic, lastErr)
}

func partitionCount(conn KafkaConn, topic string) (int, error) {
	partitions, err := conn.ReadPartitions(topic)
	if err != nil {
		return 0, err
	}
	if len(partitions) == 0 {
		return 0, fmt.Errorf("topic %s has no partitions", topic)
	}
	return len(partitions), nil
}

func checkPartitions(topic string, n int) error {
	if n != archivePartitions {
		return fmt.Errorf("%w: %s has %d", ErrTopicPartitioned, topic, n)
	}
	return nil
}
