package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/naclonts/marketstream/cmd/poller/internal/publisher"
)

type MockPipeline struct {
	redis.Pipeliner // Embed interface to satisfy missing methods like ACLCat, etc.

	ExecCount    int
	RecordedCmds []string
	Values       map[string]string
	TTLs         map[string]time.Duration
	FailExec     bool
	Mu           sync.Mutex
}

func (m *MockPipeline) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "SET "+key)
	if m.Values == nil {
		m.Values = map[string]string{}
		m.TTLs = map[string]time.Duration{}
	}
	if b, ok := value.([]byte); ok {
		m.Values[key] = string(b)
	}
	m.TTLs[key] = expiration
	return redis.NewStatusCmd(ctx)
}

func (m *MockPipeline) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RecordedCmds = append(m.RecordedCmds, "PUBLISH "+channel)
	return redis.NewIntCmd(ctx)
}

func (m *MockPipeline) Exec(ctx context.Context) ([]redis.Cmder, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.ExecCount++
	if m.FailExec {
		return nil, errors.New("connection refused")
	}
	return nil, nil
}

type MockRedisClient struct {
	PipelineSpy *MockPipeline
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{PipelineSpy: &MockPipeline{}}
}

func (m *MockRedisClient) Pipeline() redis.Pipeliner {
	return m.PipelineSpy
}

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

type MockClock struct {
	Slept time.Duration
}

func (m *MockClock) Sleep(d time.Duration) { m.Slept += d }

type MockKafkaConn struct {
	CreatedTopics []kafka.TopicConfig
	Existing      int // partitions of a topic that is already there
	CreateErr     error
	NotReady      bool
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.CreatedTopics = append(m.CreatedTopics, topics...)
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	n := m.Existing
	if n == 0 && !m.NotReady && len(m.CreatedTopics) > 0 {
		n = m.CreatedTopics[0].NumPartitions
	}
	if n == 0 {
		return nil, kafka.UnknownTopicOrPartition
	}
	out := make([]kafka.Partition, n)
	for i := range out {
		out[i] = kafka.Partition{Topic: topics[0], ID: i}
	}
	return out, nil
}

type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Fail    bool
	Dialed  []string
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (publisher.KafkaConn, error) {
	m.Dialed = append(m.Dialed, address)
	if m.Fail {
		return nil, errors.New("dial tcp: connection refused")
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{}
	}
	return m.ConnSpy, nil
}

// MockSink records payloads and can be made to fail.
type MockSink struct {
	NameVal  string
	Payloads []string
	Err      error
	Mu       sync.Mutex
}

func (m *MockSink) Name() string { return m.NameVal }

func (m *MockSink) Publish(ctx context.Context, at time.Time, payload []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Payloads = append(m.Payloads, string(payload))
	return m.Err
}
