package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/naclonts/marketstream/cmd/gateway/internal/protocol"
)

// MockClient simulates a connected stream client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // Stores decoded JSON messages
	RawBytes []string              // Stores raw bytes
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	// If it's a response, store it
	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

func (m *MockClient) LastMessage() protocol.WSResponse {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return protocol.WSResponse{}
	}
	return m.Messages[len(m.Messages)-1]
}

func (m *MockClient) Raw() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]string, len(m.RawBytes))
	copy(out, m.RawBytes)
	return out
}

// MockSnapshotStore simulates Redis
type MockSnapshotStore struct {
	LatestPayload string
	LatestErr     error
	Feed          chan string
	Mu            sync.Mutex
}

func NewMockStore() *MockSnapshotStore {
	return &MockSnapshotStore{Feed: make(chan string, 16)}
}

func (m *MockSnapshotStore) SetLatest(payload string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.LatestPayload = payload
}

func (m *MockSnapshotStore) Latest(ctx context.Context) (string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.LatestPayload, m.LatestErr
}

// RunPubSub delivers whatever is pushed on Feed.
func (m *MockSnapshotStore) RunPubSub(ctx context.Context, onMessage func(payload string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-m.Feed:
			onMessage(p)
		}
	}
}

func (m *MockSnapshotStore) Close() error { return nil }

// StaticSymbols is a fixed catalog membership set.
type StaticSymbols map[string]bool

func (s StaticSymbols) Has(symbol string) bool { return s[symbol] }

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("Assertion failed: %s", msg)
	}
}
