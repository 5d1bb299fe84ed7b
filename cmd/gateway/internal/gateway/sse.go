package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/gateway/internal/hub"
)

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Compile-time check to ensure SSEClient implements hub.ClientInterface
var _ hub.ClientInterface = (*SSEClient)(nil)

// EventWriter frames payloads as text/event-stream "data:" events.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewEventWriter sets the event-stream headers and flushes them.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one "data: <payload>\n\n" event and flushes it.
func (e *EventWriter) WriteEvent(payload []byte) error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// SSEClient is a Hub client backed by an event-stream response.
type SSEClient struct {
	id     string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func NewSSEClient(logger *zap.Logger) *SSEClient {
	id := uuid.NewString()
	return &SSEClient{
		id:     id,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("client", id)),
	}
}

func (c *SSEClient) ID() string { return c.id }

func (c *SSEClient) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *SSEClient) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.SendBytes(b)
}

func (c *SSEClient) SendBytes(b []byte) {
	select {
	case <-c.done:
	case c.send <- b:
	default:
		c.logger.Debug("Send buffer full, dropping event")
	}
}

// Serve writes queued payloads as events until ctx is done, the client is closed
// or a write fails.
func (c *SSEClient) Serve(ctx context.Context, ew *EventWriter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case msg := <-c.send:
			if err := ew.WriteEvent(msg); err != nil {
				return err
			}
		}
	}
}
