package gateway

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/gateway/internal/hub"
	"github.com/naclonts/marketstream/cmd/gateway/internal/protocol"
	"github.com/naclonts/marketstream/pkg/catalog"
)

const (
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
)

// Compile-time check to ensure ClientAdapter implements hub.ClientInterface
var _ hub.ClientInterface = (*ClientAdapter)(nil)

type ClientAdapter struct {
	id     string
	conn   net.Conn
	hub    *hub.Hub
	send   chan []byte
	pongs  chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger) *ClientAdapter {
	id := uuid.NewString()
	return &ClientAdapter{
		id:         id,
		conn:       conn,
		hub:        h,
		send:       make(chan []byte, sendBuffer),
		pongs:      make(chan []byte, 1),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("client", id), zap.String("remote", conn.RemoteAddr().String())),
		writeWait:  5 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 50 * time.Second,
	}
}

func (c *ClientAdapter) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.id }

// Close stops the write pump, which closes the connection.
func (c *ClientAdapter) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode reply", zap.Error(err))
		return
	}
	c.SendBytes(b)
}

func (c *ClientAdapter) SendBytes(b []byte) {
	select {
	case <-c.done:
	case c.send <- b:
	default:
		// Drop message if buffer full (Backpressure)
		c.logger.Debug("Send buffer full, dropping frame")
	}
}

var (
	errFrameTooLarge = errors.New("frame exceeds max message size")
	errFragmented    = errors.New("fragmented frames are not supported")
)

// readFrame reads and unmasks one complete frame.
func readFrame(r io.Reader) (ws.Header, []byte, error) {
	header, err := ws.ReadHeader(r)
	if err != nil {
		return header, nil, err
	}
	if header.Length > maxMessageSize {
		return header, nil, errFrameTooLarge
	}
	if !header.Fin {
		return header, nil, errFragmented
	}

	payload := make([]byte, header.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return header, nil, err
	}
	if header.Masked {
		ws.Cipher(payload, header.Mask, 0)
	}
	return header, payload, nil
}

func normalizeSymbols(symbols []string) {
	for i, s := range symbols {
		symbols[i] = catalog.Normalize(s)
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		header, payload, err := readFrame(c.conn)
		if err != nil {
			if errors.Is(err, errFrameTooLarge) || errors.Is(err, errFragmented) {
				c.logger.Warn("Rejecting frame", zap.Int64("size", header.Length), zap.Error(err))
			}
			return
		}

		switch header.OpCode {
		case ws.OpClose:
			return
		case ws.OpPing:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			select {
			case c.pongs <- payload:
			default:
			}
		case ws.OpPong:
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		case ws.OpText:
			var req protocol.WSRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, Status: "error", Message: "Invalid JSON"})
				continue
			}
			normalizeSymbols(req.Payload.Symbols)
			c.hub.HandleCommand(c, req)
		}
	}
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.Write(ws.CompiledClose)
			return

		case p := <-c.pongs:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPong, p); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
