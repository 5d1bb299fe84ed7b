package hub

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/gateway/internal/protocol"
	"github.com/naclonts/marketstream/cmd/gateway/internal/repository"
	"github.com/naclonts/marketstream/pkg/models"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// SymbolSet reports whether a symbol is in the catalog.
type SymbolSet interface {
	Has(symbol string) bool
}

// subscription also remembers what still awaits the cached replay. A broadcast
// that reaches the client settles those symbols, so a later replay never repeats
// or overtakes it.
type subscription struct {
	all     bool
	symbols map[string]bool

	pendingAll bool
	pending    map[string]bool
}

func newSubscription() *subscription {
	return &subscription{symbols: make(map[string]bool), pending: make(map[string]bool)}
}

func (s *subscription) empty() bool { return !s.all && len(s.symbols) == 0 }

func (s *subscription) settle(part models.Snapshot) {
	if part == nil {
		s.pendingAll = false
		s.pending = make(map[string]bool)
		return
	}
	for sym := range part {
		delete(s.pending, sym)
	}
}

type Hub struct {
	clients map[ClientInterface]*subscription

	store   repository.SnapshotStore
	symbols SymbolSet
	logger  *zap.Logger
	mu      sync.RWMutex
}

func NewHub(store repository.SnapshotStore, symbols SymbolSet, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[ClientInterface]*subscription),
		store:   store,
		symbols: symbols,
		logger:  logger,
	}
}

// Run feeds published snapshots to Broadcast until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	return h.store.RunPubSub(ctx, h.Broadcast)
}

// Register adds a client with no symbols. Websocket clients then subscribe by command.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		h.clients[client] = newSubscription()
	}
	h.logger.Debug("Client registered", zap.String("client", client.ID()))
}

// SubscribeAll makes client receive every snapshot unfiltered.
func (h *Hub) SubscribeAll(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := h.subscriptionLocked(client)
	sub.all = true
	sub.symbols = make(map[string]bool)
	sub.pendingAll = true
	sub.pending = make(map[string]bool)
}

// Subscribe adds the catalog symbols among symbols to client and returns the ones newly added.
func (h *Hub) Subscribe(client ClientInterface, symbols []string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := h.subscriptionLocked(client)
	var added []string
	for _, s := range symbols {
		if !h.symbols.Has(s) {
			continue
		}
		// Idempotency: Ignore if already subscribed
		if sub.all || sub.symbols[s] {
			continue
		}
		sub.symbols[s] = true
		sub.pending[s] = true
		added = append(added, s)
	}
	return added
}

func (h *Hub) subscriptionLocked(client ClientInterface) *subscription {
	sub, ok := h.clients[client]
	if !ok {
		sub = newSubscription()
		h.clients[client] = sub
	}
	return sub
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest) {
	valid := h.Subscribe(client, req.Payload.Symbols)
	if len(valid) == 0 {
		h.sendError(client, req.ID, "No valid/new symbols provided")
		return
	}

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %v", valid))

	// Send the cached snapshot (Async to avoid blocking the read loop)
	go h.SendLatest(client)
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	var removed []string
	if sub, ok := h.clients[client]; ok {
		for _, sym := range req.Payload.Symbols {
			if sub.symbols[sym] {
				delete(sub.symbols, sym)
				delete(sub.pending, sym)
				removed = append(removed, sym)
			}
		}
	}
	h.mu.Unlock()

	if len(removed) > 0 {
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Unsubscribed from %v", removed))
	} else {
		h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %v", req.Payload.Symbols))
	}
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	if sub, ok := h.clients[client]; ok {
		// Clear the set but keep the client registered
		sub.all = false
		sub.symbols = make(map[string]bool)
		sub.settle(nil)
	}
	h.mu.Unlock()

	h.sendAck(client, req.ID, "success", "Unsubscribed from all symbols")
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.Close()
	h.logger.Debug("Client unregistered", zap.String("client", client.ID()))
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one published snapshot to every client, filtered to its symbols.
// Clients subscribed to everything get the payload as published. A payload that
// does not decode reaches nobody.
func (h *Hub) Broadcast(payload string) {
	raw := []byte(payload)
	snap, err := models.DecodeSnapshot(raw)
	if err != nil {
		h.logger.Error("Dropping malformed snapshot", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client, sub := range h.clients {
		if sub.empty() {
			continue
		}
		if sub.all {
			client.SendBytes(raw)
			sub.settle(nil)
			continue
		}
		if part := h.sendFiltered(client, snap, sub.symbols); part != nil {
			sub.settle(part)
		}
	}
}

// sendFiltered returns the part it sent, or nil when nothing was sent.
func (h *Hub) sendFiltered(client ClientInterface, snap models.Snapshot, symbols map[string]bool) models.Snapshot {
	part := snap.Filter(symbols)
	if len(part) == 0 {
		return nil
	}
	b, err := part.Encode()
	if err != nil {
		h.logger.Error("Failed to encode snapshot", zap.String("client", client.ID()), zap.Error(err))
		return nil
	}
	client.SendBytes(b)
	return part
}

// SendLatest replays the cached snapshot to client, limited to the symbols no
// broadcast has delivered to it since they were subscribed.
func (h *Hub) SendLatest(client ClientInterface) {
	payload, err := h.store.Latest(context.Background())
	if err != nil {
		h.logger.Warn("Failed to read latest snapshot", zap.Error(err))
		return
	}
	if payload == "" {
		return
	}
	raw := []byte(payload)
	snap, err := models.DecodeSnapshot(raw)
	if err != nil {
		h.logger.Error("Cached snapshot is malformed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.clients[client]
	if !ok || sub.empty() {
		return
	}
	if sub.all {
		if sub.pendingAll {
			client.SendBytes(raw)
			sub.settle(nil)
		}
		return
	}

	wanted := make(map[string]bool, len(sub.pending))
	for sym := range sub.pending {
		if sub.symbols[sym] {
			wanted[sym] = true
		}
	}
	h.sendFiltered(client, snap, wanted)
	sub.pending = make(map[string]bool)
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Status: "error", Message: msg})
}
