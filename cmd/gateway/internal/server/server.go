// Package server wires the dashboard page and the snapshot streams onto HTTP routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/naclonts/marketstream/cmd/gateway/internal/gateway"
	"github.com/naclonts/marketstream/cmd/gateway/internal/hub"
	"github.com/naclonts/marketstream/pkg/catalog"
	"github.com/naclonts/marketstream/pkg/models"
	"github.com/naclonts/marketstream/pkg/poller"
)

type Options struct {
	Catalog *catalog.Catalog
	// Poller drives /stream in per-connection mode. Nil when Hub is set.
	Poller *poller.Poller
	// Hub serves /stream and /ws in shared mode.
	Hub        *hub.Hub
	WindowSize int
	Logger     *zap.Logger
}

type Server struct {
	catalog *catalog.Catalog
	poller  *poller.Poller
	hub     *hub.Hub
	page    *page
	logger  *zap.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	if opts.Poller == nil && opts.Hub == nil {
		return nil, errors.New("server: either a poller or a hub is required")
	}

	p, err := newPage(opts.Catalog, opts.WindowSize)
	if err != nil {
		return nil, err
	}

	return &Server{
		catalog: opts.Catalog,
		poller:  opts.Poller,
		hub:     opts.Hub,
		page:    p,
		logger:  opts.Logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.hub != nil {
		mux.HandleFunc("/ws", s.handleWS)
	}
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.render(w); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// requestedSymbols parses ?symbols=A,B. ok is false when the parameter names no catalog symbol.
func (s *Server) requestedSymbols(r *http.Request) (symbols []string, filtered, ok bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("symbols"))
	if raw == "" {
		return s.catalog.Symbols(), false, true
	}
	symbols = s.catalog.Select(strings.Split(raw, ","))
	return symbols, true, len(symbols) > 0
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	symbols, filtered, ok := s.requestedSymbols(r)
	if !ok {
		http.Error(w, "no known symbols requested", http.StatusBadRequest)
		return
	}

	logger := s.logger.With(zap.String("remote", r.RemoteAddr))
	logger.Info("Stream client connected", zap.Int("symbols", len(symbols)))
	start := time.Now()

	var err error
	if s.hub != nil {
		err = s.streamShared(r.Context(), w, symbols, filtered)
	} else {
		err = s.streamPerConnection(r.Context(), w, symbols, filtered)
	}

	if errors.Is(err, gateway.ErrStreamingUnsupported) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Stream ended", zap.Error(err))
	}
	logger.Info("Stream client disconnected", zap.Duration("duration", time.Since(start)))
}

func (s *Server) streamPerConnection(ctx context.Context, w http.ResponseWriter, symbols []string, filtered bool) error {
	ew, err := gateway.NewEventWriter(w)
	if err != nil {
		return err
	}

	p := s.poller
	if filtered {
		p = p.WithSymbols(symbols)
	}
	return p.Run(ctx, func(_ context.Context, _ time.Time, snap models.Snapshot) error {
		b, err := snap.Encode()
		if err != nil {
			return err
		}
		return ew.WriteEvent(b)
	})
}

// streamShared registers before the headers go out so no broadcast is missed
// between the client seeing the response and joining the hub. The hub drops
// the cached replay if a broadcast reaches the client first.
func (s *Server) streamShared(ctx context.Context, w http.ResponseWriter, symbols []string, filtered bool) error {
	client := gateway.NewSSEClient(s.logger)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	if filtered {
		s.hub.Subscribe(client, symbols)
	} else {
		s.hub.SubscribeAll(client)
	}

	ew, err := gateway.NewEventWriter(w)
	if err != nil {
		return err
	}
	go s.hub.SendLatest(client)

	return client.Serve(ctx, ew)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := gateway.NewClient(conn, s.hub, s.logger)
	client.Start()
}
