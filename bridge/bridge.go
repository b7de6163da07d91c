// Package bridge exposes the host protocol over a websocket. Each
// connected relay gets its own gateway and mirror document: inbound
// frames are host envelopes, outbound frames are the editor's save and
// exit messages.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/absmartly/vedit/host"
	"github.com/absmartly/vedit/idgen"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay runs in a page context; origins are not meaningful here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GatewayFactory builds the per-connection gateway. The factory receives
// the sink the gateway must report through.
type GatewayFactory func(out *host.Router) (*host.Gateway, error)

// Server serves the editor protocol on /ws and liveness on /healthz.
type Server struct {
	factory GatewayFactory
	logger  *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	httpServer *http.Server
}

// NewServer creates a bridge server. factory is called once per
// connection.
func NewServer(factory GatewayFactory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		factory: factory,
		logger:  logger,
		conns:   make(map[*websocket.Conn]struct{}),
	}
}

// Routes returns the HTTP handler for mounting in a larger mux.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", s.handleWS)
	return r
}

// ListenAndServe serves until ctx is cancelled, then drains connections.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("bridge: listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("bridge: shutdown: %w", err)
		}
		s.closeAll()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("bridge: serve: %w", err)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("bridge: upgrade failed", "error", err)
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	connID := idgen.Prefixed("conn_", idgen.NanoID(8))()
	logger := s.logger.With("conn", connID)

	out := host.NewRouter(logger, &connSink{conn: conn})
	gw, err := s.factory(out)
	if err != nil {
		logger.Error("bridge: gateway factory failed", "error", err)
		return
	}

	logger.Info("bridge: relay connected", "remote", r.RemoteAddr)
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("bridge: read failed", "error", err)
			}
			return
		}
		if err := gw.Handle(r.Context(), frame); err != nil {
			logger.Warn("bridge: frame failed", "error", err)
		}
	}
}

// connSink delivers outbound envelopes over one websocket. gorilla
// permits one concurrent writer, hence the mutex.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSink) Send(_ context.Context, env host.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("bridge: write frame: %w", err)
	}
	return nil
}

func (s *connSink) Close() error {
	return s.conn.Close()
}
