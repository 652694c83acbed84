// Package events fans session events out to websocket subscribers.
package events

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/park285/webchess/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	Path             = "/ws"
	subscriberBuffer = 16
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
)

type subscriber struct {
	ch chan chessdto.Event
}

// Hub implements the session notifier. Slow subscribers lose events
// rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	logger *zap.Logger

	closed    chan struct{}
	closeOnce sync.Once
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		logger: logger,
		closed: make(chan struct{}),
	}
}

func (h *Hub) Publish(ev chessdto.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Debug("event dropped for slow subscriber", zap.String("type", ev.Type))
		}
	}
}

// Subscribers reports the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.closed) })
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{ch: make(chan chessdto.Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Handler serves the feed on Path.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, h.serveWS)
	return mux
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	sub := h.subscribe()
	defer h.unsubscribe(sub)
	h.logger.Debug("event subscriber connected", zap.String("remote", r.RemoteAddr))

	// Inbound frames are ignored; CloseRead cancels ctx once the peer leaves.
	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-h.closed:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev := <-sub.ch:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				h.logger.Debug("event write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// ListenAndServe serves the feed on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	h.logger.Info("event feed listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
