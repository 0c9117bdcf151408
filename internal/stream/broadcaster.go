// Package stream exposes run status events over a WebSocket endpoint so
// external UIs can follow execution live.
package stream

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/relay/internal/domain"
	"github.com/soyeahso/relay/internal/logging"
)

// Frame is one message sent to subscribers. Seq is monotonically increasing
// per broadcaster so a client can detect gaps.
type Frame struct {
	Seq   int64              `json:"seq"`
	Event domain.StatusEvent `json:"event"`
}

// Broadcaster fans status events out to connected WebSocket clients. It
// implements the engine's status sink; events for a run arrive in emission
// order and are forwarded in that order.
type Broadcaster struct {
	log      *logging.Logger
	upgrader websocket.Upgrader
	seq      atomic.Int64

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	server *http.Server
}

// NewBroadcaster creates a broadcaster with no connected clients.
func NewBroadcaster(log *logging.Logger) *Broadcaster {
	return &Broadcaster{
		log:   log.Sub("stream"),
		conns: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local status feed; clients connect from the same machine.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish sends the event to every connected client. A client whose write
// fails is dropped; publishing never blocks the engine on a slow consumer
// beyond the socket write.
func (b *Broadcaster) Publish(evt domain.StatusEvent) {
	frame := Frame{Seq: b.seq.Add(1), Event: evt}

	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			b.log.Debug().Err(err).Msg("dropping slow or closed client")
			conn.Close()
			delete(b.conns, conn)
		}
	}
}

// Handler upgrades incoming requests and registers the connection. Clients
// are read-drained so control frames keep the connection healthy.
func (b *Broadcaster) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		b.mu.Lock()
		b.conns[conn] = struct{}{}
		n := len(b.conns)
		b.mu.Unlock()
		b.log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", n).Msg("status client connected")

		go b.drain(conn)
	}
}

// drain discards client messages until the connection closes.
func (b *Broadcaster) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	conn.Close()
	b.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("status client disconnected")
}

// Serve starts an HTTP server exposing the status feed at /events on the
// given port. It returns once the listener is bound; serving continues in
// the background until Close.
func (b *Broadcaster) Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/events", b.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding status feed: %w", err)
	}

	b.mu.Lock()
	b.server = &http.Server{Handler: mux}
	b.mu.Unlock()

	b.log.Info().Str("addr", addr).Msg("status feed listening")
	go func() {
		if err := b.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			b.log.Error().Err(err).Msg("status feed server error")
		}
	}()
	return nil
}

// Close shuts the server down and disconnects all clients.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	for conn := range b.conns {
		conn.Close()
		delete(b.conns, conn)
	}
	server := b.server
	b.server = nil
	b.mu.Unlock()

	if server != nil {
		return server.Close()
	}
	return nil
}
