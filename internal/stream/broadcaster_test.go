package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/relay/internal/domain"
	"github.com/soyeahso/relay/internal/logging"
)

func testBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()
	b := NewBroadcaster(logging.New(nil, "silent"))
	t.Cleanup(func() { b.Close() })
	return b
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublish_NoClients(t *testing.T) {
	b := testBroadcaster(t)
	// must not panic or block
	b.Publish(domain.StatusEvent{AgentIndex: 1, Phase: domain.PhaseStarting})
}

func TestPublish_DeliversFramesInOrder(t *testing.T) {
	b := testBroadcaster(t)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	conn := dial(t, server)

	// wait for the server side to register the connection
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.conns) == 1
	}, time.Second, 10*time.Millisecond)

	b.Publish(domain.StatusEvent{AgentIndex: 1, Phase: domain.PhaseStarting, Message: "first"})
	b.Publish(domain.StatusEvent{AgentIndex: 1, Phase: domain.PhaseInvoking, Message: "second"})

	var f1, f2 Frame
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&f1))
	require.NoError(t, conn.ReadJSON(&f2))

	assert.Equal(t, "first", f1.Event.Message)
	assert.Equal(t, domain.PhaseStarting, f1.Event.Phase)
	assert.Equal(t, "second", f2.Event.Message)
	assert.Less(t, f1.Seq, f2.Seq)
}

func TestPublish_DropsClosedClients(t *testing.T) {
	b := testBroadcaster(t)
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.conns) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	// the drain goroutine removes the connection
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.conns) == 0
	}, time.Second, 10*time.Millisecond)

	b.Publish(domain.StatusEvent{AgentIndex: 1, Phase: domain.PhaseCompleted})
}

func TestClose_DisconnectsClients(t *testing.T) {
	b := NewBroadcaster(logging.New(nil, "silent"))
	server := httptest.NewServer(b.Handler())
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.conns) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
