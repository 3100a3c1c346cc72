package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGinServerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gin.SetMode(gin.TestMode)
	engine, err := NewDefaultGinEngine(nil)
	require.NoError(t, err)
	engine.GET("/hello", func(c *gin.Context) { c.String(http.StatusOK, "Hello") })

	srv := NewGinServer(engine, "127.0.0.1:0", testLogger(), WithTimeouts(time.Second, time.Second, time.Second))
	addr, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	resp, err := http.Get("http://" + addr.String() + "/hello")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "Hello", string(body))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestWSManagerBroadcast(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := NewWSManager(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()

	ts := httptest.NewServer(m)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	subscriber, _, err := websocket.DefaultDialer.Dial(wsURL+"?topic=runs", nil)
	require.NoError(t, err)
	defer subscriber.Close()

	late, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.WriteJSON(map[string]string{"op": "subscribe", "topic": "runs"}))

	require.Eventually(t, func() bool { return m.Subscribers("runs") == 2 }, 2*time.Second, 10*time.Millisecond)

	m.Broadcast("other", map[string]int{"ignored": 1})
	m.Broadcast("runs", map[string]any{"step": 0, "entropy": 2})

	for _, conn := range []*websocket.Conn{subscriber, late} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "runs", msg.Topic)
		assert.JSONEq(t, `{"step":0,"entropy":2}`, string(msg.Data))
	}

	require.NoError(t, late.WriteJSON(map[string]string{"op": "unsubscribe", "topic": "runs"}))
	require.Eventually(t, func() bool { return m.Subscribers("runs") == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	m.Broadcast("runs", "after stop")

	subscriber.Close()
	late.Close()
	ts.Close()
}

func TestWSManagerSendBuffer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	for _, tt := range []struct {
		opts []WSOption
		want int
	}{
		{nil, DefaultSendBuffer},
		{[]WSOption{WithSendBuffer(1024)}, 1024},
		{[]WSOption{WithSendBuffer(0)}, DefaultSendBuffer},
	} {
		m := NewWSManager(testLogger(), tt.opts...)
		ctx, cancel := context.WithCancel(context.Background())
		go m.Run(ctx)

		ts := httptest.NewServer(m)
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"?topic=runs", nil)
		require.NoError(t, err)
		require.Eventually(t, func() bool { return m.Subscribers("runs") == 1 }, 2*time.Second, 10*time.Millisecond)

		m.mu.RLock()
		for client := range m.clients {
			assert.Equal(t, tt.want, cap(client.send))
		}
		m.mu.RUnlock()

		cancel()
		<-m.Done()
		conn.Close()
		ts.Close()
	}
}

func TestCheckSameOrigin(t *testing.T) {
	tests := []struct {
		host, origin string
		want         bool
	}{
		{"example.com:8080", "", true},
		{"example.com:8080", "http://example.com:3000", true},
		{"example.com", "http://localhost:5173", true},
		{"example.com", "http://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, checkSameOrigin(r), "origin %q host %q", tt.origin, tt.host)
	}
}
