package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solutionspelichet/library-un/internal/config"
	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/operations"
	"github.com/solutionspelichet/library-un/internal/shared/testutil"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeConn) WriteMessage(int, []byte) error { return nil }
func (f *fakeConn) ReadMessage() (int, []byte, error) { select {} }
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:1234" }
func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var e Envelope
		require.NoError(t, json.Unmarshal(msg, &e))
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return Envelope{}
	}
}

func newHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewHub(logger)
	h.Start()
	t.Cleanup(h.Stop)
	return h
}

func TestHubRegisterAndReport(t *testing.T) {
	h := newHub(t)
	c := NewClient(h, &fakeConn{}, "", config.WebSocketConfig{}, nil)

	require.True(t, h.Register(c))
	hello := receive(t, c)
	assert.Equal(t, TypeConnection, hello.Type)
	assert.Equal(t, 1, h.ClientCount())

	ctx := infrastructure.WithTraceID(context.Background(), "trace-1")
	h.Report(ctx, operations.ProgressEvent{
		RunID:   "run-1",
		Type:    operations.EventStep,
		Step:    operations.StepRead,
		Status:  "active",
		Message: "reading",
	})

	e := receive(t, c)
	assert.Equal(t, operations.EventStep, e.Type)
	assert.Equal(t, "trace-1", e.TraceID)
	data, ok := e.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-1", data["run_id"])
	assert.Equal(t, "read", data["step"])

	h.Unregister(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := newHub(t)
	c := NewClient(h, &fakeConn{}, "", config.WebSocketConfig{}, nil)
	require.True(t, h.Register(c))

	require.Eventually(t, func() bool {
		for i := 0; i < 64; i++ {
			h.Broadcast([]byte(`{}`))
		}
		return h.ClientCount() == 0
	}, 2*time.Second, time.Millisecond)
}

func TestHubStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewHub(logger)
	h.Start()
	h.Start()

	c := NewClient(h, &fakeConn{}, "", config.WebSocketConfig{}, nil)
	require.True(t, h.Register(c))
	receive(t, c)

	h.Stop()
	h.Stop()
	assert.Equal(t, 0, h.ClientCount())
	assert.False(t, h.Register(NewClient(h, &fakeConn{}, "", config.WebSocketConfig{}, nil)))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://app.example"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("")))
	assert.True(t, check(req("http://localhost:8080")))
	assert.True(t, check(req("http://APP.example")))
	assert.False(t, check(req("http://evil.example")))
	assert.True(t, originChecker([]string{"*"})(req("http://evil.example")))
}

func TestHandlerStreamsEvents(t *testing.T) {
	h := newHub(t)
	srv := httptest.NewServer(Handler(h, config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}, nil, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello Envelope
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeConnection, hello.Type)

	h.Report(context.Background(), operations.ProgressEvent{Type: operations.EventDone, Status: "completed"})

	var done Envelope
	require.NoError(t, conn.ReadJSON(&done))
	assert.Equal(t, operations.EventDone, done.Type)
	assert.Equal(t, 1, h.ClientCount())
}
