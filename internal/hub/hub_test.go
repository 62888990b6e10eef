package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pszemocny/4-in-a-row/internal/advisor"
	"github.com/Pszemocny/4-in-a-row/internal/interfaces"
	"github.com/Pszemocny/4-in-a-row/internal/metrics"
	"github.com/Pszemocny/4-in-a-row/internal/store"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

type fakeClient struct {
	id   string
	send chan []byte

	mu      sync.Mutex
	session interfaces.Session
	closed  bool
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, send: make(chan []byte, 16)}
}

func (c *fakeClient) GetID() string { return c.id }
func (c *fakeClient) GetSendChannel() chan []byte { return c.send }
func (c *fakeClient) GetConnection() *websocket.Conn { return nil }

func (c *fakeClient) SetSession(s interfaces.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *fakeClient) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *fakeClient) GetSession() interfaces.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func newTestHub(t *testing.T) (*Hub, *prometheus.Registry, context.CancelFunc) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	h := NewHub(advisor.New(advisor.WithDepth(1)), st, metrics.New(reg))

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Stopped()
		_ = st.Close()
	})
	return h, reg, cancel
}

// waitClosed drains ch until it is closed
func waitClosed(t *testing.T, ch chan []byte) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("send channel was not closed")
		}
	}
}

func TestRegisterAttachesSession(t *testing.T) {
	h, _, _ := newTestHub(t)
	c := newFakeClient("client-1")

	h.RegisterClient(c)
	s := c.GetSession()
	require.NotNil(t, s)
	assert.NotEmpty(t, s.GetID())
	assert.Equal(t, 1, h.SessionCount())

	s.StartGame(models.StartGamePayload{})
	select {
	case msg := <-c.send:
		var started models.GameStartedResponse
		require.NoError(t, json.Unmarshal(msg, &started))
		assert.Equal(t, models.TypeGameStarted, started.Type)
		assert.Equal(t, s.GetID(), started.SessionID)
	case <-time.After(5 * time.Second):
		t.Fatal("no GAME_STARTED received")
	}
}

func TestEachClientGetsOwnSession(t *testing.T) {
	h, _, _ := newTestHub(t)
	a, b := newFakeClient("a"), newFakeClient("b")

	h.RegisterClient(a)
	h.RegisterClient(b)
	assert.NotEqual(t, a.GetSession().GetID(), b.GetSession().GetID())
	assert.Equal(t, 2, h.SessionCount())
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h, reg, _ := newTestHub(t)
	c := newFakeClient("client-1")

	h.RegisterClient(c)
	h.UnregisterClient(c)
	waitClosed(t, c.send)
	assert.Equal(t, 0, h.SessionCount())

	// A second unregister is a no-op
	assert.NotPanics(t, func() { h.UnregisterClient(c) })

	expected := `
# HELP fourinrow_active_sessions Sessions currently registered in the hub.
# TYPE fourinrow_active_sessions gauge
fourinrow_active_sessions 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fourinrow_active_sessions"))
}

func TestShutdownClosesAllSessions(t *testing.T) {
	h, _, cancel := newTestHub(t)
	a, b := newFakeClient("a"), newFakeClient("b")
	h.RegisterClient(a)
	h.RegisterClient(b)

	cancel()
	waitClosed(t, a.send)
	waitClosed(t, b.send)
	<-h.Stopped()
	assert.Equal(t, 0, h.SessionCount())

	done := make(chan struct{})
	go func() {
		h.RegisterClient(newFakeClient("late"))
		h.UnregisterClient(a)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("calls on a stopped hub must not block")
	}
}
