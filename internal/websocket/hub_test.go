package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workshop/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("test-secret")

func sign(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": id.String(), "role": role})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	hub, srv, _ := newStoppableServer(t)
	return hub, srv
}

func newStoppableServer(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server, id uuid.UUID, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + sign(t, id, role)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func next(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var got events.Event
	require.NoError(t, json.Unmarshal(msg, &got))
	return got
}

func TestServeWsRejects(t *testing.T) {
	_, srv := newServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+sign(t, uuid.New(), "wholesaler"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "role": "admin"})
	bad, err := tok.SignedString(secret)
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+bad, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub, srv := newServer(t)
	conn := dial(t, srv, uuid.New(), "manager")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.Event{Type: events.StockChanged, Key: "p1"}))

	got := next(t, conn)
	require.Equal(t, events.StockChanged, got.Type)
	require.Equal(t, "p1", got.Key)
}

func TestSalaryEventsReachOnlyOwnerAndAdmins(t *testing.T) {
	hub, srv := newServer(t)
	me, other := uuid.New(), uuid.New()
	worker := dial(t, srv, me, "worker")
	manager := dial(t, srv, uuid.New(), "manager")
	admin := dial(t, srv, uuid.New(), "admin")
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	paid := func(id uuid.UUID) events.Event {
		return events.Event{Type: events.SalaryPaid, Key: id.String(), Data: map[string]interface{}{"worker_id": id, "amount": "5000"}}
	}
	require.NoError(t, hub.Publish(ctx, paid(other)))
	require.NoError(t, hub.Publish(ctx, paid(me)))
	require.NoError(t, hub.Publish(ctx, events.Event{Type: events.StockChanged, Key: "p1"}))

	// the other worker's payment is skipped, not delayed
	got := next(t, worker)
	require.Equal(t, events.SalaryPaid, got.Type)
	require.Equal(t, me.String(), got.Key)
	require.Equal(t, events.StockChanged, next(t, worker).Type)

	require.Equal(t, events.StockChanged, next(t, manager).Type)

	require.Equal(t, other.String(), next(t, admin).Key)
	require.Equal(t, me.String(), next(t, admin).Key)
	require.Equal(t, events.StockChanged, next(t, admin).Type)
}

func TestShutdownReleasesClients(t *testing.T) {
	hub, srv, stop := newStoppableServer(t)
	conn := dial(t, srv, uuid.New(), "admin")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	stop()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)

	// a socket opened after shutdown is closed instead of hanging on register
	late := dial(t, srv, uuid.New(), "admin")
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Zero(t, hub.ClientCount())
}
