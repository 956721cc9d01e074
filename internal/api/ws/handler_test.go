package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/souls"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
)

func newServer(t *testing.T) (*httptest.Server, *souls.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics()
	registry := souls.NewRegistry(nil, metrics)
	h := NewHandler(registry, metrics, nil)

	r := gin.New()
	r.GET("/ws/soul", h.HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/soul"
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]string
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

func TestConnectionGreeting(t *testing.T) {
	srv, registry := newServer(t)
	c := dial(t, srv)

	msg := readJSON(t, c)
	assert.Equal(t, "CONNECTION", msg["type"])
	assert.Equal(t, "Your soul is now bound to this realm...", msg["message"])

	assert.Eventually(t, func() bool { return registry.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestInboundIgnoredAndWitnessDelivered(t *testing.T) {
	srv, registry := newServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	readJSON(t, a)
	readJSON(t, b)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"anything":"goes"}`)))
	require.Eventually(t, func() bool { return registry.Count() == 2 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, registry.Broadcast(souls.Witness("tomb.txt")))

	for _, c := range []*websocket.Conn{a, b} {
		msg := readJSON(t, c)
		assert.Equal(t, "WITNESS_EVENT", msg["type"])
		assert.Equal(t, "tomb.txt", msg["filename"])
		assert.Equal(t, "Do not touch tomb.txt", msg["message"])
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	srv, registry := newServer(t)
	c := dial(t, srv)
	readJSON(t, c)
	require.Eventually(t, func() bool { return registry.Count() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = c.Close()

	assert.Eventually(t, func() bool { return registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
