package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/souls"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeWait))
	return c.ws.Close()
}

// Handler manages soul connections
type Handler struct {
	registry *souls.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(registry *souls.Registry, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	return &Handler{
		registry: registry,
		metrics:  metrics,
		logger:   logging.OrNop(logger).Named("ws"),
	}
}

// HandleConnection binds a soul for the life of the socket. Inbound
// frames keep it alive but are otherwise ignored.
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(maxFrameSize)

	soul := &conn{ws: ws}
	id := h.registry.Register(soul)
	defer func() {
		h.registry.Unregister(id)
		_ = ws.Close()
	}()

	if err := h.registry.Send(soul, souls.Connected()); err != nil {
		h.logger.Warn("greeting failed", zap.String("soul_id", id), zap.Error(err))
		return
	}

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("soul read ended", zap.String("soul_id", id), zap.Error(err))
			}
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", "ignored")
		}
	}
}
