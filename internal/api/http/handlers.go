package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/browse"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/haunt"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/possession"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/sanitize"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/souls"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
)

// Browser resolves, fetches and sanitizes archived pages.
type Browser interface {
	Browse(ctx context.Context, req browse.Request) (sanitize.Result, error)
}

// Haunter answers heartbeats.
type Haunter interface {
	Heartbeat(ctx context.Context, p haunt.Pulse) haunt.Reply
	OracleConfigured() bool
	Level() int
}

// Broadcaster fans events out to live souls.
type Broadcaster interface {
	Broadcast(event souls.Event) int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	browser   Browser
	haunter   Haunter
	possessor *possession.Possessor
	souls     Broadcaster
	logger    *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	browser Browser,
	haunter Haunter,
	possessor *possession.Possessor,
	broadcaster Broadcaster,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		browser:   browser,
		haunter:   haunter,
		possessor: possessor,
		souls:     broadcaster,
		logger:    logging.OrNop(logger).Named("http"),
	}
}

// Register mounts every API route on r. browseGuards run before the browse
// handler only.
func (h *Handlers) Register(r gin.IRouter, browseGuards ...gin.HandlerFunc) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/browse", append(browseGuards, h.Browse)...)
	api.POST("/heartbeat", h.Heartbeat)
	api.POST("/possess", h.Possess)
	api.POST("/witness", h.Witness)
}

// BrowseRequest is the body of POST /api/browse.
type BrowseRequest struct {
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// Browse returns a sanitized archived page. Failures are reported in the
// body with status 200.
func (h *Handlers) Browse(c *gin.Context) {
	var req BrowseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.browser.Browse(c.Request.Context(), browse.Request{
		URL:       req.URL,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"error": browseMessage(err),
			"html":  nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"html":         res.Markup,
		"snapshot_url": res.SnapshotURL,
		"timestamp":    res.Timestamp,
	})
}

func browseMessage(err error) string {
	var be *browse.Error
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

// HeartbeatRequest is the body of POST /api/heartbeat. Timestamp is the
// legacy field: a URL there is taken as the current page, anything else as
// the client clock.
type HeartbeatRequest struct {
	Image       string  `json:"image"`
	Battery     float64 `json:"battery"`
	Platform    string  `json:"platform"`
	CurrentURL  string  `json:"current_url"`
	ClientClock string  `json:"client_clock"`
	Timestamp   string  `json:"timestamp"`
}

// Pulse converts the request, resolving the legacy timestamp field.
func (r HeartbeatRequest) Pulse() haunt.Pulse {
	p := haunt.Pulse{
		Image:       r.Image,
		Battery:     r.Battery,
		Platform:    r.Platform,
		CurrentURL:  r.CurrentURL,
		ClientClock: r.ClientClock,
	}
	if r.Timestamp != "" {
		if strings.HasPrefix(r.Timestamp, "http") {
			if p.CurrentURL == "" {
				p.CurrentURL = r.Timestamp
			}
		} else if p.ClientClock == "" {
			p.ClientClock = r.Timestamp
		}
	}
	return p
}

// Heartbeat advances the haunt and returns the ghost's next line.
func (h *Handlers) Heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.haunter.Heartbeat(c.Request.Context(), req.Pulse()))
}

// PossessRequest is the body of POST /api/possess.
type PossessRequest struct {
	Battery *float64 `json:"battery" binding:"required"`
	Volume  *float64 `json:"volume" binding:"required"`
}

// Possess reacts to the client's sensor readings.
func (h *Handlers) Possess(c *gin.Context) {
	var req PossessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.possessor.Judge(possession.Reading{
		Battery: *req.Battery,
		Volume:  *req.Volume,
	}))
}

// WitnessRequest is the body of POST /api/witness.
type WitnessRequest struct {
	File string `json:"file" binding:"required"`
}

// Witness tells every soul that a file was touched.
func (h *Handlers) Witness(c *gin.Context) {
	var req WitnessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delivered := h.souls.Broadcast(souls.Witness(req.File))
	h.logger.Info("file witnessed",
		zap.String("file", req.File),
		zap.Int("delivered", delivered),
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "witnessed",
		"file":   req.File,
	})
}

// Health reports liveness and the current haunt level.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "alive",
		"gemini_configured": h.haunter.OracleConfigured(),
		"haunt_level":       h.haunter.Level(),
	})
}
