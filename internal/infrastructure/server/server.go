package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/ghostbrain/internal/api/http"
	apimcp "github.com/GriffinCanCode/ghostbrain/internal/api/mcp"
	"github.com/GriffinCanCode/ghostbrain/internal/api/middleware"
	"github.com/GriffinCanCode/ghostbrain/internal/api/ws"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/archive"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/browse"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/haunt"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/possession"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/sanitize"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/souls"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/spirits"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/config"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ghostbrain/internal/providers/gemini"
)

// Server wraps the HTTP server and the process-wide state
type Server struct {
	handler    http.Handler
	httpServer *http.Server
	souls      *souls.Registry
	haunt      *haunt.State
	tracer     *tracing.Tracer
	logger     *logging.Logger
}

// NewServer wires every component. A nil logger is built from cfg.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing GhostBrain server",
		zap.String("port", cfg.Server.Port),
		zap.String("archive_index", cfg.Archive.IndexURL),
		zap.String("archive_origin", cfg.Archive.Origin),
		zap.Bool("gemini_configured", cfg.Gemini.Configured()),
	)

	// Metrics first; everything below records into them.
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("ghostbrain", logger)

	// Browse pipeline
	orchestrator := browse.New(
		archive.NewResolver(cfg.Archive, logger, metrics),
		archive.NewFetcher(cfg.Archive, logger, metrics),
		sanitize.New(cfg.Archive.Origin, logger),
		browse.WithTracer(tracer),
		browse.WithMetrics(metrics),
		browse.WithLogger(logger),
	)

	// Haunt
	state := haunt.NewState()
	engineOpts := []haunt.EngineOption{haunt.WithMetrics(metrics), haunt.WithLogger(logger)}
	if cfg.Haunt.TablesFile != "" {
		tables, err := haunt.LoadTables(cfg.Haunt.TablesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load haunt tables: %w", err)
		}
		engineOpts = append(engineOpts, haunt.WithTables(tables))
		logger.Info("Custom haunt tables loaded", zap.String("file", cfg.Haunt.TablesFile))
	}
	if cfg.Gemini.Configured() {
		oracle, err := gemini.New(cfg.Gemini, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		engineOpts = append(engineOpts, haunt.WithOracle(oracle))
		logger.Info("Gemini oracle enabled", zap.String("model", cfg.Gemini.Model))
	} else {
		logger.Warn("GEMINI_API_KEY not set, heartbeats will use fallback lines")
	}
	engine := haunt.NewEngine(state, engineOpts...)

	registry := souls.NewRegistry(logger, metrics)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	var browseGuards []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Int("browse_rps", cfg.RateLimit.BrowseRPS),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))

		if cfg.RateLimit.BrowseRPS > 0 {
			browseGuards = append(browseGuards, middleware.GlobalRateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit.BrowseRPS,
				Burst:             cfg.RateLimit.BrowseRPS * 2,
			}))
		}
	}

	// Create handlers
	handlers := apihttp.NewHandlers(orchestrator, engine, possession.New(nil), registry, logger)
	wsHandler := ws.NewHandler(registry, metrics, logger)

	// Register routes
	handlers.Register(router, browseGuards...)
	router.GET("/ws/soul", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.MCP.Enabled {
		router.Any(MCPPath, gin.WrapH(apimcp.Handler(apimcp.NewServer(spirits.New(nil), logger))))
		logger.Info("MCP endpoint enabled", zap.String("path", MCPPath))
	}

	mountStatic(router, cfg.Static.Dir, logger)

	logger.Info("Server initialized successfully")

	handler := compress(router)
	return &Server{
		handler: handler,
		httpServer: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		souls:  registry,
		haunt:  state,
		tracer: tracer,
		logger: logger,
	}, nil
}

// MCPPath is where the MCP streamable HTTP transport is mounted.
const MCPPath = "/mcp"

// compress gzips responses large enough to benefit. WebSocket upgrades
// and MCP streams bypass it because they need unbuffered writes.
func compress(next http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) || r.URL.Path == MCPPath {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// mountStatic serves the frontend: index.html at /, the directory at
// /static and its assets folder at /assets when present.
func mountStatic(router *gin.Engine, dir string, logger *logging.Logger) {
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Warn("Static directory not found, frontend disabled", zap.String("dir", dir))
		return
	}

	index := filepath.Join(dir, "index.html")
	router.GET("/", func(c *gin.Context) {
		c.File(index)
	})
	router.Static("/static", dir)

	assets := filepath.Join(dir, "assets")
	if info, err := os.Stat(assets); err == nil && info.IsDir() {
		router.Static("/assets", assets)
	} else {
		logger.Warn("Assets directory not found", zap.String("dir", assets))
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Souls returns the live soul registry.
func (s *Server) Souls() *souls.Registry {
	return s.souls
}

// HauntLevel returns the current haunt level.
func (s *Server) HauntLevel() int {
	return s.haunt.Level()
}

// Run starts the HTTP server and blocks until it stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, then
// releases every soul connection and flushes spans and logs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var err error
	if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
		s.logger.Error("HTTP shutdown incomplete", zap.Error(shutdownErr))
		err = fmt.Errorf("failed to shut down http server: %w", shutdownErr)
	}

	s.souls.Close()
	s.tracer.Close()

	s.logger.Info("Server stopped", zap.Int("final_haunt_level", s.haunt.Level()))
	_ = s.logger.Sync()

	return err
}
