package haunt

import (
	"context"
	"html"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
)

// PlaceholderText is returned whenever a heartbeat cannot be processed.
const PlaceholderText = "I cannot see you... but I know you're there."

// Utterance sources, used as metric labels.
const (
	SourceOracle      = "oracle"
	SourceFallback    = "fallback"
	SourcePlaceholder = "placeholder"
)

// Oracle generates a line from a prompt and a webcam frame.
type Oracle interface {
	Generate(ctx context.Context, prompt string, img Image) (string, error)
}

// Pulse is one heartbeat from the client.
type Pulse struct {
	Image       string  // data URL or raw base64
	Battery     float64 // 0..1
	Platform    string
	CurrentURL  string
	ClientClock string
}

// Reply is what the client shows and speaks.
type Reply struct {
	VoiceText       string `json:"voice_text"`
	GlitchIntensity int    `json:"glitch_intensity"`
	HauntLevel      int    `json:"haunt_level"`
	Source          string `json:"-"`
}

// Engine turns heartbeats into utterances.
type Engine struct {
	state   *State
	tables  *Tables
	oracle  Oracle
	pick    func(n int) int
	now     func() time.Time
	strip   *bluemonday.Policy
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOracle sets the generator. Without one, every heartbeat uses the
// fallback tables.
func WithOracle(o Oracle) EngineOption {
	return func(e *Engine) { e.oracle = o }
}

// WithTables replaces the built-in fallback tables.
func WithTables(t *Tables) EngineOption {
	return func(e *Engine) { e.tables = t }
}

// WithPicker replaces the random index source.
func WithPicker(pick func(n int) int) EngineOption {
	return func(e *Engine) { e.pick = pick }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithMetrics records levels and sources.
func WithMetrics(m *monitoring.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over state.
func NewEngine(state *State, opts ...EngineOption) *Engine {
	e := &Engine{
		state:  state,
		tables: DefaultTables(),
		pick:   rand.IntN,
		now:    time.Now,
		strip:  bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger).Named("haunt")
	return e
}

// State returns the shared haunt state.
func (e *Engine) State() *State {
	return e.state
}

// Level returns the current haunt level.
func (e *Engine) Level() int {
	return e.state.Level()
}

// OracleConfigured reports whether heartbeats can reach the generator.
func (e *Engine) OracleConfigured() bool {
	return e.oracle != nil
}

// Heartbeat advances the haunt and returns the next utterance. It never
// fails: any error degrades to the placeholder.
func (e *Engine) Heartbeat(ctx context.Context, p Pulse) (reply Reply) {
	level := e.state.Tick()
	if e.metrics != nil {
		e.metrics.SetHauntLevel(level)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("heartbeat panicked", zap.Any("panic", r))
			reply = e.placeholder()
		}
		if e.metrics != nil {
			e.metrics.RecordHeartbeat(reply.Source)
		}
	}()

	img, err := DecodeImage(p.Image)
	if err != nil {
		e.logger.Warn("heartbeat image rejected", zap.Error(err))
		return e.placeholder()
	}

	text, source := "", SourceFallback
	if e.oracle != nil {
		text = e.consult(ctx, level, p, img)
		if text != "" {
			source = SourceOracle
		}
	}
	if text == "" {
		text = e.state.SelectAndRecord(e.tables.PoolFor(level), RepeatWindow, e.pick)
	} else {
		e.state.Record(text)
	}

	e.logger.Info("haunt spoke",
		zap.Int("level", level),
		zap.String("source", source),
		zap.String("page", p.CurrentURL),
		zap.String("client_clock", p.ClientClock),
		zap.String("text", text),
	)

	return Reply{
		VoiceText:       text,
		GlitchIntensity: level,
		HauntLevel:      level,
		Source:          source,
	}
}

// consult asks the oracle and returns a cleaned line, or "" on any failure.
func (e *Engine) consult(ctx context.Context, level int, p Pulse, img Image) string {
	prompt := BuildPrompt(PromptContext{
		Level:          level,
		CurrentURL:     p.CurrentURL,
		BatteryPercent: batteryPercent(p.Battery),
		Platform:       p.Platform,
		Hour:           e.now().Hour(),
		Recent:         e.state.Recent(RepeatWindow),
	})

	start := time.Now()
	raw, err := e.oracle.Generate(context.WithoutCancel(ctx), prompt, img)
	if err != nil {
		e.logger.Warn("oracle failed, using fallback",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return ""
	}

	text := e.cleanUtterance(raw)
	if text == "" {
		e.logger.Warn("oracle returned nothing usable")
	}
	return text
}

// cleanUtterance strips markup and collapses whitespace.
func (e *Engine) cleanUtterance(raw string) string {
	text := html.UnescapeString(e.strip.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

func (e *Engine) placeholder() Reply {
	return Reply{
		VoiceText:       PlaceholderText,
		GlitchIntensity: 1,
		HauntLevel:      e.state.Level(),
		Source:          SourcePlaceholder,
	}
}

func batteryPercent(battery float64) int {
	pct := int(battery*100 + 0.5)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
