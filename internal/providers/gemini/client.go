package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/haunt"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/config"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/resilience"
)

var (
	ErrNoAPIKey      = errors.New("gemini api key not configured")
	ErrEmptyResponse = errors.New("gemini returned no text")
)

// Harm categories the model is asked not to block.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

const blockNone = "BLOCK_NONE"

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

// Client calls the generateContent REST endpoint.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	cfg     config.GeminiConfig
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// New creates a client. It fails when no API key is configured.
func New(cfg config.GeminiConfig, logger *logging.Logger, metrics *monitoring.Metrics) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNoAPIKey
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	logger = logging.OrNop(logger).Named("gemini")

	breaker := resilience.New("gemini", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A blocked or empty answer is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrEmptyResponse)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("gemini breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		resty:   restyClient,
		breaker: breaker,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Generate sends the prompt and image and returns the concatenated text of
// the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string, img haunt.Image) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	timer := monitoring.NewTimer(c.metrics, monitoring.TargetGemini)
	text, err := resilience.Do(c.breaker, func() (string, error) {
		return c.generate(ctx, prompt, img)
	})

	switch {
	case err == nil:
		timer.Stop(monitoring.StatusSuccess)
	case errors.Is(err, ErrEmptyResponse):
		timer.Stop("empty")
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		timer.Stop("rejected")
	default:
		timer.Stop(monitoring.StatusOf(err))
	}
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string, img haunt.Image) (string, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetPathParam("model", c.cfg.Model).
		SetBody(c.request(prompt, img)).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}

	body := resp.Body()
	if resp.IsError() {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), msg)
	}

	return parseText(body, c.logger)
}

func (c *Client) request(prompt string, img haunt.Image) generateRequest {
	parts := []part{{Text: prompt}}
	if len(img.Data) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: img.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}

	safety := make([]safetySetting, len(harmCategories))
	for i, category := range harmCategories {
		safety[i] = safetySetting{Category: category, Threshold: blockNone}
	}

	return generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
		SafetySettings: safety,
	}
}

func parseText(body []byte, logger *logging.Logger) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("gemini: invalid response body")
	}

	if reason := gjson.GetBytes(body, "promptFeedback.blockReason").String(); reason != "" {
		logger.Warn("gemini blocked prompt", zap.String("reason", reason))
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, t := range gjson.GetBytes(body, "candidates.0.content.parts.#.text").Array() {
		sb.WriteString(t.String())
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		finish := gjson.GetBytes(body, "candidates.0.finishReason").String()
		logger.Warn("gemini returned no text", zap.String("finish_reason", finish))
		return "", ErrEmptyResponse
	}
	return text, nil
}
