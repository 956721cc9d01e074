package gemini

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/haunt"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/config"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/resilience"
)

var frame = haunt.Image{Data: []byte("\x89PNG\r\n\x1a\nfake"), MIMEType: "image/png"}

func testConfig(baseURL string) config.GeminiConfig {
	cfg := config.Default().Gemini
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second
	return cfg
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *monitoring.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	metrics := monitoring.NewMetrics()
	c, err := New(testConfig(srv.URL), nil, metrics)
	require.NoError(t, err)
	return c, metrics
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(config.Default().Gemini, nil, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGenerateRequestShape(t *testing.T) {
	var body []byte
	var path, key string
	c, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"That lamp "},{"text":"is flickering."}]}}]}`)
	})

	text, err := c.Generate(context.Background(), "watch them", frame)
	require.NoError(t, err)
	assert.Equal(t, "That lamp is flickering.", text)

	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", path)
	assert.Equal(t, "test-key", key)

	parsed := gjson.ParseBytes(body)
	assert.Equal(t, "watch them", parsed.Get("contents.0.parts.0.text").String())
	assert.Equal(t, "image/png", parsed.Get("contents.0.parts.1.inline_data.mime_type").String())
	assert.Equal(t, base64.StdEncoding.EncodeToString(frame.Data), parsed.Get("contents.0.parts.1.inline_data.data").String())
	assert.InDelta(t, 0.9, parsed.Get("generationConfig.temperature").Float(), 1e-9)
	assert.Equal(t, int64(150), parsed.Get("generationConfig.maxOutputTokens").Int())

	thresholds := parsed.Get("safetySettings.#.threshold").Array()
	require.Len(t, thresholds, 4)
	for _, th := range thresholds {
		assert.Equal(t, "BLOCK_NONE", th.String())
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamCalls.WithLabelValues(monitoring.TargetGemini, monitoring.StatusSuccess)))
}

func TestGenerateWithoutImage(t *testing.T) {
	var body []byte
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"boo"}]}}]}`)
	})

	_, err := c.Generate(context.Background(), "p", haunt.Image{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), gjson.GetBytes(body, "contents.0.parts.#").Int())
}

func TestGenerateEmptyResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"blocked prompt", `{"promptFeedback":{"blockReason":"SAFETY"}}`},
		{"no candidates", `{"candidates":[]}`},
		{"blank text", `{"candidates":[{"content":{"parts":[{"text":"  "}]},"finishReason":"MAX_TOKENS"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Generate(context.Background(), "p", frame)
			assert.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":429,"message":"quota exhausted"}}`)
	})

	_, err := c.Generate(context.Background(), "p", frame)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exhausted")
}

func TestGenerateBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Generate(context.Background(), "p", frame)
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.Generate(context.Background(), "p", frame)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), calls.Load())
}

func TestGenerateEmptyDoesNotTripBreaker(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	})

	for i := 0; i < 8; i++ {
		_, _ = c.Generate(context.Background(), "p", frame)
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestGenerateTimeout(t *testing.T) {
	c, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	})
	c.cfg.Timeout = 50 * time.Millisecond

	_, err := c.Generate(context.Background(), "p", frame)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamCalls.WithLabelValues(monitoring.TargetGemini, monitoring.StatusTimeout)))
}

func TestClientIsAnOracle(t *testing.T) {
	var _ haunt.Oracle = (*Client)(nil)
}
