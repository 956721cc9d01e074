package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
)

func TestStartSpanPropagatesTrace(t *testing.T) {
	tracer := New("test", logging.NewNop())
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "browse")
	child, childCtx := tracer.StartSpan(ctx, "archive.resolve")

	assert.NotEmpty(t, parent.TraceID)
	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))
	assert.Equal(t, parent.TraceID, GetTraceID(childCtx))
}

func TestSpanLifecycle(t *testing.T) {
	tracer := New("test", nil)
	defer tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "op")
	span.SetTag("k", "v")
	span.Log("hello", map[string]interface{}{"n": 1})
	span.SetError(errors.New("boom"))
	span.Finish()

	assert.Equal(t, "v", span.Tags["k"])
	assert.Len(t, span.Logs, 1)
	assert.Equal(t, 500, span.StatusCode)
	assert.False(t, span.EndTime.Before(span.StartTime))

	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer
	span, ctx := tracer.StartSpan(context.Background(), "op")
	require.NotNil(t, span)
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestSubmitAfterClose(t *testing.T) {
	tracer := New("test", nil)
	tracer.Close()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	assert.NotPanics(t, func() { tracer.Submit(span) })
}

func TestInjectExtract(t *testing.T) {
	ctx := context.WithValue(context.Background(), traceIDKey, TraceID("t-1"))
	ctx = context.WithValue(ctx, spanIDKey, SpanID("s-1"))

	headers := map[string]string{}
	InjectTraceContext(ctx, headers)

	traceID, spanID := ExtractTraceContext(headers)
	assert.Equal(t, TraceID("t-1"), traceID)
	assert.Equal(t, SpanID("s-1"), spanID)
	assert.Equal(t, "[trace:t-1 span:s-1]", FormatTrace(traceID, spanID))
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("test", nil)
	defer tracer.Close()

	var seen TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/health", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("honors incoming trace id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(HeaderTraceID, "incoming")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, TraceID("incoming"), seen)
		assert.Equal(t, "incoming", w.Header().Get(HeaderTraceID))
		assert.NotEmpty(t, w.Header().Get(HeaderSpanID))
	})

	t.Run("generates trace id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
		assert.NotEqual(t, "incoming", w.Header().Get(HeaderTraceID))
	})
}
