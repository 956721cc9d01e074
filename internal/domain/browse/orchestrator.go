package browse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/archive"
	"github.com/GriffinCanCode/ghostbrain/internal/domain/sanitize"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/tracing"
)

var timestampPattern = regexp.MustCompile(`^[0-9]{1,14}$`)

// Resolver finds the snapshot for a URL and point in time.
type Resolver interface {
	Resolve(ctx context.Context, targetURL, timestamp string) (archive.Snapshot, error)
}

// Fetcher downloads a snapshot.
type Fetcher interface {
	Fetch(ctx context.Context, snapshotURL string) (archive.Page, error)
}

// Sanitizer rewrites a fetched page.
type Sanitizer interface {
	Sanitize(in sanitize.Input) (sanitize.Result, error)
}

// Request asks for a page as it looked at a point in time.
type Request struct {
	URL       string
	Timestamp string // compact date token, empty means the default
}

// Orchestrator runs resolve, fetch and sanitize for one request.
type Orchestrator struct {
	resolver  Resolver
	fetcher   Fetcher
	sanitizer Sanitizer
	tracer    *tracing.Tracer
	metrics   *monitoring.Metrics
	logger    *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracer opens a span per stage.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithMetrics records outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator over the three stages.
func New(resolver Resolver, fetcher Fetcher, sanitizer Sanitizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:  resolver,
		fetcher:   fetcher,
		sanitizer: sanitizer,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrNop(o.logger).Named("browse")
	return o
}

// Browse returns the sanitized snapshot or a *Error. The caller's
// cancellation does not abort it; stage timeouts bound its duration.
func (o *Orchestrator) Browse(ctx context.Context, req Request) (res sanitize.Result, err error) {
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("browse panicked", zap.Any("panic", r), zap.String("url", req.URL))
			err = &Error{Kind: KindInternal, Message: "The page could not be resurrected", Err: fmt.Errorf("panic: %v", r)}
		}
		o.record(res, err)
	}()

	req, err = normalize(req)
	if err != nil {
		return sanitize.Result{}, err
	}

	snap, err := stage(ctx, o, "archive.resolve", func(ctx context.Context) (archive.Snapshot, error) {
		return o.resolver.Resolve(ctx, req.URL, req.Timestamp)
	})
	if err != nil {
		return sanitize.Result{}, o.translate(err, req)
	}

	page, err := stage(ctx, o, "archive.fetch", func(ctx context.Context) (archive.Page, error) {
		return o.fetcher.Fetch(ctx, snap.URL)
	})
	if err != nil {
		return sanitize.Result{}, o.translate(err, req)
	}

	res, err = stage(ctx, o, "sanitize", func(context.Context) (sanitize.Result, error) {
		return o.sanitizer.Sanitize(sanitize.Input{
			Markup:      page.Markup,
			FinalURL:    page.FinalURL,
			SnapshotURL: snap.URL,
			Timestamp:   snap.Timestamp,
		})
	})
	if err != nil {
		return sanitize.Result{}, &Error{Kind: KindSanitize, Message: "Failed to process the archived page", Err: err}
	}

	o.logger.Info("page resurrected",
		zap.String("url", req.URL),
		zap.String("snapshot_url", res.SnapshotURL),
		zap.String("timestamp", res.Timestamp),
		zap.Int("bytes", len(res.Markup)),
	)
	return res, nil
}

// stage runs fn inside a child span.
func stage[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) (T, error) {
	span, ctx := o.tracer.StartSpan(ctx, name)
	result, err := fn(ctx)
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
	o.tracer.Submit(span)
	return result, err
}

func normalize(req Request) (Request, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Timestamp = strings.TrimSpace(req.Timestamp)

	if req.URL == "" {
		return req, &Error{Kind: KindInvalidRequest, Message: "A URL is required to summon a page"}
	}
	if req.Timestamp != "" && !timestampPattern.MatchString(req.Timestamp) {
		return req, &Error{Kind: KindInvalidRequest, Message: "Timestamp must be 1 to 14 digits (YYYYMMDDhhmmss)"}
	}
	return req, nil
}

// translate converts stage failures into a *Error.
func (o *Orchestrator) translate(err error, req Request) error {
	if errors.Is(err, archive.ErrNotFound) {
		o.logger.Info("no snapshot found", zap.String("url", req.URL), zap.String("timestamp", req.Timestamp))
		return &Error{Kind: KindNotFound, Message: NotFoundMessage, Err: err}
	}

	o.logger.Warn("archive unreachable", zap.String("url", req.URL), zap.Error(err))

	var upstream *archive.UpstreamError
	if errors.As(err, &upstream) && upstream.Timeout() {
		return &Error{Kind: KindNetwork, Message: "The archive took too long to answer", Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "Failed to reach the archive: " + err.Error(), Err: err}
}

func (o *Orchestrator) record(res sanitize.Result, err error) {
	if o.metrics == nil {
		return
	}
	if err == nil {
		o.metrics.RecordBrowse("success", len(res.Markup))
		return
	}
	var be *Error
	if errors.As(err, &be) {
		o.metrics.RecordBrowse(string(be.Kind), 0)
		return
	}
	o.metrics.RecordBrowse(string(KindInternal), 0)
}
