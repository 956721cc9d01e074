package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/resilience"
)

const maxRedirects = 10

// ClientOptions configures one upstream client.
type ClientOptions struct {
	Stage          Stage
	Timeout        time.Duration
	UserAgent      string
	RequestsPerSec float64 // <= 0 means unlimited
	Logger         *logging.Logger
	Metrics        *monitoring.Metrics
}

// Client wraps resty with rate limiting and a circuit breaker. The resolver
// and the fetcher each own one, so a failing stage trips only its own breaker.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	stage   Stage
	timeout time.Duration
	target  string
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewClient creates an upstream client for one archive stage.
func NewClient(opts ClientOptions) *Client {
	// Pooled transport from retryablehttp; resty itself does not retry.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("User-Agent", opts.UserAgent)
	restyClient.SetTransport(retryClient.HTTPClient.Transport)

	logger := logging.OrNop(opts.Logger).Named("archive." + string(opts.Stage))

	breaker := resilience.New("archive-"+string(opts.Stage), resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Missing snapshots are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("archive breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	target := monitoring.TargetArchiveIndex
	if opts.Stage == StageFetch {
		target = monitoring.TargetArchiveFetch
	}

	return &Client{
		resty:   restyClient,
		limiter: newLimiter(opts.RequestsPerSec),
		breaker: breaker,
		stage:   opts.Stage,
		timeout: opts.Timeout,
		target:  target,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// call runs fn under the rate limiter, the breaker and the stage timeout.
// Transport failures and breaker rejections come back as *UpstreamError.
func call[T any](ctx context.Context, c *Client, fn func(req *resty.Request) (T, error)) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return zero, &UpstreamError{Stage: c.stage, Err: fmt.Errorf("rate limit: %w", err)}
	}

	timer := monitoring.NewTimer(c.metrics, c.target)
	result, err := resilience.Do(c.breaker, func() (T, error) {
		return fn(c.resty.R().SetContext(ctx))
	})

	switch {
	case err == nil:
		timer.Stop(monitoring.StatusSuccess)
	case errors.Is(err, ErrNotFound):
		timer.Stop("not_found")
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		timer.Stop("rejected")
		return zero, &UpstreamError{Stage: c.stage, Err: err}
	default:
		timer.Stop(monitoring.StatusOf(err))
	}

	var upstream *UpstreamError
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.As(err, &upstream) {
		return zero, &UpstreamError{Stage: c.stage, Err: err}
	}
	return result, err
}
