package archive

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/config"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
)

// Snapshot is the archive's answer to where historical content lives.
type Snapshot struct {
	URL       string
	Timestamp string
}

// Resolver asks the archive availability index for the closest snapshot.
type Resolver struct {
	client           *Client
	indexURL         string
	defaultTimestamp string
	logger           *logging.Logger
}

// NewResolver creates a resolver from archive configuration.
func NewResolver(cfg config.ArchiveConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Resolver {
	client := NewClient(ClientOptions{
		Stage:          StageIndex,
		Timeout:        cfg.IndexTimeout,
		UserAgent:      cfg.UserAgent,
		RequestsPerSec: cfg.RequestsPerSec,
		Logger:         logger,
		Metrics:        metrics,
	})
	return &Resolver{
		client:           client,
		indexURL:         cfg.IndexURL,
		defaultTimestamp: cfg.DefaultTimestamp,
		logger:           client.logger,
	}
}

// DefaultTimestamp is the point in time used when the caller gives none.
func (r *Resolver) DefaultTimestamp() string {
	return r.defaultTimestamp
}

// Client exposes the underlying upstream client.
func (r *Resolver) Client() *Client {
	return r.client
}

// Resolve finds the snapshot of targetURL closest to timestamp. When nothing
// matches a non-default timestamp, the query is repeated without one. The
// returned URL always uses https.
func (r *Resolver) Resolve(ctx context.Context, targetURL, timestamp string) (Snapshot, error) {
	if timestamp == "" {
		timestamp = r.defaultTimestamp
	}

	snap, err := r.lookup(ctx, targetURL, timestamp)
	if errors.Is(err, ErrNotFound) && timestamp != r.defaultTimestamp {
		r.logger.Info("no snapshot at requested time, retrying unconstrained",
			zap.String("url", targetURL),
			zap.String("timestamp", timestamp),
		)
		snap, err = r.lookup(ctx, targetURL, "")
	}
	if err != nil {
		return Snapshot{}, err
	}

	snap.URL = UpgradeScheme(snap.URL)
	return snap, nil
}

func (r *Resolver) lookup(ctx context.Context, targetURL, timestamp string) (Snapshot, error) {
	start := time.Now()

	snap, err := call(ctx, r.client, func(req *resty.Request) (Snapshot, error) {
		req.SetQueryParam("url", targetURL)
		if timestamp != "" {
			req.SetQueryParam("timestamp", timestamp)
		}

		resp, err := req.Get(r.indexURL)
		if err != nil {
			return Snapshot{}, err
		}
		if !resp.IsSuccess() {
			return Snapshot{}, statusError(StageIndex, resp.StatusCode())
		}
		return parseAvailability(resp.Body())
	})

	r.logger.Info("archive index queried",
		zap.String("url", targetURL),
		zap.String("timestamp", timestamp),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("found", err == nil),
	)
	return snap, err
}

// parseAvailability extracts archived_snapshots.closest from an availability
// answer. Anything missing or malformed is ErrNotFound.
func parseAvailability(body []byte) (Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return Snapshot{}, ErrNotFound
	}

	closest := gjson.GetBytes(body, "archived_snapshots.closest")
	if !closest.IsObject() {
		return Snapshot{}, ErrNotFound
	}
	if available := closest.Get("available"); available.Exists() && !available.Bool() {
		return Snapshot{}, ErrNotFound
	}

	snap := Snapshot{
		URL:       closest.Get("url").String(),
		Timestamp: closest.Get("timestamp").String(),
	}
	if snap.URL == "" || snap.Timestamp == "" {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}
