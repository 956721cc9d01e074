package archive

import (
	"bytes"
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/config"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
)

// Minimum chardet confidence (0-100) before its guess is trusted.
const minDetectConfidence = 50

// Page is a fetched snapshot after redirects.
type Page struct {
	Markup   string
	FinalURL string
}

// Fetcher retrieves snapshot markup, following redirects.
type Fetcher struct {
	client   *Client
	maxBytes int64
	logger   *logging.Logger
}

// NewFetcher creates a fetcher from archive configuration. Its timeout is the
// longer fetch timeout, not the index one.
func NewFetcher(cfg config.ArchiveConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Fetcher {
	client := NewClient(ClientOptions{
		Stage:          StageFetch,
		Timeout:        cfg.FetchTimeout,
		UserAgent:      cfg.UserAgent,
		RequestsPerSec: cfg.RequestsPerSec,
		Logger:         logger,
		Metrics:        metrics,
	})
	return &Fetcher{
		client:   client,
		maxBytes: int64(cfg.MaxPageBytes),
		logger:   client.logger,
	}
}

// Client exposes the underlying upstream client.
func (f *Fetcher) Client() *Client {
	return f.client
}

// Fetch downloads snapshotURL and decodes it to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, snapshotURL string) (Page, error) {
	start := time.Now()

	page, err := call(ctx, f.client, func(req *resty.Request) (Page, error) {
		resp, err := req.SetDoNotParseResponse(true).Get(snapshotURL)
		if err != nil {
			return Page{}, err
		}
		body := resp.RawBody()
		defer body.Close()

		if !resp.IsSuccess() {
			return Page{}, statusError(StageFetch, resp.StatusCode())
		}

		data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
		if err != nil {
			return Page{}, err
		}
		if int64(len(data)) > f.maxBytes {
			return Page{}, &UpstreamError{Stage: StageFetch, Err: ErrPageTooLarge}
		}

		finalURL := snapshotURL
		if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
			finalURL = raw.Request.URL.String()
		}

		return Page{
			Markup:   decodeMarkup(data, resp.Header().Get("Content-Type")),
			FinalURL: finalURL,
		}, nil
	})
	if err != nil {
		f.logger.Warn("snapshot fetch failed",
			zap.String("url", snapshotURL),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return Page{}, err
	}

	f.logger.Info("snapshot fetched",
		zap.String("url", snapshotURL),
		zap.String("final_url", page.FinalURL),
		zap.Int("bytes", len(page.Markup)),
		zap.Duration("duration", time.Since(start)),
	)
	return page, nil
}

// decodeMarkup converts legacy encodings to UTF-8. Order: BOM or Content-Type
// charset, valid UTF-8, chardet guess, then the meta prescan default.
func decodeMarkup(data []byte, contentType string) string {
	enc, name, certain := charset.DetermineEncoding(data, contentType)

	if !certain {
		if utf8.Valid(data) {
			return string(data)
		}
		if result, err := chardet.NewTextDetector().DetectBest(data); err == nil && result.Confidence >= minDetectConfidence {
			if detected, detectedName := charset.Lookup(result.Charset); detected != nil {
				enc, name = detected, detectedName
			}
		}
	}

	if name == "utf-8" {
		return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
