package sanitize

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
)

// Input is a fetched snapshot plus the resolver's answer.
type Input struct {
	Markup      string
	FinalURL    string
	SnapshotURL string
	Timestamp   string
}

// Result is the page returned to the caller.
type Result struct {
	Markup      string
	SnapshotURL string
	Timestamp   string
}

// Sanitizer rewrites archived pages so they render inert inside the app.
// It holds no mutable state and is safe for concurrent use.
type Sanitizer struct {
	origin string
	logger *logging.Logger
}

// New creates a sanitizer. origin is the archive's public host, used for
// root-relative archive paths when the final URL is not on an archive host.
func New(origin string, logger *logging.Logger) *Sanitizer {
	return &Sanitizer{
		origin: strings.TrimSuffix(origin, "/"),
		logger: logging.OrNop(logger).Named("sanitize"),
	}
}

// Sanitize runs every pass in order. Later passes rely on earlier ones.
func (s *Sanitizer) Sanitize(in Input) (Result, error) {
	markup := NormalizeSchemes(in.Markup)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Result{}, fmt.Errorf("parse snapshot: %w", err)
	}

	var stats Stats
	stats.ChromeRemoved = stripChrome(doc)
	stats.RedirectsRemoved = suppressRedirects(doc)
	stats.URLsRewritten = absolutizeURLs(doc, s.originFor(in.FinalURL))
	stats.HeadSynthesized = injectLockdown(doc)
	markProvenance(doc, in.Timestamp)

	rendered, err := doc.Html()
	if err != nil {
		return Result{}, fmt.Errorf("render snapshot: %w", err)
	}
	rendered = FinalizeSchemes(rendered)

	s.logger.Debug("snapshot sanitized",
		zap.String("snapshot_url", in.SnapshotURL),
		zap.Int("chrome_removed", stats.ChromeRemoved),
		zap.Int("redirects_removed", stats.RedirectsRemoved),
		zap.Int("urls_rewritten", stats.URLsRewritten),
		zap.Bool("head_synthesized", stats.HeadSynthesized),
		zap.Int("bytes", len(rendered)),
	)

	return Result{
		Markup:      rendered,
		SnapshotURL: in.SnapshotURL,
		Timestamp:   in.Timestamp,
	}, nil
}

// originFor derives the archive host from the post-redirect URL, falling
// back to the configured origin.
func (s *Sanitizer) originFor(finalURL string) string {
	u, err := url.Parse(finalURL)
	if err != nil || u.Host == "" {
		return s.origin
	}
	host := strings.ToLower(u.Hostname())
	if host == archiveDomain || strings.HasSuffix(host, "."+archiveDomain) {
		return "https://" + u.Host
	}
	return s.origin
}
