// Package compose builds the text that is embedded for a recommendation query.
package compose

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/a-h/assessmentserver/extract"
	"github.com/a-h/assessmentserver/metrics"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// trailingPunctuation is only trimmed when WithTrimTrailingPunctuation is set.
const trailingPunctuation = `.,;:!?)]}'"`

// FindURL returns the first http(s) URL in text. The match runs up to the next
// whitespace, so it can include trailing punctuation unless trim is set.
func FindURL(text string, trim bool) (url string, ok bool) {
	url = urlPattern.FindString(text)
	if url == "" {
		return "", false
	}
	if trim {
		url = strings.TrimRight(url, trailingPunctuation)
	}
	return url, true
}

type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

type Option func(*Composer)

// WithTrimTrailingPunctuation trims characters like "." and ")" from the end of
// a detected URL before it is fetched.
func WithTrimTrailingPunctuation(trim bool) Option {
	return func(c *Composer) {
		c.trim = trim
	}
}

// WithAppendFailures controls whether the description of a failed extraction
// is appended to the query in place of page text.
func WithAppendFailures(appendFailures bool) Option {
	return func(c *Composer) {
		c.appendFailures = appendFailures
	}
}

func New(log *slog.Logger, extractor Extractor, opts ...Option) *Composer {
	c := &Composer{
		log:            log,
		extractor:      extractor,
		appendFailures: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Composer struct {
	log            *slog.Logger
	extractor      Extractor
	trim           bool
	appendFailures bool
}

// Compose returns query unchanged if it contains no URL. Otherwise the text of
// the first URL's page is appended after a single space.
func (c *Composer) Compose(ctx context.Context, query string) string {
	defer metrics.ObserveStage("compose", time.Now())

	url, ok := FindURL(query, c.trim)
	if !ok {
		return query
	}

	r := c.extractor.Extract(ctx, url)
	if r.OK() {
		metrics.ExtractionsTotal.WithLabelValues("success").Inc()
		c.log.Debug("extracted text from URL", slog.String("url", url), slog.Int("length", len(r.Text)))
		return query + " " + r.Text
	}

	metrics.ExtractionsTotal.WithLabelValues("failure").Inc()
	c.log.Warn("failed to extract text from URL", slog.String("url", url), slog.Any("error", r.Err))
	if !c.appendFailures {
		return query + " "
	}
	return query + " " + r.Placeholder()
}
