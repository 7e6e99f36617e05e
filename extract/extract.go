// Package extract fetches a web page and flattens its paragraph and list item
// text.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0"
)

// PlaceholderPrefix starts the text that stands in for a failed extraction.
const PlaceholderPrefix = "Unable to extract text from URL:"

// Result is the outcome of an extraction. Exactly one of Text or Err is
// meaningful: Text may legitimately be empty when the page has no p or li
// elements.
type Result struct {
	URL  string
	Text string
	Err  error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Placeholder describes a failed extraction in human readable form.
func (r Result) Placeholder() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s %v", PlaceholderPrefix, r.Err)
}

type Option func(*Extractor)

// WithHTTPClient replaces the HTTP client. The extractor's timeout still
// applies.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		e.client = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(e *Extractor) {
		e.userAgent = ua
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{
		client:    http.DefaultClient,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Extractor struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Extract never returns an error directly, failures are reported in the Result.
// The fetch ignores cancellation of ctx and only stops at the timeout.
func (e *Extractor) Extract(ctx context.Context, url string) (r Result) {
	r.URL = url
	r.Text, r.Err = e.extract(ctx, url)
	return r
}

func (e *Extractor) extract(ctx context.Context, url string) (text string, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Error pages still have text worth reading, so the status isn't checked.
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	return Text(doc), nil
}

// Text joins the text of every p and li element in document order.
func Text(doc *goquery.Document) string {
	var parts []string
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.TrimSpace(strings.Join(parts, " "))
}
