package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const page = `<!DOCTYPE html>
<html>
<head><title>Ignored title</title></head>
<body>
  <h1>Ignored heading</h1>
  <p>  Java developer with  <b>5 years</b> experience. </p>
  <ul>
    <li>Collaborate with business teams</li>
    <li>Write clean code</li>
  </ul>
  <div>Ignored div</div>
  <p>Apply now</p>
</body>
</html>`

func TestExtract(t *testing.T) {
	var userAgent string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, page)
	}))
	defer s.Close()

	r := New().Extract(context.Background(), s.URL)
	if !r.OK() {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	expected := "Java developer with  5 years experience.  Collaborate with business teams Write clean code Apply now"
	if r.Text != expected {
		t.Errorf("expected %q, got %q", expected, r.Text)
	}
	if userAgent != DefaultUserAgent {
		t.Errorf("expected user agent %q, got %q", DefaultUserAgent, userAgent)
	}
	if r.Placeholder() != "" {
		t.Errorf("expected no placeholder on success, got %q", r.Placeholder())
	}
}

func TestExtractPageWithoutParagraphsIsEmpty(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not": "html"}`)
	}))
	defer s.Close()

	r := New().Extract(context.Background(), s.URL)
	if !r.OK() {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Text != "" {
		t.Errorf("expected empty text, got %q", r.Text)
	}
}

func TestExtractErrorStatusStillReadsBody(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `<p>Page not found</p>`)
	}))
	defer s.Close()

	r := New().Extract(context.Background(), s.URL)
	if r.Text != "Page not found" {
		t.Errorf("expected page text, got %q (err: %v)", r.Text, r.Err)
	}
}

func TestExtractUnreachable(t *testing.T) {
	r := New().Extract(context.Background(), "http://127.0.0.1:1")
	if r.OK() {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(r.Placeholder(), PlaceholderPrefix+" ") {
		t.Errorf("expected placeholder to start with %q, got %q", PlaceholderPrefix, r.Placeholder())
	}
	if r.URL != "http://127.0.0.1:1" {
		t.Errorf("expected URL to be recorded, got %q", r.URL)
	}
}

func TestExtractInvalidURL(t *testing.T) {
	r := New().Extract(context.Background(), "http://exa mple.com/")
	if r.OK() {
		t.Fatal("expected an error")
	}
}

func TestExtractTimeout(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer s.Close()
	defer close(release)

	start := time.Now()
	r := New(WithTimeout(50 * time.Millisecond)).Extract(context.Background(), s.URL)
	if r.OK() {
		t.Fatal("expected a timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}

func TestExtractIgnoresCallerCancellation(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<p>Still fetched</p>`)
	}))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New().Extract(ctx, s.URL)
	if r.Text != "Still fetched" {
		t.Errorf("expected the fetch to complete, got %q (err: %v)", r.Text, r.Err)
	}
}
