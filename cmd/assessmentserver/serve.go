package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/assessmentserver/compose"
	"github.com/a-h/assessmentserver/extract"
	homeget "github.com/a-h/assessmentserver/handlers/home/get"
	recommendpost "github.com/a-h/assessmentserver/handlers/recommend/post"
	"github.com/a-h/assessmentserver/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ServeCommand struct {
	Host                   string        `help:"The host to listen on." env:"HOST" default:"0.0.0.0"`
	Port                   int           `help:"The port to listen on." env:"PORT" default:"5001"`
	TLSCertFile            string        `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile             string        `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	ShutdownTimeout        time.Duration `help:"How long to wait for in-flight requests on shutdown." env:"SHUTDOWN_TIMEOUT" default:"10s"`
	TrimURLPunctuation     bool          `help:"Trim trailing punctuation from URLs found in queries." env:"TRIM_URL_PUNCTUATION" default:"false" negatable:""`
	AppendExtractionErrors bool          `help:"Append a description of failed page extractions to the query." env:"APPEND_EXTRACTION_ERRORS" default:"true" negatable:""`
	ExtractTimeout         time.Duration `help:"The timeout for fetching pages linked from queries." env:"EXTRACT_TIMEOUT" default:"10s"`
	LogLevel               string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`

	EmbedderFlags       `embed:""`
	EmbeddingCacheFlags `embed:""`
	IndexFlags          `embed:""`
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	index, err := c.IndexFlags.Open(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer index.Close()

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	emb, err := c.EmbedderFlags.New(log, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	emb, closeCache, err := c.EmbeddingCacheFlags.Wrap(log, emb, c.EmbedderFlags.model())
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}
	defer closeCache()

	extractor := extract.New(
		extract.WithHTTPClient(httpClient),
		extract.WithTimeout(c.ExtractTimeout),
	)
	composer := compose.New(log, extractor,
		compose.WithTrimTrailingPunctuation(c.TrimURLPunctuation),
		compose.WithAppendFailures(c.AppendExtractionErrors),
	)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", homeget.New())
	mux.Handle("POST /recommend", recommendpost.New(log, composer, emb, index, recommendpost.DefaultLimit))
	mux.Handle("GET /metrics", promhttp.Handler())

	h := metrics.Middleware(mux)
	h = cors.AllowAll().Handler(h)
	h = otelhttp.NewHandler(h, "assessmentserver")

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	s := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		if c.TLSCertFile != "" && c.TLSKeyFile != "" {
			log.Info("Enabling TLS mode")
			cert, err := tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
			if err != nil {
				errs <- fmt.Errorf("failed to load cert: %w", err)
				return
			}
			s.TLSConfig = &tls.Config{
				MinVersion:   tls.VersionTLS12,
				Certificates: []tls.Certificate{cert},
			}
			log.Info("Listening", slog.String("addr", addr))
			errs <- s.ListenAndServeTLS("", "")
			return
		}
		log.Info("Listening", slog.String("addr", addr))
		errs <- s.ListenAndServe()
	}()

	select {
	case err = <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.ShutdownTimeout)
	defer cancel()
	if err = s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err = <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("Server stopped")
	return nil
}
