package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/a-h/assessmentserver/db"
	"github.com/a-h/assessmentserver/models"
	"github.com/fsnotify/fsnotify"
	"github.com/pluja/pocketbase"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"
)

type ImportCommand struct {
	File          string  `help:"A YAML or CSV catalog of assessments to import." env:"FILE" default:""`
	Watch         bool    `help:"Re-import the file whenever it changes." env:"WATCH" default:"false"`
	PocketbaseURL string  `help:"The URL of a Pocketbase server to import from instead of a file." env:"POCKETBASE_URL" default:""`
	Collection    string  `help:"The name of the Pocketbase collection to export from." env:"COLLECTION" default:"assessments"`
	Expand        string  `help:"The Pocketbase fields to expand." env:"EXPAND" default:""`
	ID            string  `help:"The ID of the Pocketbase record to import if you just want to import a single record." env:"ID" default:""`
	EmbedRate     float64 `help:"The maximum number of embedding requests per second, zero for no limit." env:"EMBED_RATE" default:"5"`
	DryRun        bool    `help:"Do not actually import the assessments." env:"DRY_RUN" default:"false"`
	LogLevel      string  `help:"The log level to use." env:"LOG_LEVEL" default:"info"`

	EmbedderFlags `embed:""`
	IndexFlags    `embed:""`
}

func (c ImportCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	if (c.File == "") == (c.PocketbaseURL == "") {
		return fmt.Errorf("exactly one of --file or --pocketbase-url is required")
	}
	if c.Watch && c.File == "" {
		return fmt.Errorf("--watch requires --file")
	}

	limit := rate.Inf
	if c.EmbedRate > 0 {
		limit = rate.Limit(c.EmbedRate)
	}
	im := importer{
		log:     log,
		limiter: rate.NewLimiter(limit, 1),
		dims:    c.EmbeddingDimensions,
		dryRun:  c.DryRun,
		now:     time.Now,
	}
	if !c.DryRun {
		im.embedder, err = c.EmbedderFlags.New(log, http.DefaultClient)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		index, err := c.IndexFlags.Open(ctx, log)
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		defer index.Close()
		if err = c.IndexFlags.Prepare(ctx, log, index, c.EmbeddingDimensions); err != nil {
			return fmt.Errorf("failed to prepare index: %w", err)
		}
		im.index = index
	}

	if c.PocketbaseURL != "" {
		pbe := NewPocketbaseExporter(c.PocketbaseURL, pocketbase.NewClient(c.PocketbaseURL), c.Collection, c.Expand)
		records := func(yield func(importRecord) bool) {
			for ea := range pbe.Export(ctx) {
				if c.ID != "" && ea.ID != c.ID {
					continue
				}
				if !yield(importRecord{Assessment: ea.Assessment, Text: ea.Text}) {
					return
				}
			}
		}
		if _, err = im.Import(ctx, records); err != nil {
			return err
		}
		return pbe.Error
	}

	if err = c.importFile(ctx, im); err != nil {
		return err
	}
	if !c.Watch {
		return nil
	}
	return c.watch(ctx, log, im)
}

func (c ImportCommand) importFile(ctx context.Context, im importer) error {
	assessments, err := readCatalog(c.File)
	if err != nil {
		return err
	}
	records := func(yield func(importRecord) bool) {
		for _, a := range assessments {
			if !yield(importRecord{Assessment: a, Text: embeddingText(a)}) {
				return
			}
		}
	}
	_, err = im.Import(ctx, records)
	return err
}

// watch watches the directory rather than the file, since editors often save
// by renaming a temporary file over the original.
func (c ImportCommand) watch(ctx context.Context, log *slog.Logger, im importer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err = watcher.Add(filepath.Dir(c.File)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.File, err)
	}
	log.Info("watching catalog for changes", slog.String("file", c.File))
	for {
		select {
		case <-ctx.Done():
			log.Info("stopped watching catalog")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", slog.Any("error", err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(c.File) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Info("catalog changed, re-importing", slog.String("file", c.File))
			if err := c.importFile(ctx, im); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				log.Error("failed to re-import catalog", slog.Any("error", err))
			}
		}
	}
}

type importRecord struct {
	Assessment models.Assessment
	Text       string
}

type assessmentWriter interface {
	AssessmentPut(ctx context.Context, args db.AssessmentPutArgs) error
}

type importer struct {
	log      *slog.Logger
	embedder embeddings.Embedder
	index    assessmentWriter
	limiter  *rate.Limiter
	dims     int
	dryRun   bool
	now      func() time.Time
}

// Import embeds and writes each record, replacing any existing record with the
// same URL.
func (im importer) Import(ctx context.Context, records iter.Seq[importRecord]) (count int, err error) {
	for r := range records {
		if r.Assessment.URL == "" {
			im.log.Warn("skipping assessment without a URL", slog.String("name", r.Assessment.Name))
			continue
		}
		im.log.Info("importing assessment", slog.String("url", r.Assessment.URL), slog.String("name", r.Assessment.Name))
		im.log.Debug("embedding text", slog.String("url", r.Assessment.URL), slog.String("text", r.Text))
		if im.dryRun {
			im.log.Info("skipping assessment import in dry run mode", slog.String("url", r.Assessment.URL))
			continue
		}
		if err = im.limiter.Wait(ctx); err != nil {
			return count, err
		}
		vectors, err := im.embedder.EmbedDocuments(ctx, []string{r.Text})
		if err != nil {
			return count, fmt.Errorf("failed to embed %s: %w", r.Assessment.URL, err)
		}
		if len(vectors) != 1 {
			return count, fmt.Errorf("failed to embed %s: expected 1 embedding, got %d", r.Assessment.URL, len(vectors))
		}
		if im.dims > 0 && len(vectors[0]) != im.dims {
			return count, fmt.Errorf("embedding for %s has %d dimensions, expected %d", r.Assessment.URL, len(vectors[0]), im.dims)
		}
		now := im.now()
		err = im.index.AssessmentPut(ctx, db.AssessmentPutArgs{
			Assessment: db.Assessment{
				URL:           r.Assessment.URL,
				Name:          r.Assessment.Name,
				TestType:      r.Assessment.TestType,
				Duration:      r.Assessment.Duration,
				RemoteTesting: r.Assessment.RemoteTesting,
				Text:          r.Text,
				CreatedAt:     now,
				LastUpdatedAt: now,
			},
			Embedding: vectors[0],
		})
		if err != nil {
			return count, fmt.Errorf("failed to put assessment %s: %w", r.Assessment.URL, err)
		}
		count++
	}
	im.log.Info("import complete", slog.Int("count", count))
	return count, nil
}
