package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/a-h/assessmentserver/db"
	"github.com/a-h/assessmentserver/db/chroma"
	"github.com/a-h/assessmentserver/db/qdrant"
	"github.com/rqlite/gorqlite"
)

type Index interface {
	AssessmentPut(ctx context.Context, args db.AssessmentPutArgs) error
	AssessmentNearest(ctx context.Context, args db.AssessmentNearestArgs) ([]db.AssessmentNearestResult, error)
	Close() error
}

type IndexFlags struct {
	Index           string `help:"The vector index to use." enum:"rqlite,chroma,qdrant" env:"INDEX" default:"rqlite"`
	IndexCollection string `help:"The Chroma or Qdrant collection holding the assessments." env:"INDEX_COLLECTION" default:"shl_assessments"`
	RqliteURL       string `help:"The URL of the rqlite server." env:"RQLITE_URL" default:"http://localhost:4001"`
	ChromaURL       string `help:"The URL of the Chroma server." env:"CHROMA_URL" default:"http://localhost:8000"`
	QdrantAddr      string `help:"The gRPC address of the Qdrant server." env:"QDRANT_ADDR" default:"localhost:6334"`
}

func (f IndexFlags) Open(ctx context.Context, log *slog.Logger) (Index, error) {
	switch f.Index {
	case "chroma":
		log.Info("connecting to chroma", slog.String("url", f.ChromaURL), slog.String("collection", f.IndexCollection))
		return chroma.New(ctx, f.ChromaURL, f.IndexCollection)
	case "qdrant":
		log.Info("connecting to qdrant", slog.String("addr", f.QdrantAddr), slog.String("collection", f.IndexCollection))
		return qdrant.New(f.QdrantAddr, f.IndexCollection)
	case "rqlite", "":
		databaseURL, err := db.ParseRqliteURL(f.RqliteURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rqlite URL: %w", err)
		}
		log.Info("opening database connection", slog.String("url", databaseURL.Redacted()))
		conn, err := db.Open(databaseURL)
		if err != nil {
			return nil, err
		}
		return rqliteIndex{conn: conn, queries: db.New(conn)}, nil
	}
	return nil, fmt.Errorf("unknown index %q", f.Index)
}

// Prepare creates the schema or collection needed to write to the index.
func (f IndexFlags) Prepare(ctx context.Context, log *slog.Logger, index Index, dims int) error {
	switch index := index.(type) {
	case rqliteIndex:
		databaseURL, err := db.ParseRqliteURL(f.RqliteURL)
		if err != nil {
			return fmt.Errorf("failed to parse rqlite URL: %w", err)
		}
		log.Info("migrating database schema", slog.String("url", databaseURL.Redacted()))
		return db.Migrate(databaseURL)
	case *qdrant.Store:
		log.Info("ensuring qdrant collection exists", slog.String("collection", f.IndexCollection), slog.Int("dims", dims))
		return index.EnsureCollection(ctx, dims)
	}
	return nil
}

type rqliteIndex struct {
	conn    *gorqlite.Connection
	queries *db.Queries
}

func (r rqliteIndex) AssessmentPut(ctx context.Context, args db.AssessmentPutArgs) error {
	_, err := r.queries.AssessmentPut(ctx, args)
	return err
}

func (r rqliteIndex) AssessmentNearest(ctx context.Context, args db.AssessmentNearestArgs) ([]db.AssessmentNearestResult, error) {
	return r.queries.AssessmentNearest(ctx, args)
}

func (r rqliteIndex) Close() error {
	r.conn.Close()
	return nil
}
