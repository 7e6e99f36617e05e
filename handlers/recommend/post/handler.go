package post

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/assessmentserver/db"
	"github.com/a-h/assessmentserver/metrics"
	"github.com/a-h/assessmentserver/models"
	"github.com/a-h/respond"
)

// DefaultLimit is the number of recommendations returned.
const DefaultLimit = 3

type Composer interface {
	Compose(ctx context.Context, query string) string
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	AssessmentNearest(ctx context.Context, args db.AssessmentNearestArgs) ([]db.AssessmentNearestResult, error)
}

func New(log *slog.Logger, composer Composer, embedder Embedder, index Index, limit int) Handler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Handler{
		log:      log,
		composer: composer,
		embedder: embedder,
		index:    index,
		limit:    limit,
	}
}

type Handler struct {
	log      *slog.Logger
	composer Composer
	embedder Embedder
	index    Index
	limit    int
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Warn("failed to decode body", slog.Any("error", err))
		respond.WithJSON(w, models.ErrorResponse{Error: "failed to decode body"}, http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		respond.WithJSON(w, models.ErrorResponse{Error: "Missing query text"}, http.StatusBadRequest)
		return
	}

	query := h.composer.Compose(r.Context(), req.Query)

	start := time.Now()
	embedding, err := h.embedder.EmbedQuery(r.Context(), query)
	metrics.ObserveStage("embed", start)
	if err != nil {
		h.log.Error("failed to embed query", slog.Any("error", err))
		respond.WithError(w, "failed to embed query", http.StatusInternalServerError)
		return
	}

	start = time.Now()
	results, err := h.index.AssessmentNearest(r.Context(), db.AssessmentNearestArgs{
		Embedding: embedding,
		Limit:     h.limit,
	})
	metrics.ObserveStage("nearest", start)
	if err != nil {
		h.log.Error("failed to find nearest assessments", slog.Any("error", err))
		respond.WithError(w, "failed to find nearest assessments", http.StatusInternalServerError)
		return
	}
	if len(results) > h.limit {
		results = results[:h.limit]
	}

	resp := models.RecommendPostResponse{
		Recommendations: make([]models.Recommendation, len(results)),
	}
	for i, result := range results {
		resp.Recommendations[i] = recommendation(result.Metadata)
	}
	h.log.Debug("recommended assessments", slog.Int("count", len(results)))

	respond.WithJSON(w, resp, http.StatusOK)
}

// recommendation projects stored metadata. Missing keys become empty strings.
func recommendation(m map[string]string) models.Recommendation {
	return models.Recommendation{
		AssessmentName: m[db.MetadataAssessmentName],
		TestType:       m[db.MetadataTestType],
		Duration:       m[db.MetadataDuration],
		RemoteTesting:  m[db.MetadataRemoteTesting],
		URL:            strings.TrimSpace(m[db.MetadataURL]),
	}
}
