package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/a-h/assessmentserver/metrics"
)

var ErrCacheMiss = errors.New("embedder: cache miss")

// Store is a key-value store for cached vectors. Get returns ErrCacheMiss for
// missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Cached stores query embeddings so that repeated queries skip the model.
// Embeddings are deterministic per model, so the model name is part of the key.
type Cached struct {
	log   *slog.Logger
	inner Embedder
	store Store
	model string
}

func NewCached(log *slog.Logger, inner Embedder, store Store, model string) *Cached {
	return &Cached{
		log:   log,
		inner: inner,
		store: store,
		model: model,
	}
}

func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.get(ctx, key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if err = c.store.Set(ctx, key, vectorToBytes(vec)); err != nil {
		c.log.Warn("failed to cache embedding", slog.String("key", key), slog.Any("error", err))
	}
	return vec, nil
}

// EmbedDocuments isn't cached, documents are only embedded on import.
func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedDocuments(ctx, texts)
}

func (c *Cached) key(text string) string {
	h := sha256.Sum256([]byte(c.model + "|" + text))
	return "assessmentserver:emb:" + hex.EncodeToString(h[:])
}

func (c *Cached) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("failed to get cached embedding", slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	vec, err := bytesToVector(data)
	if err != nil {
		c.log.Warn("failed to parse cached embedding", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return vec, true
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("embedder: invalid cached embedding length %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
