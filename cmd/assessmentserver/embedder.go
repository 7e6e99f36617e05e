package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/assessmentserver/embedder"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

type EmbedderFlags struct {
	Embedder            string `help:"The embedding provider to use." enum:"ollama,openai" env:"EMBEDDER" default:"ollama"`
	EmbeddingModel      string `help:"The model to use for embeddings. Defaults to all-minilm for Ollama and text-embedding-3-small for OpenAI." env:"EMBEDDING_MODEL" default:""`
	EmbeddingDimensions int    `help:"The number of embedding dimensions requested from OpenAI. Must match the index." env:"EMBEDDING_DIMENSIONS" default:"384"`
	OllamaURL           string `help:"The URL of the Ollama server." env:"OLLAMA_URL" default:"http://127.0.0.1:11434/"`
	OpenAIAPIKey        string `help:"The OpenAI API key." env:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL       string `help:"The base URL of an OpenAI compatible API." env:"OPENAI_BASE_URL" default:""`
}

func (f EmbedderFlags) model() string {
	if f.EmbeddingModel != "" {
		return f.EmbeddingModel
	}
	if f.Embedder == "openai" {
		return "text-embedding-3-small"
	}
	return "all-minilm"
}

func (f EmbedderFlags) New(log *slog.Logger, httpClient *http.Client) (emb embeddings.Embedder, err error) {
	log.Info("creating embedder", slog.String("provider", f.Embedder), slog.String("model", f.model()))
	switch f.Embedder {
	case "openai":
		if f.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("an OpenAI API key is required for the openai embedder")
		}
		return embedder.NewOpenAI(embedder.OpenAIConfig{
			APIKey:     f.OpenAIAPIKey,
			BaseURL:    f.OpenAIBaseURL,
			Model:      f.model(),
			Dimensions: f.EmbeddingDimensions,
		}), nil
	case "ollama", "":
		ec, err := ollama.New(
			ollama.WithModel(f.model()),
			ollama.WithHTTPClient(httpClient),
			ollama.WithServerURL(f.OllamaURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return embeddings.NewEmbedder(ec)
	}
	return nil, fmt.Errorf("unknown embedder %q", f.Embedder)
}

type EmbeddingCacheFlags struct {
	RedisAddr         string        `help:"Comma separated Redis addresses used to cache query embeddings. Caching is disabled if empty." env:"REDIS_ADDR" default:""`
	RedisPassword     string        `help:"The Redis password." env:"REDIS_PASSWORD" default:""`
	EmbeddingCacheTTL time.Duration `help:"How long cached query embeddings are kept. Zero keeps them forever." env:"EMBEDDING_CACHE_TTL" default:"24h"`
}

// Wrap adds the Redis cache to emb if it's configured. The returned close
// function is never nil.
func (f EmbeddingCacheFlags) Wrap(log *slog.Logger, emb embeddings.Embedder, model string) (embeddings.Embedder, func(), error) {
	if f.RedisAddr == "" {
		return emb, func() {}, nil
	}
	log.Info("caching query embeddings in redis", slog.String("addr", f.RedisAddr))
	store, err := embedder.NewRedis(strings.Split(f.RedisAddr, ","), f.RedisPassword, f.EmbeddingCacheTTL)
	if err != nil {
		return nil, nil, err
	}
	return embedder.NewCached(log, emb, store, model), store.Close, nil
}
