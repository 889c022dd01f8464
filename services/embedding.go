package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
	"github.com/philippgille/chromem-go"
)

// Embedding providers
const (
	EmbeddingLocal  = "local"
	EmbeddingOllama = "ollama"
)

// LocalEmbeddingDims is the width of the hashed bag-of-words embedding
const LocalEmbeddingDims = 512

// EmbeddingService turns text into vectors for the knowledge base
type EmbeddingService struct {
	provider string
	client   *api.Client
	host     string
	model    string
	timeout  time.Duration
}

// NewEmbeddingService creates an embedding service. The local provider needs
// no network; the ollama provider uses host, or OLLAMA_HOST when host is empty.
func NewEmbeddingService(provider, host, model string) (*EmbeddingService, error) {
	switch provider {
	case "", EmbeddingLocal:
		return &EmbeddingService{provider: EmbeddingLocal}, nil
	case EmbeddingOllama:
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host: %w", err)
		}
		hostURL = parsed
	}
	if model == "" {
		model = "nomic-embed-text"
	}

	return &EmbeddingService{
		provider: EmbeddingOllama,
		client:   api.NewClient(hostURL, http.DefaultClient),
		host:     hostURL.String(),
		model:    model,
		timeout:  30 * time.Second,
	}, nil
}

// Provider returns the active provider name
func (e *EmbeddingService) Provider() string {
	return e.provider
}

// EmbeddingFunc adapts the service for chromem collections
func (e *EmbeddingService) EmbeddingFunc() chromem.EmbeddingFunc {
	return e.Embed
}

// Embed returns a unit-length embedding for text
func (e *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var (
		vec []float32
		err error
	)
	if e.provider == EmbeddingOllama {
		vec, err = e.ollamaEmbedding(ctx, text)
	} else {
		vec = hashedEmbedding(text)
	}
	if err != nil {
		return nil, err
	}
	if !normalize(vec) {
		return nil, errors.New("text has no embeddable content")
	}
	return vec, nil
}

func (e *EmbeddingService) ollamaEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings(ctxWithTimeout, &api.EmbeddingRequest{
		Model:   e.model,
		Prompt:  text,
		Options: map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// hashedEmbedding hashes each lowercased word into a signed bucket
func hashedEmbedding(text string) []float32 {
	vec := make([]float32, LocalEmbeddingDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r)
	})
	for _, word := range words {
		if len([]rune(word)) < 2 {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		sum := h.Sum32()
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vec[sum%LocalEmbeddingDims] += sign
	}
	return vec
}

func normalize(vec []float32) bool {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return false
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return true
}

// GetStatus returns the status of the embedding service
func (e *EmbeddingService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"provider": e.provider,
	}
	if e.provider == EmbeddingOllama {
		status["host"] = e.host
		status["model"] = e.model
		status["timeout"] = e.timeout.String()
	} else {
		status["dimensions"] = LocalEmbeddingDims
	}
	return status
}
