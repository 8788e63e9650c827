package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medifusion/platform/pkg/common/config"
	"github.com/medifusion/platform/pkg/common/httpclient"
)

// Client calls an OpenAI-compatible /embeddings endpoint. The engine treats
// any error from Embed as "semantic stage unavailable" for that one record,
// so failures here must carry context but never panic.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	attempts   int
	httpClient *http.Client
	cache      *Cache
}

func NewClient(cfg *config.Config, cache *Cache) *Client {
	return &Client{
		apiKey:     cfg.EmbeddingAPIKey,
		baseURL:    strings.TrimRight(cfg.EmbeddingBaseURL, "/"),
		model:      cfg.EmbeddingModel,
		attempts:   cfg.EmbeddingRetryAttempts,
		httpClient: httpclient.New(cfg.EmbeddingTimeout),
		cache:      cache,
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text signature, consulting
// the cache first. Identical signatures always produce one provider call.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := c.cache.Get(ctx, text); ok {
		return vec, nil
	}

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	var vec []float64
	err = httpclient.Retry(ctx, c.attempts, 200*time.Millisecond, func() error {
		vec, err = c.requestEmbedding(ctx, body)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.cache.Set(ctx, text, vec)
	return vec, nil
}

func (c *Client) requestEmbedding(ctx context.Context, body []byte) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider returned status %d: %s", resp.StatusCode, truncate(payload, 256))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("malformed embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}

	return parsed.Data[0].Embedding, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
