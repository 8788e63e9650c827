package embeddings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medifusion/platform/pkg/common/config"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{
		EmbeddingAPIKey:        "test-key",
		EmbeddingBaseURL:       baseURL,
		EmbeddingModel:         "text-embedding-3-small",
		EmbeddingTimeout:       5 * time.Second,
		EmbeddingRetryAttempts: 1,
	}
	return NewClient(cfg, nil)
}

func TestEmbedParsesProviderResponse(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	vec, err := newTestClient(server.URL).Embed(context.Background(), "Jane Doe 1975-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotPath != "/embeddings" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestEmbedReportsProviderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Embed(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for empty data array")
	}
}

func TestEmbedWorksWithoutCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":[{"embedding":[1.0]}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 2; i++ {
		if _, err := client.Embed(context.Background(), "same text"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// Without a cache every call reaches the provider.
	if calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", calls)
	}
}
