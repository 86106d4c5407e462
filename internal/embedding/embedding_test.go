package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		embeddings := make([][]float64, len(req.Input))
		for i := range embeddings {
			embeddings[i] = []float64{1, 0, 0}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", srv.URL)
	vectors, err := e.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(vectors[0]))
	}
}

func TestOllamaEmbedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("missing", srv.URL)
	if _, err := e.Embed(context.Background(), []string{"text"}); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestOpenAIEmbedderNotConfigured(t *testing.T) {
	t.Setenv("PPI_TEST_MISSING_KEY", "")
	e := NewOpenAIEmbedder("text-embedding-3-small", "PPI_TEST_MISSING_KEY")
	if e.IsConfigured() {
		t.Error("expected unconfigured embedder without API key")
	}
	if _, err := e.Embed(context.Background(), []string{"text"}); err == nil {
		t.Error("expected error without API key")
	}
}
