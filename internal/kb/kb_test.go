package kb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	s.calls++
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{float64(len(texts[i])), 1.0}
	}
	return vectors, nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmbedTags(t *testing.T) {
	db := openTestDB(t)
	ing := NewIngestor(db, &stubEmbedder{}, 350, 50)

	n, err := ing.EmbedTags(context.Background(), []string{"climate policy", "taxation"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 tags embedded, got %d", n)
	}

	v, err := db.GetTagVector("climate policy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil {
		t.Fatal("expected tag vector to be stored")
	}
	if len(v) != 2 {
		t.Errorf("expected 2 dimensions, got %d", len(v))
	}
}

func TestEmbedTagsEmpty(t *testing.T) {
	db := openTestDB(t)
	emb := &stubEmbedder{}
	ing := NewIngestor(db, emb, 350, 50)

	n, err := ing.EmbedTags(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
	if emb.calls != 0 {
		t.Error("expected no embedder call for empty input")
	}
}

func TestAddDocumentFromFile(t *testing.T) {
	db := openTestDB(t)
	ing := NewIngestor(db, &stubEmbedder{}, 350, 50)

	words := make([]string, 400)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	path := filepath.Join(t.TempDir(), "charter.txt")
	if err := os.WriteFile(path, []byte(strings.Join(words, " ")), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	program := "AS"
	if err := ing.AddDocument(context.Background(), path, "program_charter", &program, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vectors, err := db.GetKBVectors(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 400 words at size 350 / overlap 50 splits into two chunks
	if len(vectors) != 2 {
		t.Errorf("expected 2 chunk vectors, got %d", len(vectors))
	}

	location, err := db.GetProgramCharterLocation("AS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if location != path {
		t.Errorf("expected charter location %q, got %q", path, location)
	}
}

func TestAddDocumentEmptyFile(t *testing.T) {
	db := openTestDB(t)
	ing := NewIngestor(db, &stubEmbedder{}, 350, 50)

	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := ing.AddDocument(context.Background(), path, "article", nil, nil); err == nil {
		t.Error("expected error for empty document")
	}
}
