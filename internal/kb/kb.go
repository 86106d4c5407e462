package kb

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
	"github.com/rchejfec/passive-policy-intelligence/internal/embedding"
	"github.com/rchejfec/passive-policy-intelligence/internal/index"
)

// Ingestor populates the knowledge base: tag vectors and reference document
// chunks that anchors resolve against during scoring.
type Ingestor struct {
	db       *database.DB
	embedder embedding.Embedder
	client   *http.Client
	size     int
	overlap  int
}

// NewIngestor creates a new knowledge-base ingestor.
func NewIngestor(db *database.DB, embedder embedding.Embedder, chunkSize, chunkOverlap int) *Ingestor {
	return &Ingestor{
		db:       db,
		embedder: embedder,
		client:   &http.Client{Timeout: 30 * time.Second},
		size:     chunkSize,
		overlap:  chunkOverlap,
	}
}

// EmbedTags embeds each tag name and stores or replaces its vector.
func (g *Ingestor) EmbedTags(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	vectors, err := g.embedder.Embed(ctx, names)
	if err != nil {
		return 0, fmt.Errorf("embedding tags: %w", err)
	}
	if len(vectors) != len(names) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d tags", len(vectors), len(names))
	}
	for i, name := range names {
		if err := g.db.UpsertTag(name, vectors[i]); err != nil {
			return i, fmt.Errorf("storing tag %q: %w", name, err)
		}
	}
	log.Printf("Embedded %d tags", len(names))
	return len(names), nil
}

// AddDocument registers a reference document, pulls its text, and stores its
// chunk embeddings. The location is a URL or a local file path and doubles
// as the document's unique key.
func (g *Ingestor) AddDocument(ctx context.Context, location, sourceType string, programTag, title *string) error {
	text, err := g.loadText(location)
	if err != nil {
		return fmt.Errorf("reading %s: %w", location, err)
	}

	chunks := index.ChunkWords(text, g.size, g.overlap)
	if len(chunks) == 0 {
		return fmt.Errorf("no usable text at %s", location)
	}

	vectors, err := g.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding %s: %w", location, err)
	}

	if _, err := g.db.InsertKBDocument(location, sourceType, programTag, title); err != nil {
		return fmt.Errorf("registering %s: %w", location, err)
	}
	if err := g.db.InsertKBChunks(location, vectors); err != nil {
		return fmt.Errorf("storing chunks for %s: %w", location, err)
	}

	log.Printf("Indexed %s (%d chunks)", location, len(chunks))
	return nil
}

func (g *Ingestor) loadText(location string) (string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return g.fetchText(location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (g *Ingestor) fetchText(docURL string) (string, error) {
	resp, err := g.client.Get(docURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	parsed, _ := url.Parse(docURL)
	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(article.TextContent), nil
}
