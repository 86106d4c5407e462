package index

import (
	"context"
	"fmt"
	"log"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
	"github.com/rchejfec/passive-policy-intelligence/internal/embedding"
)

// Result holds the results of an indexing run.
type Result struct {
	Indexed int
	Failed  int
}

// Indexer chunks article text and stores its embeddings.
type Indexer struct {
	db       *database.DB
	embedder embedding.Embedder
	size     int
	overlap  int
	limit    int
}

// NewIndexer creates a new indexer.
func NewIndexer(db *database.DB, embedder embedding.Embedder, chunkSize, chunkOverlap, batchLimit int) *Indexer {
	return &Indexer{
		db:       db,
		embedder: embedder,
		size:     chunkSize,
		overlap:  chunkOverlap,
		limit:    batchLimit,
	}
}

// IndexPending embeds up to the batch limit of unindexed articles. An
// article with no usable text is still stamped so it leaves the queue; it
// simply never scores.
func (ix *Indexer) IndexPending(ctx context.Context) (*Result, error) {
	articles, err := ix.db.GetUnindexedArticles(ix.limit)
	if err != nil {
		return nil, fmt.Errorf("getting unindexed articles: %w", err)
	}
	if len(articles) == 0 {
		log.Println("No articles to index")
		return &Result{}, nil
	}

	result := &Result{}
	for _, article := range articles {
		text := article.Title
		if article.Summary != nil {
			text += "\n\n" + *article.Summary
		}
		chunks := ChunkWords(text, ix.size, ix.overlap)

		if len(chunks) > 0 {
			vectors, err := ix.embedder.Embed(ctx, chunks)
			if err != nil {
				log.Printf("Embedding failed for article %d: %v", article.ID, err)
				result.Failed++
				continue
			}
			if err := ix.db.InsertArticleChunks(article.ID, vectors); err != nil {
				return nil, fmt.Errorf("storing chunks for article %d: %w", article.ID, err)
			}
		}

		if err := ix.db.MarkArticleIndexed(article.ID); err != nil {
			return nil, fmt.Errorf("marking article %d indexed: %w", article.ID, err)
		}
		result.Indexed++
	}

	log.Printf("Indexing complete: %d indexed, %d failed", result.Indexed, result.Failed)
	return result, nil
}
