package match

import (
	"fmt"
	"log"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Result holds the results of a scoring run.
type Result struct {
	Analyzed int
	Matches  int
}

// Analyzer scores unanalyzed articles against every active anchor.
type Analyzer struct {
	db                 *database.DB
	poolSize           int
	minScore           float64
	minScoreCategories map[string]struct{}
	batchLimit         int
}

// NewAnalyzer creates a new analyzer. Categories listed in
// minScoreCategories have matches below minScore discarded before storage.
func NewAnalyzer(db *database.DB, poolSize int, minScore float64, minScoreCategories []string, batchLimit int) *Analyzer {
	filtered := make(map[string]struct{}, len(minScoreCategories))
	for _, c := range minScoreCategories {
		filtered[c] = struct{}{}
	}
	return &Analyzer{
		db:                 db,
		poolSize:           poolSize,
		minScore:           minScore,
		minScoreCategories: filtered,
		batchLimit:         batchLimit,
	}
}

// AnalyzePending scores one batch of indexed, unanalyzed articles. Every
// article in the batch is stamped analyzed in the same transaction as its
// match rows, including articles that produced none.
func (a *Analyzer) AnalyzePending() (*Result, error) {
	articles, err := a.db.GetUnanalyzedArticles(a.batchLimit)
	if err != nil {
		return nil, fmt.Errorf("getting unanalyzed articles: %w", err)
	}
	if len(articles) == 0 {
		log.Println("No articles to analyze")
		return &Result{}, nil
	}

	anchors, err := a.db.GetActiveAnchors()
	if err != nil {
		return nil, fmt.Errorf("getting active anchors: %w", err)
	}

	// Resolve anchor vectors once per pass.
	anchorVectors := make(map[int64][][]float64, len(anchors))
	var scorable []database.Anchor
	for _, anchor := range anchors {
		vectors, err := AnchorVectors(a.db, anchor)
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			log.Printf("Anchor %q has no resolvable vectors, skipping", anchor.Name)
			continue
		}
		anchorVectors[anchor.ID] = vectors
		scorable = append(scorable, anchor)
	}

	var matches []database.Match
	analyzedIDs := make([]int64, 0, len(articles))
	for _, article := range articles {
		analyzedIDs = append(analyzedIDs, article.ID)

		articleVectors, err := a.db.GetArticleVectors(article.ID)
		if err != nil {
			return nil, fmt.Errorf("getting vectors for article %d: %w", article.ID, err)
		}
		if len(articleVectors) == 0 {
			continue
		}

		_, noisy := a.minScoreCategories[article.SourceCategory]
		for _, anchor := range scorable {
			score := PooledScore(articleVectors, anchorVectors[anchor.ID], a.poolSize)
			if noisy && score < a.minScore {
				continue
			}
			matches = append(matches, database.Match{
				ArticleID: article.ID,
				AnchorID:  anchor.ID,
				Score:     score,
			})
		}
	}

	inserted, err := a.db.InsertMatches(matches, analyzedIDs)
	if err != nil {
		return nil, fmt.Errorf("storing matches: %w", err)
	}

	log.Printf("Analysis complete: %d articles, %d matches", len(articles), inserted)
	return &Result{Analyzed: len(articles), Matches: inserted}, nil
}
