package enrich

import (
	"fmt"
	"log"
	"math"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Result holds the results of a classification run.
type Result struct {
	Articles      int
	Highlights    int
	OrgHighlights int
}

// Enricher classifies pending matches against adaptive thresholds and
// flags organizational highlights.
type Enricher struct {
	db          *database.DB
	tiers       *Tiers
	orgQuantile float64
}

// NewEnricher creates a new enricher.
func NewEnricher(db *database.DB, tiers *Tiers, orgQuantile float64) *Enricher {
	return &Enricher{db: db, tiers: tiers, orgQuantile: orgQuantile}
}

// EnrichPending classifies every unenriched match and stamps its article.
// Thresholds are calibrated from the full committed history before any flag
// is decided, and the whole pass commits in one transaction.
func (e *Enricher) EnrichPending() (*Result, error) {
	articleIDs, err := e.db.GetUnenrichedArticleIDs()
	if err != nil {
		return nil, fmt.Errorf("getting unenriched articles: %w", err)
	}
	if len(articleIDs) == 0 {
		log.Println("No articles to enrich")
		return &Result{}, nil
	}

	pending, err := e.db.GetUnenrichedMatches()
	if err != nil {
		return nil, fmt.Errorf("getting unenriched matches: %w", err)
	}

	history, err := e.db.GetMatchHistory()
	if err != nil {
		return nil, fmt.Errorf("getting match history: %w", err)
	}
	thresholds := BuildThresholds(e.tiers, history)

	// Per-article peak absolute score over all history, for the
	// organizational cutoff.
	peaks := make(map[int64]float64)
	for _, h := range history {
		abs := math.Abs(h.Score)
		if abs > peaks[h.ArticleID] {
			peaks[h.ArticleID] = abs
		}
	}
	peakValues := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		peakValues = append(peakValues, p)
	}
	orgCutoff := Quantile(peakValues, e.orgQuantile)

	result := &Result{}
	matchFlags := make(map[int64]bool, len(pending))
	for _, m := range pending {
		highlight := thresholds.IsHighlight(m.AnchorName, m.SourceCategory, m.Score)
		matchFlags[m.LinkID] = highlight
		if highlight {
			result.Highlights++
		}
	}

	// Every analyzed article is stamped, matches or not. The org flag
	// requires strictly exceeding the cutoff; a peak sitting exactly on the
	// quantile stays unflagged.
	articleFlags := make(map[int64]bool, len(articleIDs))
	for _, id := range articleIDs {
		peak, hasMatches := peaks[id]
		org := hasMatches && peak > orgCutoff
		articleFlags[id] = org
		if org {
			result.OrgHighlights++
		}
	}
	result.Articles = len(articleFlags)

	if err := e.db.ApplyEnrichment(matchFlags, articleFlags); err != nil {
		return nil, fmt.Errorf("applying enrichment: %w", err)
	}

	log.Printf("Enrichment complete: %d articles, %d highlights, %d org highlights",
		result.Articles, result.Highlights, result.OrgHighlights)
	return result, nil
}
