package database

// Source represents a monitored publication.
type Source struct {
	ID        int64
	Name      string
	Category  string
	FeedURL   *string
	IsActive  bool
	CreatedAt *string
}

// Article represents an ingested article.
type Article struct {
	ID                    int64
	SourceID              int64
	Title                 string
	Link                  string
	Summary               *string
	PublishedDate         *string
	CreatedAt             *string
	IndexedAt             *string
	AnalyzedAt            *string
	EnrichmentProcessedAt *string
	IsOrgHighlight        bool
	NewsletterSentAt      *string
}

// Anchor represents a semantic anchor definition.
type Anchor struct {
	ID          int64
	Name        string
	Description *string
	Author      *string
	IsActive    bool
	CreatedAt   *string
}

// AnchorComponent is a typed reference contributing vectors to an anchor.
type AnchorComponent struct {
	ID          int64
	AnchorID    int64
	Type        string // "tag", "program" or "kb_item"
	ComponentID string
}

// Match is a scored (article, anchor) pair. HighlightFlag is nil until
// the enrichment pass classifies it.
type Match struct {
	ID            int64
	ArticleID     int64
	AnchorID      int64
	Score         float64
	HighlightFlag *bool
	CreatedAt     *string
}

// MatchStat is one historical match row as seen by the threshold calibrator.
type MatchStat struct {
	ArticleID      int64
	AnchorName     string
	SourceCategory string
	Score          float64
}

// UnenrichedMatch is a match row pending classification, joined with the
// context the tier rules need.
type UnenrichedMatch struct {
	LinkID         int64
	ArticleID      int64
	AnchorName     string
	SourceCategory string
	Score          float64
}

// CandidateRow is one (article, anchor) row eligible for digest selection.
type CandidateRow struct {
	ArticleID      int64
	Title          string
	Link           string
	SourceName     string
	SourceCategory string
	AnchorName     string
	Score          float64
	IsOrgHighlight bool
}

// Digest represents a generated digest document.
type Digest struct {
	ID             int64
	BodyMarkdown   string
	ItemCount      int
	CandidateCount int
	GeneratedAt    *string
	SentAt         *string
}

// PipelineRun holds metadata about one pipeline invocation.
type PipelineRun struct {
	ID               int64
	StartedAt        *string
	EndedAt          *string
	Status           string
	ArticlesFetched  int
	ArticlesIndexed  int
	ArticlesAnalyzed int
	HighlightsFound  int
}

// Stats contains aggregate database statistics.
type Stats struct {
	ActiveSources      int
	TotalArticles      int
	UnindexedArticles  int
	UnanalyzedArticles int
	UnenrichedArticles int
	OrgHighlights      int
	ActiveAnchors      int
	TotalMatches       int
	TotalDigests       int
}
