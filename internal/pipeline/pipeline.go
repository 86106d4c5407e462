package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rchejfec/passive-policy-intelligence/internal/collect"
	"github.com/rchejfec/passive-policy-intelligence/internal/config"
	"github.com/rchejfec/passive-policy-intelligence/internal/database"
	"github.com/rchejfec/passive-policy-intelligence/internal/embedding"
	"github.com/rchejfec/passive-policy-intelligence/internal/enrich"
	"github.com/rchejfec/passive-policy-intelligence/internal/fetch"
	"github.com/rchejfec/passive-policy-intelligence/internal/index"
	"github.com/rchejfec/passive-policy-intelligence/internal/match"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID int64
	Steps []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the 5-step ingestion and analysis pipeline.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	embedder embedding.Embedder
	daysBack int

	// metrics accumulated for the run record
	fetched    int
	indexed    int
	analyzed   int
	highlights int
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, daysBack int) *Pipeline {
	emb := cfg.Embedding
	return &Pipeline{
		cfg: cfg,
		db:  db,
		embedder: embedding.CreateEmbedder(
			emb.Provider,
			emb.OllamaModel,
			emb.OllamaURL,
			emb.OpenAIModel,
			emb.APIKeyEnv,
		),
		daysBack: daysBack,
	}
}

// Run executes the full pipeline under a pipeline_runs record.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	runID, err := p.db.StartRun()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Start", Err: err})
		return r
	}
	r.RunID = runID

	step := p.runCollect()
	r.Steps = append(r.Steps, step)
	if step.Err == nil {
		r.Steps = append(r.Steps, p.runFetch())
		r.Steps = append(r.Steps, p.runIndex(ctx))
		r.Steps = append(r.Steps, p.withRetry("Analyze", p.runAnalyze))
		r.Steps = append(r.Steps, p.withRetry("Enrich", p.runEnrich))
	}

	status := "SUCCESS"
	if r.Failed() {
		status = "FAILURE"
	}
	if err := p.db.EndRun(runID, status, p.fetched, p.indexed, p.analyzed, p.highlights); err != nil {
		log.Printf("Error closing run record: %v", err)
	}
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	sources, _ := p.db.GetActiveSources()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d active sources to poll", len(sources)),
	})

	needing, _ := p.db.GetArticlesNeedingContent(p.cfg.Fetch.MinSummaryLength)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d articles need content fetching", len(needing)),
	})

	unindexed, _ := p.db.GetUnindexedArticles(p.cfg.Index.BatchLimit)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Index",
		Summary: fmt.Sprintf("[dry-run] %d articles need embedding", len(unindexed)),
	})

	unanalyzed, _ := p.db.GetUnanalyzedArticles(p.cfg.Scoring.BatchLimit)
	anchors, _ := p.db.GetActiveAnchors()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("[dry-run] %d articles to score against %d anchors", len(unanalyzed), len(anchors)),
	})

	pending, _ := p.db.GetUnenrichedArticleIDs()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("[dry-run] %d articles awaiting classification", len(pending)),
	})

	return r
}

// withRetry runs a step up to the configured attempt count with a fixed
// backoff between failures.
func (p *Pipeline) withRetry(name string, step func() StepResult) StepResult {
	attempts := p.cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(p.cfg.Retry.BackoffSeconds) * time.Second

	var result StepResult
	for attempt := 1; attempt <= attempts; attempt++ {
		result = step()
		if result.Err == nil {
			return result
		}
		log.Printf("%s attempt %d/%d failed: %v", name, attempt, attempts, result.Err)
		if attempt < attempts {
			time.Sleep(backoff)
		}
	}
	return result
}

func (p *Pipeline) runCollect() StepResult {
	log.Println("Step 1/5: Collecting articles...")
	collector := collect.NewCollector(p.db, p.daysBack)
	result, err := collector.Collect()
	if err != nil {
		return StepResult{Name: "Collect", Err: err}
	}
	p.fetched = result.NewArticles
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new articles (%d total, %d duplicates)", result.NewArticles, result.TotalFound, result.Duplicates),
	}
}

func (p *Pipeline) runFetch() StepResult {
	log.Println("Step 2/5: Fetching article content...")
	fetcher := fetch.NewContentFetcher(p.db, p.cfg.Fetch.MinSummaryLength,
		time.Duration(p.cfg.Fetch.TimeoutSeconds)*time.Second)
	result := fetcher.FetchMissingContent()
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d articles, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runIndex(ctx context.Context) StepResult {
	log.Println("Step 3/5: Indexing articles...")
	if p.embedder == nil {
		return StepResult{Name: "Index", Err: fmt.Errorf("no embedding provider available")}
	}
	ix := index.NewIndexer(p.db, p.embedder, p.cfg.Index.ChunkSize, p.cfg.Index.ChunkOverlap, p.cfg.Index.BatchLimit)
	result, err := ix.IndexPending(ctx)
	if err != nil {
		return StepResult{Name: "Index", Err: err}
	}
	p.indexed = result.Indexed
	return StepResult{
		Name:    "Index",
		Summary: fmt.Sprintf("Indexed %d articles, %d failed", result.Indexed, result.Failed),
	}
}

func (p *Pipeline) runAnalyze() StepResult {
	log.Println("Step 4/5: Scoring articles against anchors...")
	sc := p.cfg.Scoring
	analyzer := match.NewAnalyzer(p.db, sc.PoolSize, sc.MinScore, sc.MinScoreCategories, sc.BatchLimit)
	result, err := analyzer.AnalyzePending()
	if err != nil {
		return StepResult{Name: "Analyze", Err: err}
	}
	p.analyzed = result.Analyzed
	return StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("Scored %d articles, %d matches", result.Analyzed, result.Matches),
	}
}

func (p *Pipeline) runEnrich() StepResult {
	log.Println("Step 5/5: Classifying highlights...")
	en := p.cfg.Enrichment
	tiers := enrich.NewTiers(en.Tier1Threshold, en.Tier1Categories, en.Tier2Categories, en.Tier3Categories)
	enricher := enrich.NewEnricher(p.db, tiers, en.OrgQuantile)
	result, err := enricher.EnrichPending()
	if err != nil {
		return StepResult{Name: "Enrich", Err: err}
	}
	p.highlights = result.Highlights
	return StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Classified %d articles: %d highlights, %d org highlights", result.Articles, result.Highlights, result.OrgHighlights),
	}
}
