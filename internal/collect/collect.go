package collect

import (
	"log"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound  int
	NewArticles int
	Duplicates  int
	Sources     map[string]int
}

// Collector polls the active sources' feeds and ingests new articles.
type Collector struct {
	db       *database.DB
	daysBack int
}

// NewCollector creates a new article collector.
func NewCollector(db *database.DB, daysBack int) *Collector {
	return &Collector{db: db, daysBack: daysBack}
}

// Collect parses every active source's feed and inserts new articles.
// Per-feed failures are logged and skipped so one dead feed never blocks
// the rest of the run.
func (c *Collector) Collect() (*Result, error) {
	sources, err := c.db.GetActiveSources()
	if err != nil {
		return nil, err
	}

	r := &Result{Sources: make(map[string]int)}
	cutoff := time.Now().AddDate(0, 0, -c.daysBack)
	parser := gofeed.NewParser()

	for _, src := range sources {
		entries, err := parseFeed(parser, *src.FeedURL, cutoff)
		if err != nil {
			log.Printf("Failed to parse feed for %s: %v", src.Name, err)
			continue
		}
		log.Printf("Parsed %d entries from %s (within %d days)", len(entries), src.Name, c.daysBack)
		r.TotalFound += len(entries)

		for _, entry := range entries {
			var summary, pubDate *string
			if entry.Summary != "" {
				summary = &entry.Summary
			}
			if entry.PublishedDate != "" {
				pubDate = &entry.PublishedDate
			}

			id, err := c.db.InsertArticle(src.ID, entry.Title, entry.Link, summary, pubDate)
			if err != nil {
				return nil, err
			}
			if id > 0 {
				r.NewArticles++
				r.Sources[src.Name]++
			} else {
				r.Duplicates++
			}
		}
	}

	log.Printf("Collection complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewArticles, r.Duplicates)
	return r, nil
}
