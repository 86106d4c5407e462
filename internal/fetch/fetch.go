package fetch

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Extractions shorter than this are treated as boilerplate, not article text.
const minExtractedLen = 100

// Result holds the results of a content fetch run.
type Result struct {
	Fetched int
	Failed  int
	Skipped int
}

// ContentFetcher fetches full article text via HTTP + readability extraction
// for articles whose feed summary is too thin to score well.
type ContentFetcher struct {
	db         *database.DB
	client     *http.Client
	minSummary int
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(db *database.DB, minSummaryLength int, timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		db:         db,
		minSummary: minSummaryLength,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingContent fetches full text for unindexed articles whose summary
// is missing or below the configured floor. A domain that errors once is
// skipped for the rest of the run.
func (f *ContentFetcher) FetchMissingContent() *Result {
	articles, err := f.db.GetArticlesNeedingContent(f.minSummary)
	if err != nil {
		log.Printf("Error getting articles needing content: %v", err)
		return &Result{}
	}
	if len(articles) == 0 {
		log.Println("No articles need content fetching")
		return &Result{}
	}

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for _, article := range articles {
		domain := domainOf(article.Link)
		if _, failed := failedDomains[domain]; failed {
			result.Skipped++
			continue
		}

		text, err := f.extract(article.Link)
		if err != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("Fetch failed for %s (%v), skipping remaining from %s", article.Link, err, domain)
			continue
		}
		if text == "" {
			result.Failed++
			log.Printf("No extractable content from: %s", article.Link)
			continue
		}

		if err := f.db.UpdateArticleSummary(article.ID, text); err != nil {
			log.Printf("Error storing content for article %d: %v", article.ID, err)
			result.Failed++
			continue
		}
		result.Fetched++
		log.Printf("Fetched content for: %s", article.Title)
	}

	log.Printf("Content fetch complete: %d fetched, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped)
	return result
}

// extract fetches a page and runs readability over it. A non-nil error means
// the domain is misbehaving and the caller should stop hitting it; an empty
// string with nil error means the page simply had no usable article text.
func (f *ContentFetcher) extract(articleURL string) (string, error) {
	req, err := http.NewRequest("GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ppi/1.0 (policy monitor)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minExtractedLen {
		return "", nil
	}
	return text, nil
}

func domainOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
