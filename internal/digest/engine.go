package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/rchejfec/passive-policy-intelligence/internal/config"
	"github.com/rchejfec/passive-policy-intelligence/internal/database"
)

// Result holds the results of a digest run.
type Result struct {
	DigestID   int64
	Items      int
	Candidates int
	Sent       bool
	Skipped    string // non-empty when the run produced nothing to send
}

// Engine selects digest content and delivers it to a Teams webhook.
type Engine struct {
	db     *database.DB
	cfg    config.Digest
	client *http.Client
	now    func() time.Time
}

// NewEngine creates a new digest engine.
func NewEngine(db *database.DB, cfg config.Digest) *Engine {
	return &Engine{
		db:     db,
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// ShouldRun reports whether the morning delivery window is still open.
func (e *Engine) ShouldRun() bool {
	hour := e.now().Hour()
	if hour >= e.cfg.MorningCutoff {
		log.Printf("Skipping digest: current hour is %d, cutoff is %d", hour, e.cfg.MorningCutoff)
		return false
	}
	return true
}

// Preview builds the digest without sending or persisting anything.
func (e *Engine) Preview() (string, *Result, error) {
	sections, candidates, err := e.build()
	if err != nil {
		return "", nil, err
	}
	result := &Result{Items: ItemCount(sections), Candidates: candidates}
	if result.Items == 0 {
		result.Skipped = "no items selected"
		return "", result, nil
	}
	return RenderMarkdown(sections, candidates, e.now()), result, nil
}

// Deliver builds the digest, posts it to the webhook, and on success
// persists the digest row and stamps the selected articles as sent.
func (e *Engine) Deliver(force bool) (*Result, error) {
	if !force && !e.ShouldRun() {
		return &Result{Skipped: "outside morning window"}, nil
	}

	sections, candidates, err := e.build()
	if err != nil {
		return nil, err
	}
	result := &Result{Items: ItemCount(sections), Candidates: candidates}
	if result.Items == 0 {
		log.Println("No articles selected for digest")
		result.Skipped = "no items selected"
		return result, nil
	}

	webhookURL := os.Getenv(e.cfg.WebhookURLEnv)
	if webhookURL == "" {
		return nil, fmt.Errorf("%s not set", e.cfg.WebhookURLEnv)
	}

	now := e.now()
	if err := e.postCard(webhookURL, RenderCard(sections, candidates, now)); err != nil {
		return nil, fmt.Errorf("sending digest: %w", err)
	}
	log.Println("Digest sent to Teams")

	body := RenderMarkdown(sections, candidates, now)
	digestID, err := e.db.InsertDigest(body, result.Items, candidates)
	if err != nil {
		return nil, fmt.Errorf("storing digest: %w", err)
	}

	var articleIDs []int64
	for _, section := range sections {
		for _, item := range section.Items {
			articleIDs = append(articleIDs, item.ArticleID)
		}
	}
	if err := e.db.MarkDigestSent(digestID, articleIDs); err != nil {
		return nil, fmt.Errorf("marking digest sent: %w", err)
	}
	log.Printf("Marked %d articles as sent", len(articleIDs))

	result.DigestID = digestID
	result.Sent = true
	return result, nil
}

// build runs selection: candidates, aggregation, scope filter, packing.
func (e *Engine) build() ([]Section, int, error) {
	rows, err := e.db.GetDigestCandidates(e.cfg.LookbackHours, e.cfg.MinScore)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching candidates: %w", err)
	}

	items := Aggregate(rows)
	filtered := FilterByScope(items, e.cfg.Scope)
	sections := SelectContent(filtered, e.cfg)
	return sections, len(items), nil
}

func (e *Engine) postCard(webhookURL string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling card: %w", err)
	}

	resp, err := e.client.Post(webhookURL, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
