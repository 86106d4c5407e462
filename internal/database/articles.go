package database

import "database/sql"

const articleColumns = `id, source_id, title, link, summary, published_date, created_at,
	indexed_at, analyzed_at, enrichment_processed_at, is_org_highlight, newsletter_sent_at`

// InsertArticle inserts an article. Returns the ID on success, 0 if the
// link already exists.
func (db *DB) InsertArticle(sourceID int64, title, link string, summary, publishedDate *string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO articles (source_id, title, link, summary, published_date)
		VALUES (?, ?, ?, ?, ?)`,
		sourceID, title, link, summary, publishedDate,
	)
	if err != nil {
		// Duplicate link constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetArticleByID returns a single article by ID.
func (db *DB) GetArticleByID(articleID int64) (*Article, error) {
	row := db.conn.QueryRow(
		"SELECT "+articleColumns+" FROM articles WHERE id = ?", articleID,
	)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetArticlesNeedingContent returns unindexed articles whose summary is
// missing or shorter than minLen characters.
func (db *DB) GetArticlesNeedingContent(minLen int) ([]Article, error) {
	rows, err := db.conn.Query(
		`SELECT `+articleColumns+` FROM articles
		WHERE indexed_at IS NULL AND (summary IS NULL OR length(summary) < ?)
		ORDER BY id`, minLen,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// UpdateArticleSummary replaces an article's summary text.
func (db *DB) UpdateArticleSummary(articleID int64, summary string) error {
	_, err := db.conn.Exec("UPDATE articles SET summary = ? WHERE id = ?", summary, articleID)
	return err
}

// GetUnindexedArticles returns up to limit articles that have no chunk
// embeddings yet.
func (db *DB) GetUnindexedArticles(limit int) ([]Article, error) {
	rows, err := db.conn.Query(
		"SELECT "+articleColumns+" FROM articles WHERE indexed_at IS NULL ORDER BY id LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// MarkArticleIndexed stamps an article as indexed.
func (db *DB) MarkArticleIndexed(articleID int64) error {
	_, err := db.conn.Exec("UPDATE articles SET indexed_at = datetime('now') WHERE id = ?", articleID)
	return err
}

// UnanalyzedArticle pairs an article with its source category for scoring.
type UnanalyzedArticle struct {
	ID             int64
	Title          string
	SourceCategory string
}

// GetUnanalyzedArticles returns up to limit indexed articles that have not
// been scored against the anchors yet.
func (db *DB) GetUnanalyzedArticles(limit int) ([]UnanalyzedArticle, error) {
	rows, err := db.conn.Query(
		`SELECT a.id, a.title, s.category
		FROM articles a JOIN sources s ON a.source_id = s.id
		WHERE a.indexed_at IS NOT NULL AND a.analyzed_at IS NULL
		ORDER BY a.id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []UnanalyzedArticle
	for rows.Next() {
		var a UnanalyzedArticle
		if err := rows.Scan(&a.ID, &a.Title, &a.SourceCategory); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ResetAnalysis deletes all match records and clears analyzed_at so every
// article is rescored on the next pass.
func (db *DB) ResetAnalysis() (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM article_anchor_links"); err != nil {
		return 0, err
	}
	result, err := tx.Exec("UPDATE articles SET analyzed_at = NULL WHERE analyzed_at IS NOT NULL")
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()
	return n, tx.Commit()
}

// ResetEnrichment clears enrichment flags and timestamps so articles can be
// reclassified. A limit of 0 resets everything; otherwise the oldest
// `limit` enriched articles starting at `offset` are reset (ordered by ID
// for predictability).
func (db *DB) ResetEnrichment(limit, offset int) (int64, error) {
	query := `UPDATE articles SET enrichment_processed_at = NULL, is_org_highlight = 0
		WHERE id IN (SELECT id FROM articles WHERE enrichment_processed_at IS NOT NULL ORDER BY id`
	var args []any
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	query += ")"

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := result.RowsAffected()

	// Match flags for the reset articles go back to unclassified.
	clearFlags := `UPDATE article_anchor_links SET is_anchor_highlight = NULL
		WHERE article_id IN (SELECT id FROM articles WHERE enrichment_processed_at IS NULL)`
	if _, err := tx.Exec(clearFlags); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// ResetSent clears newsletter_sent_at for all articles so they become
// digest candidates again.
func (db *DB) ResetSent() (int64, error) {
	result, err := db.conn.Exec("UPDATE articles SET newsletter_sent_at = NULL WHERE newsletter_sent_at IS NOT NULL")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		var highlight int
		if err := rows.Scan(&a.ID, &a.SourceID, &a.Title, &a.Link, &a.Summary, &a.PublishedDate,
			&a.CreatedAt, &a.IndexedAt, &a.AnalyzedAt, &a.EnrichmentProcessedAt,
			&highlight, &a.NewsletterSentAt); err != nil {
			return nil, err
		}
		a.IsOrgHighlight = highlight != 0
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func scanArticle(row *sql.Row) (*Article, error) {
	var a Article
	var highlight int
	if err := row.Scan(&a.ID, &a.SourceID, &a.Title, &a.Link, &a.Summary, &a.PublishedDate,
		&a.CreatedAt, &a.IndexedAt, &a.AnalyzedAt, &a.EnrichmentProcessedAt,
		&highlight, &a.NewsletterSentAt); err != nil {
		return nil, err
	}
	a.IsOrgHighlight = highlight != 0
	return &a, nil
}
