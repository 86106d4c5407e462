package database

import "database/sql"

// StartRun opens a pipeline run record and returns its ID.
func (db *DB) StartRun() (int64, error) {
	result, err := db.conn.Exec("INSERT INTO pipeline_runs DEFAULT VALUES")
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// EndRun closes a pipeline run with its final status and counters.
func (db *DB) EndRun(runID int64, status string, fetched, indexed, analyzed, highlights int) error {
	_, err := db.conn.Exec(
		`UPDATE pipeline_runs SET ended_at = datetime('now'), status = ?,
			articles_fetched = ?, articles_indexed = ?, articles_analyzed = ?, highlights_found = ?
		WHERE id = ?`,
		status, fetched, indexed, analyzed, highlights, runID,
	)
	return err
}

// GetLastRun returns the most recent pipeline run, or nil if none exist.
func (db *DB) GetLastRun() (*PipelineRun, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, ended_at, status, articles_fetched, articles_indexed, articles_analyzed, highlights_found
		FROM pipeline_runs ORDER BY id DESC LIMIT 1`,
	)
	var r PipelineRun
	err := row.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Status,
		&r.ArticlesFetched, &r.ArticlesIndexed, &r.ArticlesAnalyzed, &r.HighlightsFound)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetStats returns counters for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM sources WHERE is_active = 1", &s.ActiveSources},
		{"SELECT COUNT(*) FROM articles", &s.TotalArticles},
		{"SELECT COUNT(*) FROM articles WHERE indexed_at IS NULL", &s.UnindexedArticles},
		{"SELECT COUNT(*) FROM articles WHERE indexed_at IS NOT NULL AND analyzed_at IS NULL", &s.UnanalyzedArticles},
		{"SELECT COUNT(*) FROM articles WHERE analyzed_at IS NOT NULL AND enrichment_processed_at IS NULL", &s.UnenrichedArticles},
		{"SELECT COUNT(*) FROM articles WHERE is_org_highlight = 1", &s.OrgHighlights},
		{"SELECT COUNT(*) FROM semantic_anchors WHERE is_active = 1", &s.ActiveAnchors},
		{"SELECT COUNT(*) FROM article_anchor_links", &s.TotalMatches},
		{"SELECT COUNT(*) FROM digests", &s.TotalDigests},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
