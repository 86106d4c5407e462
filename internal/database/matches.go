package database

import "database/sql"

// InsertMatches writes score rows for a batch of (article, anchor) pairs
// and stamps the articles as analyzed, in one transaction. Rows that would
// duplicate an existing (article, anchor) pair are ignored, never
// double-counted.
func (db *DB) InsertMatches(matches []Match, analyzedArticleIDs []int64) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	inserted := 0
	for _, m := range matches {
		result, err := tx.Exec(
			`INSERT OR IGNORE INTO article_anchor_links (article_id, anchor_id, similarity_score)
			VALUES (?, ?, ?)`,
			m.ArticleID, m.AnchorID, m.Score,
		)
		if err != nil {
			return 0, err
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	for _, id := range analyzedArticleIDs {
		if _, err := tx.Exec("UPDATE articles SET analyzed_at = datetime('now') WHERE id = ?", id); err != nil {
			return 0, err
		}
	}

	return inserted, tx.Commit()
}

// GetMatchesForArticle returns all match rows for one article.
func (db *DB) GetMatchesForArticle(articleID int64) ([]Match, error) {
	rows, err := db.conn.Query(
		`SELECT id, article_id, anchor_id, similarity_score, is_anchor_highlight, created_at
		FROM article_anchor_links WHERE article_id = ? ORDER BY id`, articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var flag sql.NullBool
		if err := rows.Scan(&m.ID, &m.ArticleID, &m.AnchorID, &m.Score, &flag, &m.CreatedAt); err != nil {
			return nil, err
		}
		if flag.Valid {
			v := flag.Bool
			m.HighlightFlag = &v
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetUnenrichedMatches returns match rows of active anchors whose articles
// have been analyzed but not yet classified, joined with the anchor name
// and source category the tier rules need.
func (db *DB) GetUnenrichedMatches() ([]UnenrichedMatch, error) {
	rows, err := db.conn.Query(
		`SELECT aal.id, a.id, sa.name, s.category, aal.similarity_score
		FROM article_anchor_links aal
		JOIN articles a ON a.id = aal.article_id
		JOIN sources s ON a.source_id = s.id
		JOIN semantic_anchors sa ON sa.id = aal.anchor_id
		WHERE a.analyzed_at IS NOT NULL
		  AND a.enrichment_processed_at IS NULL
		  AND sa.is_active = 1
		ORDER BY aal.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []UnenrichedMatch
	for rows.Next() {
		var m UnenrichedMatch
		if err := rows.Scan(&m.LinkID, &m.ArticleID, &m.AnchorName, &m.SourceCategory, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetUnenrichedArticleIDs returns the IDs of analyzed articles not yet
// classified, whether or not they produced any matches.
func (db *DB) GetUnenrichedArticleIDs() ([]int64, error) {
	rows, err := db.conn.Query(
		"SELECT id FROM articles WHERE analyzed_at IS NOT NULL AND enrichment_processed_at IS NULL ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetMatchHistory returns the full historical match population of active
// anchors, for threshold calibration. This is every committed match, not
// just the batch being classified.
func (db *DB) GetMatchHistory() ([]MatchStat, error) {
	rows, err := db.conn.Query(
		`SELECT aal.article_id, sa.name, s.category, aal.similarity_score
		FROM article_anchor_links aal
		JOIN articles a ON a.id = aal.article_id
		JOIN sources s ON a.source_id = s.id
		JOIN semantic_anchors sa ON sa.id = aal.anchor_id
		WHERE sa.is_active = 1`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []MatchStat
	for rows.Next() {
		var st MatchStat
		if err := rows.Scan(&st.ArticleID, &st.AnchorName, &st.SourceCategory, &st.Score); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// ApplyEnrichment persists one classification pass atomically: per-match
// highlight flags, per-article org-highlight flags, and the processed
// timestamp. Any failure rolls the whole pass back so flags and
// timestamps never diverge.
func (db *DB) ApplyEnrichment(matchFlags map[int64]bool, articleFlags map[int64]bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for linkID, highlight := range matchFlags {
		if _, err := tx.Exec(
			"UPDATE article_anchor_links SET is_anchor_highlight = ? WHERE id = ?",
			boolToInt(highlight), linkID,
		); err != nil {
			return err
		}
	}

	for articleID, highlight := range articleFlags {
		if _, err := tx.Exec(
			`UPDATE articles SET is_org_highlight = ?, enrichment_processed_at = datetime('now')
			WHERE id = ?`,
			boolToInt(highlight), articleID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetDigestCandidates returns the (article, anchor) rows eligible for
// digest selection: inside the trailing window, not yet sent, and either
// org-highlighted or scoring at least minScore.
func (db *DB) GetDigestCandidates(lookbackHours int, minScore float64) ([]CandidateRow, error) {
	rows, err := db.conn.Query(
		`SELECT a.id, a.title, a.link, s.name, s.category, sa.name, aal.similarity_score, a.is_org_highlight
		FROM articles a
		JOIN article_anchor_links aal ON a.id = aal.article_id
		JOIN sources s ON a.source_id = s.id
		JOIN semantic_anchors sa ON sa.id = aal.anchor_id
		WHERE a.created_at > datetime('now', '-' || ? || ' hours')
		  AND a.newsletter_sent_at IS NULL
		  AND (a.is_org_highlight = 1 OR aal.similarity_score >= ?)
		ORDER BY aal.similarity_score DESC`,
		lookbackHours, minScore,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []CandidateRow
	for rows.Next() {
		var c CandidateRow
		var highlight int
		if err := rows.Scan(&c.ArticleID, &c.Title, &c.Link, &c.SourceName, &c.SourceCategory,
			&c.AnchorName, &c.Score, &highlight); err != nil {
			return nil, err
		}
		c.IsOrgHighlight = highlight != 0
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
