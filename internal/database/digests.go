package database

import "database/sql"

// InsertDigest stores a generated digest and returns its ID.
func (db *DB) InsertDigest(bodyMarkdown string, itemCount, candidateCount int) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO digests (body_markdown, item_count, candidate_count) VALUES (?, ?, ?)",
		bodyMarkdown, itemCount, candidateCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetDigest returns a single digest by ID, or nil if it does not exist.
func (db *DB) GetDigest(digestID int64) (*Digest, error) {
	row := db.conn.QueryRow(
		"SELECT id, body_markdown, item_count, candidate_count, generated_at, sent_at FROM digests WHERE id = ?",
		digestID,
	)
	var d Digest
	err := row.Scan(&d.ID, &d.BodyMarkdown, &d.ItemCount, &d.CandidateCount, &d.GeneratedAt, &d.SentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetAllDigests returns every digest, newest first.
func (db *DB) GetAllDigests() ([]Digest, error) {
	rows, err := db.conn.Query(
		"SELECT id, body_markdown, item_count, candidate_count, generated_at, sent_at FROM digests ORDER BY id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var digests []Digest
	for rows.Next() {
		var d Digest
		if err := rows.Scan(&d.ID, &d.BodyMarkdown, &d.ItemCount, &d.CandidateCount, &d.GeneratedAt, &d.SentAt); err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	return digests, rows.Err()
}

// MarkDigestSent stamps a digest as delivered and marks its articles so
// they are not selected again, in one transaction.
func (db *DB) MarkDigestSent(digestID int64, articleIDs []int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE digests SET sent_at = datetime('now') WHERE id = ?", digestID); err != nil {
		return err
	}
	for _, id := range articleIDs {
		if _, err := tx.Exec("UPDATE articles SET newsletter_sent_at = datetime('now') WHERE id = ?", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
