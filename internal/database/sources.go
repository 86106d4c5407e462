package database

import "database/sql"

// InsertSource creates a new source. Returns the ID on success, 0 if a
// source with the same name already exists.
func (db *DB) InsertSource(name, category string, feedURL *string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO sources (name, category, feed_url) VALUES (?, ?, ?)",
		name, category, feedURL,
	)
	if err != nil {
		// Duplicate name constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetAllSources returns all sources ordered by name.
func (db *DB) GetAllSources() ([]Source, error) {
	return db.querySources("SELECT id, name, category, feed_url, is_active, created_at FROM sources ORDER BY name")
}

// GetActiveSources returns sources with a feed URL that are active.
func (db *DB) GetActiveSources() ([]Source, error) {
	return db.querySources(
		"SELECT id, name, category, feed_url, is_active, created_at FROM sources WHERE is_active = 1 AND feed_url IS NOT NULL ORDER BY name",
	)
}

// GetSource returns a single source by ID.
func (db *DB) GetSource(sourceID int64) (*Source, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, category, feed_url, is_active, created_at FROM sources WHERE id = ?", sourceID,
	)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ToggleSource flips a source's active flag.
func (db *DB) ToggleSource(sourceID int64) error {
	_, err := db.conn.Exec("UPDATE sources SET is_active = NOT is_active WHERE id = ?", sourceID)
	return err
}

func (db *DB) querySources(query string, args ...any) ([]Source, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		var active int
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.FeedURL, &active, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.IsActive = active != 0
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func scanSource(row *sql.Row) (*Source, error) {
	var s Source
	var active int
	if err := row.Scan(&s.ID, &s.Name, &s.Category, &s.FeedURL, &active, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.IsActive = active != 0
	return &s, nil
}
