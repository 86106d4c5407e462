package database

import "database/sql"

// InsertAnchor creates a new anchor with its components. Returns the ID on
// success, 0 if an anchor with the same name already exists (active or not;
// names stay unique across soft-deleted anchors).
func (db *DB) InsertAnchor(name, description, author string, components []AnchorComponent) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO semantic_anchors (name, description, author) VALUES (?, ?, ?)",
		name, description, author,
	)
	if err != nil {
		// Duplicate name constraint
		return 0, nil //nolint: nilerr
	}
	anchorID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, c := range components {
		if _, err := tx.Exec(
			"INSERT INTO anchor_components (anchor_id, component_type, component_id) VALUES (?, ?, ?)",
			anchorID, c.Type, c.ComponentID,
		); err != nil {
			return 0, err
		}
	}

	return anchorID, tx.Commit()
}

// GetActiveAnchors returns all active anchors ordered by name.
func (db *DB) GetActiveAnchors() ([]Anchor, error) {
	return db.queryAnchors("SELECT id, name, description, author, is_active, created_at FROM semantic_anchors WHERE is_active = 1 ORDER BY name")
}

// GetAllAnchors returns every anchor, active or not.
func (db *DB) GetAllAnchors() ([]Anchor, error) {
	return db.queryAnchors("SELECT id, name, description, author, is_active, created_at FROM semantic_anchors ORDER BY name")
}

// GetAnchorByName returns an anchor by exact name.
func (db *DB) GetAnchorByName(name string) (*Anchor, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, description, author, is_active, created_at FROM semantic_anchors WHERE name = ?", name,
	)
	a, err := scanAnchor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SetAnchorActive soft-deletes or reactivates an anchor. Historical matches
// stay in place either way.
func (db *DB) SetAnchorActive(anchorID int64, active bool) error {
	_, err := db.conn.Exec("UPDATE semantic_anchors SET is_active = ? WHERE id = ?", boolToInt(active), anchorID)
	return err
}

// DeactivateAllAnchors soft-deletes every active anchor and returns how
// many were affected.
func (db *DB) DeactivateAllAnchors() (int64, error) {
	result, err := db.conn.Exec("UPDATE semantic_anchors SET is_active = 0 WHERE is_active = 1")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetAnchorComponents returns the components of one anchor.
func (db *DB) GetAnchorComponents(anchorID int64) ([]AnchorComponent, error) {
	rows, err := db.conn.Query(
		"SELECT id, anchor_id, component_type, component_id FROM anchor_components WHERE anchor_id = ? ORDER BY id",
		anchorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var components []AnchorComponent
	for rows.Next() {
		var c AnchorComponent
		if err := rows.Scan(&c.ID, &c.AnchorID, &c.Type, &c.ComponentID); err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

func (db *DB) queryAnchors(query string, args ...any) ([]Anchor, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anchors []Anchor
	for rows.Next() {
		var a Anchor
		var active int
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Author, &active, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.IsActive = active != 0
		anchors = append(anchors, a)
	}
	return anchors, rows.Err()
}

func scanAnchor(row *sql.Row) (*Anchor, error) {
	var a Anchor
	var active int
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Author, &active, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.IsActive = active != 0
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
