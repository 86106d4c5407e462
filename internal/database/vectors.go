package database

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
)

// Embeddings are stored as little-endian float32 blobs, four bytes per
// dimension, so rows stay compatible with external indexers that write the
// same format.

// EncodeVector packs a vector into its blob representation.
func EncodeVector(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(x)))
	}
	return buf
}

// DecodeVector unpacks a blob back into a vector.
func DecodeVector(blob []byte) ([]float64, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float64, len(blob)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:])))
	}
	return v, nil
}

// InsertArticleChunks stores the chunk embeddings for an article in one
// transaction, replacing any previous chunks.
func (db *DB) InsertArticleChunks(articleID int64, embeddings [][]float64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM article_chunks WHERE article_id = ?", articleID); err != nil {
		return err
	}
	for i, e := range embeddings {
		if _, err := tx.Exec(
			"INSERT INTO article_chunks (article_id, chunk_index, embedding) VALUES (?, ?, ?)",
			articleID, i, EncodeVector(e),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetArticleVectors returns the chunk embeddings for an article in chunk order.
func (db *DB) GetArticleVectors(articleID int64) ([][]float64, error) {
	rows, err := db.conn.Query(
		"SELECT embedding FROM article_chunks WHERE article_id = ? ORDER BY chunk_index", articleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVectors(rows)
}

// UpsertTag stores or replaces a tag embedding.
func (db *DB) UpsertTag(name string, embedding []float64) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO tags (name, embedding) VALUES (?, ?)",
		name, EncodeVector(embedding),
	)
	return err
}

// GetTagVector returns a tag's embedding, or nil if the tag is unknown.
func (db *DB) GetTagVector(name string) ([]float64, error) {
	var blob []byte
	err := db.conn.QueryRow("SELECT embedding FROM tags WHERE name = ?", name).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return DecodeVector(blob)
}

// InsertKBDocument registers a knowledge-base document. Returns 0 if the
// source location is already registered; any other failure propagates.
func (db *DB) InsertKBDocument(sourceLocation, sourceType string, programTag, title *string) (int64, error) {
	var existing int64
	err := db.conn.QueryRow(
		"SELECT id FROM kb_documents WHERE source_location = ?", sourceLocation,
	).Scan(&existing)
	if err == nil {
		return 0, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := db.conn.Exec(
		"INSERT INTO kb_documents (source_location, source_type, program_tag, title) VALUES (?, ?, ?, ?)",
		sourceLocation, sourceType, programTag, title,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertKBChunks stores chunk embeddings for a knowledge-base document,
// replacing any previous chunks for the same location.
func (db *DB) InsertKBChunks(sourceLocation string, embeddings [][]float64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM kb_chunks WHERE source_location = ?", sourceLocation); err != nil {
		return err
	}
	for i, e := range embeddings {
		if _, err := tx.Exec(
			"INSERT INTO kb_chunks (source_location, chunk_index, embedding) VALUES (?, ?, ?)",
			sourceLocation, i, EncodeVector(e),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetKBVectors returns the chunk embeddings stored under a source location.
func (db *DB) GetKBVectors(sourceLocation string) ([][]float64, error) {
	rows, err := db.conn.Query(
		"SELECT embedding FROM kb_chunks WHERE source_location = ? ORDER BY chunk_index", sourceLocation,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVectors(rows)
}

// GetProgramCharterLocation resolves a program tag to its charter document
// location. Returns "" if the program has no charter registered.
func (db *DB) GetProgramCharterLocation(programTag string) (string, error) {
	var location string
	err := db.conn.QueryRow(
		"SELECT source_location FROM kb_documents WHERE source_type = 'program_charter' AND program_tag = ?",
		programTag,
	).Scan(&location)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return location, nil
}

func scanVectors(rows *sql.Rows) ([][]float64, error) {
	var vectors [][]float64
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		v, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}
