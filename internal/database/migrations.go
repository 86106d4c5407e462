package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    category TEXT NOT NULL,
    feed_url TEXT,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL REFERENCES sources(id),
    title TEXT NOT NULL,
    link TEXT UNIQUE NOT NULL,
    summary TEXT,
    published_date TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    indexed_at TEXT,
    analyzed_at TEXT,
    enrichment_processed_at TEXT,
    is_org_highlight INTEGER DEFAULT 0,
    newsletter_sent_at TEXT
);

CREATE TABLE IF NOT EXISTS article_chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL REFERENCES articles(id),
    chunk_index INTEGER NOT NULL,
    embedding BLOB NOT NULL,
    UNIQUE (article_id, chunk_index)
);

CREATE TABLE IF NOT EXISTS tags (
    name TEXT PRIMARY KEY,
    embedding BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS kb_documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_location TEXT UNIQUE NOT NULL,
    source_type TEXT NOT NULL,
    program_tag TEXT,
    title TEXT
);

CREATE TABLE IF NOT EXISTS kb_chunks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_location TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    embedding BLOB NOT NULL,
    UNIQUE (source_location, chunk_index)
);

CREATE TABLE IF NOT EXISTS semantic_anchors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    description TEXT,
    author TEXT,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS anchor_components (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    anchor_id INTEGER NOT NULL REFERENCES semantic_anchors(id),
    component_type TEXT NOT NULL CHECK(component_type IN ('tag', 'program', 'kb_item')),
    component_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS article_anchor_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    article_id INTEGER NOT NULL REFERENCES articles(id),
    anchor_id INTEGER NOT NULL REFERENCES semantic_anchors(id),
    similarity_score REAL NOT NULL,
    is_anchor_highlight INTEGER,
    created_at TEXT DEFAULT (datetime('now')),
    UNIQUE (article_id, anchor_id)
);

CREATE TABLE IF NOT EXISTS digests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    body_markdown TEXT NOT NULL,
    item_count INTEGER DEFAULT 0,
    candidate_count INTEGER DEFAULT 0,
    generated_at TEXT DEFAULT (datetime('now')),
    sent_at TEXT
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT DEFAULT (datetime('now')),
    ended_at TEXT,
    status TEXT NOT NULL DEFAULT 'RUNNING',
    articles_fetched INTEGER DEFAULT 0,
    articles_indexed INTEGER DEFAULT 0,
    articles_analyzed INTEGER DEFAULT 0,
    highlights_found INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source_id);
CREATE INDEX IF NOT EXISTS idx_articles_link ON articles(link);
CREATE INDEX IF NOT EXISTS idx_article_chunks_article ON article_chunks(article_id);
CREATE INDEX IF NOT EXISTS idx_kb_chunks_location ON kb_chunks(source_location);
CREATE INDEX IF NOT EXISTS idx_anchor_components_anchor ON anchor_components(anchor_id);
CREATE INDEX IF NOT EXISTS idx_links_article ON article_anchor_links(article_id);
CREATE INDEX IF NOT EXISTS idx_links_anchor ON article_anchor_links(anchor_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
