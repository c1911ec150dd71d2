package db

import "database/sql"

// MigrateUp creates the pipeline's schema if it does not exist. The DDL below
// sticks to the dialect intersection of Postgres and SQLite so both engines
// run the same statements.
func MigrateUp(database *sql.DB) error {
	if _, err := database.Exec(`
CREATE TABLE IF NOT EXISTS feed_sources (
    id              INTEGER PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
    name            TEXT NOT NULL,
    url             TEXT NOT NULL UNIQUE,
    region          TEXT NOT NULL DEFAULT '',
    active          BOOLEAN NOT NULL DEFAULT TRUE,
    failure_count   INTEGER NOT NULL DEFAULT 0,
    last_fetched_at TIMESTAMPTZ,
    quirks          TEXT
)`); err != nil {
		return err
	}

	if _, err := database.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id           INTEGER PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY,
    title        TEXT NOT NULL,
    published_at TIMESTAMPTZ,
    link         TEXT NOT NULL UNIQUE,
    summary      TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL,
    author       TEXT,
    source       TEXT NOT NULL,
    region       TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL,
    slug         TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_sources_active ON feed_sources(active)`,
	}
	for _, idx := range indexes {
		if _, err := database.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateUpSQLite is the SQLite variant of MigrateUp. SQLite lacks the
// identity and timestamptz syntax, so the DDL is restated rather than shared.
func MigrateUpSQLite(database *sql.DB) error {
	if _, err := database.Exec(`
CREATE TABLE IF NOT EXISTS feed_sources (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT NOT NULL,
    url             TEXT NOT NULL UNIQUE,
    region          TEXT NOT NULL DEFAULT '',
    active          BOOLEAN NOT NULL DEFAULT TRUE,
    failure_count   INTEGER NOT NULL DEFAULT 0,
    last_fetched_at TIMESTAMP,
    quirks          TEXT
)`); err != nil {
		return err
	}

	if _, err := database.Exec(`
CREATE TABLE IF NOT EXISTS articles (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    title        TEXT NOT NULL,
    published_at TIMESTAMP,
    link         TEXT NOT NULL UNIQUE,
    summary      TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL,
    author       TEXT,
    source       TEXT NOT NULL,
    region       TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL,
    slug         TEXT NOT NULL,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category)`,
		`CREATE INDEX IF NOT EXISTS idx_feed_sources_active ON feed_sources(active)`,
	}
	for _, idx := range indexes {
		if _, err := database.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
