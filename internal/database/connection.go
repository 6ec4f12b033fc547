package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/listenbot/internal/config"
)

// Connect opens the configured database and applies the schema.
func Connect(cfg *config.Settings) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	switch cfg.DBType {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for postgres")
		}
		db, err = sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	default:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err = sqlx.Connect("sqlite3", cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initializeSchema(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS decks (
			id TEXT PRIMARY KEY,
			admin_tg_id BIGINT NOT NULL,
			title TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			new_per_day INTEGER NOT NULL DEFAULT 10,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			note_guid TEXT NOT NULL,
			answer_text TEXT NOT NULL,
			alt_answers TEXT NOT NULL DEFAULT '[]',
			media_kind TEXT NOT NULL,
			tg_file_id TEXT NOT NULL,
			media_sha256 TEXT NOT NULL,
			is_valid BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(deck_id, note_guid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_media_sha ON cards(media_sha256)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			tg_id BIGINT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			mode TEXT NOT NULL DEFAULT 'anki',
			joined_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, deck_id)
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			state TEXT NOT NULL DEFAULT 'new',
			due_at TIMESTAMP,
			ease REAL NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 0,
			step_index INTEGER NOT NULL DEFAULT 0,
			lapses INTEGER NOT NULL DEFAULT 0,
			last_answer_raw TEXT,
			last_score INTEGER,
			watch_failed BOOLEAN NOT NULL DEFAULT false,
			watch_streak INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, card_id)
		)`,
		`CREATE TABLE IF NOT EXISTS study_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
			study_date TEXT NOT NULL,
			queue TEXT NOT NULL DEFAULT '[]',
			pos INTEGER NOT NULL DEFAULT 0,
			current_card_id TEXT,
			started_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, deck_id, study_date)
		)`,
		`CREATE TABLE IF NOT EXISTS flags (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			reason TEXT NOT NULL DEFAULT 'bad_card',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS translation_cache (
			key TEXT PRIMARY KEY,
			source_lang TEXT NOT NULL,
			target_lang TEXT NOT NULL,
			source_text TEXT NOT NULL,
			translated_text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS card_translations (
			card_id TEXT PRIMARY KEY REFERENCES cards(id) ON DELETE CASCADE,
			cache_key TEXT NOT NULL REFERENCES translation_cache(key) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
