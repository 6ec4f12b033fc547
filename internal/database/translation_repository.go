package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/listenbot/pkg/models"
)

// TranslationRepository handles the translation cache tables
type TranslationRepository struct {
	db *sqlx.DB
}

// NewTranslationRepository creates a new repository instance
func NewTranslationRepository(db *sqlx.DB) *TranslationRepository {
	return &TranslationRepository{db: db}
}

// ForCard returns the cached secondary-language line for a card, or "".
func (r *TranslationRepository) ForCard(ctx context.Context, cardID string) (string, error) {
	var text string
	query := r.db.Rebind(`
		SELECT tc.translated_text
		FROM card_translations ct
		JOIN translation_cache tc ON tc.key = ct.cache_key
		WHERE ct.card_id = ?
		LIMIT 1
	`)
	err := r.db.GetContext(ctx, &text, query, cardID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get card translation: %w", err)
	}
	return text, nil
}

// GetCached returns a cache entry, or nil on miss.
func (r *TranslationRepository) GetCached(ctx context.Context, key string) (*models.TranslationCache, error) {
	var entry models.TranslationCache
	query := r.db.Rebind("SELECT * FROM translation_cache WHERE key = ?")
	err := r.db.GetContext(ctx, &entry, query, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached translation: %w", err)
	}
	return &entry, nil
}

// PutCached stores a translation. Concurrent writers of the same key are
// harmless: the content is identical by construction.
func (r *TranslationRepository) PutCached(ctx context.Context, entry *models.TranslationCache) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`
		INSERT INTO translation_cache (key, source_lang, target_lang, source_text, translated_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		entry.Key, entry.SourceLang, entry.TargetLang, entry.SourceText, entry.TranslatedText, entry.CreatedAt)
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to cache translation: %w", err)
	}
	return nil
}

// LinkCard points a card at a cache entry.
func (r *TranslationRepository) LinkCard(ctx context.Context, cardID, cacheKey string) error {
	query := r.db.Rebind("INSERT INTO card_translations (card_id, cache_key, created_at) VALUES (?, ?, ?)")
	_, err := r.db.ExecContext(ctx, query, cardID, cacheKey, time.Now().UTC())
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to link card translation: %w", err)
	}
	return nil
}
