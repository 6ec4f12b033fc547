// Package translate attaches a cached secondary-language line to cards.
// Translations are fetched once per distinct (source, target, text) triple
// and stored in the shared cache table; cards link to cache rows by key.
package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/example/listenbot/pkg/models"
)

// Translator produces the target-language rendering of a text.
type Translator interface {
	Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error)
}

// Cache is the storage slice the service uses.
type Cache interface {
	GetCached(ctx context.Context, key string) (*models.TranslationCache, error)
	PutCached(ctx context.Context, entry *models.TranslationCache) error
	LinkCard(ctx context.Context, cardID, cacheKey string) error
	ForCard(ctx context.Context, cardID string) (string, error)
}

// CacheKey derives the cache row key for a translation request. The text is
// trimmed first so whitespace variants of the same line share an entry.
func CacheKey(sourceLang, targetLang, text string) string {
	norm := strings.TrimSpace(text)
	sum := sha256.Sum256([]byte(sourceLang + "|" + targetLang + "|" + norm))
	return hex.EncodeToString(sum[:])
}

// Service is the cache-backed translation collaborator.
type Service struct {
	translator Translator
	cache      Cache
	enabled    bool
	sourceLang string
	targetLang string
}

// NewService wires a service. A nil translator or enabled=false makes every
// call a cache-only lookup.
func NewService(translator Translator, cache Cache, enabled bool, sourceLang, targetLang string) *Service {
	return &Service{
		translator: translator,
		cache:      cache,
		enabled:    enabled,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// EnsureCached returns the cache key for a text, translating and storing on
// a miss. Returns "" when translation is disabled, the text is empty, or the
// provider could not produce a result.
func (s *Service) EnsureCached(ctx context.Context, text string) (string, error) {
	if !s.enabled || s.translator == nil {
		return "", nil
	}
	src := strings.TrimSpace(text)
	if src == "" {
		return "", nil
	}

	key := CacheKey(s.sourceLang, s.targetLang, src)
	existing, err := s.cache.GetCached(ctx, key)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.Key, nil
	}

	translated, err := s.translator.Translate(ctx, s.sourceLang, s.targetLang, src)
	if err != nil {
		return "", fmt.Errorf("failed to translate: %w", err)
	}
	if translated == "" {
		return "", nil
	}

	entry := &models.TranslationCache{
		Key:            key,
		SourceLang:     s.sourceLang,
		TargetLang:     s.targetLang,
		SourceText:     src,
		TranslatedText: translated,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.cache.PutCached(ctx, entry); err != nil {
		return "", err
	}
	return key, nil
}

// AttachToCard translates a card's answer line and links the card to the
// cache row. A failed or disabled translation leaves the card unlinked.
func (s *Service) AttachToCard(ctx context.Context, cardID, text string) error {
	key, err := s.EnsureCached(ctx, text)
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	return s.cache.LinkCard(ctx, cardID, key)
}

// ForCard returns the stored secondary-language line for a card, or "".
func (s *Service) ForCard(ctx context.Context, cardID string) (string, error) {
	return s.cache.ForCard(ctx, cardID)
}
