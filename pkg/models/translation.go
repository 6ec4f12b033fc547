package models

import "time"

// TranslationCache stores one translated string, keyed by
// sha256(source_lang|target_lang|source_text).
type TranslationCache struct {
	Key            string    `json:"key" db:"key"`
	SourceLang     string    `json:"source_lang" db:"source_lang"`
	TargetLang     string    `json:"target_lang" db:"target_lang"`
	SourceText     string    `json:"source_text" db:"source_text"`
	TranslatedText string    `json:"translated_text" db:"translated_text"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// CardTranslation links a card to a cached translation of its answer.
type CardTranslation struct {
	CardID    string    `json:"card_id" db:"card_id"`
	CacheKey  string    `json:"cache_key" db:"cache_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
