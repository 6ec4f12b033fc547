package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/listenbot/pkg/models"
)

type fakeTranslator struct {
	calls int
	out   string
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, _, _, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

type fakeCache struct {
	entries map[string]*models.TranslationCache
	links   map[string]string // card id -> cache key
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*models.TranslationCache{}, links: map[string]string{}}
}

func (f *fakeCache) GetCached(_ context.Context, key string) (*models.TranslationCache, error) {
	return f.entries[key], nil
}

func (f *fakeCache) PutCached(_ context.Context, entry *models.TranslationCache) error {
	f.entries[entry.Key] = entry
	return nil
}

func (f *fakeCache) LinkCard(_ context.Context, cardID, cacheKey string) error {
	f.links[cardID] = cacheKey
	return nil
}

func (f *fakeCache) ForCard(_ context.Context, cardID string) (string, error) {
	key, ok := f.links[cardID]
	if !ok {
		return "", nil
	}
	return f.entries[key].TranslatedText, nil
}

func TestCacheKeyStableAndTrimmed(t *testing.T) {
	a := CacheKey("en", "uk", "hello world")
	b := CacheKey("en", "uk", "  hello world  ")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, CacheKey("en", "de", "hello world"))
	assert.NotEqual(t, a, CacheKey("en", "uk", "hello there"))
}

func TestEnsureCachedTranslatesOnMiss(t *testing.T) {
	tr := &fakeTranslator{out: "привіт"}
	cache := newFakeCache()
	s := NewService(tr, cache, true, "en", "uk")

	key, err := s.EnsureCached(context.Background(), "hello")
	require.NoError(t, err)
	require.NotEmpty(t, key)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, "привіт", cache.entries[key].TranslatedText)
}

func TestEnsureCachedHitSkipsTranslator(t *testing.T) {
	tr := &fakeTranslator{out: "привіт"}
	cache := newFakeCache()
	s := NewService(tr, cache, true, "en", "uk")

	first, err := s.EnsureCached(context.Background(), "hello")
	require.NoError(t, err)
	second, err := s.EnsureCached(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, tr.calls)
}

func TestEnsureCachedDisabledOrEmpty(t *testing.T) {
	tr := &fakeTranslator{out: "x"}
	cache := newFakeCache()

	disabled := NewService(tr, cache, false, "en", "uk")
	key, err := disabled.EnsureCached(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Equal(t, 0, tr.calls)

	enabled := NewService(tr, cache, true, "en", "uk")
	key, err = enabled.EnsureCached(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Equal(t, 0, tr.calls)
}

func TestAttachToCardLinksAndReads(t *testing.T) {
	tr := &fakeTranslator{out: "привіт"}
	cache := newFakeCache()
	s := NewService(tr, cache, true, "en", "uk")

	require.NoError(t, s.AttachToCard(context.Background(), "card1", "hello"))

	got, err := s.ForCard(context.Background(), "card1")
	require.NoError(t, err)
	assert.Equal(t, "привіт", got)

	// failed translation leaves the card unlinked
	tr.out = ""
	require.NoError(t, s.AttachToCard(context.Background(), "card2", "other text"))
	got, err = s.ForCard(context.Background(), "card2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParsePayload(t *testing.T) {
	body := []byte(`[[["Привіт, ","Hello, ",null,null,10],["світе","world",null,null,10]],null,"en"]`)
	assert.Equal(t, "Привіт, світе", parsePayload(body))

	assert.Equal(t, "", parsePayload([]byte(`not json`)))
	assert.Equal(t, "", parsePayload([]byte(`[]`)))
	assert.Equal(t, "", parsePayload([]byte(`["oops"]`)))
}
