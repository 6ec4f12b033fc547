package bot

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	id := uuid.NewString()
	packed := packUUID(id)
	assert.Len(t, packed, 22)

	got, err := unpackUUID(packed)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	data := callbackData(cbKindBad, uuid.NewString())
	assert.LessOrEqual(t, len(data), 64)
}

func TestParseIDAcceptsBothForms(t *testing.T) {
	id := uuid.NewString()

	got, err := parseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = parseID(packUUID(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseID("not-a-uuid")
	assert.Error(t, err)
}

func TestParseCallback(t *testing.T) {
	id := uuid.NewString()

	kind, got, err := parseCallback(callbackData(cbKindMore, id))
	require.NoError(t, err)
	assert.Equal(t, cbKindMore, kind)
	assert.Equal(t, id, got)

	_, _, err = parseCallback("nocolon")
	assert.Error(t, err)
	_, _, err = parseCallback("m:")
	assert.Error(t, err)
}

func TestParseStartPayload(t *testing.T) {
	token, mode, ok := parseStartPayload("deck_abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, "anki", string(mode))

	token, mode, ok = parseStartPayload("deckw_abc123")
	require.True(t, ok)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, "watch", string(mode))

	_, _, ok = parseStartPayload("deck_")
	assert.False(t, ok)
	_, _, ok = parseStartPayload("garbage")
	assert.False(t, ok)
}
