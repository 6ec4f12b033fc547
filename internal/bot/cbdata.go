package bot

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Inline-button payloads must fit Telegram's 64-byte callback_data limit, so
// row UUIDs travel as 22-character unpadded URL-safe base64.

const (
	cbKindMore = "m"
	cbKindBad  = "f"
)

func packUUID(id string) string {
	uid, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return base64.RawURLEncoding.EncodeToString(uid[:])
}

func unpackUUID(packed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(packed)
	if err != nil {
		return "", fmt.Errorf("bad packed id %q: %w", packed, err)
	}
	uid, err := uuid.FromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("bad packed id %q: %w", packed, err)
	}
	return uid.String(), nil
}

// parseID accepts either a canonical UUID or its packed form.
func parseID(value string) (string, error) {
	if strings.Contains(value, "-") {
		uid, err := uuid.Parse(value)
		if err == nil {
			return uid.String(), nil
		}
	}
	return unpackUUID(value)
}

func callbackData(kind, id string) string {
	return kind + ":" + packUUID(id)
}

func parseCallback(data string) (kind, id string, err error) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("malformed callback data %q", data)
	}
	id, err = parseID(parts[1])
	if err != nil {
		return "", "", err
	}
	return parts[0], id, nil
}
