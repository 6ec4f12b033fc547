package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// GoogleFreeTranslator calls the unofficial no-key Google endpoint. The
// endpoint is undocumented and rate limited, so requests are paced and
// retried with exponential backoff on 429/5xx.
type GoogleFreeTranslator struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewGoogleFreeTranslator creates a paced translator. maxRetries bounds the
// attempts per text; baseDelay/maxDelay shape the backoff curve.
func NewGoogleFreeTranslator(maxRetries int, baseDelay, maxDelay time.Duration) *GoogleFreeTranslator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &GoogleFreeTranslator{
		client:     &http.Client{Timeout: 25 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(150*time.Millisecond), 1),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

// Translate fetches the target-language rendering of text. Returns "" when
// the endpoint answers with something unusable after all retries.
func (t *GoogleFreeTranslator) Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error) {
	reqURL := fmt.Sprintf("%s?client=gtx&sl=%s&tl=%s&dt=t&q=%s",
		googleEndpoint,
		url.QueryEscape(sourceLang),
		url.QueryEscape(targetLang),
		url.QueryEscape(text))

	for attempt := 1; ; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}

		out, retryable, err := t.once(ctx, reqURL)
		if err == nil && out != "" {
			return out, nil
		}
		if err != nil && !retryable {
			return "", err
		}
		if attempt >= t.maxRetries {
			return "", nil
		}

		delay := t.baseDelay << (attempt - 1)
		if delay > t.maxDelay || delay <= 0 {
			delay = t.maxDelay
		}
		delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (t *GoogleFreeTranslator) once(ctx context.Context, reqURL string) (out string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		// network errors are retryable
		return "", true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", true, err
		}
		return parsePayload(body), true, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, fmt.Errorf("translate endpoint returned %d", resp.StatusCode)
	default:
		return "", false, fmt.Errorf("translate endpoint returned %d", resp.StatusCode)
	}
}

// parsePayload walks the endpoint's loosely typed response:
// [[["translated","original",...], ...], ...]
func parsePayload(body []byte) string {
	var payload []interface{}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return ""
	}
	parts, ok := payload[0].([]interface{})
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		seg, ok := p.([]interface{})
		if !ok || len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return strings.TrimSpace(sb.String())
}
