// Package translate provides a machine-translation provider backed by the
// public Google Translate web endpoint, plus helpers for fetching spoken
// pronunciations of translated text.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	translateEndpoint = "https://translate.googleapis.com/translate_a/single"
	ttsEndpoint       = "https://translate.google.com/translate_tts"

	defaultTimeout = 20 * time.Second
)

// Provider is the translation contract consumed by the dictionary service.
type Provider interface {
	// Translate converts text from the source to the target language code
	// (e.g. "uz" → "en"). An empty result with nil error means the backend
	// produced nothing useful.
	Translate(ctx context.Context, text, from, to string) (string, error)

	// FetchSpeech downloads an MP3 pronunciation of text in the given
	// language and returns the raw bytes.
	FetchSpeech(ctx context.Context, text, lang string) ([]byte, error)
}

// Compile-time interface assertion.
var _ Provider = (*Google)(nil)

// Option is a functional option for configuring a [Google] provider.
type Option func(*Google)

// WithTimeout sets the per-request HTTP timeout. Defaults to 20 s.
func WithTimeout(d time.Duration) Option {
	return func(g *Google) {
		g.client.Timeout = d
	}
}

// WithBaseURLs overrides the translate and TTS endpoints. Useful for tests.
func WithBaseURLs(translateURL, ttsURL string) Option {
	return func(g *Google) {
		g.translateURL = translateURL
		g.ttsURL = ttsURL
	}
}

// Google implements [Provider] against the unauthenticated "gtx" web client
// API. It is safe for concurrent use.
type Google struct {
	client       *http.Client
	translateURL string
	ttsURL       string
}

// New creates a Google translation provider.
func New(opts ...Option) *Google {
	g := &Google{
		client:       &http.Client{Timeout: defaultTimeout},
		translateURL: translateEndpoint,
		ttsURL:       ttsEndpoint,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Translate implements [Provider]. The gtx response is a nested JSON array
// whose first element lists translated chunks; the chunks are concatenated in
// order.
func (g *Google) Translate(ctx context.Context, text, from, to string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.translateURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("translate: create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: GET translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate: translate returned status %d", resp.StatusCode)
	}

	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if len(payload) == 0 {
		return "", nil
	}

	// payload[0] is a list of [translatedChunk, sourceChunk, ...] entries.
	var chunks [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &chunks); err != nil {
		return "", fmt.Errorf("translate: decode chunk list: %w", err)
	}

	var b strings.Builder
	for _, chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(chunk[0], &s); err != nil {
			continue
		}
		b.WriteString(s)
	}
	return strings.TrimSpace(b.String()), nil
}

// FetchSpeech implements [Provider] using the translate_tts endpoint with the
// "tw-ob" web client identifier.
func (g *Google) FetchSpeech(ctx context.Context, text, lang string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", lang)
	params.Set("client", "tw-ob")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.ttsURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("translate: create tts request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("translate: GET tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("translate: tts returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("translate: read tts response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("translate: empty tts response")
	}
	return data, nil
}
