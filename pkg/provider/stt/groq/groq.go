// Package groq provides an STT provider backed by the Groq-hosted Whisper
// transcription endpoint (OpenAI-compatible audio API).
package groq

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/speakingzone/examiner/pkg/provider/stt"
)

const (
	// DefaultBaseURL is the Groq OpenAI-compatible endpoint root.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	defaultModel   = "whisper-large-v3"
	defaultTimeout = 60 * time.Second
)

// Compile-time interface assertion.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the Whisper model identifier. Defaults to whisper-large-v3.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL overrides the default Groq API base URL. Useful for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 60 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.timeout = d
	}
}

// Provider implements stt.Provider against the Groq audio transcription API.
type Provider struct {
	model   string
	baseURL string
	timeout time.Duration
	client  oai.Client
}

// New creates a Groq Whisper Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq: apiKey must not be empty")
	}
	p := &Provider{
		model:   defaultModel,
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	p.client = oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: p.timeout}),
	)
	return p, nil
}

// Transcribe implements stt.Provider. The file at path must be a WAV
// container; the backend rejects raw PCM.
func (p *Provider) Transcribe(ctx context.Context, path string, language string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("groq: open audio file: %w", err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:  f,
		Model: oai.AudioModel(p.model),
	}
	if language != "" {
		params.Language = oai.String(language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("groq: transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
