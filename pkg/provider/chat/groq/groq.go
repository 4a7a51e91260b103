// Package groq provides a chat provider backed by the Groq OpenAI-compatible
// chat-completions API.
package groq

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/speakingzone/examiner/pkg/provider/chat"
)

// DefaultBaseURL is the Groq OpenAI-compatible endpoint root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

const defaultTimeout = 60 * time.Second

// Compile-time interface assertion.
var _ chat.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default Groq API base URL. Useful for tests.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout. Defaults to 60 s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements chat.Provider against the Groq API. The model is chosen
// per request so a single Provider serves the whole fallback chain.
type Provider struct {
	client oai.Client
}

// New constructs a Groq chat Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq: apiKey must not be empty")
	}

	cfg := &config{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(cfg)
	}

	client := oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	)
	return &Provider{client: client}, nil
}

// Complete implements chat.Provider.
func (p *Provider) Complete(ctx context.Context, req chat.Request) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("groq: model must not be empty")
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(req.System),
			oai.UserMessage(req.User),
		},
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("groq: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
