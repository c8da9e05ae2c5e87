// Package textgen provides text-generation clients for advisory
// content. The pipeline treats generation as an opaque external
// collaborator: structured prompt in, free text out, failure and empty
// output both handled by the caller.
package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/opensource-finance/harrier/internal/domain"
)

// GeminiGenerator generates advisory text through the Gemini API.
type GeminiGenerator struct {
	model   string
	apiKey  string
	timeout time.Duration
}

// NewGeminiGenerator creates a Gemini-backed generator. A missing API
// key is ErrConfigurationMissing, reported before any network call.
func NewGeminiGenerator(cfg domain.TextGenConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key", domain.ErrConfigurationMissing)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiGenerator{model: model, apiKey: cfg.APIKey, timeout: timeout}, nil
}

// Generate sends the prompt to Gemini with a deadline and returns the
// response text. An empty response is an error; the caller decides how
// to degrade.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: create genai client: %v", domain.ErrExternalService, err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", domain.ErrExternalService, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", domain.ErrExternalService)
	}
	return text, nil
}
