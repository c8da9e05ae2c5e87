package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// StaticGenerator is the offline generator: it echoes the structured
// facts of the prompt back as plain text. Used when no API key is
// configured and as the default in tests.
type StaticGenerator struct{}

// NewStaticGenerator creates the offline generator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// Generate returns a deterministic rendering of the prompt.
func (g *StaticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", domain.ErrExternalService)
	}
	var b strings.Builder
	b.WriteString("Advisory (generated offline):\n\n")
	b.WriteString(prompt)
	return b.String(), nil
}

// New creates a generator from configuration. Provider "gemini" needs
// an API key; anything else falls back to the static generator.
func New(cfg domain.TextGenConfig) (domain.TextGenerator, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiGenerator(cfg)
	case "", "static":
		return NewStaticGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported text generator provider: %s", cfg.Provider)
	}
}
