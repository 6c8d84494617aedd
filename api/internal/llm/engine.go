//go:generate go run go.uber.org/mock/mockgen -source=engine.go -destination=../../mocks/mock_engine.go -package=mocks
package llm

import (
	"context"
	"fmt"
	"strings"

	"explain-proxy/api/internal/prompt"
)

// Engine is the narrow contract of a generative text service.
type Engine interface {
	Name() string
	GetModel() string
	Explain(ctx context.Context, in prompt.Assembled) (string, error)
}

type Engines struct {
	Gemini    Engine
	OpenAI    Engine
	Anthropic Engine
	Ollama    Engine
}

// Get resolves a provider name (with the usual aliases) to a configured engine.
func (e *Engines) Get(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini", "google":
		eng = e.Gemini
	case "openai", "gpt":
		eng = e.OpenAI
	case "anthropic", "claude":
		eng = e.Anthropic
	case "ollama":
		eng = e.Ollama
	default:
		return nil, fmt.Errorf("unknown llm provider %q; use gemini | openai | anthropic | ollama", name)
	}
	if eng == nil {
		return nil, fmt.Errorf("llm provider %q is not configured", name)
	}
	return eng, nil
}
