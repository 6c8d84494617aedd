package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"explain-proxy/api/internal/apperr"
	"explain-proxy/api/internal/llm"
	"explain-proxy/api/internal/prompt"
)

const DefaultTimeout = 60 * time.Second

// Result is the explanation produced for one request.
type Result struct {
	Text string
}

// Gateway calls the configured engine once per request and normalizes its failures.
type Gateway struct {
	engine  llm.Engine
	timeout time.Duration
}

func New(engine llm.Engine, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{engine: engine, timeout: timeout}
}

func (g *Gateway) EngineName() string { return g.engine.Name() }
func (g *Gateway) Model() string      { return g.engine.GetModel() }

// Explain performs a single attempt. Every failure, timeout and blank output included, wraps apperr.ErrGeneration.
// The returned text is not post-processed.
func (g *Gateway) Explain(ctx context.Context, in prompt.Assembled) (res Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("%w: %s: panic: %v", apperr.ErrGeneration, g.engine.Name(), r)
		}
	}()

	txt, err := g.engine.Explain(ctx, in)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", apperr.ErrGeneration, g.engine.Name(), err)
	}
	if strings.TrimSpace(txt) == "" {
		return Result{}, fmt.Errorf("%w: %s: empty explanation", apperr.ErrGeneration, g.engine.Name())
	}
	return Result{Text: txt}, nil
}
