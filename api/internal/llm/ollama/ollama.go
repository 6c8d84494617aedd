package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"explain-proxy/api/internal/prompt"

	api "github.com/ollama/ollama/api"
)

type Engine struct {
	Model  string
	client *api.Client
}

func New(host, model string) (*Engine, error) {
	if strings.TrimSpace(host) == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	return &Engine{
		Model: strings.TrimSpace(model),
		// no client timeout, ctx carries the deadline
		client: api.NewClient(u, &http.Client{}),
	}, nil
}

func (e *Engine) Name() string     { return "ollama" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Explain(ctx context.Context, in prompt.Assembled) (string, error) {
	req, err := buildRequest(e.Model, in)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	if err := e.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama: generate: %w", err)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("ollama: empty response")
	}
	return text.String(), nil
}

func buildRequest(model string, in prompt.Assembled) (*api.GenerateRequest, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		System: prompt.SystemInstruction,
		Prompt: in.Text,
		Stream: &stream,
	}
	if in.Part != nil {
		if !strings.HasPrefix(strings.ToLower(in.Part.MIMEType), "image/") {
			return nil, fmt.Errorf("ollama: attachment type %q is not supported", in.Part.MIMEType)
		}
		data, err := in.Part.Bytes()
		if err != nil {
			return nil, fmt.Errorf("ollama: bad base64 part: %w", err)
		}
		req.Images = []api.ImageData{data}
	}
	return req, nil
}
