package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"explain-proxy/api/internal/prompt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Engine struct {
	APIKey      string
	Model       string
	Temperature float32
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       strings.TrimSpace(model),
		Temperature: 0.4,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Explain sends the prompt text and the optional inline blob in a single GenerateContent call.
func (e *Engine) Explain(ctx context.Context, in prompt.Assembled) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	parts, err := buildParts(in)
	if err != nil {
		return "", err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(e.Temperature),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.SystemInstruction)},
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return txt, nil
}

func buildParts(in prompt.Assembled) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, 2)
	if in.Text != "" {
		parts = append(parts, genai.Text(in.Text))
	}
	if in.Part != nil {
		data, err := in.Part.Bytes()
		if err != nil {
			return nil, fmt.Errorf("gemini: bad base64 part: %w", err)
		}
		parts = append(parts, &genai.Blob{MIMEType: in.Part.MIMEType, Data: data})
	}
	if len(parts) == 0 {
		return nil, errors.New("gemini: nothing to send")
	}
	return parts, nil
}

// firstText joins the text parts of the first candidate that has content.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
