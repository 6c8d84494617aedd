package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"explain-proxy/api/internal/prompt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Engine struct {
	APIKey    string
	Model     string
	MaxTokens int
	client    sdk.Client
}

func New(key, model string, maxTokens int) *Engine {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Engine{
		APIKey:    strings.TrimSpace(key),
		Model:     strings.TrimSpace(model),
		MaxTokens: maxTokens,
		client:    sdk.NewClient(option.WithAPIKey(strings.TrimSpace(key))),
	}
}

func (e *Engine) Name() string     { return "anthropic" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Explain(ctx context.Context, in prompt.Assembled) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("ANTHROPIC_API_KEY is empty")
	}
	blocks, err := buildBlocks(in)
	if err != nil {
		return "", err
	}

	msg, err := e.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(e.Model),
		MaxTokens: int64(e.MaxTokens),
		System:    []sdk.TextBlockParam{{Text: prompt.SystemInstruction}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: messages: %w", err)
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(sdk.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return b.String(), nil
}

func buildBlocks(in prompt.Assembled) ([]sdk.ContentBlockParamUnion, error) {
	blocks := make([]sdk.ContentBlockParamUnion, 0, 2)
	if in.Part != nil {
		mt := strings.ToLower(in.Part.MIMEType)
		switch {
		case mt == "application/pdf":
			blocks = append(blocks, sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: in.Part.Data}))
		case isAnthropicImageMIME(mt):
			blocks = append(blocks, sdk.NewImageBlockBase64(mt, in.Part.Data))
		default:
			return nil, fmt.Errorf("anthropic: attachment type %q is not supported", in.Part.MIMEType)
		}
	}
	if in.Text != "" {
		blocks = append(blocks, sdk.NewTextBlock(in.Text))
	}
	if len(blocks) == 0 {
		return nil, errors.New("anthropic: nothing to send")
	}
	return blocks, nil
}

func isAnthropicImageMIME(m string) bool {
	switch m {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}
