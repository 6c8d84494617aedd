package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"explain-proxy/api/internal/prompt"

	goopenai "github.com/sashabaranov/go-openai"
)

type Engine struct {
	APIKey string
	Model  string
	client *goopenai.Client
}

func New(key, model, baseURL string) *Engine {
	cfg := goopenai.DefaultConfig(strings.TrimSpace(key))
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = u
	}
	cfg.HTTPClient = &http.Client{
		// Timeout=0: the request deadline comes from ctx.
		Timeout: 0,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 120 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   100,
		},
	}
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		client: goopenai.NewClientWithConfig(cfg),
	}
}

func (e *Engine) Name() string     { return "openai" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Explain(ctx context.Context, in prompt.Assembled) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	msgs, err := buildMessages(in)
	if err != nil {
		return "", err
	}

	resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    e.Model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("openai: empty response")
	}
	return out, nil
}

func buildMessages(in prompt.Assembled) ([]goopenai.ChatCompletionMessage, error) {
	system := goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: prompt.SystemInstruction,
	}
	if in.Part == nil {
		return []goopenai.ChatCompletionMessage{system, {
			Role:    goopenai.ChatMessageRoleUser,
			Content: in.Text,
		}}, nil
	}

	if !isOpenAIImageMIME(in.Part.MIMEType) {
		return nil, fmt.Errorf("openai: attachment type %q is not supported", in.Part.MIMEType)
	}
	parts := make([]goopenai.ChatMessagePart, 0, 2)
	if in.Text != "" {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeText,
			Text: in.Text,
		})
	}
	parts = append(parts, goopenai.ChatMessagePart{
		Type: goopenai.ChatMessagePartTypeImageURL,
		ImageURL: &goopenai.ChatMessageImageURL{
			URL:    in.Part.DataURL(),
			Detail: goopenai.ImageURLDetailAuto,
		},
	})
	return []goopenai.ChatCompletionMessage{system, {
		Role:         goopenai.ChatMessageRoleUser,
		MultiContent: parts,
	}}, nil
}

func isOpenAIImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
