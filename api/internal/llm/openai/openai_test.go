package openai

import (
	"context"
	"testing"

	"explain-proxy/api/internal/prompt"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages_TextOnly(t *testing.T) {
	req := require.New(t)

	msgs, err := buildMessages(prompt.Assembled{Text: "explain this"})

	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal(goopenai.ChatMessageRoleSystem, msgs[0].Role)
	req.Equal(prompt.SystemInstruction, msgs[0].Content)
	req.Equal(goopenai.ChatMessageRoleUser, msgs[1].Role)
	req.Equal("explain this", msgs[1].Content)
	req.Empty(msgs[1].MultiContent)
}

func TestBuildMessages_Image(t *testing.T) {
	req := require.New(t)
	part := &prompt.Part{MIMEType: "image/png", Data: "iVBORw0KGgo="}

	msgs, err := buildMessages(prompt.Assembled{Text: "what is this", Part: part})

	req.NoError(err)
	user := msgs[1]
	req.Empty(user.Content)
	req.Len(user.MultiContent, 2)
	req.Equal(goopenai.ChatMessagePartTypeText, user.MultiContent[0].Type)
	req.Equal("what is this", user.MultiContent[0].Text)
	req.Equal(goopenai.ChatMessagePartTypeImageURL, user.MultiContent[1].Type)
	req.Equal("data:image/png;base64,iVBORw0KGgo=", user.MultiContent[1].ImageURL.URL)
}

func TestBuildMessages_ImageWithoutText(t *testing.T) {
	req := require.New(t)

	msgs, err := buildMessages(prompt.Assembled{Part: &prompt.Part{MIMEType: "image/jpeg", Data: "AA=="}})

	req.NoError(err)
	req.Len(msgs[1].MultiContent, 1)
}

func TestBuildMessages_UnsupportedBinary(t *testing.T) {
	req := require.New(t)

	_, err := buildMessages(prompt.Assembled{Text: "doc", Part: &prompt.Part{MIMEType: "application/pdf", Data: "AA=="}})

	req.Error(err)
}

func TestExplain_WithoutKey(t *testing.T) {
	req := require.New(t)
	e := New("", "gpt-4o-mini", "")

	_, err := e.Explain(context.Background(), prompt.Assembled{Text: "hi"})

	req.Error(err)
	req.Equal("openai", e.Name())
	req.Equal("gpt-4o-mini", e.GetModel())
}
