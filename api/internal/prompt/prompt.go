package prompt

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"explain-proxy/api/internal/apperr"
	"explain-proxy/api/internal/attachment"
)

// SystemInstruction is sent to every engine alongside the assembled prompt.
const SystemInstruction = `You are an assistant that explains things clearly and accurately.
The user sends a question or a piece of content (text, source code, a document or an image) and wants to understand it.
Explain what it is, how it works and anything non-obvious, in plain language, using Markdown formatting.
If the request is ambiguous, explain the most likely interpretation.`

// Part is a binary attachment forwarded to the model next to the text.
type Part struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

// Bytes decodes the base64 payload for SDKs that want raw bytes.
func (p Part) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Data)
}

func (p Part) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + p.Data
}

// Assembled is the request understood by the generative service.
type Assembled struct {
	Text string `json:"promptText"`
	Part *Part  `json:"multimodalPart,omitempty"`
}

// Assemble merges the user text with a classified attachment.
// Inline text is appended verbatim in a fenced block, so the result may exceed the submission text limit.
func Assemble(text string, att *attachment.Attachment, class attachment.Class) (Assembled, error) {
	switch class {
	case attachment.None:
		return Assembled{Text: strings.TrimSpace(text)}, nil

	case attachment.InlineText:
		if att == nil {
			return Assembled{}, fmt.Errorf("assemble: inline attachment is missing")
		}
		if !utf8.Valid(att.Data) {
			return Assembled{}, fmt.Errorf("assemble %q: %w", att.Filename, apperr.ErrDecode)
		}
		return Assembled{Text: inlineBlock(strings.TrimSpace(text), att.Filename, string(att.Data))}, nil

	case attachment.MultimodalBinary:
		if att == nil {
			return Assembled{}, fmt.Errorf("assemble: binary attachment is missing")
		}
		return Assembled{
			Text: text,
			Part: &Part{
				MIMEType: att.ContentType,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			},
		}, nil

	case attachment.Unsupported:
		return Assembled{}, fmt.Errorf("assemble: %w", apperr.ErrUnsupportedAttachment)

	default:
		return Assembled{}, fmt.Errorf("assemble: unknown attachment class %v", class)
	}
}

func inlineBlock(text, filename, content string) string {
	var b strings.Builder
	if text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	b.WriteString("[Attached File: ")
	b.WriteString(filename)
	b.WriteString("]\n```\n")
	b.WriteString(content)
	b.WriteString("\n```")
	return b.String()
}
