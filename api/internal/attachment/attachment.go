package attachment

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Attachment is the single optional file of a submission.
type Attachment struct {
	Filename    string `validate:"max=255"`
	ContentType string `validate:"required"`
	Data        []byte
}

func (a *Attachment) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

// Release drops the payload once it has been turned into a prompt.
func (a *Attachment) Release() {
	if a != nil {
		a.Data = nil
	}
}

// MediaType strips parameters and lowercases a declared content type.
// "Application/JSON; charset=utf-8" -> "application/json".
func MediaType(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ResolveContentType returns the declared type, or sniffs one from the payload when the client sent none.
func ResolveContentType(declared string, data []byte) string {
	if d := strings.TrimSpace(declared); d != "" {
		return d
	}
	return mimetype.Detect(data).String()
}
