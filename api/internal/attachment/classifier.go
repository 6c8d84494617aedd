package attachment

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Class int

const (
	None Class = iota
	InlineText
	MultimodalBinary
	Unsupported
)

func (c Class) String() string {
	switch c {
	case None:
		return "none"
	case InlineText:
		return "inline_text"
	case MultimodalBinary:
		return "multimodal_binary"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

type Policy string

const (
	// PolicyPermissive sends every non-textual type to the model as a binary part.
	PolicyPermissive Policy = "permissive"
	// PolicyStrict only forwards media the generative services are known to accept.
	PolicyStrict Policy = "strict"
)

var inlineTypes = []string{
	"application/json",
	"application/javascript",
	"application/typescript",
}

var strictBinaryPrefixes = []string{"image/", "audio/", "video/"}

type Classifier struct {
	Policy Policy
}

func NewClassifier(p Policy) Classifier {
	if p == "" {
		p = PolicyPermissive
	}
	return Classifier{Policy: p}
}

// Classify decides how an attachment with the given declared content type is sent to the model.
// An empty content type means there is no attachment. It never fails.
func (c Classifier) Classify(contentType string) Class {
	mt := MediaType(contentType)
	switch {
	case mt == "":
		return None
	case strings.HasPrefix(mt, "text/") || lo.Contains(inlineTypes, mt):
		return InlineText
	case c.Policy == PolicyStrict && !isKnownBinary(mt):
		return Unsupported
	default:
		return MultimodalBinary
	}
}

func isKnownBinary(mt string) bool {
	if mt == "application/pdf" {
		return true
	}
	return lo.ContainsBy(strictBinaryPrefixes, func(p string) bool {
		return strings.HasPrefix(mt, p)
	})
}
