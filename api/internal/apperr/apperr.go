package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidSubmission     = errors.New("invalid submission")
	ErrUnsupportedAttachment = errors.New("unsupported attachment type")
	ErrDecode                = errors.New("attachment is not valid UTF-8 text")
	ErrGeneration            = errors.New("generation failed")

	// Причины ErrInvalidSubmission, которые можно показать клиенту.
	ErrEmptySubmission = errors.New("text or file is required")
	ErrTextTooLong     = errors.New("text exceeds maximum length")
	ErrUploadTooLarge  = errors.New("upload exceeds maximum size")
)

const (
	MsgGenerationFailed      = "Failed to generate explanation"
	MsgAttachmentFailed      = "Failed to process attachment"
	MsgUnsupportedAttachment = "Unsupported attachment type"
	MsgInvalidSubmission     = "Invalid submission"
)

// Public converts any pipeline error into the status code and message returned to callers.
// The underlying cause never leaks except for the whitelisted validation reasons.
func Public(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidSubmission):
		for _, reason := range []error{ErrEmptySubmission, ErrTextTooLong, ErrUploadTooLarge} {
			if errors.Is(err, reason) {
				return http.StatusBadRequest, reason.Error()
			}
		}
		return http.StatusBadRequest, MsgInvalidSubmission
	case errors.Is(err, ErrUnsupportedAttachment):
		return http.StatusUnsupportedMediaType, MsgUnsupportedAttachment
	case errors.Is(err, ErrDecode):
		return http.StatusUnprocessableEntity, MsgAttachmentFailed
	default:
		return http.StatusInternalServerError, MsgGenerationFailed
	}
}
