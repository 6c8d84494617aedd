package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublic(t *testing.T) {
	tests := []struct {
		description string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			"Should report empty submission as client error",
			fmt.Errorf("%w: %w", ErrInvalidSubmission, ErrEmptySubmission),
			http.StatusBadRequest,
			"text or file is required",
		},
		{
			"Should report long text as client error",
			fmt.Errorf("%w: %w", ErrInvalidSubmission, ErrTextTooLong),
			http.StatusBadRequest,
			"text exceeds maximum length",
		},
		{
			"Should hide unknown validation reasons",
			fmt.Errorf("%w: filename too long", ErrInvalidSubmission),
			http.StatusBadRequest,
			MsgInvalidSubmission,
		},
		{
			"Should report unsupported attachment",
			fmt.Errorf("%w: application/x-foo", ErrUnsupportedAttachment),
			http.StatusUnsupportedMediaType,
			MsgUnsupportedAttachment,
		},
		{
			"Should report decode failure without details",
			fmt.Errorf("assemble: %w", ErrDecode),
			http.StatusUnprocessableEntity,
			MsgAttachmentFailed,
		},
		{
			"Should hide generation failure cause",
			fmt.Errorf("%w: gemini: %w", ErrGeneration, errors.New("googleapi: Error 429: quota")),
			http.StatusInternalServerError,
			MsgGenerationFailed,
		},
		{
			"Should treat unknown errors as generation failure",
			context.DeadlineExceeded,
			http.StatusInternalServerError,
			MsgGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			status, msg := Public(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantMessage, msg)
		})
	}
}
