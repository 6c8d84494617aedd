package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"explain-proxy/api/internal/apperr"
	"explain-proxy/api/internal/attachment"
	"explain-proxy/api/internal/explain"
)

const defaultMaxUploadBytes int64 = 20 << 20

// submissionFromMessage maps a message to a submission. Caption is the text when a file is attached.
func (r *Router) submissionFromMessage(ctx context.Context, msg *tgbotapi.Message) (explain.Submission, error) {
	switch {
	case msg.Document != nil:
		doc := msg.Document
		if err := r.checkSize(int64(doc.FileSize)); err != nil {
			return explain.Submission{}, err
		}
		data, err := r.fetch(ctx, doc.FileID)
		if err != nil {
			return explain.Submission{}, err
		}
		return explain.Submission{
			Text: msg.Caption,
			Attachment: &attachment.Attachment{
				Filename:    doc.FileName,
				ContentType: attachment.ResolveContentType(doc.MimeType, data),
				Data:        data,
			},
		}, nil

	case len(msg.Photo) > 0:
		// берём самое большое превью
		ph := msg.Photo[len(msg.Photo)-1]
		if err := r.checkSize(int64(ph.FileSize)); err != nil {
			return explain.Submission{}, err
		}
		data, err := r.fetch(ctx, ph.FileID)
		if err != nil {
			return explain.Submission{}, err
		}
		return explain.Submission{
			Text: msg.Caption,
			Attachment: &attachment.Attachment{
				Filename:    "photo.jpg",
				ContentType: attachment.ResolveContentType("image/jpeg", data),
				Data:        data,
			},
		}, nil

	default:
		return explain.Submission{Text: msg.Text}, nil
	}
}

func (r *Router) maxUploadBytes() int64 {
	if r.MaxUploadBytes > 0 {
		return r.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func (r *Router) checkSize(n int64) error {
	if n > r.maxUploadBytes() {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidSubmission, apperr.ErrUploadTooLarge)
	}
	return nil
}

func (r *Router) fetch(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("telegram get file: %w", err)
	}
	return download(ctx, r.httpClient(), url, r.maxUploadBytes())
}

func download(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download: status %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidSubmission, apperr.ErrUploadTooLarge)
	}
	return data, nil
}
