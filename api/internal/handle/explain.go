package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"explain-proxy/api/internal/apperr"
	"explain-proxy/api/internal/attachment"
	"explain-proxy/api/internal/explain"
	"explain-proxy/api/internal/observability"
)

// multipart parts above this size spill to temp files
const multipartMemory = 8 << 20

// Browsers historically posted the file as "image".
var fileFields = []string{"file", "image"}

type ExplainResponse struct {
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions"`
}

type explainJSON struct {
	Text string `json:"text"`
}

// Explain handles POST /api/explain with a multipart form (text, file) or a JSON body {"text": "..."}.
func (h *Handle) Explain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	sub, err := h.readSubmission(w, r)
	if err != nil {
		observability.FromContext(r.Context(), h.log).Warn("bad explain request", "err", err)
		code, msg := apperr.Public(err)
		writeError(w, code, msg)
		return
	}

	res, err := h.svc.Explain(r.Context(), sub)
	if err != nil {
		code, msg := apperr.Public(err)
		writeError(w, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, ExplainResponse{Explanation: res.Explanation, Suggestions: []string{}})
}

func (h *Handle) readSubmission(w http.ResponseWriter, r *http.Request) (explain.Submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	switch attachment.MediaType(r.Header.Get("Content-Type")) {
	case "multipart/form-data":
		return readMultipart(r)
	case "application/json":
		var body explainJSON
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return explain.Submission{}, bodyError(err)
		}
		return explain.Submission{Text: body.Text}, nil
	default:
		return explain.Submission{}, fmt.Errorf("%w: unsupported request content type", apperr.ErrInvalidSubmission)
	}
}

func readMultipart(r *http.Request) (explain.Submission, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return explain.Submission{}, bodyError(err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	sub := explain.Submission{Text: r.FormValue("text")}

	for _, field := range fileFields {
		file, hdr, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return explain.Submission{}, bodyError(err)
		}
		att, err := readAttachment(file, hdr)
		if err != nil {
			return explain.Submission{}, err
		}
		sub.Attachment = att
		break
	}
	return sub, nil
}

func readAttachment(file multipart.File, hdr *multipart.FileHeader) (*attachment.Attachment, error) {
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, bodyError(err)
	}
	return &attachment.Attachment{
		Filename:    hdr.Filename,
		ContentType: attachment.ResolveContentType(hdr.Header.Get("Content-Type"), data),
		Data:        data,
	}, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidSubmission, apperr.ErrUploadTooLarge)
	}
	return fmt.Errorf("%w: %w", apperr.ErrInvalidSubmission, err)
}
