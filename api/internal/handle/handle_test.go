package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"explain-proxy/api/internal/attachment"
	"explain-proxy/api/internal/explain"
	"explain-proxy/api/internal/gateway"
	"explain-proxy/api/internal/prompt"
	"explain-proxy/api/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type filePart struct {
	field       string
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, text string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if text != "" {
		require.NoError(t, mw.WriteField("text", text))
	}
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		if file.contentType != "" {
			h.Set("Content-Type", file.contentType)
		}
		pw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func newHandler(t *testing.T, opts ...Option) (*mocks.MockEngine, http.Handler) {
	ctrl := gomock.NewController(t)
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().Name().Return("gemini").AnyTimes()
	engine.EXPECT().GetModel().Return("gemini-2.5-flash").AnyTimes()

	log := logs.GetLoggerFromString("ERROR")
	svc := explain.NewService(log, attachment.NewClassifier(attachment.PolicyPermissive),
		gateway.New(engine, time.Second), nil, 50)
	return engine, New(svc, log, opts...).Routes("*")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestExplain_Success(t *testing.T) {
	tests := []struct {
		description string
		text        string
		file        *filePart
		want        prompt.Assembled
	}{
		{
			description: "Should explain plain text",
			text:        "What is a goroutine?",
			want:        prompt.Assembled{Text: "What is a goroutine?"},
		},
		{
			description: "Should inline a JSON file",
			text:        "Explain",
			file:        &filePart{field: "file", name: "cfg.json", contentType: "application/json", data: []byte(`{"a":1}`)},
			want:        prompt.Assembled{Text: "Explain\n\n[Attached File: cfg.json]\n```\n{\"a\":1}\n```"},
		},
		{
			description: "Should accept the legacy image field",
			text:        "What is this?",
			file:        &filePart{field: "image", name: "x.png", contentType: "image/png", data: []byte{0x89, 0x50, 0x4e, 0x47}},
			want: prompt.Assembled{
				Text: "What is this?",
				Part: &prompt.Part{MIMEType: "image/png", Data: "iVBORw=="},
			},
		},
		{
			description: "Should ignore content type parameters when classifying",
			file:        &filePart{field: "file", name: "n.txt", contentType: "text/plain; charset=utf-8", data: []byte("hello")},
			want:        prompt.Assembled{Text: "[Attached File: n.txt]\n```\nhello\n```"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			engine, h := newHandler(t)
			engine.EXPECT().Explain(gomock.Any(), tt.want).Return("**answer**", nil).Times(1)

			body, ct := multipartBody(t, tt.text, tt.file)
			r := httptest.NewRequest(http.MethodPost, "/api/explain", body)
			r.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, r)

			req.Equal(http.StatusOK, rec.Code)
			res := decode[ExplainResponse](t, rec)
			req.Equal("**answer**", res.Explanation)
			req.NotNil(res.Suggestions)
			req.Empty(res.Suggestions)
			req.NotEmpty(rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestExplain_JSONBody(t *testing.T) {
	req := require.New(t)
	engine, h := newHandler(t)
	engine.EXPECT().Explain(gomock.Any(), prompt.Assembled{Text: "hi"}).Return("hello", nil)

	r := httptest.NewRequest(http.MethodPost, "/api/explain", strings.NewReader(`{"text":"hi"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, r)

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("fixed-id", rec.Header().Get("X-Request-ID"))
	req.Equal("hello", decode[ExplainResponse](t, rec).Explanation)
}

func TestExplain_Errors(t *testing.T) {
	tests := []struct {
		description string
		text        string
		file        *filePart
		wantCode    int
		wantError   string
	}{
		{
			description: "Should reject an empty form",
			wantCode:    http.StatusBadRequest,
			wantError:   "text or file is required",
		},
		{
			description: "Should reject text over the limit",
			text:        strings.Repeat("a", 51),
			wantCode:    http.StatusBadRequest,
			wantError:   "text exceeds maximum length",
		},
		{
			description: "Should report a text file that is not UTF-8",
			file:        &filePart{field: "file", name: "bad.txt", contentType: "text/plain", data: []byte{0xff, 0xfe}},
			wantCode:    http.StatusUnprocessableEntity,
			wantError:   "Failed to process attachment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			engine, h := newHandler(t)
			engine.EXPECT().Explain(gomock.Any(), gomock.Any()).Times(0)

			body, ct := multipartBody(t, tt.text, tt.file)
			r := httptest.NewRequest(http.MethodPost, "/api/explain", body)
			r.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, r)

			req.Equal(tt.wantCode, rec.Code)
			req.Equal(tt.wantError, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestExplain_GenerationFailureHidesCause(t *testing.T) {
	req := require.New(t)
	engine, h := newHandler(t)
	engine.EXPECT().Explain(gomock.Any(), gomock.Any()).
		Return("", errors.New("API key not valid. Please pass a valid API key.")).Times(1)

	body, ct := multipartBody(t, "Explain recursion", nil)
	r := httptest.NewRequest(http.MethodPost, "/api/explain", body)
	r.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, r)

	req.Equal(http.StatusInternalServerError, rec.Code)
	req.JSONEq(`{"error":"Failed to generate explanation"}`, rec.Body.String())
}

func TestExplain_UploadTooLarge(t *testing.T) {
	req := require.New(t)
	engine, h := newHandler(t, WithMaxUploadBytes(1024))
	engine.EXPECT().Explain(gomock.Any(), gomock.Any()).Times(0)

	body, ct := multipartBody(t, "x", &filePart{field: "file", name: "big.bin", contentType: "image/png", data: bytes.Repeat([]byte{1}, 4096)})
	r := httptest.NewRequest(http.MethodPost, "/api/explain", body)
	r.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, r)

	req.Equal(http.StatusBadRequest, rec.Code)
	req.Equal("upload exceeds maximum size", decode[errorResponse](t, rec).Error)
}

func TestExplain_MethodAndCORS(t *testing.T) {
	req := require.New(t)
	_, h := newHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/explain", nil))
	req.Equal(http.StatusMethodNotAllowed, rec.Code)
	req.Equal("POST only", decode[errorResponse](t, rec).Error)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/explain", nil))
	req.Equal(http.StatusNoContent, rec.Code)
	req.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type fakeStats struct {
	counts map[string]int
	err    error
}

func (f fakeStats) CountSince(_ context.Context, state string, _ time.Time) (int, error) {
	return f.counts[state], f.err
}

func TestHealth(t *testing.T) {
	t.Run("Should report ok without audit trail", func(t *testing.T) {
		req := require.New(t)
		_, h := newHandler(t, WithEngineInfo("gemini", "gemini-2.5-flash"))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		req.Equal(http.StatusOK, rec.Code)
		res := decode[HealthResponse](t, rec)
		req.Equal("ok", res.Status)
		req.Equal("gemini", res.Engine)
		req.Nil(res.FailedLastHour)
	})

	t.Run("Should include audit counters", func(t *testing.T) {
		req := require.New(t)
		_, h := newHandler(t, WithAuditStats(fakeStats{counts: map[string]int{"failed": 2, "completed": 40}}))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		req.Equal(http.StatusOK, rec.Code)
		res := decode[HealthResponse](t, rec)
		req.Equal(2, *res.FailedLastHour)
		req.Equal(40, *res.CompletedLastHour)
	})

	t.Run("Should degrade when the audit store is down", func(t *testing.T) {
		req := require.New(t)
		_, h := newHandler(t, WithAuditStats(fakeStats{err: errors.New("conn refused")}))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		req.Equal(http.StatusServiceUnavailable, rec.Code)
		req.Equal("degraded", decode[HealthResponse](t, rec).Status)
	})
}
