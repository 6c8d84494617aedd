package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"explain-proxy/api/internal/apperr"
	"explain-proxy/api/internal/attachment"
	"explain-proxy/api/internal/gateway"
	"explain-proxy/api/internal/observability"
	"explain-proxy/api/internal/prompt"
	"explain-proxy/api/internal/store"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultMaxTextLength = 10000
	auditTimeout         = 2 * time.Second
)

// Submission is what a client sends: free-form text and at most one file.
type Submission struct {
	Text       string
	Attachment *attachment.Attachment
}

type Result struct {
	Explanation string
}

// Service runs the pipeline Classifier -> Assembler -> Gateway for one submission at a time.
// It keeps no per-request state and is safe for concurrent use.
type Service struct {
	log           *slog.Logger
	classifier    attachment.Classifier
	gateway       *gateway.Gateway
	recorder      store.Recorder
	validate      *validator.Validate
	maxTextLength int
}

// NewService wires the pipeline. recorder may be nil when the audit trail is disabled.
func NewService(log *slog.Logger, classifier attachment.Classifier, gw *gateway.Gateway, recorder store.Recorder, maxTextLength int) *Service {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}
	return &Service{
		log:           log,
		classifier:    classifier,
		gateway:       gw,
		recorder:      recorder,
		validate:      validator.New(),
		maxTextLength: maxTextLength,
	}
}

func (s *Service) MaxTextLength() int { return s.maxTextLength }

// run tracks a single request through its states.
type run struct {
	log   *slog.Logger
	state State
	last  State
	class attachment.Class
	mime  string
	size  int
	chars int
}

func (r *run) advance(next State) {
	r.log.Debug("explain state", "from", r.state.String(), "to", next.String())
	r.last = next
	r.state = next
}

// Explain returns the explanation for sub or an error wrapping one of the apperr sentinels.
// No partial result is ever returned.
func (s *Service) Explain(ctx context.Context, sub Submission) (Result, error) {
	start := time.Now()
	r := &run{log: observability.FromContext(ctx, s.log), state: Received, last: Received}
	if sub.Attachment != nil {
		r.mime = sub.Attachment.ContentType
		r.size = sub.Attachment.Size()
	}

	res, err := s.explain(ctx, r, sub)

	if err != nil {
		failedAt := r.last
		r.state = Failed
		r.log.Error("explain failed",
			"stage", failedAt.String(),
			"attachment_class", r.class.String(),
			"mime_type", r.mime,
			"attachment_bytes", r.size,
			"engine", s.gateway.EngineName(),
			"model", s.gateway.Model(),
			"duration", time.Since(start),
			"err", err,
		)
		s.audit(ctx, r, failedAt.String(), time.Since(start))
		return Result{}, err
	}

	r.advance(Completed)
	r.log.Info("explain completed",
		"attachment_class", r.class.String(),
		"mime_type", r.mime,
		"attachment_bytes", r.size,
		"prompt_chars", r.chars,
		"engine", s.gateway.EngineName(),
		"model", s.gateway.Model(),
		"duration", time.Since(start),
	)
	s.audit(ctx, r, "", time.Since(start))
	return res, nil
}

func (s *Service) explain(ctx context.Context, r *run, sub Submission) (Result, error) {
	if err := s.validateSubmission(sub); err != nil {
		return Result{}, err
	}
	r.advance(Validated)

	r.class = attachment.None
	if sub.Attachment != nil {
		r.class = s.classifier.Classify(sub.Attachment.ContentType)
	}
	r.advance(Classified)

	in, err := prompt.Assemble(sub.Text, sub.Attachment, r.class)
	// the raw bytes are not needed past this point
	sub.Attachment.Release()
	if err != nil {
		return Result{}, err
	}
	r.chars = utf8.RuneCountInString(in.Text)
	r.advance(Assembled)

	r.advance(Dispatched)
	out, err := s.gateway.Explain(ctx, in)
	if err != nil {
		return Result{}, err
	}
	return Result{Explanation: out.Text}, nil
}

func (s *Service) validateSubmission(sub Submission) error {
	if strings.TrimSpace(sub.Text) == "" && sub.Attachment == nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidSubmission, apperr.ErrEmptySubmission)
	}
	if err := s.validate.Var(sub.Text, "max="+strconv.Itoa(s.maxTextLength)); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidSubmission, apperr.ErrTextTooLong)
	}
	if sub.Attachment != nil {
		if err := s.validate.Struct(sub.Attachment); err != nil {
			return fmt.Errorf("%w: attachment: %w", apperr.ErrInvalidSubmission, err)
		}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, r *run, failedStage string, d time.Duration) {
	if s.recorder == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	err := s.recorder.Record(actx, store.AuditRecord{
		RequestID:       observability.RequestID(ctx),
		Engine:          s.gateway.EngineName(),
		Model:           s.gateway.Model(),
		AttachmentClass: r.class.String(),
		MIMEType:        r.mime,
		AttachmentBytes: r.size,
		PromptChars:     r.chars,
		FinalState:      r.state.String(),
		FailedStage:     failedStage,
		Duration:        d,
	})
	if err != nil {
		r.log.Warn("audit record failed", "err", err)
	}
}
