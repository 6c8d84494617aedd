//go:generate go run go.uber.org/mock/mockgen -source=audit_repo.go -destination=../../mocks/mock_recorder.go -package=mocks
package store

import (
	"context"
	"database/sql"
	"time"
)

// AuditRecord describes one processed request. It holds no user content.
type AuditRecord struct {
	RequestID       string
	Engine          string
	Model           string
	AttachmentClass string
	MIMEType        string
	AttachmentBytes int
	PromptChars     int
	FinalState      string
	FailedStage     string
	Duration        time.Duration
}

type Recorder interface {
	Record(ctx context.Context, rec AuditRecord) error
}

type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

const schema = `
create table if not exists explain_requests (
  id               bigserial primary key,
  request_id       text not null,
  engine           text not null,
  model            text not null,
  attachment_class text not null,
  mime_type        text,
  attachment_bytes integer not null default 0,
  prompt_chars     integer not null default 0,
  final_state      text not null,
  failed_stage     text,
  duration_ms      bigint not null,
  created_at       timestamptz not null default now()
)`

// EnsureSchema creates the audit table when it does not exist yet.
func (r *AuditRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *AuditRepo) Record(ctx context.Context, rec AuditRecord) error {
	const q = `
insert into explain_requests (
  request_id, engine, model, attachment_class, mime_type,
  attachment_bytes, prompt_chars, final_state, failed_stage, duration_ms
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.DB.ExecContext(ctx, q,
		rec.RequestID, rec.Engine, rec.Model, rec.AttachmentClass, nullString(rec.MIMEType),
		rec.AttachmentBytes, rec.PromptChars, rec.FinalState, nullString(rec.FailedStage), rec.Duration.Milliseconds(),
	)
	return err
}

// CountSince returns how many requests ended in the given state after t.
func (r *AuditRepo) CountSince(ctx context.Context, state string, t time.Time) (int, error) {
	const q = `select count(*) from explain_requests where final_state = $1 and created_at >= $2`
	var n int
	if err := r.DB.QueryRowContext(ctx, q, state, t).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
