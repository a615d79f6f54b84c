package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

const (
	// timeLayout is fixed width so that text order is time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
	// legacyTimeLayout is how historical rows stored created_at.
	legacyTimeLayout = "2006-01-02 15:04:05"
)

const selectColumns = `SELECT id, user_id, type, recipient, message, name, position,
	is_anonymous, reason, file_path, status, answer, created_at, answered_at FROM messages`

// Records implements ports.RecordStore on SQLite.
type Records struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures Records.
type Option func(*Records)

// WithClock overrides the time source for created_at and answered_at.
func WithClock(now func() time.Time) Option {
	return func(r *Records) { r.now = now }
}

// NewRecords wraps a migrated database.
func NewRecords(db *sql.DB, opts ...Option) *Records {
	r := &Records{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create inserts a pending record. The id comes from AUTOINCREMENT, so it
// never repeats even after deletes.
func (r *Records) Create(ctx context.Context, s domain.Submission) (domain.Record, error) {
	rec := domain.NewRecord(s, r.now().UTC())

	res, err := r.db.ExecContext(ctx, `INSERT INTO messages (
			user_id, type, recipient, message, name, position,
			is_anonymous, reason, file_path, status, answer, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?)`,
		rec.UserID, string(rec.Type), rec.Recipient, rec.Message, rec.Name, rec.Position,
		boolToInt(rec.Anonymous), rec.Reason, nullString(rec.FilePath), string(rec.Status),
		rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to read record id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// Get returns one record.
func (r *Records) Get(ctx context.Context, id int64) (domain.Record, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	return rec, err
}

// ListByUser returns one submitter's records, newest first.
func (r *Records) ListByUser(ctx context.Context, userID int64) ([]domain.Record, error) {
	return r.query(ctx, selectColumns+` WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// List returns every record, newest first.
func (r *Records) List(ctx context.Context) ([]domain.Record, error) {
	return r.query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
}

// Answer stores the answer and marks the record answered.
func (r *Records) Answer(ctx context.Context, id int64, answer string) (domain.Record, error) {
	at := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET status = ?, answer = ?, answered_at = ? WHERE id = ?`,
		string(domain.StatusAnswered), answer, at.Format(timeLayout), id,
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to update record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to update record %d: %w", id, err)
	}
	if n == 0 {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	return r.Get(ctx, id)
}

func (r *Records) query(ctx context.Context, q string, args ...any) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.Record, error) {
	var (
		rec                                     domain.Record
		userID, anonymous                       sql.NullInt64
		typ, recipient, message, name, position sql.NullString
		reason, filePath, status, answer        sql.NullString
		createdAt, answeredAt                   sql.NullString
	)
	err := s.Scan(&rec.ID, &userID, &typ, &recipient, &message, &name, &position,
		&anonymous, &reason, &filePath, &status, &answer, &createdAt, &answeredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.UserID = userID.Int64
	rec.Type = domain.MessageType(typ.String)
	rec.Recipient = recipient.String
	rec.Message = message.String
	rec.Name = name.String
	rec.Position = position.String
	rec.Anonymous = anonymous.Int64 != 0
	rec.Reason = reason.String
	rec.FilePath = filePath.String
	rec.Status = domain.Status(status.String)
	rec.Answer = answer.String
	rec.CreatedAt = parseTime(createdAt.String)
	if answeredAt.Valid && answeredAt.String != "" {
		t := parseTime(answeredAt.String)
		rec.AnsweredAt = &t
	}
	return rec, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(legacyTimeLayout, s, time.Local); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
