// Package postgres stores submission records in PostgreSQL through gorm,
// for deployments that run several bot replicas against one database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Message is the row model of the messages table.
type Message struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	UserID      int64  `gorm:"index:idx_messages_user,priority:1;not null"`
	Type        string `gorm:"size:16;not null"`
	Recipient   string `gorm:"not null;default:''"`
	Message     string `gorm:"type:text;not null"`
	Name        string
	Position    string
	IsAnonymous bool `gorm:"not null;default:false"`
	Reason      string
	FilePath    *string
	Status      string    `gorm:"size:16;not null;default:'pending'"`
	Answer      string    `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `gorm:"index:idx_messages_user,priority:2;not null"`
	AnsweredAt  *time.Time
}

// TableName keeps the historical table name.
func (Message) TableName() string { return "messages" }

// Records implements ports.RecordStore on PostgreSQL.
type Records struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to PostgreSQL. Call Migrate before first use.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or upgrades the messages table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Message{}); err != nil {
		return fmt.Errorf("failed to migrate messages: %w", err)
	}
	return nil
}

// NewRecords wraps a connected database.
func NewRecords(db *gorm.DB) *Records {
	return &Records{db: db, now: time.Now}
}

// Create inserts a pending record.
func (r *Records) Create(ctx context.Context, s domain.Submission) (domain.Record, error) {
	row := fromRecord(domain.NewRecord(s, r.now().UTC()))
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	return row.toRecord(), nil
}

// Get returns one record.
func (r *Records) Get(ctx context.Context, id int64) (domain.Record, error) {
	var row Message
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Record{}, domain.ErrRecordNotFound
		}
		return domain.Record{}, fmt.Errorf("failed to load record %d: %w", id, err)
	}
	return row.toRecord(), nil
}

// ListByUser returns one submitter's records, newest first.
func (r *Records) ListByUser(ctx context.Context, userID int64) ([]domain.Record, error) {
	return r.find(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// List returns every record, newest first.
func (r *Records) List(ctx context.Context) ([]domain.Record, error) {
	return r.find(r.db.WithContext(ctx))
}

// Answer stores the answer and marks the record answered.
func (r *Records) Answer(ctx context.Context, id int64, answer string) (domain.Record, error) {
	at := r.now().UTC()
	res := r.db.WithContext(ctx).Model(&Message{}).Where("id = ?", id).Updates(map[string]any{
		"status":      string(domain.StatusAnswered),
		"answer":      answer,
		"answered_at": at,
	})
	if res.Error != nil {
		return domain.Record{}, fmt.Errorf("failed to update record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	return r.Get(ctx, id)
}

func (r *Records) find(q *gorm.DB) ([]domain.Record, error) {
	var rows []Message
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	out := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func fromRecord(rec domain.Record) Message {
	m := Message{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Type:        string(rec.Type),
		Recipient:   rec.Recipient,
		Message:     rec.Message,
		Name:        rec.Name,
		Position:    rec.Position,
		IsAnonymous: rec.Anonymous,
		Reason:      rec.Reason,
		Status:      string(rec.Status),
		Answer:      rec.Answer,
		CreatedAt:   rec.CreatedAt,
		AnsweredAt:  rec.AnsweredAt,
	}
	if rec.FilePath != "" {
		path := rec.FilePath
		m.FilePath = &path
	}
	return m
}

func (m Message) toRecord() domain.Record {
	rec := domain.Record{
		ID:         m.ID,
		UserID:     m.UserID,
		Type:       domain.MessageType(m.Type),
		Recipient:  m.Recipient,
		Message:    m.Message,
		Name:       m.Name,
		Position:   m.Position,
		Anonymous:  m.IsAnonymous,
		Reason:     m.Reason,
		Status:     domain.Status(m.Status),
		Answer:     m.Answer,
		CreatedAt:  m.CreatedAt.UTC(),
		AnsweredAt: m.AnsweredAt,
	}
	if m.FilePath != nil {
		rec.FilePath = *m.FilePath
	}
	return rec
}
