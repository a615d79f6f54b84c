package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Doe880/telegram-feedback-bot1/pkg/domain"
)

// Records implements ports.RecordStore in memory. It backs the console
// shell and tests; records are lost on exit.
type Records struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]domain.Record
	now     func() time.Time
}

// NewRecords creates an empty record store.
func NewRecords() *Records {
	return &Records{
		records: make(map[int64]domain.Record),
		now:     time.Now,
	}
}

// Create stores a pending record under the next id.
func (r *Records) Create(ctx context.Context, s domain.Submission) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rec := domain.NewRecord(s, r.now().UTC())
	rec.ID = r.nextID
	r.records[rec.ID] = rec
	return rec, nil
}

// Get returns the record with the given id.
func (r *Records) Get(ctx context.Context, id int64) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	return rec, nil
}

// ListByUser returns one submitter's records, newest first.
func (r *Records) ListByUser(ctx context.Context, userID int64) ([]domain.Record, error) {
	return r.filter(func(rec domain.Record) bool { return rec.UserID == userID }), nil
}

// List returns every record, newest first.
func (r *Records) List(ctx context.Context) ([]domain.Record, error) {
	return r.filter(func(domain.Record) bool { return true }), nil
}

// Answer marks the record answered.
func (r *Records) Answer(ctx context.Context, id int64, answer string) (domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.Record{}, domain.ErrRecordNotFound
	}
	at := r.now().UTC()
	rec.Status = domain.StatusAnswered
	rec.Answer = answer
	rec.AnsweredAt = &at
	r.records[id] = rec
	return rec, nil
}

func (r *Records) filter(keep func(domain.Record) bool) []domain.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Record, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	// IDs increase with creation time, so id order is creation order.
	slices.SortFunc(out, func(a, b domain.Record) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	return out
}
