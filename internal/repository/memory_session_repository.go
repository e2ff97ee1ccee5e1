package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ctchen222/galactic-tictactoe/internal/apperror"
)

type memorySessionRepository struct {
	mu      sync.Mutex
	records map[string][]byte
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionRepository creates a process-local SessionRepository for a
// single server without Redis. Records are stored encoded so callers never
// share memory with the store.
func NewMemorySessionRepository(ttl time.Duration, now func() time.Time) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &memorySessionRepository{records: make(map[string][]byte), ttl: ttl, now: now}
}

func (r *memorySessionRepository) Create(_ context.Context, rec *SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.records[rec.Code]; ok {
		if existing, err := decode(data); err == nil && !existing.Expired(r.now(), r.ttl) {
			return fmt.Errorf("session code %s already in use", rec.Code)
		}
	}
	newRecord(rec, r.now())
	return r.store(rec)
}

func (r *memorySessionRepository) Get(_ context.Context, code string) (*SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(code)
}

func (r *memorySessionRepository) Join(ctx context.Context, code string) (*SessionRecord, error) {
	return r.Update(ctx, code, func(rec *SessionRecord) error {
		if rec.Players >= 2 {
			return apperror.ErrSessionFull
		}
		rec.Players++
		return nil
	})
}

func (r *memorySessionRepository) Update(_ context.Context, code string, fn func(rec *SessionRecord) error) (*SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.load(code)
	if err != nil {
		return nil, err
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.Version++
	rec.UpdatedAt = r.now()
	if err := r.store(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *memorySessionRepository) Leave(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.load(code)
	if err != nil {
		return nil
	}
	if rec.Players <= 1 {
		delete(r.records, code)
		return nil
	}
	rec.Players--
	rec.Version++
	rec.UpdatedAt = r.now()
	return r.store(rec)
}

func (r *memorySessionRepository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, code)
	return nil
}

// load must be called with mu held.
func (r *memorySessionRepository) load(code string) (*SessionRecord, error) {
	data, ok := r.records[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, code)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, err
	}
	if rec.Expired(r.now(), r.ttl) {
		delete(r.records, code)
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionExpired, code)
	}
	return rec, nil
}

func (r *memorySessionRepository) store(rec *SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	r.records[rec.Code] = data
	return nil
}

func decode(data []byte) (*SessionRecord, error) {
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &rec, nil
}
