package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/galactic-tictactoe/internal/apperror"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepository creates a Redis-based SessionRepository. Records are
// JSON values under "session:<code>" with the TTL as a backstop expiry.
func NewSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &redisSessionRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

// Create stores a new session record unless the code is already in use.
func (r *redisSessionRepository) Create(ctx context.Context, rec *SessionRecord) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Create", trace.WithAttributes(attribute.String("session.code", rec.Code)))
	defer span.End()

	newRecord(rec, r.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, sessionKey(rec.Code), data, r.ttl).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create session")
		return fmt.Errorf("failed to create session in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("session code %s already in use", rec.Code)
	}
	return nil
}

// Get loads a session record, purging it if it has expired.
func (r *redisSessionRepository) Get(ctx context.Context, code string) (*SessionRecord, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Get", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	rec, err := r.load(ctx, r.rdb, code)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionExpired) {
			r.purge(ctx, code)
		}
		return nil, err
	}
	return rec, nil
}

// Join adds the second player to a waiting session.
func (r *redisSessionRepository) Join(ctx context.Context, code string) (*SessionRecord, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Join", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	rec, err := r.Update(ctx, code, func(rec *SessionRecord) error {
		if rec.Players >= 2 {
			return apperror.ErrSessionFull
		}
		rec.Players++
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to join session")
		return nil, err
	}
	return rec, nil
}

// Update applies fn to the record inside a WATCH transaction.
func (r *redisSessionRepository) Update(ctx context.Context, code string, fn func(rec *SessionRecord) error) (*SessionRecord, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.Update", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	key := sessionKey(code)
	var updated *SessionRecord
	expired := false

	txf := func(tx *redis.Tx) error {
		rec, err := r.load(ctx, tx, code)
		if err != nil {
			expired = errors.Is(err, apperror.ErrSessionExpired)
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		rec.Version++
		rec.UpdatedAt = r.now()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal session record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = rec
		return nil
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		if expired {
			r.purge(ctx, code)
		}
		if errors.Is(err, redis.TxFailedErr) {
			span.RecordError(err)
			return nil, fmt.Errorf("concurrent update of session %s: %w", code, err)
		}
		return nil, err
	}
	return updated, nil
}

// Leave removes a player and deletes the record once it is empty.
func (r *redisSessionRepository) Leave(ctx context.Context, code string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Leave", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	rec, err := r.Update(ctx, code, func(rec *SessionRecord) error {
		if rec.Players > 0 {
			rec.Players--
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrSessionNotFound) || errors.Is(err, apperror.ErrSessionExpired) {
			return nil
		}
		return err
	}
	if rec.Players == 0 {
		return r.Delete(ctx, code)
	}
	return nil
}

// Delete removes the session record.
func (r *redisSessionRepository) Delete(ctx context.Context, code string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	if err := r.rdb.Del(ctx, sessionKey(code)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// getter is satisfied by both *redis.Client and a watching *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *redisSessionRepository) load(ctx context.Context, c getter, code string) (*SessionRecord, error) {
	data, err := c.Get(ctx, sessionKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, code)
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	if rec.Expired(r.now(), r.ttl) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSessionExpired, code)
	}
	return &rec, nil
}

func (r *redisSessionRepository) purge(ctx context.Context, code string) {
	// Best effort; the key TTL removes it eventually anyway.
	_ = r.rdb.Del(ctx, sessionKey(code)).Err()
}
