package repository

import (
	"context"
	"time"

	"ctchen222/galactic-tictactoe/internal/game"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

// DefaultSessionTTL is how long a published session may be joined.
const DefaultSessionTTL = time.Hour

// SessionRecord is the stored state of a two-player session.
type SessionRecord struct {
	Code    string            `json:"code"`
	Board   []game.PlayerMark `json:"board"`
	Turn    game.PlayerMark   `json:"turn"`
	Players int               `json:"players"`
	// Version increases on every write.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the record is older than ttl at now.
func (r *SessionRecord) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.CreatedAt) > ttl
}

// SetState replaces the board and turn. Readers derive the outcome from the
// board.
func (r *SessionRecord) SetState(board game.Board, turn game.PlayerMark) {
	r.Board = game.BoardToSlice(board)
	r.Turn = turn
}

// SessionRepository stores two-player sessions by code. Reads check expiry
// explicitly and purge expired records.
type SessionRepository interface {
	// Create stores a new record with one player. It fails if the code is taken.
	Create(ctx context.Context, rec *SessionRecord) error
	Get(ctx context.Context, code string) (*SessionRecord, error)
	// Join adds the second player.
	Join(ctx context.Context, code string) (*SessionRecord, error)
	// Update applies fn to the stored record atomically and bumps its version.
	Update(ctx context.Context, code string, fn func(rec *SessionRecord) error) (*SessionRecord, error)
	// Leave removes one player and deletes the record when none remain.
	Leave(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
}

func newRecord(rec *SessionRecord, now time.Time) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if len(rec.Board) == 0 {
		rec.Board = make([]game.PlayerMark, game.Cells)
	}
	if rec.Turn == game.None {
		rec.Turn = game.PlayerX
	}
	rec.Players = 1
	rec.Version = 1
	rec.UpdatedAt = now
}

func sessionKey(code string) string {
	return "session:" + code
}
