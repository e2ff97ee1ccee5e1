package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MatchRecord is one finished match.
type MatchRecord struct {
	ID         int64     `db:"id" json:"id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	Mode       string    `db:"mode" json:"mode"`
	Difficulty string    `db:"difficulty" json:"difficulty,omitempty"`
	HumanMark  string    `db:"human_mark" json:"human_mark"`
	Status     string    `db:"status" json:"status"`
	Winner     string    `db:"winner" json:"winner,omitempty"`
	Line       string    `db:"line" json:"line,omitempty"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// Stats aggregates finished matches.
type Stats struct {
	Total int64 `db:"total" json:"total"`
	XWins int64 `db:"x_wins" json:"x_wins"`
	OWins int64 `db:"o_wins" json:"o_wins"`
	Draws int64 `db:"draws" json:"draws"`
}

// HistoryRepository defines the interface for match history operations.
type HistoryRepository interface {
	Record(ctx context.Context, match *MatchRecord) error
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
	Stats(ctx context.Context) (*Stats, error)
}

type sqliteHistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new SQLite-based HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &sqliteHistoryRepository{db: db}
}

// Record inserts a finished match and sets its ID.
func (r *sqliteHistoryRepository) Record(ctx context.Context, match *MatchRecord) error {
	ctx, span := tracer.Start(ctx, "HistoryRepository.Record", trace.WithAttributes(
		attribute.String("room.id", match.RoomID),
		attribute.String("match.status", match.Status),
	))
	defer span.End()

	if match.FinishedAt.IsZero() {
		match.FinishedAt = time.Now().UTC()
	}

	query := `INSERT INTO matches (room_id, mode, difficulty, human_mark, status, winner, line, finished_at)
		VALUES (:room_id, :mode, :difficulty, :human_mark, :status, :winner, :line, :finished_at)`
	res, err := r.db.NamedExecContext(ctx, query, match)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record match")
		return fmt.Errorf("failed to record match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read match id: %w", err)
	}
	match.ID = id
	return nil
}

// Recent returns the latest finished matches, newest first.
func (r *sqliteHistoryRepository) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	ctx, span := tracer.Start(ctx, "HistoryRepository.Recent")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	matches := []MatchRecord{}
	query := `SELECT id, room_id, mode, difficulty, human_mark, status, winner, line, finished_at
		FROM matches ORDER BY id DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &matches, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// Stats counts wins per mark and draws.
func (r *sqliteHistoryRepository) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := tracer.Start(ctx, "HistoryRepository.Stats")
	defer span.End()

	var stats Stats
	query := `SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN status = 'win' AND winner = 'X' THEN 1 ELSE 0 END), 0) AS x_wins,
		COALESCE(SUM(CASE WHEN status = 'win' AND winner = 'O' THEN 1 ELSE 0 END), 0) AS o_wins,
		COALESCE(SUM(CASE WHEN status = 'draw' THEN 1 ELSE 0 END), 0) AS draws
		FROM matches`
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to compute match stats: %w", err)
	}
	return &stats, nil
}
