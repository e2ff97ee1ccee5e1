package room

import (
	"context"
	"fmt"

	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the game counters. A nil *Metrics records nothing.
type Metrics struct {
	moves    metric.Int64Counter
	finished metric.Int64Counter
}

// NewMetrics registers the counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("tictactoe")

	moves, err := meter.Int64Counter("tictactoe.moves",
		metric.WithDescription("Marks placed on any board"),
		metric.WithUnit("{move}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create moves counter: %w", err)
	}
	finished, err := meter.Int64Counter("tictactoe.matches.finished",
		metric.WithDescription("Matches that ended in a win or a draw"),
		metric.WithUnit("{match}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create matches counter: %w", err)
	}
	return &Metrics{moves: moves, finished: finished}, nil
}

// RecordMoves counts n new marks.
func (m *Metrics) RecordMoves(ctx context.Context, mode session.Mode, n int) {
	if m == nil {
		return
	}
	m.moves.Add(ctx, int64(n), metric.WithAttributes(attribute.String("mode", string(mode))))
}

// RecordFinished counts a finished match by outcome.
func (m *Metrics) RecordFinished(ctx context.Context, mode session.Mode, outcome game.Outcome) {
	if m == nil {
		return
	}
	label := string(outcome.Status)
	if outcome.Status == game.StatusWin {
		label = "win_" + string(outcome.Winner)
	}
	m.finished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("outcome", label),
	))
}
