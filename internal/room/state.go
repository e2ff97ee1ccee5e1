package room

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/session"
	"ctchen222/galactic-tictactoe/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSinglePlayer starts a match against the bot.
func (r *Room) StartSinglePlayer(ctx context.Context, difficulty bot.Difficulty) error {
	return r.do(ctx, func(ctx context.Context) error {
		r.session.StartSinglePlayer(ctx, difficulty)
		return nil
	})
}

// Host publishes a two-player session and starts listening for the peer.
func (r *Room) Host(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "room.Host", trace.WithAttributes(attribute.String("room.id", r.ID)))
	defer span.End()

	err := r.do(ctx, func(context.Context) error {
		if err := r.session.StartMultiplayerHost(ctx); err != nil {
			return err
		}
		r.startFeed(r.session.Snapshot().Code)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to host session")
	}
	return err
}

// Join joins the two-player session published under code.
func (r *Room) Join(ctx context.Context, code string) error {
	ctx, span := tracer.Start(ctx, "room.Join", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("session.code", code),
	))
	defer span.End()

	err := r.do(ctx, func(context.Context) error {
		if err := r.session.JoinMultiplayer(ctx, code); err != nil {
			return err
		}
		r.startFeed(r.session.Snapshot().Code)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to join session")
	}
	return err
}

// Move applies the local player's move. accepted is false for an illegal move.
func (r *Room) Move(ctx context.Context, cell int) (accepted bool, err error) {
	err = r.do(ctx, func(context.Context) error {
		var moveErr error
		accepted, moveErr = r.session.ApplyLocalMove(ctx, cell)
		return moveErr
	})
	return accepted, err
}

// Restart clears the board for a new match.
func (r *Room) Restart(ctx context.Context) error {
	return r.do(ctx, func(context.Context) error {
		return r.session.Restart(ctx)
	})
}

func (r *Room) startFeed(code string) {
	if r.transport == nil {
		return
	}
	r.stopFeed()
	feedCtx, cancel := context.WithCancel(context.Background())
	r.feedCancel = cancel

	go func() {
		err := r.transport.Subscribe(feedCtx, code, func(msg *proto.Message) {
			r.post(func(ctx context.Context) {
				r.applyRemote(ctx, msg)
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.WarnContext(feedCtx, "Session feed stopped", "room.id", r.ID, "session.code", code, "error", err)
		}
	}()
}

func (r *Room) stopFeed() {
	if r.feedCancel != nil {
		r.feedCancel()
		r.feedCancel = nil
	}
}

func (r *Room) applyRemote(ctx context.Context, msg *proto.Message) {
	ctx, span := tracer.Start(ctx, "room.applyRemote", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("message.type", msg.Type),
	))
	defer span.End()

	changed, err := r.session.ApplyRemoteState(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to answer peer", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to answer peer")
		return
	}
	span.SetAttributes(attribute.Bool("session.changed", changed))
}

// afterCommand publishes the new snapshot and accounts for what changed.
func (r *Room) afterCommand(ctx context.Context, prev session.Snapshot) {
	snap := r.session.Snapshot()

	if snap.Phase == session.PhaseMenu {
		r.stopFeed()
	}

	r.mu.Lock()
	r.snapshot = snap
	r.lastActivity = time.Now()
	r.mu.Unlock()

	if reflect.DeepEqual(prev, snap) {
		return
	}

	if n := placedMarks(snap.Board) - placedMarks(prev.Board); n > 0 {
		r.metrics.RecordMoves(ctx, snap.Mode, n)
	}
	if prev.Phase != session.PhaseFinished && snap.Phase == session.PhaseFinished {
		r.finishMatch(ctx, snap)
	}
	r.Broadcast(ctx, snap)
}

// finishMatch records a finished match. Two-player matches are recorded by
// the host only so each match is stored once.
func (r *Room) finishMatch(ctx context.Context, snap session.Snapshot) {
	r.metrics.RecordFinished(ctx, snap.Mode, snap.Outcome)
	slog.InfoContext(ctx, "Match finished", "room.id", r.ID, "outcome", snap.Outcome.Status, "winner", snap.Outcome.Winner)

	if r.history == nil || (snap.Mode == session.ModeTwoPlayer && snap.LocalMark != hostMark) {
		return
	}
	if err := r.history.Record(ctx, matchRecord(r.ID, snap)); err != nil {
		slog.ErrorContext(ctx, "Failed to record match", "room.id", r.ID, "error", err)
	}
}
