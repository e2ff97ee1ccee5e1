package hub

import (
	"context"
	"fmt"
	"log/slog"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/room"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CreateSinglePlayer opens a room with a match against the bot.
func (h *Hub) CreateSinglePlayer(ctx context.Context, difficulty bot.Difficulty) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.CreateSinglePlayer", trace.WithAttributes(
		attribute.String("bot.difficulty", string(difficulty)),
	))
	defer span.End()

	r := h.newRoom(false)
	if err := r.StartSinglePlayer(ctx, difficulty); err != nil {
		r.Close(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start single player match")
		return nil, err
	}
	h.add(r)
	slog.InfoContext(ctx, "Room created for bot match", "room.id", r.ID, "bot.difficulty", difficulty)
	return r, nil
}

// HostMultiplayer opens a room that publishes a two-player session.
func (h *Hub) HostMultiplayer(ctx context.Context) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.HostMultiplayer")
	defer span.End()

	if h.cfg.Transports == nil {
		return nil, fmt.Errorf("%w: two-player mode is not configured", apperror.ErrTransportFailure)
	}
	r := h.newRoom(true)
	if err := r.Host(ctx); err != nil {
		r.Close(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to host session")
		return nil, err
	}
	h.add(r)
	slog.InfoContext(ctx, "Room created for hosted session", "room.id", r.ID, "session.code", r.Snapshot().Code)
	return r, nil
}

// JoinMultiplayer opens a room joined to the session published under code.
func (h *Hub) JoinMultiplayer(ctx context.Context, code string) (*room.Room, error) {
	ctx, span := tracer.Start(ctx, "hub.JoinMultiplayer", trace.WithAttributes(
		attribute.String("session.code", code),
	))
	defer span.End()

	if h.cfg.Transports == nil {
		return nil, fmt.Errorf("%w: two-player mode is not configured", apperror.ErrTransportFailure)
	}
	r := h.newRoom(true)
	if err := r.Join(ctx, code); err != nil {
		r.Close(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to join session")
		return nil, err
	}
	h.add(r)
	slog.InfoContext(ctx, "Room created for joined session", "room.id", r.ID, "session.code", r.Snapshot().Code)
	return r, nil
}

func (h *Hub) newRoom(multiplayer bool) *room.Room {
	cfg := room.Config{
		ID:       uuid.New().String(),
		Selector: h.cfg.Selector,
		History:  h.cfg.History,
		Metrics:  h.cfg.Metrics,
		AIDelay:  h.cfg.AIDelay,
	}
	if multiplayer {
		cfg.Transport = h.cfg.Transports()
	}
	r := room.New(cfg)
	r.Start()
	return r
}

func (h *Hub) add(r *room.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rooms[r.ID] = r
}
