package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctchen222/galactic-tictactoe/internal/player"
	"ctchen222/galactic-tictactoe/internal/validator"
	"ctchen222/galactic-tictactoe/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a command from a client. It acts as a dispatcher.
func (r *Room) HandleMessage(ctx context.Context, p *player.Player, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var command proto.ClientCommand
	if err := json.Unmarshal(rawMessage, &command); err != nil {
		slog.ErrorContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		return
	}

	if err := validator.GetValidator().Struct(command); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		return
	}

	span.SetAttributes(attribute.String("message.type", command.Type))

	switch command.Type {
	case "move":
		accepted, err := r.Move(ctx, *command.Cell)
		if err != nil {
			slog.ErrorContext(ctx, "move failed", "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Move failed")
			return
		}
		span.SetAttributes(attribute.Bool("move.accepted", accepted))
	case "restart":
		if err := r.Restart(ctx); err != nil {
			slog.ErrorContext(ctx, "restart failed", "room.id", r.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Restart failed")
		}
	}
}
