package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctchen222/galactic-tictactoe/internal/player"
	"ctchen222/galactic-tictactoe/internal/session"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Update is what clients receive whenever the room's state changes.
type Update struct {
	Type     string           `json:"type"`
	RoomID   string           `json:"room_id"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// AddClient registers p and sends it the current state.
func (r *Room) AddClient(ctx context.Context, p *player.Player) {
	r.mu.Lock()
	r.clients[p.ID] = p
	snap := r.snapshot
	r.mu.Unlock()

	slog.InfoContext(ctx, "Client connected", "room.id", r.ID, "player.id", p.ID)
	data, err := json.Marshal(Update{Type: "snapshot", RoomID: r.ID, Snapshot: snap})
	if err != nil {
		return
	}
	if err := p.Write(websocket.TextMessage, data); err != nil {
		slog.WarnContext(ctx, "error writing initial snapshot", "player.id", p.ID, "error", err)
	}
}

// RemoveClient forgets p and closes its connection.
func (r *Room) RemoveClient(p *player.Player) {
	r.mu.Lock()
	if _, ok := r.clients[p.ID]; ok {
		delete(r.clients, p.ID)
		p.Conn.Close()
	}
	r.mu.Unlock()
}

// Broadcast sends the snapshot to all connected clients.
func (r *Room) Broadcast(ctx context.Context, snap session.Snapshot) {
	_, span := tracer.Start(ctx, "room.Broadcast", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("session.phase", string(snap.Phase)),
	))
	defer span.End()

	data, err := json.Marshal(Update{Type: "snapshot", RoomID: r.ID, Snapshot: snap})
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling snapshot", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling snapshot")
		return
	}

	for _, p := range r.clientList() {
		if err := p.Write(websocket.TextMessage, data); err != nil {
			slog.ErrorContext(ctx, "error writing message to player", "player.id", p.ID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Error writing message to player")
		}
	}
}

// ReadPump feeds commands from p's connection into the room until the
// connection fails or the room closes.
func (r *Room) ReadPump(p *player.Player) {
	ctx, span := tracer.Start(context.Background(), "room.ReadPump", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()
	defer r.RemoveClient(p)

	for {
		_, msg, err := p.Conn.ReadMessage()
		if err != nil {
			select {
			case <-r.Done:
			default:
				slog.WarnContext(ctx, "Player connection error", "player.id", p.ID, "room.id", r.ID, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "Player connection error")
			}
			return
		}
		r.HandleMessage(ctx, p, msg)
	}
}

func (r *Room) ping() {
	for _, p := range r.clientList() {
		if err := p.Write(websocket.PingMessage, nil); err != nil {
			slog.Warn("Failed to send ping to player, assuming disconnect", "player.id", p.ID, "error", err)
			r.RemoveClient(p)
		}
	}
}

func (r *Room) clientList() []*player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*player.Player, 0, len(r.clients))
	for _, p := range r.clients {
		list = append(list, p)
	}
	return list
}
