package hub

import (
	"context"
	"log/slog"
	"time"

	"ctchen222/galactic-tictactoe/internal/room"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const reapInterval = time.Minute

// Run closes idle rooms until ctx is done, then shuts the hub down.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Shutdown(context.Background())
			return
		case now := <-ticker.C:
			h.reap(ctx, now)
		}
	}
}

// reap closes rooms without clients that have been idle past the timeout.
func (h *Hub) reap(ctx context.Context, now time.Time) {
	var idle []*room.Room
	h.mu.Lock()
	for id, r := range h.rooms {
		if r.ClientCount() == 0 && now.Sub(r.LastActivity()) > h.cfg.IdleTimeout {
			idle = append(idle, r)
			delete(h.rooms, id)
		}
	}
	h.mu.Unlock()

	if len(idle) == 0 {
		return
	}
	ctx, span := tracer.Start(ctx, "hub.reap", trace.WithAttributes(attribute.Int("rooms.idle", len(idle))))
	defer span.End()

	for _, r := range idle {
		r.Close(ctx)
		slog.InfoContext(ctx, "Closed idle room", "room.id", r.ID)
	}
}
