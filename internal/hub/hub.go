package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/room"
	"ctchen222/galactic-tictactoe/internal/session"
	"ctchen222/galactic-tictactoe/internal/transport"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hub")

// DefaultIdleTimeout closes rooms nobody has touched for this long.
const DefaultIdleTimeout = time.Hour

// Config holds what the hub hands to every room.
type Config struct {
	Selector session.MoveSelector
	// Transports creates the per-room transport for two-player rooms.
	Transports  transport.Factory
	History     repository.HistoryRepository
	Metrics     *room.Metrics
	AIDelay     time.Duration
	IdleTimeout time.Duration
}

// Hub manages all the rooms hosted by this process.
type Hub struct {
	cfg   Config
	mu    sync.RWMutex
	rooms map[string]*room.Room
}

// NewHub creates a new hub.
func NewHub(cfg Config) *Hub {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Hub{cfg: cfg, rooms: make(map[string]*room.Room)}
}

// Get returns the room with id.
func (h *Hub) Get(id string) (*room.Room, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}
	return r, nil
}

// Close returns the room's session to the menu and removes the room.
func (h *Hub) Close(ctx context.Context, id string) error {
	h.mu.Lock()
	r, ok := h.rooms[id]
	delete(h.rooms, id)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}
	r.Close(ctx)
	return nil
}

// Len returns the number of live rooms.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Shutdown closes every room.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*room.Room)
	h.mu.Unlock()

	for _, r := range rooms {
		r.Close(ctx)
	}
	slog.InfoContext(ctx, "Hub shut down", "rooms.closed", len(rooms))
}
