package room

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"ctchen222/galactic-tictactoe/internal/player"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/session"
	"ctchen222/galactic-tictactoe/internal/transport"

	"go.opentelemetry.io/otel"
)

const (
	heartbeatInterval = 10 * time.Second
)

var tracer = otel.Tracer("room")

// ErrClosed is returned for commands sent to a closed room.
var ErrClosed = errors.New("room is closed")

// Config wires a room's collaborators.
type Config struct {
	ID        string
	Selector  session.MoveSelector
	Transport transport.Transport
	History   repository.HistoryRepository
	Metrics   *Metrics
	AIDelay   time.Duration
	Rand      *rand.Rand
}

// Room hosts one participant's session. Every session call, remote message
// and delayed bot move runs on the room's loop goroutine.
type Room struct {
	ID        string
	session   *session.Session
	transport transport.Transport
	history   repository.HistoryRepository
	metrics   *Metrics

	commands  chan func(ctx context.Context)
	Done      chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	clients      map[string]*player.Player
	snapshot     session.Snapshot
	lastActivity time.Time

	timerMu sync.Mutex
	timer   *time.Timer

	// feedCancel stops the transport subscription. Loop goroutine only.
	feedCancel context.CancelFunc
}

// New creates a room in the menu phase. Call Start to run its loop.
func New(cfg Config) *Room {
	r := &Room{
		ID:           cfg.ID,
		transport:    cfg.Transport,
		history:      cfg.History,
		metrics:      cfg.Metrics,
		commands:     make(chan func(ctx context.Context), 16),
		Done:         make(chan struct{}),
		clients:      make(map[string]*player.Player),
		lastActivity: time.Now(),
	}
	sessionCfg := session.Config{
		Selector:  cfg.Selector,
		Scheduler: r,
		AIDelay:   cfg.AIDelay,
		Rand:      cfg.Rand,
	}
	if cfg.Transport != nil {
		sessionCfg.Transport = cfg.Transport
	}
	r.session = session.New(sessionCfg)
	r.snapshot = r.session.Snapshot()
	return r
}

// Start launches the room's loop.
func (r *Room) Start() {
	go r.run()
}

func (r *Room) run() {
	ctx := context.Background()
	pingTicker := time.NewTicker(heartbeatInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Done:
			slog.Info("Room run goroutine stopping.", "room.id", r.ID)
			return

		case cmd := <-r.commands:
			prev := r.Snapshot()
			cmd(ctx)
			r.afterCommand(ctx, prev)

		case <-pingTicker.C:
			r.ping()
		}
	}
}

// post queues cmd for the loop. It reports false once the room is closed.
func (r *Room) post(cmd func(ctx context.Context)) bool {
	select {
	case r.commands <- cmd:
		return true
	case <-r.Done:
		return false
	}
}

// do runs fn on the loop and waits for its result.
func (r *Room) do(ctx context.Context, fn func(ctx context.Context) error) error {
	result := make(chan error, 1)
	if !r.post(func(loopCtx context.Context) {
		result <- fn(loopCtx)
	}) {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-r.Done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close returns the session to the menu, which notifies a two-player peer,
// then stops the loop and disconnects every client.
func (r *Room) Close(ctx context.Context) {
	_ = r.do(ctx, func(ctx context.Context) error {
		r.session.ReturnToMenu(ctx)
		r.stopFeed()
		return nil
	})
	r.closeOnce.Do(func() {
		r.Cancel()
		close(r.Done)
		r.mu.Lock()
		for id, p := range r.clients {
			p.Conn.Close()
			delete(r.clients, id)
		}
		r.mu.Unlock()
		slog.InfoContext(ctx, "Room closed", "room.id", r.ID)
	})
}

// Snapshot returns the state after the last processed command.
func (r *Room) Snapshot() session.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// LastActivity is when the room last processed a command.
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

// ClientCount returns the number of connected clients.
func (r *Room) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
