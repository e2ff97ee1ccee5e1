// Package polling implements a pull-based transport: each side rewrites the
// shared session record and polls it for the other side's changes.
package polling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/transport"
	"ctchen222/galactic-tictactoe/pkg/proto"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("transport.polling")

// DefaultInterval is how often the record is polled.
const DefaultInterval = time.Second

// seen is the newest record version this participant has read or written.
type seen struct {
	version int64
	board   []game.PlayerMark
	turn    game.PlayerMark
	players int
}

func seenFrom(rec *repository.SessionRecord) seen {
	return seen{version: rec.Version, board: slices.Clone(rec.Board), turn: rec.Turn, players: rec.Players}
}

// Transport serves one participant.
type Transport struct {
	repo     repository.SessionRepository
	interval time.Duration

	mu   sync.Mutex
	last seen
}

var _ transport.Transport = (*Transport)(nil)

// New creates a polling Transport over repo.
func New(repo repository.SessionRepository, interval time.Duration) *Transport {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Transport{repo: repo, interval: interval}
}

// NewFactory returns a Factory sharing repo and interval.
func NewFactory(repo repository.SessionRepository, interval time.Duration) transport.Factory {
	return func() transport.Transport {
		return New(repo, interval)
	}
}

// Host stores the initial session record.
func (t *Transport) Host(ctx context.Context, code string, init *proto.Message) error {
	ctx, span := tracer.Start(ctx, "polling.Host", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	rec := &repository.SessionRecord{Code: code, Board: init.Board, Turn: init.Turn}
	if err := t.repo.Create(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to host session")
		return err
	}
	t.remember(rec)
	return nil
}

// Join claims the second seat and returns the stored state.
func (t *Transport) Join(ctx context.Context, code string) (*proto.Message, error) {
	ctx, span := tracer.Start(ctx, "polling.Join", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	rec, err := t.repo.Join(ctx, code)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	board, err := game.BoardFromSlice(rec.Board)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record %s: %w", code, err)
	}
	t.remember(rec)
	return proto.NewStateMessage(proto.TypeInit, board, rec.Turn), nil
}

// Publish writes state-carrying messages into the record. Presence messages
// need no write; the peer derives them from the player count.
func (t *Transport) Publish(ctx context.Context, code string, msg *proto.Message) error {
	ctx, span := tracer.Start(ctx, "polling.Publish", trace.WithAttributes(
		attribute.String("session.code", code),
		attribute.String("message.type", msg.Type),
	))
	defer span.End()

	var board game.Board
	turn := game.PlayerX
	switch msg.Type {
	case proto.TypeInit, proto.TypeMove:
		b, err := game.BoardFromSlice(msg.Board)
		if err != nil {
			return err
		}
		board, turn = b, msg.Turn
	case proto.TypeReset:
	default:
		return nil
	}

	rec, err := t.repo.Update(ctx, code, func(rec *repository.SessionRecord) error {
		rec.SetState(board, turn)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish state")
		return fmt.Errorf("failed to publish %s to session %s: %w", msg.Type, code, err)
	}
	t.remember(rec)
	return nil
}

// Leave gives up this participant's seat.
func (t *Transport) Leave(ctx context.Context, code string) error {
	ctx, span := tracer.Start(ctx, "polling.Leave", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()
	return t.repo.Leave(ctx, code)
}

// Subscribe polls the record every interval and delivers what changed since
// the last read or write.
func (t *Transport) Subscribe(ctx context.Context, code string, deliver func(*proto.Message)) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rec, err := t.repo.Get(ctx, code)
			if err != nil {
				if errors.Is(err, apperror.ErrSessionNotFound) || errors.Is(err, apperror.ErrSessionExpired) {
					deliver(&proto.Message{Type: proto.TypeLeft})
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
				slog.WarnContext(ctx, "Polling session failed", "session.code", code, "error", err)
				continue
			}
			for _, msg := range t.diff(rec) {
				deliver(msg)
			}
		}
	}
}

func (t *Transport) remember(rec *repository.SessionRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec.Version >= t.last.version {
		t.last = seenFrom(rec)
	}
}

// diff returns what changed since the last seen version. A record read before
// one of this participant's own writes landed is older than last and yields
// nothing.
func (t *Transport) diff(rec *repository.SessionRecord) []*proto.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rec.Version <= t.last.version {
		return nil
	}

	var msgs []*proto.Message
	if t.last.players < 2 && rec.Players >= 2 {
		msgs = append(msgs, &proto.Message{Type: proto.TypeJoined})
	}
	if t.last.players >= 2 && rec.Players < 2 {
		msgs = append(msgs, &proto.Message{Type: proto.TypeLeft})
	}
	if !slices.Equal(t.last.board, rec.Board) || t.last.turn != rec.Turn {
		if board, err := game.BoardFromSlice(rec.Board); err == nil {
			msgs = append(msgs, proto.NewStateMessage(proto.TypeMove, board, rec.Turn))
		}
	}
	t.last = seenFrom(rec)
	return msgs
}
