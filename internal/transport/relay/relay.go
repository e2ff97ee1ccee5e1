// Package relay implements a push-based transport over Redis Pub/Sub. The
// session record is still kept in the session store so that joins and
// late lookups see the latest state.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"ctchen222/galactic-tictactoe/internal/events"
	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/transport"
	"ctchen222/galactic-tictactoe/pkg/proto"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("transport.relay")

// Transport serves one participant. Messages it publishes carry its sender id
// and are dropped when they come back on its own subscription.
type Transport struct {
	rdb    *redis.Client
	repo   repository.SessionRepository
	sender string

	mu     sync.Mutex
	pubsub *redis.PubSub
}

var _ transport.Transport = (*Transport)(nil)

// New creates a relay Transport with a fresh sender id.
func New(rdb *redis.Client, repo repository.SessionRepository) *Transport {
	return &Transport{rdb: rdb, repo: repo, sender: uuid.NewString()}
}

// NewFactory returns a Factory sharing the client and store.
func NewFactory(rdb *redis.Client, repo repository.SessionRepository) transport.Factory {
	return func() transport.Transport {
		return New(rdb, repo)
	}
}

// Host subscribes to the session channel and stores the initial record.
func (t *Transport) Host(ctx context.Context, code string, init *proto.Message) error {
	ctx, span := tracer.Start(ctx, "relay.Host", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()

	if _, err := t.subscribe(ctx, code); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to subscribe")
		return err
	}
	if err := t.repo.Create(ctx, &repository.SessionRecord{Code: code, Board: init.Board, Turn: init.Turn}); err != nil {
		t.unsubscribe()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to host session")
		return err
	}
	return nil
}

// Join claims the second seat, announces it and returns the stored state.
func (t *Transport) Join(ctx context.Context, code string) (*proto.Message, error) {
	ctx, span := tracer.Start(ctx, "relay.Join", trace.WithAttributes(attribute.String("session.code", code)))
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
	if _, err := t.subscribe(ctx, code); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to subscribe")
		return nil, err
	}
	if err := t.send(ctx, code, &proto.Message{Type: proto.TypeJoined}); err != nil {
		t.unsubscribe()
		return nil, err
	}
	return proto.NewStateMessage(proto.TypeInit, board, rec.Turn), nil
}

// Publish mirrors state-carrying messages into the store and relays the
// message to the peer.
func (t *Transport) Publish(ctx context.Context, code string, msg *proto.Message) error {
	ctx, span := tracer.Start(ctx, "relay.Publish", trace.WithAttributes(
		attribute.String("session.code", code),
		attribute.String("message.type", msg.Type),
	))
	defer span.End()

	if msg.CarriesState() || msg.Type == proto.TypeReset {
		var board game.Board
		turn := game.PlayerX
		if msg.CarriesState() {
			b, err := game.BoardFromSlice(msg.Board)
			if err != nil {
				return err
			}
			board, turn = b, msg.Turn
		}
		if _, err := t.repo.Update(ctx, code, func(rec *repository.SessionRecord) error {
			rec.SetState(board, turn)
			return nil
		}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to store state")
			return fmt.Errorf("failed to store %s for session %s: %w", msg.Type, code, err)
		}
	}
	return t.send(ctx, code, msg)
}

// Leave announces the departure, gives up the seat and unsubscribes.
func (t *Transport) Leave(ctx context.Context, code string) error {
	ctx, span := tracer.Start(ctx, "relay.Leave", trace.WithAttributes(attribute.String("session.code", code)))
	defer span.End()
	defer t.unsubscribe()

	if err := t.send(ctx, code, &proto.Message{Type: proto.TypeLeft}); err != nil {
		slog.WarnContext(ctx, "Failed to announce leave", "session.code", code, "error", err)
	}
	return t.repo.Leave(ctx, code)
}

// Subscribe delivers the peer's messages until ctx is done or Leave closes
// the subscription. The subscription is closed when ctx is done.
func (t *Transport) Subscribe(ctx context.Context, code string, deliver func(*proto.Message)) error {
	pubsub, err := t.subscribe(ctx, code)
	if err != nil {
		return err
	}
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			t.closeSubscription(pubsub)
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var event events.Event
			if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
				slog.WarnContext(ctx, "Could not unmarshal session event", "session.code", code, "error", err)
				continue
			}
			if event.Sender == t.sender || event.Type != events.TypeSessionMessage {
				continue
			}
			var msg proto.Message
			if err := json.Unmarshal(event.Payload, &msg); err != nil {
				slog.WarnContext(ctx, "Could not unmarshal session message", "session.code", code, "error", err)
				continue
			}
			deliver(&msg)
		}
	}
}

func (t *Transport) send(ctx context.Context, code string, msg *proto.Message) error {
	msg.Sender = t.sender
	data, err := events.NewEvent(events.TypeSessionMessage, t.sender, msg)
	if err != nil {
		return err
	}
	if err := t.rdb.Publish(ctx, events.SessionChannel(code), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to session %s: %w", msg.Type, code, err)
	}
	return nil
}

// subscribe opens the session channel once and waits for Redis to confirm it,
// so nothing the peer publishes afterwards is missed. It returns the open
// subscription.
func (t *Transport) subscribe(ctx context.Context, code string) (*redis.PubSub, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubsub != nil {
		return t.pubsub, nil
	}
	pubsub := t.rdb.Subscribe(ctx, events.SessionChannel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session %s: %w", code, err)
	}
	t.pubsub = pubsub
	return pubsub, nil
}

func (t *Transport) unsubscribe() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubsub != nil {
		t.pubsub.Close()
		t.pubsub = nil
	}
}

// closeSubscription closes pubsub unless Leave already did.
func (t *Transport) closeSubscription(pubsub *redis.PubSub) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pubsub == pubsub {
		t.pubsub.Close()
		t.pubsub = nil
	}
}
