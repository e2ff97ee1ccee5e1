package polling

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/pkg/proto"
)

func subscribe(ctx context.Context, tr *Transport, code string) <-chan *proto.Message {
	ch := make(chan *proto.Message, 16)
	go func() {
		_ = tr.Subscribe(ctx, code, func(msg *proto.Message) { ch <- msg })
	}()
	return ch
}

func next(t *testing.T, ch <-chan *proto.Message) *proto.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func TestPollingRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewMemorySessionRepository(time.Hour, nil)
	host := New(repo, 10*time.Millisecond)
	guest := New(repo, 10*time.Millisecond)

	// Given a hosted session
	require.NoError(t, host.Host(ctx, "POLL01", proto.NewStateMessage(proto.TypeInit, game.Board{}, game.PlayerX)))
	hostFeed := subscribe(ctx, host, "POLL01")

	// When the guest joins
	init, err := guest.Join(ctx, "POLL01")
	require.NoError(t, err)
	assert.Equal(t, proto.TypeInit, init.Type)
	assert.Equal(t, game.PlayerX, init.Turn)

	// Then the host sees the opponent arrive
	assert.Equal(t, proto.TypeJoined, next(t, hostFeed).Type)

	// And the guest's move reaches the host as a full state
	board := game.Board{}.Place(4, game.PlayerO)
	require.NoError(t, guest.Publish(ctx, "POLL01", proto.NewStateMessage(proto.TypeMove, board, game.PlayerX)))
	msg := next(t, hostFeed)
	assert.Equal(t, proto.TypeMove, msg.Type)
	assert.Equal(t, game.BoardToSlice(board), msg.Board)
	assert.Equal(t, game.PlayerX, msg.Turn)

	// And leaving is reported
	require.NoError(t, guest.Leave(ctx, "POLL01"))
	assert.Equal(t, proto.TypeLeft, next(t, hostFeed).Type)
}

func TestPollingOwnWritesNotEchoed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewMemorySessionRepository(time.Hour, nil)
	host := New(repo, 5*time.Millisecond)
	require.NoError(t, host.Host(ctx, "ECHO00", proto.NewStateMessage(proto.TypeInit, game.Board{}, game.PlayerX)))
	require.NoError(t, host.Publish(ctx, "ECHO00", proto.NewStateMessage(proto.TypeMove, game.Board{game.PlayerX}, game.PlayerO)))

	feed := subscribe(ctx, host, "ECHO00")
	select {
	case msg := <-feed:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollingReset(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySessionRepository(time.Hour, nil)
	host := New(repo, time.Second)
	require.NoError(t, host.Host(ctx, "RST000", proto.NewStateMessage(proto.TypeInit, game.Board{}, game.PlayerX)))
	require.NoError(t, host.Publish(ctx, "RST000", proto.NewStateMessage(proto.TypeMove, game.Board{game.PlayerX}, game.PlayerO)))

	require.NoError(t, host.Publish(ctx, "RST000", &proto.Message{Type: proto.TypeReset}))

	rec, err := repo.Get(ctx, "RST000")
	require.NoError(t, err)
	assert.Equal(t, make([]game.PlayerMark, game.Cells), rec.Board)
	assert.Equal(t, game.PlayerX, rec.Turn)
}

func TestPollingJoinErrors(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySessionRepository(time.Hour, nil)
	host := New(repo, time.Second)
	require.NoError(t, host.Host(ctx, "FULL00", proto.NewStateMessage(proto.TypeInit, game.Board{}, game.PlayerX)))

	_, err := New(repo, time.Second).Join(ctx, "FULL00")
	require.NoError(t, err)

	_, err = New(repo, time.Second).Join(ctx, "FULL00")
	assert.ErrorIs(t, err, apperror.ErrSessionFull)

	_, err = New(repo, time.Second).Join(ctx, "MISSIN")
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
}

// pausingRepository holds one armed Get after it has read the record, until
// released.
type pausingRepository struct {
	repository.SessionRepository
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepository) Get(ctx context.Context, code string) (*repository.SessionRecord, error) {
	rec, err := r.SessionRepository.Get(ctx, code)
	if r.armed.CompareAndSwap(true, false) {
		r.read <- struct{}{}
		<-r.release
	}
	return rec, err
}

func TestPollingIgnoresRecordOlderThanOwnWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &pausingRepository{
		SessionRepository: repository.NewMemorySessionRepository(time.Hour, nil),
		read:              make(chan struct{}),
		release:           make(chan struct{}),
	}
	host := New(repo, 5*time.Millisecond)
	guest := New(repo, 5*time.Millisecond)

	// Given a session both sides have joined
	require.NoError(t, host.Host(ctx, "STALE0", proto.NewStateMessage(proto.TypeInit, game.Board{}, game.PlayerX)))
	hostFeed := subscribe(ctx, host, "STALE0")
	_, err := guest.Join(ctx, "STALE0")
	require.NoError(t, err)
	require.Equal(t, proto.TypeJoined, next(t, hostFeed).Type)

	// When the host's move is written while a poll holds the older record
	repo.armed.Store(true)
	select {
	case <-repo.read:
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not read the record")
	}
	own := game.Board{game.PlayerX}
	require.NoError(t, host.Publish(ctx, "STALE0", proto.NewStateMessage(proto.TypeMove, own, game.PlayerO)))
	close(repo.release)

	// Then the older record is not delivered over the host's own move
	select {
	case msg := <-hostFeed:
		t.Fatalf("stale state delivered: board=%v turn=%s", msg.Board, msg.Turn)
	case <-time.After(50 * time.Millisecond):
	}

	// And the guest's reply still arrives
	reply := own.Place(4, game.PlayerO)
	require.NoError(t, guest.Publish(ctx, "STALE0", proto.NewStateMessage(proto.TypeMove, reply, game.PlayerX)))
	msg := next(t, hostFeed)
	assert.Equal(t, game.BoardToSlice(reply), msg.Board)
	assert.Equal(t, game.PlayerX, msg.Turn)
}
