package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctchen222/galactic-tictactoe/internal/apperror"
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/session"
	"ctchen222/galactic-tictactoe/internal/transport/polling"
)

func newTestHub(t *testing.T, withTransport bool) *Hub {
	t.Helper()
	cfg := Config{
		Selector: bot.NewEngine(nil),
		AIDelay:  time.Millisecond,
	}
	if withTransport {
		repo := repository.NewMemorySessionRepository(time.Hour, nil)
		cfg.Transports = polling.NewFactory(repo, 5*time.Millisecond)
	}
	h := NewHub(cfg)
	t.Cleanup(func() { h.Shutdown(context.Background()) })
	return h
}

func TestHubSinglePlayerLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t, false)

	r, err := h.CreateSinglePlayer(ctx, bot.Easy)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseInProgress, r.Snapshot().Phase)
	assert.Equal(t, bot.Easy, r.Snapshot().Difficulty)

	got, err := h.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)

	require.NoError(t, h.Close(ctx, r.ID))
	_, err = h.Get(r.ID)
	assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	assert.ErrorIs(t, h.Close(ctx, r.ID), apperror.ErrRoomNotFound)
}

func TestHubMultiplayer(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t, true)

	host, err := h.HostMultiplayer(ctx)
	require.NoError(t, err)
	code := host.Snapshot().Code

	guest, err := h.JoinMultiplayer(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, code, guest.Snapshot().Code)

	// The session is full now.
	_, err = h.JoinMultiplayer(ctx, code)
	assert.ErrorIs(t, err, apperror.ErrSessionFull)

	_, err = h.JoinMultiplayer(ctx, "??")
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	assert.Equal(t, 2, h.Len())
}

func TestHubMultiplayerNeedsTransport(t *testing.T) {
	h := newTestHub(t, false)
	_, err := h.HostMultiplayer(context.Background())
	assert.ErrorIs(t, err, apperror.ErrTransportFailure)
}

func TestHubReapsIdleRooms(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t, false)
	r, err := h.CreateSinglePlayer(ctx, bot.Medium)
	require.NoError(t, err)

	h.reap(ctx, time.Now())
	assert.Equal(t, 1, h.Len())

	h.reap(ctx, time.Now().Add(2*DefaultIdleTimeout))
	assert.Zero(t, h.Len())
	_, err = r.Move(ctx, 0)
	assert.Error(t, err)
}
