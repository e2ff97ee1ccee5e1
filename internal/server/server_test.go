package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctchen222/galactic-tictactoe/internal/api/controller"
	"ctchen222/galactic-tictactoe/internal/api/service"
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/db"
	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/hub"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/room"
	"ctchen222/galactic-tictactoe/internal/session"
	"ctchen222/galactic-tictactoe/internal/transport/polling"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Extras  json.RawMessage `json:"extras"`
}

type roomExtras struct {
	RoomID   string           `json:"room_id"`
	Token    string           `json:"token"`
	Accepted bool             `json:"accepted"`
	Snapshot session.Snapshot `json:"snapshot"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	history := repository.NewHistoryRepository(conn)
	sessions := repository.NewMemorySessionRepository(time.Hour, nil)
	h := hub.NewHub(hub.Config{
		Selector:   bot.NewEngine(rand.New(rand.NewPCG(7, 7))),
		Transports: polling.NewFactory(sessions, 5*time.Millisecond),
		History:    history,
		AIDelay:    time.Millisecond,
	})
	t.Cleanup(func() { h.Shutdown(context.Background()) })

	svc := service.NewRoomService(h, history, service.NewTokenIssuer("test-secret", time.Hour))
	srv := NewServer(svc, controller.NewRoomController(svc))

	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (int, roomExtras) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var extras roomExtras
	_ = json.Unmarshal(env.Extras, &extras)
	return resp.StatusCode, extras
}

func TestSinglePlayerOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	status, created := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{
		"mode": "single", "difficulty": "hard",
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, created.Token)
	assert.Equal(t, session.PhaseInProgress, created.Snapshot.Phase)
	assert.Equal(t, game.PlayerX, created.Snapshot.LocalMark)

	roomURL := ts.URL + "/api/rooms/" + created.RoomID
	status, moved := doJSON(t, http.MethodPost, roomURL+"/moves", created.Token, map[string]int{"cell": 4})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, moved.Accepted)
	assert.Equal(t, game.PlayerX, moved.Snapshot.Board[4])

	// The cell is taken now.
	status, moved = doJSON(t, http.MethodPost, roomURL+"/moves", created.Token, map[string]int{"cell": 4})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, moved.Accepted)

	status, _ = doJSON(t, http.MethodPost, roomURL+"/moves", created.Token, map[string]int{"cell": 9})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodDelete, roomURL, created.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, http.MethodGet, roomURL, created.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateRoomValidation(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{"mode": "solo"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{
		"mode": "single", "difficulty": "impossible",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSeatTokenRequired(t *testing.T) {
	ts := newTestServer(t)

	_, first := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{"mode": "single"})
	_, second := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{"mode": "single"})

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/rooms/"+first.RoomID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/rooms/"+first.RoomID, "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/rooms/"+first.RoomID, second.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, got := doJSON(t, http.MethodGet, ts.URL+"/api/rooms/"+first.RoomID, first.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, first.RoomID, got.RoomID)
}

func TestHostAndJoinOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	status, host := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{"mode": "multi"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.PhaseAwaitingOpponent, host.Snapshot.Phase)
	require.Len(t, host.Snapshot.Code, session.CodeLength)

	status, guest := doJSON(t, http.MethodPost, ts.URL+"/api/rooms/join", "", map[string]string{
		"code": strings.ToLower(host.Snapshot.Code),
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, game.PlayerO, guest.Snapshot.LocalMark)

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/join", "", map[string]string{"code": host.Snapshot.Code})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, http.MethodPost, ts.URL+"/api/rooms/join", "", map[string]string{"code": "ZZZZZZ"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatsAndMatches(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/matches?limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/matches")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketFeed(t *testing.T) {
	ts := newTestServer(t)
	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/rooms", "", map[string]string{"mode": "single"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=" + created.RoomID + "&token=" + created.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var update room.Update
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, created.RoomID, update.RoomID)
	assert.Equal(t, session.PhaseInProgress, update.Snapshot.Phase)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "cell": 0}))

	// Wait for the bot's reply to be broadcast.
	for placedCount(update.Snapshot.Board) < 2 {
		require.NoError(t, conn.ReadJSON(&update))
	}
	assert.Equal(t, game.PlayerX, update.Snapshot.Board[0])
	assert.Equal(t, game.PlayerX, update.Snapshot.Turn)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func placedCount(board []game.PlayerMark) int {
	n := 0
	for _, m := range board {
		if m != game.None {
			n++
		}
	}
	return n
}
