package room

import (
	"context"
	"strconv"
	"strings"
	"time"

	"ctchen222/galactic-tictactoe/internal/game"
	"ctchen222/galactic-tictactoe/internal/repository"
	"ctchen222/galactic-tictactoe/internal/session"
)

const hostMark = game.PlayerX

// Schedule runs action on the loop after delay, replacing any pending action.
func (r *Room) Schedule(delay time.Duration, action func()) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(delay, func() {
		r.post(func(_ context.Context) { action() })
	})
}

// Cancel drops the pending action. An action already queued on the loop is
// discarded by the session itself.
func (r *Room) Cancel() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func placedMarks(board []game.PlayerMark) int {
	n := 0
	for _, mark := range board {
		if mark != game.None {
			n++
		}
	}
	return n
}

func lineString(line *game.Line) string {
	if line == nil {
		return ""
	}
	cells := make([]string, len(line))
	for i, cell := range line {
		cells[i] = strconv.Itoa(cell)
	}
	return strings.Join(cells, ",")
}

func matchRecord(roomID string, snap session.Snapshot) *repository.MatchRecord {
	return &repository.MatchRecord{
		RoomID:     roomID,
		Mode:       string(snap.Mode),
		Difficulty: string(snap.Difficulty),
		HumanMark:  string(snap.LocalMark),
		Status:     string(snap.Outcome.Status),
		Winner:     string(snap.Outcome.Winner),
		Line:       lineString(snap.Outcome.Line),
		FinishedAt: time.Now().UTC(),
	}
}
