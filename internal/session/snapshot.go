package session

import (
	"ctchen222/galactic-tictactoe/internal/bot"
	"ctchen222/galactic-tictactoe/internal/game"
)

// Snapshot is the state a client renders.
type Snapshot struct {
	Mode       Mode              `json:"mode"`
	Phase      Phase             `json:"phase"`
	Board      []game.PlayerMark `json:"board"`
	LocalMark  game.PlayerMark   `json:"local_mark,omitempty"`
	Turn       game.PlayerMark   `json:"turn,omitempty"`
	Difficulty bot.Difficulty    `json:"difficulty,omitempty"`
	Outcome    game.Outcome      `json:"outcome"`
	Code       string            `json:"code,omitempty"`
	PeerAlive  bool              `json:"peer_alive"`
	// CycleMatch is 1 or 2: the position of the current single-player match
	// within its pair of matches with the same symbol assignment.
	CycleMatch int `json:"cycle_match,omitempty"`
	MatchCount int `json:"match_count"`
}

// LocalTurn reports whether the local player may move.
func (s Snapshot) LocalTurn() bool {
	return s.Phase == PhaseInProgress && s.Turn == s.LocalMark && !s.Outcome.IsTerminal()
}
