package bot

import (
	"math/rand/v2"
	"sync"

	"ctchen222/galactic-tictactoe/internal/game"
)

// Engine owns a random source and selects moves with it. It implements the
// session.MoveSelector interface.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an Engine drawing from rng. A nil rng uses a randomly seeded source.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{rng: rng}
}

// SelectMove calls the package-level function with the engine's random source.
func (e *Engine) SelectMove(board game.Board, difficulty Difficulty, botMark game.PlayerMark) (cell int, found bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SelectMove(e.rng, board, difficulty, botMark)
}
