package bot

import (
	"math"

	"ctchen222/galactic-tictactoe/internal/game"
)

const winScore = 10

// Score runs an exhaustive minimax search from board. The board is passed by
// value, so every recursive call works on its own copy.
//
// A win for aiMark scores 10-depth and a loss depth-10, which prefers faster
// wins and slower losses. Draws score 0.
func Score(board game.Board, depth int, maximizing bool, aiMark game.PlayerMark) int {
	outcome := game.Evaluate(board)
	switch {
	case outcome.Status == game.StatusWin && outcome.Winner == aiMark:
		return winScore - depth
	case outcome.Status == game.StatusWin:
		return depth - winScore
	case outcome.Status == game.StatusDraw:
		return 0
	}

	if maximizing {
		best := math.MinInt
		for _, cell := range board.EmptyCells() {
			best = max(best, Score(board.Place(cell, aiMark), depth+1, false, aiMark))
		}
		return best
	}

	best := math.MaxInt
	opponent := aiMark.Opponent()
	for _, cell := range board.EmptyCells() {
		best = min(best, Score(board.Place(cell, opponent), depth+1, true, aiMark))
	}
	return best
}

// BestMove returns the empty cell with the strictly greatest minimax score for
// aiMark. Ties go to the lowest index. found is false on a full board.
func BestMove(board game.Board, aiMark game.PlayerMark) (cell int, found bool) {
	best := math.MinInt
	cell = -1
	for _, candidate := range board.EmptyCells() {
		score := Score(board.Place(candidate, aiMark), 0, false, aiMark)
		if score > best {
			best = score
			cell = candidate
		}
	}
	return cell, cell != -1
}
