package bot

import (
	"math/rand/v2"

	"ctchen222/galactic-tictactoe/internal/game"
)

// Difficulty controls how often the bot ignores the search and plays a random cell.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"

	// DefaultDifficulty is used when a player does not pick one.
	DefaultDifficulty = Medium
)

// MisMoveProbability returns the chance that the bot plays a random legal cell
// instead of the optimal one. Unknown difficulties behave like medium.
func (d Difficulty) MisMoveProbability() float64 {
	switch d {
	case Easy:
		return 0.85
	case Hard:
		return 0.25
	default:
		return 0.5
	}
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

// SelectMove picks the bot's next cell.
//
//  1. Win: complete a line for botMark if possible.
//  2. Block: occupy the cell that would complete a line for the opponent.
//  3. Otherwise, with the difficulty's mis-move probability play a random empty
//     cell, else the minimax best move.
//
// found is false only when the board is full.
func SelectMove(rng *rand.Rand, board game.Board, difficulty Difficulty, botMark game.PlayerMark) (cell int, found bool) {
	available := board.EmptyCells()
	if len(available) == 0 {
		return -1, false
	}

	// 1. Win: Check if the bot can win in the next move
	if cell, canWin := FindWinningMove(board, botMark); canWin {
		return cell, true
	}

	// 2. Block: Check if the opponent is about to win and block them
	if cell, canBlock := FindWinningMove(board, botMark.Opponent()); canBlock {
		return cell, true
	}

	// 3. Random or optimal, weighted by difficulty
	if rng.Float64() < difficulty.MisMoveProbability() {
		return available[rng.IntN(len(available))], true
	}
	return BestMove(board, botMark)
}

// FindWinningMove returns the lowest empty cell that completes a line for mark.
func FindWinningMove(board game.Board, mark game.PlayerMark) (cell int, found bool) {
	for _, candidate := range board.EmptyCells() {
		outcome := game.Evaluate(board.Place(candidate, mark))
		if outcome.Status == game.StatusWin && outcome.Winner == mark {
			return candidate, true
		}
	}
	return -1, false
}
