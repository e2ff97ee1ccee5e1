package bot

import (
	"testing"

	"ctchen222/galactic-tictactoe/internal/game"
)

func TestScoreTerminal(t *testing.T) {
	tests := []struct {
		name  string
		board game.Board
		depth int
		want  int
	}{
		{
			name:  "AI already won",
			board: game.Board{x, x, x, o, o, e, e, e, e},
			depth: 0,
			want:  10,
		},
		{
			name:  "AI won deeper in the tree",
			board: game.Board{x, x, x, o, o, e, e, e, e},
			depth: 3,
			want:  7,
		},
		{
			name:  "Opponent won",
			board: game.Board{o, o, o, x, x, e, x, e, e},
			depth: 2,
			want:  -8,
		},
		{
			name:  "Draw",
			board: game.Board{x, o, x, x, o, o, o, x, x},
			depth: 4,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.board, tt.depth, false, x); got != tt.want {
				t.Errorf("Score() got = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreDoesNotMutateBoard(t *testing.T) {
	board := game.Board{x, e, e, e, o, e, e, e, e}
	before := board
	Score(board, 0, true, x)
	if board != before {
		t.Errorf("Score() mutated the board: got %v, want %v", board, before)
	}
}

func TestBestMove(t *testing.T) {
	tests := []struct {
		name     string
		board    game.Board
		aiMark   game.PlayerMark
		wantCell int
	}{
		{
			name:     "Empty board opens in a corner",
			board:    game.Board{},
			aiMark:   x,
			wantCell: 0,
		},
		{
			name:     "Faster win over a block",
			board:    game.Board{e, o, o, x, x, e, e, e, e},
			aiMark:   x,
			wantCell: 5,
		},
		{
			name:     "Edge reply against opposite corners",
			board:    game.Board{x, e, e, e, o, e, e, e, x},
			aiMark:   o,
			wantCell: 1,
		},
		{
			name:     "Center reply to a corner opening",
			board:    game.Board{x, e, e, e, e, e, e, e, e},
			aiMark:   o,
			wantCell: 4,
		},
		{
			name:     "Last cell",
			board:    game.Board{x, o, x, x, o, o, o, x, e},
			aiMark:   x,
			wantCell: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, found := BestMove(tt.board, tt.aiMark)
			if !found || cell != tt.wantCell {
				t.Errorf("BestMove() got (%d, %v), want (%d, true)", cell, found, tt.wantCell)
			}
		})
	}
}

func TestBestMoveOpeningIsOptimal(t *testing.T) {
	cell, found := BestMove(game.Board{}, o)
	if !found {
		t.Fatal("BestMove() found no move on an empty board")
	}
	corners := map[int]bool{0: true, 2: true, 6: true, 8: true, 4: true}
	if !corners[cell] {
		t.Errorf("BestMove() opened on %d, want center or a corner", cell)
	}
}

func TestBestMoveFullBoard(t *testing.T) {
	if cell, found := BestMove(game.Board{x, o, x, x, o, o, o, x, x}, x); found || cell != -1 {
		t.Errorf("BestMove() on full board got (%d, %v), want (-1, false)", cell, found)
	}
}

func TestBestMoveNeverLoses(t *testing.T) {
	// The search plays X against every possible O reply and must never lose.
	var play func(board game.Board, toMove game.PlayerMark)
	play = func(board game.Board, toMove game.PlayerMark) {
		outcome := game.Evaluate(board)
		if outcome.IsTerminal() {
			if outcome.Status == game.StatusWin && outcome.Winner == o {
				t.Fatalf("search lost as X on %v", board)
			}
			return
		}
		if toMove == x {
			cell, _ := BestMove(board, x)
			play(board.Place(cell, x), o)
			return
		}
		for _, cell := range board.EmptyCells() {
			play(board.Place(cell, o), x)
		}
	}
	play(game.Board{x, e, e, e, e, e, e, e, e}, o)
}
