package game

import (
	"testing"
)

const (
	x = PlayerX
	o = PlayerO
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		board      Board
		wantStatus Status
		wantWinner PlayerMark
		wantLine   *Line
	}{
		{
			name:       "No winner - empty board",
			board:      Board{},
			wantStatus: StatusNone,
		},
		{
			name:       "No winner - partial board",
			board:      Board{x, None, None, None, o, None, None, None, None},
			wantStatus: StatusNone,
		},
		{
			name:       "X wins - first row",
			board:      Board{x, x, x, None, o, None, None, None, o},
			wantStatus: StatusWin,
			wantWinner: x,
			wantLine:   &Line{0, 1, 2},
		},
		{
			name:       "O wins - second column",
			board:      Board{x, o, None, x, o, None, None, o, None},
			wantStatus: StatusWin,
			wantWinner: o,
			wantLine:   &Line{1, 4, 7},
		},
		{
			name:       "X wins - main diagonal",
			board:      Board{x, None, None, None, x, None, None, None, x},
			wantStatus: StatusWin,
			wantWinner: x,
			wantLine:   &Line{0, 4, 8},
		},
		{
			name:       "O wins - anti-diagonal",
			board:      Board{None, None, o, None, o, None, o, None, None},
			wantStatus: StatusWin,
			wantWinner: o,
			wantLine:   &Line{2, 4, 6},
		},
		{
			name:       "Win on a full board beats draw",
			board:      Board{x, x, x, o, o, x, x, o, o},
			wantStatus: StatusWin,
			wantWinner: x,
			wantLine:   &Line{0, 1, 2},
		},
		{
			name:       "Row reported before diagonal",
			board:      Board{x, x, x, None, x, o, o, o, x},
			wantStatus: StatusWin,
			wantWinner: x,
			wantLine:   &Line{0, 1, 2},
		},
		{
			name:       "Full board without line is a draw",
			board:      Board{x, o, x, x, o, o, o, x, x},
			wantStatus: StatusDraw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.board)
			if got.Status != tt.wantStatus || got.Winner != tt.wantWinner {
				t.Errorf("Evaluate() got = %v/%v, want %v/%v", got.Status, got.Winner, tt.wantStatus, tt.wantWinner)
			}
			if (got.Line == nil) != (tt.wantLine == nil) || (got.Line != nil && *got.Line != *tt.wantLine) {
				t.Errorf("Evaluate() line got = %v, want %v", got.Line, tt.wantLine)
			}
		})
	}
}

func TestEvaluateEveryLine(t *testing.T) {
	for _, mark := range []PlayerMark{x, o} {
		for _, line := range Lines {
			var b Board
			for _, cell := range line {
				b[cell] = mark
			}
			got := Evaluate(b)
			if got.Status != StatusWin || got.Winner != mark || got.Line == nil || *got.Line != line {
				t.Errorf("Evaluate() for %s on %v got = %+v", mark, line, got)
			}
		}
	}
}

func TestOptimalPlayEndsInDraw(t *testing.T) {
	// Center/corner exchanges played optimally by both sides.
	moves := []int{4, 0, 2, 6, 3, 5, 7, 1, 8}
	var b Board
	mark := PlayerX
	for i, cell := range moves {
		if out := Evaluate(b); out.IsTerminal() {
			t.Fatalf("game ended early after %d moves: %+v", i, out)
		}
		b = b.Place(cell, mark)
		mark = mark.Opponent()
	}

	if got := Evaluate(b); got.Status != StatusDraw {
		t.Errorf("Evaluate() got = %+v, want draw", got)
	}
}

func TestBoardHelpers(t *testing.T) {
	b := Board{x, None, o, None, None, None, None, None, x}

	if got := b.EmptyCells(); len(got) != 6 || got[0] != 1 || got[5] != 7 {
		t.Errorf("EmptyCells() got = %v", got)
	}
	if b.IsFull() {
		t.Error("IsFull() got = true, want false")
	}
	if b.IsEmpty() {
		t.Error("IsEmpty() got = true, want false")
	}

	placed := b.Place(1, o)
	if placed[1] != o || b[1] != None {
		t.Errorf("Place() must copy: placed=%v original=%v", placed[1], b[1])
	}

	if PlayerX.Opponent() != PlayerO || PlayerO.Opponent() != PlayerX {
		t.Error("Opponent() mismatch")
	}
	if ValidCell(-1) || ValidCell(9) || !ValidCell(0) || !ValidCell(8) {
		t.Error("ValidCell() bounds mismatch")
	}
}

func TestBoardFromSlice(t *testing.T) {
	if _, err := BoardFromSlice([]PlayerMark{x, o}); err == nil {
		t.Error("BoardFromSlice() expected error for short board")
	}
	if _, err := BoardFromSlice([]PlayerMark{"Z", "", "", "", "", "", "", "", ""}); err == nil {
		t.Error("BoardFromSlice() expected error for unknown mark")
	}

	want := Board{x, None, None, None, o, None, None, None, None}
	got, err := BoardFromSlice(BoardToSlice(want))
	if err != nil {
		t.Fatalf("BoardFromSlice() unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("BoardFromSlice() got = %v, want %v", got, want)
	}
}
