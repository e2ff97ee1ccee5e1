package game

import "fmt"

// BoardFromSlice converts a decoded wire board into a Board.
func BoardFromSlice(cells []PlayerMark) (Board, error) {
	var b Board
	if len(cells) != Cells {
		return b, fmt.Errorf("board must have %d cells, got %d", Cells, len(cells))
	}
	for i, cell := range cells {
		if cell != None && !cell.IsPlayer() {
			return b, fmt.Errorf("invalid mark %q at cell %d", cell, i)
		}
		b[i] = cell
	}
	return b, nil
}

// BoardToSlice converts a Board to a dynamic slice for serialization.
func BoardToSlice(b Board) []PlayerMark {
	cells := make([]PlayerMark, Cells)
	copy(cells, b[:])
	return cells
}
