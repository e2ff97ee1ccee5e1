package game

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

// Status classifies a board: still being played, won, or drawn.
type Status string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board outcomes
	StatusNone Status = ""
	StatusWin  Status = "win"
	StatusDraw Status = "draw"

	// Board boundaries
	BorderMin = 0
	BorderMax = 8
	Cells     = 9
)

// Line is one of the eight index triples that wins the game when filled by one mark.
type Line [3]int

// Lines lists every winning line in canonical order: rows, then columns, then diagonals.
var Lines = [8]Line{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board holds the nine cells in row-major order.
type Board [Cells]PlayerMark

// Outcome is derived from a board and never stored on its own.
type Outcome struct {
	Status Status     `json:"status"`
	Winner PlayerMark `json:"winner,omitempty"`
	Line   *Line      `json:"line,omitempty"`
}

// IsTerminal reports whether the outcome ends the match.
func (o Outcome) IsTerminal() bool {
	return o.Status != StatusNone
}

// Evaluate checks the eight lines in canonical order and reports the first one
// filled by a single mark. A full board without a line is a draw.
func Evaluate(b Board) Outcome {
	for _, line := range Lines {
		a := b[line[0]]
		if a != None && a == b[line[1]] && a == b[line[2]] {
			winning := line
			return Outcome{Status: StatusWin, Winner: a, Line: &winning}
		}
	}

	if b.IsFull() {
		return Outcome{Status: StatusDraw}
	}

	return Outcome{Status: StatusNone}
}

// IsFull reports whether no empty cell is left.
func (b Board) IsFull() bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no mark has been placed yet.
func (b Board) IsEmpty() bool {
	return b == Board{}
}

// EmptyCells returns the indexes of the empty cells in ascending order.
func (b Board) EmptyCells() []int {
	cells := make([]int, 0, Cells)
	for i, cell := range b {
		if cell == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// Place returns a copy of the board with mark written at cell.
func (b Board) Place(cell int, mark PlayerMark) Board {
	b[cell] = mark
	return b
}

// ValidCell reports whether cell addresses a square of the board.
func ValidCell(cell int) bool {
	return cell >= BorderMin && cell <= BorderMax
}

// Opponent returns the other player's mark.
func (m PlayerMark) Opponent() PlayerMark {
	if m == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// IsPlayer reports whether m is X or O.
func (m PlayerMark) IsPlayer() bool {
	return m == PlayerX || m == PlayerO
}
