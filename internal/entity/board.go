package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
)

// BoardSize is the number of cells on the 3x3 board.
const BoardSize = 9

// Mark is the value held by a board cell.
type Mark uint8

const (
	Empty Mark = iota
	MarkX
	MarkO
)

// WinPatterns - rows, columns and diagonals, scanned in this order.
var WinPatterns = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

func (that Mark) String() string {
	switch that {
	case MarkX:
		return "X"
	case MarkO:
		return "O"
	default:
		return ""
	}
}

// IsSide reports whether the mark belongs to a player.
func (that Mark) IsSide() bool {
	return that == MarkX || that == MarkO
}

func (that Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal(that.String())
}

func (that *Mark) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", apperror.ErrInvalidMark, data)
	}

	mark, err := ParseMark(raw)
	if err != nil {
		return err
	}

	*that = mark
	return nil
}

// ParseMark - converts "X", "O" or "" into a Mark.
func ParseMark(raw string) (Mark, error) {
	switch strings.ToUpper(raw) {
	case "X":
		return MarkX, nil
	case "O":
		return MarkO, nil
	case "":
		return Empty, nil
	default:
		return Empty, fmt.Errorf("%w: %q", apperror.ErrInvalidMark, raw)
	}
}

// Opponent returns the other side. Empty has no opponent.
func Opponent(side Mark) Mark {
	switch side {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return Empty
	}
}

// Status of a game derived from the board.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWin        Status = "win"
	StatusDraw       Status = "draw"
)

// Outcome is computed on demand from a Board and never stored as the source of truth.
type Outcome struct {
	Status Status `json:"status"`
	Winner Mark   `json:"winner"`
	Line   [3]int `json:"line"`
}

func (that Outcome) IsTerminal() bool {
	return that.Status == StatusWin || that.Status == StatusDraw
}

// Board is the 3x3 grid, row-major. Copying a Board yields an independent snapshot.
type Board [BoardSize]Mark

// NewGame returns an all-Empty board.
func NewGame() Board {
	return Board{}
}

// IsEmpty reports whether the cell holds Empty; out-of-range cells are never empty.
func (that *Board) IsEmpty(cell int) bool {
	if cell < 0 || cell >= BoardSize {
		return false
	}
	return that[cell] == Empty
}

// ApplyMove - places side's mark on an empty cell. The board is unchanged on error.
func (that *Board) ApplyMove(cell int, side Mark) error {
	if cell < 0 || cell >= BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if !side.IsSide() {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidMark, side)
	}

	if that[cell] != Empty {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, cell)
	}

	that[cell] = side
	return nil
}

// LegalMoves returns every empty cell in ascending order. A new slice is built on every call.
func (that *Board) LegalMoves() []int {
	moves := make([]int, 0, BoardSize)
	for i, cell := range that {
		if cell == Empty {
			moves = append(moves, i)
		}
	}
	return moves
}

// EvaluateOutcome - scans WinPatterns in order, then checks for a full board.
func (that *Board) EvaluateOutcome() Outcome {
	for _, pattern := range WinPatterns {
		a, b, c := that[pattern[0]], that[pattern[1]], that[pattern[2]]
		if a != Empty && a == b && b == c {
			return Outcome{Status: StatusWin, Winner: a, Line: pattern}
		}
	}

	// the game will continue until all the squares are full
	for _, cell := range that {
		if cell == Empty {
			return Outcome{Status: StatusInProgress}
		}
	}

	return Outcome{Status: StatusDraw}
}

// Reset sets every cell to Empty.
func (that *Board) Reset() {
	*that = Board{}
}

// Count returns how many cells hold the mark.
func (that *Board) Count(mark Mark) int {
	n := 0
	for _, cell := range that {
		if cell == mark {
			n++
		}
	}
	return n
}

// ValidateTurnOrder checks that X moved first and sides alternated.
func (that *Board) ValidateTurnOrder() error {
	for i, cell := range that {
		if cell != Empty && !cell.IsSide() {
			return fmt.Errorf("%w: cell %d holds %d", apperror.ErrInvalidBoard, i, cell)
		}
	}

	x, o := that.Count(MarkX), that.Count(MarkO)
	if x < o || x-o > 1 {
		return fmt.Errorf("%w: %d X marks, %d O marks", apperror.ErrInvalidBoard, x, o)
	}

	return nil
}

// NextSide returns the side to move according to mark counts.
func (that *Board) NextSide() Mark {
	if that.Count(MarkX) > that.Count(MarkO) {
		return MarkO
	}
	return MarkX
}

func (that Board) String() string {
	var sb strings.Builder
	for i, cell := range that {
		if cell == Empty {
			sb.WriteByte('.')
		} else {
			sb.WriteString(cell.String())
		}
		if i%3 == 2 && i != BoardSize-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}
