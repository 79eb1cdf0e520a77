package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
)

// Mode selects who plays the O side.
type Mode string

const (
	ModePlayerVsPlayer   Mode = "pvp"
	ModePlayerVsComputer Mode = "pvc"
)

// ParseMode - validates a mode string.
func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(raw); mode {
	case ModePlayerVsPlayer, ModePlayerVsComputer:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidMode, raw)
	}
}

// Score is the tally of finished games within one session.
type Score struct {
	X     int `json:"x"`
	O     int `json:"o"`
	Draws int `json:"draws"`
}

// Session is one player's table: a board, whose turn it is, and the running score.
type Session struct {
	ID           string    `json:"id"`
	Mode         Mode      `json:"mode"`
	Board        Board     `json:"board"`
	Turn         Mark      `json:"turn"`
	HumanMark    Mark      `json:"human_mark,omitempty"`
	ComputerMark Mark      `json:"computer_mark,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	Score        Score     `json:"score"`
	LastMove     int       `json:"last_move"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession creates a session with an empty board and X to move.
// In pvc mode humanMark picks the human's side and the computer takes the other.
func NewSession(id string, mode Mode, humanMark Mark) (*Session, error) {
	session := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
	}

	if err := session.setMode(mode, humanMark); err != nil {
		return nil, err
	}

	session.Restart()

	return session, nil
}

func (that *Session) setMode(mode Mode, humanMark Mark) error {
	switch mode {
	case ModePlayerVsPlayer:
		that.HumanMark = Empty
		that.ComputerMark = Empty
	case ModePlayerVsComputer:
		if humanMark == Empty {
			humanMark = MarkX
		}
		if !humanMark.IsSide() {
			return fmt.Errorf("%w: human mark %d", apperror.ErrInvalidMark, humanMark)
		}
		that.HumanMark = humanMark
		that.ComputerMark = Opponent(humanMark)
	default:
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMode, mode)
	}

	that.Mode = mode
	return nil
}

// MakeTurn - applies side's move, toggles the turn and settles the score once the game ends.
func (that *Session) MakeTurn(side Mark, cell int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.Turn != side {
		return fmt.Errorf("%w: %s to move", apperror.ErrNotYourTurn, that.Turn)
	}

	if err := that.Board.ApplyMove(cell, side); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	that.LastMove = cell
	that.Turn = Opponent(side)
	that.UpdatedAt = time.Now().UTC()
	that.updateOutcome()

	return nil
}

func (that *Session) updateOutcome() {
	that.Outcome = that.Board.EvaluateOutcome()

	switch that.Outcome.Status {
	case StatusWin:
		if that.Outcome.Winner == MarkX {
			that.Score.X++
		} else {
			that.Score.O++
		}
		that.Turn = Empty
	case StatusDraw:
		that.Score.Draws++
		that.Turn = Empty
	case StatusInProgress:
	}
}

// Validate - checks that a loaded session is consistent with its board.
// A finished game has nobody to move, otherwise Turn must match the mark counts.
func (that *Session) Validate() error {
	if err := that.Board.ValidateTurnOrder(); err != nil {
		return err
	}

	want := that.Board.NextSide()
	if that.Board.EvaluateOutcome().IsTerminal() {
		want = Empty
	}

	if that.Turn != want {
		return fmt.Errorf("%w: turn %q, board expects %q", apperror.ErrInvalidBoard, that.Turn, want)
	}

	return nil
}

func (that *Session) IsFinished() bool {
	return that.Outcome.IsTerminal()
}

func (that *Session) IsWithComputer() bool {
	return that.Mode == ModePlayerVsComputer
}

// IsComputerTurn reports whether the computer should move next.
func (that *Session) IsComputerTurn() bool {
	return that.IsWithComputer() && !that.IsFinished() && that.Turn == that.ComputerMark
}

// Restart clears the board for a new game. The score is kept.
func (that *Session) Restart() {
	that.Board.Reset()
	that.Turn = MarkX
	that.LastMove = -1
	that.Outcome = that.Board.EvaluateOutcome()
	that.UpdatedAt = time.Now().UTC()
}

// SwitchMode changes the opponent and restarts. The score is kept.
func (that *Session) SwitchMode(mode Mode, humanMark Mark) error {
	if err := that.setMode(mode, humanMark); err != nil {
		return err
	}

	that.Restart()
	return nil
}
