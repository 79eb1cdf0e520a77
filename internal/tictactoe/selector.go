package tictactoe

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const (
	winScore = 10

	minScore = math.MinInt
	maxScore = math.MaxInt
)

// Search is the result of a computer move search.
type Search struct {
	Cell  int
	Score int
	Nodes int
}

// Selector picks moves for either side. The zero value is usable and logs nothing.
type Selector struct {
	logger *slog.Logger
}

func NewSelector(logger *slog.Logger) *Selector {
	return &Selector{
		logger: logger,
	}
}

var defaultSelector = &Selector{}

// SelectHumanMove - applies a move supplied by a person. The caller tracks whose turn it is.
func SelectHumanMove(board *entity.Board, cell int, side entity.Mark) error {
	if err := board.ApplyMove(cell, side); err != nil {
		return fmt.Errorf("invalid human move: %w", err)
	}
	return nil
}

// SelectComputerMove - returns the optimal cell for computerSide using the default selector.
// A board that is already won yields ErrNoLegalMove even when empty cells remain, the same as a full board.
func SelectComputerMove(board entity.Board, computerSide, humanSide entity.Mark) (int, error) {
	return defaultSelector.SelectComputerMove(board, computerSide, humanSide)
}

func (that *Selector) SelectComputerMove(board entity.Board, computerSide, humanSide entity.Mark) (int, error) {
	result, err := that.Search(board, computerSide, humanSide)
	if err != nil {
		return -1, err
	}
	return result.Cell, nil
}

// Search runs minimax with alpha-beta pruning over a copy of the board.
// Among equally scored moves the lowest cell index wins.
func (that *Selector) Search(board entity.Board, computerSide, humanSide entity.Mark) (Search, error) {
	if !computerSide.IsSide() || humanSide != entity.Opponent(computerSide) {
		return Search{Cell: -1}, fmt.Errorf("%w: computer %q, human %q", apperror.ErrInvalidMark, computerSide, humanSide)
	}

	if board.EvaluateOutcome().Status == entity.StatusWin {
		return Search{Cell: -1}, fmt.Errorf("%w: game already won", apperror.ErrNoLegalMove)
	}

	moves := board.LegalMoves()
	if len(moves) == 0 {
		return Search{Cell: -1}, apperror.ErrNoLegalMove
	}

	s := &searcher{
		board:    board,
		computer: computerSide,
		human:    humanSide,
	}

	best := Search{Cell: -1, Score: minScore}
	for _, cell := range moves {
		score := s.try(cell, computerSide, func() int {
			return s.minimax(1, false, minScore, maxScore)
		})

		if score > best.Score {
			best.Cell = cell
			best.Score = score
		}
	}
	best.Nodes = s.nodes

	if that.logger != nil {
		that.logger.Debug("computer move selected",
			"board", board.String(),
			"side", computerSide.String(),
			"cell", best.Cell,
			"score", best.Score,
			"nodes", best.Nodes,
		)
	}

	return best, nil
}

// searcher owns the snapshot that the recursion mutates.
type searcher struct {
	board    entity.Board
	computer entity.Mark
	human    entity.Mark
	nodes    int
}

// try places side on cell for the duration of eval.
func (that *searcher) try(cell int, side entity.Mark, eval func() int) int {
	that.board[cell] = side
	defer func() {
		that.board[cell] = entity.Empty
	}()

	return eval()
}

// minimax scores the current snapshot from the computer's point of view.
// depth counts the plies placed since the search root.
func (that *searcher) minimax(depth int, maximizing bool, alpha, beta int) int {
	that.nodes++

	switch outcome := that.board.EvaluateOutcome(); outcome.Status {
	case entity.StatusWin:
		if outcome.Winner == that.computer {
			return winScore - depth
		}
		return depth - winScore
	case entity.StatusDraw:
		return 0
	case entity.StatusInProgress:
	}

	if maximizing {
		best := minScore
		for _, cell := range that.board.LegalMoves() {
			score := that.try(cell, that.computer, func() int {
				return that.minimax(depth+1, false, alpha, beta)
			})

			best = max(best, score)
			alpha = max(alpha, score)
			if beta <= alpha {
				break
			}
		}
		return best
	}

	best := maxScore
	for _, cell := range that.board.LegalMoves() {
		score := that.try(cell, that.human, func() int {
			return that.minimax(depth+1, true, alpha, beta)
		})

		best = min(best, score)
		beta = min(beta, score)
		if beta <= alpha {
			break
		}
	}
	return best
}
