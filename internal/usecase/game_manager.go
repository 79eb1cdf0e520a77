package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
	"github.com/rocketscienceinc/neon-tictactoe/internal/repository"
)

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

type moveSelector interface {
	SelectComputerMove(board entity.Board, computerSide, humanSide entity.Mark) (int, error)
}

type Option func(*GameManager)

// WithThinkDelay makes the computer wait before answering.
func WithThinkDelay(delay time.Duration) Option {
	return func(that *GameManager) {
		that.thinkDelay = delay
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(that *GameManager) {
		that.newID = newID
	}
}

// GameManager drives sessions: it validates human turns, answers with the computer and persists the result.
// Every operation on a session holds that session's lock, so moves and searches never overlap on one board.
type GameManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	selector    moveSelector

	thinkDelay time.Duration
	newID      func() string

	locksMutex sync.Mutex
	locks      map[string]*sync.Mutex
}

func NewGameManager(logger *slog.Logger, sessionRepo sessionRepo, selector moveSelector, opts ...Option) *GameManager {
	manager := &GameManager{
		logger:      logger.With("component", "game_manager"),
		sessionRepo: sessionRepo,
		selector:    selector,
		newID:       uuid.NewString,
		locks:       make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(manager)
	}

	return manager
}

// StartGame - creates a session. When the computer holds X it opens right away.
func (that *GameManager) StartGame(ctx context.Context, mode entity.Mode, humanMark entity.Mark) (*entity.Session, error) {
	log := that.logger.With("method", "StartGame")

	session, err := entity.NewSession(that.newID(), mode, humanMark)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	unlock := that.lock(session.ID)
	defer unlock()

	if session.IsComputerTurn() {
		if err = that.computerTurn(ctx, session); err != nil {
			return nil, err
		}
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	log.Info("game started", "session", session.ID, "mode", session.Mode, "human", session.HumanMark.String())

	return session, nil
}

func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// MakeTurn - plays cell for the side to move. Against the computer the reply is played before returning.
// Nothing is saved when any step fails.
func (that *GameManager) MakeTurn(ctx context.Context, id string, cell int) (*entity.Session, error) {
	log := that.logger.With("method", "MakeTurn")

	unlock := that.lock(id)
	defer unlock()

	session, err := that.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	side := session.Turn
	if session.IsWithComputer() {
		side = session.HumanMark
	}

	if err = session.MakeTurn(side, cell); err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if session.IsComputerTurn() {
		if err = that.computerTurn(ctx, session); err != nil {
			return nil, err
		}
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if session.IsFinished() {
		log.Info("game finished",
			"session", session.ID,
			"status", session.Outcome.Status,
			"winner", session.Outcome.Winner.String(),
		)
	}

	return session, nil
}

// Restart - clears the board and keeps the score.
func (that *GameManager) Restart(ctx context.Context, id string) (*entity.Session, error) {
	return that.update(ctx, id, func(session *entity.Session) error {
		session.Restart()
		return nil
	})
}

// SwitchMode - changes the opponent, clears the board and keeps the score.
func (that *GameManager) SwitchMode(ctx context.Context, id string, mode entity.Mode, humanMark entity.Mark) (*entity.Session, error) {
	return that.update(ctx, id, func(session *entity.Session) error {
		if err := session.SwitchMode(mode, humanMark); err != nil {
			return fmt.Errorf("failed to switch mode: %w", err)
		}
		return nil
	})
}

func (that *GameManager) EndGame(ctx context.Context, id string) error {
	log := that.logger.With("method", "EndGame")

	unlock := that.lock(id)
	defer unlock()

	err := that.sessionRepo.DeleteByID(ctx, id)
	if err == nil || errors.Is(err, repository.ErrSessionNotFound) {
		that.forget(id)
	}

	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	log.Info("game ended", "session", id)

	return nil
}

func (that *GameManager) update(ctx context.Context, id string, change func(session *entity.Session) error) (*entity.Session, error) {
	unlock := that.lock(id)
	defer unlock()

	session, err := that.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = change(session); err != nil {
		return nil, err
	}

	if session.IsComputerTurn() {
		if err = that.computerTurn(ctx, session); err != nil {
			return nil, err
		}
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return session, nil
}

// getSession loads a session under its lock. The lock entry of an unknown id is dropped.
func (that *GameManager) getSession(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		that.forget(id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// computerTurn searches on a copy of the board and applies the chosen cell.
func (that *GameManager) computerTurn(ctx context.Context, session *entity.Session) error {
	log := that.logger.With("method", "computerTurn")

	if that.thinkDelay > 0 {
		timer := time.NewTimer(that.thinkDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return fmt.Errorf("computer turn interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	cell, err := that.selector.SelectComputerMove(session.Board, session.ComputerMark, session.HumanMark)
	if err != nil {
		return fmt.Errorf("computer failed to select move: %w", err)
	}

	if err = session.MakeTurn(session.ComputerMark, cell); err != nil {
		return fmt.Errorf("computer failed to make turn: %w", err)
	}

	log.Debug("computer moved", "session", session.ID, "cell", cell, "board", session.Board.String())

	return nil
}

// lock returns the unlock func for the session's mutex, creating the mutex on first use.
func (that *GameManager) lock(id string) func() {
	that.locksMutex.Lock()
	mu, ok := that.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		that.locks[id] = mu
	}
	that.locksMutex.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (that *GameManager) forget(id string) {
	that.locksMutex.Lock()
	delete(that.locks, id)
	that.locksMutex.Unlock()
}
