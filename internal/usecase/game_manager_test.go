package usecase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
	"github.com/rocketscienceinc/neon-tictactoe/internal/repository"
	"github.com/rocketscienceinc/neon-tictactoe/internal/tictactoe"
)

var (
	errRedisDown    = errors.New("redis down")
	errSelectorDown = errors.New("selector down")
)

type mockSessionRepo struct {
	mock.Mock
}

func (that *mockSessionRepo) CreateOrUpdate(ctx context.Context, session *entity.Session) error {
	args := that.Called(ctx, session)
	return args.Error(0)
}

func (that *mockSessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	args := that.Called(ctx, id)
	session, _ := args.Get(0).(*entity.Session)
	return session, args.Error(1)
}

func (that *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	args := that.Called(ctx, id)
	return args.Error(0)
}

type failingSelector struct{}

func (failingSelector) SelectComputerMove(entity.Board, entity.Mark, entity.Mark) (int, error) {
	return -1, errSelectorDown
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newTestManager(opts ...Option) (*GameManager, repository.SessionRepository) {
	repo := repository.NewMemorySessionRepository()
	opts = append([]Option{WithIDGenerator(func() string { return "game-1" })}, opts...)

	return NewGameManager(newTestLogger(), repo, tictactoe.NewSelector(nil), opts...), repo
}

func TestGameManager_StartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Player vs computer with the human on X waits for the human", func(t *testing.T) {
		// Given: a manager backed by memory
		manager, repo := newTestManager()

		// When: starting a pvc game with the human on X
		session, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkX)

		// Then: the board is empty and stored
		require.NoError(t, err)
		assert.Equal(t, "game-1", session.ID)
		assert.Equal(t, entity.NewGame(), session.Board)
		assert.Equal(t, entity.MarkX, session.Turn)

		stored, err := repo.GetByID(ctx, "game-1")
		require.NoError(t, err)
		assert.Equal(t, session.Board, stored.Board)
	})

	t.Run("Computer holding X opens on the first cell", func(t *testing.T) {
		manager, _ := newTestManager()

		session, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkO)

		require.NoError(t, err)
		assert.Equal(t, entity.MarkX, session.Board[0])
		assert.Equal(t, entity.MarkO, session.Turn)
		assert.Equal(t, 0, session.LastMove)
	})

	t.Run("Invalid mode is rejected", func(t *testing.T) {
		manager, _ := newTestManager()

		_, err := manager.StartGame(ctx, entity.Mode("online"), entity.MarkX)

		require.ErrorIs(t, err, apperror.ErrInvalidMode)
	})

	t.Run("Storage failure is returned", func(t *testing.T) {
		// Given: a repository that cannot write
		repo := &mockSessionRepo{}
		repo.On("CreateOrUpdate", mock.Anything, mock.AnythingOfType("*entity.Session")).Return(errRedisDown).Once()
		manager := NewGameManager(newTestLogger(), repo, tictactoe.NewSelector(nil))

		// When: starting a game
		session, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)

		// Then: the error is surfaced
		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, session)
		repo.AssertExpectations(t)
	})
}

func TestGameManager_MakeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Computer answers a center opening in the corner", func(t *testing.T) {
		// Given: a pvc game with the human on X
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkX)
		require.NoError(t, err)

		// When: the human takes the center
		session, err := manager.MakeTurn(ctx, "game-1", 4)

		// Then: the computer has already replied on cell 0 and the human is to move
		require.NoError(t, err)
		assert.Equal(t, entity.MarkX, session.Board[4])
		assert.Equal(t, entity.MarkO, session.Board[0])
		assert.Equal(t, entity.MarkX, session.Turn)
		assert.Equal(t, 0, session.LastMove)
	})

	t.Run("Player vs player alternates sides", func(t *testing.T) {
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)
		require.NoError(t, err)

		first, err := manager.MakeTurn(ctx, "game-1", 0)
		require.NoError(t, err)
		second, err := manager.MakeTurn(ctx, "game-1", 1)
		require.NoError(t, err)

		assert.Equal(t, entity.MarkX, first.Board[0])
		assert.Equal(t, entity.MarkO, second.Board[1])
		assert.Equal(t, entity.MarkX, second.Turn)
	})

	t.Run("Occupied cell is rejected and nothing is saved", func(t *testing.T) {
		manager, repo := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkX)
		require.NoError(t, err)
		_, err = manager.MakeTurn(ctx, "game-1", 4)
		require.NoError(t, err)

		_, err = manager.MakeTurn(ctx, "game-1", 0)

		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		stored, err := repo.GetByID(ctx, "game-1")
		require.NoError(t, err)
		assert.Len(t, stored.Board.LegalMoves(), 7)
	})

	t.Run("Unknown session", func(t *testing.T) {
		manager, _ := newTestManager()

		_, err := manager.MakeTurn(ctx, "missing", 4)

		require.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("Selector failure rolls the human move back", func(t *testing.T) {
		repo := repository.NewMemorySessionRepository()
		manager := NewGameManager(newTestLogger(), repo, failingSelector{}, WithIDGenerator(func() string { return "game-1" }))
		_, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkX)
		require.NoError(t, err)

		_, err = manager.MakeTurn(ctx, "game-1", 4)

		require.ErrorIs(t, err, errSelectorDown)
		stored, err := repo.GetByID(ctx, "game-1")
		require.NoError(t, err)
		assert.True(t, stored.Board.IsEmpty(4))
	})

	t.Run("Cancelled context interrupts the thinking delay", func(t *testing.T) {
		manager, _ := newTestManager(WithThinkDelay(time.Hour))
		_, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkX)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = manager.MakeTurn(cancelled, "game-1", 4)

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Human playing the lowest free cell never beats the computer", func(t *testing.T) {
		// Given: a pvc game
		manager, _ := newTestManager()
		session, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkX)
		require.NoError(t, err)

		// When: the human always picks the first legal cell
		for !session.IsFinished() {
			session, err = manager.MakeTurn(ctx, "game-1", session.Board.LegalMoves()[0])
			require.NoError(t, err)
		}

		// Then: the computer wins or draws and the tally counts the game
		assert.NotEqual(t, entity.MarkX, session.Outcome.Winner)
		assert.Equal(t, 1, session.Score.O+session.Score.Draws)

		// And: further turns are refused
		_, err = manager.MakeTurn(ctx, "game-1", 0)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestGameManager_MakeTurn_Concurrent(t *testing.T) {
	// Given: a pvp game
	ctx := context.Background()
	manager, _ := newTestManager()
	_, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)
	require.NoError(t, err)

	// When: two requests race for the same cell
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = manager.MakeTurn(ctx, "game-1", 4)
		}()
	}
	wg.Wait()

	// Then: exactly one wins the cell
	var failures int
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, apperror.ErrCellOccupied)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	session, err := manager.GetGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, entity.MarkX, session.Board[4])
	assert.Equal(t, entity.MarkO, session.Turn)
}

func TestGameManager_Restart(t *testing.T) {
	ctx := context.Background()

	t.Run("Keeps the score and clears the board", func(t *testing.T) {
		// Given: a finished pvp game won by X
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)
		require.NoError(t, err)
		for _, cell := range []int{0, 3, 1, 4, 2} {
			_, err = manager.MakeTurn(ctx, "game-1", cell)
			require.NoError(t, err)
		}

		// When: restarting
		session, err := manager.Restart(ctx, "game-1")

		// Then: the score survives on a fresh board
		require.NoError(t, err)
		assert.Equal(t, entity.Score{X: 1}, session.Score)
		assert.Equal(t, entity.NewGame(), session.Board)
		assert.False(t, session.IsFinished())
	})

	t.Run("Computer on X opens again after restart", func(t *testing.T) {
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsComputer, entity.MarkO)
		require.NoError(t, err)

		session, err := manager.Restart(ctx, "game-1")

		require.NoError(t, err)
		assert.Equal(t, entity.MarkX, session.Board[0])
		assert.Equal(t, entity.MarkO, session.Turn)
	})

	t.Run("Storage read failure", func(t *testing.T) {
		repo := &mockSessionRepo{}
		repo.On("GetByID", mock.Anything, "game-1").Return(nil, errRedisDown).Once()
		manager := NewGameManager(newTestLogger(), repo, tictactoe.NewSelector(nil))

		_, err := manager.Restart(ctx, "game-1")

		require.ErrorIs(t, err, errRedisDown)
		repo.AssertExpectations(t)
	})
}

func TestGameManager_SwitchMode(t *testing.T) {
	ctx := context.Background()

	t.Run("Switching to computer play", func(t *testing.T) {
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)
		require.NoError(t, err)
		_, err = manager.MakeTurn(ctx, "game-1", 4)
		require.NoError(t, err)

		session, err := manager.SwitchMode(ctx, "game-1", entity.ModePlayerVsComputer, entity.MarkX)

		require.NoError(t, err)
		assert.Equal(t, entity.ModePlayerVsComputer, session.Mode)
		assert.Equal(t, entity.MarkO, session.ComputerMark)
		assert.Equal(t, entity.NewGame(), session.Board)
	})

	t.Run("Invalid mode", func(t *testing.T) {
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)
		require.NoError(t, err)

		_, err = manager.SwitchMode(ctx, "game-1", entity.Mode("ranked"), entity.MarkX)

		require.ErrorIs(t, err, apperror.ErrInvalidMode)
	})
}

func TestGameManager_EndGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Deletes the session", func(t *testing.T) {
		manager, _ := newTestManager()
		_, err := manager.StartGame(ctx, entity.ModePlayerVsPlayer, entity.Empty)
		require.NoError(t, err)

		require.NoError(t, manager.EndGame(ctx, "game-1"))

		_, err = manager.GetGame(ctx, "game-1")
		require.ErrorIs(t, err, repository.ErrSessionNotFound)
	})

	t.Run("Unknown session", func(t *testing.T) {
		manager, _ := newTestManager()

		err := manager.EndGame(ctx, "missing")

		require.ErrorIs(t, err, repository.ErrSessionNotFound)
	})
}
