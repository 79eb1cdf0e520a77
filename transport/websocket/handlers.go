package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

var (
	errGameIDRequired = errors.New("game_id is required")
	errCellRequired   = errors.New("cell is required")
)

func (that *Server) handleNewGame(ctx context.Context, req *Request) (ResponsePayload, error) {
	if req.Mode == "" {
		req.Mode = string(entity.ModePlayerVsComputer)
	}

	mode, humanMark, err := parseModeAndMark(req)
	if err != nil {
		return ResponsePayload{}, err
	}

	session, err := that.gameUseCase.StartGame(ctx, mode, humanMark)
	if err != nil {
		return ResponsePayload{}, fmt.Errorf("failed to start game: %w", err)
	}

	return ResponsePayload{Game: session, GameID: session.ID}, nil
}

func (that *Server) handleGameState(ctx context.Context, req *Request) (ResponsePayload, error) {
	if req.GameID == "" {
		return ResponsePayload{}, errGameIDRequired
	}

	session, err := that.gameUseCase.GetGame(ctx, req.GameID)
	if err != nil {
		return ResponsePayload{}, err
	}

	return ResponsePayload{Game: session, GameID: session.ID}, nil
}

func (that *Server) handleGameTurn(ctx context.Context, req *Request) (ResponsePayload, error) {
	if req.GameID == "" {
		return ResponsePayload{}, errGameIDRequired
	}

	if req.Cell == nil {
		return ResponsePayload{}, errCellRequired
	}

	cell, err := cellIndex(*req.Cell)
	if err != nil {
		return ResponsePayload{}, err
	}

	session, err := that.gameUseCase.MakeTurn(ctx, req.GameID, cell)
	if err != nil {
		return ResponsePayload{}, err
	}

	return ResponsePayload{Game: session, GameID: session.ID}, nil
}

func (that *Server) handleRestart(ctx context.Context, req *Request) (ResponsePayload, error) {
	if req.GameID == "" {
		return ResponsePayload{}, errGameIDRequired
	}

	session, err := that.gameUseCase.Restart(ctx, req.GameID)
	if err != nil {
		return ResponsePayload{}, err
	}

	return ResponsePayload{Game: session, GameID: session.ID}, nil
}

func (that *Server) handleSwitchMode(ctx context.Context, req *Request) (ResponsePayload, error) {
	if req.GameID == "" {
		return ResponsePayload{}, errGameIDRequired
	}

	mode, humanMark, err := parseModeAndMark(req)
	if err != nil {
		return ResponsePayload{}, err
	}

	session, err := that.gameUseCase.SwitchMode(ctx, req.GameID, mode, humanMark)
	if err != nil {
		return ResponsePayload{}, err
	}

	return ResponsePayload{Game: session, GameID: session.ID}, nil
}

func (that *Server) handleLeave(ctx context.Context, req *Request) (ResponsePayload, error) {
	if req.GameID == "" {
		return ResponsePayload{}, errGameIDRequired
	}

	if err := that.gameUseCase.EndGame(ctx, req.GameID); err != nil {
		return ResponsePayload{}, err
	}

	return ResponsePayload{GameID: req.GameID}, nil
}

func parseModeAndMark(req *Request) (entity.Mode, entity.Mark, error) {
	mode, err := entity.ParseMode(req.Mode)
	if err != nil {
		return "", entity.Empty, err
	}

	humanMark, err := entity.ParseMark(req.HumanMark)
	if err != nil {
		return "", entity.Empty, err
	}

	return mode, humanMark, nil
}
